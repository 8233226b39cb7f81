// Package atom encodes feed documents as Atom 1.0 (RFC 4287) and decodes them back.
package atom

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"feedhub/internal/domain/entity"
)

// ContentType is the media type served with an encoded feed.
const ContentType = "application/atom+xml; charset=utf-8"

// Namespace is the Atom 1.0 XML namespace.
const Namespace = "http://www.w3.org/2005/Atom"

type feedXML struct {
	XMLName   xml.Name      `xml:"http://www.w3.org/2005/Atom feed"`
	Title     string        `xml:"title"`
	Subtitle  string        `xml:"subtitle"`
	Links     []linkXML     `xml:"link"`
	Generator *generatorXML `xml:"generator,omitempty"`
	ID        string        `xml:"id"`
	Updated   string        `xml:"updated"`
	Entries   []entryXML    `xml:"entry"`
}

type linkXML struct {
	Rel  string `xml:"rel,attr,omitempty"`
	Type string `xml:"type,attr,omitempty"`
	Href string `xml:"href,attr"`
}

type generatorXML struct {
	URI     string `xml:"uri,attr,omitempty"`
	Version string `xml:"version,attr,omitempty"`
	Name    string `xml:",chardata"`
}

type entryXML struct {
	Title     string       `xml:"title"`
	Links     []linkXML    `xml:"link"`
	ID        string       `xml:"id"`
	Content   *contentXML  `xml:"content,omitempty"`
	Category  *categoryXML `xml:"category,omitempty"`
	Author    *personXML   `xml:"author,omitempty"`
	Published string       `xml:"published"`
	Updated   string       `xml:"updated"`
}

type contentXML struct {
	Type string `xml:"type,attr"`
	Body string `xml:",chardata"`
}

type categoryXML struct {
	Term string `xml:"term,attr"`
}

type personXML struct {
	Name string `xml:"name"`
	URI  string `xml:"uri,omitempty"`
}

// Marshal encodes feed as an indented Atom 1.0 document with an XML declaration.
//
// subtitle, content and author are always present, empty when the feed or
// entry has no value for them. Every text node and attribute is escaped, and characters XML 1.0 cannot carry
// are replaced with U+FFFD, so the output is well-formed for any input.
// Timestamps are written in UTC using RFC 3339.
func Marshal(feed entity.Feed) ([]byte, error) {
	doc := feedXML{
		Title:    clean(feed.Title),
		Subtitle: clean(feed.Subtitle),
		ID:       clean(feed.ID),
		Updated:  formatTime(feed.Updated),
	}
	if feed.AlternateLink != "" {
		doc.Links = append(doc.Links, linkXML{Rel: "alternate", Type: "text/html", Href: clean(feed.AlternateLink)})
	}
	if feed.SelfLink != "" {
		doc.Links = append(doc.Links, linkXML{Rel: "self", Type: "application/atom+xml", Href: clean(feed.SelfLink)})
	}
	if feed.Generator.Name != "" {
		doc.Generator = &generatorXML{
			URI:     clean(feed.Generator.URI),
			Version: clean(feed.Generator.Version),
			Name:    clean(feed.Generator.Name),
		}
	}

	doc.Entries = make([]entryXML, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		ex := entryXML{
			Title:     clean(e.Title),
			Links:     []linkXML{{Rel: "alternate", Type: "text/html", Href: clean(e.Link)}},
			ID:        clean(e.ID),
			Content:   &contentXML{Type: "html", Body: clean(e.Content)},
			Author:    &personXML{Name: clean(e.AuthorName), URI: clean(e.AuthorURI)},
			Published: formatTime(e.Published),
			Updated:   formatTime(e.Updated),
		}
		// term is required on atom:category, so an untagged entry has none.
		if e.Category != "" {
			ex.Category = &categoryXML{Term: clean(e.Category)}
		}
		doc.Entries = append(doc.Entries, ex)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode atom feed: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Unmarshal decodes an Atom 1.0 document produced by Marshal.
func Unmarshal(data []byte) (entity.Feed, error) {
	var doc feedXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return entity.Feed{}, fmt.Errorf("decode atom feed: %w", err)
	}

	updated, err := parseTime(doc.Updated)
	if err != nil {
		return entity.Feed{}, fmt.Errorf("decode atom feed: updated: %w", err)
	}
	feed := entity.Feed{
		ID:       doc.ID,
		Title:    doc.Title,
		Subtitle: doc.Subtitle,
		Updated:  updated,
	}
	for _, l := range doc.Links {
		switch l.Rel {
		case "self":
			feed.SelfLink = l.Href
		case "", "alternate":
			feed.AlternateLink = l.Href
		}
	}
	if doc.Generator != nil {
		feed.Generator = entity.Generator{Name: doc.Generator.Name, URI: doc.Generator.URI, Version: doc.Generator.Version}
	}

	for i, ex := range doc.Entries {
		e := entity.Entry{ID: ex.ID, Title: ex.Title}
		for _, l := range ex.Links {
			if l.Rel == "" || l.Rel == "alternate" {
				e.Link = l.Href
			}
		}
		if ex.Content != nil {
			e.Content = ex.Content.Body
		}
		if ex.Category != nil {
			e.Category = ex.Category.Term
		}
		if ex.Author != nil {
			e.AuthorName = ex.Author.Name
			e.AuthorURI = ex.Author.URI
		}
		if e.Published, err = parseTime(ex.Published); err != nil {
			return entity.Feed{}, fmt.Errorf("decode atom feed: entry %d published: %w", i, err)
		}
		if e.Updated, err = parseTime(ex.Updated); err != nil {
			return entity.Feed{}, fmt.Errorf("decode atom feed: entry %d updated: %w", i, err)
		}
		feed.Entries = append(feed.Entries, e)
	}

	return feed, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// clean replaces invalid UTF-8 and characters outside the XML 1.0 Char production with U+FFFD.
func clean(s string) string {
	return strings.Map(func(r rune) rune {
		if r == utf8.RuneError || !isXMLChar(r) {
			return utf8.RuneError
		}
		return r
	}, strings.ToValidUTF8(s, string(utf8.RuneError)))
}

func isXMLChar(r rune) bool {
	switch {
	case r == 0x09 || r == 0x0A || r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}
