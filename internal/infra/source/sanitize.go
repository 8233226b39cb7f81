package source

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowedAttrs lists the elements kept by SanitizeHTML and the attributes kept on each.
// Elements not listed are unwrapped: their children survive, the tag does not.
var allowedAttrs = map[atom.Atom][]string{
	atom.A:          {"href", "title"},
	atom.Img:        {"src", "alt", "title", "width", "height"},
	atom.P:          nil,
	atom.Br:         nil,
	atom.Hr:         nil,
	atom.Div:        nil,
	atom.Span:       nil,
	atom.B:          nil,
	atom.Strong:     nil,
	atom.I:          nil,
	atom.Em:         nil,
	atom.U:          nil,
	atom.S:          nil,
	atom.Small:      nil,
	atom.Code:       nil,
	atom.Pre:        nil,
	atom.Blockquote: nil,
	atom.Ul:         nil,
	atom.Ol:         nil,
	atom.Li:         nil,
	atom.Dl:         nil,
	atom.Dt:         nil,
	atom.Dd:         nil,
	atom.H1:         nil,
	atom.H2:         nil,
	atom.H3:         nil,
	atom.H4:         nil,
	atom.H5:         nil,
	atom.H6:         nil,
	atom.Table:      nil,
	atom.Thead:      nil,
	atom.Tbody:      nil,
	atom.Tr:         nil,
	atom.Th:         {"colspan", "rowspan"},
	atom.Td:         {"colspan", "rowspan"},
}

// droppedWithContent are removed together with everything inside them.
var droppedWithContent = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Form:     true,
	atom.Svg:      true,
	atom.Math:     true,
}

var voidElements = map[atom.Atom]bool{atom.Br: true, atom.Hr: true, atom.Img: true}

// SanitizeHTML reduces an upstream HTML fragment to a small allow-list of
// elements and attributes. Relative links are resolved against baseURL;
// links with a scheme other than http or https are dropped.
func SanitizeHTML(fragment, baseURL string) string {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return html.EscapeString(fragment)
	}

	var base *url.URL
	if baseURL != "" {
		base, _ = url.Parse(baseURL)
	}

	var sb strings.Builder
	for _, n := range nodes {
		writeSanitized(&sb, n, base)
	}
	return strings.TrimSpace(sb.String())
}

func writeSanitized(sb *strings.Builder, n *html.Node, base *url.URL) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(html.EscapeString(n.Data))
		return
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeSanitized(sb, c, base)
		}
		return
	}

	if droppedWithContent[n.DataAtom] {
		return
	}
	attrs, ok := allowedAttrs[n.DataAtom]
	if !ok {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeSanitized(sb, c, base)
		}
		return
	}

	sb.WriteByte('<')
	sb.WriteString(n.Data)
	for _, a := range n.Attr {
		if a.Namespace != "" || !contains(attrs, a.Key) {
			continue
		}
		val := a.Val
		if a.Key == "href" || a.Key == "src" {
			var ok bool
			if val, ok = safeURL(val, base); !ok {
				continue
			}
		}
		sb.WriteByte(' ')
		sb.WriteString(a.Key)
		sb.WriteString(`="`)
		sb.WriteString(html.EscapeString(val))
		sb.WriteByte('"')
	}
	if voidElements[n.DataAtom] {
		sb.WriteString(" />")
		return
	}
	sb.WriteByte('>')
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeSanitized(sb, c, base)
	}
	sb.WriteString("</")
	sb.WriteString(n.Data)
	sb.WriteByte('>')
}

func safeURL(raw string, base *url.URL) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
