// Package csp builds Content-Security-Policy header values.
//
// Feed documents carry upstream HTML inside entry content. Browsers that open
// a feed URL directly must never run that markup's scripts, so every response
// the server writes carries FeedPolicy.
package csp

import "strings"

// Header names.
const (
	HeaderEnforce    = "Content-Security-Policy"
	HeaderReportOnly = "Content-Security-Policy-Report-Only"
)

// directiveOrder fixes the output order so the header is stable across builds.
var directiveOrder = []string{
	"default-src",
	"img-src",
	"style-src",
	"frame-ancestors",
	"base-uri",
	"form-action",
	"sandbox",
	"report-uri",
}

// Policy is a fluent Content-Security-Policy builder.
// It is not safe for concurrent mutation; build once and share the string.
type Policy struct {
	directives map[string][]string
	reportOnly bool
}

// New returns an empty policy.
func New() *Policy {
	return &Policy{directives: make(map[string][]string)}
}

func (p *Policy) set(directive string, sources []string) *Policy {
	p.directives[directive] = append([]string(nil), sources...)
	return p
}

// DefaultSrc sets default-src.
func (p *Policy) DefaultSrc(sources ...string) *Policy { return p.set("default-src", sources) }

// ImgSrc sets img-src.
func (p *Policy) ImgSrc(sources ...string) *Policy { return p.set("img-src", sources) }

// StyleSrc sets style-src.
func (p *Policy) StyleSrc(sources ...string) *Policy { return p.set("style-src", sources) }

// FrameAncestors sets frame-ancestors.
func (p *Policy) FrameAncestors(sources ...string) *Policy {
	return p.set("frame-ancestors", sources)
}

// BaseURI sets base-uri.
func (p *Policy) BaseURI(sources ...string) *Policy { return p.set("base-uri", sources) }

// FormAction sets form-action.
func (p *Policy) FormAction(sources ...string) *Policy { return p.set("form-action", sources) }

// Sandbox enables the sandbox directive with optional allow-* tokens.
func (p *Policy) Sandbox(tokens ...string) *Policy {
	p.directives["sandbox"] = append([]string{}, tokens...)
	return p
}

// ReportURI sets report-uri.
func (p *Policy) ReportURI(uri string) *Policy { return p.set("report-uri", []string{uri}) }

// ReportOnly switches the header to report-only mode.
func (p *Policy) ReportOnly(enabled bool) *Policy {
	p.reportOnly = enabled
	return p
}

// String renders the header value. Directives without sources are omitted,
// except sandbox which is meaningful on its own.
func (p *Policy) String() string {
	parts := make([]string, 0, len(p.directives))
	for _, d := range directiveOrder {
		sources, ok := p.directives[d]
		if !ok {
			continue
		}
		switch {
		case len(sources) > 0:
			parts = append(parts, d+" "+strings.Join(sources, " "))
		case d == "sandbox":
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, "; ")
}

// HeaderName returns the header the policy must be sent under.
func (p *Policy) HeaderName() string {
	if p.reportOnly {
		return HeaderReportOnly
	}
	return HeaderEnforce
}

// FeedPolicy forbids scripts, plugins and framing. Images and inline styles
// from upstream content still render.
func FeedPolicy() *Policy {
	return New().
		DefaultSrc("'none'").
		ImgSrc("https:", "data:").
		StyleSrc("'unsafe-inline'").
		FrameAncestors("'none'").
		BaseURI("'none'").
		FormAction("'none'").
		Sandbox()
}
