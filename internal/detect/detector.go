package detect

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/pixelscan/internal/model"
	"github.com/nao1215/pixelscan/internal/registry"
)

// Finding is one raw piece of tracker evidence before registry resolution.
type Finding struct {
	Kind      model.TrackerKind
	Domain    string
	SourceURL string
	Method    string

	// Override replaces the registry classification when set. Fingerprinting
	// signatures use it because their domain is the page itself.
	Override *model.DomainRecord
}

// Detector inspects a parsed page for one kind of tracker.
// The set of implementations is closed; see DefaultRuleSet.
type Detector interface {
	Kind() model.TrackerKind
	Detect(page *Page) []Finding

	sealed()
}

// RuleSet is an ordered list of detectors. Every detector runs
// independently; none sees another's output.
type RuleSet []Detector

// DefaultRuleSet returns one detector per tracker kind.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		PixelDetector{},
		ScriptDetector{},
		MetaDetector{},
		CSSDetector{},
	}
}

// Kinds lists the kinds covered by the rule set, in order.
func (rs RuleSet) Kinds() []model.TrackerKind {
	kinds := make([]model.TrackerKind, 0, len(rs))
	for _, d := range rs {
		kinds = append(kinds, d.Kind())
	}
	return kinds
}

// Page is the read-only view of a document shared by all detectors.
type Page struct {
	Doc *goquery.Document

	// Base resolves relative references. It is nil when the page URL
	// could not be parsed, in which case relative references are skipped.
	Base *url.URL

	// Host is the normalized host of the page URL.
	Host string

	registry *registry.Registry
}

// NewPage wraps doc for detection. A <base href> in the document takes
// precedence over pageURL for resolving relative references.
func NewPage(doc *goquery.Document, pageURL string, reg *registry.Registry) *Page {
	p := &Page{Doc: doc, registry: reg}
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		p.Base = u
		p.Host = registry.Normalize(u.Hostname())
	}
	if doc != nil && p.Base != nil {
		if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
			if b, err := p.Base.Parse(strings.TrimSpace(href)); err == nil {
				p.Base = b
			}
		}
	}
	return p
}

// Known reports whether domain, or one of its parents, is in the registry.
func (p *Page) Known(domain string) bool {
	if p.registry == nil || domain == "" {
		return false
	}
	_, ok := p.registry.Lookup(domain)
	return ok
}

// Resolve turns ref into an absolute http(s) URL. It returns nil for empty
// references, unsupported schemes such as javascript: and data:, and
// relative references when the page has no base.
func (p *Page) Resolve(ref string) *url.URL {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil
	}
	if !u.IsAbs() || u.Host == "" {
		if p.Base == nil {
			return nil
		}
		u = p.Base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	return u
}

// hostOf returns the normalized host of u.
func hostOf(u *url.URL) string {
	if u == nil {
		return ""
	}
	return registry.Normalize(u.Hostname())
}
