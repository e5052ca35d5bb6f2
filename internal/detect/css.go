package detect

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/pixelscan/internal/model"
)

var backgroundImageURL = regexp.MustCompile(`(?i)background(?:-image)?\s*:[^;{}]*?url\(\s*["']?([^"')]+)["']?\s*\)`)

// CSSDetector flags background images loaded from tracker domains or
// tracking endpoints, in <style> blocks and inline style attributes.
type CSSDetector struct{}

func (CSSDetector) sealed() {}

// Kind implements Detector.
func (CSSDetector) Kind() model.TrackerKind { return model.KindCSSBackground }

// Detect implements Detector.
func (d CSSDetector) Detect(page *Page) []Finding {
	var findings []Finding
	page.Doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		findings = append(findings, d.scan(page, s.Text(), model.MethodStyleTag)...)
	})
	page.Doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		findings = append(findings, d.scan(page, s.AttrOr("style", ""), model.MethodInlineStyle)...)
	})
	return findings
}

func (CSSDetector) scan(page *Page, css, method string) []Finding {
	var findings []Finding
	for _, m := range backgroundImageURL.FindAllStringSubmatch(css, -1) {
		ref := strings.TrimSpace(m[1])
		if strings.HasPrefix(strings.ToLower(ref), "data:") {
			continue
		}
		u := page.Resolve(ref)
		if u == nil {
			continue
		}
		host := hostOf(u)
		if !page.Known(host) && !hasTrackingPath(u) {
			continue
		}
		findings = append(findings, Finding{
			Kind:      model.KindCSSBackground,
			Domain:    host,
			SourceURL: u.String(),
			Method:    method,
		})
	}
	return findings
}
