package detect

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/pixelscan/internal/model"
)

// nonScriptTypes are <script type> values that carry data, not code.
var nonScriptTypes = map[string]bool{
	"application/ld+json": true,
	"application/json":    true,
	"text/template":       true,
	"text/x-template":     true,
	"importmap":           true,
}

// ScriptDetector flags external tracker scripts and inline tracking code.
type ScriptDetector struct{}

func (ScriptDetector) sealed() {}

// Kind implements Detector.
func (ScriptDetector) Kind() model.TrackerKind { return model.KindScript }

// Detect implements Detector.
func (d ScriptDetector) Detect(page *Page) []Finding {
	var findings []Finding
	page.Doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if nonScriptTypes[strings.ToLower(strings.TrimSpace(s.AttrOr("type", "")))] {
			return
		}
		if src, ok := s.Attr("src"); ok {
			if f, ok := d.external(page, src); ok {
				findings = append(findings, f)
			}
			return
		}
		findings = append(findings, d.inline(page, s.Text())...)
	})
	return findings
}

func (ScriptDetector) external(page *Page, src string) (Finding, bool) {
	u := page.Resolve(src)
	if u == nil {
		return Finding{}, false
	}
	host := hostOf(u)
	if !page.Known(host) && !hasScriptURLHeuristic(u) {
		return Finding{}, false
	}
	return Finding{
		Kind:      model.KindScript,
		Domain:    host,
		SourceURL: u.String(),
		Method:    model.MethodExternalScript,
	}, true
}

// inline matches one script body against the SDK signatures, the
// fingerprinting signatures and the generic heuristics. Each signature
// contributes at most one finding.
func (ScriptDetector) inline(page *Page, body string) []Finding {
	if strings.TrimSpace(body) == "" {
		return nil
	}

	var findings []Finding
	for _, sig := range sdkSignatures {
		if sig.pattern.MatchString(body) {
			findings = append(findings, Finding{
				Kind:   model.KindScript,
				Domain: sig.domain,
				Method: model.MethodInlineScript,
			})
		}
	}

	if page.Host == "" {
		return findings
	}
	if fingerprintSignature.MatchString(body) {
		findings = append(findings, Finding{
			Kind:     model.KindScript,
			Domain:   page.Host,
			Method:   model.MethodFingerprinting,
			Override: fingerprintRecord(page.Host),
		})
	}
	if len(findings) == 0 && genericScriptSignature.MatchString(body) {
		findings = append(findings, Finding{
			Kind:   model.KindScript,
			Domain: page.Host,
			Method: model.MethodInlineScript,
		})
	}
	return findings
}
