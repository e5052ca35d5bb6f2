package detect

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/pixelscan/internal/model"
)

// MetaDetector flags site-verification tags and social sharing properties.
type MetaDetector struct{}

func (MetaDetector) sealed() {}

// Kind implements Detector.
func (MetaDetector) Kind() model.TrackerKind { return model.KindMetaTag }

// Detect implements Detector.
func (MetaDetector) Detect(page *Page) []Finding {
	var findings []Finding
	page.Doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(s.AttrOr("name", "")))
		property := strings.ToLower(strings.TrimSpace(s.AttrOr("property", "")))

		for _, key := range []string{name, property} {
			if domain, ok := verificationMeta[key]; ok {
				findings = append(findings, Finding{
					Kind:   model.KindMetaTag,
					Domain: domain,
					Method: model.MethodVerificationMeta,
				})
				return
			}
		}

		for _, key := range []string{property, name} {
			for _, p := range socialMetaPrefixes {
				if strings.HasPrefix(key, p.prefix) {
					findings = append(findings, Finding{
						Kind:   model.KindMetaTag,
						Domain: p.domain,
						Method: model.MethodSocialMeta,
					})
					return
				}
			}
		}
	})
	return findings
}
