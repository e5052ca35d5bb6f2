package detect

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif" // register decoders for data URI sniffing
	_ "image/png"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/pixelscan/internal/model"
)

// maxPixelDataURILen is the length below which an inline image is assumed
// to be a tracking pixel even when its dimensions cannot be decoded.
const maxPixelDataURILen = 200

// PixelDetector flags images and iframes that act as tracking pixels.
// Any one of these is sufficient: 0/1-pixel dimensions, a tiny inline
// data: image, a tracking path in the URL, or a source on a known tracker
// domain. Elements inside <noscript> are checked the same way.
type PixelDetector struct{}

func (PixelDetector) sealed() {}

// Kind implements Detector.
func (PixelDetector) Kind() model.TrackerKind { return model.KindPixel }

// Detect implements Detector.
func (d PixelDetector) Detect(page *Page) []Finding {
	var findings []Finding
	page.Doc.Find("img, iframe").Each(func(_ int, s *goquery.Selection) {
		if f, ok := d.inspect(page, s, false); ok {
			findings = append(findings, f)
		}
	})

	// The HTML parser keeps <noscript> content as raw text, so parse it
	// separately.
	page.Doc.Find("noscript").Each(func(_ int, ns *goquery.Selection) {
		inner := ns.Text()
		if !strings.Contains(strings.ToLower(inner), "<img") && !strings.Contains(strings.ToLower(inner), "<iframe") {
			return
		}
		frag, err := goquery.NewDocumentFromReader(strings.NewReader(inner))
		if err != nil {
			return
		}
		frag.Find("img, iframe").Each(func(_ int, s *goquery.Selection) {
			if f, ok := d.inspect(page, s, true); ok {
				findings = append(findings, f)
			}
		})
	})
	return findings
}

func (PixelDetector) inspect(page *Page, s *goquery.Selection, noscript bool) (Finding, bool) {
	raw := strings.TrimSpace(s.AttrOr("src", ""))
	if raw == "" {
		return Finding{}, false
	}

	tiny := hasTinyDimensions(s)

	if strings.HasPrefix(strings.ToLower(raw), "data:") {
		if !isPixelDataURI(raw, tiny) || page.Host == "" {
			return Finding{}, false
		}
		return Finding{Kind: model.KindPixel, Domain: page.Host, Method: model.MethodPixelBase64}, true
	}

	u := page.Resolve(raw)
	if u == nil {
		return Finding{}, false
	}
	host := hostOf(u)

	var method string
	switch {
	case tiny:
		method = model.MethodPixelDimensions
	case hasTrackingPath(u):
		method = model.MethodPixelPath
	case host != page.Host && page.Known(host):
		method = model.MethodPixelDomain
	default:
		return Finding{}, false
	}
	if noscript {
		method = model.MethodPixelNoscript
	}
	return Finding{Kind: model.KindPixel, Domain: host, SourceURL: u.String(), Method: method}, true
}

// hasTinyDimensions reports whether both width and height are 0 or 1
// pixels, taken from the attributes or, failing that, the inline style.
func hasTinyDimensions(s *goquery.Selection) bool {
	style := parseStyle(s.AttrOr("style", ""))
	w, okW := dimension(s.AttrOr("width", ""), style["width"])
	h, okH := dimension(s.AttrOr("height", ""), style["height"])
	return okW && okH && w <= 1 && h <= 1
}

func dimension(attr, style string) (int, bool) {
	for _, v := range []string{attr, style} {
		v = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(v)), "px")
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}

// parseStyle splits an inline style attribute into lower-cased properties.
func parseStyle(style string) map[string]string {
	props := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		props[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return props
}

// isPixelDataURI reports whether a data: URI holds a 1x1 image. When the
// payload cannot be decoded, short images count as pixels.
func isPixelDataURI(raw string, tiny bool) bool {
	header, payload, ok := strings.Cut(raw, ",")
	if !ok {
		return false
	}
	header = strings.ToLower(header)
	if !strings.HasPrefix(header, "data:image/") {
		return false
	}
	if tiny {
		return true
	}
	if strings.HasSuffix(header, ";base64") {
		if data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload)); err == nil {
			if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
				return cfg.Width <= 1 && cfg.Height <= 1
			}
		}
	}
	return len(raw) < maxPixelDataURILen
}
