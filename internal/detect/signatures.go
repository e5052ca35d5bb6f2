package detect

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/nao1215/pixelscan/internal/model"
)

// trackingPathSignatures mark a URL path as a tracking endpoint.
var trackingPathSignatures = []string{"collect", "track", "pixel", "beacon"}

// trackingQuerySignatures mark a query string as carrying tracking data.
var trackingQuerySignatures = []string{"utm_"}

// hasTrackingPath reports whether u looks like a tracking endpoint.
func hasTrackingPath(u *url.URL) bool {
	if u == nil {
		return false
	}
	path := strings.ToLower(u.EscapedPath())
	for _, sig := range trackingPathSignatures {
		if strings.Contains(path, sig) {
			return true
		}
	}
	query := strings.ToLower(u.RawQuery)
	for _, sig := range trackingQuerySignatures {
		if strings.Contains(query, sig) {
			return true
		}
	}
	return false
}

// scriptURLSignatures flag an external script URL from an unknown domain.
var scriptURLSignatures = []string{"utm_", "track", "pageview"}

func hasScriptURLHeuristic(u *url.URL) bool {
	if u == nil {
		return false
	}
	s := strings.ToLower(u.EscapedPath() + "?" + u.RawQuery)
	for _, sig := range scriptURLSignatures {
		if strings.Contains(s, sig) {
			return true
		}
	}
	return false
}

// sdkSignature ties an inline call pattern to the domain of the SDK that
// defines it.
type sdkSignature struct {
	name    string
	pattern *regexp.Regexp
	domain  string
}

// ident is the left boundary of a bare global call such as ga( or fbq(.
// It rejects member access (foo.ga) and longer identifiers (mega().
const ident = `(?:^|[^\w.$])`

var sdkSignatures = []sdkSignature{
	{"google-analytics", regexp.MustCompile(ident + `ga\s*\(|_gaq\.push|GoogleAnalyticsObject`), "google-analytics.com"},
	{"google-tag", regexp.MustCompile(ident + `gtag\s*\(|dataLayer\.push`), "googletagmanager.com"},
	{"facebook-pixel", regexp.MustCompile(ident + `fbq\s*\(|\b_fbq\b`), "connect.facebook.net"},
	{"mixpanel", regexp.MustCompile(`\bmixpanel\.`), "mixpanel.com"},
	{"segment", regexp.MustCompile(`\banalytics\.(?:track|page|identify)\s*\(`), "segment.com"},
	{"amplitude", regexp.MustCompile(`\bamplitude\.(?:getInstance|init|track|logEvent)`), "amplitude.com"},
	{"heap", regexp.MustCompile(`\bheap\.(?:load|track|identify)\s*\(`), "heap.io"},
	{"hotjar", regexp.MustCompile(ident + `hj\s*\(|_hjSettings`), "hotjar.com"},
	{"clarity", regexp.MustCompile(ident + `clarity\s*\(`), "clarity.ms"},
	{"pinterest-tag", regexp.MustCompile(ident + `pintrk\s*\(`), "ct.pinterest.com"},
	{"snap-pixel", regexp.MustCompile(ident + `snaptr\s*\(`), "tr.snapchat.com"},
	{"tiktok-pixel", regexp.MustCompile(`\bttq\.(?:load|page|track|identify)`), "analytics.tiktok.com"},
	{"linkedin-insight", regexp.MustCompile(`_linkedin_partner_id|_linkedin_data_partner_ids`), "snap.licdn.com"},
	{"twitter-pixel", regexp.MustCompile(ident + `twq\s*\(`), "ads-twitter.com"},
	{"hubspot", regexp.MustCompile(`\b_hsq\.push`), "hs-analytics.net"},
	{"klaviyo", regexp.MustCompile(`\b_learnq\.push`), "klaviyo.com"},
}

// genericScriptSignature catches hand-rolled tracking code. Matches are
// attributed to the page's own host.
var genericScriptSignature = regexp.MustCompile(`(?i)utm_|\btrack\s*\(|pageview`)

// fingerprintSignature matches browser fingerprinting APIs.
var fingerprintSignature = regexp.MustCompile(
	`\.toDataURL\s*\(|\.getImageData\s*\(|RTCPeerConnection|(?:Offline)?AudioContext\s*\(|navigator\.plugins`,
)

// fingerprintRecord classifies fingerprinting on domain.
func fingerprintRecord(domain string) *model.DomainRecord {
	return &model.DomainRecord{
		Domain:       domain,
		Company:      "Browser fingerprinting",
		Category:     model.CategoryPrivacyInvasion,
		RiskLevel:    model.RiskCritical,
		GDPRRelevant: true,
		CCPARelevant: true,
	}
}

// verificationMeta maps site-verification meta names to the service that
// issued them.
var verificationMeta = map[string]string{
	"google-site-verification":     "google.com",
	"facebook-domain-verification": "facebook.com",
	"msvalidate.01":                "bing.com",
	"pinterest-site-verification":  "pinterest.com",
	"yandex-verification":          "yandex.ru",
	"baidu-site-verification":      "baidu.com",
}

// socialMetaPrefixes maps social meta property prefixes to their domain.
var socialMetaPrefixes = []struct {
	prefix string
	domain string
}{
	{"og:", "ogp.me"},
	{"twitter:", "twitter.com"},
	{"fb:", "facebook.com"},
}
