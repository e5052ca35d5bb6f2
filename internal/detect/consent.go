package detect

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/pixelscan/internal/model"
)

type cmpPattern struct {
	name string
	re   *regexp.Regexp
}

// consentPlatforms match the loader scripts and globals of consent
// management platforms anywhere in the raw page.
var consentPlatforms = []cmpPattern{
	{"cookiebot", regexp.MustCompile(`(?i)cookiebot`)},
	{"cookiepro", regexp.MustCompile(`(?i)cookiepro`)},
	{"didomi", regexp.MustCompile(`(?i)didomi`)},
	{"onetrust", regexp.MustCompile(`(?i)onetrust|cdn\.cookielaw\.org`)},
	{"quantcast_choice", regexp.MustCompile(`(?i)quantcast\.mgr\.consensu\.org|cmp\.quantcast\.com`)},
	{"trustarc", regexp.MustCompile(`(?i)trustarc|consent\.truste\.com`)},
	{"usercentrics", regexp.MustCompile(`(?i)usercentrics`)},
}

var (
	bannerText     = regexp.MustCompile(`(?is)cookie.{0,20}consent|accept.{0,20}cookies|gdpr.{0,20}consent|we use cookies`)
	withdrawalText = regexp.MustCompile(`(?is)withdraw.{0,20}consent|opt.{0,3}out|unsubscribe|manage.{0,20}preferences|privacy.{0,20}settings|do not sell`)
	privacyPolicy  = regexp.MustCompile(`(?is)privacy.{0,20}(?:policy|notice)|data.{0,20}protection|/privacy\b`)
	cookiePolicy   = regexp.MustCompile(`(?is)cookie.{0,20}(?:policy|notice)|/cookies\b`)
)

// CheckConsent looks for consent banners, consent management platforms,
// opt-out mechanisms and links to privacy and cookie policies. Text
// patterns are matched against the visible text and link targets, so
// script source alone never counts as a banner or a policy.
func CheckConsent(content []byte) model.ConsentCheck {
	var check model.ConsentCheck
	for _, p := range consentPlatforms {
		if p.re.Match(content) {
			check.Platforms = append(check.Platforms, p.name)
		}
	}

	text := visibleText(content)
	check.Banner = bannerText.MatchString(text)
	check.Withdrawal = withdrawalText.MatchString(text)
	check.PrivacyPolicy = privacyPolicy.MatchString(text)
	check.CookiePolicy = cookiePolicy.MatchString(text)
	return check
}

// visibleText returns the document text without scripts and styles,
// followed by every link target. Unparseable content is returned as is.
func visibleText(content []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return string(content)
	}
	doc.Find("script, style, noscript, template").Remove()

	var sb strings.Builder
	sb.WriteString(doc.Text())
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		sb.WriteByte('\n')
		sb.WriteString(s.AttrOr("href", ""))
	})
	return sb.String()
}
