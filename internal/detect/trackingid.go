package detect

import (
	"cmp"
	"regexp"
	"slices"

	"github.com/nao1215/pixelscan/internal/model"
)

type idPattern struct {
	typ string
	re  *regexp.Regexp
}

// idPatterns match account IDs. When a pattern has a capture group, the
// first group is the ID.
var idPatterns = []idPattern{
	{"google_analytics_ua", regexp.MustCompile(`\bUA-\d{4,10}-\d{1,4}\b`)},
	{"google_analytics_ga4", regexp.MustCompile(`\bG-[A-Z0-9]{8,12}\b`)},
	{"google_tag_manager", regexp.MustCompile(`\bGTM-[A-Z0-9]{6,8}\b`)},
	{"google_ads", regexp.MustCompile(`\bAW-\d{9,11}\b`)},
	{"google_adsense", regexp.MustCompile(`\bca-pub-\d{16}\b`)},
	{"facebook_pixel", regexp.MustCompile(`fbq\s*\(\s*['"]init['"]\s*,\s*['"](\d{15,16})['"]`)},
	{"yandex_metrica", regexp.MustCompile(`\bym\s*\(\s*(\d{8,9})`)},
	{"matomo", regexp.MustCompile(`_paq\.push\s*\(\s*\[\s*['"]setSiteId['"]\s*,\s*['"]?(\d+)['"]?\s*\]`)},
	{"microsoft_clarity", regexp.MustCompile(`clarity\.ms/tag/([a-z0-9]{8,12})`)},
	{"hotjar", regexp.MustCompile(`\bhjid\s*:\s*(\d{6,8})`)},
	{"tiktok_pixel", regexp.MustCompile(`ttq\.load\s*\(\s*['"]([A-Z0-9]{20})['"]`)},
	{"linkedin_insight", regexp.MustCompile(`_linkedin_partner_id\s*=\s*['"]?(\d{5,8})`)},
}

// ExtractTrackingIDs returns the distinct tracking account IDs found in
// content, sorted by type and value.
func ExtractTrackingIDs(content string) []model.TrackingID {
	seen := make(map[model.TrackingID]struct{})
	var ids []model.TrackingID
	for _, p := range idPatterns {
		for _, m := range p.re.FindAllStringSubmatch(content, -1) {
			id := model.TrackingID{Type: p.typ, Value: m[0]}
			if len(m) > 1 && m[1] != "" {
				id.Value = m[1]
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b model.TrackingID) int {
		if c := cmp.Compare(a.Type, b.Type); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return ids
}
