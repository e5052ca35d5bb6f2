package score

import (
	"slices"

	"github.com/nao1215/pixelscan/internal/model"
)

// Recommendations returns privacy advice for the given sorted categories
// and high-risk domains.
func Recommendations(categories, highRiskDomains []string) []string {
	var recs []string

	if slices.Contains(categories, model.CategoryAdvertising) {
		recs = append(recs,
			"Consider using ad blockers or privacy-focused browsers",
			"Review and adjust ad personalization settings",
		)
	}
	if slices.Contains(categories, model.CategorySocialMedia) || slices.Contains(categories, model.CategorySocialAdvertising) {
		recs = append(recs,
			"Disable social media tracking in browser settings",
			"Use privacy extensions to block social media trackers",
		)
	}
	if len(highRiskDomains) > 0 {
		recs = append(recs, "High-risk tracking domains detected - consider VPN usage")
	}
	if slices.Contains(categories, model.CategoryAnalytics) {
		recs = append(recs, "Analytics tracking detected - consider opting out if possible")
	}
	if slices.Contains(categories, model.CategoryPrivacyInvasion) {
		recs = append(recs, "Browser fingerprinting detected - use a browser with fingerprinting protection")
	}

	if len(recs) == 0 {
		recs = append(recs, "Minimal tracking detected - privacy impact is low")
	}
	return recs
}
