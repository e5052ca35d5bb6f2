package score

import (
	"math"
	"sort"

	"github.com/nao1215/pixelscan/internal/config"
	"github.com/nao1215/pixelscan/internal/model"
)

// MaxScore is the score of a page with no detections.
const MaxScore = 100

// Score computes the privacy assessment for detections.
//
// The score starts at MaxScore. Each detection subtracts the weight for its
// kind, and high or critical detections also subtract HighRiskBonus. The
// result is rounded and clamped to [0, MaxScore]. The tier comes from
// thresholds, with two overrides: a page carrying any high-risk detection
// is never rated lower than RiskMedium, and any critical detection forces
// RiskCritical.
func Score(detections []model.TrackerDetection, weights config.ScoringWeights, thresholds config.RiskThresholds) model.PrivacyAssessment {
	var (
		penalty    float64
		gdpr, ccpa int
		critical   bool
		categories = make(map[string]struct{})
		highRisk   = make(map[string]struct{})
	)

	for _, d := range detections {
		penalty += Weight(d, weights)
		if d.RiskLevel.IsHighOrAbove() {
			penalty += weights.HighRiskBonus
			highRisk[d.Domain] = struct{}{}
		}
		if d.RiskLevel == model.RiskCritical {
			critical = true
		}
		if d.GDPRRelevant {
			gdpr++
		}
		if d.CCPARelevant {
			ccpa++
		}
		if d.Category != "" {
			categories[d.Category] = struct{}{}
		}
	}

	score := clamp(MaxScore - penalty)
	level := Tier(score, thresholds)
	if len(highRisk) > 0 && level == model.RiskLow {
		level = model.RiskMedium
	}
	if critical {
		level = model.RiskCritical
	}

	a := model.PrivacyAssessment{
		Score:           score,
		RiskLevel:       level,
		GDPRCount:       gdpr,
		CCPACount:       ccpa,
		Categories:      sortedKeys(categories),
		HighRiskDomains: sortedKeys(highRisk),
	}
	a.Recommendations = Recommendations(a.Categories, a.HighRiskDomains)
	return a
}

// Weight returns the kind-specific penalty for d, without the high-risk
// bonus. Scripts are weighted by whether they were external or inline.
func Weight(d model.TrackerDetection, w config.ScoringWeights) float64 {
	switch d.Kind {
	case model.KindPixel:
		return w.Pixel
	case model.KindScript:
		if d.Method == model.MethodExternalScript {
			return w.ExternalScript
		}
		return w.InlineScript
	case model.KindMetaTag:
		return w.MetaTag
	case model.KindCSSBackground:
		return w.CSSBackground
	default:
		return 0
	}
}

// Tier maps a score to a risk level: at or above Low is low, at or above
// Medium is medium, at or above High is high, and anything below is
// critical.
func Tier(score int, t config.RiskThresholds) model.RiskLevel {
	switch {
	case score >= t.Low:
		return model.RiskLow
	case score >= t.Medium:
		return model.RiskMedium
	case score >= t.High:
		return model.RiskHigh
	default:
		return model.RiskCritical
	}
}

func clamp(raw float64) int {
	switch {
	case math.IsNaN(raw), raw <= 0:
		return 0
	case raw >= MaxScore:
		return MaxScore
	default:
		return int(math.Round(raw))
	}
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
