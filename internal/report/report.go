package report

import (
	"cmp"
	"maps"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/pixelscan/internal/model"
)

// Report is a batch of scan results prepared for output.
type Report struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Summary     Summary             `json:"summary"`
	Results     []*model.ScanResult `json:"results"`
}

// Summary aggregates a batch.
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Cached    int `json:"cached"`

	// AverageScore is the mean score of completed results, or 0 when none
	// completed.
	AverageScore float64 `json:"average_score"`

	// RiskCounts counts completed results by overall risk level.
	RiskCounts map[string]int `json:"risk_counts"`

	// Categories counts detections by tracker category over all results.
	Categories map[string]int `json:"categories"`

	TotalDetections int `json:"total_detections"`
}

// NewReport builds a report. Results are sorted by URL so that output is
// stable regardless of completion order.
func NewReport(results []*model.ScanResult, now time.Time) *Report {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b *model.ScanResult) int {
		return cmp.Compare(a.URL, b.URL)
	})
	return &Report{
		GeneratedAt: now,
		Summary:     Summarize(sorted),
		Results:     sorted,
	}
}

// Summarize counts the results of a batch.
func Summarize(results []*model.ScanResult) Summary {
	s := Summary{
		Total:      len(results),
		RiskCounts: make(map[string]int),
		Categories: make(map[string]int),
	}

	var scoreSum int
	for _, r := range results {
		switch r.Status {
		case model.StatusCompleted:
			s.Completed++
		case model.StatusFailed:
			s.Failed++
		case model.StatusCancelled:
			s.Cancelled++
		}
		if r.Cached {
			s.Cached++
		}
		if r.Assessment != nil && r.Status == model.StatusCompleted {
			scoreSum += r.Assessment.Score
			s.RiskCounts[r.Assessment.RiskLevel.String()]++
		}
		for _, d := range r.Detections {
			cat := d.Category
			if cat == "" {
				cat = model.CategoryUnknown
			}
			s.Categories[cat]++
			s.TotalDetections++
		}
	}
	if s.Completed > 0 {
		s.AverageScore = float64(scoreSum) / float64(s.Completed)
	}
	return s
}

// SortedCategories returns category names by descending count, then name.
func (s Summary) SortedCategories() []string {
	names := slices.Collect(maps.Keys(s.Categories))
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(s.Categories[b], s.Categories[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return names
}

// CategoryTitle turns "social_advertising" into "Social Advertising".
func CategoryTitle(category string) string {
	if category == "" {
		category = model.CategoryUnknown
	}
	return cases.Title(language.English).String(strings.ReplaceAll(category, "_", " "))
}

// riskOrder lists levels from most to least severe.
var riskOrder = []model.RiskLevel{model.RiskCritical, model.RiskHigh, model.RiskMedium, model.RiskLow}

// truncateString truncates s to maxLen bytes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// consentSummary describes the consent mechanisms of a page in one line.
func consentSummary(c *model.ConsentCheck) string {
	if !c.HasMechanism() {
		return "none found"
	}
	var parts []string
	if len(c.Platforms) > 0 {
		parts = append(parts, strings.Join(c.Platforms, ", "))
	}
	if c.Banner {
		parts = append(parts, "cookie banner")
	}
	if c.Withdrawal {
		parts = append(parts, "opt-out offered")
	}
	return strings.Join(parts, "; ")
}
