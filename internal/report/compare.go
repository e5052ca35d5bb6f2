package report

import (
	"cmp"
	"slices"

	"github.com/nao1215/pixelscan/internal/model"
)

// Comparison is the difference between two scans of the same URL.
type Comparison struct {
	URL string `json:"url"`

	PreviousID int64 `json:"previous_id,omitempty"`
	CurrentID  int64 `json:"current_id,omitempty"`

	Previous *model.ScanResult `json:"previous"`
	Current  *model.ScanResult `json:"current"`

	// Added are detections present now but not before; Removed the reverse.
	// Detections are matched on kind and domain.
	Added   []model.TrackerDetection `json:"added"`
	Removed []model.TrackerDetection `json:"removed"`

	// ScoreDelta is current minus previous. Positive means more private.
	ScoreDelta int `json:"score_delta"`

	PreviousRisk model.RiskLevel `json:"previous_risk"`
	CurrentRisk  model.RiskLevel `json:"current_risk"`
}

type trackerKey struct {
	kind   model.TrackerKind
	domain string
}

// Compare diffs two results. Either may lack an assessment, in which case
// its score counts as zero.
func Compare(previous, current *model.ScanResult) *Comparison {
	c := &Comparison{
		URL:      current.URL,
		Previous: previous,
		Current:  current,
		Added:    make([]model.TrackerDetection, 0),
		Removed:  make([]model.TrackerDetection, 0),
	}

	before := index(previous.Detections)
	after := index(current.Detections)
	for k, d := range after {
		if _, ok := before[k]; !ok {
			c.Added = append(c.Added, d)
		}
	}
	for k, d := range before {
		if _, ok := after[k]; !ok {
			c.Removed = append(c.Removed, d)
		}
	}
	sortDetections(c.Added)
	sortDetections(c.Removed)

	var prevScore, curScore int
	if previous.Assessment != nil {
		prevScore = previous.Assessment.Score
		c.PreviousRisk = previous.Assessment.RiskLevel
	}
	if current.Assessment != nil {
		curScore = current.Assessment.Score
		c.CurrentRisk = current.Assessment.RiskLevel
	}
	c.ScoreDelta = curScore - prevScore
	return c
}

// HasChanges reports whether trackers or the score changed.
func (c *Comparison) HasChanges() bool {
	return len(c.Added) > 0 || len(c.Removed) > 0 || c.ScoreDelta != 0
}

func index(dets []model.TrackerDetection) map[trackerKey]model.TrackerDetection {
	m := make(map[trackerKey]model.TrackerDetection, len(dets))
	for _, d := range dets {
		k := trackerKey{kind: d.Kind, domain: d.Domain}
		if _, ok := m[k]; !ok {
			m[k] = d
		}
	}
	return m
}

func sortDetections(dets []model.TrackerDetection) {
	slices.SortFunc(dets, func(a, b model.TrackerDetection) int {
		if c := cmp.Compare(b.RiskLevel, a.RiskLevel); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Domain, b.Domain); c != 0 {
			return c
		}
		return cmp.Compare(a.Kind, b.Kind)
	})
}
