package score

import (
	"context"

	"github.com/nao1215/pixelscan/internal/config"
	"github.com/nao1215/pixelscan/internal/model"
)

// Analyzer turns the detections of one page into an assessment.
// Implementations must be safe for concurrent use.
type Analyzer interface {
	// Name identifies the analyzer in logs.
	Name() string

	// Analyze scores detections. It must not modify them.
	Analyze(ctx context.Context, detections []model.TrackerDetection) (model.PrivacyAssessment, error)
}

// PrivacyScorer is the default, deterministic Analyzer.
type PrivacyScorer struct {
	Weights    config.ScoringWeights
	Thresholds config.RiskThresholds
}

// NewPrivacyScorer returns a scorer using the weights and thresholds of cfg.
func NewPrivacyScorer(cfg config.ScanConfig) *PrivacyScorer {
	return &PrivacyScorer{Weights: cfg.Weights, Thresholds: cfg.Thresholds}
}

// Name implements Analyzer.
func (s *PrivacyScorer) Name() string { return "privacy-scorer" }

// Analyze implements Analyzer. It never returns an error.
func (s *PrivacyScorer) Analyze(_ context.Context, detections []model.TrackerDetection) (model.PrivacyAssessment, error) {
	return Score(detections, s.Weights, s.Thresholds), nil
}
