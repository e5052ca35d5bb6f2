package config

import (
	"maps"
	"math"
	"time"
)

// Scan defaults: one request per second, ten concurrent requests and
// three retries.
const (
	DefaultConcurrencyLimit = 10
	DefaultRateLimitDelay   = 1 * time.Second
	DefaultRequestTimeout   = 30 * time.Second
	DefaultMaxRetries       = 3
	DefaultRetryBackoffBase = 1 * time.Second

	// MaxRetryBackoff caps the exponential backoff between attempts.
	MaxRetryBackoff = 30 * time.Second
)

// ScoringWeights are the per-kind penalties subtracted from a page's score.
// Scripts are split into external and inline because an external tracker
// script is far more invasive than a snippet that merely calls one.
type ScoringWeights struct {
	Pixel          float64 `yaml:"pixel" json:"pixel"`
	ExternalScript float64 `yaml:"external_script" json:"external_script"`
	InlineScript   float64 `yaml:"inline_script" json:"inline_script"`
	MetaTag        float64 `yaml:"meta_tag" json:"meta_tag"`
	CSSBackground  float64 `yaml:"css_background" json:"css_background"`

	// HighRiskBonus is added for each detection rated high or critical.
	HighRiskBonus float64 `yaml:"high_risk_bonus" json:"high_risk_bonus"`
}

// DefaultScoringWeights returns pixel=5, external script=8, inline script=3,
// high-risk bonus=10. Meta tags and CSS beacons get small penalties of their own.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Pixel:          5,
		ExternalScript: 8,
		InlineScript:   3,
		MetaTag:        1,
		CSSBackground:  5,
		HighRiskBonus:  10,
	}
}

func (w ScoringWeights) validate() error {
	for _, v := range []float64{w.Pixel, w.ExternalScript, w.InlineScript, w.MetaTag, w.CSSBackground, w.HighRiskBonus} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid("scoring_weights", ErrNegativeWeight)
		}
	}
	return nil
}

// RiskThresholds are the score cut-points between risk tiers.
// A score at or above Low is low risk, at or above Medium is medium risk,
// at or above High is high risk, and anything below High is critical.
type RiskThresholds struct {
	High   int `yaml:"high" json:"high"`
	Medium int `yaml:"medium" json:"medium"`
	Low    int `yaml:"low" json:"low"`
}

// DefaultRiskThresholds returns {high: 20, medium: 50, low: 80}.
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{High: 20, Medium: 50, Low: 80}
}

func (t RiskThresholds) validate() error {
	for _, v := range []int{t.High, t.Medium, t.Low} {
		if v < 0 || v > 100 {
			return invalid("risk_thresholds", ErrThresholdOutOfRange)
		}
	}
	if !(t.High < t.Medium && t.Medium < t.Low) {
		return invalid("risk_thresholds", ErrThresholdsNotAscending)
	}
	return nil
}

// ScanConfig holds the batch-level options consumed by the orchestrator.
// It is copied when a batch starts and never mutated while scanning.
type ScanConfig struct {
	// ConcurrencyLimit is the maximum number of URLs in flight.
	ConcurrencyLimit int `yaml:"concurrency_limit"`

	// RateLimitDelay is the minimum spacing between dispatch starts,
	// independent of ConcurrencyLimit.
	RateLimitDelay time.Duration `yaml:"rate_limit_delay"`

	// RequestTimeout is the deadline of a single fetch attempt.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxRetries is the number of retries after a transient failure.
	// A URL is fetched at most MaxRetries+1 times.
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoffBase grows as base*2^attempt, capped at MaxRetryBackoff.
	RetryBackoffBase time.Duration `yaml:"retry_backoff_base"`

	Weights    ScoringWeights `yaml:"scoring_weights"`
	Thresholds RiskThresholds `yaml:"risk_thresholds"`

	// Headers are sent with every request in addition to the defaults.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// NewScanConfig returns a ScanConfig with default values.
func NewScanConfig() ScanConfig {
	return ScanConfig{
		ConcurrencyLimit: DefaultConcurrencyLimit,
		RateLimitDelay:   DefaultRateLimitDelay,
		RequestTimeout:   DefaultRequestTimeout,
		MaxRetries:       DefaultMaxRetries,
		RetryBackoffBase: DefaultRetryBackoffBase,
		Weights:          DefaultScoringWeights(),
		Thresholds:       DefaultRiskThresholds(),
	}
}

// Validate checks every option and returns a *ConfigurationError for the
// first invalid one.
func (c ScanConfig) Validate() error {
	if c.ConcurrencyLimit < 1 {
		return invalid("concurrency_limit", ErrInvalidConcurrency)
	}
	if c.RateLimitDelay < 0 {
		return invalid("rate_limit_delay", ErrInvalidRateLimitDelay)
	}
	if c.RequestTimeout <= 0 {
		return invalid("request_timeout", ErrInvalidTimeout)
	}
	if c.MaxRetries < 0 {
		return invalid("max_retries", ErrInvalidMaxRetries)
	}
	if c.RetryBackoffBase < 0 {
		return invalid("retry_backoff_base", ErrInvalidBackoff)
	}
	if err := c.Weights.validate(); err != nil {
		return err
	}
	return c.Thresholds.validate()
}

// Backoff returns the delay before retry number attempt (0-based):
// RetryBackoffBase * 2^attempt, capped at MaxRetryBackoff.
func (c ScanConfig) Backoff(attempt int) time.Duration {
	if c.RetryBackoffBase <= 0 {
		return 0
	}
	d := c.RetryBackoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= MaxRetryBackoff {
			return MaxRetryBackoff
		}
	}
	return min(d, MaxRetryBackoff)
}

// Clone returns a copy that shares no maps with c.
func (c ScanConfig) Clone() ScanConfig {
	c.Headers = maps.Clone(c.Headers)
	return c
}
