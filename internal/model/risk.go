package model

import (
	"fmt"
	"strings"
)

// RiskLevel represents how invasive a tracker is for the visitor's privacy.
//
// The ordering of the constants is significant: a larger value is always a
// higher risk, so levels can be compared with < and >.
type RiskLevel int

const (
	// RiskLow indicates first-party or performance tooling with little
	// cross-site reach. Example: New Relic browser agent.
	RiskLow RiskLevel = iota

	// RiskMedium indicates analytics that profile visitors on a single site.
	// Unknown domains are assigned this level as a conservative default.
	RiskMedium

	// RiskHigh indicates advertising and social networks that correlate
	// visitors across sites. Example: DoubleClick, Meta Pixel.
	RiskHigh

	// RiskCritical indicates techniques that identify a browser without
	// consent, such as canvas or WebRTC fingerprinting.
	RiskCritical
)

// String returns the lower-case name of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// IsHighOrAbove reports whether the level is high or critical.
func (r RiskLevel) IsHighOrAbove() bool {
	return r >= RiskHigh
}

// MarshalText implements encoding.TextMarshaler.
func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RiskLevel) UnmarshalText(text []byte) error {
	level, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*r = level
	return nil
}

// ParseRiskLevel converts a name such as "high" into a RiskLevel.
// Matching is case-insensitive.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	case "critical":
		return RiskCritical, nil
	default:
		return RiskMedium, fmt.Errorf("%w: %q", ErrUnknownRiskLevel, s)
	}
}
