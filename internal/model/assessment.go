package model

// PrivacyAssessment is the reduction of a page's detections into a score.
type PrivacyAssessment struct {
	// Score is in [0,100]; 100 means no tracking was found.
	Score int `json:"score"`

	// RiskLevel is the tier derived from Score and the configured
	// thresholds, promoted to critical by any critical detection.
	RiskLevel RiskLevel `json:"risk_level"`

	GDPRCount int `json:"gdpr_count"`
	CCPACount int `json:"ccpa_count"`

	// Categories is the sorted set of tracker categories seen on the page.
	Categories []string `json:"categories,omitempty"`

	// HighRiskDomains is the sorted set of domains rated high or critical.
	HighRiskDomains []string `json:"high_risk_domains,omitempty"`

	// Recommendations are human-readable suggestions for the visitor.
	Recommendations []string `json:"recommendations,omitempty"`
}
