package model

// CategoryUnknown is assigned to domains the registry does not know.
const CategoryUnknown = "unknown"

// Tracker categories used by the built-in registry.
const (
	CategoryAnalytics           = "analytics"
	CategoryAdvertising         = "advertising"
	CategorySocialAdvertising   = "social_advertising"
	CategoryUserExperience      = "user_experience"
	CategoryOptimization        = "optimization"
	CategoryMarketingAutomation = "marketing_automation"
	CategoryPerformance         = "performance"
	CategoryPrivacyInvasion     = "privacy_invasion"
	CategoryECommerce           = "e_commerce"
	CategorySocialMedia         = "social_media"
	CategorySiteVerification    = "site_verification"
)

// DomainRecord is the registry entry for one tracker domain.
type DomainRecord struct {
	Domain       string    `json:"domain" yaml:"domain"`
	Company      string    `json:"company" yaml:"company"`
	Category     string    `json:"category" yaml:"category"`
	RiskLevel    RiskLevel `json:"risk_level" yaml:"risk_level"`
	GDPRRelevant bool      `json:"gdpr_relevant" yaml:"gdpr_relevant"`
	CCPARelevant bool      `json:"ccpa_relevant" yaml:"ccpa_relevant"`
}

// UnknownRecord returns the conservative record used when a domain cannot
// be resolved: category "unknown", medium risk, no regulatory flags.
func UnknownRecord(domain string) DomainRecord {
	return DomainRecord{
		Domain:    domain,
		Category:  CategoryUnknown,
		RiskLevel: RiskMedium,
	}
}

// TrackerDetection is one finalized piece of tracker evidence.
type TrackerDetection struct {
	Kind         TrackerKind `json:"kind"`
	Domain       string      `json:"domain"`
	SourceURL    string      `json:"source_url,omitempty"`
	Method       string      `json:"method"`
	Category     string      `json:"category,omitempty"`
	Company      string      `json:"company,omitempty"`
	RiskLevel    RiskLevel   `json:"risk_level"`
	GDPRRelevant bool        `json:"gdpr_relevant"`
	CCPARelevant bool        `json:"ccpa_relevant"`
}

// DetectionKey is the uniqueness key of a detection within one scan.
type DetectionKey struct {
	Kind      TrackerKind
	Domain    string
	SourceURL string
}

// Key returns the (kind, domain, source_url) uniqueness key.
func (d TrackerDetection) Key() DetectionKey {
	return DetectionKey{Kind: d.Kind, Domain: d.Domain, SourceURL: d.SourceURL}
}

// Apply copies the registry attributes of rec onto the detection.
func (d *TrackerDetection) Apply(rec DomainRecord) {
	d.Category = rec.Category
	d.Company = rec.Company
	d.RiskLevel = rec.RiskLevel
	d.GDPRRelevant = rec.GDPRRelevant
	d.CCPARelevant = rec.CCPARelevant
}

// TrackingID is an account or property identifier of a tracking service,
// such as a Google Analytics measurement ID. The same ID on two sites
// means they report to the same account.
type TrackingID struct {
	// Type names the service, e.g. "google_analytics_ga4".
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ConsentCheck records how a page asks for and documents consent. It is
// informational and never affects the privacy score.
type ConsentCheck struct {
	// Platforms are the consent management platforms loaded by the page,
	// e.g. "onetrust".
	Platforms []string `json:"platforms,omitempty"`

	// Banner is true when the page text asks to accept cookies.
	Banner bool `json:"banner"`

	// Withdrawal is true when the page offers an opt-out or a way to
	// manage preferences.
	Withdrawal bool `json:"withdrawal"`

	PrivacyPolicy bool `json:"privacy_policy"`
	CookiePolicy  bool `json:"cookie_policy"`
}

// HasMechanism reports whether any consent mechanism was found.
func (c ConsentCheck) HasMechanism() bool {
	return c.Banner || len(c.Platforms) > 0
}
