package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ScanStatus is the lifecycle state of a ScanResult.
//
// The only legal paths are pending → running → {completed, failed, cancelled}
// and pending → cancelled for URLs that were never dispatched.
type ScanStatus int

const (
	// StatusPending means the URL is queued and has not been dispatched.
	StatusPending ScanStatus = iota
	// StatusRunning means the URL's pipeline is executing.
	StatusRunning
	// StatusCompleted means detection and scoring finished.
	StatusCompleted
	// StatusFailed means the fetch failed; Error explains why.
	StatusFailed
	// StatusCancelled means the batch was cancelled before the URL finished.
	StatusCancelled
)

// String returns the lower-case name of the status.
func (s ScanStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is possible.
func (s ScanStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// MarshalText implements encoding.TextMarshaler.
func (s ScanStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ScanStatus) UnmarshalText(text []byte) error {
	status, err := ParseScanStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// ParseScanStatus converts a name such as "failed" into a ScanStatus.
func ParseScanStatus(name string) (ScanStatus, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pending":
		return StatusPending, nil
	case "running":
		return StatusRunning, nil
	case "completed":
		return StatusCompleted, nil
	case "failed":
		return StatusFailed, nil
	case "cancelled":
		return StatusCancelled, nil
	default:
		return StatusPending, fmt.Errorf("%w: %q", ErrUnknownStatus, name)
	}
}

// canTransition reports whether from → to is a legal lifecycle edge.
func canTransition(from, to ScanStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusCancelled
	case StatusRunning:
		return to.IsTerminal()
	default:
		return false
	}
}

// ScanResult is the record emitted for each scanned URL.
type ScanResult struct {
	URL         string        `json:"url"`
	Status      ScanStatus    `json:"status"`
	StartedAt   time.Time     `json:"started_at,omitzero"`
	CompletedAt time.Time     `json:"completed_at,omitzero"`
	Duration    time.Duration `json:"duration"`

	// Detections are in detection order. Order carries no meaning.
	Detections []TrackerDetection `json:"detections"`

	Assessment *PrivacyAssessment `json:"assessment,omitempty"`
	Error      *ScanError         `json:"error,omitempty"`
	Warnings   []ParseWarning     `json:"warnings,omitempty"`

	// Attempts is the number of fetches made for this URL.
	Attempts int `json:"attempts"`

	FinalURL    string `json:"final_url,omitempty"`
	StatusCode  int    `json:"status_code,omitempty"`
	ContentHash string `json:"content_hash,omitempty"`

	// TrackingIDs are the analytics and advertising account IDs embedded
	// in the page.
	TrackingIDs []TrackingID `json:"tracking_ids,omitempty"`

	// Consent is set for completed scans.
	Consent *ConsentCheck `json:"consent,omitempty"`

	// Cached is true when the result was served from the result cache.
	Cached bool `json:"cached,omitempty"`
}

// NewScanResult returns a pending result for rawURL.
func NewScanResult(rawURL string) *ScanResult {
	return &ScanResult{
		URL:        rawURL,
		Status:     StatusPending,
		Detections: make([]TrackerDetection, 0),
	}
}

func (r *ScanResult) transition(to ScanStatus) error {
	if !canTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	r.Status = to
	return nil
}

func (r *ScanResult) finish(to ScanStatus, now time.Time) error {
	if err := r.transition(to); err != nil {
		return err
	}
	r.CompletedAt = now
	if !r.StartedAt.IsZero() {
		r.Duration = now.Sub(r.StartedAt)
	}
	return nil
}

// Start moves a pending result to running.
func (r *ScanResult) Start(now time.Time) error {
	if err := r.transition(StatusRunning); err != nil {
		return err
	}
	r.StartedAt = now
	return nil
}

// Complete moves a running result to completed.
func (r *ScanResult) Complete(now time.Time, detections []TrackerDetection, assessment PrivacyAssessment) error {
	if err := r.finish(StatusCompleted, now); err != nil {
		return err
	}
	if detections == nil {
		detections = make([]TrackerDetection, 0)
	}
	r.Detections = detections
	r.Assessment = &assessment
	return nil
}

// Fail moves a running result to failed and records scanErr.
func (r *ScanResult) Fail(now time.Time, scanErr *ScanError) error {
	if err := r.finish(StatusFailed, now); err != nil {
		return err
	}
	r.Error = scanErr
	return nil
}

// Cancel moves a pending or running result to cancelled.
func (r *ScanResult) Cancel(now time.Time) error {
	return r.finish(StatusCancelled, now)
}

// Host returns the lower-cased host of the scanned URL, or an empty string
// if the URL does not parse.
func (r *ScanResult) Host() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Clone returns a deep copy that is safe to hand to another goroutine.
func (r *ScanResult) Clone() *ScanResult {
	c := *r
	c.Detections = append(make([]TrackerDetection, 0, len(r.Detections)), r.Detections...)
	c.Warnings = append([]ParseWarning(nil), r.Warnings...)
	c.TrackingIDs = append([]TrackingID(nil), r.TrackingIDs...)
	if r.Consent != nil {
		cc := *r.Consent
		cc.Platforms = append([]string(nil), r.Consent.Platforms...)
		c.Consent = &cc
	}
	if r.Assessment != nil {
		a := *r.Assessment
		a.Categories = append([]string(nil), r.Assessment.Categories...)
		a.HighRiskDomains = append([]string(nil), r.Assessment.HighRiskDomains...)
		a.Recommendations = append([]string(nil), r.Assessment.Recommendations...)
		c.Assessment = &a
	}
	if r.Error != nil {
		e := *r.Error
		c.Error = &e
	}
	return &c
}
