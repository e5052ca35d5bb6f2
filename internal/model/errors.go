package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownRiskLevel is returned by ParseRiskLevel for an unrecognized name.
	ErrUnknownRiskLevel = errors.New("unknown risk level")

	// ErrUnknownTrackerKind is returned by ParseTrackerKind for an unrecognized name.
	ErrUnknownTrackerKind = errors.New("unknown tracker kind")

	// ErrUnknownStatus is returned by ParseScanStatus for an unrecognized name.
	ErrUnknownStatus = errors.New("unknown scan status")

	// ErrInvalidTransition is returned when a ScanResult is moved along an
	// edge the lifecycle does not allow, such as leaving a terminal state.
	ErrInvalidTransition = errors.New("invalid scan status transition")
)

// ErrorKind classifies scan errors so callers can decide what to retry.
type ErrorKind int

const (
	// ErrorKindUnknown is the zero value and is never produced by the scanner.
	ErrorKindUnknown ErrorKind = iota

	// ErrorKindTransientNetwork covers timeouts, connection resets and 5xx
	// responses. The orchestrator retries these.
	ErrorKindTransientNetwork

	// ErrorKindPermanentNetwork covers DNS and TLS failures, 4xx responses
	// and malformed URLs. These fail the URL immediately.
	ErrorKindPermanentNetwork

	// ErrorKindParseWarning marks content that could not be parsed.
	// It never fails a scan.
	ErrorKindParseWarning

	// ErrorKindConfiguration marks an invalid scan configuration.
	// It fails the whole batch before any fetch.
	ErrorKindConfiguration
)

// String returns the name of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTransientNetwork:
		return "TransientNetworkError"
	case ErrorKindPermanentNetwork:
		return "PermanentNetworkError"
	case ErrorKindParseWarning:
		return "ParseWarning"
	case ErrorKindConfiguration:
		return "ConfigurationError"
	default:
		return "UnknownError"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ErrorKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "TransientNetworkError":
		*k = ErrorKindTransientNetwork
	case "PermanentNetworkError":
		*k = ErrorKindPermanentNetwork
	case "ParseWarning":
		*k = ErrorKindParseWarning
	case "ConfigurationError":
		*k = ErrorKindConfiguration
	default:
		*k = ErrorKindUnknown
	}
	return nil
}

// FetchError is the terminal error returned by a Fetcher.
type FetchError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Err        error
}

// NewTransientError wraps err as a retryable fetch error.
func NewTransientError(url string, err error) *FetchError {
	return &FetchError{Kind: ErrorKindTransientNetwork, URL: url, Err: err}
}

// NewPermanentError wraps err as a non-retryable fetch error.
func NewPermanentError(url string, err error) *FetchError {
	return &FetchError{Kind: ErrorKindPermanentNetwork, URL: url, Err: err}
}

// Error implements error.
func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: fetch %s: HTTP %d: %v", e.Kind, e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: fetch %s: HTTP %d", e.Kind, e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: fetch %s: %v", e.Kind, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s: fetch %s", e.Kind, e.URL)
	}
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient reports whether the error may succeed on retry.
func (e *FetchError) Transient() bool {
	return e.Kind == ErrorKindTransientNetwork
}

// ScanError is the structured error recorded on a failed ScanResult.
type ScanError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`

	// Attempts is the number of fetches made before giving up.
	Attempts int `json:"attempts"`
}

// Error implements error.
func (e *ScanError) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %s", e.Kind, e.Attempts, e.Message)
}

// NewScanError builds a ScanError from err. A *FetchError keeps its kind;
// any other error is treated as permanent.
func NewScanError(err error, attempts int) *ScanError {
	kind := ErrorKindPermanentNetwork
	var fe *FetchError
	if errors.As(err, &fe) {
		kind = fe.Kind
	}
	return &ScanError{Kind: kind, Message: err.Error(), Attempts: attempts}
}

// ParseWarning records content that could not be parsed as HTML.
// The scan still completes with an empty detection set.
type ParseWarning struct {
	Message string `json:"message"`
}

// Error implements error so a warning can be logged like one.
func (w ParseWarning) Error() string {
	return "ParseWarning: " + w.Message
}
