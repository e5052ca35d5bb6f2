package config

import (
	"errors"

	"github.com/nao1215/pixelscan/internal/model"
)

// Configuration validation errors.
// Validate wraps one of these in a *ConfigurationError, so callers can use
// errors.Is for the specific rule and errors.As for the field name.
var (
	// ErrNoTarget is returned when no URL or list file is specified.
	ErrNoTarget = errors.New("no target specified: provide a URL or use --list")

	// ErrInvalidConcurrency is returned when the concurrency limit is below one.
	ErrInvalidConcurrency = errors.New("invalid concurrency limit: must be at least 1")

	// ErrInvalidRateLimitDelay is returned when the dispatch delay is negative.
	// Use 0 for no spacing between dispatches.
	ErrInvalidRateLimitDelay = errors.New("invalid rate limit delay: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid request timeout: must be positive")

	// ErrInvalidMaxRetries is returned when the retry count is negative.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidBackoff is returned when the retry backoff base is negative.
	ErrInvalidBackoff = errors.New("invalid retry backoff base: must be non-negative")

	// ErrNegativeWeight is returned when any scoring weight is negative.
	// A negative penalty would raise the score above what the page deserves.
	ErrNegativeWeight = errors.New("invalid scoring weight: must be non-negative")

	// ErrThresholdsNotAscending is returned when the risk thresholds are not
	// strictly ascending (high < medium < low).
	ErrThresholdsNotAscending = errors.New("invalid risk thresholds: must be strictly ascending (high < medium < low)")

	// ErrThresholdOutOfRange is returned when a threshold is outside [0,100].
	ErrThresholdOutOfRange = errors.New("invalid risk threshold: must be within [0,100]")

	// ErrConflictingReportFormats is returned when more than one of --json,
	// --markdown and --csv is specified. Only one output format can be used
	// at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: use only one of --json, --markdown or --csv")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidCacheTTL is returned when the cache TTL is negative.
	ErrInvalidCacheTTL = errors.New("invalid cache ttl: must be non-negative")
)

// ConfigurationError reports an invalid configuration value.
// It fails the whole batch before any fetch is dispatched.
type ConfigurationError struct {
	// Field is the name of the offending option, e.g. "risk_thresholds".
	Field string
	Err   error
}

// Error implements error.
func (e *ConfigurationError) Error() string {
	return model.ErrorKindConfiguration.String() + ": " + e.Field + ": " + e.Err.Error()
}

// Unwrap returns the sentinel error describing the violated rule.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Kind returns model.ErrorKindConfiguration.
func (e *ConfigurationError) Kind() model.ErrorKind {
	return model.ErrorKindConfiguration
}

func invalid(field string, err error) error {
	return &ConfigurationError{Field: field, Err: err}
}
