package model

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFetchErrorClassification(t *testing.T) {
	t.Parallel()

	transient := NewTransientError("https://example.com", context.DeadlineExceeded)
	if !transient.Transient() {
		t.Error("expected transient error")
	}
	if !errors.Is(transient, context.DeadlineExceeded) {
		t.Error("FetchError must unwrap to its cause")
	}

	permanent := &FetchError{Kind: ErrorKindPermanentNetwork, URL: "https://example.com", StatusCode: 404}
	if permanent.Transient() {
		t.Error("expected permanent error")
	}
	if !strings.Contains(permanent.Error(), "HTTP 404") {
		t.Errorf("message %q should mention the status", permanent.Error())
	}
}

func TestNewScanError(t *testing.T) {
	t.Parallel()

	t.Run("keeps fetch error kind", func(t *testing.T) {
		t.Parallel()
		se := NewScanError(NewTransientError("u", errors.New("reset")), 3)
		if se.Kind != ErrorKindTransientNetwork {
			t.Errorf("got %v", se.Kind)
		}
		if se.Attempts != 3 {
			t.Errorf("got %d attempts", se.Attempts)
		}
	})

	t.Run("other errors are permanent", func(t *testing.T) {
		t.Parallel()
		se := NewScanError(errors.New("boom"), 1)
		if se.Kind != ErrorKindPermanentNetwork {
			t.Errorf("got %v", se.Kind)
		}
	})
}

func TestErrorKindString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		kind     ErrorKind
		expected string
	}{
		{ErrorKindTransientNetwork, "TransientNetworkError"},
		{ErrorKindPermanentNetwork, "PermanentNetworkError"},
		{ErrorKindParseWarning, "ParseWarning"},
		{ErrorKindConfiguration, "ConfigurationError"},
		{ErrorKindUnknown, "UnknownError"},
	}
	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if got := tc.kind.String(); got != tc.expected {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestFetchOutcome(t *testing.T) {
	t.Parallel()

	t.Run("media type", func(t *testing.T) {
		t.Parallel()
		if got := MediaType("text/html; charset=utf-8"); got != "text/html" {
			t.Errorf("got %q", got)
		}
		if got := MediaType(""); got != "" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("is html", func(t *testing.T) {
		t.Parallel()
		if !(&FetchOutcome{}).IsHTML() {
			t.Error("empty content type should be treated as HTML")
		}
		if (&FetchOutcome{ContentType: "image/png"}).IsHTML() {
			t.Error("image/png is not HTML")
		}
	})

	t.Run("content hash", func(t *testing.T) {
		t.Parallel()
		o := &FetchOutcome{Content: []byte("<html></html>")}
		h := o.ContentHash()
		if len(h) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(h))
		}
		if h != (&FetchOutcome{Content: []byte("<html></html>")}).ContentHash() {
			t.Error("hash must be deterministic")
		}
		if (&FetchOutcome{}).ContentHash() != "" {
			t.Error("empty content must hash to empty string")
		}
	})
}
