package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestScanResultLifecycle(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("pending to running to completed", func(t *testing.T) {
		t.Parallel()
		r := NewScanResult("https://example.com")
		if r.Status != StatusPending {
			t.Fatalf("new result must be pending, got %v", r.Status)
		}
		if err := r.Start(start); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if err := r.Complete(start.Add(2*time.Second), nil, PrivacyAssessment{Score: 100}); err != nil {
			t.Fatalf("Complete: %v", err)
		}
		if r.Duration != 2*time.Second {
			t.Errorf("got duration %v, expected 2s", r.Duration)
		}
		if r.Detections == nil {
			t.Error("completed result must have a non-nil detection slice")
		}
	})

	t.Run("pending directly to cancelled", func(t *testing.T) {
		t.Parallel()
		r := NewScanResult("https://example.com")
		if err := r.Cancel(start); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if r.Status != StatusCancelled {
			t.Errorf("got %v, expected cancelled", r.Status)
		}
	})

	t.Run("terminal states are final", func(t *testing.T) {
		t.Parallel()
		r := NewScanResult("https://example.com")
		_ = r.Start(start)
		_ = r.Fail(start, &ScanError{Kind: ErrorKindPermanentNetwork, Message: "404"})

		if err := r.Start(start); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition re-entering running, got %v", err)
		}
		if err := r.Cancel(start); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition leaving failed, got %v", err)
		}
		if r.Status != StatusFailed {
			t.Errorf("status changed to %v", r.Status)
		}
	})

	t.Run("pending cannot complete", func(t *testing.T) {
		t.Parallel()
		r := NewScanResult("https://example.com")
		if err := r.Complete(start, nil, PrivacyAssessment{}); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestScanResultJSON(t *testing.T) {
	t.Parallel()

	r := NewScanResult("https://example.com/")
	_ = r.Start(time.Unix(0, 0))
	_ = r.Fail(time.Unix(1, 0), &ScanError{Kind: ErrorKindTransientNetwork, Message: "timeout", Attempts: 4})

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"status":"failed"`, `"kind":"TransientNetworkError"`, `"attempts":4`} {
		if !strings.Contains(s, want) {
			t.Errorf("JSON %s missing %s", s, want)
		}
	}
}

func TestScanResultClone(t *testing.T) {
	t.Parallel()

	r := NewScanResult("https://example.com")
	_ = r.Start(time.Now())
	_ = r.Complete(time.Now(), []TrackerDetection{{Kind: KindPixel, Domain: "a.com"}}, PrivacyAssessment{Categories: []string{"analytics"}})

	r.Consent = &ConsentCheck{Platforms: []string{"onetrust"}, Banner: true}

	c := r.Clone()
	c.Detections[0].Domain = "b.com"
	c.Assessment.Categories[0] = "advertising"
	c.Consent.Platforms[0] = "didomi"
	c.Consent.Banner = false

	if r.Detections[0].Domain != "a.com" {
		t.Error("clone shares detection storage with the original")
	}
	if r.Assessment.Categories[0] != "analytics" {
		t.Error("clone shares assessment storage with the original")
	}
	if r.Consent.Platforms[0] != "onetrust" || !r.Consent.Banner {
		t.Error("clone shares consent storage with the original")
	}
}

func TestScanResultHost(t *testing.T) {
	t.Parallel()

	if got := NewScanResult("https://WWW.Example.com:8443/a").Host(); got != "www.example.com" {
		t.Errorf("got %q", got)
	}
	if got := NewScanResult("://bad").Host(); got != "" {
		t.Errorf("expected empty host, got %q", got)
	}
}
