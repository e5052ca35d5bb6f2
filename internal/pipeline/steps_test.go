package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/pixelscan/internal/config"
	"github.com/nao1215/pixelscan/internal/detect"
	"github.com/nao1215/pixelscan/internal/fetch"
	"github.com/nao1215/pixelscan/internal/model"
)

func testScanConfig() config.ScanConfig {
	cfg := config.NewScanConfig()
	cfg.RateLimitDelay = 0
	cfg.RequestTimeout = time.Second
	cfg.MaxRetries = 2
	cfg.RetryBackoffBase = time.Millisecond
	return cfg
}

func TestFetchStep(t *testing.T) {
	t.Parallel()

	t.Run("gives up after max retries on transient errors", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		f := fetch.Func(func(_ context.Context, rawURL string, _ map[string]string, _ time.Duration) (*model.FetchOutcome, error) {
			calls.Add(1)
			return nil, model.NewTransientError(rawURL, context.DeadlineExceeded)
		})
		cfg := testScanConfig()
		state := &State{URL: "https://example.com"}

		err := NewFetchStep(f, nil, cfg, nil).Do(context.Background(), state)
		var fe *model.FetchError
		if !errors.As(err, &fe) || !fe.Transient() {
			t.Fatalf("expected transient FetchError, got %v", err)
		}
		if got := int(calls.Load()); got != cfg.MaxRetries+1 {
			t.Errorf("fetch called %d times, want %d", got, cfg.MaxRetries+1)
		}
		if state.Attempts != cfg.MaxRetries+1 {
			t.Errorf("Attempts = %d, want %d", state.Attempts, cfg.MaxRetries+1)
		}
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		f := fetch.Func(func(_ context.Context, rawURL string, _ map[string]string, _ time.Duration) (*model.FetchOutcome, error) {
			calls.Add(1)
			return nil, fetch.StatusError(rawURL, 404)
		})
		state := &State{URL: "https://example.com"}

		err := NewFetchStep(f, nil, testScanConfig(), nil).Do(context.Background(), state)
		var fe *model.FetchError
		if !errors.As(err, &fe) || fe.Transient() || fe.StatusCode != 404 {
			t.Fatalf("expected permanent 404 FetchError, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("fetch called %d times, want 1", calls.Load())
		}
	})

	t.Run("succeeds after transient failures", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		f := fetch.Func(func(_ context.Context, rawURL string, _ map[string]string, _ time.Duration) (*model.FetchOutcome, error) {
			if calls.Add(1) < 3 {
				return nil, fetch.StatusError(rawURL, 503)
			}
			return &model.FetchOutcome{Content: []byte("<p>ok</p>"), StatusCode: 200, FinalURL: rawURL}, nil
		})
		state := &State{URL: "https://example.com"}

		if err := NewFetchStep(f, nil, testScanConfig(), nil).Do(context.Background(), state); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state.Attempts != 3 || state.Outcome == nil {
			t.Errorf("Attempts = %d, Outcome = %v; want 3 and non-nil", state.Attempts, state.Outcome)
		}
	})

	t.Run("passes headers and timeout", func(t *testing.T) {
		t.Parallel()

		var gotHeader string
		var gotTimeout time.Duration
		f := fetch.Func(func(_ context.Context, _ string, headers map[string]string, timeout time.Duration) (*model.FetchOutcome, error) {
			gotHeader = headers["User-Agent"]
			gotTimeout = timeout
			return &model.FetchOutcome{}, nil
		})
		cfg := testScanConfig()
		state := &State{URL: "https://example.com", Headers: map[string]string{"User-Agent": "ua"}}

		if err := NewFetchStep(f, nil, cfg, nil).Do(context.Background(), state); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotHeader != "ua" || gotTimeout != cfg.RequestTimeout {
			t.Errorf("got header %q timeout %v", gotHeader, gotTimeout)
		}
	})

	t.Run("classifies status codes reported without an error", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name      string
			status    int
			wantCalls int32
			transient bool
		}{
			{name: "5xx is retried", status: 503, wantCalls: 3, transient: true},
			{name: "4xx is permanent", status: 404, wantCalls: 1, transient: false},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				var calls atomic.Int32
				f := fetch.Func(func(_ context.Context, rawURL string, _ map[string]string, _ time.Duration) (*model.FetchOutcome, error) {
					calls.Add(1)
					return &model.FetchOutcome{Content: []byte("<p>error page</p>"), StatusCode: tc.status, FinalURL: rawURL}, nil
				})
				state := &State{URL: "https://example.com"}

				err := NewFetchStep(f, nil, testScanConfig(), nil).Do(context.Background(), state)
				var fe *model.FetchError
				if !errors.As(err, &fe) {
					t.Fatalf("expected FetchError, got %v", err)
				}
				if fe.StatusCode != tc.status || fe.Transient() != tc.transient {
					t.Errorf("got status %d transient %v, want %d %v", fe.StatusCode, fe.Transient(), tc.status, tc.transient)
				}
				if calls.Load() != tc.wantCalls {
					t.Errorf("fetch called %d times, want %d", calls.Load(), tc.wantCalls)
				}
				if state.Outcome != nil {
					t.Errorf("error page kept as outcome: %+v", state.Outcome)
				}
			})
		}
	})

	t.Run("rejects a missing outcome", func(t *testing.T) {
		t.Parallel()

		f := fetch.Func(func(context.Context, string, map[string]string, time.Duration) (*model.FetchOutcome, error) {
			return nil, nil
		})
		err := NewFetchStep(f, nil, testScanConfig(), nil).Do(context.Background(), &State{URL: "https://example.com"})
		var fe *model.FetchError
		if !errors.As(err, &fe) || fe.Transient() || !errors.Is(err, ErrNoOutcome) {
			t.Errorf("expected permanent ErrNoOutcome, got %v", err)
		}
	})

	t.Run("returns the last error when the deadline blocks a retry", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		var calls atomic.Int32
		f := fetch.Func(func(_ context.Context, rawURL string, _ map[string]string, _ time.Duration) (*model.FetchOutcome, error) {
			calls.Add(1)
			return nil, fetch.StatusError(rawURL, 502)
		})
		limiter := newLimiter(time.Hour)
		state := &State{URL: "https://example.com"}

		err := NewFetchStep(f, limiter, testScanConfig(), nil).Do(ctx, state)
		var fe *model.FetchError
		if !errors.As(err, &fe) || fe.StatusCode != 502 {
			t.Fatalf("expected the 502 FetchError, got %v", err)
		}
		if errors.Is(err, ErrDeadlineBeforeDispatch) {
			t.Errorf("error should not be ErrDeadlineBeforeDispatch: %v", err)
		}
		if calls.Load() != 1 || state.Attempts != 1 {
			t.Errorf("calls = %d, Attempts = %d, want 1 and 1", calls.Load(), state.Attempts)
		}
	})

	t.Run("stops backing off when cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		f := fetch.Func(func(_ context.Context, rawURL string, _ map[string]string, _ time.Duration) (*model.FetchOutcome, error) {
			cancel()
			return nil, fetch.StatusError(rawURL, 500)
		})
		cfg := testScanConfig()
		cfg.RetryBackoffBase = time.Hour

		err := NewFetchStep(f, nil, cfg, nil).Do(ctx, &State{URL: "https://example.com"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestDetectStep(t *testing.T) {
	t.Parallel()

	step := NewDetectStep(detect.NewEngine(nil))

	if err := step.Do(context.Background(), &State{}); !errors.Is(err, ErrNoContent) {
		t.Errorf("expected ErrNoContent, got %v", err)
	}

	state := &State{
		URL:     "https://example.com/",
		Outcome: &model.FetchOutcome{Content: []byte(`<img src="https://t.example/a.gif?tid=UA-1234567-1" width="1" height="1">`)},
	}
	if err := step.Do(context.Background(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Detections) != 1 {
		t.Errorf("got %d detections, want 1", len(state.Detections))
	}
	if len(state.TrackingIDs) != 1 || state.TrackingIDs[0].Value != "UA-1234567-1" {
		t.Errorf("TrackingIDs = %v, want UA-1234567-1", state.TrackingIDs)
	}
	if state.Consent == nil || state.Consent.HasMechanism() {
		t.Errorf("Consent = %+v, want an empty check", state.Consent)
	}
}

type failingAnalyzer struct{}

func (failingAnalyzer) Name() string { return "failing" }

func (failingAnalyzer) Analyze(context.Context, []model.TrackerDetection) (model.PrivacyAssessment, error) {
	return model.PrivacyAssessment{}, errors.New("model unavailable")
}

func TestScoreStepFallsBack(t *testing.T) {
	t.Parallel()

	step := NewScoreStep(failingAnalyzer{}, testScanConfig(), nil)
	state := &State{}
	if err := step.Do(context.Background(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Assessment.Score != 100 || state.Assessment.RiskLevel != model.RiskLow {
		t.Errorf("fallback assessment = %+v, want score 100 low", state.Assessment)
	}
}
