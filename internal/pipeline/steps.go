package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/pixelscan/internal/config"
	"github.com/nao1215/pixelscan/internal/detect"
	"github.com/nao1215/pixelscan/internal/fetch"
	"github.com/nao1215/pixelscan/internal/model"
	"github.com/nao1215/pixelscan/internal/score"
)

var (
	// ErrNoContent is returned by DetectStep when FetchStep did not run.
	ErrNoContent = errors.New("no fetched content to inspect")

	// ErrDeadlineBeforeDispatch is returned by FetchStep when the batch
	// deadline would pass before the limiter admits the next attempt.
	ErrDeadlineBeforeDispatch = errors.New("batch deadline reached before dispatch")

	// ErrNoOutcome is wrapped when a fetcher returns neither an outcome
	// nor an error.
	ErrNoOutcome = errors.New("fetcher returned no outcome")
)

// FetchStep fetches the page, retrying transient failures with
// exponential backoff. Every attempt, retries included, first waits for
// the shared limiter.
type FetchStep struct {
	fetcher    fetch.Fetcher
	limiter    *rate.Limiter
	timeout    time.Duration
	maxRetries int
	backoff    func(attempt int) time.Duration
	logger     *slog.Logger
}

// NewFetchStep creates a FetchStep using the timeout, retry and backoff
// settings of cfg. A nil limiter does not pace requests.
func NewFetchStep(fetcher fetch.Fetcher, limiter *rate.Limiter, cfg config.ScanConfig, logger *slog.Logger) *FetchStep {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchStep{
		fetcher:    fetcher,
		limiter:    limiter,
		timeout:    cfg.RequestTimeout,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		logger:     logger,
	}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do performs up to maxRetries+1 fetch attempts. It returns the context
// error when cancelled and a *model.FetchError otherwise.
//
// A non-2xx status reported by the fetcher is classified the same way as a
// returned error: 5xx is retried, anything else fails at once. When the
// batch deadline stops a retry from being dispatched, the last fetch error
// is returned; a URL that never got an attempt gets
// ErrDeadlineBeforeDispatch instead.
func (s *FetchStep) Do(ctx context.Context, state *State) error {
	var lastErr *model.FetchError
	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if lastErr != nil {
				return lastErr
			}
			return fmt.Errorf("%w: %w", ErrDeadlineBeforeDispatch, err)
		}

		state.Attempts++
		outcome, err := s.fetcher.Fetch(ctx, state.URL, state.Headers, s.timeout)
		if err == nil {
			err = checkOutcome(state.URL, outcome)
		}
		if err == nil {
			state.Outcome = outcome
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fe := fetch.Classify(state.URL, err)
		if !fe.Transient() || attempt >= s.maxRetries {
			return fe
		}
		lastErr = fe

		wait := s.backoff(attempt)
		s.logger.Debug("retrying fetch",
			"url", state.URL,
			"attempt", state.Attempts,
			"backoff", wait,
			"error", err,
		)
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// checkOutcome rejects a missing outcome and a non-2xx status. A zero
// status means the fetcher did not report one.
func checkOutcome(rawURL string, outcome *model.FetchOutcome) error {
	if outcome == nil {
		return model.NewPermanentError(rawURL, ErrNoOutcome)
	}
	if outcome.StatusCode != 0 && (outcome.StatusCode < 200 || outcome.StatusCode > 299) {
		return fetch.StatusError(rawURL, outcome.StatusCode)
	}
	return nil
}

// DetectStep runs the detection engine over the fetched content.
type DetectStep struct {
	engine *detect.Engine
}

// NewDetectStep creates a DetectStep.
func NewDetectStep(engine *detect.Engine) *DetectStep {
	return &DetectStep{engine: engine}
}

// Name returns the step name.
func (s *DetectStep) Name() string {
	return "detect"
}

// Do implements Step. Parse problems are recorded as warnings, not errors.
func (s *DetectStep) Do(_ context.Context, state *State) error {
	if state.Outcome == nil {
		return ErrNoContent
	}
	state.Detections, state.Warnings = s.engine.Detect(state.Outcome, state.URL)
	state.TrackingIDs = detect.ExtractTrackingIDs(string(state.Outcome.Content))
	if len(state.Warnings) == 0 {
		consent := detect.CheckConsent(state.Outcome.Content)
		state.Consent = &consent
	}
	return nil
}

// ScoreStep reduces the detections to an assessment.
type ScoreStep struct {
	analyzer score.Analyzer
	fallback *score.PrivacyScorer
	logger   *slog.Logger
}

// NewScoreStep creates a ScoreStep. When analyzer fails, the deterministic
// scorer built from cfg is used instead.
func NewScoreStep(analyzer score.Analyzer, cfg config.ScanConfig, logger *slog.Logger) *ScoreStep {
	fallback := score.NewPrivacyScorer(cfg)
	if analyzer == nil {
		analyzer = fallback
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoreStep{analyzer: analyzer, fallback: fallback, logger: logger}
}

// Name returns the step name.
func (s *ScoreStep) Name() string {
	return "score"
}

// Do implements Step.
func (s *ScoreStep) Do(ctx context.Context, state *State) error {
	assessment, err := s.analyzer.Analyze(ctx, state.Detections)
	if err != nil {
		s.logger.Warn("analyzer failed, using default scorer",
			"analyzer", s.analyzer.Name(),
			"url", state.URL,
			"error", err,
		)
		assessment, _ = s.fallback.Analyze(ctx, state.Detections) //nolint:errcheck // PrivacyScorer never fails
	}
	state.Assessment = assessment
	return nil
}
