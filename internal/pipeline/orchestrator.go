package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/pixelscan/internal/config"
	"github.com/nao1215/pixelscan/internal/detect"
	"github.com/nao1215/pixelscan/internal/fetch"
	"github.com/nao1215/pixelscan/internal/model"
	"github.com/nao1215/pixelscan/internal/score"
)

// Event reports one status transition of a URL. Result is a snapshot taken
// at the transition and may be retained by the receiver.
type Event struct {
	URL    string
	Status model.ScanStatus
	Result *model.ScanResult
}

// ResultCache stores completed results between batches.
type ResultCache interface {
	// Get returns the cached result for rawURL, or nil on a miss.
	Get(ctx context.Context, rawURL string) (*model.ScanResult, error)

	// Set stores a completed result.
	Set(ctx context.Context, result *model.ScanResult) error
}

// Orchestrator scans batches of URLs concurrently.
//
// It dispatches at most ConcurrencyLimit pipelines at once in input order,
// and spaces fetch attempts at least RateLimitDelay apart across the whole
// batch. A failure of one URL never affects another.
type Orchestrator struct {
	fetcher  fetch.Fetcher
	engine   *detect.Engine
	cfg      config.ScanConfig
	analyzer score.Analyzer
	cache    ResultCache
	events   chan<- Event
	headers  func(host string) map[string]string
	logger   *slog.Logger
	now      func() time.Time
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithAnalyzer replaces the default PrivacyScorer.
func WithAnalyzer(a score.Analyzer) OrchestratorOption {
	return func(o *Orchestrator) {
		if a != nil {
			o.analyzer = a
		}
	}
}

// WithCache enables the result cache.
func WithCache(c ResultCache) OrchestratorOption {
	return func(o *Orchestrator) {
		o.cache = c
	}
}

// WithEvents publishes every status transition on ch. Sends block, so the
// caller must keep receiving until Scan returns.
func WithEvents(ch chan<- Event) OrchestratorOption {
	return func(o *Orchestrator) {
		o.events = ch
	}
}

// WithHeaders sets the function that builds request headers for a host.
// By default the ScanConfig headers are sent to every host.
func WithHeaders(fn func(host string) map[string]string) OrchestratorOption {
	return func(o *Orchestrator) {
		if fn != nil {
			o.headers = fn
		}
	}
}

// WithOrchestratorLogger sets the logger for the orchestrator and its
// pipelines.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// withClock replaces time.Now in tests.
func withClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates an Orchestrator. The configuration is copied and
// is not validated until Scan.
func NewOrchestrator(fetcher fetch.Fetcher, engine *detect.Engine, cfg config.ScanConfig, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		fetcher: fetcher,
		engine:  engine,
		cfg:     cfg.Clone(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.engine == nil {
		o.engine = detect.NewEngine(nil, detect.WithLogger(o.logger))
	}
	if o.analyzer == nil {
		o.analyzer = score.NewPrivacyScorer(o.cfg)
	}
	if o.headers == nil {
		o.headers = func(string) map[string]string { return maps.Clone(o.cfg.Headers) }
	}
	return o
}

// Scan processes urls and returns one result per distinct URL in
// completion order. Duplicate URLs are scanned once.
//
// An invalid configuration fails the whole batch before any fetch; the
// returned error is a *config.ConfigurationError. Per-URL failures are
// reported as failed results, never as an error. When ctx is cancelled,
// URLs that have not started are cancelled, in-flight ones finish or are
// cancelled, and Scan still returns every result.
func (o *Orchestrator) Scan(ctx context.Context, urls []string) ([]*model.ScanResult, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	batch := o.prepare(urls)
	o.logger.Info("starting batch",
		"urls", len(batch),
		"concurrency", o.cfg.ConcurrencyLimit,
		"rate_limit_delay", o.cfg.RateLimitDelay,
	)
	start := o.now()

	var (
		mu      sync.Mutex
		results = make([]*model.ScanResult, 0, len(batch))
	)
	record := func(r *model.ScanResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	limiter := newLimiter(o.cfg.RateLimitDelay)

	var g errgroup.Group
	g.SetLimit(o.cfg.ConcurrencyLimit)

	dispatched := 0
	for _, res := range batch {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			o.run(ctx, limiter, res)
			record(res)
			return nil
		})
		dispatched++
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	for _, res := range batch[dispatched:] {
		o.cancel(res)
		record(res)
	}

	o.logger.Info("batch complete",
		"urls", len(batch),
		"elapsed", o.now().Sub(start),
	)
	return results, nil
}

// prepare builds pending results for the distinct URLs, in input order.
func (o *Orchestrator) prepare(urls []string) []*model.ScanResult {
	seen := make(map[string]bool, len(urls))
	batch := make([]*model.ScanResult, 0, len(urls))
	for _, u := range urls {
		if seen[u] {
			o.logger.Debug("skipping duplicate URL", "url", u)
			continue
		}
		seen[u] = true
		res := model.NewScanResult(u)
		batch = append(batch, res)
		o.emit(res)
	}
	return batch
}

// run drives one URL from pending to a terminal state.
func (o *Orchestrator) run(ctx context.Context, limiter *rate.Limiter, res *model.ScanResult) {
	if ctx.Err() != nil {
		o.cancel(res)
		return
	}

	o.transition(res, res.Start(o.now()))

	if _, err := fetch.ValidateURL(res.URL); err != nil {
		fe := model.NewPermanentError(res.URL, err)
		o.transition(res, res.Fail(o.now(), model.NewScanError(fe, 0)))
		o.logger.Warn("scan failed", "url", res.URL, "error", fe)
		return
	}

	if cached := o.lookup(ctx, res.URL); cached != nil {
		res.FinalURL = cached.FinalURL
		res.StatusCode = cached.StatusCode
		res.ContentHash = cached.ContentHash
		res.Warnings = cached.Warnings
		res.TrackingIDs = cached.TrackingIDs
		res.Consent = cached.Consent
		res.Cached = true
		o.transition(res, res.Complete(o.now(), cached.Detections, o.rescore(ctx, res.URL, cached.Detections)))
		return
	}

	state := &State{URL: res.URL, Headers: o.headers(res.Host())}
	p := New(WithLogger(o.logger))
	p.AddSteps(
		NewFetchStep(o.fetcher, limiter, o.cfg, o.logger),
		NewDetectStep(o.engine),
		NewScoreStep(o.analyzer, o.cfg, o.logger),
	)
	err := p.Execute(ctx, state)

	res.Attempts = state.Attempts
	if state.Outcome != nil {
		res.FinalURL = state.Outcome.FinalURL
		res.StatusCode = state.Outcome.StatusCode
		res.ContentHash = state.Outcome.ContentHash()
	}

	switch {
	case err == nil:
		res.Warnings = state.Warnings
		res.TrackingIDs = state.TrackingIDs
		res.Consent = state.Consent
		o.transition(res, res.Complete(o.now(), state.Detections, state.Assessment))
		o.store(ctx, res)
		o.logger.Info("scan completed",
			"url", res.URL,
			"detections", len(res.Detections),
			"score", res.Assessment.Score,
		)
	case ctx.Err() != nil || errors.Is(err, ErrDeadlineBeforeDispatch):
		o.transition(res, res.Cancel(o.now()))
		o.logger.Info("scan cancelled", "url", res.URL)
	default:
		o.transition(res, res.Fail(o.now(), model.NewScanError(err, state.Attempts)))
		o.logger.Warn("scan failed", "url", res.URL, "attempts", state.Attempts, "error", err)
	}
}

// rescore scores cached detections under the current weights and
// thresholds; the stored assessment may come from another configuration.
func (o *Orchestrator) rescore(ctx context.Context, rawURL string, detections []model.TrackerDetection) model.PrivacyAssessment {
	state := &State{URL: rawURL, Detections: detections}
	_ = NewScoreStep(o.analyzer, o.cfg, o.logger).Do(ctx, state) //nolint:errcheck // ScoreStep falls back instead of failing
	return state.Assessment
}

func (o *Orchestrator) cancel(res *model.ScanResult) {
	o.transition(res, res.Cancel(o.now()))
}

// transition publishes res after a successful state change.
func (o *Orchestrator) transition(res *model.ScanResult, err error) {
	if err != nil {
		o.logger.Error("invalid state transition", "url", res.URL, "error", err)
		return
	}
	o.emit(res)
}

func (o *Orchestrator) emit(res *model.ScanResult) {
	if o.events == nil {
		return
	}
	o.events <- Event{URL: res.URL, Status: res.Status, Result: res.Clone()}
}

func (o *Orchestrator) lookup(ctx context.Context, rawURL string) *model.ScanResult {
	if o.cache == nil {
		return nil
	}
	cached, err := o.cache.Get(ctx, rawURL)
	if err != nil {
		o.logger.Warn("cache lookup failed", "url", rawURL, "error", err)
		return nil
	}
	if cached == nil || cached.Status != model.StatusCompleted {
		return nil
	}
	o.logger.Debug("cache hit", "url", rawURL)
	return cached
}

func (o *Orchestrator) store(ctx context.Context, res *model.ScanResult) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Set(ctx, res); err != nil {
		o.logger.Warn("cache store failed", "url", res.URL, "error", err)
	}
}

// newLimiter admits one fetch attempt per delay. A zero delay disables
// pacing.
func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
