package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/pixelscan/internal/model"
)

// State is the work item passed through the steps of one URL's pipeline.
// Each step reads what earlier steps produced and adds its own output.
type State struct {
	// URL is the page being scanned.
	URL string

	// Headers are sent with every fetch attempt.
	Headers map[string]string

	// Attempts counts fetch calls made so far.
	Attempts int

	// Outcome is set by FetchStep.
	Outcome *model.FetchOutcome

	// Detections, Warnings, TrackingIDs and Consent are set by DetectStep.
	Detections  []model.TrackerDetection
	Warnings    []model.ParseWarning
	TrackingIDs []model.TrackingID
	Consent     *model.ConsentCheck

	// Assessment is set by ScoreStep.
	Assessment model.PrivacyAssessment
}

// Step is one stage of the per-URL pipeline.
type Step interface {
	// Do executes the step. An error stops the pipeline and fails the URL,
	// unless the context was cancelled, in which case the URL is cancelled.
	Do(ctx context.Context, state *State) error

	// Name returns the step's name for logging.
	Name() string
}

// Pipeline executes steps in order.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence and returns the first error.
// Cancellation is checked before each step; steps handle it while running.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	if p.logger.Enabled(ctx, slog.LevelDebug) {
		p.logger.Debug("running pipeline", "url", state.URL, "steps", p.StepNames())
	}
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Debug("pipeline cancelled", "step", step.Name(), "url", state.URL, "reason", err)
			return err
		}

		if err := step.Do(ctx, state); err != nil {
			p.logger.Debug("step failed", "step", step.Name(), "url", state.URL, "error", err)
			return err
		}
		p.logger.Debug("step completed", "step", step.Name(), "url", state.URL)
	}
	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
