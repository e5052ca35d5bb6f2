package detect

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/pixelscan/internal/model"
	"github.com/nao1215/pixelscan/internal/registry"
)

// Engine runs a RuleSet over fetched content and resolves the findings
// against a registry. An Engine is safe for concurrent use.
type Engine struct {
	registry *registry.Registry
	rules    RuleSet
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRuleSet replaces the default rule set.
func WithRuleSet(rules RuleSet) Option {
	return func(e *Engine) {
		if len(rules) > 0 {
			e.rules = rules
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an Engine backed by reg. A nil registry resolves every
// domain as unknown.
func NewEngine(reg *registry.Registry, opts ...Option) *Engine {
	if reg == nil {
		reg, _ = registry.New() //nolint:errcheck // an empty registry cannot fail
	}
	e := &Engine{
		registry: reg,
		rules:    DefaultRuleSet(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger.Debug("detection engine ready", "kinds", e.rules.Kinds(), "domains", reg.Len())
	return e
}

// Detect extracts tracker detections from outcome. pageURL is the URL that
// was scanned; relative references and first-party findings resolve
// against it. Content that cannot be parsed yields no detections and a
// ParseWarning. Empty content yields neither.
func (e *Engine) Detect(outcome *model.FetchOutcome, pageURL string) ([]model.TrackerDetection, []model.ParseWarning) {
	if outcome == nil || len(bytes.TrimSpace(outcome.Content)) == 0 {
		return nil, nil
	}

	if err := checkParseable(outcome); err != nil {
		e.logger.Debug("content not parseable", "url", pageURL, "reason", err.Error())
		return nil, []model.ParseWarning{{Message: err.Error()}}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(outcome.Content))
	if err != nil {
		return nil, []model.ParseWarning{{Message: fmt.Sprintf("parse HTML: %v", err)}}
	}

	page := NewPage(doc, pageURL, e.registry)
	var findings []Finding
	for _, d := range e.rules {
		findings = append(findings, d.Detect(page)...)
	}

	detections := e.resolve(findings)
	e.logger.Debug("detection finished",
		"url", pageURL,
		"findings", len(findings),
		"detections", len(detections),
	)
	return detections, nil
}

// resolve classifies findings through the registry and merges those that
// share a DetectionKey. The first occurrence keeps its position and source
// URL; a later duplicate can only raise the risk level and set the
// GDPR/CCPA flags.
func (e *Engine) resolve(findings []Finding) []model.TrackerDetection {
	detections := make([]model.TrackerDetection, 0, len(findings))
	index := make(map[model.DetectionKey]int, len(findings))

	for _, f := range findings {
		domain := registry.Normalize(f.Domain)
		if domain == "" {
			continue
		}

		d := model.TrackerDetection{
			Kind:      f.Kind,
			Domain:    domain,
			SourceURL: f.SourceURL,
			Method:    f.Method,
		}
		if f.Override != nil {
			d.Apply(*f.Override)
		} else {
			d.Apply(e.registry.Resolve(domain))
		}

		if i, ok := index[d.Key()]; ok {
			merge(&detections[i], d)
			continue
		}
		index[d.Key()] = len(detections)
		detections = append(detections, d)
	}
	return detections
}

func merge(dst *model.TrackerDetection, src model.TrackerDetection) {
	if src.RiskLevel > dst.RiskLevel {
		dst.RiskLevel = src.RiskLevel
		dst.Category = src.Category
		dst.Company = src.Company
		dst.Method = src.Method
	}
	dst.GDPRRelevant = dst.GDPRRelevant || src.GDPRRelevant
	dst.CCPARelevant = dst.CCPARelevant || src.CCPARelevant
}

var (
	errNotHTML     = errors.New("content is not HTML")
	errBinary      = errors.New("content contains NUL bytes")
	errInvalidUTF8 = errors.New("content is not valid UTF-8")
)

// checkParseable rejects content the HTML detectors cannot meaningfully
// inspect.
func checkParseable(outcome *model.FetchOutcome) error {
	if !outcome.IsHTML() {
		return fmt.Errorf("%w: content type %q", errNotHTML, outcome.ContentType)
	}
	if bytes.IndexByte(outcome.Content, 0) >= 0 {
		return errBinary
	}
	if !utf8.Valid(outcome.Content) {
		return errInvalidUTF8
	}

	z := html.NewTokenizer(bytes.NewReader(outcome.Content))
	for {
		if z.Next() == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return fmt.Errorf("tokenize HTML: %w", err)
			}
			return nil
		}
	}
}
