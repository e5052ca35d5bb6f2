package detect

import (
	"reflect"
	"sort"
	"testing"

	"github.com/nao1215/pixelscan/internal/model"
	"github.com/nao1215/pixelscan/internal/registry"
)

const pageURL = "https://example.com/"

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	reg, err := registry.Default()
	if err != nil {
		t.Fatalf("registry.Default() error: %v", err)
	}
	return NewEngine(reg)
}

func htmlOutcome(body string) *model.FetchOutcome {
	return &model.FetchOutcome{Content: []byte(body), StatusCode: 200, ContentType: "text/html"}
}

func TestEngineDetectScenarios(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	t.Run("doubleclick 1x1 pixel", func(t *testing.T) {
		t.Parallel()

		body := `<html><body><img src="https://doubleclick.net/ad.gif" width="1" height="1"></body></html>`
		dets, warnings := engine.Detect(htmlOutcome(body), pageURL)
		if len(warnings) != 0 {
			t.Fatalf("unexpected warnings: %v", warnings)
		}
		if len(dets) != 1 {
			t.Fatalf("got %d detections, want 1: %+v", len(dets), dets)
		}
		d := dets[0]
		if d.Kind != model.KindPixel {
			t.Errorf("Kind = %v, want pixel", d.Kind)
		}
		if d.RiskLevel != model.RiskHigh {
			t.Errorf("RiskLevel = %v, want high", d.RiskLevel)
		}
		if !d.GDPRRelevant {
			t.Error("expected GDPR relevant")
		}
		if d.Method != model.MethodPixelDimensions {
			t.Errorf("Method = %q, want %q", d.Method, model.MethodPixelDimensions)
		}
		if d.SourceURL != "https://doubleclick.net/ad.gif" {
			t.Errorf("SourceURL = %q", d.SourceURL)
		}
	})

	t.Run("clean content", func(t *testing.T) {
		t.Parallel()

		body := `<html><head><title>Hi</title></head><body><p>Hello</p>` +
			`<img src="/logo.png" width="200" height="50"><script src="/static/app.js"></script></body></html>`
		dets, warnings := engine.Detect(htmlOutcome(body), pageURL)
		if len(dets) != 0 || len(warnings) != 0 {
			t.Errorf("got detections=%v warnings=%v, want none", dets, warnings)
		}
	})

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()

		dets, warnings := engine.Detect(htmlOutcome(""), pageURL)
		if len(dets) != 0 || len(warnings) != 0 {
			t.Errorf("got detections=%v warnings=%v, want none", dets, warnings)
		}
		dets, warnings = engine.Detect(nil, pageURL)
		if len(dets) != 0 || len(warnings) != 0 {
			t.Errorf("nil outcome: got detections=%v warnings=%v", dets, warnings)
		}
	})

	t.Run("unknown domain", func(t *testing.T) {
		t.Parallel()

		body := `<img src="https://unknown-tracker.example/a.gif" width="1" height="1">`
		dets, _ := engine.Detect(htmlOutcome(body), pageURL)
		if len(dets) != 1 {
			t.Fatalf("got %d detections, want 1", len(dets))
		}
		d := dets[0]
		if d.Category != model.CategoryUnknown || d.RiskLevel != model.RiskMedium {
			t.Errorf("got category=%q risk=%v, want unknown/medium", d.Category, d.RiskLevel)
		}
		if d.GDPRRelevant || d.CCPARelevant {
			t.Error("unknown domains must not be GDPR/CCPA relevant")
		}
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		t.Parallel()

		body := `<img src="https://doubleclick.net/ad.gif" width="1" height="1">` +
			`<img src="https://doubleclick.net/ad.gif" width="0" height="0">`
		dets, _ := engine.Detect(htmlOutcome(body), pageURL)
		if len(dets) != 1 {
			t.Errorf("got %d detections, want 1", len(dets))
		}
	})
}

func TestEngineDetectIdempotent(t *testing.T) {
	t.Parallel()

	body := `<html><head>
<meta name="google-site-verification" content="abc">
<meta property="og:title" content="T"><meta property="og:image" content="/i.png">
<script async src="https://www.googletagmanager.com/gtag/js?id=G-1"></script>
<script>window.dataLayer=window.dataLayer||[];function gtag(){dataLayer.push(arguments);}gtag('js',new Date());</script>
<style>.hero{background-image:url("https://ad.doubleclick.net/bg.png")}</style>
</head><body>
<img src="https://www.facebook.com/tr?id=1&ev=PageView" width="1" height="1">
<div style="background: url(/collect?id=1)"></div>
</body></html>`

	engine := newTestEngine(t)
	first, _ := engine.Detect(htmlOutcome(body), pageURL)
	second, _ := engine.Detect(htmlOutcome(body), pageURL)

	if len(first) == 0 {
		t.Fatal("expected detections")
	}
	sortDetections(first)
	sortDetections(second)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("detection is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}

	seen := make(map[model.DetectionKey]bool)
	for _, d := range first {
		if seen[d.Key()] {
			t.Errorf("duplicate key %+v", d.Key())
		}
		seen[d.Key()] = true
	}
}

func sortDetections(dets []model.TrackerDetection) {
	sort.Slice(dets, func(i, j int) bool {
		a, b := dets[i], dets[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		return a.SourceURL < b.SourceURL
	})
}

func TestEngineParseWarnings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outcome *model.FetchOutcome
	}{
		{
			name:    "non-HTML content type",
			outcome: &model.FetchOutcome{Content: []byte(`{"a":1}`), ContentType: "application/json"},
		},
		{
			name:    "binary content",
			outcome: &model.FetchOutcome{Content: []byte("GIF89a\x00\x01\x00"), ContentType: "text/html"},
		},
		{
			name:    "invalid UTF-8",
			outcome: &model.FetchOutcome{Content: []byte("<p>\xff\xfe</p>"), ContentType: "text/html"},
		},
	}

	engine := newTestEngine(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dets, warnings := engine.Detect(tc.outcome, pageURL)
			if len(dets) != 0 {
				t.Errorf("expected no detections, got %v", dets)
			}
			if len(warnings) != 1 {
				t.Fatalf("expected one warning, got %v", warnings)
			}
			if warnings[0].Message == "" {
				t.Error("warning message is empty")
			}
		})
	}
}

func TestEngineMergeKeepsHighestRisk(t *testing.T) {
	t.Parallel()

	body := `<script>track('signup')</script><script>var c=document.createElement('canvas');c.toDataURL();</script>`
	dets, _ := newTestEngine(t).Detect(htmlOutcome(body), pageURL)
	if len(dets) != 1 {
		t.Fatalf("got %d detections, want 1: %+v", len(dets), dets)
	}
	if dets[0].RiskLevel != model.RiskCritical {
		t.Errorf("RiskLevel = %v, want critical", dets[0].RiskLevel)
	}
	if dets[0].Category != model.CategoryPrivacyInvasion {
		t.Errorf("Category = %q, want %q", dets[0].Category, model.CategoryPrivacyInvasion)
	}
}

func TestEngineWithRuleSet(t *testing.T) {
	t.Parallel()

	body := `<meta name="google-site-verification" content="x"><img src="https://doubleclick.net/a.gif" width="1" height="1">`
	reg, err := registry.Default()
	if err != nil {
		t.Fatal(err)
	}
	engine := NewEngine(reg, WithRuleSet(RuleSet{MetaDetector{}}))
	dets, _ := engine.Detect(htmlOutcome(body), pageURL)
	if len(dets) != 1 || dets[0].Kind != model.KindMetaTag {
		t.Errorf("expected only the meta detection, got %+v", dets)
	}
}

func TestNewEngineNilRegistry(t *testing.T) {
	t.Parallel()

	body := `<img src="https://doubleclick.net/a.gif" width="1" height="1">`
	dets, _ := NewEngine(nil).Detect(htmlOutcome(body), pageURL)
	if len(dets) != 1 || dets[0].Category != model.CategoryUnknown {
		t.Errorf("expected one unknown detection, got %+v", dets)
	}
}

func TestDefaultRuleSetCoversEveryKind(t *testing.T) {
	t.Parallel()

	got := DefaultRuleSet().Kinds()
	if !reflect.DeepEqual(got, model.AllTrackerKinds) {
		t.Errorf("Kinds() = %v, want %v", got, model.AllTrackerKinds)
	}
}
