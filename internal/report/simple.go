package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/pixelscan/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text for the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose lists every detection instead of a per-result count.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every detection of every result.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the batch report.
func (w *SimpleWriter) Write(report *Report) (int, error) {
	var sb strings.Builder

	banner(&sb, "PIXELSCAN REPORT")
	fmt.Fprintf(&sb, "Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	w.writeSummary(&sb, report.Summary)
	for _, r := range report.Results {
		w.writeResult(&sb, r)
	}
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, s Summary) {
	section(sb, "SUMMARY")
	fmt.Fprintf(sb, "  URLs:       %d (completed %d, failed %d, cancelled %d)\n", s.Total, s.Completed, s.Failed, s.Cancelled)
	if s.Cached > 0 {
		fmt.Fprintf(sb, "  Cached:     %d\n", s.Cached)
	}
	if s.Completed > 0 {
		fmt.Fprintf(sb, "  Avg score:  %.1f/100\n", s.AverageScore)
	}
	for _, lvl := range riskOrder {
		if n := s.RiskCounts[lvl.String()]; n > 0 {
			fmt.Fprintf(sb, "    %-22s %d\n", strings.ToUpper(lvl.String()), n)
		}
	}
	fmt.Fprintf(sb, "  Detections: %d\n", s.TotalDetections)
	for _, cat := range s.SortedCategories() {
		fmt.Fprintf(sb, "    %-22s %d\n", CategoryTitle(cat), s.Categories[cat])
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeResult(sb *strings.Builder, r *model.ScanResult) {
	section(sb, r.URL)

	switch r.Status {
	case model.StatusCompleted:
		a := r.Assessment
		status := "completed"
		if r.Cached {
			status += " (cached)"
		}
		fmt.Fprintf(sb, "Status:     %s in %s\n", status, r.Duration.Round(time.Millisecond))
		if a != nil {
			fmt.Fprintf(sb, "Score:      %d/100 [%s]\n", a.Score, strings.ToUpper(a.RiskLevel.String()))
			fmt.Fprintf(sb, "GDPR/CCPA:  %d / %d\n", a.GDPRCount, a.CCPACount)
		}
	case model.StatusFailed:
		fmt.Fprintf(sb, "Status:     FAILED after %d attempt(s)\n", r.Attempts)
		if r.Error != nil {
			fmt.Fprintf(sb, "Error:      %s: %s\n", r.Error.Kind, r.Error.Message)
		}
	default:
		fmt.Fprintf(sb, "Status:     %s\n", strings.ToUpper(r.Status.String()))
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(sb, "Warning:    %s\n", warn.Message)
	}
	sb.WriteString("\n")

	if len(r.Detections) > 0 {
		if w.verbose {
			sb.WriteString("Trackers:\n")
			for _, d := range r.Detections {
				writeDetection(sb, "  *", d)
			}
		} else {
			fmt.Fprintf(sb, "Trackers:   %d detection(s)\n", len(r.Detections))
		}
		sb.WriteString("\n")
	}

	if len(r.TrackingIDs) > 0 {
		sb.WriteString("Tracking IDs:\n")
		for _, id := range r.TrackingIDs {
			fmt.Fprintf(sb, "  - %s (%s)\n", id.Value, id.Type)
		}
		sb.WriteString("\n")
	}

	if c := r.Consent; c != nil {
		fmt.Fprintf(sb, "Consent:    %s\n", consentSummary(c))
		fmt.Fprintf(sb, "Policies:   privacy %s, cookie %s\n\n", yesNo(c.PrivacyPolicy), yesNo(c.CookiePolicy))
	}

	if a := r.Assessment; a != nil && len(a.Recommendations) > 0 {
		sb.WriteString("Recommendations:\n")
		for _, rec := range a.Recommendations {
			fmt.Fprintf(sb, "  - %s\n", rec)
		}
		sb.WriteString("\n")
	}
}

// WriteComparison outputs the difference between two scans.
func (w *SimpleWriter) WriteComparison(c *Comparison) (int, error) {
	var sb strings.Builder

	banner(&sb, "PIXELSCAN COMPARISON")
	fmt.Fprintf(&sb, "URL:       %s\n", c.URL)
	fmt.Fprintf(&sb, "Previous:  %s (score %d, %s)\n", scanLabel(c.Previous, c.PreviousID), scoreOf(c.Previous), c.PreviousRisk)
	fmt.Fprintf(&sb, "Current:   %s (score %d, %s)\n", scanLabel(c.Current, c.CurrentID), scoreOf(c.Current), c.CurrentRisk)
	fmt.Fprintf(&sb, "Change:    %+d\n\n", c.ScoreDelta)

	if !c.HasChanges() {
		sb.WriteString("No changes since the previous scan.\n\n")
	}
	if len(c.Added) > 0 {
		section(&sb, "NEW TRACKERS")
		for _, d := range c.Added {
			writeDetection(&sb, "  [+]", d)
		}
		sb.WriteString("\n")
	}
	if len(c.Removed) > 0 {
		section(&sb, "REMOVED TRACKERS")
		for _, d := range c.Removed {
			writeDetection(&sb, "  [-]", d)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	return w.output.Write([]byte(sb.String()))
}

func writeDetection(sb *strings.Builder, bullet string, d model.TrackerDetection) {
	fmt.Fprintf(sb, "%s %-14s %-28s %-8s %s\n", bullet, d.Kind, d.Domain, d.RiskLevel, CategoryTitle(d.Category))
	if d.SourceURL != "" {
		fmt.Fprintf(sb, "      %s\n", truncateString(d.SourceURL, 80))
	}
}

func banner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	pad := max((ruleWidth-len(title))/2, 0)
	sb.WriteString(strings.Repeat(" ", pad))
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
}

func scanLabel(r *model.ScanResult, id int64) string {
	date := r.CompletedAt.Format("2006-01-02 15:04:05")
	if id > 0 {
		return fmt.Sprintf("#%d %s", id, date)
	}
	return date
}

func scoreOf(r *model.ScanResult) int {
	if r.Assessment == nil {
		return 0
	}
	return r.Assessment.Score
}
