package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/pixelscan/internal/model"
)

// MarkdownWriter outputs reports as GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the batch report.
func (w *MarkdownWriter) Write(report *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Pixelscan Report")
	md.PlainText("")
	md.PlainTextf("Generated %s", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	md.PlainText("")

	w.writeSummary(md, report.Summary)
	for _, r := range report.Results {
		w.writeResult(md, r)
	}
	writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s Summary) {
	md.H2("Summary")
	md.PlainText("")

	rows := [][]string{
		{"URLs", strconv.Itoa(s.Total)},
		{"Completed", strconv.Itoa(s.Completed)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Cancelled", strconv.Itoa(s.Cancelled)},
		{"Detections", strconv.Itoa(s.TotalDetections)},
	}
	if s.Completed > 0 {
		rows = append(rows, []string{"Average score", fmt.Sprintf("%.1f/100", s.AverageScore)})
	}
	md.Table(markdown.TableSet{Header: []string{"Metric", "Value"}, Rows: rows})
	md.PlainText("")

	if len(s.Categories) > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Trackers by Category"),
			piechart.WithShowData(true),
		)
		for _, cat := range s.SortedCategories() {
			chart.LabelAndIntValue(CategoryTitle(cat), uint64(s.Categories[cat])) //nolint:gosec // counts are non-negative
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case s.RiskCounts[model.RiskCritical.String()] > 0:
		md.Cautionf("%d page(s) use fingerprinting or other critical tracking.", s.RiskCounts[model.RiskCritical.String()])
	case s.RiskCounts[model.RiskHigh.String()] > 0:
		md.Warningf("%d page(s) carry high-risk cross-site trackers.", s.RiskCounts[model.RiskHigh.String()])
	case s.TotalDetections > 0:
		md.Note("Only low and medium risk trackers were found.")
	case s.Completed > 0:
		md.Tip("No trackers were found.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeResult(md *markdown.Markdown, r *model.ScanResult) {
	md.H2(r.URL)
	md.PlainText("")

	rows := [][]string{{"Status", statusText(r)}}
	if a := r.Assessment; a != nil {
		rows = append(rows,
			[]string{"Score", fmt.Sprintf("**%d**/100", a.Score)},
			[]string{"Risk", riskBadge(a.RiskLevel)},
			[]string{"GDPR relevant", strconv.Itoa(a.GDPRCount)},
			[]string{"CCPA relevant", strconv.Itoa(a.CCPACount)},
		)
	}
	if c := r.Consent; c != nil {
		rows = append(rows,
			[]string{"Consent", consentSummary(c)},
			[]string{"Privacy policy", yesNo(c.PrivacyPolicy)},
			[]string{"Cookie policy", yesNo(c.CookiePolicy)},
		)
	}
	if r.Error != nil {
		rows = append(rows, []string{"Error", r.Error.Kind.String() + ": " + r.Error.Message})
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	for _, warn := range r.Warnings {
		md.Importantf("Content could not be parsed: %s", warn.Message)
		md.PlainText("")
	}

	if len(r.Detections) > 0 {
		md.PlainText("### Trackers")
		md.PlainText("")
		writeDetectionTable(md, r.Detections)
	}

	if len(r.TrackingIDs) > 0 {
		md.PlainText("### Tracking IDs")
		md.PlainText("")
		rows := make([][]string, 0, len(r.TrackingIDs))
		for _, id := range r.TrackingIDs {
			rows = append(rows, []string{"`" + id.Value + "`", id.Type})
		}
		md.Table(markdown.TableSet{Header: []string{"ID", "Service"}, Rows: rows})
		md.PlainText("")
	}

	if a := r.Assessment; a != nil && len(a.Recommendations) > 0 {
		md.PlainText("### Recommendations")
		md.PlainText("")
		md.BulletList(a.Recommendations...)
		md.PlainText("")
	}
}

// WriteComparison outputs the difference between two scans.
func (w *MarkdownWriter) WriteComparison(c *Comparison) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Pixelscan Comparison")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"", "Previous", "Current"},
		Rows: [][]string{
			{"Scan", scanLabel(c.Previous, c.PreviousID), scanLabel(c.Current, c.CurrentID)},
			{"Score", strconv.Itoa(scoreOf(c.Previous)), strconv.Itoa(scoreOf(c.Current))},
			{"Risk", riskBadge(c.PreviousRisk), riskBadge(c.CurrentRisk)},
			{"Trackers", strconv.Itoa(len(c.Previous.Detections)), strconv.Itoa(len(c.Current.Detections))},
		},
	})
	md.PlainText("")

	switch {
	case c.ScoreDelta < 0:
		md.Warningf("Score dropped by %d point(s) on %s.", -c.ScoreDelta, c.URL)
	case c.ScoreDelta > 0:
		md.Tip(fmt.Sprintf("Score improved by %d point(s) on %s.", c.ScoreDelta, c.URL))
	case !c.HasChanges():
		md.Note("No changes since the previous scan.")
	}
	md.PlainText("")

	if len(c.Added) > 0 {
		md.H2("New Trackers")
		md.PlainText("")
		writeDetectionTable(md, c.Added)
	}
	if len(c.Removed) > 0 {
		md.H2("Removed Trackers")
		md.PlainText("")
		writeDetectionTable(md, c.Removed)
	}
	writeFooter(md)

	return len(md.String()), md.Build()
}

func writeDetectionTable(md *markdown.Markdown, dets []model.TrackerDetection) {
	rows := make([][]string, len(dets))
	for i, d := range dets {
		rows[i] = []string{
			d.Kind.String(),
			"`" + d.Domain + "`",
			orDash(d.Company),
			CategoryTitle(d.Category),
			riskBadge(d.RiskLevel),
			truncateString(orDash(d.SourceURL), 60),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Domain", "Company", "Category", "Risk", "Source"},
		Rows:   rows,
	})
	md.PlainText("")
}

func statusText(r *model.ScanResult) string {
	switch r.Status {
	case model.StatusCompleted:
		if r.Cached {
			return "✅ Completed (cached)"
		}
		return "✅ Completed"
	case model.StatusFailed:
		return fmt.Sprintf("❌ Failed after %d attempt(s)", r.Attempts)
	case model.StatusCancelled:
		return "⚠️ Cancelled"
	default:
		return r.Status.String()
	}
}

func riskBadge(level model.RiskLevel) string {
	switch level {
	case model.RiskCritical:
		return "🔴 Critical"
	case model.RiskHigh:
		return "🟠 High"
	case model.RiskMedium:
		return "🟡 Medium"
	default:
		return "🔵 Low"
	}
}

func writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [pixelscan](https://github.com/nao1215/pixelscan)*")
}
