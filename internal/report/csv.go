package report

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/pixelscan/internal/model"
)

var csvHeader = []string{
	"url", "status", "completed_at", "duration_ms", "score", "risk_level",
	"trackers", "gdpr", "ccpa", "categories", "top_domains", "tracking_ids",
	"consent_platforms", "privacy_policy", "cookie_policy", "error",
}

var csvComparisonHeader = []string{"change", "kind", "domain", "company", "category", "risk_level", "source_url"}

// topDomainCount is the number of domains listed per result.
const topDomainCount = 3

// CSVWriter outputs one row per result, for spreadsheets.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs a header row and one row per result.
func (w *CSVWriter) Write(report *Report) (int, error) {
	rows := make([][]string, 0, len(report.Results)+1)
	rows = append(rows, csvHeader)
	for _, r := range report.Results {
		rows = append(rows, csvRow(r))
	}
	return w.writeAll(rows)
}

// WriteComparison outputs one row per added or removed detection.
func (w *CSVWriter) WriteComparison(c *Comparison) (int, error) {
	rows := make([][]string, 0, len(c.Added)+len(c.Removed)+1)
	rows = append(rows, csvComparisonHeader)
	for _, d := range c.Added {
		rows = append(rows, comparisonRow("added", d))
	}
	for _, d := range c.Removed {
		rows = append(rows, comparisonRow("removed", d))
	}
	return w.writeAll(rows)
}

func (w *CSVWriter) writeAll(rows [][]string) (int, error) {
	var buf bytes.Buffer
	if err := csv.NewWriter(&buf).WriteAll(rows); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

func csvRow(r *model.ScanResult) []string {
	row := []string{
		r.URL,
		r.Status.String(),
		"",
		strconv.FormatInt(r.Duration.Milliseconds(), 10),
		"", "",
		strconv.Itoa(len(r.Detections)),
		"", "", "",
		strings.Join(topDomains(r.Detections, topDomainCount), " "),
		"", "", "", "", "",
	}
	if !r.CompletedAt.IsZero() {
		row[2] = r.CompletedAt.UTC().Format(time.RFC3339)
	}
	if a := r.Assessment; a != nil {
		row[4] = strconv.Itoa(a.Score)
		row[5] = a.RiskLevel.String()
		row[7] = strconv.Itoa(a.GDPRCount)
		row[8] = strconv.Itoa(a.CCPACount)
		row[9] = strings.Join(a.Categories, " ")
	}
	ids := make([]string, len(r.TrackingIDs))
	for i, id := range r.TrackingIDs {
		ids[i] = id.Value
	}
	row[11] = strings.Join(ids, " ")
	if c := r.Consent; c != nil {
		row[12] = strings.Join(c.Platforms, " ")
		row[13] = yesNo(c.PrivacyPolicy)
		row[14] = yesNo(c.CookiePolicy)
	}
	if r.Error != nil {
		row[15] = r.Error.Message
	}
	return row
}

// topDomains returns up to n distinct detection domains in detection order.
func topDomains(dets []model.TrackerDetection, n int) []string {
	seen := make(map[string]bool, len(dets))
	var out []string
	for _, d := range dets {
		if len(out) == n {
			break
		}
		if seen[d.Domain] {
			continue
		}
		seen[d.Domain] = true
		out = append(out, d.Domain)
	}
	return out
}

func comparisonRow(change string, d model.TrackerDetection) []string {
	return []string{
		change,
		d.Kind.String(),
		d.Domain,
		d.Company,
		d.Category,
		d.RiskLevel.String(),
		d.SourceURL,
	}
}
