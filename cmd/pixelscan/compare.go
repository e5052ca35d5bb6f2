package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/pixelscan/internal/database"
	"github.com/nao1215/pixelscan/internal/report"
)

var (
	errNotEnoughScans  = errors.New("at least two completed scans are needed to compare")
	errScanNotFound    = errors.New("scan not found")
	errScanURLMismatch = errors.New("scan belongs to a different URL")
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <url>",
		Short: "Compare the latest scan of a URL with an earlier one",
		Long: `Compare shows what changed between two completed scans of the same URL:
- Trackers that appeared since the earlier scan
- Trackers that were removed
- The change in privacy score and risk level

By default the latest scan is compared with the one before it.

Examples:
  # Compare the latest two scans
  pixelscan compare https://example.com/

  # Compare the latest scan with scan #5 (see 'pixelscan history')
  pixelscan compare --with-scan-id 5 https://example.com/

  # Output the comparison as JSON
  pixelscan compare --json https://example.com/

  # List added and removed trackers as CSV
  pixelscan compare --csv https://example.com/ > changes.csv`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().Int64P("with-scan-id", "i", 0, "Compare with a specific scan by ID (see 'pixelscan history')")
	cmd.Flags().BoolP("json", "j", false, "Output comparison in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output comparison in Markdown format")
	cmd.Flags().Bool("csv", false, "Output added and removed trackers as CSV")
	cmd.Flags().String("db-dir", "", "Scan history directory (default: XDG data directory)")

	return cmd
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	withID, err := cmd.Flags().GetInt64("with-scan-id")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	asCSV, err := cmd.Flags().GetBool("csv")
	if err != nil {
		return err
	}
	format, err := selectFormat(asJSON, asMarkdown, asCSV)
	if err != nil {
		return err
	}

	db, err := openHistoryDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	c, err := buildComparison(cmd.Context(), db, args[0], withID)
	if err != nil {
		return err
	}
	return writeComparison(cmd.OutOrStdout(), c, format)
}

// buildComparison loads the scans to compare. withID selects the earlier
// scan; zero means the second most recent completed scan.
func buildComparison(ctx context.Context, db *database.ScanDB, url string, withID int64) (*report.Comparison, error) {
	latest, err := db.LatestScans(ctx, url, 2)
	if err != nil {
		return nil, err
	}

	var previous *database.ScanRecord
	if withID != 0 {
		previous, err = db.GetScan(ctx, withID)
		if err != nil {
			return nil, err
		}
		if previous == nil {
			return nil, fmt.Errorf("%w: #%d", errScanNotFound, withID)
		}
		if previous.URL != url {
			return nil, fmt.Errorf("%w: #%d is a scan of %s", errScanURLMismatch, withID, previous.URL)
		}
		if len(latest) == 0 || latest[0].ID == previous.ID {
			return nil, fmt.Errorf("%w: no newer scan of %s than #%d", errNotEnoughScans, url, withID)
		}
	} else {
		if len(latest) < 2 {
			return nil, fmt.Errorf("%w: %s has %d", errNotEnoughScans, url, len(latest))
		}
		previous = latest[1]
	}
	current := latest[0]

	c := report.Compare(previous.Result(), current.Result())
	c.PreviousID = previous.ID
	c.CurrentID = current.ID
	return c, nil
}

func writeComparison(w io.Writer, c *report.Comparison, format reportFormat) error {
	if _, err := newReportWriter(w, format, true).WriteComparison(c); err != nil {
		return fmt.Errorf("failed to write comparison: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
