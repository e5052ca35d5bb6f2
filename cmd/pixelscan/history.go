package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nao1215/pixelscan/internal/config"
	"github.com/nao1215/pixelscan/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show the scan history",
		Long: `History lists every URL in the scan history, or every scan of one URL.

Scan IDs shown here can be passed to 'pixelscan compare --with-scan-id'.

Examples:
  # List all scanned URLs
  pixelscan history

  # List the scans of one URL, newest first
  pixelscan history https://example.com/

  # Output as JSON
  pixelscan history --json https://example.com/

  # Find every site that embeds the same analytics account
  pixelscan history --tracking-id UA-1234567-1`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("db-dir", "", "Scan history directory (default: XDG data directory)")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().String("tracking-id", "", "List the sites whose scans contained this tracking ID")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	trackingID, err := cmd.Flags().GetString("tracking-id")
	if err != nil {
		return err
	}
	db, err := openHistoryDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if trackingID != "" {
		return listSitesWithTrackingID(cmd.Context(), db, trackingID, cmd.OutOrStdout(), asJSON)
	}
	if len(args) == 0 {
		return listURLs(cmd.Context(), db, cmd.OutOrStdout(), asJSON)
	}
	return listHistory(cmd.Context(), db, args[0], cmd.OutOrStdout(), asJSON)
}

// openHistoryDB opens an existing database from --db-dir or the XDG data
// directory.
func openHistoryDB(cmd *cobra.Command) (*database.ScanDB, error) {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}
	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func listURLs(ctx context.Context, db *database.ScanDB, w io.Writer, asJSON bool) error {
	urls, err := db.ListURLs(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, urls)
	}
	if len(urls) == 0 {
		fmt.Fprintln(w, "No scans found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tSITE\tSCANS\tLAST SCORE\tLAST SCAN")
	for _, u := range urls {
		score := "-"
		if u.HasScore {
			score = fmt.Sprintf("%d", u.LastScore)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", u.URL, u.Site, u.Scans, score, formatTime(u.LastScan))
	}
	return tw.Flush()
}

func listHistory(ctx context.Context, db *database.ScanDB, url string, w io.Writer, asJSON bool) error {
	history, err := db.History(ctx, url)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, history)
	}
	if len(history) == 0 {
		fmt.Fprintf(w, "No scans found for %s.\n", url)
		return nil
	}

	fmt.Fprintf(w, "Scan history for %s\n\n", url)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tSTATUS\tSCORE\tRISK\tATTEMPTS")
	for _, rec := range history {
		score, risk := "-", "-"
		if rec.HasAssessment {
			score = fmt.Sprintf("%d", rec.Score)
			risk = rec.RiskLevel.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n",
			rec.ID, formatTime(rec.CompletedAt), rec.Status, score, risk, rec.Attempts)
	}
	return tw.Flush()
}

func listSitesWithTrackingID(ctx context.Context, db *database.ScanDB, id string, w io.Writer, asJSON bool) error {
	sites, err := db.SitesWithTrackingID(ctx, id)
	if err != nil {
		return err
	}
	if asJSON {
		if sites == nil {
			sites = []string{}
		}
		return writeJSON(w, sites)
	}
	if len(sites) == 0 {
		fmt.Fprintf(w, "No scanned site contains %s.\n", id)
		return nil
	}
	fmt.Fprintf(w, "Sites containing %s:\n", id)
	for _, site := range sites {
		fmt.Fprintf(w, "  %s\n", site)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
