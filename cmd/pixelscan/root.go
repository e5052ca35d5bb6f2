package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pixelscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pixelscan",
		Short: "Privacy scanner for tracking pixels and tracker scripts",
		Long: `pixelscan scans web pages for tracking pixels, third-party tracker scripts,
verification meta tags and CSS beacons, and rates each page with a privacy
score from 0 (heavily tracked) to 100 (no tracking found).

Scan results are kept in a local SQLite history so that later scans can be
compared with earlier ones.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewRegistryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
