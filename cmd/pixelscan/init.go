package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/pixelscan/internal/config"
)

//go:embed templates/pixelscan.yaml
var configTemplate []byte

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a pixelscan configuration file",
		Long: `Init writes a commented .pixelscan.yaml to the current directory.

The generated file documents:
- Scan limits: concurrency, rate limit, timeout, retries
- Scoring weights and risk thresholds
- Per-site headers and consent cookies
- Extra tracker domains for the registry

Examples:
  # Create .pixelscan.yaml in the current directory
  pixelscan init

  # Create the file at a specific path
  pixelscan init -o ~/.config/pixelscan/config.yaml

  # Overwrite an existing file
  pixelscan init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile, "Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false, "Overwrite existing configuration file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, configTemplate, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - Consent cookies and headers per site")
	fmt.Fprintln(out, "  - Scoring weights and risk thresholds")
	fmt.Fprintln(out, "  - Additional tracker domains")
	return nil
}
