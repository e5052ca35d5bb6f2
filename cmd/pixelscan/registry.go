package main

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nao1215/pixelscan/internal/model"
	"github.com/nao1215/pixelscan/internal/registry"
	"github.com/nao1215/pixelscan/internal/report"
)

// NewRegistryCmd creates the registry command.
func NewRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Show the known tracker domains",
		Long: `Registry prints statistics about the tracker domains pixelscan knows:
the number of domains and companies, the split by category and risk level,
and how many are relevant under GDPR and CCPA.

Examples:
  # Show statistics
  pixelscan registry

  # List every domain, including those from an extension file
  pixelscan registry --list --registry extra.yaml`,
		Args: cobra.NoArgs,
		RunE: runRegistryCmd,
	}

	cmd.Flags().BoolP("list", "l", false, "List every registered domain")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().String("registry", "", "YAML file with extra tracker domains")

	return cmd
}

func runRegistryCmd(cmd *cobra.Command, _ []string) error {
	list, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	path, err := cmd.Flags().GetString("registry")
	if err != nil {
		return err
	}

	var extra []model.DomainRecord
	if path != "" {
		if extra, err = registry.LoadFile(path); err != nil {
			return err
		}
	}
	reg, err := registry.Default(extra...)
	if err != nil {
		return fmt.Errorf("invalid registry: %w", err)
	}

	w := cmd.OutOrStdout()
	if asJSON {
		out := struct {
			Stats   registry.Stats       `json:"stats"`
			Records []model.DomainRecord `json:"records,omitempty"`
		}{Stats: reg.Stats()}
		if list {
			out.Records = reg.Records()
		}
		return writeJSON(w, out)
	}

	writeRegistryStats(w, reg.Stats())
	if list {
		fmt.Fprintln(w)
		return writeRegistryList(w, reg.Records())
	}
	return nil
}

func writeRegistryStats(w io.Writer, s registry.Stats) {
	fmt.Fprintf(w, "Domains:    %d\n", s.TotalDomains)
	fmt.Fprintf(w, "Companies:  %d\n", s.TotalCompanies)
	fmt.Fprintf(w, "GDPR:       %d\n", s.GDPRRelevant)
	fmt.Fprintf(w, "CCPA:       %d\n", s.CCPARelevant)

	fmt.Fprintln(w, "\nBy category:")
	cats := slices.Collect(maps.Keys(s.Categories))
	slices.SortFunc(cats, func(a, b string) int {
		if c := cmp.Compare(s.Categories[b], s.Categories[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	for _, c := range cats {
		fmt.Fprintf(w, "  %-24s %d\n", report.CategoryTitle(c), s.Categories[c])
	}

	fmt.Fprintln(w, "\nBy risk:")
	for _, lvl := range []model.RiskLevel{model.RiskCritical, model.RiskHigh, model.RiskMedium, model.RiskLow} {
		fmt.Fprintf(w, "  %-24s %d\n", lvl, s.RiskLevels[lvl])
	}
}

func writeRegistryList(w io.Writer, records []model.DomainRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOMAIN\tCOMPANY\tCATEGORY\tRISK\tGDPR\tCCPA")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Domain, r.Company, r.Category, r.RiskLevel, yesNo(r.GDPRRelevant), yesNo(r.CCPARelevant))
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
