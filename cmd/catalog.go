package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/baseline-analyzer/internal/features"
)

func newCatalogCmd() *cobra.Command {
	var (
		year    int
		feature string
	)
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Summarize the configured feature catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			catalog, err := features.LoadCatalogFile(rt.cfg.Features.CatalogPath)
			if err != nil {
				return fmt.Errorf("load feature catalog: %w", err)
			}

			out := cmd.OutOrStdout()
			if feature != "" {
				return printFeature(out, catalog, feature)
			}
			fmt.Fprintf(out, "features: %d\n", catalog.Len())
			for _, y := range []int{features.Year2024, features.Year2025} {
				fmt.Fprintf(out, "baseline %d: %d\n", y, len(catalog.Partition(y)))
			}
			if year == 0 {
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tIMPACT")
			for _, f := range catalog.Partition(year) {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Name, f.Category(), f.Impact())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "list the features of one Baseline year (2024 or 2025)")
	cmd.Flags().StringVar(&feature, "feature", "", "show one feature by id")
	return cmd
}

func printFeature(out io.Writer, catalog *features.Catalog, id string) error {
	f, ok := catalog.Lookup(id)
	if !ok {
		return fmt.Errorf("feature %q is not in the catalog", id)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", f.ID)
	fmt.Fprintf(tw, "name:\t%s\n", f.Name)
	fmt.Fprintf(tw, "category:\t%s\n", f.Category())
	fmt.Fprintf(tw, "baseline:\t%s\n", f.Status.Baseline)
	if y, ok := f.BaselineYear(); ok {
		fmt.Fprintf(tw, "since:\t%d\n", y)
	}
	fmt.Fprintf(tw, "impact:\t%s\n", f.Impact())
	if f.Spec != "" {
		fmt.Fprintf(tw, "spec:\t%s\n", f.Spec)
	}
	return tw.Flush()
}
