package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/baseline-analyzer/internal/app"
	"github.com/JakeFAU/baseline-analyzer/internal/clock/system"
	"github.com/JakeFAU/baseline-analyzer/internal/config"
	"github.com/JakeFAU/baseline-analyzer/internal/report"
)

func newAnalyzeCmd() *cobra.Command {
	var reportType, reportFormat string
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze one site and print the result or a report",
		Long: `Runs a single synchronous analysis. Without --report the full result is
printed as JSON; with --report the chosen report type is rendered in
--format (json or markdown).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			cfg := rt.cfg
			// The one-shot path never queues jobs or exports reports.
			cfg.PubSub.Enabled = false
			cfg.Storage.Reports.Backend = config.BackendNone

			a, err := app.New(cmd.Context(), cfg, rt.logger, Version)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			defer a.Close()

			result, err := a.Analyzer().Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.Store().SaveAnalysis(cmd.Context(), result); err != nil {
				return fmt.Errorf("save analysis: %w", err)
			}

			if reportType == "" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			typ, err := report.ParseType(reportType)
			if err != nil {
				return err
			}
			format, err := report.ParseFormat(reportFormat)
			if err != nil {
				return err
			}
			doc, err := report.NewGenerator(system.New()).Render(result, typ, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(doc.Body)
			return err
		},
	}
	cmd.Flags().StringVar(&reportType, "report", "", "render a report: detailed, executive or compliance")
	cmd.Flags().StringVar(&reportFormat, "format", "markdown", "report format: json or markdown")
	return cmd
}
