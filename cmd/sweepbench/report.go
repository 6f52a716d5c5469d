package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/weiihann/sweepbench/report"
)

func newPlotCmd(logger *slog.Logger) *cobra.Command {
	var (
		input  string
		output string
		title  string
	)

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render a results table as a PNG chart",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, layout, err := report.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read results: %w", err)
			}

			cfg := report.DefaultChartConfig()
			if title != "" {
				cfg.Title = title
			}

			if err := report.Plot(output, rows, cfg); err != nil {
				return fmt.Errorf("plot: %w", err)
			}

			logger.InfoContext(cmd.Context(), "chart written",
				slog.String("path", output),
				slog.String("layout", string(layout)),
				slog.Int("records", len(rows)),
			)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&input, "input", "",
		"Path of the CSV results table")
	flags.StringVar(&output, "output", "results.png",
		"Path of the PNG chart")
	flags.StringVar(&title, "title", "",
		"Chart title")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func newSummaryCmd() *cobra.Command {
	var (
		input      string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a results table as markdown or JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, _, err := report.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read results: %w", err)
			}

			return summarize(cmd.OutOrStdout(), rows, outputJSON)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&input, "input", "",
		"Path of the CSV results table")
	flags.BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of table")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}
