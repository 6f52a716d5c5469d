package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/weiihann/sweepbench/workload"
)

var tpchBindings = map[string]string{
	"tpch.data_dir":     "data-dir",
	"tpch.densities":    "densities",
	"tpch.line_items":   "rows",
	"tpch.hidden":       "hidden",
	"tpch.operations":   "ops",
	"tpch.repetitions":  "repetitions",
	"tpch.warmup":       "warmup",
	"tpch.threads":      "threads",
	"tpch.seed":         "seed",
	"tpch.output":       "output",
	"tpch.layout":       "layout",
	"tpch.metrics_file": "metrics-file",
}

func newTPCHCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "tpch",
		Short: "Time join-then-analytics operations on TPC-H tables",
		Long: `Join lineitem with its dimension tables (star join) or with itself
(self join), then time linear regression, logistic regression, covariance
and a neural network forward pass on the one-hot encoded result.

With --data-dir the .tbl files in that directory are measured once.
Otherwise a synthetic dataset is generated for every density, with
categorical columns of about 1/density distinct values.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, level, tpchBindings)
			if err != nil {
				return err
			}

			t := cfg.TPCH
			if err := t.Validate(); err != nil {
				return err
			}

			wcfg := t.Workload()
			src := workload.SyntheticSource(wcfg, workload.NewRand(wcfg.Seed))
			sweep := t.Densities

			if t.DataDir != "" {
				logger.InfoContext(cmd.Context(), "loading dataset", slog.String("dir", t.DataDir))

				ds, err := workload.LoadDataset(t.DataDir)
				if err != nil {
					return fmt.Errorf("load dataset: %w", err)
				}

				src = workload.StaticSource(ds)
				sweep = []float64{0}
			}

			factory, err := workload.TPCHFactory(src, wcfg, t.Backend())
			if err != nil {
				return err
			}

			return runSweep(cmd.Context(), logger, cmd.OutOrStdout(),
				t.Run, sweep, factory, outputJSON)
		},
	}

	def := workload.DefaultTPCHConfig()

	flags := cmd.Flags()
	flags.String("data-dir", "",
		"Directory holding lineitem, orders, customer, supplier and part .tbl files")
	flags.StringSlice("densities", nil,
		"Synthetic one-hot densities to sweep, in order (default 1,0.1,0.01)")
	flags.Int("rows", def.LineItems,
		"Synthetic lineitem rows")
	flags.Int("hidden", def.Hidden,
		"Hidden layer width of the neural network")
	flags.StringSlice("ops", nil,
		"Operations to run (default all)")
	flags.Int("repetitions", 4,
		"Timed repetitions per operation, warm-up included")
	flags.Int("warmup", 1,
		"Leading repetitions discarded from the average")
	flags.Int("threads", 1,
		"Number of threads for the whole process")
	flags.Int64("seed", 0,
		"Random seed (0 = use current time)")
	flags.String("output", "",
		"Path of the CSV results table")
	flags.String("layout", "sweep",
		"CSV layout: sweep, execute (execute needs a single density or --data-dir)")
	flags.String("metrics-file", "",
		"Path of a Prometheus textfile with per-sample metrics")
	flags.BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of table")

	return cmd
}
