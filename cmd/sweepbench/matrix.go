package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/weiihann/sweepbench/workload"
)

var matrixBindings = map[string]string{
	"matrix.densities":    "densities",
	"matrix.n":            "n",
	"matrix.a_density":    "a-density",
	"matrix.b_density":    "b-density",
	"matrix.format":       "format",
	"matrix.operations":   "ops",
	"matrix.repetitions":  "repetitions",
	"matrix.warmup":       "warmup",
	"matrix.threads":      "threads",
	"matrix.seed":         "seed",
	"matrix.output":       "output",
	"matrix.layout":       "layout",
	"matrix.metrics_file": "metrics-file",
}

func newMatrixCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Time matrix-chain products over a density sweep",
		Long: `Build random 0/1 operands A and B at fixed densities and C at each
sweep density, then time (A·B)·C, (C·B)·A, the sum of A·B·C and the
element-wise product A∘B∘C.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, level, matrixBindings)
			if err != nil {
				return err
			}

			m := cfg.Matrix
			if err := m.Validate(); err != nil {
				return err
			}

			factory, err := workload.MatrixFactory(m.Workload(), m.Backend())
			if err != nil {
				return err
			}

			return runSweep(cmd.Context(), logger, cmd.OutOrStdout(),
				m.Run, m.Densities, factory, outputJSON)
		},
	}

	def := workload.DefaultMatrixConfig()

	flags := cmd.Flags()
	flags.StringSlice("densities", nil,
		"Densities of C to sweep, in order (default 0.1,...,1e-6)")
	flags.Int("n", def.N,
		"Side length of the square operands")
	flags.Float64("a-density", def.ADensity,
		"Density of A")
	flags.Float64("b-density", def.BDensity,
		"Density of B")
	flags.String("format", def.Format,
		"Operand format: sparse, dense")
	flags.StringSlice("ops", nil,
		"Operations to run (default all): ABC, CBA, SUM(ABC), A*B*C")
	flags.Int("repetitions", 7,
		"Timed repetitions per operation, warm-up included")
	flags.Int("warmup", 2,
		"Leading repetitions discarded from the average")
	flags.Int("threads", 1,
		"Number of threads for the whole process")
	flags.Int64("seed", 0,
		"Random seed (0 = use current time)")
	flags.String("output", "",
		"Path of the CSV results table")
	flags.String("layout", "sweep",
		"CSV layout: sweep, execute")
	flags.String("metrics-file", "",
		"Path of a Prometheus textfile with per-sample metrics")
	flags.BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of table")

	return cmd
}
