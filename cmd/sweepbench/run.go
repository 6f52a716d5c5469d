package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/weiihann/sweepbench/config"
	"github.com/weiihann/sweepbench/harness"
	"github.com/weiihann/sweepbench/metrics"
	"github.com/weiihann/sweepbench/report"
)

// applyThreads fixes the number of OS threads executing Go code for the
// rest of the process. gonum's BLAS splits large products across that many
// workers.
func applyThreads(logger *slog.Logger, threads int) {
	prev := runtime.GOMAXPROCS(threads)

	logger.Debug("thread count applied",
		slog.Int("threads", threads),
		slog.Int("previous", prev),
	)
}

// runSweep times factory over sweep and writes every configured output.
// Records measured before a failure are still written; the failure is
// returned afterwards.
func runSweep(
	ctx context.Context,
	logger *slog.Logger,
	out io.Writer,
	run config.Run,
	sweep []float64,
	factory harness.Factory[float64],
	outputJSON bool,
) error {
	layout, err := report.ParseLayout(run.Layout)
	if err != nil {
		return err
	}

	backend := run.Backend()
	applyThreads(logger, backend.Threads)

	rec := metrics.NewRecorder()
	runner := harness.NewRunner(
		run.Harness(backend.Method()), logger, harness.WithObserver(rec),
	)

	logger.InfoContext(ctx, "starting sweep",
		slog.String("method", backend.Method()),
		slog.Any("sweep", sweep),
		slog.Int("repetitions", run.Repetitions),
		slog.Int("warmup", run.Warmup),
	)

	records, runErr := harness.RunSweep(ctx, runner, sweep, factory)
	rows := report.FromRecords(records)

	for _, r := range rows {
		rec.RecordAverage(r.Method, r.Algorithm, r.Sweep, r.Seconds)
	}

	if run.Output != "" {
		if err := report.WriteFile(run.Output, layout, rows); err != nil {
			return errors.Join(runErr, fmt.Errorf("write results: %w", err))
		}

		logger.InfoContext(ctx, "results written",
			slog.String("path", run.Output),
			slog.Int("records", len(rows)),
		)
	}

	if run.MetricsFile != "" {
		if err := rec.WriteTextfile(run.MetricsFile); err != nil {
			return errors.Join(runErr, err)
		}
	}

	if len(rows) > 0 {
		if err := summarize(out, rows, outputJSON); err != nil {
			return errors.Join(runErr, err)
		}
	}

	if runErr != nil {
		return runErr
	}

	logger.InfoContext(ctx, "sweep complete", slog.Int("records", len(rows)))

	return nil
}

func summarize(w io.Writer, rows []report.Row, outputJSON bool) error {
	if outputJSON {
		if err := report.GenerateJSON(w, rows); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}

		return nil
	}

	if err := report.Generate(w, rows); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	return nil
}
