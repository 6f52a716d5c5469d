// Package main provides the CLI entry point for sweepbench, a warm-up-aware
// micro-benchmark runner for matrix-chain and TPC-H analytics workloads
// under varying sparsity.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/weiihann/sweepbench/config"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(logger, level)
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("command failed", slog.String("err", err.Error()))
		stop()
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	root := &cobra.Command{
		Use:   "sweepbench",
		Short: "Sparsity sweep micro-benchmarks",
		Long: `Sweepbench times named operations over an ordered sweep of density
values. Each operation runs a fixed number of repetitions; the first warm-up
repetitions are discarded and the rest are averaged into one record per
method, algorithm and density.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "",
		"Path to a YAML config file (default: ./sweepbench.yaml if present)")
	flags.String("env-file", config.DefaultEnv,
		"Path to a .env file loaded before reading SWEEPBENCH_* variables")
	flags.String("log-level", "info",
		"Log level: debug, info, warn, error")

	root.AddCommand(
		newMatrixCmd(logger, level),
		newTPCHCmd(logger, level),
		newPlotCmd(logger),
		newSummaryCmd(),
	)

	return root
}

// loadConfig resolves the configuration for cmd, binding the given config
// keys to the command's flags, and applies the configured log level.
func loadConfig(
	cmd *cobra.Command,
	level *slog.LevelVar,
	bindings map[string]string,
) (config.Config, error) {
	flags := cmd.Flags()

	file, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, err
	}

	envFile, err := flags.GetString("env-file")
	if err != nil {
		return config.Config{}, err
	}

	all := map[string]string{"log_level": "log-level"}
	for k, v := range bindings {
		all[k] = v
	}

	cfg, err := config.Load(config.Source{
		File:     file,
		EnvFile:  envFile,
		Flags:    flags,
		Bindings: all,
	})
	if err != nil {
		return config.Config{}, err
	}

	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return config.Config{}, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}

	return cfg, nil
}
