package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/sweepbench/harness"
	"github.com/weiihann/sweepbench/report"
	"github.com/weiihann/sweepbench/workload"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(Source{})
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 7, cfg.Matrix.Repetitions)
	assert.Equal(t, 2, cfg.Matrix.Warmup)
	assert.Equal(t, 1, cfg.Matrix.Threads)
	assert.Equal(t, []float64{1e-1, 1e-2, 1e-3, 1e-4, 1e-5, 1e-6}, cfg.Matrix.Densities)
	assert.Equal(t, string(report.LayoutSweep), cfg.Matrix.Layout)
	assert.Equal(t, workload.DefaultMatrixConfig().N, cfg.Matrix.N)

	assert.Equal(t, 4, cfg.TPCH.Repetitions)
	assert.Equal(t, 1, cfg.TPCH.Warmup)
	assert.Equal(t, string(report.LayoutSweep), cfg.TPCH.Layout)

	assert.NoError(t, cfg.Matrix.Validate())
	assert.NoError(t, cfg.TPCH.Validate())
}

func TestLoadPrecedence(t *testing.T) {
	t.Chdir(t.TempDir())

	file := writeFile(t, "bench.yaml", `
log_level: debug
matrix:
  repetitions: 9
  warmup: 3
  threads: 2
  densities: [0.5, 0.25]
  format: dense
tpch:
  data_dir: /data/tpch
`)

	t.Setenv("SWEEPBENCH_MATRIX_WARMUP", "4")
	t.Setenv("SWEEPBENCH_MATRIX_THREADS", "3")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("threads", 1, "")
	flags.Int("n", 100, "")
	require.NoError(t, flags.Parse([]string{"--threads=8"}))

	cfg, err := Load(Source{
		File:     file,
		Flags:    flags,
		Bindings: map[string]string{"matrix.threads": "threads", "matrix.n": "n"},
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9, cfg.Matrix.Repetitions, "file over default")
	assert.Equal(t, 4, cfg.Matrix.Warmup, "env over file")
	assert.Equal(t, 8, cfg.Matrix.Threads, "flag over env")
	assert.Equal(t, workload.DefaultMatrixConfig().N, cfg.Matrix.N, "unset flag does not override")
	assert.Equal(t, []float64{0.5, 0.25}, cfg.Matrix.Densities)
	assert.Equal(t, workload.FormatDense, cfg.Matrix.Format)
	assert.Equal(t, "/data/tpch", cfg.TPCH.DataDir)
}

func TestLoadListsFromEnvAndFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SWEEPBENCH_MATRIX_DENSITIES", "0.1,0.01")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringSlice("ops", nil, "")
	require.NoError(t, flags.Parse([]string{"--ops=ABC,CBA"}))

	cfg, err := Load(Source{
		Flags:    flags,
		Bindings: map[string]string{"matrix.operations": "ops"},
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{0.1, 0.01}, cfg.Matrix.Densities)
	assert.Equal(t, []string{"ABC", "CBA"}, cfg.Matrix.Operations)
}

func TestLoadEnvFile(t *testing.T) {
	t.Chdir(t.TempDir())

	envFile := writeFile(t, ".env", "SWEEPBENCH_TPCH_REPETITIONS=6\n")

	// Registers cleanup for the variable godotenv is about to set.
	t.Setenv("SWEEPBENCH_TPCH_REPETITIONS", "")
	require.NoError(t, os.Unsetenv("SWEEPBENCH_TPCH_REPETITIONS"))

	cfg, err := Load(Source{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.TPCH.Repetitions)

	_, err = Load(Source{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	assert.NoError(t, err)
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sweepbench.yaml"), []byte("tpch:\n  hidden: 7\n"), 0o644))

	cfg, err := Load(Source{})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.TPCH.Hidden)
}

func TestLoadErrors(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(Source{File: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)

	bad := writeFile(t, "bad.yaml", "matrix: [unclosed\n")
	_, err = Load(Source{File: bad})
	assert.Error(t, err)

	_, err = Load(Source{
		Flags:    pflag.NewFlagSet("test", pflag.ContinueOnError),
		Bindings: map[string]string{"matrix.n": "nope"},
	})
	assert.ErrorContains(t, err, "--nope")
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	base, err := Load(Source{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"warmup equals repetitions", func(c *Config) { c.Matrix.Warmup = c.Matrix.Repetitions }, harness.ErrInvalidConfiguration},
		{"no threads", func(c *Config) { c.Matrix.Threads = 0 }, workload.ErrInvalidParameter},
		{"no densities", func(c *Config) { c.Matrix.Densities = nil }, ErrInvalid},
		{"density out of range", func(c *Config) { c.Matrix.Densities = []float64{0.1, 2} }, ErrInvalid},
		{"bad layout", func(c *Config) { c.Matrix.Layout = "wide" }, report.ErrUnknownLayout},
		{"execute layout with several densities", func(c *Config) { c.Matrix.Layout = string(report.LayoutExecute) }, ErrInvalid},
		{"unknown op", func(c *Config) { c.Matrix.Operations = []string{"ABCD"} }, workload.ErrUnknownOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Matrix.Validate(), tt.target)
		})
	}
}

func TestTPCHValidateDataDir(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(Source{})
	require.NoError(t, err)

	cfg.TPCH.Densities = nil
	assert.ErrorIs(t, cfg.TPCH.Validate(), ErrInvalid)

	cfg.TPCH.DataDir = "/data"
	assert.NoError(t, cfg.TPCH.Validate())

	// Loaded data is measured once, so the execute layout fits it.
	cfg.TPCH.Densities = []float64{1, 0.1}
	cfg.TPCH.Layout = string(report.LayoutExecute)
	assert.NoError(t, cfg.TPCH.Validate())
}

func TestExecuteLayoutSingleDensity(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(Source{})
	require.NoError(t, err)

	cfg.TPCH.Layout = string(report.LayoutExecute)
	assert.ErrorIs(t, cfg.TPCH.Validate(), ErrInvalid)

	cfg.TPCH.Densities = []float64{0.5}
	assert.NoError(t, cfg.TPCH.Validate())
}

func TestRunConversions(t *testing.T) {
	r := Run{Repetitions: 5, Warmup: 2, Threads: 4}

	assert.Equal(t, harness.Config{Method: "m", Repetitions: 5, Warmup: 2}, r.Harness("m"))
	assert.Equal(t, "Gonum (Parallel)", r.Backend().Method())
}
