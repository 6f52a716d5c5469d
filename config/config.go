// Package config loads benchmark settings from defaults, a YAML file,
// SWEEPBENCH_* environment variables (optionally seeded from a .env file)
// and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/weiihann/sweepbench/harness"
	"github.com/weiihann/sweepbench/report"
	"github.com/weiihann/sweepbench/workload"
)

const (
	// EnvPrefix prefixes every environment variable, e.g.
	// SWEEPBENCH_MATRIX_WARMUP for matrix.warmup.
	EnvPrefix = "SWEEPBENCH"
	// DefaultFile is the config file name searched for in the working
	// directory, without extension.
	DefaultFile = "sweepbench"
	// DefaultEnv is the .env file loaded when no other is given.
	DefaultEnv = ".env"
)

// ErrInvalid is returned for sweep settings outside their valid range.
var ErrInvalid = errors.New("invalid configuration")

// Run holds the settings shared by every sweep.
type Run struct {
	Repetitions int       `mapstructure:"repetitions"`
	Warmup      int       `mapstructure:"warmup"`
	Threads     int       `mapstructure:"threads"`
	Densities   []float64 `mapstructure:"densities"`
	Output      string    `mapstructure:"output"`
	Layout      string    `mapstructure:"layout"`
	MetricsFile string    `mapstructure:"metrics_file"`
}

// Matrix configures the matrix-chain sweep.
type Matrix struct {
	Run        `mapstructure:",squash"`
	N          int      `mapstructure:"n"`
	ADensity   float64  `mapstructure:"a_density"`
	BDensity   float64  `mapstructure:"b_density"`
	Format     string   `mapstructure:"format"`
	Seed       int64    `mapstructure:"seed"`
	Operations []string `mapstructure:"operations"`
}

// TPCH configures the TPC-H analytics sweep. DataDir selects .tbl files on
// disk; when empty a synthetic dataset is generated per density.
type TPCH struct {
	Run           `mapstructure:",squash"`
	DataDir       string   `mapstructure:"data_dir"`
	LineItems     int      `mapstructure:"line_items"`
	Orders        int      `mapstructure:"orders"`
	Customers     int      `mapstructure:"customers"`
	Suppliers     int      `mapstructure:"suppliers"`
	Parts         int      `mapstructure:"parts"`
	MaxCategories int      `mapstructure:"max_categories"`
	Hidden        int      `mapstructure:"hidden"`
	Seed          int64    `mapstructure:"seed"`
	Operations    []string `mapstructure:"operations"`
}

// Config is the fully resolved configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	Matrix   Matrix `mapstructure:"matrix"`
	TPCH     TPCH   `mapstructure:"tpch"`
}

// Source describes where configuration is read from.
type Source struct {
	// File is an explicit config file. When empty, sweepbench.yaml is looked
	// up in the working directory and skipped if absent.
	File string
	// EnvFile is loaded into the process environment when it exists.
	// Variables already set take precedence.
	EnvFile string
	// Flags and Bindings map config keys (e.g. "matrix.warmup") to flag
	// names. Only flags set on the command line override other sources.
	Flags    *pflag.FlagSet
	Bindings map[string]string
}

func setDefaults(v *viper.Viper) {
	m := workload.DefaultMatrixConfig()
	t := workload.DefaultTPCHConfig()

	v.SetDefault("log_level", "info")

	v.SetDefault("matrix.repetitions", 7)
	v.SetDefault("matrix.warmup", 2)
	v.SetDefault("matrix.threads", 1)
	v.SetDefault("matrix.densities", []float64{1e-1, 1e-2, 1e-3, 1e-4, 1e-5, 1e-6})
	v.SetDefault("matrix.output", "")
	v.SetDefault("matrix.layout", string(report.LayoutSweep))
	v.SetDefault("matrix.metrics_file", "")
	v.SetDefault("matrix.n", m.N)
	v.SetDefault("matrix.a_density", m.ADensity)
	v.SetDefault("matrix.b_density", m.BDensity)
	v.SetDefault("matrix.format", m.Format)
	v.SetDefault("matrix.seed", m.Seed)
	v.SetDefault("matrix.operations", []string{})

	v.SetDefault("tpch.repetitions", 4)
	v.SetDefault("tpch.warmup", 1)
	v.SetDefault("tpch.threads", 1)
	v.SetDefault("tpch.densities", []float64{1, 1e-1, 1e-2})
	v.SetDefault("tpch.output", "")
	v.SetDefault("tpch.layout", string(report.LayoutSweep))
	v.SetDefault("tpch.metrics_file", "")
	v.SetDefault("tpch.data_dir", "")
	v.SetDefault("tpch.line_items", t.LineItems)
	v.SetDefault("tpch.orders", t.Orders)
	v.SetDefault("tpch.customers", t.Customers)
	v.SetDefault("tpch.suppliers", t.Suppliers)
	v.SetDefault("tpch.parts", t.Parts)
	v.SetDefault("tpch.max_categories", t.MaxCategories)
	v.SetDefault("tpch.hidden", t.Hidden)
	v.SetDefault("tpch.seed", t.Seed)
	v.SetDefault("tpch.operations", []string{})
}

// Load resolves the configuration from src. The result is not validated;
// callers validate the section they run.
func Load(src Source) (Config, error) {
	if src.EnvFile != "" {
		if err := godotenv.Load(src.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", src.EnvFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if src.File != "" {
		v.SetConfigFile(src.File)
	} else {
		v.SetConfigName(DefaultFile)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if src.File != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	for key, name := range src.Bindings {
		if src.Flags == nil {
			break
		}

		f := src.Flags.Lookup(name)
		if f == nil {
			return Config{}, fmt.Errorf("bind %s: unknown flag --%s", key, name)
		}

		if err := v.BindPFlag(key, f); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// Harness returns the runner configuration for method.
func (r Run) Harness(method string) harness.Config {
	return harness.Config{
		Method:      method,
		Repetitions: r.Repetitions,
		Warmup:      r.Warmup,
	}
}

// Backend returns the compute backend the sweep runs on.
func (r Run) Backend() workload.Backend {
	return workload.Backend{Name: "Gonum", Threads: r.Threads}
}

// Validate checks the settings shared by every sweep.
func (r Run) Validate() error {
	if err := r.Harness(r.Backend().Method()).Validate(); err != nil {
		return err
	}

	if err := r.Backend().Validate(); err != nil {
		return err
	}

	if len(r.Densities) == 0 {
		return fmt.Errorf("%w: no densities", ErrInvalid)
	}

	for _, d := range r.Densities {
		if !(d >= 0 && d <= 1) {
			return fmt.Errorf("%w: density %g, want [0, 1]", ErrInvalid, d)
		}
	}

	layout, err := report.ParseLayout(r.Layout)
	if err != nil {
		return err
	}

	// The execute layout has no sparsity column to tell sweep values apart.
	if layout == report.LayoutExecute && len(r.Densities) > 1 {
		return fmt.Errorf("%w: layout %s holds a single sweep value, got %d",
			ErrInvalid, layout, len(r.Densities))
	}

	return nil
}

// Workload converts the section into the matrix workload configuration.
func (m Matrix) Workload() workload.MatrixConfig {
	return workload.MatrixConfig{
		N:          m.N,
		ADensity:   m.ADensity,
		BDensity:   m.BDensity,
		Format:     m.Format,
		Seed:       m.Seed,
		Operations: m.Operations,
	}
}

// Validate checks the matrix section.
func (m Matrix) Validate() error {
	if err := m.Run.Validate(); err != nil {
		return fmt.Errorf("matrix: %w", err)
	}

	if err := m.Workload().Validate(); err != nil {
		return fmt.Errorf("matrix: %w", err)
	}

	return nil
}

// Workload converts the section into the TPC-H workload configuration.
func (t TPCH) Workload() workload.TPCHConfig {
	return workload.TPCHConfig{
		LineItems:     t.LineItems,
		Orders:        t.Orders,
		Customers:     t.Customers,
		Suppliers:     t.Suppliers,
		Parts:         t.Parts,
		MaxCategories: t.MaxCategories,
		Hidden:        t.Hidden,
		Seed:          t.Seed,
		Operations:    t.Operations,
	}
}

// Validate checks the TPC-H section. A dataset loaded from disk is measured
// once at sweep value 0, so its densities are ignored.
func (t TPCH) Validate() error {
	run := t.Run
	if t.DataDir != "" {
		run.Densities = []float64{0}
	}

	if err := run.Validate(); err != nil {
		return fmt.Errorf("tpch: %w", err)
	}

	if err := t.Workload().Validate(); err != nil {
		return fmt.Errorf("tpch: %w", err)
	}

	return nil
}
