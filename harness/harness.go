package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config holds the timing parameters applied to every sweep value.
type Config struct {
	// Method labels every record of the run, e.g. "Gonum (Serial)".
	Method string
	// Repetitions is the number of timed invocations per operation.
	Repetitions int
	// Warmup is the number of leading invocations excluded from the average.
	Warmup int
}

// Validate reports whether the configuration can produce an average.
func (c Config) Validate() error {
	if c.Method == "" {
		return invalidf("method label is empty")
	}

	if c.Repetitions < 3 {
		return invalidf("repetitions = %d, need at least 3", c.Repetitions)
	}

	if c.Warmup < 1 || c.Warmup >= c.Repetitions {
		return invalidf(
			"warmup = %d, need 1 <= warmup < repetitions (%d)",
			c.Warmup, c.Repetitions,
		)
	}

	return nil
}

// Operation is a named unit of work. Its result is discarded; only the time
// it takes and whether it failed are observed.
type Operation struct {
	Name string
	Run  func() error
}

// Factory builds the operations for one sweep value. It is called once per
// value, and all returned operations share the inputs it constructed.
type Factory[V any] func(v V) ([]Operation, error)

// Clock is the time source used to measure operations.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// time.Now carries a monotonic reading, so Sub is immune to wall-clock steps.
func (systemClock) Now() time.Time { return time.Now() }

// Sample is a single timed invocation.
type Sample struct {
	Method     string
	Operation  string
	Sweep      string
	Repetition int
	Elapsed    time.Duration
	Warmup     bool
}

// Observer receives every sample, warm-up samples included.
type Observer interface {
	ObserveSample(s Sample)
}

// Runner times operations according to its Config.
type Runner struct {
	Config   Config
	Clock    Clock
	Observer Observer
	Logger   *slog.Logger
}

// Option customises a Runner.
type Option func(*Runner)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(r *Runner) { r.Clock = c }
}

// WithObserver attaches an observer for individual samples.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.Observer = o }
}

// NewRunner creates a Runner. The configuration is validated when a sweep
// starts, before any operation is built or timed.
func NewRunner(cfg Config, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := &Runner{
		Config: cfg,
		Clock:  systemClock{},
		Logger: logger.With(slog.String("method", cfg.Method)),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RunSweep measures every operation produced by factory at each sweep value,
// in order, and returns one record per (sweep value, operation).
//
// If an operation or the factory fails, the records of the sweep values
// completed before it are returned together with the error.
func RunSweep[V any](
	ctx context.Context,
	r *Runner,
	sweep []V,
	factory Factory[V],
) ([]Record[V], error) {
	if err := r.Config.Validate(); err != nil {
		return nil, err
	}

	if len(sweep) == 0 {
		return nil, invalidf("sweep has no values")
	}

	if factory == nil {
		return nil, invalidf("operation factory is nil")
	}

	results := make([]SweepResult[V], 0, len(sweep))

	for _, v := range sweep {
		if err := ctx.Err(); err != nil {
			return Assemble(r.Config.Method, results), err
		}

		res, err := measureSweep(ctx, r, v, factory)
		if err != nil {
			return Assemble(r.Config.Method, results), err
		}

		results = append(results, res)
	}

	return Assemble(r.Config.Method, results), nil
}

func measureSweep[V any](
	ctx context.Context,
	r *Runner,
	v V,
	factory Factory[V],
) (SweepResult[V], error) {
	label := fmt.Sprint(v)

	ops, err := factory(v)
	if err != nil {
		return SweepResult[V]{}, fmt.Errorf("build operations for sweep %s: %w", label, err)
	}

	if err := validateOperations(ops); err != nil {
		return SweepResult[V]{}, fmt.Errorf("sweep %s: %w", label, err)
	}

	r.Logger.InfoContext(ctx, "measuring sweep value",
		slog.String("sweep", label),
		slog.Int("operations", len(ops)),
		slog.Int("repetitions", r.Config.Repetitions),
		slog.Int("warmup", r.Config.Warmup),
	)

	res := SweepResult[V]{
		Value:    v,
		Averages: make([]Average, 0, len(ops)),
	}

	for _, op := range ops {
		secs, err := r.measure(op, v, label)
		if err != nil {
			return SweepResult[V]{}, err
		}

		r.Logger.InfoContext(ctx, "operation measured",
			slog.String("sweep", label),
			slog.String("operation", op.Name),
			slog.Float64("avg_seconds", secs),
		)

		res.Averages = append(res.Averages, Average{
			Operation: op.Name,
			Seconds:   secs,
		})
	}

	return res, nil
}

// measure runs op Repetitions times and returns the mean of the samples
// taken after the warm-up prefix, in seconds.
func (r *Runner) measure(op Operation, sweep any, label string) (float64, error) {
	var acc accumulator

	for rep := 0; rep < r.Config.Repetitions; rep++ {
		if rep == r.Config.Warmup {
			acc.reset()
		}

		start := r.Clock.Now()
		err := op.Run()
		elapsed := r.Clock.Now().Sub(start)

		if err != nil {
			return 0, &OperationError{
				Operation:  op.Name,
				Sweep:      sweep,
				Repetition: rep,
				Err:        err,
			}
		}

		elapsed = max(elapsed, 0)
		acc.add(elapsed)

		if r.Observer != nil {
			r.Observer.ObserveSample(Sample{
				Method:     r.Config.Method,
				Operation:  op.Name,
				Sweep:      label,
				Repetition: rep,
				Elapsed:    elapsed,
				Warmup:     rep < r.Config.Warmup,
			})
		}
	}

	return acc.mean(), nil
}

func validateOperations(ops []Operation) error {
	if len(ops) == 0 {
		return invalidf("no operations")
	}

	seen := make(map[string]struct{}, len(ops))

	for i, op := range ops {
		if op.Name == "" {
			return invalidf("operation %d has no name", i)
		}

		if op.Run == nil {
			return invalidf("operation %s has no function", op.Name)
		}

		if _, dup := seen[op.Name]; dup {
			return invalidf("duplicate operation %s", op.Name)
		}

		seen[op.Name] = struct{}{}
	}

	return nil
}

// accumulator is the running sum for one (sweep value, operation) pair.
type accumulator struct {
	sum time.Duration
	n   int
}

func (a *accumulator) add(d time.Duration) {
	a.sum += d
	a.n++
}

func (a *accumulator) reset() {
	a.sum = 0
	a.n = 0
}

func (a *accumulator) mean() float64 {
	if a.n == 0 {
		return 0
	}

	return a.sum.Seconds() / float64(a.n)
}
