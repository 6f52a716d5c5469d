// Package workload provisions benchmark operands and turns them into named
// harness operations: random sparse or dense matrix chains, and a TPC-H
// style join-then-analytics pipeline.
package workload

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

var (
	// ErrUnknownOperation is returned when a requested operation name is not
	// offered by a workload.
	ErrUnknownOperation = errors.New("workload: unknown operation")

	// ErrInvalidParameter is returned for out-of-range workload parameters.
	ErrInvalidParameter = errors.New("workload: invalid parameter")
)

// Backend describes the compute backend an operation set runs on. The
// factories only validate it and use it to label records through Method.
// The thread count itself is applied by the caller once per process with
// runtime.GOMAXPROCS, before any operation set is built.
type Backend struct {
	Name    string
	Threads int
}

// Method returns the report label for this backend, e.g. "Gonum (Parallel)".
func (b Backend) Method() string {
	mode := "Serial"
	if b.Threads > 1 {
		mode = "Parallel"
	}

	return fmt.Sprintf("%s (%s)", b.Name, mode)
}

// Validate checks the backend settings.
func (b Backend) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: backend name is empty", ErrInvalidParameter)
	}

	if b.Threads < 1 {
		return fmt.Errorf("%w: threads = %d", ErrInvalidParameter, b.Threads)
	}

	return nil
}

// NewRand returns a PCG-backed generator for seed; 0 means seed from the
// clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
}

// selectNames filters all down to want, keeping the order of want. An empty
// want selects everything.
func selectNames(all, want []string) ([]string, error) {
	if len(want) == 0 {
		return all, nil
	}

	known := make(map[string]struct{}, len(all))
	for _, n := range all {
		known[n] = struct{}{}
	}

	out := make([]string, 0, len(want))

	for _, n := range want {
		if _, ok := known[n]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, n)
		}

		out = append(out, n)
	}

	return out, nil
}
