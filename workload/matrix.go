package workload

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/weiihann/sweepbench/harness"
	"github.com/weiihann/sweepbench/workload/sparse"
)

// Matrix-chain operation names, as they appear in the report.
const (
	OpChainForward  = "ABC"
	OpChainBackward = "CBA"
	OpChainSum      = "SUM(ABC)"
	OpElementwise   = "A*B*C"
)

// MatrixOperationNames lists the matrix-chain operations in declaration order.
func MatrixOperationNames() []string {
	return []string{OpChainForward, OpChainBackward, OpChainSum, OpElementwise}
}

// Operand storage formats.
const (
	FormatSparse = "sparse"
	FormatDense  = "dense"
)

// MatrixConfig controls matrix-chain operand generation.
type MatrixConfig struct {
	// N is the side length of every operand.
	N int
	// ADensity and BDensity fix the density of A and B; C takes the sweep
	// density.
	ADensity float64
	BDensity float64
	// Format selects sparse (CSR) or dense chain operands.
	Format string
	// Seed for operand generation; 0 seeds from the clock.
	Seed int64
	// Operations restricts the set to these names; empty means all.
	Operations []string
}

// DefaultMatrixConfig mirrors the reference experiment: 2000×2000 operands,
// A and B half full.
func DefaultMatrixConfig() MatrixConfig {
	return MatrixConfig{
		N:        2000,
		ADensity: 0.5,
		BDensity: 0.5,
		Format:   FormatSparse,
	}
}

// Validate checks the configuration.
func (c MatrixConfig) Validate() error {
	if c.N <= 0 {
		return fmt.Errorf("%w: n = %d", ErrInvalidParameter, c.N)
	}

	if err := checkDensity("a density", c.ADensity); err != nil {
		return err
	}

	if err := checkDensity("b density", c.BDensity); err != nil {
		return err
	}

	if c.Format != FormatSparse && c.Format != FormatDense {
		return fmt.Errorf("%w: format %q", ErrInvalidParameter, c.Format)
	}

	_, err := selectNames(MatrixOperationNames(), c.Operations)

	return err
}

func checkDensity(name string, d float64) error {
	if !(d >= 0 && d <= 1) {
		return fmt.Errorf("%w: %s = %g, want [0, 1]", ErrInvalidParameter, name, d)
	}

	return nil
}

// MatrixOperands are the inputs shared by every matrix-chain operation at one
// density.
type MatrixOperands struct {
	A, B, C *sparse.CSR
	// ADense and BDense hold uniform random values for the element-wise
	// product.
	ADense, BDense *mat.Dense
}

// NewMatrixOperands draws A, B and C (C at density) plus the dense
// element-wise operands.
func NewMatrixOperands(cfg MatrixConfig, density float64, rnd *rand.Rand) (*MatrixOperands, error) {
	if err := checkDensity("density", density); err != nil {
		return nil, err
	}

	a, err := sparse.Random(cfg.N, cfg.N, cfg.ADensity, rnd)
	if err != nil {
		return nil, fmt.Errorf("generate A: %w", err)
	}

	b, err := sparse.Random(cfg.N, cfg.N, cfg.BDensity, rnd)
	if err != nil {
		return nil, fmt.Errorf("generate B: %w", err)
	}

	c, err := sparse.Random(cfg.N, cfg.N, density, rnd)
	if err != nil {
		return nil, fmt.Errorf("generate C: %w", err)
	}

	return &MatrixOperands{
		A:      a,
		B:      b,
		C:      c,
		ADense: uniformDense(cfg.N, cfg.N, rnd),
		BDense: uniformDense(cfg.N, cfg.N, rnd),
	}, nil
}

func uniformDense(r, c int, rnd *rand.Rand) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rnd.Float64()
	}

	return mat.NewDense(r, c, data)
}

// MatrixFactory returns a harness factory that draws fresh operands at each
// density and binds the selected chain operations to them.
func MatrixFactory(cfg MatrixConfig, backend Backend) (harness.Factory[float64], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := backend.Validate(); err != nil {
		return nil, err
	}

	names, err := selectNames(MatrixOperationNames(), cfg.Operations)
	if err != nil {
		return nil, err
	}

	rnd := NewRand(cfg.Seed)

	return func(density float64) ([]harness.Operation, error) {
		ops, err := NewMatrixOperands(cfg, density, rnd)
		if err != nil {
			return nil, err
		}

		var chain chainOps = sparseChain{ops}
		if cfg.Format == FormatDense {
			chain = newDenseChain(ops)
		}

		byName := map[string]func() error{
			OpChainForward:  chain.forward,
			OpChainBackward: chain.backward,
			OpChainSum:      chain.sum,
			OpElementwise:   chain.elementwise,
		}

		out := make([]harness.Operation, 0, len(names))
		for _, n := range names {
			out = append(out, harness.Operation{Name: n, Run: byName[n]})
		}

		return out, nil
	}, nil
}

type chainOps interface {
	forward() error
	backward() error
	sum() error
	elementwise() error
}

type sparseChain struct {
	*MatrixOperands
}

func (s sparseChain) forward() error {
	_, err := s.abc()
	return err
}

func (s sparseChain) abc() (*sparse.CSR, error) {
	ab, err := sparse.Mul(s.A, s.B)
	if err != nil {
		return nil, err
	}

	return sparse.Mul(ab, s.C)
}

func (s sparseChain) backward() error {
	cb, err := sparse.Mul(s.C, s.B)
	if err != nil {
		return err
	}

	_, err = sparse.Mul(cb, s.A)

	return err
}

func (s sparseChain) sum() error {
	abc, err := s.abc()
	if err != nil {
		return err
	}

	_ = abc.Sum()

	return nil
}

func (s sparseChain) elementwise() error {
	_, err := s.C.MulElemDense(s.ADense, s.BDense)
	return err
}

// denseChain runs the chain on gonum dense copies of the same operands.
type denseChain struct {
	a, b, c        *mat.Dense
	aDense, bDense *mat.Dense
}

func newDenseChain(ops *MatrixOperands) denseChain {
	return denseChain{
		a:      ops.A.ToDense(),
		b:      ops.B.ToDense(),
		c:      ops.C.ToDense(),
		aDense: ops.ADense,
		bDense: ops.BDense,
	}
}

func (d denseChain) product(x, y, z *mat.Dense) *mat.Dense {
	var xy, out mat.Dense
	xy.Mul(x, y)
	out.Mul(&xy, z)

	return &out
}

func (d denseChain) forward() error {
	d.product(d.a, d.b, d.c)
	return nil
}

func (d denseChain) backward() error {
	d.product(d.c, d.b, d.a)
	return nil
}

func (d denseChain) sum() error {
	_ = mat.Sum(d.product(d.a, d.b, d.c))
	return nil
}

func (d denseChain) elementwise() error {
	var out mat.Dense
	out.MulElem(d.aDense, d.bDense)
	out.MulElem(&out, d.c)

	return nil
}
