// Package sparse provides a compressed sparse row matrix that satisfies
// gonum's mat.Matrix interface, with the handful of kernels the matrix-chain
// benchmarks need: sparse-sparse product, total sum and an element-wise
// product against dense operands.
package sparse

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrBadShape is returned for non-positive dimensions or malformed
	// CSR index arrays.
	ErrBadShape = errors.New("sparse: invalid shape")

	// ErrDimensionMismatch is returned when operand shapes are incompatible.
	ErrDimensionMismatch = errors.New("sparse: dimension mismatch")
)

// CSR is a row-major compressed sparse matrix. Column indices within each
// row are strictly increasing.
type CSR struct {
	r, c   int
	indptr []int // len r+1; row i occupies ind[indptr[i]:indptr[i+1]]
	ind    []int
	data   []float64
}

var _ mat.Matrix = (*CSR)(nil)

// NewCSR wraps the given index arrays without copying them.
func NewCSR(r, c int, indptr, ind []int, data []float64) (*CSR, error) {
	if r <= 0 || c <= 0 {
		return nil, fmt.Errorf("NewCSR(%d, %d): %w", r, c, ErrBadShape)
	}

	if len(indptr) != r+1 || indptr[0] != 0 || len(ind) != len(data) ||
		indptr[r] != len(ind) {
		return nil, fmt.Errorf("NewCSR: index arrays: %w", ErrBadShape)
	}

	for i := 0; i < r; i++ {
		lo, hi := indptr[i], indptr[i+1]
		if lo > hi {
			return nil, fmt.Errorf("NewCSR: row %d pointer decreases: %w", i, ErrBadShape)
		}

		for p := lo; p < hi; p++ {
			j := ind[p]
			if j < 0 || j >= c || (p > lo && ind[p-1] >= j) {
				return nil, fmt.Errorf("NewCSR: row %d column order: %w", i, ErrBadShape)
			}
		}
	}

	return &CSR{r: r, c: c, indptr: indptr, ind: ind, data: data}, nil
}

// Random returns an r×c 0/1 matrix in which every entry is independently 1
// with probability density. Gaps between non-zeros are drawn from the
// geometric distribution, so generation costs O(nnz) rather than O(r*c).
func Random(r, c int, density float64, rnd *rand.Rand) (*CSR, error) {
	if r <= 0 || c <= 0 {
		return nil, fmt.Errorf("Random(%d, %d): %w", r, c, ErrBadShape)
	}

	if math.IsNaN(density) {
		return nil, fmt.Errorf("Random: density is NaN: %w", ErrBadShape)
	}

	total := r * c
	indptr := make([]int, r+1)
	expected := int(math.Ceil(float64(total) * math.Max(0, math.Min(density, 1))))
	ind := make([]int, 0, expected)

	switch {
	case density <= 0:
	case density >= 1:
		for pos := 0; pos < total; pos++ {
			ind = append(ind, pos)
		}
	default:
		logq := math.Log1p(-density)
		for pos := -1; ; {
			skip := math.Floor(math.Log(1-rnd.Float64()) / logq)
			if skip >= float64(total) {
				break
			}

			pos += int(skip) + 1
			if pos >= total {
				break
			}

			ind = append(ind, pos)
		}
	}

	// ind holds flat row-major positions; split them into rows.
	data := make([]float64, len(ind))
	for p, pos := range ind {
		indptr[pos/c+1]++
		ind[p] = pos % c
		data[p] = 1
	}

	for i := 0; i < r; i++ {
		indptr[i+1] += indptr[i]
	}

	return &CSR{r: r, c: c, indptr: indptr, ind: ind, data: data}, nil
}

// FromDense converts any gonum matrix, keeping only non-zero entries.
func FromDense(m mat.Matrix) *CSR {
	r, c := m.Dims()
	indptr := make([]int, r+1)

	var (
		ind  []int
		data []float64
	)

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v != 0 {
				ind = append(ind, j)
				data = append(data, v)
			}
		}

		indptr[i+1] = len(ind)
	}

	return &CSR{r: r, c: c, indptr: indptr, ind: ind, data: data}
}

// Dims returns the number of rows and columns.
func (m *CSR) Dims() (r, c int) { return m.r, m.c }

// At returns the element at row i, column j. It panics on out-of-range
// indices, as gonum's dense types do.
func (m *CSR) At(i, j int) float64 {
	if i < 0 || i >= m.r {
		panic(mat.ErrRowAccess)
	}

	if j < 0 || j >= m.c {
		panic(mat.ErrColAccess)
	}

	row := m.ind[m.indptr[i]:m.indptr[i+1]]
	if p, ok := slices.BinarySearch(row, j); ok {
		return m.data[m.indptr[i]+p]
	}

	return 0
}

// T returns an implicit transpose.
func (m *CSR) T() mat.Matrix { return mat.Transpose{Matrix: m} }

// NNZ returns the number of stored entries.
func (m *CSR) NNZ() int { return len(m.data) }

// Density is NNZ divided by the number of entries.
func (m *CSR) Density() float64 {
	return float64(m.NNZ()) / (float64(m.r) * float64(m.c))
}

// DoNonZero calls fn for each stored entry in row-major order.
func (m *CSR) DoNonZero(fn func(i, j int, v float64)) {
	for i := 0; i < m.r; i++ {
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			fn(i, m.ind[p], m.data[p])
		}
	}
}

// Sum returns the sum of all entries.
func (m *CSR) Sum() float64 {
	var s float64
	for _, v := range m.data {
		s += v
	}

	return s
}

// ToDense expands m into a gonum dense matrix.
func (m *CSR) ToDense() *mat.Dense {
	d := mat.NewDense(m.r, m.c, nil)
	m.DoNonZero(func(i, j int, v float64) { d.Set(i, j, v) })

	return d
}

// Mul returns a·b using Gustavson's row-by-row algorithm. Entries that
// cancel to exactly zero are kept as explicit zeros.
func Mul(a, b *CSR) (*CSR, error) {
	if a.c != b.r {
		return nil, fmt.Errorf(
			"Mul (%d×%d)·(%d×%d): %w", a.r, a.c, b.r, b.c, ErrDimensionMismatch,
		)
	}

	indptr := make([]int, a.r+1)
	acc := make([]float64, b.c)
	mark := make([]int, b.c)

	for j := range mark {
		mark[j] = -1
	}

	var (
		ind  []int
		data []float64
	)

	for i := 0; i < a.r; i++ {
		start := len(ind)

		for p := a.indptr[i]; p < a.indptr[i+1]; p++ {
			k, av := a.ind[p], a.data[p]

			for q := b.indptr[k]; q < b.indptr[k+1]; q++ {
				j := b.ind[q]
				if mark[j] != i {
					mark[j] = i
					acc[j] = 0
					ind = append(ind, j)
				}

				acc[j] += av * b.data[q]
			}
		}

		row := ind[start:]
		slices.Sort(row)

		for _, j := range row {
			data = append(data, acc[j])
		}

		indptr[i+1] = len(ind)
	}

	return &CSR{r: a.r, c: b.c, indptr: indptr, ind: ind, data: data}, nil
}

// MulElemDense returns the element-wise product a ∘ b ∘ m. The result has
// the sparsity pattern of m, so only m's stored entries are visited.
func (m *CSR) MulElemDense(a, b mat.Matrix) (*CSR, error) {
	for _, x := range []mat.Matrix{a, b} {
		if r, c := x.Dims(); r != m.r || c != m.c {
			return nil, fmt.Errorf(
				"MulElemDense %d×%d vs %d×%d: %w", r, c, m.r, m.c, ErrDimensionMismatch,
			)
		}
	}

	data := make([]float64, len(m.data))

	for i := 0; i < m.r; i++ {
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			j := m.ind[p]
			data[p] = a.At(i, j) * b.At(i, j) * m.data[p]
		}
	}

	return &CSR{
		r:      m.r,
		c:      m.c,
		indptr: slices.Clone(m.indptr),
		ind:    slices.Clone(m.ind),
		data:   data,
	}, nil
}
