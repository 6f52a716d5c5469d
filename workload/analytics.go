package workload

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/weiihann/sweepbench/harness"
)

// Analytics operation names. SQ runs on the star join, SJ on the self join.
const (
	OpLinearRegressionSQ   = "Linear Regression (SQ)"
	OpLogisticRegressionSQ = "Logistic Regression (SQ)"
	OpCovarianceSQ         = "Covariance (SQ)"
	OpNeuralNetworkSQ      = "Neural Network (SQ)"
	OpLinearRegressionSJ   = "Linear Regression (SJ)"
	OpLogisticRegressionSJ = "Logistic Regression (SJ)"
	OpCovarianceSJ         = "Covariance (SJ)"
	OpNeuralNetworkSJ      = "Neural Network (SJ)"
)

// TPCHOperationNames lists the analytics operations in declaration order.
func TPCHOperationNames() []string {
	return []string{
		OpLinearRegressionSQ, OpLogisticRegressionSQ, OpCovarianceSQ, OpNeuralNetworkSQ,
		OpLinearRegressionSJ, OpLogisticRegressionSJ, OpCovarianceSJ, OpNeuralNetworkSJ,
	}
}

// LinearRegression returns X·θ.
func LinearRegression(x *mat.Dense, theta *mat.VecDense) *mat.VecDense {
	var y mat.VecDense
	y.MulVec(x, theta)

	return &y
}

// LogisticRegression returns expit(X·θ).
func LogisticRegression(x *mat.Dense, theta *mat.VecDense) *mat.VecDense {
	y := LinearRegression(x, theta)
	for i := 0; i < y.Len(); i++ {
		y.SetVec(i, expit(y.AtVec(i)))
	}

	return y
}

// Covariance returns the Gram matrix Xᵀ·X.
func Covariance(x *mat.Dense) *mat.Dense {
	var c mat.Dense
	c.Mul(x.T(), x)

	return &c
}

// NeuralNetwork is the forward pass expit(relu(relu(X·W1)·W2)·w3).
func NeuralNetwork(x, w1, w2 *mat.Dense, w3 *mat.VecDense) *mat.VecDense {
	var h1, h2 mat.Dense

	h1.Mul(x, w1)
	h1.Apply(relu, &h1)
	h2.Mul(&h1, w2)
	h2.Apply(relu, &h2)

	var out mat.VecDense
	out.MulVec(&h2, w3)

	for i := 0; i < out.Len(); i++ {
		out.SetVec(i, expit(out.AtVec(i)))
	}

	return &out
}

func expit(v float64) float64 { return 1 / (1 + math.Exp(-v)) }

func relu(_, _ int, v float64) float64 { return math.Max(0, v) }

// DatasetSource provides the dataset for a sweep value.
type DatasetSource func(density float64) (*Dataset, error)

// StaticSource always returns ds, for data loaded from disk.
func StaticSource(ds *Dataset) DatasetSource {
	return func(float64) (*Dataset, error) { return ds, nil }
}

// SyntheticSource generates a fresh dataset at each density.
func SyntheticSource(cfg TPCHConfig, rnd *rand.Rand) DatasetSource {
	return func(density float64) (*Dataset, error) {
		return GenerateDataset(cfg, density, rnd)
	}
}

// model holds the weights for one join shape.
type model struct {
	theta  *mat.VecDense
	w1, w2 *mat.Dense
	w3     *mat.VecDense
}

func newModel(width, hidden int, rnd *rand.Rand) model {
	vec := func(n int) *mat.VecDense {
		v := make([]float64, n)
		for i := range v {
			v[i] = rnd.Float64()
		}

		return mat.NewVecDense(n, v)
	}

	return model{
		theta: vec(width),
		w1:    uniformDense(width, hidden, rnd),
		w2:    uniformDense(hidden, hidden, rnd),
		w3:    vec(hidden),
	}
}

// TPCHFactory returns a harness factory binding the selected analytics
// operations to the dataset for each sweep value. Every operation recomputes
// its join and design matrix; the factory joins once up front only to size
// the model weights.
func TPCHFactory(
	src DatasetSource,
	cfg TPCHConfig,
	backend Backend,
) (harness.Factory[float64], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := backend.Validate(); err != nil {
		return nil, err
	}

	names, err := selectNames(TPCHOperationNames(), cfg.Operations)
	if err != nil {
		return nil, err
	}

	rnd := NewRand(cfg.Seed)

	return func(density float64) ([]harness.Operation, error) {
		ds, err := src(density)
		if err != nil {
			return nil, fmt.Errorf("provision dataset: %w", err)
		}

		joins := []struct {
			name string
			join func(*Dataset) (*Table, error)
		}{
			{"star", StarJoin},
			{"self", SelfJoin},
		}

		models := make([]model, len(joins))

		for i, j := range joins {
			t, err := j.join(ds)
			if err != nil {
				return nil, fmt.Errorf("%s join: %w", j.name, err)
			}

			models[i] = newModel(len(t.Columns), cfg.Hidden, rnd)
		}

		design := func(join func(*Dataset) (*Table, error)) (*mat.Dense, error) {
			t, err := join(ds)
			if err != nil {
				return nil, err
			}

			return t.Dense()
		}

		bind := func(join func(*Dataset) (*Table, error), m model) map[string]func() error {
			return map[string]func() error{
				"lr": func() error {
					x, err := design(join)
					if err != nil {
						return err
					}

					LinearRegression(x, m.theta)

					return nil
				},
				"log": func() error {
					x, err := design(join)
					if err != nil {
						return err
					}

					LogisticRegression(x, m.theta)

					return nil
				},
				"cov": func() error {
					x, err := design(join)
					if err != nil {
						return err
					}

					Covariance(x)

					return nil
				},
				"nn": func() error {
					x, err := design(join)
					if err != nil {
						return err
					}

					NeuralNetwork(x, m.w1, m.w2, m.w3)

					return nil
				},
			}
		}

		sq := bind(StarJoin, models[0])
		sj := bind(SelfJoin, models[1])

		byName := map[string]func() error{
			OpLinearRegressionSQ:   sq["lr"],
			OpLogisticRegressionSQ: sq["log"],
			OpCovarianceSQ:         sq["cov"],
			OpNeuralNetworkSQ:      sq["nn"],
			OpLinearRegressionSJ:   sj["lr"],
			OpLogisticRegressionSJ: sj["log"],
			OpCovarianceSJ:         sj["cov"],
			OpNeuralNetworkSJ:      sj["nn"],
		}

		out := make([]harness.Operation, 0, len(names))
		for _, n := range names {
			out = append(out, harness.Operation{Name: n, Run: byName[n]})
		}

		return out, nil
	}, nil
}
