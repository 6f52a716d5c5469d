package workload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func smallTPCHConfig() TPCHConfig {
	return TPCHConfig{
		LineItems:     60,
		Orders:        20,
		Customers:     8,
		Suppliers:     4,
		Parts:         10,
		MaxCategories: 10,
		Hidden:        5,
		Seed:          3,
	}
}

func TestCategories(t *testing.T) {
	cfg := smallTPCHConfig()

	assert.Equal(t, 1, cfg.Categories(1))
	assert.Equal(t, 2, cfg.Categories(0.5))
	assert.Equal(t, 4, cfg.Categories(0.3))
	assert.Equal(t, 10, cfg.Categories(0.001))
	assert.Equal(t, 10, cfg.Categories(0))
}

func TestTPCHConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultTPCHConfig().Validate())

	cfg := DefaultTPCHConfig()
	cfg.Parts = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidParameter)

	cfg = DefaultTPCHConfig()
	cfg.Operations = []string{"Covariance (XX)"}
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownOperation)
}

func TestGenerateDatasetIsNumeric(t *testing.T) {
	cfg := smallTPCHConfig()

	ds, err := GenerateDataset(cfg, 0.25, NewRand(cfg.Seed))
	require.NoError(t, err)

	for _, tbl := range []*Table{ds.LineItem, ds.Orders, ds.Customer, ds.Supplier, ds.Part} {
		for _, c := range tbl.Columns {
			assert.True(t, c.Numeric(), c.Name)
		}
	}

	assert.Equal(t, cfg.LineItems, ds.LineItem.Rows())
	assert.Equal(t, []string{"LineItemKey", "OrderKey", "PartKey", "SuppKey"}, ds.LineItem.Names())

	_, err = GenerateDataset(cfg, 1.5, NewRand(1))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestStarJoinKeepsEveryLineItem(t *testing.T) {
	cfg := smallTPCHConfig()

	ds, err := GenerateDataset(cfg, 0.5, NewRand(cfg.Seed))
	require.NoError(t, err)

	star, err := StarJoin(ds)
	require.NoError(t, err)

	// Every foreign key references an existing dimension row exactly once.
	assert.Equal(t, cfg.LineItems, star.Rows())

	width := len(ds.LineItem.Columns) + len(ds.Orders.Columns) - 1 +
		len(ds.Customer.Columns) - 1 + len(ds.Supplier.Columns) - 1 +
		len(ds.Part.Columns) - 1
	assert.Len(t, star.Columns, width)
}

func TestSelfJoinRowCount(t *testing.T) {
	cfg := smallTPCHConfig()

	ds, err := GenerateDataset(cfg, 0.5, NewRand(cfg.Seed))
	require.NoError(t, err)

	parts, err := ds.LineItem.Column("PartKey")
	require.NoError(t, err)

	perPart := map[float64]int{}
	for _, p := range parts.Floats {
		perPart[p]++
	}

	want := 0
	for _, n := range perPart {
		want += n * n
	}

	self, err := SelfJoin(ds)
	require.NoError(t, err)
	assert.Equal(t, want, self.Rows())

	for _, name := range []string{"SuppKey_x", "SuppKey_y", "SuppKey_3", "SuppKey__4"} {
		_, err := self.Column(name)
		assert.NoError(t, err, name)
	}
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"customer.tbl": "1|C1|addr|3|ph|100.5|BUILDING|c|\n" +
			"2|C2|addr|4|ph|-20|MACHINERY|c|\n",
		"lineitem.tbl": "1|1|1|1|5|10|0.1|0.02|N|O|d|d|d|s|m|c|\n" +
			"1|2|2|2|5|10|0.1|0.02|N|O|d|d|d|s|m|c|\n" +
			"2|1|2|1|5|10|0.1|0.02|R|F|d|d|d|s|m|c|\n",
		"orders.tbl": "1|2|O|1000|d|1-URGENT|clerk|0|c|\n" +
			"2|1|F|2000|d|2-HIGH|clerk|0|c|\n",
		"part.tbl": "1|p|Manufacturer#1|Brand#13|t|7|JUMBO PKG|901|c|\n" +
			"2|p|Manufacturer#2|Brand#13|t|1|LG CASE|902|c|\n",
		"supplier.tbl": "1|S1|addr|17|ph|5755.94|c|\n" +
			"2|S2|addr|5|ph|4032.68|c|\n",
	}

	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	ds, err := LoadDataset(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.LineItem.Rows())
	assert.Contains(t, ds.Orders.Names(), "OrderPriority=1-URGENT")
	assert.Contains(t, ds.Part.Names(), "Container=JUMBO PKG")
	assert.Contains(t, ds.Supplier.Names(), "NationKey=17")

	star, err := StarJoin(ds)
	require.NoError(t, err)
	assert.Equal(t, 3, star.Rows())

	x, err := star.Dense()
	require.NoError(t, err)

	r, c := x.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, len(star.Columns), c)
}

func TestLoadDatasetMissingFile(t *testing.T) {
	_, err := LoadDataset(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customer.tbl")
}

func TestAnalyticsKernels(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	theta := mat.NewVecDense(2, []float64{1, -1})

	lr := LinearRegression(x, theta)
	assert.Equal(t, []float64{-1, -1}, lr.RawVector().Data)

	lg := LogisticRegression(x, theta)
	assert.InDelta(t, 1/(1+2.718281828459045), lg.AtVec(0), 1e-12)

	cov := Covariance(x)
	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{10, 14, 14, 20}), cov))

	// Negative pre-activations are clipped: X·W1 = [[-1, 2], [-3, 4]].
	w1 := mat.NewDense(2, 2, []float64{-1, 0, 0, 1})
	w2 := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	w3 := mat.NewVecDense(2, []float64{0, 0})

	nn := NeuralNetwork(x, w1, w2, w3)
	assert.Equal(t, 2, nn.Len())
	assert.Equal(t, 0.5, nn.AtVec(0))
	assert.Equal(t, 0.5, nn.AtVec(1))
}

func TestTPCHFactory(t *testing.T) {
	cfg := smallTPCHConfig()
	backend := Backend{Name: "Gonum", Threads: 1}

	factory, err := TPCHFactory(SyntheticSource(cfg, NewRand(cfg.Seed)), cfg, backend)
	require.NoError(t, err)

	ops, err := factory(0.5)
	require.NoError(t, err)
	require.Len(t, ops, 8)

	for i, name := range TPCHOperationNames() {
		assert.Equal(t, name, ops[i].Name)
		assert.NoError(t, ops[i].Run(), name)
	}
}

func TestTPCHFactoryStaticSubset(t *testing.T) {
	cfg := smallTPCHConfig()
	cfg.Operations = []string{OpCovarianceSJ}

	ds, err := GenerateDataset(cfg, 0.5, NewRand(cfg.Seed))
	require.NoError(t, err)

	factory, err := TPCHFactory(StaticSource(ds), cfg, Backend{Name: "Gonum", Threads: 2})
	require.NoError(t, err)

	ops, err := factory(0)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, OpCovarianceSJ, ops[0].Name)
	assert.NoError(t, ops[0].Run())
}
