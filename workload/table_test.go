package workload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestParseTableInfersTypes(t *testing.T) {
	input := "1|Customer#1|711.56|BUILDING|\n" +
		"2|Customer#2|121.65|AUTOMOBILE|\n"

	tbl, err := ParseTable(strings.NewReader(input),
		[]string{"CustomerKey", "Name", "AcctBal", "MktSegment", "Col9"})
	require.NoError(t, err)

	assert.Equal(t, 2, tbl.Rows())
	assert.Equal(t, []string{"CustomerKey", "Name", "AcctBal", "MktSegment", "Col9"}, tbl.Names())

	key, err := tbl.Column("CustomerKey")
	require.NoError(t, err)
	assert.True(t, key.Numeric())
	assert.Equal(t, []float64{1, 2}, key.Floats)

	seg, err := tbl.Column("MktSegment")
	require.NoError(t, err)
	assert.False(t, seg.Numeric())
	assert.Equal(t, []string{"BUILDING", "AUTOMOBILE"}, seg.Strings)
}

func TestParseTableShortRow(t *testing.T) {
	_, err := ParseTable(strings.NewReader("1|2\n"), []string{"a", "b", "c"})
	assert.ErrorIs(t, err, ErrBadTable)
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supplier.tbl")
	require.NoError(t, os.WriteFile(path, []byte("1|x|\n2|y|\n"), 0o644))

	tbl, err := LoadTable(path, []string{"SuppKey", "Name", "Col9"})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Rows())

	_, err = LoadTable(filepath.Join(t.TempDir(), "missing.tbl"), []string{"a"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewTableRejectsRaggedColumns(t *testing.T) {
	_, err := NewTable(
		Column{Name: "a", Floats: []float64{1, 2}},
		Column{Name: "b", Floats: []float64{1}},
	)
	assert.ErrorIs(t, err, ErrBadTable)

	_, err = NewTable(
		Column{Name: "a", Floats: []float64{1}},
		Column{Name: "a", Floats: []float64{1}},
	)
	assert.ErrorIs(t, err, ErrBadTable)
}

func TestProjectAndRowIndex(t *testing.T) {
	tbl, err := NewTable(
		Column{Name: "a", Floats: []float64{1, 2, 3}},
		Column{Name: "b", Strings: []string{"x", "y", "z"}},
	)
	require.NoError(t, err)

	require.NoError(t, tbl.AddRowIndex("id"))
	assert.ErrorIs(t, tbl.AddRowIndex("id"), ErrBadTable)

	p, err := tbl.Project("id", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "a"}, p.Names())
	assert.Equal(t, []float64{1, 2, 3}, p.Columns[0].Floats)

	_, err = tbl.Project("nope")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestSimplifyColumnsSharesIDs(t *testing.T) {
	dim, err := NewTable(Column{Name: "k", Floats: []float64{30, 10, 20}})
	require.NoError(t, err)
	fact, err := NewTable(Column{Name: "k", Floats: []float64{20, 20, 30, 40}})
	require.NoError(t, err)

	require.NoError(t, SimplifyColumns("k", dim, fact))

	assert.Equal(t, []float64{0, 1, 2}, dim.Columns[0].Floats)
	assert.Equal(t, []float64{2, 2, 0, 3}, fact.Columns[0].Floats)

	assert.ErrorIs(t, SimplifyColumns("missing", dim), ErrUnknownColumn)
}

func TestOneHotEncode(t *testing.T) {
	tbl, err := NewTable(
		Column{Name: "id", Floats: []float64{1, 2, 3}},
		Column{Name: "seg", Strings: []string{"b", "a", "b"}},
		Column{Name: "prio", Floats: []float64{10, 2, 2}},
	)
	require.NoError(t, err)

	require.NoError(t, tbl.OneHotEncode("seg", "prio"))

	assert.Equal(t, []string{"id", "seg=a", "seg=b", "prio=2", "prio=10"}, tbl.Names())

	x, err := tbl.Dense()
	require.NoError(t, err)

	want := mat.NewDense(3, 5, []float64{
		1, 0, 1, 0, 1,
		2, 1, 0, 1, 0,
		3, 0, 1, 1, 0,
	})
	assert.True(t, mat.Equal(want, x))
}

func TestDenseRejectsCategorical(t *testing.T) {
	tbl, err := NewTable(Column{Name: "s", Strings: []string{"a"}})
	require.NoError(t, err)

	_, err = tbl.Dense()
	assert.ErrorIs(t, err, ErrBadTable)

	empty, err := NewTable()
	require.NoError(t, err)

	_, err = empty.Dense()
	assert.ErrorIs(t, err, ErrBadTable)
}
