package workload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrUnknownColumn is returned when a table has no column of that name.
	ErrUnknownColumn = errors.New("workload: unknown column")

	// ErrBadTable is returned for malformed input files and for tables that
	// cannot be used as requested.
	ErrBadTable = errors.New("workload: bad table")
)

// Column is a named table column. Exactly one of Floats and Strings is
// populated; Strings marks a categorical column.
type Column struct {
	Name    string
	Floats  []float64
	Strings []string
}

// Numeric reports whether the column holds float values.
func (c *Column) Numeric() bool { return c.Strings == nil }

// Len returns the number of values.
func (c *Column) Len() int {
	if c.Numeric() {
		return len(c.Floats)
	}

	return len(c.Strings)
}

// Table is an in-memory column store.
type Table struct {
	Columns []Column
}

// NewTable builds a table from columns of equal length.
func NewTable(cols ...Column) (*Table, error) {
	seen := make(map[string]struct{}, len(cols))

	for i := range cols {
		if cols[i].Len() != cols[0].Len() {
			return nil, fmt.Errorf("%w: column %s has %d rows, want %d",
				ErrBadTable, cols[i].Name, cols[i].Len(), cols[0].Len())
		}

		if _, dup := seen[cols[i].Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %s", ErrBadTable, cols[i].Name)
		}

		seen[cols[i].Name] = struct{}{}
	}

	return &Table{Columns: cols}, nil
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}

	return t.Columns[0].Len()
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i := range t.Columns {
		names[i] = t.Columns[i].Name
	}

	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, error) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
}

// LoadTable reads a '|'-delimited TPC-H .tbl file with the given column
// names. A trailing delimiter produces an extra empty field, which dbgen
// output always has; names should include a placeholder for it.
func LoadTable(path string, names []string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table %s: %w", path, err)
	}
	defer f.Close()

	t, err := ParseTable(f, names)
	if err != nil {
		return nil, fmt.Errorf("parse table %s: %w", path, err)
	}

	return t, nil
}

// ParseTable reads '|'-delimited rows from r. Columns whose every value
// parses as a number become numeric; the rest stay categorical.
func ParseTable(r io.Reader, names []string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '|'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	raw := make([][]string, len(names))

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		if len(rec) < len(names) {
			return nil, fmt.Errorf("%w: line %d has %d fields, want %d",
				ErrBadTable, line, len(rec), len(names))
		}

		for i := range names {
			raw[i] = append(raw[i], strings.Clone(rec[i]))
		}
	}

	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = inferColumn(name, raw[i])
	}

	return NewTable(cols...)
}

func inferColumn(name string, values []string) Column {
	floats := make([]float64, len(values))

	for i, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Column{Name: name, Strings: values}
		}

		floats[i] = f
	}

	return Column{Name: name, Floats: floats}
}

// Project returns a table with only the named columns, in that order.
// Column data is shared with t.
func (t *Table) Project(names ...string) (*Table, error) {
	cols := make([]Column, 0, len(names))

	for _, n := range names {
		c, err := t.Column(n)
		if err != nil {
			return nil, err
		}

		cols = append(cols, *c)
	}

	return NewTable(cols...)
}

// AddRowIndex appends a numeric column numbering rows from 1.
func (t *Table) AddRowIndex(name string) error {
	if _, err := t.Column(name); err == nil {
		return fmt.Errorf("%w: column %s exists", ErrBadTable, name)
	}

	idx := make([]float64, t.Rows())
	for i := range idx {
		idx[i] = float64(i + 1)
	}

	t.Columns = append(t.Columns, Column{Name: name, Floats: idx})

	return nil
}

// valueKey returns a comparable key for row i of c.
func valueKey(c *Column, i int) string {
	if c.Numeric() {
		return strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
	}

	return c.Strings[i]
}

// SimplifyColumns replaces the named column in every table with dense
// integer ids. Ids are assigned in order of first appearance, scanning the
// tables in argument order, so the same raw key maps to the same id in all
// of them.
func SimplifyColumns(name string, tables ...*Table) error {
	ids := make(map[string]float64)

	for _, t := range tables {
		c, err := t.Column(name)
		if err != nil {
			return err
		}

		out := make([]float64, c.Len())

		for i := range out {
			k := valueKey(c, i)

			id, ok := ids[k]
			if !ok {
				id = float64(len(ids))
				ids[k] = id
			}

			out[i] = id
		}

		c.Floats, c.Strings = out, nil
	}

	return nil
}

// OneHotEncode replaces each named column by one 0/1 column per distinct
// value, named "<column>=<value>", in sorted value order. The new columns
// are appended at the end of the table.
func (t *Table) OneHotEncode(names ...string) error {
	for _, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return err
		}

		dummies := oneHot(c)

		t.Columns = slices.DeleteFunc(t.Columns, func(x Column) bool {
			return x.Name == name
		})
		t.Columns = append(t.Columns, dummies...)
	}

	return nil
}

func oneHot(c *Column) []Column {
	var levels []string

	seen := make(map[string]struct{})
	for i := 0; i < c.Len(); i++ {
		k := valueKey(c, i)
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			levels = append(levels, k)
		}
	}

	if c.Numeric() {
		slices.SortFunc(levels, func(a, b string) int {
			fa, _ := strconv.ParseFloat(a, 64)
			fb, _ := strconv.ParseFloat(b, 64)

			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		})
	} else {
		slices.Sort(levels)
	}

	pos := make(map[string]int, len(levels))
	cols := make([]Column, len(levels))

	for i, l := range levels {
		pos[l] = i
		cols[i] = Column{Name: c.Name + "=" + l, Floats: make([]float64, c.Len())}
	}

	for i := 0; i < c.Len(); i++ {
		cols[pos[valueKey(c, i)]].Floats[i] = 1
	}

	return cols
}

// Dense converts an all-numeric table to a row-major gonum matrix.
func (t *Table) Dense() (*mat.Dense, error) {
	r, c := t.Rows(), len(t.Columns)
	if r == 0 || c == 0 {
		return nil, fmt.Errorf("%w: empty table (%d×%d)", ErrBadTable, r, c)
	}

	data := make([]float64, r*c)

	for j := range t.Columns {
		col := &t.Columns[j]
		if !col.Numeric() {
			return nil, fmt.Errorf("%w: column %s is categorical", ErrBadTable, col.Name)
		}

		for i, v := range col.Floats {
			data[i*c+j] = v
		}
	}

	return mat.NewDense(r, c, data), nil
}
