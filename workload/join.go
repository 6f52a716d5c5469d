package workload

import (
	"fmt"
)

// DefaultSuffixes disambiguate overlapping column names in a join.
var DefaultSuffixes = [2]string{"_x", "_y"}

// HashJoin returns the inner join of left and right on left.leftKey ==
// right.rightKey. Output rows follow left row order, and for each left row
// the matching right rows in right order. When both keys have the same name
// the key column appears once; any other column name present on both sides
// gets suffixes[0] on the left and suffixes[1] on the right.
func HashJoin(left, right *Table, leftKey, rightKey string, suffixes [2]string) (*Table, error) {
	lk, err := left.Column(leftKey)
	if err != nil {
		return nil, fmt.Errorf("join left: %w", err)
	}

	rk, err := right.Column(rightKey)
	if err != nil {
		return nil, fmt.Errorf("join right: %w", err)
	}

	if !lk.Numeric() || !rk.Numeric() {
		return nil, fmt.Errorf("%w: join keys %s/%s must be numeric", ErrBadTable, leftKey, rightKey)
	}

	buckets := make(map[float64][]int, rk.Len())
	for i, k := range rk.Floats {
		buckets[k] = append(buckets[k], i)
	}

	var li, ri []int

	for i, k := range lk.Floats {
		for _, j := range buckets[k] {
			li = append(li, i)
			ri = append(ri, j)
		}
	}

	sharedKey := leftKey == rightKey

	rightNames := make(map[string]struct{}, len(right.Columns))
	for _, c := range right.Columns {
		if sharedKey && c.Name == rightKey {
			continue
		}

		rightNames[c.Name] = struct{}{}
	}

	leftNames := make(map[string]struct{}, len(left.Columns))
	for _, c := range left.Columns {
		leftNames[c.Name] = struct{}{}
	}

	cols := make([]Column, 0, len(left.Columns)+len(right.Columns))

	for i := range left.Columns {
		c := &left.Columns[i]
		name := c.Name

		if _, clash := rightNames[name]; clash && !(sharedKey && name == leftKey) {
			name += suffixes[0]
		}

		cols = append(cols, gather(c, name, li))
	}

	for i := range right.Columns {
		c := &right.Columns[i]
		if sharedKey && c.Name == rightKey {
			continue
		}

		name := c.Name
		if _, clash := leftNames[name]; clash {
			name += suffixes[1]
		}

		cols = append(cols, gather(c, name, ri))
	}

	return NewTable(cols...)
}

func gather(c *Column, name string, rows []int) Column {
	out := Column{Name: name}

	if c.Numeric() {
		out.Floats = make([]float64, len(rows))
		for i, r := range rows {
			out.Floats[i] = c.Floats[r]
		}

		return out
	}

	out.Strings = make([]string, len(rows))
	for i, r := range rows {
		out.Strings[i] = c.Strings[r]
	}

	return out
}
