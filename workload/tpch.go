package workload

import (
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"strconv"
)

// Column layouts of the dbgen .tbl files. The trailing placeholder absorbs
// the empty field after the final '|'.
var (
	customerColumns = []string{
		"CustomerKey", "Name", "Address", "NationKey", "Phone", "AcctBal",
		"MktSegment", "Comment", "Col9",
	}
	lineItemColumns = []string{
		"OrderKey", "PartKey", "SuppKey", "LineNumber", "Quantity",
		"ExtendedPrice", "Discount", "Tax", "ReturnFlag", "LineStatus",
		"ShipDate", "CommitDate", "ReceiptDate", "ShipInstruct", "ShipMode",
		"Comment", "Col9",
	}
	ordersColumns = []string{
		"OrderKey", "CustomerKey", "OrderStatus", "TotalPrice", "OrderDate",
		"OrderPriority", "Clerk", "ShipPriority", "Comment", "Extra",
	}
	partColumns = []string{
		"PartKey", "Name", "MFGR", "Brand", "Type", "Size", "Container",
		"RetailPrice", "Comment", "Col9",
	}
	supplierColumns = []string{
		"SuppKey", "Name", "Address", "NationKey", "Phone", "AcctBal",
		"Comment", "Col9",
	}
)

// Dataset is the set of encoded TPC-H tables the analytics operations join.
// All columns are numeric.
type Dataset struct {
	LineItem *Table
	Orders   *Table
	Customer *Table
	Supplier *Table
	Part     *Table
}

// LoadDataset reads customer, lineitem, orders, part and supplier .tbl files
// from dir and encodes them.
func LoadDataset(dir string) (*Dataset, error) {
	var raw Dataset

	files := []struct {
		name string
		cols []string
		dst  **Table
	}{
		{"customer.tbl", customerColumns, &raw.Customer},
		{"lineitem.tbl", lineItemColumns, &raw.LineItem},
		{"orders.tbl", ordersColumns, &raw.Orders},
		{"part.tbl", partColumns, &raw.Part},
		{"supplier.tbl", supplierColumns, &raw.Supplier},
	}

	for _, f := range files {
		t, err := LoadTable(filepath.Join(dir, f.name), f.cols)
		if err != nil {
			return nil, err
		}

		*f.dst = t
	}

	return prepareDataset(&raw)
}

// prepareDataset numbers line items, maps join keys to dense ids, keeps the
// feature columns used by the analytics and one-hot encodes categoricals.
func prepareDataset(raw *Dataset) (*Dataset, error) {
	if err := raw.LineItem.AddRowIndex("LineItemKey"); err != nil {
		return nil, err
	}

	keys := []struct {
		name   string
		tables []*Table
	}{
		{"OrderKey", []*Table{raw.Orders, raw.LineItem}},
		{"CustomerKey", []*Table{raw.Customer, raw.Orders}},
		{"PartKey", []*Table{raw.Part, raw.LineItem}},
		{"SuppKey", []*Table{raw.Supplier, raw.LineItem}},
	}

	for _, k := range keys {
		if err := SimplifyColumns(k.name, k.tables...); err != nil {
			return nil, fmt.Errorf("simplify %s: %w", k.name, err)
		}
	}

	var ds Dataset

	steps := []struct {
		display string
		src     *Table
		dst     **Table
		keep    []string
		oneHot  []string
	}{
		{"lineitem", raw.LineItem, &ds.LineItem,
			[]string{"LineItemKey", "OrderKey", "PartKey", "SuppKey"}, nil},
		{"orders", raw.Orders, &ds.Orders,
			[]string{"OrderKey", "CustomerKey", "OrderStatus", "TotalPrice", "OrderPriority", "ShipPriority"},
			[]string{"OrderStatus", "OrderPriority", "ShipPriority"}},
		{"customer", raw.Customer, &ds.Customer,
			[]string{"CustomerKey", "NationKey", "AcctBal", "MktSegment"},
			[]string{"NationKey", "MktSegment"}},
		{"supplier", raw.Supplier, &ds.Supplier,
			[]string{"SuppKey", "NationKey", "AcctBal"},
			[]string{"NationKey"}},
		{"part", raw.Part, &ds.Part,
			[]string{"PartKey", "MFGR", "Brand", "Size", "Container", "RetailPrice"},
			[]string{"MFGR", "Brand", "Container"}},
	}

	for _, s := range steps {
		t, err := s.src.Project(s.keep...)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", s.display, err)
		}

		if err := t.OneHotEncode(s.oneHot...); err != nil {
			return nil, fmt.Errorf("encode %s: %w", s.display, err)
		}

		for _, c := range t.Columns {
			if !c.Numeric() {
				return nil, fmt.Errorf("%w: %s column %s is not numeric", ErrBadTable, s.display, c.Name)
			}
		}

		*s.dst = t
	}

	return &ds, nil
}

// TPCHConfig sizes the synthetic dataset and the analytics models.
type TPCHConfig struct {
	LineItems int
	Orders    int
	Customers int
	Suppliers int
	Parts     int
	// MaxCategories caps the number of distinct values per categorical
	// column regardless of density.
	MaxCategories int
	// Hidden is the width of both hidden layers of the neural network.
	Hidden int
	// Seed for data and model weights; 0 seeds from the clock.
	Seed int64
	// Operations restricts the set to these names; empty means all.
	Operations []string
}

// DefaultTPCHConfig returns a small synthetic dataset that runs in seconds.
func DefaultTPCHConfig() TPCHConfig {
	return TPCHConfig{
		LineItems:     4000,
		Orders:        1000,
		Customers:     100,
		Suppliers:     20,
		Parts:         400,
		MaxCategories: 100,
		Hidden:        25,
	}
}

// Validate checks the configuration.
func (c TPCHConfig) Validate() error {
	for _, v := range []struct {
		name string
		n    int
	}{
		{"line items", c.LineItems},
		{"orders", c.Orders},
		{"customers", c.Customers},
		{"suppliers", c.Suppliers},
		{"parts", c.Parts},
		{"max categories", c.MaxCategories},
		{"hidden", c.Hidden},
	} {
		if v.n <= 0 {
			return fmt.Errorf("%w: %s = %d", ErrInvalidParameter, v.name, v.n)
		}
	}

	_, err := selectNames(TPCHOperationNames(), c.Operations)

	return err
}

// Categories returns the number of distinct values a categorical column
// gets at density, so that its one-hot block has about that density.
func (c TPCHConfig) Categories(density float64) int {
	if density <= 0 {
		return c.MaxCategories
	}

	return max(1, min(c.MaxCategories, int(math.Ceil(1/density))))
}

// GenerateDataset synthesises raw TPC-H tables at density and encodes them
// exactly as loaded data would be.
func GenerateDataset(cfg TPCHConfig, density float64, rnd *rand.Rand) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := checkDensity("density", density); err != nil {
		return nil, err
	}

	k := cfg.Categories(density)

	seq := func(n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = float64(i + 1)
		}

		return out
	}

	pick := func(rows, n int) []float64 {
		out := make([]float64, rows)
		for i := range out {
			out[i] = float64(rnd.IntN(n) + 1)
		}

		return out
	}

	uniform := func(rows int, scale float64) []float64 {
		out := make([]float64, rows)
		for i := range out {
			out[i] = rnd.Float64() * scale
		}

		return out
	}

	category := func(rows int, prefix string) []string {
		out := make([]string, rows)
		for i := range out {
			out[i] = prefix + strconv.Itoa(rnd.IntN(k))
		}

		return out
	}

	numericCategory := func(rows int) []float64 {
		out := make([]float64, rows)
		for i := range out {
			out[i] = float64(rnd.IntN(k))
		}

		return out
	}

	var raw Dataset

	tables := []struct {
		dst  **Table
		cols []Column
	}{
		{&raw.LineItem, []Column{
			{Name: "OrderKey", Floats: pick(cfg.LineItems, cfg.Orders)},
			{Name: "PartKey", Floats: pick(cfg.LineItems, cfg.Parts)},
			{Name: "SuppKey", Floats: pick(cfg.LineItems, cfg.Suppliers)},
		}},
		{&raw.Orders, []Column{
			{Name: "OrderKey", Floats: seq(cfg.Orders)},
			{Name: "CustomerKey", Floats: pick(cfg.Orders, cfg.Customers)},
			{Name: "OrderStatus", Strings: category(cfg.Orders, "S")},
			{Name: "TotalPrice", Floats: uniform(cfg.Orders, 5e5)},
			{Name: "OrderPriority", Strings: category(cfg.Orders, "P")},
			{Name: "ShipPriority", Floats: numericCategory(cfg.Orders)},
		}},
		{&raw.Customer, []Column{
			{Name: "CustomerKey", Floats: seq(cfg.Customers)},
			{Name: "NationKey", Floats: numericCategory(cfg.Customers)},
			{Name: "AcctBal", Floats: uniform(cfg.Customers, 1e4)},
			{Name: "MktSegment", Strings: category(cfg.Customers, "M")},
		}},
		{&raw.Supplier, []Column{
			{Name: "SuppKey", Floats: seq(cfg.Suppliers)},
			{Name: "NationKey", Floats: numericCategory(cfg.Suppliers)},
			{Name: "AcctBal", Floats: uniform(cfg.Suppliers, 1e4)},
		}},
		{&raw.Part, []Column{
			{Name: "PartKey", Floats: seq(cfg.Parts)},
			{Name: "MFGR", Strings: category(cfg.Parts, "Manufacturer#")},
			{Name: "Brand", Strings: category(cfg.Parts, "Brand#")},
			{Name: "Size", Floats: uniform(cfg.Parts, 50)},
			{Name: "Container", Strings: category(cfg.Parts, "C")},
			{Name: "RetailPrice", Floats: uniform(cfg.Parts, 2e3)},
		}},
	}

	for _, tb := range tables {
		t, err := NewTable(tb.cols...)
		if err != nil {
			return nil, err
		}

		*tb.dst = t
	}

	return prepareDataset(&raw)
}

// StarJoin joins line items to their order, customer, supplier and part.
func StarJoin(ds *Dataset) (*Table, error) {
	t, err := HashJoin(ds.LineItem, ds.Orders, "OrderKey", "OrderKey", DefaultSuffixes)
	if err != nil {
		return nil, err
	}

	steps := []struct {
		right *Table
		key   string
	}{
		{ds.Customer, "CustomerKey"},
		{ds.Supplier, "SuppKey"},
		{ds.Part, "PartKey"},
	}

	for _, s := range steps {
		if t, err = HashJoin(t, s.right, s.key, s.key, DefaultSuffixes); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// SelfJoin pairs line items sharing a part, then attaches the part and both
// line items' suppliers.
func SelfJoin(ds *Dataset) (*Table, error) {
	t, err := HashJoin(ds.LineItem, ds.LineItem, "PartKey", "PartKey", DefaultSuffixes)
	if err != nil {
		return nil, err
	}

	if t, err = HashJoin(t, ds.Part, "PartKey", "PartKey", DefaultSuffixes); err != nil {
		return nil, err
	}

	if t, err = HashJoin(t, ds.Supplier, "SuppKey_x", "SuppKey", [2]string{"_1", "_2"}); err != nil {
		return nil, err
	}

	return HashJoin(t, ds.Supplier, "SuppKey_y", "SuppKey", [2]string{"_3", "__4"})
}
