// Package report formats benchmark records as CSV tables, markdown
// comparison tables, JSON and charts.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/weiihann/sweepbench/harness"
)

// ErrDuplicateRow is returned when two rows share method, algorithm and
// sweep value, e.g. a multi-density sweep stored in the execute layout.
var ErrDuplicateRow = errors.New("duplicate result row")

// Row is a report row with the sweep value already rendered as text. Sweep
// is empty for tables in the execute layout.
type Row struct {
	Method    string  `json:"method"`
	Algorithm string  `json:"algorithm"`
	Sweep     string  `json:"sweep,omitempty"`
	Seconds   float64 `json:"runtime_seconds"`
}

// FromRecords converts harness records to rows, preserving order.
func FromRecords[V any](records []harness.Record[V]) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = Row{
			Method:    r.Method,
			Algorithm: r.Operation,
			Sweep:     formatValue(r.Sweep),
			Seconds:   r.Seconds,
		}
	}

	return rows
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return formatFloat(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Generate writes a markdown comparison table for rows: one line per
// method and algorithm, one runtime column per sweep value, followed by
// each runtime relative to the fastest algorithm at that sweep value.
func Generate(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		return fmt.Errorf("no results to report")
	}

	g, err := groupRows(rows)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)

	header := make([]string, len(g.sweeps))
	for i, s := range g.sweeps {
		header[i] = sweepHeader(s)
	}

	writeTableHeader(w, header)

	for _, k := range g.series {
		cells := make([]string, len(g.sweeps))
		for i, s := range g.sweeps {
			cells[i] = "-"
			if v, ok := g.cell(k, s); ok {
				cells[i] = formatSeconds(v)
			}
		}

		writeTableRow(w, k, cells)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Relative to fastest:")
	fmt.Fprintln(w)

	writeTableHeader(w, header)

	for _, k := range g.series {
		cells := make([]string, len(g.sweeps))
		for i, s := range g.sweeps {
			cells[i] = "-"

			v, ok := g.cell(k, s)
			if !ok {
				continue
			}

			cells[i] = "1.00x"
			if fastest := g.fastest(s); fastest > 0 && v > 0 {
				cells[i] = fmt.Sprintf("%.2fx", v/fastest)
			}
		}

		writeTableRow(w, k, cells)
	}

	return nil
}

// GenerateJSON writes rows as JSON to w.
func GenerateJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(rows)
}

func sweepHeader(s string) string {
	if s == "" {
		return "Runtime"
	}

	return s
}

func writeTableHeader(w io.Writer, sweeps []string) {
	fmt.Fprintf(w, "| Method | Algorithm | %s |\n", strings.Join(sweeps, " | "))

	seps := make([]string, len(sweeps))
	for i := range seps {
		seps[i] = "---"
	}

	fmt.Fprintf(w, "|--------|-----------|%s|\n", strings.Join(seps, "|"))
}

func writeTableRow(w io.Writer, k seriesKey, cells []string) {
	fmt.Fprintf(w, "| %s | %s | %s |\n", k.method, k.algorithm, strings.Join(cells, " | "))
}

type seriesKey struct {
	method    string
	algorithm string
}

// grouped indexes rows by series and sweep value, keeping first-appearance
// order for both.
type grouped struct {
	series []seriesKey
	sweeps []string
	values map[seriesKey]map[string]float64
}

func groupRows(rows []Row) (grouped, error) {
	g := grouped{values: make(map[seriesKey]map[string]float64)}
	seenSweep := make(map[string]struct{})

	for _, r := range rows {
		k := seriesKey{r.Method, r.Algorithm}

		if _, ok := g.values[k]; !ok {
			g.values[k] = make(map[string]float64)
			g.series = append(g.series, k)
		}

		if _, ok := seenSweep[r.Sweep]; !ok {
			seenSweep[r.Sweep] = struct{}{}
			g.sweeps = append(g.sweeps, r.Sweep)
		}

		if _, dup := g.values[k][r.Sweep]; dup {
			return grouped{}, fmt.Errorf("%w: %s %s at sweep %q",
				ErrDuplicateRow, r.Method, r.Algorithm, r.Sweep)
		}

		g.values[k][r.Sweep] = r.Seconds
	}

	return g, nil
}

func (g grouped) cell(k seriesKey, sweep string) (float64, bool) {
	v, ok := g.values[k][sweep]
	return v, ok
}

func (g grouped) fastest(sweep string) float64 {
	fastest := math.Inf(1)

	for _, k := range g.series {
		if v, ok := g.cell(k, sweep); ok && v > 0 && v < fastest {
			fastest = v
		}
	}

	if math.IsInf(fastest, 1) {
		return 0
	}

	return fastest
}

func formatSeconds(s float64) string {
	switch {
	case s < 1e-3:
		return fmt.Sprintf("%.1fµs", s*1e6)
	case s < 1:
		return fmt.Sprintf("%.2fms", s*1e3)
	default:
		return fmt.Sprintf("%.2fs", s)
	}
}
