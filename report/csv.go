package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
)

// Layout selects the column set of a results table.
type Layout string

const (
	// LayoutSweep writes Method,Algorithm,Sparsity,Runtime.
	LayoutSweep Layout = "sweep"
	// LayoutExecute writes Method,Algorithm,ExecuteTime,OptTime with the
	// optimisation time fixed at zero.
	LayoutExecute Layout = "execute"
)

var (
	// ErrUnknownLayout is returned for a layout name other than sweep or
	// execute.
	ErrUnknownLayout = errors.New("unknown table layout")

	// ErrMalformed is returned by ReadCSV for input that is not a results
	// table in either layout.
	ErrMalformed = errors.New("malformed results table")
)

var (
	sweepColumns   = []string{"Method", "Algorithm", "Sparsity", "Runtime"}
	executeColumns = []string{"Method", "Algorithm", "ExecuteTime", "OptTime"}
)

// ParseLayout validates a layout name.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(s); l {
	case LayoutSweep, LayoutExecute:
		return l, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLayout, s)
	}
}

// Header returns the CSV header line for the layout.
func (l Layout) Header() ([]string, error) {
	switch l {
	case LayoutSweep:
		return slices.Clone(sweepColumns), nil
	case LayoutExecute:
		return slices.Clone(executeColumns), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, string(l))
	}
}

// WriteCSV writes rows as a header line followed by one line per row.
func WriteCSV(w io.Writer, layout Layout, rows []Row) error {
	header, err := layout.Header()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		rec := []string{r.Method, r.Algorithm, r.Sweep, formatFloat(r.Seconds)}
		if layout == LayoutExecute {
			rec = []string{r.Method, r.Algorithm, formatFloat(r.Seconds), "0"}
		}

		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteFile writes rows to path, creating parent directories as needed.
func WriteFile(path string, layout Layout, rows []Row) error {
	if _, err := layout.Header(); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := WriteCSV(f, layout, rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	return f.Close()
}

// ReadCSV parses a table in either layout, detected from its header.
func ReadCSV(r io.Reader) ([]Row, Layout, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(sweepColumns)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, "", fmt.Errorf("%w: empty input", ErrMalformed)
		}

		return nil, "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	var layout Layout

	switch {
	case slices.Equal(header, sweepColumns):
		layout = LayoutSweep
	case slices.Equal(header, executeColumns):
		layout = LayoutExecute
	default:
		return nil, "", fmt.Errorf("%w: unrecognised header %v", ErrMalformed, header)
	}

	var rows []Row

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		row := Row{Method: rec[0], Algorithm: rec[1]}
		runtime := rec[3]

		if layout == LayoutExecute {
			runtime = rec[2]
		} else {
			row.Sweep = rec[2]
		}

		row.Seconds, err = strconv.ParseFloat(runtime, 64)
		if err != nil {
			return nil, "", fmt.Errorf("%w: line %d: runtime %q", ErrMalformed, line, runtime)
		}

		rows = append(rows, row)
	}

	return rows, layout, nil
}

// ReadFile parses the table stored at path.
func ReadFile(path string) ([]Row, Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	return ReadCSV(f)
}
