package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNothingToPlot is returned when no row has a positive runtime that can
// be drawn.
var ErrNothingToPlot = errors.New("no plottable results")

// ChartConfig holds configuration for chart generation.
type ChartConfig struct {
	Title  string
	Width  vg.Length
	Height vg.Length
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Title:  "Runtime vs Sparsity",
		Width:  10 * vg.Inch,
		Height: 6 * vg.Inch,
	}
}

// Plot renders rows as a PNG chart at path. Rows with a numeric sweep value
// become one line per method and algorithm on log-log axes; rows without
// one become a bar chart of runtime per algorithm.
func Plot(path string, rows []Row, cfg ChartConfig) error {
	p, err := newPlot(rows, cfg)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	return p.Save(cfg.Width, cfg.Height, path)
}

// WritePlot renders rows as a PNG chart to w.
func WritePlot(w io.Writer, rows []Row, cfg ChartConfig) error {
	p, err := newPlot(rows, cfg)
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(cfg.Width, cfg.Height, "png")
	if err != nil {
		return err
	}

	_, err = wt.WriteTo(w)

	return err
}

func newPlot(rows []Row, cfg ChartConfig) (*plot.Plot, error) {
	if len(rows) == 0 {
		return nil, ErrNothingToPlot
	}

	def := DefaultChartConfig()
	if cfg.Width <= 0 {
		cfg.Width = def.Width
	}

	if cfg.Height <= 0 {
		cfg.Height = def.Height
	}

	p := plot.New()
	p.Title.Text = cfg.Title
	p.Y.Label.Text = "Runtime (s)"

	g, err := groupRows(rows)
	if err != nil {
		return nil, err
	}

	if hasNumericSweep(g.sweeps) {
		err = addLines(p, g)
	} else {
		err = addBars(p, g)
	}

	if err != nil {
		return nil, err
	}

	p.Add(plotter.NewGrid())

	return p, nil
}

func hasNumericSweep(sweeps []string) bool {
	for _, s := range sweeps {
		if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 {
			return true
		}
	}

	return false
}

func addLines(p *plot.Plot, g grouped) error {
	p.X.Label.Text = "Sparsity"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	added := 0

	for i, k := range g.series {
		var pts plotter.XYs

		for sweep, secs := range g.values[k] {
			x, err := strconv.ParseFloat(sweep, 64)
			if err != nil || x <= 0 || secs <= 0 {
				continue
			}

			pts = append(pts, plotter.XY{X: x, Y: secs})
		}

		if len(pts) == 0 {
			continue
		}

		sort.Slice(pts, func(i, j int) bool { return pts[i].X < pts[j].X })

		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return err
		}

		c := plotutil.Color(i)
		line.Color = c
		line.Width = vg.Points(2)
		points.Color = c
		points.Shape = plotutil.Shape(i)
		points.Radius = vg.Points(3)

		p.Add(line, points)
		p.Legend.Add(seriesLabel(g, k), line, points)

		added++
	}

	if added == 0 {
		return ErrNothingToPlot
	}

	return nil
}

func addBars(p *plot.Plot, g grouped) error {
	var (
		methods    []string
		algorithms []string
		seenMethod = make(map[string]bool)
		seenAlgo   = make(map[string]bool)
	)

	for _, k := range g.series {
		if !seenMethod[k.method] {
			seenMethod[k.method] = true
			methods = append(methods, k.method)
		}

		if !seenAlgo[k.algorithm] {
			seenAlgo[k.algorithm] = true
			algorithms = append(algorithms, k.algorithm)
		}
	}

	width := vg.Points(16)

	for i, m := range methods {
		vals := make(plotter.Values, len(algorithms))
		for j, a := range algorithms {
			// Runtime of a method is taken at the first sweep value it reports.
			for _, s := range g.sweeps {
				if v, ok := g.cell(seriesKey{m, a}, s); ok {
					vals[j] = v
					break
				}
			}
		}

		bars, err := plotter.NewBarChart(vals, width)
		if err != nil {
			return err
		}

		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = 0
		bars.Offset = vg.Length(i-len(methods)/2) * width

		p.Add(bars)
		p.Legend.Add(m, bars)
	}

	p.NominalX(algorithms...)
	p.Legend.Top = true

	return nil
}

func seriesLabel(g grouped, k seriesKey) string {
	methods := make(map[string]struct{})
	for _, s := range g.series {
		methods[s.method] = struct{}{}
	}

	if len(methods) == 1 {
		return k.algorithm
	}

	return k.method + " " + k.algorithm
}
