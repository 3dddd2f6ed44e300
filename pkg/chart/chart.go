package chart

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/partcast/partcast/pkg/reliability"
)

// Figure size matches the 7x4.5in charts of the first version of the tool.
const (
	figWidth  = 7 * vg.Inch
	figHeight = 4.5 * vg.Inch
)

var dashes = []vg.Length{vg.Points(4), vg.Points(3)}

// Render draws the curve described by offsets/risk and writes it to w as PNG.
func Render(w io.Writer, offsets, risk []float64, meta reliability.Meta) error {
	if len(offsets) == 0 || len(offsets) != len(risk) {
		return fmt.Errorf("chart: need equal, non-empty series (got %d offsets, %d values)", len(offsets), len(risk))
	}

	p := plot.New()
	p.Title.Text = "Failure projection: " + title(meta.Part)
	p.X.Label.Text = "Kilometres ahead (without service)"
	p.Y.Label.Text = "Failure probability (%)"
	p.Y.Min = 0
	p.Y.Max = yMax(risk)
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(offsets))
	for i := range offsets {
		pts[i].X = offsets[i]
		pts[i].Y = risk[i]
	}
	curve, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("chart: curve: %w", err)
	}
	p.Add(curve)
	p.Legend.Add("Conditional risk over the horizon", curve)

	today, err := guide(0, p.Y.Max)
	if err != nil {
		return err
	}
	p.Add(today)
	p.Legend.Add("Today", today)

	horizon := offsets[len(offsets)-1]
	if due := meta.IntervalKm - meta.TNowKm; due > 0 && due <= horizon {
		interval, err := guide(due, p.Y.Max)
		if err != nil {
			return err
		}
		p.Add(interval)
		p.Legend.Add("Recommended interval", interval)
	}

	wt, err := p.WriterTo(figWidth, figHeight, "png")
	if err != nil {
		return fmt.Errorf("chart: build png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("chart: write png: %w", err)
	}
	return nil
}

// RenderFile renders the chart into dir as projection_<part>_<uuid>.png and
// returns the file name (not the full path). A partially written file is
// removed on failure.
func RenderFile(dir string, offsets, risk []float64, meta reliability.Meta) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("chart: create dir %q: %w", dir, err)
	}
	name := fmt.Sprintf("projection_%s_%s.png", meta.Part, uuid.NewString())
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("chart: create %q: %w", path, err)
	}
	if err := Render(f, offsets, risk, meta); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("chart: close %q: %w", path, err)
	}
	return name, nil
}

// guide returns a dashed vertical line at x spanning the y range.
func guide(x, top float64) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: top}})
	if err != nil {
		return nil, fmt.Errorf("chart: guide at %v: %w", x, err)
	}
	l.LineStyle.Dashes = dashes
	l.LineStyle.Width = vg.Points(1)
	return l, nil
}

// yMax leaves 5% headroom above the highest value, at least 1 percentage point.
func yMax(risk []float64) float64 {
	top := 0.0
	for _, v := range risk {
		if v > top {
			top = v
		}
	}
	if top < 1 {
		return 1
	}
	return top * 1.05
}

func title(part string) string {
	if part == "" {
		return ""
	}
	return strings.ToUpper(part[:1]) + part[1:]
}
