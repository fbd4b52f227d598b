// Package plot renders a fit comparison as an overlay chart.
package plot

import (
	"fmt"
	"image/color"
	"io"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/plantabyte/hillclimbfit/internal/config"
	"github.com/plantabyte/hillclimbfit/internal/fit"
)

// Default output size
const (
	Width  = 8 * vg.Inch
	Height = 5 * vg.Inch
)

// curvePoints is the number of points each fitted curve is sampled at
const curvePoints = 200

var (
	red   = color.RGBA{R: 220, A: 255}
	green = color.RGBA{G: 160, A: 255}
	blue  = color.RGBA{B: 220, A: 255}
)

// New builds the chart: samples as red crosses, the reference fit as a solid
// green line, the hill-climb fit as a dashed blue line, and any other methods
// in plotutil's palette.
func New(cmp *fit.Comparison) (*plot.Plot, error) {
	if err := cmp.Samples.Validate(); err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = "Curve fit comparison"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	scatter, err := plotter.NewScatter(toXYs(cmp.Samples.X, cmp.Samples.Y))
	if err != nil {
		return nil, fmt.Errorf("failed to create scatter: %w", err)
	}
	scatter.GlyphStyle.Shape = draw.CrossGlyph{}
	scatter.GlyphStyle.Color = red
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(scatter)
	p.Legend.Add("source data", scatter)

	lo := slices.Min(cmp.Samples.X)
	hi := slices.Max(cmp.Samples.X)
	xs := fit.Linspace(lo, hi, curvePoints)
	if lo == hi {
		xs = []float64{lo}
	}
	model := cmp.Model()

	for i, res := range cmp.Results {
		line, err := plotter.NewLine(toXYs(xs, model.EvalAll(xs, res.Params)))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s line: %w", res.Method, err)
		}
		line.LineStyle.Width = vg.Points(1.5)

		switch res.Method {
		case config.MethodLM:
			line.LineStyle.Color = green
		case config.MethodHillClimb:
			line.LineStyle.Color = blue
			line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		default:
			line.LineStyle.Color = plotutil.Color(i + 3)
			line.LineStyle.Dashes = plotutil.Dashes(i + 1)
		}

		p.Add(line)
		p.Legend.Add(res.Method, line)
	}

	return p, nil
}

// Save writes the chart to path; the extension picks the format (png, svg, pdf, ...)
func Save(cmp *fit.Comparison, path string) error {
	p, err := New(cmp)
	if err != nil {
		return err
	}
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}

// WritePNG encodes the chart as PNG to w
func WritePNG(w io.Writer, cmp *fit.Comparison) error {
	p, err := New(cmp)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}

func toXYs(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}
