package report

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/tpm.report/internal/fsutil"
)

// Chart size for PNG output.
const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 8 * vg.Inch
)

// ChartData is a measured-versus-predicted series.
type ChartData struct {
	Title     string
	Measured  []float64
	Predicted []float64
}

func (d ChartData) validate() error {
	if len(d.Measured) != len(d.Predicted) {
		return fmt.Errorf("chart %q: %d measured values but %d predictions", d.Title, len(d.Measured), len(d.Predicted))
	}
	if len(d.Measured) == 0 {
		return fmt.Errorf("chart %q: no points", d.Title)
	}
	return nil
}

// extent returns a common axis range covering both series.
func (d ChartData) extent() (lo, hi float64) {
	lo = math.Min(floats.Min(d.Measured), floats.Min(d.Predicted))
	hi = math.Max(floats.Max(d.Measured), floats.Max(d.Predicted))
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	return lo, hi
}

// PlotPredictions writes a PNG scatter of measured (x) against predicted (y)
// TPM with the y = x reference line.
func PlotPredictions(w io.Writer, d ChartData) error {
	if err := d.validate(); err != nil {
		return err
	}

	pts := make(plotter.XYs, len(d.Measured))
	for i := range d.Measured {
		pts[i] = plotter.XY{X: d.Measured[i], Y: d.Predicted[i]}
	}

	p := plot.New()
	p.Title.Text = d.Title
	p.X.Label.Text = "TPM measured (%)"
	p.Y.Label.Text = "TPM predicted (%)"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("failed to create scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(scatter)
	p.Legend.Add("samples", scatter)

	lo, hi := d.extent()
	ref, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return fmt.Errorf("failed to create reference line: %w", err)
	}
	ref.Width = vg.Points(1)
	ref.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	ref.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(ref)
	p.Legend.Add("y = x", ref)
	p.Legend.Top = true
	p.Legend.Left = true

	p.X.Min, p.X.Max = lo, hi
	p.Y.Min, p.Y.Max = lo, hi

	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}

// RenderScatterHTML writes an interactive measured-versus-predicted chart.
func RenderScatterHTML(w io.Writer, d ChartData) error {
	if err := d.validate(); err != nil {
		return err
	}

	data := make([]opts.ScatterData, len(d.Measured))
	for i := range d.Measured {
		data[i] = opts.ScatterData{Value: []interface{}{d.Measured[i], d.Predicted[i]}}
	}
	lo, hi := d.extent()

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: d.Title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: d.Title, Subtitle: fmt.Sprintf("points=%d", len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: lo, Max: hi, Name: "TPM measured (%)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: lo, Max: hi, Name: "TPM predicted (%)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("samples", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	scatter.AddSeries("y = x", []opts.ScatterData{
		{Value: []interface{}{lo, lo}},
		{Value: []interface{}{hi, hi}},
	}, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// SaveChart renders d with render into the named file, creating parent
// directories as needed.
func SaveChart(fsys fsutil.FileSystem, path string, d ChartData, render func(io.Writer, ChartData) error) (err error) {
	if err := fsutil.EnsureParent(fsys, path); err != nil {
		return err
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	return render(f, d)
}
