// Command tpm-surface evaluates the normalized quadratic TPM surface
//
//	TPM = θ1 + θ2·Ts + θ3·Cs + θ4·Ts² + θ5·Cs² + θ6·Ts·Cs
//
// over a sensor CSV, where Ts and Cs are min-max scaled against the dataset
// (or the configured surface_bounds). It reports the surface and error
// statistics, a manual test point with an extrapolation flag, and the row
// nearest to the test capacitance.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/tpm.report/internal/config"
	"github.com/banshee-data/tpm.report/internal/dataset"
	"github.com/banshee-data/tpm.report/internal/fsutil"
	"github.com/banshee-data/tpm.report/internal/hexcap"
	"github.com/banshee-data/tpm.report/internal/model"
	"github.com/banshee-data/tpm.report/internal/report"
	"github.com/banshee-data/tpm.report/internal/surface"
	"github.com/banshee-data/tpm.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to JSON model config (optional)")
	inputPath   = flag.String("input", "", "Sensor CSV to evaluate (overrides input_path)")
	testTemp    = flag.Float64("t", 0, "Manual test temperature in °C (overrides test_temperature when set)")
	testCapHex  = flag.String("c", "", "Manual test capacitance as hex (overrides test_capacitance_hex)")
	htmlPath    = flag.String("html", "", "Write a measured-vs-surface HTML chart here")
	plotPath    = flag.String("plot", "", "Write a measured-vs-surface PNG here")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

type options struct {
	Input        string
	Coefficients model.CoefficientSet
	Bounds       *config.SurfaceBounds
	TestTemp     float64
	TestCapHex   string
	PlotPath     string
	HTMLPath     string
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("tpm-surface"))
		return
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	opts := options{
		Input:        cfg.GetInputPath(),
		Coefficients: cfg.GetQuadraticSurface().CoefficientSet(),
		Bounds:       cfg.GetSurfaceBounds(),
		TestTemp:     cfg.GetTestTemperature(),
		TestCapHex:   cfg.GetTestCapacitanceHex(),
		PlotPath:     *plotPath,
		HTMLPath:     *htmlPath,
	}
	if *inputPath != "" {
		opts.Input = *inputPath
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			opts.TestTemp = *testTemp
		}
	})
	if *testCapHex != "" {
		opts.TestCapHex = *testCapHex
	}

	if err := run(fsutil.OSFileSystem{}, opts, os.Stdout); err != nil {
		log.Fatalf("tpm-surface: %v", err)
	}
}

func run(fsys fsutil.FileSystem, opts options, stdout io.Writer) error {
	ds, err := dataset.Load(fsys, opts.Input)
	if err != nil {
		return err
	}

	tempRange, capRange := ds.Bounds().TempRange(), ds.Bounds().CapRange()
	if opts.Bounds != nil {
		tempRange, capRange = opts.Bounds.Temperature, opts.Bounds.Capacitance
	}
	if err := tempRange.Validate(); err != nil {
		return fmt.Errorf("temperature bounds: %w", err)
	}
	if err := capRange.Validate(); err != nil {
		return fmt.Errorf("capacitance bounds: %w", err)
	}

	m, err := surface.NewNormalizedQuadraticModel(opts.Coefficients, tempRange, capRange)
	if err != nil {
		return err
	}

	summary, err := report.Summarize(ds, tempRange, capRange)
	if err != nil {
		return err
	}
	preds, err := surface.PredictAll(m, ds.Temperatures(), ds.Capacitances())
	if err != nil {
		return err
	}
	values := surface.Values(preds)
	measured := ds.TPMs()

	dist, err := report.Describe(values)
	if err != nil {
		return err
	}
	errStats, err := report.ErrorStats(measured, values)
	if err != nil {
		return err
	}

	rep := report.SurfaceReport{
		Summary:      summary,
		Coefficients: m.Coefficients(),
		Surface:      dist,
		Errors:       errStats,
	}

	if opts.TestCapHex != "" {
		test, nearest, err := manualTest(ds, m, preds, opts)
		if err != nil {
			return err
		}
		rep.Test, rep.Nearest = test, nearest
	}

	chart := report.ChartData{Title: "TPM quadratic surface", Measured: measured, Predicted: values}
	if opts.PlotPath != "" {
		if err := report.SaveChart(fsys, opts.PlotPath, chart, report.PlotPredictions); err != nil {
			return err
		}
	}
	if opts.HTMLPath != "" {
		if err := report.SaveChart(fsys, opts.HTMLPath, chart, report.RenderScatterHTML); err != nil {
			return err
		}
	}

	return report.WriteSurface(stdout, rep)
}

// manualTest evaluates the surface at the configured test point and looks up
// the dataset row with the nearest capacitance.
func manualTest(ds *dataset.Dataset, m *surface.NormalizedQuadraticModel, preds []surface.Prediction, opts options) (*report.TestPoint, *report.NearestRow, error) {
	c, err := hexcap.Decode(opts.TestCapHex)
	if err != nil {
		return nil, nil, fmt.Errorf("test capacitance: %w", err)
	}
	p, err := m.Predict(opts.TestTemp, hexcap.Float(c))
	if err != nil {
		return nil, nil, err
	}
	test := &report.TestPoint{
		Temperature:    opts.TestTemp,
		CapacitanceHex: opts.TestCapHex,
		Capacitance:    c,
		Prediction:     p,
	}

	idx := report.NearestCapacitance(ds, c)
	nearest := &report.NearestRow{
		Index:     idx,
		Record:    ds.Record(idx),
		TScaled:   preds[idx].TScaled,
		CScaled:   preds[idx].CScaled,
		Predicted: preds[idx].Value,
	}
	return test, nearest, nil
}
