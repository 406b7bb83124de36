// Command tpm-fit fits the raw-scale TPM model
//
//	TPM = α0 + α1·C + α2·T + α3·C·T + α4·C² + α5·T²
//
// over a sensor CSV, prints the coefficients with R², MAE and RMSE, and
// exports the coefficients to CSV. With -db the run is recorded in SQLite.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/tpm.report/internal/config"
	"github.com/banshee-data/tpm.report/internal/dataset"
	"github.com/banshee-data/tpm.report/internal/db"
	"github.com/banshee-data/tpm.report/internal/export"
	"github.com/banshee-data/tpm.report/internal/fsutil"
	"github.com/banshee-data/tpm.report/internal/model"
	"github.com/banshee-data/tpm.report/internal/regression"
	"github.com/banshee-data/tpm.report/internal/report"
	"github.com/banshee-data/tpm.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to JSON model config (optional)")
	inputPath   = flag.String("input", "", "Sensor CSV to fit (overrides input_path)")
	outPath     = flag.String("out", "", "Coefficient CSV to write (overrides coefficients_out)")
	dbPath      = flag.String("db", "", "SQLite database to record the run in (overrides db_path)")
	plotPath    = flag.String("plot", "", "Write a measured-vs-predicted PNG here (overrides plot_path)")
	htmlPath    = flag.String("html", "", "Write a measured-vs-predicted HTML chart here (overrides html_path)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

type options struct {
	Input    string
	Out      string
	DB       string
	PlotPath string
	HTMLPath string
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("tpm-fit"))
		return
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	opts := options{
		Input:    override(*inputPath, cfg.GetInputPath()),
		Out:      override(*outPath, cfg.GetCoefficientsOut()),
		DB:       override(*dbPath, cfg.GetDBPath()),
		PlotPath: override(*plotPath, cfg.GetPlotPath()),
		HTMLPath: override(*htmlPath, cfg.GetHTMLPath()),
	}

	if err := run(context.Background(), fsutil.OSFileSystem{}, opts, os.Stdout); err != nil {
		log.Fatalf("tpm-fit: %v", err)
	}
}

func override(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func run(ctx context.Context, fsys fsutil.FileSystem, opts options, stdout io.Writer) error {
	ds, err := dataset.Load(fsys, opts.Input)
	if err != nil {
		return err
	}

	features, err := model.BuildRaw(ds.Temperatures(), ds.Capacitances())
	if err != nil {
		return err
	}
	cs, metrics, err := regression.Fit(features, ds.TPMs())
	if err != nil {
		return fmt.Errorf("fit failed: %w", err)
	}

	rep := report.FitReport{
		Rows:         ds.Len(),
		Coefficients: cs,
		Metrics:      metrics,
	}

	if opts.Out != "" {
		if err := export.SaveCoefficients(fsys, opts.Out, cs); err != nil {
			return err
		}
		rep.CoefficientsPath = opts.Out
	}

	if opts.DB != "" {
		runID, err := recordRun(ctx, opts, ds, cs, metrics)
		if err != nil {
			return err
		}
		rep.RunID = runID
	}

	if opts.PlotPath != "" || opts.HTMLPath != "" {
		preds, err := regression.Predict(cs, features)
		if err != nil {
			return err
		}
		chart := report.ChartData{
			Title:     fmt.Sprintf("TPM raw linear fit (R²=%.4f)", metrics.RSquared),
			Measured:  ds.TPMs(),
			Predicted: preds,
		}
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
	}

	return report.WriteFit(stdout, rep)
}

func recordRun(ctx context.Context, opts options, ds *dataset.Dataset, cs model.CoefficientSet, metrics regression.Metrics) (string, error) {
	store, err := db.NewDB(opts.DB)
	if err != nil {
		return "", err
	}
	defer store.Close()

	b := ds.Bounds()
	mr := &db.ModelRun{
		InputPath:    opts.Input,
		RowCount:     ds.Len(),
		Coefficients: cs,
		Metrics:      metrics,
		TempMin:      b.TempMin,
		TempMax:      b.TempMax,
		CapMin:       b.CapMin,
		CapMax:       b.CapMax,
	}
	if err := store.RecordRun(ctx, mr); err != nil {
		return "", err
	}
	return mr.RunID, nil
}
