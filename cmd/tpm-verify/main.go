// Command tpm-verify applies a raw-scale α0..α5 TPM model to a sensor CSV.
// It prints predictions for the minimum, median-index and maximum
// temperature rows and the mean absolute error over a seeded random subset.
//
// Coefficients come from, in order of precedence, -coefficients (a CSV
// written by tpm-fit), the latest raw-linear run in -db, or the config file.
package main

import (
	"context"
	"errors"
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
	"github.com/banshee-data/tpm.report/internal/surface"
	"github.com/banshee-data/tpm.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to JSON model config (optional)")
	inputPath   = flag.String("input", "", "Sensor CSV to verify against (overrides input_path)")
	coefPath    = flag.String("coefficients", "", "Coefficient CSV written by tpm-fit (overrides raw_linear)")
	dbPath      = flag.String("db", "", "Use the latest raw-linear run recorded in this SQLite database")
	htmlPath    = flag.String("html", "", "Write a measured-vs-predicted HTML chart for the whole dataset here")
	plotPath    = flag.String("plot", "", "Write a measured-vs-predicted PNG for the whole dataset here")
	samples     = flag.Int("samples", -1, "Random subset size (overrides subset_size)")
	seed        = flag.Uint64("seed", 0, "Random subset seed (overrides subset_seed when set)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

type options struct {
	Input        string
	Coefficients string
	DB           string
	PlotPath     string
	HTMLPath     string
	SubsetSize   int
	SubsetSeed   uint64
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("tpm-verify"))
		return
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	opts := options{
		Input:        *inputPath,
		Coefficients: *coefPath,
		DB:           *dbPath,
		PlotPath:     *plotPath,
		HTMLPath:     *htmlPath,
		SubsetSize:   cfg.GetSubsetSize(),
		SubsetSeed:   cfg.GetSubsetSeed(),
	}
	if opts.Input == "" {
		opts.Input = cfg.GetInputPath()
	}
	if *samples >= 0 {
		opts.SubsetSize = *samples
	}
	opts.SubsetSeed = seedOverride(flag.CommandLine, opts.SubsetSeed, *seed)

	ctx := context.Background()
	fsys := fsutil.OSFileSystem{}
	cs, err := loadCoefficients(ctx, fsys, opts, cfg)
	if err != nil {
		log.Fatalf("failed to load coefficients: %v", err)
	}

	if err := run(fsys, opts, cs, os.Stdout); err != nil {
		log.Fatalf("tpm-verify: %v", err)
	}
}

// seedOverride returns the -seed value when the flag was given explicitly,
// including -seed 0, and the configured seed otherwise.
func seedOverride(fs *flag.FlagSet, configured, flagValue uint64) uint64 {
	seed := configured
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seed = flagValue
		}
	})
	return seed
}

func loadCoefficients(ctx context.Context, fsys fsutil.FileSystem, opts options, cfg *config.ModelConfig) (model.CoefficientSet, error) {
	switch {
	case opts.Coefficients != "":
		return export.LoadCoefficients(fsys, opts.Coefficients, model.RawLinear)
	case opts.DB != "":
		store, err := db.NewDB(opts.DB)
		if err != nil {
			return model.CoefficientSet{}, err
		}
		defer store.Close()
		mr, err := store.LatestRun(ctx, model.RawLinear)
		if errors.Is(err, db.ErrRunNotFound) {
			return model.CoefficientSet{}, fmt.Errorf("no raw-linear runs recorded in %s", opts.DB)
		}
		if err != nil {
			return model.CoefficientSet{}, err
		}
		log.Printf("using run %s (fitted %s on %s)", mr.RunID, mr.CreatedAt.Format("2006-01-02 15:04:05"), mr.InputPath)
		return mr.Coefficients, nil
	default:
		return cfg.GetRawLinear().CoefficientSet(), nil
	}
}

func run(fsys fsutil.FileSystem, opts options, cs model.CoefficientSet, stdout io.Writer) error {
	ds, err := dataset.Load(fsys, opts.Input)
	if err != nil {
		return err
	}

	b := ds.Bounds()
	summary, err := report.Summarize(ds, b.TempRange(), b.CapRange())
	if err != nil {
		return err
	}

	m, err := surface.NewRawLinearModel(cs)
	if err != nil {
		return err
	}
	preds, err := surface.PredictAll(m, ds.Temperatures(), ds.Capacitances())
	if err != nil {
		return err
	}
	predicted := surface.Values(preds)
	measured := ds.TPMs()

	rep := report.VerifyReport{
		Summary:      summary,
		Coefficients: m.Coefficients(),
	}
	for _, s := range report.RepresentativeSamples(ds) {
		rep.Samples = append(rep.Samples, report.SampleResult{
			Label:     s.Label,
			Index:     s.Index,
			Record:    ds.Record(s.Index),
			Predicted: predicted[s.Index],
		})
	}

	if idx := report.RandomSubset(ds.Len(), opts.SubsetSize, opts.SubsetSeed); len(idx) > 0 {
		metrics, err := regression.ComputeMetrics(report.Subset(measured, idx), report.Subset(predicted, idx))
		if err != nil {
			return err
		}
		rep.SubsetSize = len(idx)
		rep.SubsetMAE = metrics.MAE
	}

	chart := report.ChartData{Title: "TPM raw linear model check", Measured: measured, Predicted: predicted}
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

	return report.WriteVerify(stdout, rep)
}
