// Command tpm-history inspects the SQLite run history written by tpm-fit.
//
//	tpm-history -db runs.db list [-n 20]
//	tpm-history -db runs.db show <run-id>
//	tpm-history -db runs.db migrate up|down|status
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/tpm.report/internal/config"
	"github.com/banshee-data/tpm.report/internal/db"
	"github.com/banshee-data/tpm.report/internal/export"
	"github.com/banshee-data/tpm.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to JSON model config (optional)")
	dbPath      = flag.String("db", "", "SQLite run database (overrides db_path)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] list|show|migrate ...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("tpm-history"))
		return
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	path := *dbPath
	if path == "" {
		path = cfg.GetDBPath()
	}
	if path == "" {
		log.Fatal("a database is required: pass -db or set db_path")
	}

	if err := run(context.Background(), path, flag.Args(), os.Stdout); err != nil {
		log.Fatalf("tpm-history: %v", err)
	}
}

func run(ctx context.Context, path string, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("expected a subcommand: list, show or migrate")
	}

	switch args[0] {
	case "migrate":
		return db.RunMigrateCommand(stdout, args[1:], path)
	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		limit := fs.Int("n", 20, "Number of runs to show")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		return list(ctx, path, *limit, stdout)
	case "show":
		if len(args) < 2 {
			return errors.New("usage: show <run-id>")
		}
		return show(ctx, path, args[1], stdout)
	default:
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func list(ctx context.Context, path string, limit int, stdout io.Writer) error {
	store, err := db.NewDB(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tSCHEME\tROWS\tR²\tMAE\tRMSE\tINPUT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%.6f\t%.6f\t%s\n",
			r.RunID, r.CreatedAt.Format(time.RFC3339), r.Coefficients.Scheme, r.RowCount,
			formatR2(r.Metrics.RSquared), r.Metrics.MAE, r.Metrics.RMSE, r.InputPath)
	}
	return tw.Flush()
}

func show(ctx context.Context, path, runID string, stdout io.Writer) error {
	store, err := db.NewDB(path)
	if err != nil {
		return err
	}
	defer store.Close()

	r, err := store.Run(ctx, runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Run:     %s\n", r.RunID)
	fmt.Fprintf(stdout, "Created: %s\n", r.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(stdout, "Input:   %s (%d rows)\n", r.InputPath, r.RowCount)
	fmt.Fprintf(stdout, "Bounds:  T=[%.3f, %.3f] C=[%.0f, %.0f]\n", r.TempMin, r.TempMax, r.CapMin, r.CapMax)
	fmt.Fprintf(stdout, "R²=%s  MAE=%.6f  RMSE=%.6f\n\n", formatR2(r.Metrics.RSquared), r.Metrics.MAE, r.Metrics.RMSE)
	return export.WriteCoefficients(stdout, r.Coefficients)
}

func formatR2(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
