package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/tpm.report/internal/model"
	"github.com/banshee-data/tpm.report/internal/regression"
)

// ErrRunNotFound is returned by Run when no run has the requested id.
var ErrRunNotFound = errors.New("model run not found")

// ModelRun is one recorded fit.
type ModelRun struct {
	RunID        string
	InputPath    string
	RowCount     int
	Coefficients model.CoefficientSet
	Metrics      regression.Metrics
	TempMin      float64
	TempMax      float64
	CapMin       float64
	CapMax       float64
	CreatedAt    time.Time
}

// RecordRun stores run, assigning a new RunID and CreatedAt when unset.
// A NaN R² is stored as NULL.
func (db *DB) RecordRun(ctx context.Context, run *ModelRun) error {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = db.clock.Now()
	}

	var r2 sql.NullFloat64
	if !math.IsNaN(run.Metrics.RSquared) {
		r2 = sql.NullFloat64{Float64: run.Metrics.RSquared, Valid: true}
	}
	cs := run.Coefficients

	_, err := db.ExecContext(ctx, `
		INSERT INTO model_runs (
			run_id, scheme, input_path, row_count,
			intercept, term1, term2, term3, term4, term5,
			r_squared, mae, rmse,
			temp_min, temp_max, cap_min, cap_max,
			created_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, cs.Scheme.String(), run.InputPath, run.RowCount,
		cs.Intercept, cs.Terms[0], cs.Terms[1], cs.Terms[2], cs.Terms[3], cs.Terms[4],
		r2, run.Metrics.MAE, run.Metrics.RMSE,
		run.TempMin, run.TempMax, run.CapMin, run.CapMax,
		run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record model run: %w", err)
	}
	return nil
}

const selectRuns = `
	SELECT run_id, scheme, input_path, row_count,
		intercept, term1, term2, term3, term4, term5,
		r_squared, mae, rmse,
		COALESCE(temp_min, 0), COALESCE(temp_max, 0), COALESCE(cap_min, 0), COALESCE(cap_max, 0),
		created_unix
	FROM model_runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (ModelRun, error) {
	var (
		run     ModelRun
		scheme  string
		r2      sql.NullFloat64
		created int64
	)
	cs := &run.Coefficients
	if err := row.Scan(
		&run.RunID, &scheme, &run.InputPath, &run.RowCount,
		&cs.Intercept, &cs.Terms[0], &cs.Terms[1], &cs.Terms[2], &cs.Terms[3], &cs.Terms[4],
		&r2, &run.Metrics.MAE, &run.Metrics.RMSE,
		&run.TempMin, &run.TempMax, &run.CapMin, &run.CapMax,
		&created,
	); err != nil {
		return ModelRun{}, err
	}

	s, err := model.ParseScheme(scheme)
	if err != nil {
		return ModelRun{}, err
	}
	cs.Scheme = s
	run.Metrics.RSquared = math.NaN()
	if r2.Valid {
		run.Metrics.RSquared = r2.Float64
	}
	run.CreatedAt = time.Unix(0, created).UTC()
	return run, nil
}

// Run returns the run with the given id.
func (db *DB) Run(ctx context.Context, runID string) (ModelRun, error) {
	run, err := scanRun(db.QueryRowContext(ctx, selectRuns+` WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return ModelRun{}, ErrRunNotFound
	}
	if err != nil {
		return ModelRun{}, fmt.Errorf("failed to load model run %s: %w", runID, err)
	}
	return run, nil
}

// Runs returns the most recent runs, newest first. limit <= 0 means 100.
func (db *DB) Runs(ctx context.Context, limit int) ([]ModelRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, selectRuns+` ORDER BY created_unix DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list model runs: %w", err)
	}
	defer rows.Close()

	var runs []ModelRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestRun returns the newest run for scheme.
func (db *DB) LatestRun(ctx context.Context, scheme model.Scheme) (ModelRun, error) {
	run, err := scanRun(db.QueryRowContext(ctx,
		selectRuns+` WHERE scheme = ? ORDER BY created_unix DESC LIMIT 1`, scheme.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return ModelRun{}, ErrRunNotFound
	}
	if err != nil {
		return ModelRun{}, fmt.Errorf("failed to load latest %s run: %w", scheme, err)
	}
	return run, nil
}
