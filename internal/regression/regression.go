// Package regression fits ordinary least-squares models over a fixed
// five-term feature basis plus intercept, and reports training-set fit
// quality.
package regression

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/tpm.report/internal/model"
	"github.com/banshee-data/tpm.report/internal/monitoring"
	"github.com/banshee-data/tpm.report/internal/surface"
)

// NumParams is the number of free parameters: intercept plus one per term.
const NumParams = model.NumTerms + 1

// UnderdeterminedSystemError is returned when the design matrix cannot
// identify every parameter, either because there are too few rows or
// because the columns are linearly dependent.
type UnderdeterminedSystemError struct {
	Rows          int
	Params        int
	RankDeficient bool
}

func (e *UnderdeterminedSystemError) Error() string {
	if e.RankDeficient {
		return fmt.Sprintf("underdetermined system: design matrix with %d rows is rank deficient for %d parameters", e.Rows, e.Params)
	}
	return fmt.Sprintf("underdetermined system: %d rows for %d parameters", e.Rows, e.Params)
}

// Metrics describes how well a model reproduces its training targets.
// RSquared is NaN when the targets have zero variance.
type Metrics struct {
	RSquared float64 `json:"r_squared"`
	MAE      float64 `json:"mae"`
	RMSE     float64 `json:"rmse"`
}

// Fit solves target ≈ intercept + Σ coefficient_i · feature_i in the least
// squares sense over every row, then scores the fit on the same rows.
func Fit(features []model.FeatureVector, targets []float64) (model.CoefficientSet, Metrics, error) {
	if len(features) != len(targets) {
		return model.CoefficientSet{}, Metrics{}, fmt.Errorf("have %d feature rows but %d targets", len(features), len(targets))
	}
	n := len(features)
	if n < NumParams {
		return model.CoefficientSet{}, Metrics{}, &UnderdeterminedSystemError{Rows: n, Params: NumParams}
	}
	scheme := features[0].Scheme
	for i, fv := range features {
		if fv.Scheme != scheme {
			return model.CoefficientSet{}, Metrics{}, fmt.Errorf("row %d: %w: %s among %s rows", i, model.ErrSchemeMismatch, fv.Scheme, scheme)
		}
	}

	// Raw-scale columns span many orders of magnitude (C² is ~1e14 while T
	// is ~1e2). Each column is divided by its largest magnitude before the
	// solve and the coefficients are rescaled afterwards.
	colScale := make([]float64, NumParams)
	colScale[0] = 1
	for j := 0; j < model.NumTerms; j++ {
		var m float64
		for _, fv := range features {
			m = math.Max(m, math.Abs(fv.Terms[j]))
		}
		if m == 0 {
			m = 1
		}
		colScale[j+1] = m
	}

	x := mat.NewDense(n, NumParams, nil)
	for i, fv := range features {
		x.Set(i, 0, 1)
		for j := 0; j < model.NumTerms; j++ {
			x.Set(i, j+1, fv.Terms[j]/colScale[j+1])
		}
	}
	y := mat.NewVecDense(n, append([]float64(nil), targets...))

	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return model.CoefficientSet{}, Metrics{}, fmt.Errorf("least squares solve: %w", err)
		}
		if math.IsInf(float64(cond), 1) {
			return model.CoefficientSet{}, Metrics{}, &UnderdeterminedSystemError{Rows: n, Params: NumParams, RankDeficient: true}
		}
		monitoring.Warnf("ill-conditioned design matrix (condition number %.3e); coefficients may be inaccurate", float64(cond))
	}

	values := make([]float64, NumParams)
	for j := range values {
		values[j] = beta.AtVec(j) / colScale[j]
	}
	cs, err := model.NewCoefficientSet(scheme, values)
	if err != nil {
		return model.CoefficientSet{}, Metrics{}, err
	}

	predictions, err := Predict(cs, features)
	if err != nil {
		return model.CoefficientSet{}, Metrics{}, err
	}
	metrics, err := ComputeMetrics(targets, predictions)
	if err != nil {
		return model.CoefficientSet{}, Metrics{}, err
	}
	monitoring.Logf("fitted %s model over %d rows: R²=%.6f MAE=%.6f RMSE=%.6f", scheme, n, metrics.RSquared, metrics.MAE, metrics.RMSE)
	return cs, metrics, nil
}

// Predict evaluates cs at every feature vector.
func Predict(cs model.CoefficientSet, features []model.FeatureVector) ([]float64, error) {
	return surface.EvaluateAll(cs, features)
}

// ComputeMetrics scores predictions against ground truth.
// R² = 1 − SS_res/SS_tot and is NaN when SS_tot is zero; it is never
// clamped. MAE and RMSE are means over every row.
func ComputeMetrics(targets, predictions []float64) (Metrics, error) {
	if len(targets) != len(predictions) {
		return Metrics{}, fmt.Errorf("have %d targets but %d predictions", len(targets), len(predictions))
	}
	if len(targets) == 0 {
		return Metrics{}, errors.New("no rows to score")
	}

	residuals := make([]float64, len(targets))
	floats.SubTo(residuals, targets, predictions)

	n := float64(len(targets))
	mean := stat.Mean(targets, nil)
	var ssTot float64
	for _, v := range targets {
		d := v - mean
		ssTot += d * d
	}
	ssRes := floats.Dot(residuals, residuals)

	r2 := math.NaN()
	if ssTot != 0 {
		r2 = 1 - ssRes/ssTot
	}
	return Metrics{
		RSquared: r2,
		MAE:      floats.Norm(residuals, 1) / n,
		RMSE:     math.Sqrt(ssRes / n),
	}, nil
}
