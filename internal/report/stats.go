package report

import (
	"fmt"
	"math"
	"math/big"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/tpm.report/internal/dataset"
	"github.com/banshee-data/tpm.report/internal/scaling"
)

// Summary describes a dataset and its scaled extent under a pair of ranges.
type Summary struct {
	Rows   int
	Bounds dataset.Bounds

	TScaledMin, TScaledMax float64
	CScaledMin, CScaledMax float64
}

// Summarize scales ds against temp and capacitance and reports the observed
// extent. Scaling against the dataset's own bounds yields [0,1] on both axes.
func Summarize(ds *dataset.Dataset, temp, capacitance scaling.Range) (Summary, error) {
	ts, cs, err := ds.Scaled(temp, capacitance)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}
	return Summary{
		Rows:       ds.Len(),
		Bounds:     ds.Bounds(),
		TScaledMin: floats.Min(ts),
		TScaledMax: floats.Max(ts),
		CScaledMin: floats.Min(cs),
		CScaledMax: floats.Max(cs),
	}, nil
}

// Distribution is the min/max/mean of a column.
type Distribution struct {
	Min, Max, Mean float64
}

// Describe returns the distribution of values. It errors on an empty slice.
func Describe(values []float64) (Distribution, error) {
	if len(values) == 0 {
		return Distribution{}, fmt.Errorf("describe: no values")
	}
	return Distribution{
		Min:  floats.Min(values),
		Max:  floats.Max(values),
		Mean: stat.Mean(values, nil),
	}, nil
}

// ErrorSummary compares measured TPM to model output.
//
// Difference is measured minus predicted. Relative error is that difference
// as a percentage of the measured value; rows measuring exactly zero are left
// out of the relative statistics and counted in ZeroMeasured.
type ErrorSummary struct {
	Difference Distribution

	RelMaxPositive float64
	RelMaxNegative float64
	RelMeanAbs     float64
	ZeroMeasured   int
}

// ErrorStats computes an ErrorSummary. When every measured value is zero the
// relative statistics are NaN.
func ErrorStats(measured, predicted []float64) (ErrorSummary, error) {
	if len(measured) != len(predicted) {
		return ErrorSummary{}, fmt.Errorf("error stats: %d measured values but %d predictions", len(measured), len(predicted))
	}
	if len(measured) == 0 {
		return ErrorSummary{}, fmt.Errorf("error stats: no values")
	}

	diff := make([]float64, len(measured))
	floats.SubTo(diff, measured, predicted)
	d, _ := Describe(diff)

	out := ErrorSummary{
		Difference:     d,
		RelMaxPositive: math.NaN(),
		RelMaxNegative: math.NaN(),
		RelMeanAbs:     math.NaN(),
	}

	rel := make([]float64, 0, len(measured))
	for i, m := range measured {
		if m == 0 {
			out.ZeroMeasured++
			continue
		}
		rel = append(rel, diff[i]/m*100)
	}
	if len(rel) == 0 {
		return out, nil
	}

	out.RelMaxPositive = floats.Max(rel)
	out.RelMaxNegative = floats.Min(rel)
	abs := make([]float64, len(rel))
	for i, r := range rel {
		abs[i] = math.Abs(r)
	}
	out.RelMeanAbs = stat.Mean(abs, nil)
	return out, nil
}

// Sample is a labelled row of a dataset.
type Sample struct {
	Label string
	Index int
}

// RepresentativeSamples picks the minimum-temperature row, the row at index
// n/2, and the maximum-temperature row. Ties resolve to the first index.
func RepresentativeSamples(ds *dataset.Dataset) []Sample {
	temps := ds.Temperatures()
	return []Sample{
		{Label: "Min", Index: floats.MinIdx(temps)},
		{Label: "Med", Index: len(temps) / 2},
		{Label: "Max", Index: floats.MaxIdx(temps)},
	}
}

// RandomSubset returns k distinct indices in [0,n) drawn from a PCG source
// seeded with seed. The same seed always yields the same indices. k is
// clamped to [0,n].
func RandomSubset(n, k int, seed uint64) []int {
	if n <= 0 || k <= 0 {
		return nil
	}
	k = min(k, n)
	rng := rand.New(rand.NewPCG(seed, seed))
	return rng.Perm(n)[:k]
}

// NearestCapacitance returns the index of the row whose decoded capacitance
// is closest to c. The comparison is exact on the integer values; ties
// resolve to the first index.
func NearestCapacitance(ds *dataset.Dataset, c *big.Int) int {
	best := -1
	var bestDist, dist big.Int
	for i := 0; i < ds.Len(); i++ {
		dist.Sub(ds.Record(i).Capacitance, c)
		dist.Abs(&dist)
		if best < 0 || dist.Cmp(&bestDist) < 0 {
			best = i
			bestDist.Set(&dist)
		}
	}
	return best
}

// Subset gathers values at the given indices.
func Subset(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
