package report

import (
	"bytes"
	"errors"
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tpm.report/internal/config"
	"github.com/banshee-data/tpm.report/internal/dataset"
	"github.com/banshee-data/tpm.report/internal/fsutil"
	"github.com/banshee-data/tpm.report/internal/model"
	"github.com/banshee-data/tpm.report/internal/regression"
	"github.com/banshee-data/tpm.report/internal/scaling"
	"github.com/banshee-data/tpm.report/internal/surface"
)

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New([]dataset.Record{
		{CapacitanceHex: "C80000", Temperature: 40, TPM: 10},
		{CapacitanceHex: "CE28A0", Temperature: 20, TPM: 12},
		{CapacitanceHex: "D00000", Temperature: 110, TPM: 0},
		{CapacitanceHex: "0xCE2000", Temperature: 180, TPM: 20},
		{CapacitanceHex: "D80000", Temperature: 20, TPM: 25},
	})
	require.NoError(t, err)
	return ds
}

func TestSummarize(t *testing.T) {
	ds := testDataset(t)
	b := ds.Bounds()

	s, err := Summarize(ds, b.TempRange(), b.CapRange())
	require.NoError(t, err)
	assert.Equal(t, 5, s.Rows)
	assert.Equal(t, 20.0, s.Bounds.TempMin)
	assert.Equal(t, 180.0, s.Bounds.TempMax)
	assert.Equal(t, 0.0, s.TScaledMin)
	assert.Equal(t, 1.0, s.TScaledMax)
	assert.Equal(t, 0.0, s.CScaledMin)
	assert.Equal(t, 1.0, s.CScaledMax)

	// A wider reference range keeps the dataset strictly inside [0,1].
	s, err = Summarize(ds, scaling.Range{Min: 0, Max: 200}, b.CapRange())
	require.NoError(t, err)
	assert.InDelta(t, 0.1, s.TScaledMin, 1e-12)
	assert.InDelta(t, 0.9, s.TScaledMax, 1e-12)

	_, err = Summarize(ds, scaling.Range{Min: 5, Max: 5}, b.CapRange())
	var dre *scaling.DegenerateRangeError
	assert.True(t, errors.As(err, &dre))
}

func TestDescribe(t *testing.T) {
	d, err := Describe([]float64{3, -1, 4})
	require.NoError(t, err)
	assert.Equal(t, Distribution{Min: -1, Max: 4, Mean: 2}, d)

	_, err = Describe(nil)
	assert.Error(t, err)
}

func TestErrorStats(t *testing.T) {
	testCases := []struct {
		name      string
		measured  []float64
		predicted []float64
		diff      Distribution
		relPos    float64
		relNeg    float64
		relAbs    float64
		zeros     int
	}{
		{
			name:      "mixed signs",
			measured:  []float64{10, 20, 50},
			predicted: []float64{9, 22, 50},
			diff:      Distribution{Min: -2, Max: 1, Mean: -1.0 / 3},
			relPos:    10,
			relNeg:    -10,
			relAbs:    20.0 / 3,
		},
		{
			name:      "zero measured skipped",
			measured:  []float64{0, 10},
			predicted: []float64{1, 5},
			diff:      Distribution{Min: -1, Max: 5, Mean: 2},
			relPos:    50,
			relNeg:    50,
			relAbs:    50,
			zeros:     1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ErrorStats(tc.measured, tc.predicted)
			require.NoError(t, err)
			assert.InDelta(t, tc.diff.Min, got.Difference.Min, 1e-12)
			assert.InDelta(t, tc.diff.Max, got.Difference.Max, 1e-12)
			assert.InDelta(t, tc.diff.Mean, got.Difference.Mean, 1e-12)
			assert.InDelta(t, tc.relPos, got.RelMaxPositive, 1e-9)
			assert.InDelta(t, tc.relNeg, got.RelMaxNegative, 1e-9)
			assert.InDelta(t, tc.relAbs, got.RelMeanAbs, 1e-9)
			assert.Equal(t, tc.zeros, got.ZeroMeasured)
		})
	}
}

func TestErrorStats_AllZeroAndInvalid(t *testing.T) {
	got, err := ErrorStats([]float64{0, 0}, []float64{1, 2})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.RelMeanAbs))
	assert.True(t, math.IsNaN(got.RelMaxPositive))
	assert.Equal(t, 2, got.ZeroMeasured)

	_, err = ErrorStats([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
	_, err = ErrorStats(nil, nil)
	assert.Error(t, err)
}

func TestRepresentativeSamples(t *testing.T) {
	ds := testDataset(t)
	got := RepresentativeSamples(ds)
	// Temperature 20 appears at rows 1 and 4; the first wins.
	assert.Equal(t, []Sample{
		{Label: "Min", Index: 1},
		{Label: "Med", Index: 2},
		{Label: "Max", Index: 3},
	}, got)
}

func TestRandomSubset(t *testing.T) {
	a := RandomSubset(50, 10, 42)
	b := RandomSubset(50, 10, 42)
	assert.Equal(t, a, b, "same seed must give the same subset")
	require.Len(t, a, 10)

	seen := make(map[int]bool)
	for _, i := range a {
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 50)
		assert.False(t, seen[i], "duplicate index %d", i)
		seen[i] = true
	}

	assert.NotEqual(t, a, RandomSubset(50, 10, 7))
	assert.Len(t, RandomSubset(5, 100, 42), 5)
	assert.Empty(t, RandomSubset(0, 10, 42))
	assert.Empty(t, RandomSubset(10, 0, 42))
}

func TestNearestCapacitance(t *testing.T) {
	ds := testDataset(t)

	assert.Equal(t, 1, NearestCapacitance(ds, big.NewInt(0xCE28A0)))
	assert.Equal(t, 3, NearestCapacitance(ds, big.NewInt(0xCE2001)))
	assert.Equal(t, 0, NearestCapacitance(ds, big.NewInt(0)))
	assert.Equal(t, 4, NearestCapacitance(ds, new(big.Int).Lsh(big.NewInt(1), 100)))

	// 0xCE2450 is equidistant from rows 1 and 3; the first wins.
	assert.Equal(t, 1, NearestCapacitance(ds, big.NewInt(0xCE2450)))
}

func TestSubset(t *testing.T) {
	assert.Equal(t, []float64{30, 10}, Subset([]float64{10, 20, 30}, []int{2, 0}))
	assert.Empty(t, Subset([]float64{1}, nil))
}

func TestWriteFit(t *testing.T) {
	cs := config.DefaultRawLinear.CoefficientSet()
	var buf bytes.Buffer
	err := WriteFit(&buf, FitReport{
		Rows:             12,
		Coefficients:     cs,
		Metrics:          regression.Metrics{RSquared: 0.987654, MAE: 0.5, RMSE: 0.75},
		CoefficientsPath: "coef.csv",
		RunID:            "abc",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Rows used: 12")
	assert.Contains(t, out, "α0 = -1.775454e+03")
	assert.Contains(t, out, "Basis (raw_linear): 1, C, T, C*T, C^2, T^2")
	assert.Contains(t, out, "α4 = 2.461430e-13")
	assert.Contains(t, out, "R²   = 0.987654")
	assert.Contains(t, out, "RMSE = 0.750000")
	assert.Contains(t, out, `"coef.csv"`)
	assert.Contains(t, out, "Run recorded as abc")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteFit_WriteError(t *testing.T) {
	err := WriteFit(failingWriter{}, FitReport{Coefficients: config.DefaultRawLinear.CoefficientSet()})
	assert.EqualError(t, err, "disk full")
}

func TestWriteVerify(t *testing.T) {
	ds := testDataset(t)
	b := ds.Bounds()
	s, err := Summarize(ds, b.TempRange(), b.CapRange())
	require.NoError(t, err)

	var buf bytes.Buffer
	err = WriteVerify(&buf, VerifyReport{
		Summary:      s,
		Coefficients: config.DefaultRawLinear.CoefficientSet(),
		Samples:      []SampleResult{{Label: "Med", Index: 2, Record: ds.Record(2), Predicted: 1.5}},
		SubsetSize:   5,
		SubsetMAE:    0.25,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "C_dec: Min=13107200  Max=14155776")
	assert.Contains(t, out, "[Med sample] row 2")
	assert.Contains(t, out, "C_dec = 13631488")
	assert.Contains(t, out, "TPM_pred (model) = 1.500")
	assert.Contains(t, out, "(5 random samples) = 0.250")
}

func TestWriteSurface(t *testing.T) {
	ds := testDataset(t)
	b := ds.Bounds()
	s, err := Summarize(ds, b.TempRange(), b.CapRange())
	require.NoError(t, err)

	cs := config.DefaultQuadraticSurface.CoefficientSet()
	m, err := surface.NewNormalizedQuadraticModel(cs, b.TempRange(), b.CapRange())
	require.NoError(t, err)

	testCases := []struct {
		name        string
		temperature float64
		warn        bool
	}{
		{name: "inside", temperature: 110, warn: false},
		{name: "extrapolated", temperature: 250, warn: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := big.NewInt(0xCE28A0)
			pred, err := m.Predict(tc.temperature, float64(c.Int64()))
			require.NoError(t, err)

			var buf bytes.Buffer
			err = WriteSurface(&buf, SurfaceReport{
				Summary:      s,
				Coefficients: cs,
				Surface:      Distribution{Min: 1, Max: 2, Mean: 1.5},
				Errors:       ErrorSummary{RelMaxPositive: 12.346, ZeroMeasured: 1},
				Test:         &TestPoint{Temperature: tc.temperature, CapacitanceHex: "CE28A0", Capacitance: c, Prediction: pred},
				Nearest:      &NearestRow{Index: 1, Record: ds.Record(1)},
			})
			require.NoError(t, err)

			out := buf.String()
			assert.Contains(t, out, "θ1 = -76.16391930260264")
			assert.Contains(t, out, "Basis (normalized_quadratic): 1, T_s, C_s, T_s^2, C_s^2, T_s*C_s")
			assert.Contains(t, out, "Max positive: 12.35 %")
			assert.Contains(t, out, "1 rows with TPM = 0 excluded")
			assert.Contains(t, out, "C_dec_test = 13510816")
			assert.Contains(t, out, "GooseCapHex=CE28A0")
			assert.Equal(t, tc.warn, strings.Contains(out, "outside the training range"))
		})
	}
}

func TestPlotPredictions(t *testing.T) {
	var buf bytes.Buffer
	err := PlotPredictions(&buf, ChartData{
		Title:     "fit",
		Measured:  []float64{1, 2, 3, 4},
		Predicted: []float64{1.1, 1.9, 3.2, 3.8},
	})
	require.NoError(t, err)
	require.Greater(t, buf.Len(), 8)
	assert.Equal(t, "\x89PNG", buf.String()[:4])
}

func TestRenderScatterHTML(t *testing.T) {
	var buf bytes.Buffer
	err := RenderScatterHTML(&buf, ChartData{
		Title:     "surface check",
		Measured:  []float64{5, 5},
		Predicted: []float64{5, 5},
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "surface check")
	assert.Contains(t, out, "scatter")
}

func TestCharts_InvalidData(t *testing.T) {
	renderers := map[string]func(*bytes.Buffer, ChartData) error{
		"png":  func(b *bytes.Buffer, d ChartData) error { return PlotPredictions(b, d) },
		"html": func(b *bytes.Buffer, d ChartData) error { return RenderScatterHTML(b, d) },
	}
	for name, render := range renderers {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.Error(t, render(&buf, ChartData{Measured: []float64{1}, Predicted: nil}))
			assert.Error(t, render(&buf, ChartData{}))
		})
	}
}

func TestSaveChart(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	d := ChartData{Title: "t", Measured: []float64{1, 2}, Predicted: []float64{2, 1}}

	require.NoError(t, SaveChart(fsys, "out/chart.html", d, RenderScatterHTML))
	data, err := fsys.ReadFile("out/chart.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), "<html")

	err = SaveChart(fsys, "out/bad.png", ChartData{}, PlotPredictions)
	assert.Error(t, err)
}

func TestPredictionsFeedErrorStats(t *testing.T) {
	ds := testDataset(t)
	cs, err := model.NewCoefficientSet(model.RawLinear, []float64{1, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	m, err := surface.NewRawLinearModel(cs)
	require.NoError(t, err)

	preds, err := surface.PredictAll(m, ds.Temperatures(), ds.Capacitances())
	require.NoError(t, err)
	stats, err := ErrorStats(ds.TPMs(), surface.Values(preds))
	require.NoError(t, err)
	assert.Equal(t, 24.0, stats.Difference.Max)
	assert.Equal(t, -1.0, stats.Difference.Min)
}
