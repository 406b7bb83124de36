package report

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/banshee-data/tpm.report/internal/dataset"
	"github.com/banshee-data/tpm.report/internal/model"
	"github.com/banshee-data/tpm.report/internal/regression"
	"github.com/banshee-data/tpm.report/internal/surface"
)

// printer keeps the first write error so report bodies can be written
// without checking every line.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// coefficients prints one line per coefficient. Raw-scale α values span many
// orders of magnitude and are printed in %.6e; θ values are printed at full
// precision so they can be pasted back into a config file.
func (p *printer) coefficients(cs model.CoefficientSet) {
	labels := cs.Scheme.Labels()
	terms := cs.Scheme.TermNames()
	p.printf("Basis (%s): 1, %s\n", cs.Scheme, strings.Join(terms[:], ", "))
	verb := "%s = %v\n"
	if cs.Scheme == model.RawLinear {
		verb = "%s = %.6e\n"
	}
	for i, v := range cs.Values() {
		p.printf(verb, labels[i], v)
	}
}

func (p *printer) summary(s Summary) {
	p.printf("Rows used: %d\n\n", s.Rows)
	p.printf("--- Variable scale (dataset) ---\n")
	p.printf("T: Min=%.3f  Max=%.3f\n", s.Bounds.TempMin, s.Bounds.TempMax)
	p.printf("C_dec: Min=%.0f  Max=%.0f\n", s.Bounds.CapMin, s.Bounds.CapMax)
	p.printf("T_scaled: Min=%.5f  Max=%.5f\n", s.TScaledMin, s.TScaledMax)
	p.printf("C_scaled: Min=%.5f  Max=%.5f\n", s.CScaledMin, s.CScaledMax)
}

func (p *printer) distribution(title string, d Distribution) {
	p.printf("\n--- %s ---\n", title)
	p.printf("Min: %.3f\n", d.Min)
	p.printf("Max: %.3f\n", d.Max)
	p.printf("Mean: %.3f\n", d.Mean)
}

// FitReport is the console output of a fit run.
type FitReport struct {
	Rows             int
	Coefficients     model.CoefficientSet
	Metrics          regression.Metrics
	CoefficientsPath string
	RunID            string
}

// WriteFit writes the fitted coefficients and training metrics.
func WriteFit(w io.Writer, r FitReport) error {
	p := &printer{w: w}
	p.printf("Rows used: %d\n\n", r.Rows)
	p.printf("===== Model Fit =====\n")
	p.coefficients(r.Coefficients)
	p.printf("\n===== Evaluation =====\n")
	p.printf("R²   = %.6f\n", r.Metrics.RSquared)
	p.printf("MAE  = %.6f\n", r.Metrics.MAE)
	p.printf("RMSE = %.6f\n", r.Metrics.RMSE)
	if r.CoefficientsPath != "" {
		p.printf("\nCoefficients saved to %q\n", r.CoefficientsPath)
	}
	if r.RunID != "" {
		p.printf("Run recorded as %s\n", r.RunID)
	}
	return p.err
}

// SampleResult is one model prediction against a dataset row.
type SampleResult struct {
	Label     string
	Index     int
	Record    dataset.DecodedRecord
	Predicted float64
}

// VerifyReport is the console output of a verification run.
type VerifyReport struct {
	Summary      Summary
	Coefficients model.CoefficientSet
	Samples      []SampleResult
	SubsetSize   int
	SubsetMAE    float64
}

// WriteVerify writes the representative sample predictions and the mean
// absolute error over the random subset.
func WriteVerify(w io.Writer, r VerifyReport) error {
	p := &printer{w: w}
	p.summary(r.Summary)
	p.printf("\n===== Model Coefficients =====\n")
	p.coefficients(r.Coefficients)
	p.printf("\n===== Model Verification =====\n")
	for _, s := range r.Samples {
		p.printf("\n[%s sample] row %d\n", s.Label, s.Index)
		p.printf("T = %.3f,  C_dec = %s,  TPM_real = %.3f\n",
			s.Record.Temperature, s.Record.Capacitance.String(), s.Record.TPM)
		p.printf("TPM_pred (model) = %.3f\n", s.Predicted)
	}
	if r.SubsetSize > 0 {
		p.printf("\nMean absolute error (%d random samples) = %.3f\n", r.SubsetSize, r.SubsetMAE)
	}
	return p.err
}

// TestPoint is a manual prediction at a configured temperature and
// capacitance.
type TestPoint struct {
	Temperature    float64
	CapacitanceHex string
	Capacitance    *big.Int
	Prediction     surface.Prediction
}

// NearestRow is the dataset row closest in capacitance to the test point.
type NearestRow struct {
	Index     int
	Record    dataset.DecodedRecord
	TScaled   float64
	CScaled   float64
	Predicted float64
}

// SurfaceReport is the console output of a surface evaluation run.
type SurfaceReport struct {
	Summary      Summary
	Coefficients model.CoefficientSet
	Surface      Distribution
	Errors       ErrorSummary
	Test         *TestPoint
	Nearest      *NearestRow
}

// WriteSurface writes dataset statistics, error statistics and the manual
// test point with its extrapolation flag.
func WriteSurface(w io.Writer, r SurfaceReport) error {
	p := &printer{w: w}
	p.summary(r.Summary)

	p.printf("\n--- Theta coefficients ---\n")
	p.coefficients(r.Coefficients)

	p.distribution("TPM_surf (dataset)", r.Surface)
	p.distribution("Difference TPM measured - TPM_surf", r.Errors.Difference)

	p.printf("\n--- Relative error (%%) ---\n")
	p.printf("Max positive: %.2f %%\n", r.Errors.RelMaxPositive)
	p.printf("Max negative: %.2f %%\n", r.Errors.RelMaxNegative)
	p.printf("Mean |rel|: %.2f %%\n", r.Errors.RelMeanAbs)
	if r.Errors.ZeroMeasured > 0 {
		p.printf("(%d rows with TPM = 0 excluded)\n", r.Errors.ZeroMeasured)
	}

	if t := r.Test; t != nil {
		p.printf("\n--- Manual test (quadratic) ---\n")
		p.printf("T_test = %v °C\n", t.Temperature)
		p.printf("C_hex_test = %s -> C_dec_test = %s\n", t.CapacitanceHex, t.Capacitance.String())
		p.printf("T_scaled_test = %.6f, C_scaled_test = %.6f\n", t.Prediction.TScaled, t.Prediction.CScaled)
		if !t.Prediction.InRange {
			p.printf("WARNING: manual test is outside the training range (extrapolation). Result may be unreliable.\n")
		}
		p.printf("TPM_surf (estimate) for T=%v°C and C_hex=%s: %.6f %%\n", t.Temperature, t.CapacitanceHex, t.Prediction.Value)
	}

	if n := r.Nearest; n != nil {
		p.printf("\nDataset row with nearest C_dec:\n")
		p.printf("Index: %d, GooseTemp=%v, GooseCapHex=%s, GooseTPM=%v\n",
			n.Index, n.Record.Temperature, n.Record.CapacitanceHex, n.Record.TPM)
		p.printf("Dataset entry (scaled): T_s=%.6f, C_s=%.6f, TPM_surf=%.6f\n", n.TScaled, n.CScaled, n.Predicted)
	}
	return p.err
}
