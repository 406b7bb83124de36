// Package surface evaluates fitted TPM models at dataset or arbitrary points.
//
// Evaluation is a bias-plus-dot-product over a model.FeatureVector. The two
// model variants, RawLinearModel and NormalizedQuadraticModel, each own the
// feature construction for their scheme so callers never pair coefficients
// with the wrong basis.
package surface

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/tpm.report/internal/model"
	"github.com/banshee-data/tpm.report/internal/scaling"
)

// Evaluate returns intercept + Σ coefficient_i · feature_i.
// It fails with model.ErrSchemeMismatch when the schemes differ.
func Evaluate(cs model.CoefficientSet, fv model.FeatureVector) (float64, error) {
	if err := cs.CheckScheme(fv); err != nil {
		return 0, err
	}
	return cs.Intercept + floats.Dot(cs.Terms[:], fv.Terms[:]), nil
}

// EvaluateAll evaluates every feature vector, preserving order.
func EvaluateAll(cs model.CoefficientSet, fvs []model.FeatureVector) ([]float64, error) {
	out := make([]float64, len(fvs))
	for i, fv := range fvs {
		v, err := Evaluate(cs, fv)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// CheckRange reports whether both scaled inputs lie within [0, 1].
func CheckRange(tScaled, cScaled float64) bool {
	return scaling.IsInRange(tScaled) && scaling.IsInRange(cScaled)
}

// Prediction is a single model output together with its range check.
// InRange is false when the inputs fall outside the bounds the model was
// fitted on; the Value is still computed in that case.
type Prediction struct {
	Value   float64
	TScaled float64
	CScaled float64
	InRange bool
}

// Model is implemented by RawLinearModel and NormalizedQuadraticModel.
type Model interface {
	Scheme() model.Scheme
	Coefficients() model.CoefficientSet
	Predict(temperature, capacitance float64) (Prediction, error)
}

// RawLinearModel evaluates the α0..α5 model on unscaled inputs.
// Bounds are optional and only used to flag extrapolation.
type RawLinearModel struct {
	coefficients model.CoefficientSet
	tempRange    *scaling.Range
	capRange     *scaling.Range
}

// NewRawLinearModel wraps a RawLinear coefficient set.
func NewRawLinearModel(cs model.CoefficientSet) (*RawLinearModel, error) {
	if cs.Scheme != model.RawLinear {
		return nil, fmt.Errorf("%w: raw linear model given %s coefficients", model.ErrSchemeMismatch, cs.Scheme)
	}
	return &RawLinearModel{coefficients: cs}, nil
}

// WithBounds attaches reference bounds used for range flagging.
func (m *RawLinearModel) WithBounds(temp, capacitance scaling.Range) *RawLinearModel {
	m.tempRange = &temp
	m.capRange = &capacitance
	return m
}

func (m *RawLinearModel) Scheme() model.Scheme { return model.RawLinear }

func (m *RawLinearModel) Coefficients() model.CoefficientSet { return m.coefficients }

// Predict evaluates the model at (temperature, capacitance). Scaled values
// and InRange are reported only when bounds are attached; an unbounded model
// never claims its inputs are in range.
func (m *RawLinearModel) Predict(temperature, capacitance float64) (Prediction, error) {
	v, err := Evaluate(m.coefficients, model.RawFeatures(temperature, capacitance))
	if err != nil {
		return Prediction{}, err
	}
	p := Prediction{Value: v}
	if m.tempRange != nil && m.capRange != nil {
		if p.TScaled, err = m.tempRange.Scale(temperature); err != nil {
			return Prediction{}, err
		}
		if p.CScaled, err = m.capRange.Scale(capacitance); err != nil {
			return Prediction{}, err
		}
		p.InRange = CheckRange(p.TScaled, p.CScaled)
	}
	return p, nil
}

// NormalizedQuadraticModel evaluates the θ1..θ6 surface on inputs scaled
// against fixed reference bounds.
type NormalizedQuadraticModel struct {
	coefficients model.CoefficientSet
	tempRange    scaling.Range
	capRange     scaling.Range
}

// NewNormalizedQuadraticModel validates the bounds and coefficient scheme.
func NewNormalizedQuadraticModel(cs model.CoefficientSet, temp, capacitance scaling.Range) (*NormalizedQuadraticModel, error) {
	if cs.Scheme != model.NormalizedQuadratic {
		return nil, fmt.Errorf("%w: quadratic surface given %s coefficients", model.ErrSchemeMismatch, cs.Scheme)
	}
	if err := temp.Validate(); err != nil {
		return nil, fmt.Errorf("temperature bounds: %w", err)
	}
	if err := capacitance.Validate(); err != nil {
		return nil, fmt.Errorf("capacitance bounds: %w", err)
	}
	return &NormalizedQuadraticModel{coefficients: cs, tempRange: temp, capRange: capacitance}, nil
}

func (m *NormalizedQuadraticModel) Scheme() model.Scheme { return model.NormalizedQuadratic }

func (m *NormalizedQuadraticModel) Coefficients() model.CoefficientSet { return m.coefficients }

// Bounds returns the reference temperature and capacitance ranges.
func (m *NormalizedQuadraticModel) Bounds() (temp, capacitance scaling.Range) {
	return m.tempRange, m.capRange
}

// Predict scales the raw inputs and evaluates the surface.
func (m *NormalizedQuadraticModel) Predict(temperature, capacitance float64) (Prediction, error) {
	ts, err := m.tempRange.Scale(temperature)
	if err != nil {
		return Prediction{}, err
	}
	cs, err := m.capRange.Scale(capacitance)
	if err != nil {
		return Prediction{}, err
	}
	v, err := Evaluate(m.coefficients, model.ScaledFeatures(ts, cs))
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{Value: v, TScaled: ts, CScaled: cs, InRange: CheckRange(ts, cs)}, nil
}

// PredictAll runs m over paired temperature and capacitance columns.
func PredictAll(m Model, temps, caps []float64) ([]Prediction, error) {
	if len(temps) != len(caps) {
		return nil, fmt.Errorf("column length mismatch: %d temperatures, %d capacitances", len(temps), len(caps))
	}
	out := make([]Prediction, len(temps))
	for i := range temps {
		p, err := m.Predict(temps[i], caps[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// Values extracts the predicted values.
func Values(ps []Prediction) []float64 {
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = p.Value
	}
	return out
}
