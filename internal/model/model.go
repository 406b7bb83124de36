// Package model defines the feature and coefficient representations of the
// two TPM models. Each FeatureVector and CoefficientSet carries the Scheme
// it belongs to so that coefficients fitted for one feature basis cannot be
// evaluated against the other.
package model

import (
	"errors"
	"fmt"
)

// NumTerms is the number of non-intercept terms in either scheme.
const NumTerms = 5

// Scheme identifies a feature basis.
type Scheme int

const (
	// RawLinear is the basis [C, T, C·T, C², T²] on unscaled inputs.
	RawLinear Scheme = iota + 1
	// NormalizedQuadratic is the basis [T_s, C_s, T_s², C_s², T_s·C_s] on
	// min-max scaled inputs.
	NormalizedQuadratic
)

func (s Scheme) String() string {
	switch s {
	case RawLinear:
		return "raw_linear"
	case NormalizedQuadratic:
		return "normalized_quadratic"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

// ParseScheme is the inverse of Scheme.String.
func ParseScheme(s string) (Scheme, error) {
	switch s {
	case "raw_linear":
		return RawLinear, nil
	case "normalized_quadratic":
		return NormalizedQuadratic, nil
	}
	return 0, fmt.Errorf("unknown model scheme %q", s)
}

// TermNames returns the human-readable names of the scheme's terms, in order.
func (s Scheme) TermNames() [NumTerms]string {
	switch s {
	case NormalizedQuadratic:
		return [NumTerms]string{"T_s", "C_s", "T_s^2", "C_s^2", "T_s*C_s"}
	default:
		return [NumTerms]string{"C", "T", "C*T", "C^2", "T^2"}
	}
}

// Labels returns the coefficient labels, intercept first.
// RawLinear uses α0..α5 and NormalizedQuadratic uses θ1..θ6.
func (s Scheme) Labels() [NumTerms + 1]string {
	if s == NormalizedQuadratic {
		return [NumTerms + 1]string{"θ1", "θ2", "θ3", "θ4", "θ5", "θ6"}
	}
	return [NumTerms + 1]string{"α0", "α1", "α2", "α3", "α4", "α5"}
}

// ErrSchemeMismatch is returned when coefficients and features come from
// different schemes.
var ErrSchemeMismatch = errors.New("coefficient scheme does not match feature scheme")

// FeatureVector is one record's expanded basis. The intercept is not part of
// the vector.
type FeatureVector struct {
	Scheme Scheme
	Terms  [NumTerms]float64
}

// CoefficientSet holds the intercept and per-term coefficients of a model.
type CoefficientSet struct {
	Scheme    Scheme
	Intercept float64
	Terms     [NumTerms]float64
}

// Values returns the coefficients intercept first, matching Labels.
func (c CoefficientSet) Values() []float64 {
	out := make([]float64, 0, NumTerms+1)
	out = append(out, c.Intercept)
	out = append(out, c.Terms[:]...)
	return out
}

// NewCoefficientSet builds a set from intercept-first values.
func NewCoefficientSet(scheme Scheme, values []float64) (CoefficientSet, error) {
	if len(values) != NumTerms+1 {
		return CoefficientSet{}, fmt.Errorf("%s needs %d coefficients, got %d", scheme, NumTerms+1, len(values))
	}
	cs := CoefficientSet{Scheme: scheme, Intercept: values[0]}
	copy(cs.Terms[:], values[1:])
	return cs, nil
}

// CheckScheme returns ErrSchemeMismatch unless c and fv share a scheme.
func (c CoefficientSet) CheckScheme(fv FeatureVector) error {
	if c.Scheme != fv.Scheme {
		return fmt.Errorf("%w: coefficients are %s, features are %s", ErrSchemeMismatch, c.Scheme, fv.Scheme)
	}
	return nil
}
