package model

import "fmt"

// RawFeatures expands unscaled temperature and capacitance into
// [C, T, C·T, C², T²].
func RawFeatures(t, c float64) FeatureVector {
	return FeatureVector{
		Scheme: RawLinear,
		Terms:  [NumTerms]float64{c, t, c * t, c * c, t * t},
	}
}

// ScaledFeatures expands scaled temperature and capacitance into
// [T_s, C_s, T_s², C_s², T_s·C_s].
func ScaledFeatures(ts, cs float64) FeatureVector {
	return FeatureVector{
		Scheme: NormalizedQuadratic,
		Terms:  [NumTerms]float64{ts, cs, ts * ts, cs * cs, ts * cs},
	}
}

// BuildRaw applies RawFeatures element-wise, preserving order.
func BuildRaw(temps, caps []float64) ([]FeatureVector, error) {
	return build(temps, caps, RawFeatures)
}

// BuildScaled applies ScaledFeatures element-wise, preserving order.
func BuildScaled(tScaled, cScaled []float64) ([]FeatureVector, error) {
	return build(tScaled, cScaled, ScaledFeatures)
}

func build(ts, cs []float64, expand func(t, c float64) FeatureVector) ([]FeatureVector, error) {
	if len(ts) != len(cs) {
		return nil, fmt.Errorf("feature columns differ in length: %d temperatures, %d capacitances", len(ts), len(cs))
	}
	out := make([]FeatureVector, len(ts))
	for i := range ts {
		out[i] = expand(ts[i], cs[i])
	}
	return out, nil
}
