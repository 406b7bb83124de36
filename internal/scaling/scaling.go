// Package scaling implements min-max feature normalisation against bounds
// taken from a reference dataset.
package scaling

import "fmt"

// DegenerateRangeError is returned when the scaling range has zero width.
type DegenerateRangeError struct {
	Min float64
	Max float64
}

func (e *DegenerateRangeError) Error() string {
	return fmt.Sprintf("degenerate scaling range: min == max == %g", e.Min)
}

// Scale maps value linearly so that min becomes 0 and max becomes 1.
// Values outside [min, max] map outside [0, 1]; that is extrapolation, not
// an error. Use IsInRange to detect it.
func Scale(value, min, max float64) (float64, error) {
	if max == min {
		return 0, &DegenerateRangeError{Min: min, Max: max}
	}
	return (value - min) / (max - min), nil
}

// IsInRange reports whether a scaled value lies within [0, 1].
func IsInRange(scaled float64) bool {
	return scaled >= 0 && scaled <= 1
}

// Range is a frozen pair of scaling bounds.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Validate returns a DegenerateRangeError when the range has zero width.
func (r Range) Validate() error {
	if r.Max == r.Min {
		return &DegenerateRangeError{Min: r.Min, Max: r.Max}
	}
	return nil
}

// Scale scales v against the range.
func (r Range) Scale(v float64) (float64, error) {
	return Scale(v, r.Min, r.Max)
}

// Width returns Max - Min.
func (r Range) Width() float64 {
	return r.Max - r.Min
}

// ScaleAll scales every value against r, preserving order.
func ScaleAll(values []float64, r Range) ([]float64, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	width := r.Width()
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - r.Min) / width
	}
	return out, nil
}
