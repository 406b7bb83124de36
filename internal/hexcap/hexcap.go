// Package hexcap decodes the hexadecimal capacitance readings reported by
// the Goose sensor into unsigned integer magnitudes.
package hexcap

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseError reports a capacitance string that is not valid hexadecimal.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid capacitance hex %q: %s", e.Input, e.Reason)
}

// Decode converts a hexadecimal string into its unsigned integer value.
// Surrounding whitespace is ignored and a single leading "0x" or "0X" is
// stripped. Digits are case-insensitive. There is no upper bound on the
// magnitude of the result.
func Decode(s string) (*big.Int, error) {
	digits := strings.TrimSpace(s)
	if len(digits) >= 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		digits = digits[2:]
	}
	if digits == "" {
		return nil, &ParseError{Input: s, Reason: "no hex digits"}
	}
	for i := 0; i < len(digits); i++ {
		if !isHexDigit(digits[i]) {
			return nil, &ParseError{Input: s, Reason: fmt.Sprintf("unexpected character %q at offset %d", digits[i], i)}
		}
	}

	v, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return nil, &ParseError{Input: s, Reason: "not a base-16 integer"}
	}
	return v, nil
}

// MustDecode is like Decode but panics on malformed input.
// Intended for constants and test fixtures.
func MustDecode(s string) *big.Int {
	v, err := Decode(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Encode returns the lowercase hexadecimal form of v without a prefix.
func Encode(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.Text(16)
}

// Float returns the float64 nearest to v.
func Float(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

func isHexDigit(b byte) bool {
	switch {
	case b >= '0' && b <= '9':
		return true
	case b >= 'a' && b <= 'f':
		return true
	case b >= 'A' && b <= 'F':
		return true
	}
	return false
}
