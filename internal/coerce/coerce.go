// Package coerce converts raw cell values to numbers and strings on demand.
//
// Tables keep cells exactly as they were ingested. Coercion happens per
// comparison or aggregation and never writes back, so the same cell can act
// as text for one predicate and as a number for another.
//
// A numeric string may carry surrounding whitespace, a sign, a decimal point
// and an exponent; 0x/0o/0b integer literals and the spelled-out infinities
// are accepted too. Thousands separators, trailing units and "NaN" are not
// numbers.
package coerce

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// decimalRe matches an optionally signed decimal literal with optional exponent.
var decimalRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// String returns the display form of a cell. nil becomes "".
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case []byte:
		return string(x)
	case interface{ String() string }:
		return x.String()
	default:
		return ""
	}
}

// IsEmpty reports whether a cell is absent, nil, or whitespace-only text.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []byte:
		return strings.TrimSpace(string(x)) == ""
	default:
		return false
	}
}

// Number coerces a cell to float64. ok is false for empty cells and for
// anything that is not a numeric literal.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), !math.IsNaN(float64(x))
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		return ParseNumber(x)
	case []byte:
		return ParseNumber(string(x))
	default:
		return 0, false
	}
}

// ParseNumber parses s as a numeric literal. Empty input is not a number.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			if strings.Contains(s, "_") {
				return 0, false
			}
			u, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return 0, false
			}
			return float64(u), true
		}
	}
	if !decimalRe.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Out-of-range literals still carry a sign and magnitude.
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f, true
		}
		return 0, false
	}
	return f, true
}

// Operand coerces a user-typed comparison operand. Blank operands compare as
// zero, matching how a free-text number box is read.
func Operand(s string) (float64, bool) {
	if strings.TrimSpace(s) == "" {
		return 0, true
	}
	return ParseNumber(s)
}

// Round2 rounds f to two decimal places, halves away from zero.
func Round2(f float64) float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return f
	}
	return math.Round(f*100) / 100
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	if a := math.Abs(f); a != 0 && (a >= 1e21 || a < 1e-6) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
