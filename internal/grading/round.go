package grading

import (
	"math"
	"math/big"
	"strconv"
)

// Round2 rounds x to two decimal places, half away from zero, on the exact
// binary value of x. NaN, ±Inf and magnitudes of 1e21 and above are returned
// unchanged.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) || math.Abs(x) >= 1e21 {
		return x
	}
	neg := math.Signbit(x)

	// 53 mantissa bits plus 7 for the factor of 100 keeps the product exact.
	f := new(big.Float).SetPrec(128).SetFloat64(math.Abs(x))
	f.Mul(f, big.NewFloat(100))
	f.Add(f, big.NewFloat(0.5))
	n, _ := f.Int(nil)

	v, _ := new(big.Float).SetInt(n).Float64()
	v /= 100
	if neg {
		return -v
	}
	return v
}

// FormatFigure renders x for display: rounded to two places, shortest form,
// so 27.1875 prints as "27.19" and 100 as "100".
func FormatFigure(x float64) string {
	r := Round2(x)
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// FormatCourseResult renders a single course result, or "" when nothing
// worth showing was scored (absent, zero or NaN).
func FormatCourseResult(cr CourseResult, ok bool) string {
	if !ok || cr.Result == 0 || math.IsNaN(cr.Result) {
		return ""
	}
	return FormatFigure(cr.Result)
}
