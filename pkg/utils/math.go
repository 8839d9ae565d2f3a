package utils

import "math"

// RoundTo rounds x to the given number of decimal places, half away from zero.
func RoundTo(x float64, places int) float64 {
	if places < 0 {
		places = 0
	}
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// ClampInt limits v to [lo, hi]. A non-positive hi disables the upper bound.
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}
