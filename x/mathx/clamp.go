// Package mathx holds small numeric helpers shared by the services.
package mathx

import (
	"time"

	"golang.org/x/exp/constraints"
)

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Period converts a configured count of unit into a duration inside
// [lo, hi]. NaN and non-positive counts give lo.
func Period(n float64, unit, lo, hi time.Duration) time.Duration {
	if !(n > 0) {
		return lo
	}
	// clamp in float space first so huge counts cannot overflow
	n = Clamp(n, float64(lo)/float64(unit), float64(hi)/float64(unit))
	return Clamp(time.Duration(n*float64(unit)), lo, hi)
}
