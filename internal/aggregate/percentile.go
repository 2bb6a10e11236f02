package aggregate

import (
	"math"
	"sort"
)

// Percentile returns the nearest-rank percentile of vals: the sample is
// sorted ascending and the element at round((n-1)*p), clamped to the
// valid range, is returned. No interpolation: the result is always an
// actual sample element. Empty samples yield nil.
func Percentile(vals []int, p float64) *int {
	if len(vals) == 0 {
		return nil
	}
	sorted := make([]int, len(vals))
	copy(sorted, vals)
	sort.Ints(sorted)

	k := int(math.Round(float64(len(sorted)-1) * p))
	if k < 0 {
		k = 0
	}
	if k > len(sorted)-1 {
		k = len(sorted) - 1
	}
	v := sorted[k]
	return &v
}
