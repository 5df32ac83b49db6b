package trace

import (
	"math"
	"slices"
)

type number interface {
	int | int64 | float64
}

// Percentile returns the p-th percentile (0-100) of data, interpolating
// linearly between the two nearest ranks. data need not be sorted.
func Percentile[T number](data []T, p float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(data)
	slices.Sort(sorted)

	rank := p / 100.0 * float64(n-1)
	lowerIdx := int(math.Floor(rank))
	upperIdx := min(int(math.Ceil(rank)), n-1)
	if lowerIdx == upperIdx {
		return float64(sorted[lowerIdx])
	}
	lower, upper := float64(sorted[lowerIdx]), float64(sorted[upperIdx])
	return lower + (upper-lower)*(rank-float64(lowerIdx))
}

// Mean returns the arithmetic mean of data, or 0 when empty.
func Mean[T number](data []T) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += float64(v)
	}
	return sum / float64(len(data))
}
