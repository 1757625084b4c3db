// Package formulas provides the statistical building blocks used by spread analysis:
// streaming window estimators and gonum-backed summary statistics.
package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of the finite values in data
func Mean(data []float64) float64 {
	data = finite(data)
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of the finite values in data.
// Fewer than two values have no spread and yield 0.
func StdDev(data []float64) float64 {
	data = finite(data)
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// MeanStdDev returns the mean and sample standard deviation of the finite values in one pass.
func MeanStdDev(data []float64) (float64, float64) {
	data = finite(data)
	switch len(data) {
	case 0:
		return 0, 0
	case 1:
		return data[0], 0
	}
	return stat.MeanStdDev(data, nil)
}

// Median returns the middle finite value of data, averaging the two middle values for
// even lengths. The input is not modified.
func Median(data []float64) float64 {
	sorted := append([]float64(nil), finite(data)...)
	if len(sorted) == 0 {
		return 0
	}
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Sign returns -1, 0 or 1 according to the sign of v.
func Sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// finite returns data itself when every value is finite, otherwise a filtered copy.
func finite(data []float64) []float64 {
	for i, v := range data {
		if Finite(v) {
			continue
		}
		out := append([]float64(nil), data[:i]...)
		for _, w := range data[i+1:] {
			if Finite(w) {
				out = append(out, w)
			}
		}
		return out
	}
	return data
}
