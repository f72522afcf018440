package common

import (
	"github.com/montanaflynn/stats"
)

// MeanStd returns the mean and population standard deviation of data.
// Empty input returns zeros.
func MeanStd(data []float64) (mean, std float64) {
	if len(data) == 0 {
		return 0, 0
	}
	d := stats.Float64Data(data)
	mean, _ = d.Mean()
	std, _ = d.StandardDeviation()
	return mean, std
}

// Median returns the median of data, or 0 when empty.
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m, _ := stats.Float64Data(data).Median()
	return m
}

// Mean returns the arithmetic mean of data, or 0 when empty.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m, _ := stats.Float64Data(data).Mean()
	return m
}

// Percent returns n as a percentage of total, or 0 when total is zero.
func Percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
