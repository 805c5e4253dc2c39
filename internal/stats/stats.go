// Package stats provides the descriptive statistics shared by the table
// analyzer and the anomaly detector: mean, sample standard deviation,
// interpolated quantiles, and Pearson correlation.
package stats

import (
	"math"
	"sort"
)

// Summary describes the distribution of a numeric column. Count is the
// number of values the summary was computed over; the remaining fields are
// zero when Count is 0, and Std is zero when Count < 2.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

func Describe(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Summary{
		Count:  len(sorted),
		Mean:   Round(Mean(sorted), 2),
		Std:    Round(StdDev(sorted), 2),
		Min:    Round(sorted[0], 2),
		Q1:     Round(Quantile(sorted, 0.25), 2),
		Median: Round(Quantile(sorted, 0.5), 2),
		Q3:     Round(Quantile(sorted, 0.75), 2),
		Max:    Round(sorted[len(sorted)-1], 2),
	}
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation (n-1 denominator), zero when
// fewer than two values are given.
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// Quantile computes the p-quantile of an ascending-sorted slice using linear
// interpolation between the two nearest ranks.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := p * float64(len(sorted)-1)
	floor := math.Floor(pos)
	ceil := math.Ceil(pos)
	if floor == ceil {
		return sorted[int(pos)]
	}
	lower := sorted[int(floor)]
	upper := sorted[int(ceil)]
	return lower + (pos-floor)*(upper-lower)
}

func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return Quantile(sorted, 0.5)
}

// Pearson returns the correlation coefficient for two equal-length series.
// The second return is false when fewer than two pairs are given or either
// side has zero variance.
func Pearson(xs, ys []float64) (float64, bool) {
	n := len(xs)
	if n != len(ys) || n < 2 {
		return 0, false
	}
	meanX := Mean(xs)
	meanY := Mean(ys)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	r := cov / math.Sqrt(varX*varY)
	// Clamp float noise so callers can rely on |r| <= 1.
	if r > 1 {
		r = 1
	}
	if r < -1 {
		r = -1
	}
	return r, true
}

// Round rounds to the given number of decimal places, half away from zero.
func Round(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}
