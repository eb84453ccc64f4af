// Package stats provides the numeric primitives used by the anomaly detector.
// Every function is pure and safe for concurrent use.
package stats

import (
	"math"
	"sort"
)

// DefaultDriftFactor is the CUSUM slack expressed in baseline standard deviations.
const DefaultDriftFactor = 0.5

// neutralOutlierScore is returned when the reference set cannot separate
// normal from abnormal points.
const neutralOutlierScore = 0.5

// ZResult pairs a standard score with its two-sided p-value.
type ZResult struct {
	Z float64
	P float64
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StandardDeviation returns the sample standard deviation (n-1 denominator).
func StandardDeviation(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	sq := 0.0
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n-1))
}

// NormalCDF approximates the standard normal CDF using Abramowitz and Stegun
// formula 26.2.17 (absolute error below 7.5e-8).
func NormalCDF(z float64) float64 {
	const (
		p  = 0.2316419
		b1 = 0.319381530
		b2 = -0.356563782
		b3 = 1.781477937
		b4 = -1.821255978
		b5 = 1.330274429
	)

	x := math.Abs(z)
	t := 1 / (1 + p*x)
	pdf := math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
	poly := t * (b1 + t*(b2+t*(b3+t*(b4+t*b5))))
	upper := 1 - pdf*poly
	if z < 0 {
		return 1 - upper
	}
	return upper
}

// ZScore scores value against a mean and standard deviation. A zero std
// yields {0, 1}, so a flat series never looks anomalous on this signal.
func ZScore(value, mean, std float64) ZResult {
	if std == 0 {
		return ZResult{Z: 0, P: 1}
	}
	z := (value - mean) / std
	return ZResult{Z: z, P: 2 * (1 - NormalCDF(math.Abs(z)))}
}

// Cusum computes the one-sided upper CUSUM statistic of baseline against
// target. The slack k is driftFactor·σ and the decision interval h is 5·σ,
// with σ the sample deviation of baseline. It returns as soon as the running
// sum exceeds h.
func Cusum(baseline []float64, target, driftFactor float64) float64 {
	if len(baseline) == 0 {
		return 0
	}
	std := StandardDeviation(baseline)
	k := driftFactor * std
	h := 5 * std

	sum := 0.0
	for _, x := range baseline {
		sum = math.Max(0, sum+(x-target-k))
		if sum > h {
			return sum
		}
	}
	return sum
}

// IQROutlierScore measures how far point lies outside the Tukey fences of
// reference, in IQR units clamped to [0,1]. Fewer than three references or a
// zero IQR give the neutral score 0.5.
func IQROutlierScore(point float64, reference []float64) float64 {
	if len(reference) < 3 {
		return neutralOutlierScore
	}

	sorted := append([]float64(nil), reference...)
	sort.Float64s(sorted)

	n := len(sorted)
	q1 := sorted[int(math.Floor(0.25*float64(n)))]
	q3 := sorted[int(math.Floor(0.75*float64(n)))]
	iqr := q3 - q1
	if iqr == 0 {
		return neutralOutlierScore
	}

	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	var distance float64
	switch {
	case point < lower:
		distance = lower - point
	case point > upper:
		distance = point - upper
	default:
		return 0
	}
	return clamp01(distance / iqr)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
