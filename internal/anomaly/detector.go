// Package anomaly flags statistically abnormal daily metrics by fusing z-score,
// CUSUM and IQR signals into a confidence score.
package anomaly

import (
	"math"
	"time"

	"ad-anomaly-alerts/internal/campaign"
	"ad-anomaly-alerts/internal/stats"
)

// MinHistory is the fewest valid points a series needs before it is judged.
const MinHistory = 7

// DefaultTopN bounds batch output when the caller passes no limit.
const DefaultTopN = 20

// Detector judges the newest point of a series against the points before it.
type Detector struct {
	// Now stamps DetectedAt. Defaults to time.Now in UTC.
	Now func() time.Time
	// Workers caps concurrent entities in DetectBatch. Zero means unbounded.
	Workers int
}

// NewDetector returns a Detector using the wall clock.
func NewDetector(workers int) *Detector {
	return &Detector{
		Now:     func() time.Time { return time.Now().UTC() },
		Workers: workers,
	}
}

type signals struct {
	mean    float64
	std     float64
	z       stats.ZResult
	cusum   float64
	outlier float64
}

// Detect scores metric on series. It returns nil when the series is too short
// or the evidence does not clear the sensitivity gate.
func (d *Detector) Detect(series campaign.MetricSeries, metric campaign.Metric, sensitivity Sensitivity) *Result {
	values := series.Values(metric)
	if len(values) < MinHistory {
		return nil
	}

	baseline := values[:len(values)-1]
	current := values[len(values)-1]

	sig := measure(baseline, current)
	confidence := fuse(sig)

	if !(confidence > sensitivity.threshold() && math.Abs(sig.z.Z) > 1.5) {
		return nil
	}

	deviation := math.Abs(current-sig.mean) / math.Max(1, sig.mean) * 100
	kind := classify(sig, current, deviation)
	cause := lookupCause(metric, kind)

	return &Result{
		EntityID:         series.EntityID,
		Metric:           metric,
		ObservedValue:    current,
		ExpectedValue:    sig.mean,
		DeviationPercent: deviation,
		ZScore:           sig.z.Z,
		PValue:           sig.z.P,
		Cusum:            sig.cusum,
		OutlierScore:     sig.outlier,
		IsAnomaly:        true,
		Type:             kind,
		Confidence:       confidence,
		Severity:         grade(confidence, deviation),
		LikelyCause:      cause.LikelyCause,
		SuggestedAction:  cause.SuggestedAction,
		DetectedAt:       d.now(),
	}
}

func (d *Detector) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now()
}

func measure(baseline []float64, current float64) signals {
	mean := stats.Mean(baseline)
	std := stats.StandardDeviation(baseline)
	return signals{
		mean:    mean,
		std:     std,
		z:       stats.ZScore(current, mean, std),
		cusum:   stats.Cusum(baseline, mean, stats.DefaultDriftFactor),
		outlier: stats.IQROutlierScore(current, baseline),
	}
}

// fuse adds up signal weights, capped at 1. The business-rule bonus repeats
// the |z|>2 test on purpose; the thresholds below are calibrated with it.
func fuse(sig signals) float64 {
	absZ := math.Abs(sig.z.Z)
	businessRule := absZ > 2

	confidence := 0.0
	if absZ > 2 {
		confidence += 0.30
	}
	if absZ > 3 {
		confidence += 0.15
	}
	if sig.std > 0 && sig.cusum/sig.std > 2 {
		confidence += 0.30
	}
	if sig.outlier > 0.5 {
		confidence += 0.20
	}
	if businessRule {
		confidence += 0.10
	}
	return math.Min(confidence, 1.0)
}

func classify(sig signals, current, deviation float64) Type {
	switch {
	case sig.cusum > 3*sig.std:
		return TypeDrift
	case deviation > 50:
		if current > sig.mean {
			return TypeSpike
		}
		return TypeDrop
	default:
		return TypePatternBreak
	}
}

func grade(confidence, deviation float64) Severity {
	switch {
	case confidence > 0.9 && deviation > 50:
		return SeverityCritical
	case confidence > 0.8 && deviation > 30:
		return SeverityHigh
	case confidence > 0.7 && deviation > 15:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
