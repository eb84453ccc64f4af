package anomaly

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ad-anomaly-alerts/internal/campaign"
)

// ErrUnknownSensitivity is returned by ParseSensitivity for unrecognised input.
var ErrUnknownSensitivity = errors.New("anomaly: unknown sensitivity")

// Sensitivity selects the confidence gate a signal must clear.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// ParseSensitivity maps a case-insensitive name to a Sensitivity.
func ParseSensitivity(v string) (Sensitivity, error) {
	switch s := Sensitivity(strings.ToLower(strings.TrimSpace(v))); s {
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSensitivity, v)
	}
}

// threshold is the confidence a detection must exceed.
func (s Sensitivity) threshold() float64 {
	switch s {
	case SensitivityHigh:
		return 0.6
	case SensitivityLow:
		return 0.8
	default:
		return 0.7
	}
}

// Type classifies the shape of an anomaly.
type Type string

const (
	TypeSpike        Type = "spike"
	TypeDrop         Type = "drop"
	TypeDrift        Type = "drift"
	TypePatternBreak Type = "pattern_break"
)

// Severity ranks how urgently an anomaly needs attention.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Result describes one detected anomaly on the newest observation of a series.
type Result struct {
	EntityID         string          `json:"entity_id"`
	Metric           campaign.Metric `json:"metric"`
	ObservedValue    float64         `json:"observed_value"`
	ExpectedValue    float64         `json:"expected_value"`
	DeviationPercent float64         `json:"deviation_percent"`
	ZScore           float64         `json:"z_score"`
	PValue           float64         `json:"p_value"`
	Cusum            float64         `json:"cusum"`
	OutlierScore     float64         `json:"outlier_score"`
	IsAnomaly        bool            `json:"is_anomaly"`
	Type             Type            `json:"anomaly_type"`
	Confidence       float64         `json:"confidence"`
	Severity         Severity        `json:"severity"`
	LikelyCause      string          `json:"likely_cause"`
	SuggestedAction  string          `json:"suggested_action"`
	DetectedAt       time.Time       `json:"detected_at"`
}
