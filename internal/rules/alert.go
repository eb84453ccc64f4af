package rules

import "ad-anomaly-alerts/internal/campaign"

// Severity of a threshold alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank orders severities so callers can filter by a minimum level.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Stable alert identifiers, one per rule.
const (
	IDConversionsZero    = "conversions-zero"
	IDImpressionsDrop    = "impressions-drop"
	IDClicksDrop         = "clicks-drop"
	IDCTRLow             = "ctr-low"
	IDCPCSpike           = "cpc-spike"
	IDImpressionShareLow = "impression-share-low"
	IDLostISBudget       = "lost-is-budget"
	IDLostISRank         = "lost-is-rank"
)

// Alert is a fired threshold rule.
type Alert struct {
	ID             string          `json:"id"`
	Category       string          `json:"category"`
	Severity       Severity        `json:"severity"`
	Title          string          `json:"title"`
	Metric         campaign.Metric `json:"metric"`
	CurrentValue   float64         `json:"current_value"`
	ExpectedValue  *float64        `json:"expected_value,omitempty"`
	ChangePercent  *float64        `json:"change_percent,omitempty"`
	Recommendation string          `json:"recommendation"`
}
