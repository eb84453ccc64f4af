package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetricRow is one campaign's daily metrics as stored in daily_metrics.
// Nullable share columns stay nil when the ad platform did not report them.
type MetricRow struct {
	ClientID           string
	CampaignID         string
	Date               time.Time
	Impressions        int64
	Clicks             int64
	Cost               decimal.Decimal
	Conversions        decimal.Decimal
	QualityScore       *float64
	ImpressionShare    *float64
	SearchLostISBudget *float64
	SearchLostISRank   *float64
}

// DiagnosisRecord captures a fired alert and its top hypothesis for auditing.
type DiagnosisRecord struct {
	ID            int64
	RunID         string
	ClientID      string
	AlertID       string
	Severity      string
	Category      string
	TopHypothesis string
	CPA           decimal.Decimal
	Rating        string
	CreatedAt     time.Time
}
