package service

import (
	"sort"
	"time"

	"ad-anomaly-alerts/internal/anomaly"
	"ad-anomaly-alerts/internal/rootcause"
	"ad-anomaly-alerts/internal/rules"
)

// Diagnosis pairs a fired alert with its root-cause analysis.
type Diagnosis struct {
	AlertID  string             `json:"alert_id"`
	Analysis rootcause.Analysis `json:"analysis"`
}

// Report is the outcome of scanning one client.
type Report struct {
	RunID            string           `json:"run_id"`
	ClientID         string           `json:"client_id"`
	AsOf             time.Time        `json:"as_of"`
	GeneratedAt      time.Time        `json:"generated_at"`
	Campaigns        int              `json:"campaigns"`
	TotalConversions float64          `json:"total_conversions"`
	TotalCost        float64          `json:"total_cost"`
	Anomalies        []anomaly.Result `json:"anomalies"`
	Alerts           []rules.Alert    `json:"alerts"`
	Diagnoses        []Diagnosis      `json:"diagnoses"`
}

func sortReports(reports []Report) {
	sort.Slice(reports, func(i, j int) bool { return reports[i].ClientID < reports[j].ClientID })
}
