package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for scans.
type Metrics struct {
	ScansTotal       *prometheus.CounterVec
	ScanDuration     prometheus.Histogram
	AnomaliesTotal   *prometheus.CounterVec
	AlertsTotal      *prometheus.CounterVec
	NotificationErrs prometheus.Counter
	LastScanUnix     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adwatch_client_scans_total",
			Help: "Client scans by outcome",
		}, []string{"outcome"}),

		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "adwatch_client_scan_duration_seconds",
			Help:    "Time to load history and run all engines for one client",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		AnomaliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adwatch_anomalies_detected_total",
			Help: "Statistical anomalies by metric and severity",
		}, []string{"metric", "severity"}),

		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adwatch_threshold_alerts_total",
			Help: "Threshold alerts fired by alert id",
		}, []string{"alert_id"}),

		NotificationErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adwatch_notification_errors_total",
			Help: "Failed alert deliveries",
		}),

		LastScanUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "adwatch_last_scan_timestamp_seconds",
			Help: "Unix time the last full scan finished",
		}),
	}

	reg.MustRegister(m.ScansTotal, m.ScanDuration, m.AnomaliesTotal, m.AlertsTotal, m.NotificationErrs, m.LastScanUnix)
	return m
}

// RecordScan counts one client scan and its duration.
func (m *Metrics) RecordScan(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(outcome).Inc()
	m.ScanDuration.Observe(seconds)
}

// RecordAnomaly counts a detected anomaly.
func (m *Metrics) RecordAnomaly(metric, severity string) {
	if m == nil {
		return
	}
	m.AnomaliesTotal.WithLabelValues(metric, severity).Inc()
}

// RecordAlert counts a fired threshold alert.
func (m *Metrics) RecordAlert(alertID string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(alertID).Inc()
}

// RecordNotificationError counts a failed delivery.
func (m *Metrics) RecordNotificationError() {
	if m == nil {
		return
	}
	m.NotificationErrs.Inc()
}

// RecordFullScan stamps the completion time of a ScanAll.
func (m *Metrics) RecordFullScan(unix float64) {
	if m == nil {
		return
	}
	m.LastScanUnix.Set(unix)
}
