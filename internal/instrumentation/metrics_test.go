package instrumentation

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordScan("ok", 0.2)
	m.RecordScan("ok", 0.3)
	m.RecordScan("error", 0.1)
	m.RecordAlert("cpc-spike")
	m.RecordAnomaly("clicks", "high")
	m.RecordNotificationError()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("cpc-spike")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnomaliesTotal.WithLabelValues("clicks", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationErrs))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ScanDuration))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.RecordScan("ok", 1)
	m.RecordAlert("x")
	m.RecordAnomaly("clicks", "low")
	m.RecordNotificationError()
	m.RecordFullScan(1)
}
