package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ad-anomaly-alerts/internal/anomaly"
	"ad-anomaly-alerts/internal/campaign"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: adwatch\n"))
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, anomaly.SensitivityMedium, cfg.Sensitivity())
	assert.Equal(t, 30, cfg.Detection.LookbackDays)
	assert.Equal(t, 20, cfg.Detection.TopN)
	assert.Equal(t, 14, cfg.Rules.WindowDays)
	assert.Equal(t, 30, cfg.HistoryDays())
	assert.Equal(t, "warning", cfg.Alerting.MinSeverity)

	metrics, err := cfg.DetectionMetrics()
	require.NoError(t, err)
	assert.Contains(t, metrics, campaign.Clicks)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
detection:
  sensitivity: high
  lookback_days: 45
  metrics: [clicks, search_lost_is_rank]
cache:
  enabled: true
  ttl: 2h
`))
	require.NoError(t, err)

	assert.Equal(t, anomaly.SensitivityHigh, cfg.Sensitivity())
	assert.Equal(t, 45, cfg.HistoryDays())
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL)

	metrics, err := cfg.DetectionMetrics()
	require.NoError(t, err)
	assert.Equal(t, []campaign.Metric{campaign.Clicks, campaign.SearchLostISRank}, metrics)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("ADWATCH_DETECTION_SENSITIVITY", "low")
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, anomaly.SensitivityLow, cfg.Sensitivity())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"sensitivity": "detection:\n  sensitivity: extreme\n",
		"lookback":    "detection:\n  lookback_days: 3\n",
		"metric":      "detection:\n  metrics: [clicks, bounce_rate]\n",
		"window":      "rules:\n  window_days: 5\n",
		"severity":    "alerting:\n  min_severity: urgent\n",
		"telegram":    "alerting:\n  telegram:\n    enabled: true\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 100}}
	assert.Equal(t, 100, cfg.ResolveMaxPoints(0))
	assert.Equal(t, 7, cfg.ResolveMaxPoints(7))
}
