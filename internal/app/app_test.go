package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ad-anomaly-alerts/internal/anomaly"
	"ad-anomaly-alerts/internal/campaign"
	"ad-anomaly-alerts/internal/config"
	"ad-anomaly-alerts/internal/rootcause"
	"ad-anomaly-alerts/internal/rules"
	"ad-anomaly-alerts/internal/service"
	"ad-anomaly-alerts/internal/storage"
)

func newTestApp(out *bytes.Buffer) *App {
	cfg := &config.Config{Export: config.ExportConfig{MaxDataPoints: 100}}
	a := NewApp(cfg, zerolog.Nop())
	a.Out = out
	return a
}

func dailyPoints(n int) []campaign.MetricPoint {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	points := make([]campaign.MetricPoint, n)
	for i := range points {
		points[i] = campaign.MetricPoint{EntityID: "acme", Date: start.AddDate(0, 0, i)}
		points[i].Set(campaign.Clicks, float64(100+i%5))
		points[i].Set(campaign.Cost, 25)
	}
	return points
}

func TestKnowledgeBaseCoversEveryRule(t *testing.T) {
	require.NoError(t, newTestApp(&bytes.Buffer{}).checkKnowledgeBase())
}

func TestDiagnoseText(t *testing.T) {
	var out bytes.Buffer
	a := newTestApp(&out)

	require.NoError(t, a.Diagnose(DiagnoseOptions{Category: rootcause.CategoryCPCSpike, Conversions: 10, Cost: 1000}))

	text := out.String()
	assert.Contains(t, text, "Category: cpc-spike")
	assert.Contains(t, text, "CPA $100.00")
	assert.Contains(t, text, "Recommended: Automated bidding raised bids")
}

func TestDiagnoseJSON(t *testing.T) {
	var out bytes.Buffer
	a := newTestApp(&out)

	require.NoError(t, a.Diagnose(DiagnoseOptions{Category: "unknown", JSON: true}))

	var analysis rootcause.Analysis
	require.NoError(t, json.Unmarshal(out.Bytes(), &analysis))
	assert.Empty(t, analysis.Hypotheses)
	assert.Equal(t, rootcause.NoHypothesis, analysis.RecommendedAction.Hypothesis)
}

func TestDiagnoseRejectsNegativeInput(t *testing.T) {
	a := newTestApp(&bytes.Buffer{})
	assert.Error(t, a.Diagnose(DiagnoseOptions{Category: rootcause.CategoryCPCSpike, Cost: -1}))
}

func TestWriteReportsTable(t *testing.T) {
	var out bytes.Buffer
	report := service.Report{
		ClientID:  "acme",
		AsOf:      time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		Campaigns: 2,
		Anomalies: []anomaly.Result{{
			EntityID: "a", Metric: campaign.Clicks, Type: anomaly.TypeSpike, Severity: anomaly.SeverityMedium,
			ObservedValue: 300, ExpectedValue: 99.6, DeviationPercent: 201.2, Confidence: 0.75,
		}},
		Alerts: []rules.Alert{{ID: rules.IDConversionsZero, Severity: rules.SeverityCritical, Title: "No conversions\nin the last 3 days"}},
		Diagnoses: []service.Diagnosis{{
			AlertID:  rules.IDConversionsZero,
			Analysis: rootcause.NewEngine().Analyze(rootcause.CategoryZeroConversions, 33, 420),
		}},
	}

	writeReportsTable(&out, []service.Report{report})

	text := out.String()
	assert.Contains(t, text, "Client acme as of 2026-06-30: 2 campaigns, 1 anomalies, 1 alerts")
	assert.Contains(t, text, "spike")
	assert.Contains(t, text, "No conversions in the last 3 days")
	assert.Contains(t, text, "Conversion tracking stopped recording")
	assert.Contains(t, text, "12.73 (green)")
}

func TestWriteReportsTableEmpty(t *testing.T) {
	var out bytes.Buffer
	writeReportsTable(&out, nil)
	assert.Equal(t, "no clients scanned\n", out.String())
}

func TestWriteReportsJSONSingle(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeReportsJSON(&out, []service.Report{{ClientID: "acme"}}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "acme", decoded["client_id"])
}

func TestWriteDiagnosesTable(t *testing.T) {
	var out bytes.Buffer
	writeDiagnosesTable(&out, []storage.DiagnosisRecord{{
		ClientID: "acme", AlertID: "cpc-spike", Severity: "warning",
		TopHypothesis: "Automated bidding raised bids", CPA: decimal.RequireFromString("95.5"), Rating: "yellow",
		CreatedAt: time.Date(2026, 7, 1, 0, 5, 0, 0, time.UTC),
	}})

	text := out.String()
	assert.Contains(t, text, "2026-07-01T00:05:00Z")
	assert.Contains(t, text, "95.50")
	assert.Contains(t, text, "yellow")

	out.Reset()
	writeDiagnosesTable(&out, nil)
	assert.Equal(t, "no diagnoses found\n", out.String())
}

func TestDownsamplePoints(t *testing.T) {
	points := dailyPoints(10)

	assert.Len(t, downsamplePoints(points, 0), 10)
	assert.Len(t, downsamplePoints(points, 20), 10)

	got := downsamplePoints(points, 4)
	require.Len(t, got, 4)
	assert.Equal(t, points[0].Date, got[0].Date)
	assert.Equal(t, points[9].Date, got[3].Date)

	one := downsamplePoints(points, 1)
	require.Len(t, one, 1)
	assert.Equal(t, points[9].Date, one[0].Date)
}

func TestWritePointsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "acme.csv")
	require.NoError(t, writePointsCSV(path, dailyPoints(3)))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "date", records[0][0])
	assert.Equal(t, "2026-06-01", records[1][0])

	clicksCol := -1
	impressionsCol := -1
	for i, h := range records[0] {
		switch h {
		case string(campaign.Clicks):
			clicksCol = i
		case string(campaign.Impressions):
			impressionsCol = i
		}
	}
	require.Positive(t, clicksCol)
	require.Positive(t, impressionsCol)
	assert.Equal(t, "100.0000", records[1][clicksCol])
	assert.Equal(t, "", records[1][impressionsCol])
}

func TestWritePointsPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acme.png")
	require.NoError(t, writePointsPNG(path, "acme", campaign.Clicks, dailyPoints(14)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	err = writePointsPNG(filepath.Join(t.TempDir(), "empty.png"), "acme", campaign.Conversions, dailyPoints(14))
	assert.Error(t, err)
}

func TestExportValidatesOptions(t *testing.T) {
	a := newTestApp(&bytes.Buffer{})
	ctx := context.Background()

	assert.ErrorContains(t, a.Export(ctx, ExportOptions{ClientID: "acme", Metric: "clicks"}), "--csv or --png")
	assert.ErrorContains(t, a.Export(ctx, ExportOptions{CSVPath: "x.csv", Metric: "clicks"}), "--client")
	assert.Error(t, a.Export(ctx, ExportOptions{ClientID: "acme", CSVPath: "x.csv", Metric: "bounce_rate"}))
	assert.ErrorContains(t, a.Export(ctx, ExportOptions{ClientID: "acme", CSVPath: "x.csv", Metric: "clicks"}), "database not configured")
}

func TestCommandsNeedDatabase(t *testing.T) {
	a := newTestApp(&bytes.Buffer{})
	ctx := context.Background()

	assert.ErrorContains(t, a.Show(ctx, ShowOptions{Limit: 5}), "database not configured")
	assert.ErrorContains(t, a.Migrate(ctx), "database not configured")
}

func TestAlignForward(t *testing.T) {
	day := 24 * time.Hour
	midnight := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, midnight, alignForward(midnight, day))
	assert.Equal(t, midnight.Add(day), alignForward(midnight.Add(time.Hour), day))
}

func TestSimulateAlertRequiresAlerting(t *testing.T) {
	a := newTestApp(&bytes.Buffer{})
	assert.ErrorContains(t, a.SimulateAlert(context.Background(), SimulateOptions{AlertID: rules.IDCPCSpike}), "disabled")

	a.Config.Alerting.Enabled = true
	assert.ErrorContains(t, a.SimulateAlert(context.Background(), SimulateOptions{AlertID: rules.IDCPCSpike}), "no alert channel")
}
