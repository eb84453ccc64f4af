package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ad-anomaly-alerts/internal/rootcause"
	"ad-anomaly-alerts/internal/storage"
)

type stubReports map[string]json.RawMessage

func (s stubReports) Get(_ context.Context, clientID string) (json.RawMessage, error) {
	if clientID == "broken" {
		return nil, errors.New("redis down")
	}
	return s[clientID], nil
}

type stubDiagnoses struct {
	recs      []storage.DiagnosisRecord
	lastLimit int
}

func (s *stubDiagnoses) InsertDiagnosis(_ context.Context, rec storage.DiagnosisRecord) (storage.DiagnosisRecord, error) {
	return rec, nil
}

func (s *stubDiagnoses) ListRecentDiagnoses(_ context.Context, _ string, limit int) ([]storage.DiagnosisRecord, error) {
	s.lastLimit = limit
	return s.recs, nil
}

func (s *stubDiagnoses) DeleteDiagnosesBefore(context.Context, time.Time) error { return nil }

type engineDiagnoser struct{ e *rootcause.Engine }

func (d engineDiagnoser) Diagnose(category string, conv, cost float64) rootcause.Analysis {
	return d.e.Analyze(category, conv, cost)
}

func newTestRouter(deps Deps) http.Handler {
	deps.Logger = zerolog.Nop()
	if deps.Diagnoser == nil {
		deps.Diagnoser = engineDiagnoser{e: rootcause.NewEngine()}
	}
	return NewRouter(deps)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestRouter(Deps{}), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReportServesCachedJSON(t *testing.T) {
	h := newTestRouter(Deps{Reports: stubReports{"acme": json.RawMessage(`{"client_id":"acme"}`)}})

	rec := get(t, h, "/v1/clients/acme/report")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"client_id":"acme"}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get(t, h, "/v1/clients/globex/report").Code)
	assert.Equal(t, http.StatusInternalServerError, get(t, h, "/v1/clients/broken/report").Code)
}

func TestReportWithoutCache(t *testing.T) {
	rec := get(t, newTestRouter(Deps{}), "/v1/clients/acme/report")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDiagnosesListing(t *testing.T) {
	store := &stubDiagnoses{recs: []storage.DiagnosisRecord{{
		RunID: "r1", AlertID: "cpc-spike", Severity: "warning", Category: "cpc-spike",
		TopHypothesis: "Automated bidding raised bids", CPA: decimal.RequireFromString("95.5"), Rating: "yellow",
	}}}
	h := newTestRouter(Deps{Diagnoses: store})

	rec := get(t, h, "/v1/clients/acme/diagnoses?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, store.lastLimit)

	var out []diagnosisView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "95.50", out[0].CPA)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/v1/clients/acme/diagnoses?limit=zero").Code)
}

func TestRootCause(t *testing.T) {
	h := newTestRouter(Deps{})

	rec := get(t, h, "/v1/root-cause/zero-conversions?conversions=0&cost=250")
	require.Equal(t, http.StatusOK, rec.Code)

	var analysis rootcause.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Equal(t, "zero-conversions", analysis.Category)
	assert.Equal(t, "Conversion tracking stopped recording", analysis.RecommendedAction.Hypothesis)
	assert.Equal(t, rootcause.RatingGreen, analysis.LeadQualityScore.Rating)
}

func TestRootCauseRejectsBadNumbers(t *testing.T) {
	h := newTestRouter(Deps{})
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/v1/root-cause/cpc-spike?cost=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/v1/root-cause/cpc-spike?conversions=-1").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "adwatch_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	rec := get(t, newTestRouter(Deps{Gatherer: reg}), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "adwatch_test_total 1"))
}
