// Package api serves cached scan reports, ad-hoc diagnoses and metrics over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ad-anomaly-alerts/internal/rootcause"
	"ad-anomaly-alerts/internal/storage"
)

// ReportReader returns the latest cached report for a client, or nil when none exists.
type ReportReader interface {
	Get(ctx context.Context, clientID string) (json.RawMessage, error)
}

// Diagnoser runs a root-cause analysis for an alert category.
type Diagnoser interface {
	Diagnose(category string, totalConversions, totalCost float64) rootcause.Analysis
}

// Deps wires the router. Reports, Diagnoses and Gatherer may be nil.
type Deps struct {
	Reports   ReportReader
	Diagnoses storage.DiagnosisStore
	Diagnoser Diagnoser
	Gatherer  prometheus.Gatherer
	Logger    zerolog.Logger
}

const defaultDiagnosisLimit = 20

type handler struct {
	deps   Deps
	logger zerolog.Logger
}

// NewRouter builds the HTTP routes.
func NewRouter(deps Deps) http.Handler {
	h := &handler{deps: deps, logger: deps.Logger.With().Str("component", "api").Logger()}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.health)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/clients/{clientID}/report", h.report)
		r.Get("/clients/{clientID}/diagnoses", h.diagnoses)
		r.Get("/root-cause/{category}", h.rootCause)
	})
	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) report(w http.ResponseWriter, r *http.Request) {
	if h.deps.Reports == nil {
		writeError(w, http.StatusServiceUnavailable, "report cache disabled")
		return
	}
	clientID := chi.URLParam(r, "clientID")

	raw, err := h.deps.Reports.Get(r.Context(), clientID)
	if err != nil {
		h.logger.Error().Err(err).Str("client_id", clientID).Msg("read cached report")
		writeError(w, http.StatusInternalServerError, "failed to read report cache")
		return
	}
	if raw == nil {
		writeError(w, http.StatusNotFound, "no report for client")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

type diagnosisView struct {
	RunID         string    `json:"run_id"`
	AlertID       string    `json:"alert_id"`
	Severity      string    `json:"severity"`
	Category      string    `json:"category"`
	TopHypothesis string    `json:"top_hypothesis"`
	CPA           string    `json:"cpa"`
	Rating        string    `json:"rating"`
	CreatedAt     time.Time `json:"created_at"`
}

func (h *handler) diagnoses(w http.ResponseWriter, r *http.Request) {
	if h.deps.Diagnoses == nil {
		writeError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}
	clientID := chi.URLParam(r, "clientID")

	limit := defaultDiagnosisLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	recs, err := h.deps.Diagnoses.ListRecentDiagnoses(r.Context(), clientID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("client_id", clientID).Msg("list diagnoses")
		writeError(w, http.StatusInternalServerError, "failed to list diagnoses")
		return
	}

	out := make([]diagnosisView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, diagnosisView{
			RunID:         rec.RunID,
			AlertID:       rec.AlertID,
			Severity:      rec.Severity,
			Category:      rec.Category,
			TopHypothesis: rec.TopHypothesis,
			CPA:           rec.CPA.StringFixed(2),
			Rating:        rec.Rating,
			CreatedAt:     rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) rootCause(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	conversions, err := queryFloat(r, "conversions")
	if err != nil {
		writeError(w, http.StatusBadRequest, "conversions must be a non-negative number")
		return
	}
	cost, err := queryFloat(r, "cost")
	if err != nil {
		writeError(w, http.StatusBadRequest, "cost must be a non-negative number")
		return
	}

	writeJSON(w, http.StatusOK, h.deps.Diagnoser.Diagnose(category, conversions, cost))
}

func queryFloat(r *http.Request, name string) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, strconv.ErrRange
	}
	return f, nil
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
