package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"ad-anomaly-alerts/internal/alerting"
	"ad-anomaly-alerts/internal/anomaly"
	"ad-anomaly-alerts/internal/campaign"
	"ad-anomaly-alerts/internal/config"
	"ad-anomaly-alerts/internal/instrumentation"
	"ad-anomaly-alerts/internal/rootcause"
	"ad-anomaly-alerts/internal/rules"
	"ad-anomaly-alerts/internal/scheduler"
	"ad-anomaly-alerts/internal/storage"
)

// ReportPublisher makes the latest report available to readers.
type ReportPublisher interface {
	Publish(ctx context.Context, clientID string, report any) error
}

// Deps are the collaborators a Service talks to. Everything except Reader is
// optional.
type Deps struct {
	Scheduler *scheduler.Scheduler
	Reader    storage.MetricReader
	Diagnoses storage.DiagnosisStore
	Notifier  alerting.Notifier
	Publisher ReportPublisher
	Metrics   *instrumentation.Metrics
}

// Service orchestrates loading history, running the engines, and fanning the
// results out to storage, notifiers and the report cache.
type Service struct {
	deps      Deps
	detector  *anomaly.Detector
	rules     *rules.Engine
	rootcause *rootcause.Engine
	logger    zerolog.Logger

	sensitivity   anomaly.Sensitivity
	metrics       []campaign.Metric
	topN          int
	lookbackDays  int
	windowDays    int
	clientWorkers int
	minSeverity   rules.Severity
	channels      []string
	alertsOn      bool
	locker        storage.AdvisoryLocker
	lockKey       int64
	retention     time.Duration

	now      func() time.Time
	newRunID func() string
}

// New constructs the scan service. cfg must already be validated.
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) *Service {
	metrics, err := cfg.DetectionMetrics()
	if err != nil {
		metrics = []campaign.Metric{campaign.Clicks, campaign.Conversions}
	}

	var locker storage.AdvisoryLocker
	if l, ok := deps.Reader.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		deps:          deps,
		detector:      anomaly.NewDetector(cfg.Detection.Workers),
		rules:         rules.NewEngine(),
		rootcause:     rootcause.NewEngine(),
		logger:        logger.With().Str("component", "service").Logger(),
		sensitivity:   cfg.Sensitivity(),
		metrics:       metrics,
		topN:          cfg.Detection.TopN,
		lookbackDays:  cfg.Detection.LookbackDays,
		windowDays:    cfg.Rules.WindowDays,
		clientWorkers: cfg.Scheduler.ClientWorkers,
		minSeverity:   rules.Severity(cfg.Alerting.MinSeverity),
		channels:      cfg.Alerting.Channels,
		alertsOn:      cfg.Alerting.Enabled,
		locker:        locker,
		lockKey:       cfg.Scheduler.AdvisoryLockKey,
		retention:     cfg.Database.Retention,
		now:           func() time.Time { return time.Now().UTC() },
		newRunID:      uuid.NewString,
	}
}

// Run begins the aligned scan loop.
func (s *Service) Run(ctx context.Context) error {
	if s.deps.Scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.deps.Scheduler.Run(ctx, s.ProcessBucket)
}

// ProcessBucket scans every client for the last full day before bucket.
func (s *Service) ProcessBucket(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip bucket because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	asOf := bucket.UTC().AddDate(0, 0, -1)
	_, err = s.ScanAll(ctx, asOf)
	s.prune(ctx)
	return err
}

func (s *Service) prune(ctx context.Context) {
	if s.retention <= 0 || s.deps.Diagnoses == nil {
		return
	}
	cutoff := s.now().Add(-s.retention)
	if err := s.deps.Diagnoses.DeleteDiagnosesBefore(ctx, cutoff); err != nil {
		s.logger.Error().Err(err).Time("cutoff", cutoff).Msg("failed to prune diagnoses")
	}
}

// ScanAll scans every client with recent history. A failing client is logged
// and counted; the remaining clients still run.
func (s *Service) ScanAll(ctx context.Context, asOf time.Time) ([]Report, error) {
	if s.deps.Reader == nil {
		return nil, storage.ErrNotConfigured
	}

	from, _ := s.historyRange(asOf)
	clients, err := s.deps.Reader.ListClients(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.clientWorkers > 0 {
		g.SetLimit(s.clientWorkers)
	}

	var (
		mu      sync.Mutex
		reports = make([]Report, 0, len(clients))
		failed  int
	)
	for _, clientID := range clients {
		clientID := clientID
		g.Go(func() error {
			report, scanErr := s.ScanClient(gctx, clientID, asOf)
			mu.Lock()
			defer mu.Unlock()
			if scanErr != nil {
				if errors.Is(scanErr, context.Canceled) {
					return scanErr
				}
				failed++
				s.logger.Error().Err(scanErr).Str("client_id", clientID).Msg("client scan failed")
				return nil
			}
			reports = append(reports, report)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortReports(reports)
	s.deps.Metrics.RecordFullScan(float64(s.now().Unix()))
	s.logger.Info().Int("clients", len(clients)).Int("failed", failed).Time("as_of", asOf).Msg("scan completed")

	if failed > 0 {
		return reports, fmt.Errorf("%d of %d client scans failed", failed, len(clients))
	}
	return reports, nil
}

// ScanClient loads a client's history ending at asOf and runs every engine.
func (s *Service) ScanClient(ctx context.Context, clientID string, asOf time.Time) (Report, error) {
	started := time.Now()
	report, err := s.scan(ctx, clientID, asOf)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.deps.Metrics.RecordScan(outcome, time.Since(started).Seconds())
	if err != nil {
		return Report{}, err
	}

	s.dispatch(ctx, report)
	return report, nil
}

func (s *Service) scan(ctx context.Context, clientID string, asOf time.Time) (Report, error) {
	if s.deps.Reader == nil {
		return Report{}, storage.ErrNotConfigured
	}

	from, to := s.historyRange(asOf)
	rows, err := s.deps.Reader.ListMetricRows(ctx, clientID, from, to)
	if err != nil {
		return Report{}, fmt.Errorf("load metrics for %s: %w", clientID, err)
	}

	all := s.usableSeries(clientID, storage.ToSeries(rows))

	detectInput := make([]campaign.MetricSeries, len(all))
	ruleInput := make([]campaign.MetricSeries, len(all))
	for i, series := range all {
		detectInput[i] = series.Window(asOf, s.lookbackDays)
		ruleInput[i] = series.Window(asOf, s.windowDays)
	}

	anomalies, err := s.detector.DetectBatch(ctx, detectInput, s.metrics, s.sensitivity, s.topN)
	if err != nil {
		return Report{}, fmt.Errorf("detect anomalies for %s: %w", clientID, err)
	}

	window := campaign.RollupDaily(clientID, ruleInput...)
	alerts := s.rules.Evaluate(window)

	conversions := window.Total(campaign.Conversions)
	cost := window.Total(campaign.Cost)

	diagnoses := make([]Diagnosis, 0, len(alerts))
	for _, a := range alerts {
		diagnoses = append(diagnoses, Diagnosis{
			AlertID:  a.ID,
			Analysis: s.rootcause.Analyze(a.Category, conversions, cost),
		})
	}

	return Report{
		RunID:            s.newRunID(),
		ClientID:         clientID,
		AsOf:             asOf.UTC().Truncate(24 * time.Hour),
		GeneratedAt:      s.now(),
		Campaigns:        len(all),
		TotalConversions: conversions,
		TotalCost:        cost,
		Anomalies:        anomalies,
		Alerts:           alerts,
		Diagnoses:        diagnoses,
	}, nil
}

// Diagnose runs the root-cause engine directly for an alert category.
func (s *Service) Diagnose(category string, totalConversions, totalCost float64) rootcause.Analysis {
	return s.rootcause.Analyze(category, totalConversions, totalCost)
}

// usableSeries drops series with duplicate dates instead of failing the scan.
func (s *Service) usableSeries(clientID string, series []campaign.MetricSeries) []campaign.MetricSeries {
	out := series[:0]
	for _, ser := range series {
		if err := ser.Validate(); err != nil {
			s.logger.Warn().Err(err).Str("client_id", clientID).Str("campaign_id", ser.EntityID).Msg("skipping malformed series")
			continue
		}
		out = append(out, ser)
	}
	return out
}

func (s *Service) historyRange(asOf time.Time) (time.Time, time.Time) {
	days := max(s.lookbackDays, s.windowDays)
	to := asOf.UTC().Truncate(24 * time.Hour)
	return to.AddDate(0, 0, -(days - 1)), to
}

// dispatch applies the optional side effects of a finished scan. Failures are
// logged; the scan result stands.
func (s *Service) dispatch(ctx context.Context, report Report) {
	for _, a := range report.Anomalies {
		s.deps.Metrics.RecordAnomaly(string(a.Metric), string(a.Severity))
	}

	for i, a := range report.Alerts {
		s.deps.Metrics.RecordAlert(a.ID)
		analysis := report.Diagnoses[i].Analysis

		if s.deps.Diagnoses != nil {
			rec := storage.DiagnosisRecord{
				RunID:         report.RunID,
				ClientID:      report.ClientID,
				AlertID:       a.ID,
				Severity:      string(a.Severity),
				Category:      a.Category,
				TopHypothesis: analysis.RecommendedAction.Hypothesis,
				CPA:           decimal.NewFromFloat(analysis.LeadQualityScore.CPA),
				Rating:        string(analysis.LeadQualityScore.Rating),
			}
			if _, err := s.deps.Diagnoses.InsertDiagnosis(ctx, rec); err != nil {
				s.logger.Error().Err(err).Str("client_id", report.ClientID).Str("alert_id", a.ID).Msg("failed to persist diagnosis")
			}
		}

		if s.shouldNotify(a) {
			note := alerting.Notification{
				RunID:    report.RunID,
				ClientID: report.ClientID,
				AsOf:     report.AsOf,
				Alert:    a,
				Analysis: analysis,
				Channels: s.channels,
			}
			if err := s.deps.Notifier.Notify(ctx, note); err != nil {
				s.deps.Metrics.RecordNotificationError()
				s.logger.Error().Err(err).Str("client_id", report.ClientID).Str("alert_id", a.ID).Msg("failed to dispatch alert")
			}
		}
	}

	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.Publish(ctx, report.ClientID, report); err != nil {
			s.logger.Error().Err(err).Str("client_id", report.ClientID).Msg("failed to publish report")
		}
	}

	s.logger.Info().
		Str("run_id", report.RunID).
		Str("client_id", report.ClientID).
		Int("campaigns", report.Campaigns).
		Int("anomalies", len(report.Anomalies)).
		Int("alerts", len(report.Alerts)).
		Msg("client scanned")
}

func (s *Service) shouldNotify(a rules.Alert) bool {
	return s.alertsOn && s.deps.Notifier != nil && a.Severity.Rank() >= s.minSeverity.Rank()
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
