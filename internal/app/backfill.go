package app

import (
	"context"
	"errors"
	"time"

	"ad-anomaly-alerts/internal/service"
)

// Backfill re-scans every day in [From, To). Dry runs skip persistence and
// notifications and only log what would have fired.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	start := alignForward(opts.From.UTC(), 24*time.Hour)
	end := opts.To.UTC()
	if !start.Before(end) {
		return errors.New("backfill range is empty, check --from/--to")
	}

	rt, err := a.openRuntime(ctx, !opts.DryRun)
	if err != nil {
		return err
	}
	defer rt.Close()
	if rt.store == nil {
		return errors.New("database.dsn not configured, cannot backfill")
	}

	deps := rt.serviceDeps(nil, nil)
	if opts.DryRun {
		a.Logger.Warn().Msg("backfill dry-run: diagnoses and reports will not be written")
		deps.Diagnoses = nil
		deps.Publisher = nil
	}
	cfg := *a.Config
	cfg.Alerting.Enabled = false
	svc := service.New(&cfg, deps, a.Logger)

	processed := 0
	failed := 0
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		reports, err := svc.ScanAll(ctx, day)
		if err != nil {
			failed++
			a.Logger.Error().Err(err).Time("as_of", day).Msg("backfill day failed")
			continue
		}
		alerts := 0
		for _, r := range reports {
			alerts += len(r.Alerts)
		}
		a.Logger.Info().Time("as_of", day).Int("clients", len(reports)).Int("alerts", alerts).Msg("backfilled day")
		processed++
	}

	a.Logger.Info().Int("processed", processed).Int("failed", failed).Msg("backfill finished")
	if failed > 0 {
		return errors.New("some days failed to backfill, check the logs")
	}
	return nil
}

func alignForward(t time.Time, interval time.Duration) time.Time {
	truncated := t.Truncate(interval)
	if truncated.Before(t) {
		return truncated.Add(interval)
	}
	return truncated
}
