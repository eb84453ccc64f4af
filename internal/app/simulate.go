package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ad-anomaly-alerts/internal/alerting"
	"ad-anomaly-alerts/internal/rootcause"
	"ad-anomaly-alerts/internal/rules"
)

// SimulateOptions describe a synthetic alert.
type SimulateOptions struct {
	AlertID     string
	ClientID    string
	Conversions float64
	Cost        float64
}

// SimulateAlert pushes a synthetic alert through the configured notifier so
// operators can check channel wiring end to end.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is disabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	known := false
	for _, id := range rules.NewEngine().IDs() {
		if id == opts.AlertID {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown alert id %q", opts.AlertID)
	}

	category := rules.CategoryFor(opts.AlertID)
	note := alerting.Notification{
		RunID:    uuid.NewString(),
		ClientID: opts.ClientID,
		AsOf:     time.Now().UTC().Truncate(24 * time.Hour),
		Alert: rules.Alert{
			ID:             opts.AlertID,
			Category:       category,
			Severity:       rules.SeverityWarning,
			Title:          "Simulated alert",
			Recommendation: "No action needed; this is a delivery test.",
		},
		Analysis: rootcause.NewEngine().Analyze(category, opts.Conversions, opts.Cost),
		Channels: a.Config.Alerting.Channels,
	}
	return notifier.Notify(ctx, note)
}
