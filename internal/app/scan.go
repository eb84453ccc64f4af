package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"ad-anomaly-alerts/internal/service"
)

// Scan runs the engines once for one client, or every client when ClientID is empty.
func (a *App) Scan(ctx context.Context, opts ScanOptions) error {
	if err := a.checkKnowledgeBase(); err != nil {
		return err
	}

	rt, err := a.openRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close()
	if rt.store == nil {
		return errors.New("database not configured; cannot scan")
	}

	deps := rt.serviceDeps(nil, nil)
	if opts.Notify {
		if n := a.newNotifier(); n != nil {
			deps.Notifier = n
		}
	}
	cfg := *a.Config
	cfg.Alerting.Enabled = opts.Notify
	svc := service.New(&cfg, deps, a.Logger)

	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC().AddDate(0, 0, -1)
	}

	var reports []service.Report
	var scanErr error
	if opts.ClientID != "" {
		report, err := svc.ScanClient(ctx, opts.ClientID, asOf)
		if err != nil {
			return err
		}
		reports = []service.Report{report}
	} else {
		reports, scanErr = svc.ScanAll(ctx, asOf)
		if reports == nil && scanErr != nil {
			return scanErr
		}
	}

	if opts.JSON {
		if err := writeReportsJSON(a.Out, reports); err != nil {
			return err
		}
	} else {
		writeReportsTable(a.Out, reports)
	}
	return scanErr
}

func writeReportsJSON(w io.Writer, reports []service.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(reports) == 1 {
		return enc.Encode(reports[0])
	}
	return enc.Encode(reports)
}

func writeReportsTable(out io.Writer, reports []service.Report) {
	if len(reports) == 0 {
		fmt.Fprintln(out, "no clients scanned")
		return
	}

	for i, report := range reports {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "Client %s as of %s: %d campaigns, %d anomalies, %d alerts\n",
			report.ClientID, report.AsOf.Format(time.DateOnly), report.Campaigns, len(report.Anomalies), len(report.Alerts))

		if len(report.Anomalies) > 0 {
			writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "Campaign\tMetric\tType\tSeverity\tObserved\tExpected\tDeviation%\tConfidence")
			for _, r := range report.Anomalies {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%.1f\t%.2f\n",
					r.EntityID, r.Metric, r.Type, r.Severity,
					r.ObservedValue, r.ExpectedValue, r.DeviationPercent, r.Confidence)
			}
			writer.Flush()
		}

		if len(report.Alerts) > 0 {
			writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "Alert\tSeverity\tTitle\tTop hypothesis\tCPA")
			for j, alert := range report.Alerts {
				analysis := report.Diagnoses[j].Analysis
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%.2f (%s)\n",
					alert.ID, alert.Severity, sanitizeInline(alert.Title),
					analysis.RecommendedAction.Hypothesis,
					analysis.LeadQualityScore.CPA, analysis.LeadQualityScore.Rating)
			}
			writer.Flush()
		}
	}
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
