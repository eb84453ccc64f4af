package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"ad-anomaly-alerts/internal/storage"
)

// Show prints recent diagnoses.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show diagnoses")
	}
	if closeStore != nil {
		defer closeStore()
	}

	recs, err := store.ListRecentDiagnoses(ctx, opts.ClientID, opts.Limit)
	if err != nil {
		return err
	}
	writeDiagnosesTable(a.Out, recs)
	return nil
}

func writeDiagnosesTable(out io.Writer, recs []storage.DiagnosisRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(out, "no diagnoses found")
		return
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tClient\tAlert\tSeverity\tTop hypothesis\tCPA\tRating")

	for _, rec := range recs {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.CreatedAt.UTC().Format(time.RFC3339),
			rec.ClientID,
			rec.AlertID,
			rec.Severity,
			sanitizeInline(rec.TopHypothesis),
			rec.CPA.StringFixed(2),
			rec.Rating,
		)
	}

	writer.Flush()
}
