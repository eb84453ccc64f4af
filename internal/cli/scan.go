package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ad-anomaly-alerts/internal/app"
)

var (
	scanClient string
	scanAsOf   string
	scanJSON   bool
	scanNotify bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan one client, or all clients, and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ScanOptions{
			ClientID: scanClient,
			JSON:     scanJSON,
			Notify:   scanNotify,
		}

		if scanAsOf != "" {
			asOf, err := parseDay(scanAsOf)
			if err != nil {
				return fmt.Errorf("invalid --as-of value: %w", err)
			}
			opts.AsOf = asOf
		}

		return getApp().Scan(cmd.Context(), opts)
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanClient, "client", "", "Client to scan (defaults to every client with recent data)")
	scanCmd.Flags().StringVar(&scanAsOf, "as-of", "", "Last day to include (YYYY-MM-DD, defaults to yesterday UTC)")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print the report as JSON")
	scanCmd.Flags().BoolVar(&scanNotify, "notify", false, "Send alerts through the configured channels")
}

// parseDay accepts a bare date or a full RFC3339 timestamp.
func parseDay(v string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
