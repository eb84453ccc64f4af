package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ad-anomaly-alerts/internal/app"
)

var (
	showClient string
	showLimit  int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent diagnoses",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			ClientID: showClient,
			Limit:    showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showClient, "client", "", "Only show diagnoses for this client")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of diagnoses to display")
}
