package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"ad-anomaly-alerts/internal/app"
)

var (
	simulateClient      string
	simulateConversions float64
	simulateCost        float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert <alert-id>",
	Short: "Send a synthetic alert through the configured channels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateConversions < 0 || simulateCost < 0 {
			return errors.New("--conversions and --cost must not be negative")
		}
		return getApp().SimulateAlert(cmd.Context(), app.SimulateOptions{
			AlertID:     args[0],
			ClientID:    simulateClient,
			Conversions: simulateConversions,
			Cost:        simulateCost,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateClient, "client", "test-client", "Client name shown in the message")
	simulateCmd.Flags().Float64Var(&simulateConversions, "conversions", 10, "Conversions used for the CPA line")
	simulateCmd.Flags().Float64Var(&simulateCost, "cost", 500, "Cost used for the CPA line")
}
