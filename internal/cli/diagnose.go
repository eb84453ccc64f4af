package cli

import (
	"github.com/spf13/cobra"

	"ad-anomaly-alerts/internal/app"
)

var (
	diagnoseConversions float64
	diagnoseCost        float64
	diagnoseJSON        bool
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <category>",
	Short: "Rank likely root causes for an alert category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Diagnose(app.DiagnoseOptions{
			Category:    args[0],
			Conversions: diagnoseConversions,
			Cost:        diagnoseCost,
			JSON:        diagnoseJSON,
		})
	},
}

func init() {
	diagnoseCmd.Flags().Float64Var(&diagnoseConversions, "conversions", 0, "Total conversions over the alert window")
	diagnoseCmd.Flags().Float64Var(&diagnoseCost, "cost", 0, "Total cost over the alert window")
	diagnoseCmd.Flags().BoolVar(&diagnoseJSON, "json", false, "Print the analysis as JSON")
}
