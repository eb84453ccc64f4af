package app

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"ad-anomaly-alerts/internal/rootcause"
)

// Diagnose prints the root-cause analysis for an alert category.
func (a *App) Diagnose(opts DiagnoseOptions) error {
	if opts.Conversions < 0 || opts.Cost < 0 {
		return fmt.Errorf("--conversions and --cost must not be negative")
	}

	analysis := rootcause.NewEngine().Analyze(opts.Category, opts.Conversions, opts.Cost)
	if !analysis.HasDiagnosis() {
		a.Logger.Warn().Str("category", opts.Category).Msg("unknown alert category")
	}

	if opts.JSON {
		enc := json.NewEncoder(a.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	}
	writeAnalysis(a.Out, analysis)
	return nil
}

func writeAnalysis(out io.Writer, analysis rootcause.Analysis) {
	score := analysis.LeadQualityScore
	fmt.Fprintf(out, "Category: %s\n", analysis.Category)
	fmt.Fprintf(out, "Lead quality: %s (CPA $%.2f, %s)\n", score.Label, score.CPA, score.Threshold)

	if len(analysis.Hypotheses) > 0 {
		writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "Probability\tConfidence\tHypothesis")
		for _, h := range analysis.Hypotheses {
			fmt.Fprintf(writer, "%d%%\t%s\t%s\n", h.Probability, h.Confidence, h.Cause)
		}
		writer.Flush()
	}

	action := analysis.RecommendedAction
	fmt.Fprintf(out, "Recommended: %s\n", action.Hypothesis)
	if action.Reason != "" {
		fmt.Fprintf(out, "Why: %s\n", action.Reason)
	}
	for _, step := range action.ActionSteps {
		fmt.Fprintf(out, "  %d. [%s] %s\n", step.Step, step.Priority, step.Action)
	}
}
