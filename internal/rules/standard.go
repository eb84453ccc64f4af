package rules

import (
	"fmt"

	"ad-anomaly-alerts/internal/campaign"
)

// Business thresholds tuned for local-service advertisers.
const (
	impressionsDropPct    = -30.0
	clicksDropPct         = -25.0
	ctrFloorPct           = 2.0
	cpcSpikePct           = 50.0
	impressionShareMinPct = 65.0
	lostISBudgetMaxPct    = 10.0
	lostISRankMaxPct      = 20.0
)

func standardRules() []rule {
	return []rule{
		{id: IDConversionsZero, minDays: shortDays, eval: zeroConversions},
		{id: IDImpressionsDrop, minDays: longDays, eval: volumeDrop(campaign.Impressions, impressionsDropPct,
			"Impressions down sharply",
			"Check budgets, ad approvals and recent bid changes; impressions fell well below the weekly average.")},
		{id: IDClicksDrop, minDays: longDays, eval: volumeDrop(campaign.Clicks, clicksDropPct,
			"Clicks down sharply",
			"Review ad position and ad copy; clicks fell well below the weekly average.")},
		{id: IDCTRLow, minDays: longDays, eval: ctrLow},
		{id: IDCPCSpike, minDays: longDays, eval: cpcSpike},
		{id: IDImpressionShareLow, minDays: longDays, eval: shareBelow(campaign.ImpressionShare, impressionShareMinPct,
			"Impression share below target",
			"You are missing a large share of eligible searches. Check lost impression share to see whether budget or rank is the limit.")},
		{id: IDLostISBudget, minDays: longDays, eval: shareAbove(campaign.SearchLostISBudget, lostISBudgetMaxPct,
			"Losing impressions to budget",
			"Ads stop showing when the daily budget runs out. Raise the budget or narrow the ad schedule to peak hours.")},
		{id: IDLostISRank, minDays: longDays, eval: shareAbove(campaign.SearchLostISRank, lostISRankMaxPct,
			"Losing impressions to ad rank",
			"Competitors are outranking your ads. Raise bids on core keywords and improve ad relevance and landing pages.")},
	}
}

func zeroConversions(w window) *Alert {
	recent := w.last(shortDays)
	if recent.sum(campaign.Conversions) != 0 {
		return nil
	}
	return &Alert{
		Severity:       SeverityCritical,
		Title:          fmt.Sprintf("No conversions in the last %d days", shortDays),
		Metric:         campaign.Conversions,
		CurrentValue:   0,
		ExpectedValue:  ptr(w.last(longDays).avg(campaign.Conversions) * shortDays),
		Recommendation: "Test the lead form and call tracking immediately, then confirm the conversion tag is still firing.",
	}
}

func volumeDrop(m campaign.Metric, thresholdPct float64, title, recommendation string) func(window) *Alert {
	return func(w window) *Alert {
		current := w.last(shortDays).avg(m)
		expected := w.last(longDays).avg(m)
		if expected == 0 {
			return nil
		}
		change := percentChange(current, expected)
		if change >= thresholdPct {
			return nil
		}
		return &Alert{
			Severity:       SeverityWarning,
			Title:          title,
			Metric:         m,
			CurrentValue:   current,
			ExpectedValue:  ptr(expected),
			ChangePercent:  ptr(change),
			Recommendation: recommendation,
		}
	}
}

func ctrLow(w window) *Alert {
	week := w.last(longDays)
	impressions := week.sum(campaign.Impressions)
	if impressions == 0 {
		return nil
	}
	ctr := week.sum(campaign.Clicks) / impressions * 100
	if ctr >= ctrFloorPct {
		return nil
	}
	return &Alert{
		Severity:       SeverityWarning,
		Title:          "Click-through rate below 2%",
		Metric:         campaign.CTR,
		CurrentValue:   ctr,
		ExpectedValue:  ptr(ctrFloorPct),
		Recommendation: "Rewrite headlines around the service and location searched, add call and location extensions, and pause weak keywords.",
	}
}

func cpcSpike(w window) *Alert {
	current := w.last(shortDays).avgCPC()
	expected := w.last(longDays).avgCPC()
	if expected == 0 {
		return nil
	}
	change := percentChange(current, expected)
	if change <= cpcSpikePct {
		return nil
	}
	return &Alert{
		Severity:       SeverityWarning,
		Title:          "Cost per click spiking",
		Metric:         campaign.CPC,
		CurrentValue:   current,
		ExpectedValue:  ptr(expected),
		ChangePercent:  ptr(change),
		Recommendation: "Check auction insights for new competitors and review automated bidding targets; set bid caps if needed.",
	}
}

func shareBelow(m campaign.Metric, floor float64, title, recommendation string) func(window) *Alert {
	return func(w window) *Alert {
		avg, ok := w.last(longDays).avgReported(m)
		if !ok || avg >= floor {
			return nil
		}
		return &Alert{
			Severity:       SeverityWarning,
			Title:          title,
			Metric:         m,
			CurrentValue:   avg,
			ExpectedValue:  ptr(floor),
			Recommendation: recommendation,
		}
	}
}

func shareAbove(m campaign.Metric, ceiling float64, title, recommendation string) func(window) *Alert {
	return func(w window) *Alert {
		avg, ok := w.last(longDays).avgReported(m)
		if !ok || avg <= ceiling {
			return nil
		}
		return &Alert{
			Severity:       SeverityWarning,
			Title:          title,
			Metric:         m,
			CurrentValue:   avg,
			ExpectedValue:  ptr(ceiling),
			Recommendation: recommendation,
		}
	}
}
