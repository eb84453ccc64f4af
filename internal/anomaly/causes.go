package anomaly

import "ad-anomaly-alerts/internal/campaign"

// Cause is the canned explanation attached to a detection.
type Cause struct {
	LikelyCause     string
	SuggestedAction string
}

type causeKey struct {
	metric campaign.Metric
	kind   Type
}

var causeTable = map[causeKey]Cause{
	{campaign.Clicks, TypeSpike}: {
		LikelyCause:     "Sudden click surge, often a competitor pausing, a viral local event, or invalid click activity",
		SuggestedAction: "Check search terms and click geography; enable invalid click protection if traffic looks non-human",
	},
	{campaign.Clicks, TypeDrop}: {
		LikelyCause:     "Ads stopped serving or lost auction position",
		SuggestedAction: "Verify ads are approved and active, then review bids and daily budget",
	},
	{campaign.Clicks, TypeDrift}: {
		LikelyCause:     "Gradual shift in click volume from seasonality or creeping competition",
		SuggestedAction: "Compare against the same period last year and adjust bids to hold position",
	},
	{campaign.Impressions, TypeSpike}: {
		LikelyCause:     "Broadened match types or a new keyword opened high-volume queries",
		SuggestedAction: "Review recent keyword and match-type changes; add negatives for irrelevant queries",
	},
	{campaign.Impressions, TypeDrop}: {
		LikelyCause:     "Budget exhaustion, disapproved ads, or a bidding change limiting reach",
		SuggestedAction: "Check budget pacing, ad approval status and the change history for bid edits",
	},
	{campaign.Impressions, TypeDrift}: {
		LikelyCause:     "Steady loss of search visibility",
		SuggestedAction: "Audit impression share lost to rank and budget and rebalance spend",
	},
	{campaign.Cost, TypeSpike}: {
		LikelyCause:     "Spend jumped, usually from a budget increase, automated bidding, or expensive new queries",
		SuggestedAction: "Review the change log and search terms; cap bids on the most expensive keywords",
	},
	{campaign.Cost, TypeDrop}: {
		LikelyCause:     "Spend collapsed, typically a billing problem, paused campaigns, or ad disapprovals",
		SuggestedAction: "Confirm billing is current and campaigns are enabled",
	},
	{campaign.Cost, TypeDrift}: {
		LikelyCause:     "Costs creeping upward as auction pressure rises",
		SuggestedAction: "Track CPC trend by keyword and tighten targeting on low-converting terms",
	},
	{campaign.Conversions, TypeSpike}: {
		LikelyCause:     "Conversion surge, possibly a promotion or duplicate conversion tracking",
		SuggestedAction: "Validate conversion tags fire once per lead before scaling budget",
	},
	{campaign.Conversions, TypeDrop}: {
		LikelyCause:     "Conversion tracking broke or the landing page stopped capturing leads",
		SuggestedAction: "Test the lead form and phone tracking end to end; check the tag diagnostics",
	},
	{campaign.Conversions, TypeDrift}: {
		LikelyCause:     "Lead volume slowly declining",
		SuggestedAction: "Review landing page speed, offer and call handling for gradual degradation",
	},
	{campaign.CTR, TypeDrop}: {
		LikelyCause:     "Ad copy lost relevance or competitors improved their ads",
		SuggestedAction: "Refresh headlines and add extensions; test new ad variations",
	},
	{campaign.CTR, TypeSpike}: {
		LikelyCause:     "New ad copy or extensions lifted engagement",
		SuggestedAction: "Identify the winning variation and roll it out to similar ad groups",
	},
	{campaign.CPC, TypeSpike}: {
		LikelyCause:     "Auction competition intensified or automated bidding raised bids",
		SuggestedAction: "Review auction insights and set bid caps on the affected keywords",
	},
	{campaign.CPC, TypeDrop}: {
		LikelyCause:     "Traffic shifted to cheaper, possibly lower-intent queries",
		SuggestedAction: "Check search terms for relevance and lead quality",
	},
	{campaign.QualityScore, TypeDrop}: {
		LikelyCause:     "Landing page experience or expected CTR degraded",
		SuggestedAction: "Align ad copy with keywords and improve landing page relevance and speed",
	},
	{campaign.ImpressionShare, TypeDrop}: {
		LikelyCause:     "Lost auctions to budget limits or low ad rank",
		SuggestedAction: "Split lost impression share by budget and rank, then raise the limiting one",
	},
	{campaign.SearchLostISBudget, TypeSpike}: {
		LikelyCause:     "Daily budget is running out before the day ends",
		SuggestedAction: "Raise the daily budget or narrow the schedule to peak hours",
	},
	{campaign.SearchLostISRank, TypeSpike}: {
		LikelyCause:     "Ad rank fell behind competitors",
		SuggestedAction: "Increase bids on core keywords and improve quality score components",
	},
}

var fallbackCauses = map[Type]Cause{
	TypeSpike: {
		LikelyCause:     "Unusual increase compared with recent history",
		SuggestedAction: "Review recent account changes and external events for the affected day",
	},
	TypeDrop: {
		LikelyCause:     "Unusual decrease compared with recent history",
		SuggestedAction: "Check campaign status, budgets and tracking for the affected day",
	},
	TypeDrift: {
		LikelyCause:     "Sustained shift away from the historical level",
		SuggestedAction: "Investigate the trend over the full lookback window before acting",
	},
	TypePatternBreak: {
		LikelyCause:     "Metric broke from its usual pattern",
		SuggestedAction: "Monitor for another day and compare with related metrics",
	},
}

func lookupCause(metric campaign.Metric, kind Type) Cause {
	if c, ok := causeTable[causeKey{metric: metric, kind: kind}]; ok {
		return c
	}
	return fallbackCauses[kind]
}
