package rootcause

import (
	"errors"
	"fmt"
)

// Alert categories with built-in hypotheses.
const (
	CategoryZeroConversions    = "zero-conversions"
	CategoryImpressionsDrop    = "impressions-drop"
	CategoryClicksDrop         = "clicks-drop"
	CategoryCTRLow             = "ctr-low"
	CategoryCPCSpike           = "cpc-spike"
	CategoryImpressionShareLow = "impression-share-low"
	CategoryLostISBudget       = "lost-is-budget"
	CategoryLostISRank         = "lost-is-rank"
)

// Categories lists every built-in category.
var Categories = []string{
	CategoryZeroConversions,
	CategoryImpressionsDrop,
	CategoryClicksDrop,
	CategoryCTRLow,
	CategoryCPCSpike,
	CategoryImpressionShareLow,
	CategoryLostISBudget,
	CategoryLostISRank,
}

const maxHypothesesPerCategory = 3

// KnowledgeBase maps an alert category to its hypotheses in authored order.
type KnowledgeBase map[string][]Hypothesis

// lookup returns a copy of the category's hypotheses so callers cannot alter
// the table.
func (kb KnowledgeBase) lookup(category string) []Hypothesis {
	src := kb[category]
	out := make([]Hypothesis, len(src))
	for i, h := range src {
		h.Evidence = append([]string(nil), h.Evidence...)
		h.ActionSteps = append([]ActionStep(nil), h.ActionSteps...)
		if h.EstimatedImpact.ImpactValue != nil {
			v := *h.EstimatedImpact.ImpactValue
			h.EstimatedImpact.ImpactValue = &v
		}
		out[i] = h
	}
	return out
}

// Validate checks the table for authoring mistakes. Every category in required
// must be present.
func (kb KnowledgeBase) Validate(required ...string) error {
	var errs []error
	for _, c := range required {
		if _, ok := kb[c]; !ok {
			errs = append(errs, fmt.Errorf("category %q missing", c))
		}
	}
	for c, hs := range kb {
		if len(hs) == 0 || len(hs) > maxHypothesesPerCategory {
			errs = append(errs, fmt.Errorf("category %q: want 1-%d hypotheses, got %d", c, maxHypothesesPerCategory, len(hs)))
		}
		for _, h := range hs {
			if err := validateHypothesis(h); err != nil {
				errs = append(errs, fmt.Errorf("category %q: %w", c, err))
			}
		}
	}
	return errors.Join(errs...)
}

func validateHypothesis(h Hypothesis) error {
	if h.Cause == "" {
		return errors.New("hypothesis without cause")
	}
	if h.Probability < 0 || h.Probability > 100 {
		return fmt.Errorf("%q: probability %d outside [0,100]", h.Cause, h.Probability)
	}
	switch h.Confidence {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
	default:
		return fmt.Errorf("%q: unknown confidence %q", h.Cause, h.Confidence)
	}
	if len(h.ActionSteps) == 0 {
		return fmt.Errorf("%q: no action steps", h.Cause)
	}
	for i, s := range h.ActionSteps {
		if s.Step != i+1 {
			return fmt.Errorf("%q: step %d has ordinal %d", h.Cause, i+1, s.Step)
		}
	}
	return nil
}

func impact(v float64) *float64 {
	return &v
}

// DefaultKnowledgeBase returns the built-in hypotheses for local-service
// advertisers.
func DefaultKnowledgeBase() KnowledgeBase {
	return KnowledgeBase{
		CategoryZeroConversions: {
			{
				Cause:       "Landing page or lead form is broken",
				Probability: 55,
				Confidence:  ConfidenceMedium,
				Evidence: []string{
					"Clicks continued while conversions stopped",
					"Form submissions and calls dropped to zero on the same day",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Submit a test lead through every landing page form", Priority: PriorityHigh, EstimatedMinutes: 10},
					{Step: 2, Action: "Check the site for errors, slow loads, or a recent deploy", Priority: PriorityHigh, EstimatedMinutes: 20},
					{Step: 3, Action: "Call the tracking number and confirm it rings through", Priority: PriorityMedium, EstimatedMinutes: 5},
				},
				EstimatedTimelineHours: 2,
				EstimatedImpact:        Impact{Metric: "conversions", ExpectedImprovement: "Restore lead flow to the prior daily average", ImpactValue: impact(100)},
			},
			{
				Cause:       "Conversion tracking stopped recording",
				Probability: 45,
				Confidence:  ConfidenceHigh,
				Evidence: []string{
					"Conversions fell to zero abruptly rather than trending down",
					"The client still reports receiving calls or leads",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Open tag diagnostics and confirm the conversion tag is firing", Priority: PriorityHigh, EstimatedMinutes: 15},
					{Step: 2, Action: "Verify the conversion action is still set as primary", Priority: PriorityMedium, EstimatedMinutes: 5},
					{Step: 3, Action: "Reinstall the tag on the thank-you page if it is missing", Priority: PriorityHigh, EstimatedMinutes: 30},
				},
				EstimatedTimelineHours: 4,
				EstimatedImpact:        Impact{Metric: "conversions", ExpectedImprovement: "Reported conversions match real leads again"},
			},
			{
				Cause:       "Ads stopped serving",
				Probability: 25,
				Confidence:  ConfidenceLow,
				Evidence: []string{
					"Impressions and clicks also fell",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Confirm campaigns are enabled and billing is current", Priority: PriorityHigh, EstimatedMinutes: 5},
					{Step: 2, Action: "Check for disapproved ads or policy limits", Priority: PriorityMedium, EstimatedMinutes: 10},
				},
				EstimatedTimelineHours: 1,
				EstimatedImpact:        Impact{Metric: "impressions", ExpectedImprovement: "Ads resume serving within hours"},
			},
		},
		CategoryImpressionsDrop: {
			{
				Cause:       "Budget is limiting delivery",
				Probability: 60,
				Confidence:  ConfidenceHigh,
				Evidence: []string{
					"Impression share lost to budget increased",
					"Spend hits the daily cap early in the day",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Compare daily spend against the daily budget", Priority: PriorityHigh, EstimatedMinutes: 10},
					{Step: 2, Action: "Raise the budget on the best-converting campaigns", Priority: PriorityHigh, EstimatedMinutes: 10},
					{Step: 3, Action: "Shift budget away from low-performing campaigns", Priority: PriorityMedium, EstimatedMinutes: 20},
				},
				EstimatedTimelineHours: 24,
				EstimatedImpact:        Impact{Metric: "impressions", ExpectedImprovement: "Recover to the weekly average", ImpactValue: impact(30)},
			},
			{
				Cause:       "Ads or keywords were disapproved",
				Probability: 30,
				Confidence:  ConfidenceMedium,
				Evidence: []string{
					"Drop started on a single day",
					"Policy notifications in the account",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Filter ads by status and review disapprovals", Priority: PriorityHigh, EstimatedMinutes: 10},
					{Step: 2, Action: "Edit and resubmit affected ads", Priority: PriorityHigh, EstimatedMinutes: 30},
				},
				EstimatedTimelineHours: 48,
				EstimatedImpact:        Impact{Metric: "impressions", ExpectedImprovement: "Restore serving for disapproved ads"},
			},
			{
				Cause:       "Bid strategy or targeting change",
				Probability: 25,
				Confidence:  ConfidenceLow,
				Evidence: []string{
					"Recent entries in the change history",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Review the change history for the last 14 days", Priority: PriorityMedium, EstimatedMinutes: 15},
					{Step: 2, Action: "Revert location or bid changes that coincide with the drop", Priority: PriorityMedium, EstimatedMinutes: 15},
				},
				EstimatedTimelineHours: 72,
				EstimatedImpact:        Impact{Metric: "impressions", ExpectedImprovement: "Return to pre-change reach"},
			},
		},
		CategoryClicksDrop: {
			{
				Cause:       "Ads slipped to lower positions",
				Probability: 50,
				Confidence:  ConfidenceMedium,
				Evidence: []string{
					"Top-of-page rate declined",
					"Impression share lost to rank rose",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Check auction insights for new competitors", Priority: PriorityHigh, EstimatedMinutes: 15},
					{Step: 2, Action: "Raise bids on top converting keywords", Priority: PriorityHigh, EstimatedMinutes: 20},
				},
				EstimatedTimelineHours: 48,
				EstimatedImpact:        Impact{Metric: "clicks", ExpectedImprovement: "Regain prior click volume", ImpactValue: impact(25)},
			},
			{
				Cause:       "Ad copy has gone stale",
				Probability: 35,
				Confidence:  ConfidenceMedium,
				Evidence: []string{
					"CTR has been sliding for several weeks",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Write two new responsive search ad variants", Priority: PriorityMedium, EstimatedMinutes: 45},
					{Step: 2, Action: "Add seasonal offers or urgency to headlines", Priority: PriorityLow, EstimatedMinutes: 20},
				},
				EstimatedTimelineHours: 168,
				EstimatedImpact:        Impact{Metric: "ctr", ExpectedImprovement: "Lift CTR by refreshing creative"},
			},
			{
				Cause:       "Seasonal drop in local demand",
				Probability: 20,
				Confidence:  ConfidenceLow,
				Evidence: []string{
					"Same period last year showed a similar dip",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Compare with the same weeks last year", Priority: PriorityLow, EstimatedMinutes: 15},
				},
				EstimatedTimelineHours: 336,
				EstimatedImpact:        Impact{Metric: "clicks", ExpectedImprovement: "Recovers with the season"},
			},
		},
		CategoryCTRLow: {
			{
				Cause:       "Ad copy does not match search intent",
				Probability: 65,
				Confidence:  ConfidenceHigh,
				Evidence: []string{
					"Headlines omit the service and city being searched",
					"Few ad extensions are active",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Put the core service and city in headline one", Priority: PriorityHigh, EstimatedMinutes: 30},
					{Step: 2, Action: "Enable call, location and sitelink extensions", Priority: PriorityMedium, EstimatedMinutes: 20},
					{Step: 3, Action: "Pause ads with CTR below half the ad group average", Priority: PriorityLow, EstimatedMinutes: 10},
				},
				EstimatedTimelineHours: 72,
				EstimatedImpact:        Impact{Metric: "ctr", ExpectedImprovement: "Raise CTR above 2%", ImpactValue: impact(2)},
			},
			{
				Cause:       "Broad match is pulling irrelevant searches",
				Probability: 45,
				Confidence:  ConfidenceMedium,
				Evidence: []string{
					"Search terms report shows unrelated queries",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Review the search terms report for the last 30 days", Priority: PriorityHigh, EstimatedMinutes: 30},
					{Step: 2, Action: "Add irrelevant terms as negative keywords", Priority: PriorityHigh, EstimatedMinutes: 20},
				},
				EstimatedTimelineHours: 48,
				EstimatedImpact:        Impact{Metric: "ctr", ExpectedImprovement: "Fewer wasted impressions"},
			},
		},
		CategoryCPCSpike: {
			{
				Cause:       "New competitor entered the auction",
				Probability: 55,
				Confidence:  ConfidenceMedium,
				Evidence: []string{
					"Auction insights show a new domain with high overlap",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Open auction insights and identify new entrants", Priority: PriorityHigh, EstimatedMinutes: 15},
					{Step: 2, Action: "Focus budget on keywords with the best conversion rate", Priority: PriorityMedium, EstimatedMinutes: 30},
				},
				EstimatedTimelineHours: 72,
				EstimatedImpact:        Impact{Metric: "cpc", ExpectedImprovement: "Stabilise CPC near the weekly average"},
			},
			{
				Cause:       "Automated bidding raised bids",
				Probability: 40,
				Confidence:  ConfidenceHigh,
				Evidence: []string{
					"Bid strategy is in a learning period",
					"Target CPA or ROAS was changed recently",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Check bid strategy status and recent target changes", Priority: PriorityHigh, EstimatedMinutes: 10},
					{Step: 2, Action: "Set a maximum CPC bid limit", Priority: PriorityHigh, EstimatedMinutes: 10},
					{Step: 3, Action: "Revert aggressive target changes", Priority: PriorityMedium, EstimatedMinutes: 10},
				},
				EstimatedTimelineHours: 24,
				EstimatedImpact:        Impact{Metric: "cpc", ExpectedImprovement: "Bring CPC back under control", ImpactValue: impact(-30)},
			},
		},
		CategoryImpressionShareLow: {
			{
				Cause:       "Budget caps are limiting reach",
				Probability: 50,
				Confidence:  ConfidenceHigh,
				Evidence: []string{
					"Lost impression share (budget) is the larger loss component",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Raise daily budgets on campaigns marked limited by budget", Priority: PriorityHigh, EstimatedMinutes: 10},
					{Step: 2, Action: "Tighten geographic targeting to the core service area", Priority: PriorityMedium, EstimatedMinutes: 20},
				},
				EstimatedTimelineHours: 24,
				EstimatedImpact:        Impact{Metric: "impression_share", ExpectedImprovement: "Lift impression share toward 65%", ImpactValue: impact(15)},
			},
			{
				Cause:       "Ad rank is too low",
				Probability: 45,
				Confidence:  ConfidenceMedium,
				Evidence: []string{
					"Lost impression share (rank) is high",
					"Quality scores below 5 on core keywords",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Raise bids on keywords with low impression share", Priority: PriorityHigh, EstimatedMinutes: 20},
					{Step: 2, Action: "Improve landing page relevance for low quality score keywords", Priority: PriorityMedium, EstimatedMinutes: 60},
				},
				EstimatedTimelineHours: 72,
				EstimatedImpact:        Impact{Metric: "impression_share", ExpectedImprovement: "Win more auctions on core keywords"},
			},
		},
		CategoryLostISBudget: {
			{
				Cause:       "Daily budget runs out before the day ends",
				Probability: 90,
				Confidence:  ConfidenceHigh,
				Evidence: []string{
					"Search lost impression share (budget) above 10%",
					"Campaign status shows limited by budget",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Increase the daily budget by the lost share percentage", Priority: PriorityHigh, EstimatedMinutes: 5},
					{Step: 2, Action: "Limit the ad schedule to business hours if budget cannot grow", Priority: PriorityMedium, EstimatedMinutes: 15},
					{Step: 3, Action: "Pause keywords with spend and no conversions", Priority: PriorityLow, EstimatedMinutes: 20},
				},
				EstimatedTimelineHours: 24,
				EstimatedImpact:        Impact{Metric: "search_lost_is_budget", ExpectedImprovement: "Bring budget loss under 10%", ImpactValue: impact(-10)},
			},
		},
		CategoryLostISRank: {
			{
				Cause:       "Low quality scores are dragging down ad rank",
				Probability: 60,
				Confidence:  ConfidenceHigh,
				Evidence: []string{
					"Quality scores on core keywords are below 6",
					"Expected CTR marked below average",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "List keywords with quality score below 6", Priority: PriorityHigh, EstimatedMinutes: 10},
					{Step: 2, Action: "Tighten ad groups so ads repeat the keyword", Priority: PriorityMedium, EstimatedMinutes: 45},
					{Step: 3, Action: "Improve landing page speed and relevance", Priority: PriorityMedium, EstimatedMinutes: 120},
				},
				EstimatedTimelineHours: 168,
				EstimatedImpact:        Impact{Metric: "quality_score", ExpectedImprovement: "Raise average quality score by 1-2 points"},
			},
			{
				Cause:       "Bids are below competitors",
				Probability: 50,
				Confidence:  ConfidenceMedium,
				Evidence: []string{
					"Outranking share in auction insights is falling",
				},
				ActionSteps: []ActionStep{
					{Step: 1, Action: "Raise bids 10-20% on top converting keywords", Priority: PriorityHigh, EstimatedMinutes: 15},
					{Step: 2, Action: "Recheck lost impression share (rank) after 3 days", Priority: PriorityLow, EstimatedMinutes: 5},
				},
				EstimatedTimelineHours: 72,
				EstimatedImpact:        Impact{Metric: "search_lost_is_rank", ExpectedImprovement: "Bring rank loss under 20%", ImpactValue: impact(-10)},
			},
		},
	}
}
