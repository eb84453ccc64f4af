// Package rootcause turns an alert category into ranked causal hypotheses, a
// recommended action and a lead quality rating.
package rootcause

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// NoHypothesis is the recommended action used when a category has no entry.
const NoHypothesis = "No hypothesis available"

const (
	greenCeiling  = 80.0
	yellowCeiling = 120.0
	highWeight    = 1.5
)

// Engine ranks hypotheses from a fixed knowledge base.
type Engine struct {
	kb KnowledgeBase
}

// NewEngine returns an Engine over the built-in knowledge base.
func NewEngine() *Engine {
	return &Engine{kb: DefaultKnowledgeBase()}
}

// NewEngineWithKnowledgeBase returns an Engine over kb.
func NewEngineWithKnowledgeBase(kb KnowledgeBase) *Engine {
	return &Engine{kb: kb}
}

// Known reports whether category has hypotheses.
func (e *Engine) Known(category string) bool {
	return len(e.kb[category]) > 0
}

// Analyze diagnoses category using the period's total conversions and cost.
// An unknown category yields no hypotheses and a NoHypothesis action.
func (e *Engine) Analyze(category string, totalConversions, totalCost float64) Analysis {
	hypotheses := e.kb.lookup(category)
	sort.SliceStable(hypotheses, func(i, j int) bool {
		return hypotheses[i].Probability > hypotheses[j].Probability
	})

	return Analysis{
		Category:          category,
		Hypotheses:        hypotheses,
		LeadQualityScore:  ScoreLeadQuality(CPA(totalConversions, totalCost)),
		RecommendedAction: recommend(hypotheses),
	}
}

// CPA is cost per conversion rounded to cents, or 0 without conversions.
func CPA(totalConversions, totalCost float64) float64 {
	if totalConversions <= 0 {
		return 0
	}
	cpa := decimal.NewFromFloat(totalCost).
		Div(decimal.NewFromFloat(totalConversions)).
		Round(2)
	return cpa.InexactFloat64()
}

// ScoreLeadQuality buckets a CPA. The red threshold copy reads "$150+" while
// the cutoff is 120; the number is authoritative.
func ScoreLeadQuality(cpa float64) LeadQualityScore {
	switch {
	case cpa < greenCeiling:
		return LeadQualityScore{CPA: cpa, Rating: RatingGreen, Label: "Good Leads", Threshold: "< $80"}
	case cpa <= yellowCeiling:
		return LeadQualityScore{CPA: cpa, Rating: RatingYellow, Label: "Acceptable Leads", Threshold: "$80 - $120"}
	default:
		return LeadQualityScore{CPA: cpa, Rating: RatingRed, Label: "Expensive Leads", Threshold: "$150+"}
	}
}

// top picks the hypothesis with the largest probability, weighting
// high-confidence ones by 1.5. Earlier entries win ties.
func top(hypotheses []Hypothesis) (Hypothesis, bool) {
	if len(hypotheses) == 0 {
		return Hypothesis{}, false
	}
	best, bestScore := hypotheses[0], weighted(hypotheses[0])
	for _, h := range hypotheses[1:] {
		if s := weighted(h); s > bestScore {
			best, bestScore = h, s
		}
	}
	return best, true
}

func weighted(h Hypothesis) float64 {
	if h.Confidence == ConfidenceHigh {
		return float64(h.Probability) * highWeight
	}
	return float64(h.Probability)
}

func recommend(hypotheses []Hypothesis) RecommendedAction {
	h, ok := top(hypotheses)
	if !ok {
		return RecommendedAction{
			Hypothesis:  NoHypothesis,
			Reason:      "No known causes are recorded for this alert; review the account manually.",
			ActionSteps: []ActionStep{},
		}
	}
	return RecommendedAction{
		Hypothesis:  h.Cause,
		Reason:      fmt.Sprintf("Most likely cause (%d%% probability) based on the alert pattern and account history.", h.Probability),
		ActionSteps: h.ActionSteps,
	}
}
