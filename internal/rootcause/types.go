package rootcause

// Confidence is a qualitative certainty attached to a hypothesis.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Priority of a remediation step, independent of its order.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rating buckets the cost per acquisition.
type Rating string

const (
	RatingGreen  Rating = "green"
	RatingYellow Rating = "yellow"
	RatingRed    Rating = "red"
)

// ActionStep is one ordered remediation step.
type ActionStep struct {
	Step             int      `json:"step"`
	Action           string   `json:"action"`
	Priority         Priority `json:"priority"`
	EstimatedMinutes int      `json:"estimated_minutes"`
}

// Impact estimates what fixing a cause should change.
type Impact struct {
	Metric              string   `json:"metric"`
	ExpectedImprovement string   `json:"expected_improvement"`
	ImpactValue         *float64 `json:"impact_value,omitempty"`
}

// Hypothesis is one candidate root cause.
type Hypothesis struct {
	Cause                  string       `json:"cause"`
	Probability            int          `json:"probability"`
	Confidence             Confidence   `json:"confidence"`
	Evidence               []string     `json:"evidence"`
	ActionSteps            []ActionStep `json:"action_steps"`
	EstimatedTimelineHours int          `json:"estimated_timeline_hours"`
	EstimatedImpact        Impact       `json:"estimated_impact"`
}

// LeadQualityScore rates lead cost from a single CPA figure.
type LeadQualityScore struct {
	CPA       float64 `json:"cpa"`
	Rating    Rating  `json:"rating"`
	Label     string  `json:"label"`
	Threshold string  `json:"threshold"`
}

// RecommendedAction restates the top hypothesis as something to do.
type RecommendedAction struct {
	Hypothesis  string       `json:"hypothesis"`
	Reason      string       `json:"reason"`
	ActionSteps []ActionStep `json:"action_steps"`
}

// Analysis is the ranked diagnosis for one alert category.
type Analysis struct {
	Category          string            `json:"category"`
	Hypotheses        []Hypothesis      `json:"hypotheses"`
	LeadQualityScore  LeadQualityScore  `json:"lead_quality_score"`
	RecommendedAction RecommendedAction `json:"recommended_action"`
}

// HasDiagnosis reports whether any hypothesis matched the category.
func (a Analysis) HasDiagnosis() bool {
	return len(a.Hypotheses) > 0
}
