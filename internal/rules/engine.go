// Package rules evaluates fixed business thresholds over a client's recent
// daily aggregates, comparing the last three days with the last seven.
package rules

import (
	"sort"
	"time"

	"ad-anomaly-alerts/internal/campaign"
)

// DefaultWindowDays is the history a caller should supply to Evaluate.
const DefaultWindowDays = 14

const (
	shortDays = 3
	longDays  = 7
)

// window is the client series reduced to one point per calendar day, newest last.
type window []campaign.MetricPoint

type rule struct {
	id      string
	minDays int
	eval    func(w window) *Alert
}

// Engine evaluates every rule on each call. It holds no state.
type Engine struct {
	rules []rule
}

// NewEngine returns an Engine with the standard rule set.
func NewEngine() *Engine {
	return &Engine{rules: standardRules()}
}

// IDs lists rule identifiers in evaluation order.
func (e *Engine) IDs() []string {
	ids := make([]string, len(e.rules))
	for i, r := range e.rules {
		ids[i] = r.id
	}
	return ids
}

// Evaluate runs every rule over the client window and returns the alerts that
// fired, in rule order. Rules lacking enough distinct days are skipped.
func (e *Engine) Evaluate(series campaign.MetricSeries) []Alert {
	w := newWindow(series)
	alerts := make([]Alert, 0)
	for _, r := range e.rules {
		if len(w) < r.minDays {
			continue
		}
		if a := r.eval(w); a != nil {
			a.ID = r.id
			a.Category = CategoryFor(r.id)
			alerts = append(alerts, *a)
		}
	}
	return alerts
}

// CategoryFor maps an alert id onto its root-cause category.
func CategoryFor(id string) string {
	if id == IDConversionsZero {
		return "zero-conversions"
	}
	return id
}

func newWindow(series campaign.MetricSeries) window {
	byDay := make(map[string]campaign.MetricPoint, len(series.Points))
	for _, p := range series.Points {
		key := p.Date.UTC().Format(time.DateOnly)
		existing, ok := byDay[key]
		if !ok {
			byDay[key] = p
			continue
		}
		// Duplicate day: keep the later row.
		if p.Date.After(existing.Date) {
			byDay[key] = p
		}
	}

	w := make(window, 0, len(byDay))
	for _, p := range byDay {
		w = append(w, p)
	}
	sort.Slice(w, func(i, j int) bool { return w[i].Date.Before(w[j].Date) })
	return w
}

func (w window) last(n int) window {
	if n >= len(w) {
		return w
	}
	return w[len(w)-n:]
}

func (w window) sum(m campaign.Metric) float64 {
	total := 0.0
	for _, p := range w {
		total += p.ValueOr(m, 0)
	}
	return total
}

func (w window) avg(m campaign.Metric) float64 {
	if len(w) == 0 {
		return 0
	}
	return w.sum(m) / float64(len(w))
}

// avgReported averages m over days that reported it.
func (w window) avgReported(m campaign.Metric) (float64, bool) {
	total, n := 0.0, 0
	for _, p := range w {
		if v, ok := p.Value(m); ok {
			total += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

func (w window) avgCPC() float64 {
	if len(w) == 0 {
		return 0
	}
	total := 0.0
	for _, p := range w {
		total += p.ValueOr(campaign.Cost, 0) / max(1, p.ValueOr(campaign.Clicks, 0))
	}
	return total / float64(len(w))
}

func percentChange(current, expected float64) float64 {
	return (current - expected) / expected * 100
}

func ptr(v float64) *float64 {
	return &v
}
