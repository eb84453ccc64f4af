// Package campaign models the daily advertising metric rows the engines read.
package campaign

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrDuplicateDate reports a series holding two points for the same day.
var ErrDuplicateDate = errors.New("campaign: duplicate date in series")

// Metric names a daily metric column.
type Metric string

// Known metrics. Ratio metrics are stored in percent (0-100).
const (
	Impressions        Metric = "impressions"
	Clicks             Metric = "clicks"
	Cost               Metric = "cost"
	Conversions        Metric = "conversions"
	CTR                Metric = "ctr"
	CPC                Metric = "cpc"
	QualityScore       Metric = "quality_score"
	ImpressionShare    Metric = "impression_share"
	SearchLostISBudget Metric = "search_lost_is_budget"
	SearchLostISRank   Metric = "search_lost_is_rank"
)

// AllMetrics lists every known metric in column order.
var AllMetrics = []Metric{
	Impressions, Clicks, Cost, Conversions, CTR, CPC,
	QualityScore, ImpressionShare, SearchLostISBudget, SearchLostISRank,
}

// ParseMetric validates a metric name.
func ParseMetric(name string) (Metric, error) {
	for _, m := range AllMetrics {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", name)
}

// isAdditive reports whether daily values of m can be summed across campaigns.
func (m Metric) isAdditive() bool {
	switch m {
	case Impressions, Clicks, Cost, Conversions:
		return true
	default:
		return false
	}
}

// MetricPoint is one entity's metrics for a single calendar day.
type MetricPoint struct {
	EntityID string             `json:"entity_id"`
	Date     time.Time          `json:"date"`
	Values   map[Metric]float64 `json:"values"`
}

// Value returns the metric and whether the row reported it.
func (p MetricPoint) Value(m Metric) (float64, bool) {
	v, ok := p.Values[m]
	return v, ok
}

// ValueOr returns the metric or def when absent.
func (p MetricPoint) ValueOr(m Metric, def float64) float64 {
	if v, ok := p.Values[m]; ok {
		return v
	}
	return def
}

// Set stores a metric value, allocating the map on first use.
func (p *MetricPoint) Set(m Metric, v float64) {
	if p.Values == nil {
		p.Values = make(map[Metric]float64, len(AllMetrics))
	}
	p.Values[m] = v
}

// MetricSeries is the ordered daily history of one entity.
type MetricSeries struct {
	EntityID string        `json:"entity_id"`
	ClientID string        `json:"client_id"`
	Points   []MetricPoint `json:"points"`
}

// Sort orders points by date ascending.
func (s *MetricSeries) Sort() {
	sort.SliceStable(s.Points, func(i, j int) bool {
		return s.Points[i].Date.Before(s.Points[j].Date)
	})
}

// Validate checks that no calendar day appears twice.
func (s MetricSeries) Validate() error {
	seen := make(map[string]struct{}, len(s.Points))
	for _, p := range s.Points {
		key := dayKey(p.Date)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: entity %s on %s", ErrDuplicateDate, s.EntityID, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Values extracts m in series order, dropping absent, NaN, infinite and
// negative entries.
func (s MetricSeries) Values(m Metric) []float64 {
	out := make([]float64, 0, len(s.Points))
	for _, p := range s.Points {
		v, ok := p.Value(m)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

// DistinctDates returns the number of different calendar days in the series.
func (s MetricSeries) DistinctDates() int {
	seen := make(map[string]struct{}, len(s.Points))
	for _, p := range s.Points {
		seen[dayKey(p.Date)] = struct{}{}
	}
	return len(seen)
}

// Window returns the points dated within the days calendar days ending at asOf
// (inclusive). The receiver is left untouched.
func (s MetricSeries) Window(asOf time.Time, days int) MetricSeries {
	end := truncateDay(asOf)
	start := end.AddDate(0, 0, -(days - 1))
	out := MetricSeries{EntityID: s.EntityID, ClientID: s.ClientID}
	for _, p := range s.Points {
		d := truncateDay(p.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		out.Points = append(out.Points, p)
	}
	return out
}

// Total sums m across the series, treating missing values as 0.
func (s MetricSeries) Total(m Metric) float64 {
	total := 0.0
	for _, p := range s.Points {
		total += p.ValueOr(m, 0)
	}
	return total
}

func dayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
