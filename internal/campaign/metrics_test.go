package campaign

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func point(entity string, n int, values map[Metric]float64) MetricPoint {
	return MetricPoint{EntityID: entity, Date: day(n), Values: values}
}

func TestValuesDropsInvalidEntries(t *testing.T) {
	s := MetricSeries{EntityID: "c1", Points: []MetricPoint{
		point("c1", 0, map[Metric]float64{Clicks: 10}),
		point("c1", 1, map[Metric]float64{Clicks: math.NaN()}),
		point("c1", 2, map[Metric]float64{Clicks: -3}),
		point("c1", 3, map[Metric]float64{Impressions: 100}),
		point("c1", 4, map[Metric]float64{Clicks: math.Inf(1)}),
		point("c1", 5, map[Metric]float64{Clicks: 0}),
	}}

	assert.Equal(t, []float64{10, 0}, s.Values(Clicks))
}

func TestValidateRejectsDuplicateDates(t *testing.T) {
	s := MetricSeries{EntityID: "c1", Points: []MetricPoint{
		point("c1", 0, nil),
		{EntityID: "c1", Date: day(0).Add(5 * time.Hour)},
	}}

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateDate))
	assert.Equal(t, 1, s.DistinctDates())
}

func TestSortAndWindow(t *testing.T) {
	s := MetricSeries{EntityID: "c1", Points: []MetricPoint{
		point("c1", 5, nil),
		point("c1", 1, nil),
		point("c1", 3, nil),
		point("c1", 9, nil),
	}}
	s.Sort()
	require.Equal(t, day(1), s.Points[0].Date)
	require.Equal(t, day(9), s.Points[3].Date)

	w := s.Window(day(5), 3)
	require.Len(t, w.Points, 2)
	assert.Equal(t, day(3), w.Points[0].Date)
	assert.Equal(t, day(5), w.Points[1].Date)
	assert.Len(t, s.Points, 4)
}

func TestValueOrDefaultsMissing(t *testing.T) {
	p := point("c1", 0, map[Metric]float64{Cost: 12.5})
	assert.Equal(t, 12.5, p.ValueOr(Cost, 0))
	assert.Equal(t, 0.0, p.ValueOr(Conversions, 0))
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("search_lost_is_rank")
	require.NoError(t, err)
	assert.Equal(t, SearchLostISRank, m)

	_, err = ParseMetric("bounce_rate")
	assert.Error(t, err)
}

func TestRollupDaily(t *testing.T) {
	a := MetricSeries{EntityID: "a", Points: []MetricPoint{
		point("a", 0, map[Metric]float64{Impressions: 1000, Clicks: 40, Cost: 80, ImpressionShare: 60}),
		point("a", 1, map[Metric]float64{Impressions: 500, Clicks: 10, Cost: 30}),
	}}
	b := MetricSeries{EntityID: "b", Points: []MetricPoint{
		point("b", 0, map[Metric]float64{Impressions: 1000, Clicks: 10, Cost: 20, ImpressionShare: 80, CTR: 99}),
	}}

	got := RollupDaily("client-1", a, b)
	require.Len(t, got.Points, 2)
	assert.Equal(t, "client-1", got.EntityID)

	first := got.Points[0]
	assert.Equal(t, day(0), first.Date)
	assert.Equal(t, 2000.0, first.ValueOr(Impressions, 0))
	assert.Equal(t, 50.0, first.ValueOr(Clicks, 0))
	assert.Equal(t, 70.0, first.ValueOr(ImpressionShare, 0))
	assert.InDelta(t, 2.5, first.ValueOr(CTR, 0), 1e-9)
	assert.InDelta(t, 2.0, first.ValueOr(CPC, 0), 1e-9)

	second := got.Points[1]
	_, ok := second.Value(ImpressionShare)
	assert.False(t, ok)
	assert.InDelta(t, 3.0, second.ValueOr(CPC, 0), 1e-9)
}
