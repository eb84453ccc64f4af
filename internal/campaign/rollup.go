package campaign

import (
	"sort"
	"time"
)

// RollupDaily folds campaign series into a single client-level series with one
// point per day. Volume metrics are summed; share metrics are averaged over the
// campaigns that reported them; ctr and cpc are recomputed from the sums.
func RollupDaily(clientID string, series ...MetricSeries) MetricSeries {
	type bucket struct {
		date   time.Time
		sums   map[Metric]float64
		counts map[Metric]int
	}

	buckets := make(map[string]*bucket)
	for _, s := range series {
		for _, p := range s.Points {
			key := dayKey(p.Date)
			b, ok := buckets[key]
			if !ok {
				b = &bucket{
					date:   truncateDay(p.Date),
					sums:   make(map[Metric]float64),
					counts: make(map[Metric]int),
				}
				buckets[key] = b
			}
			for m, v := range p.Values {
				if m == CTR || m == CPC {
					continue
				}
				b.sums[m] += v
				b.counts[m]++
			}
		}
	}

	out := MetricSeries{EntityID: clientID, ClientID: clientID}
	for _, b := range buckets {
		point := MetricPoint{EntityID: clientID, Date: b.date}
		for m, sum := range b.sums {
			if m.isAdditive() {
				point.Set(m, sum)
				continue
			}
			point.Set(m, sum/float64(b.counts[m]))
		}

		clicks := point.ValueOr(Clicks, 0)
		if impressions := point.ValueOr(Impressions, 0); impressions > 0 {
			point.Set(CTR, clicks/impressions*100)
		}
		if _, ok := point.Value(Cost); ok {
			point.Set(CPC, point.ValueOr(Cost, 0)/max(1, clicks))
		}
		out.Points = append(out.Points, point)
	}

	sort.Slice(out.Points, func(i, j int) bool {
		return out.Points[i].Date.Before(out.Points[j].Date)
	})
	return out
}
