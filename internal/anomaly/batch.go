package anomaly

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"ad-anomaly-alerts/internal/campaign"
)

// DetectBatch runs Detect for every (series, metric) pair and returns the topN
// most confident results. Series with too little history are skipped.
func (d *Detector) DetectBatch(ctx context.Context, series []campaign.MetricSeries, metrics []campaign.Metric, sensitivity Sensitivity, topN int) ([]Result, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}

	g, ctx := errgroup.WithContext(ctx)
	if d.Workers > 0 {
		g.SetLimit(d.Workers)
	}

	var (
		mu      sync.Mutex
		results []Result
	)

	for _, s := range series {
		s := s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			local := make([]Result, 0, len(metrics))
			for _, m := range metrics {
				if r := d.Detect(s, m, sensitivity); r != nil {
					local = append(local, *r)
				}
			}
			if len(local) == 0 {
				return nil
			}
			mu.Lock()
			results = append(results, local...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	Rank(results)
	if len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

// Rank orders results by confidence descending, breaking ties by entity then
// metric so output does not depend on evaluation order.
func Rank(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.EntityID != b.EntityID {
			return a.EntityID < b.EntityID
		}
		return a.Metric < b.Metric
	})
}
