package storage

import (
	"sort"

	"ad-anomaly-alerts/internal/campaign"
)

// ToSeries groups rows by campaign into date-ordered series. Missing nullable
// columns are left out of the point rather than stored as zero.
func ToSeries(rows []MetricRow) []campaign.MetricSeries {
	index := make(map[string]int)
	var out []campaign.MetricSeries

	for _, row := range rows {
		i, ok := index[row.CampaignID]
		if !ok {
			i = len(out)
			index[row.CampaignID] = i
			out = append(out, campaign.MetricSeries{EntityID: row.CampaignID, ClientID: row.ClientID})
		}
		out[i].Points = append(out[i].Points, row.point())
	}

	for i := range out {
		out[i].Sort()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

func (r MetricRow) point() campaign.MetricPoint {
	p := campaign.MetricPoint{EntityID: r.CampaignID, Date: r.Date}

	impressions := float64(r.Impressions)
	clicks := float64(r.Clicks)
	cost := r.Cost.InexactFloat64()

	p.Set(campaign.Impressions, impressions)
	p.Set(campaign.Clicks, clicks)
	p.Set(campaign.Cost, cost)
	p.Set(campaign.Conversions, r.Conversions.InexactFloat64())
	if impressions > 0 {
		p.Set(campaign.CTR, clicks/impressions*100)
	}
	p.Set(campaign.CPC, cost/max(1, clicks))

	optional := map[campaign.Metric]*float64{
		campaign.QualityScore:       r.QualityScore,
		campaign.ImpressionShare:    r.ImpressionShare,
		campaign.SearchLostISBudget: r.SearchLostISBudget,
		campaign.SearchLostISRank:   r.SearchLostISRank,
	}
	for m, v := range optional {
		if v != nil {
			p.Set(m, *v)
		}
	}
	return p
}
