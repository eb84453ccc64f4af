package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"ad-anomaly-alerts/internal/campaign"
	"ad-anomaly-alerts/internal/storage"
)

// Export renders a client's daily rolled-up metrics as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.ClientID == "" {
		return errors.New("--client is required")
	}
	metric, err := campaign.ParseMetric(opts.Metric)
	if err != nil {
		return err
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.AddDate(0, 0, -a.Config.HistoryDays())
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	rows, err := store.ListMetricRows(ctx, opts.ClientID, from, to)
	if err != nil {
		return err
	}
	daily := campaign.RollupDaily(opts.ClientID, storage.ToSeries(rows)...)
	if len(daily.Points) == 0 {
		a.Logger.Info().Str("client_id", opts.ClientID).Msg("no metrics found for export window")
		return nil
	}

	points := downsamplePoints(daily.Points, opts.MaxPoints)
	a.Logger.Info().Int("total", len(daily.Points)).Int("exported", len(points)).Msg("exporting daily metrics")

	if opts.CSVPath != "" {
		if err := writePointsCSV(opts.CSVPath, points); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writePointsPNG(opts.PNGPath, opts.ClientID, metric, points); err != nil {
			return err
		}
	}

	return nil
}

func downsamplePoints(points []campaign.MetricPoint, max int) []campaign.MetricPoint {
	if max <= 0 || len(points) <= max {
		return points
	}
	if max == 1 {
		return points[len(points)-1:]
	}

	result := make([]campaign.MetricPoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writePointsCSV(path string, points []campaign.MetricPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := make([]string, 0, len(campaign.AllMetrics)+1)
	header = append(header, "date")
	for _, m := range campaign.AllMetrics {
		header = append(header, string(m))
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, p := range points {
		record := make([]string, 0, len(header))
		record = append(record, p.Date.Format(time.DateOnly))
		for _, m := range campaign.AllMetrics {
			v, ok := p.Value(m)
			if !ok {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'f', 4, 64))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writePointsPNG(path, clientID string, metric campaign.Metric, points []campaign.MetricPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, 0, len(points))
	y := make([]float64, 0, len(points))
	for _, p := range points {
		v, ok := p.Value(metric)
		if !ok {
			continue
		}
		x = append(x, p.Date)
		y = append(y, v)
	}
	if len(x) < 2 {
		return fmt.Errorf("not enough %s values to chart", metric)
	}

	daily := chart.TimeSeries{
		Name:    string(metric),
		XValues: x,
		YValues: y,
	}
	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  fmt.Sprintf("%s daily %s", clientID, metric),
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           string(metric),
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			daily,
			&chart.SMASeries{
				Name:        "7-day average",
				InnerSeries: daily,
				Period:      7,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
