package dashboard

import (
	"context"
	"io"
	"slices"

	"kpidash/internal/charts"
	"kpidash/internal/errors"
	"kpidash/internal/filters"
	"kpidash/internal/metrics"
)

// Chart names served by RenderChart
const (
	ChartTimeline   = "timeline"
	ChartArea       = "area"
	ChartBreakdown  = "breakdown"
	ChartPie        = "pie"
	ChartComparison = "comparison"
)

// ChartNames lists every chart RenderChart knows
var ChartNames = []string{
	ChartTimeline, ChartArea, ChartBreakdown, ChartPie, ChartComparison,
	RankingKM, RankingSPR, RankingStops,
}

// AvailableCharts returns the charts a view has data for, in page order
func (v *View) AvailableCharts() []string {
	if v.Empty {
		return nil
	}
	var out []string
	if len(v.Timeline) > 1 {
		out = append(out, ChartTimeline, ChartArea)
	}
	for _, r := range v.Rankings {
		out = append(out, r.Key)
	}
	if len(v.Comparison) > 0 {
		out = append(out, ChartComparison)
	}
	if len(v.Breakdown) > 0 {
		out = append(out, ChartBreakdown, ChartPie)
	}
	return out
}

// RenderChart writes the named chart as SVG for the filter state
func (s *Service) RenderChart(ctx context.Context, name string, state filters.State, w io.Writer) error {
	if !knownChart(name) {
		return errors.NotFound("chart " + name)
	}
	view, err := s.Build(ctx, state)
	if err != nil {
		return err
	}
	err = s.renderView(view, name, w)
	s.telemetry.observeRender(name, err)
	if err != nil {
		return errors.Wrapf(err, "failed to render %s chart", name)
	}
	return nil
}

func knownChart(name string) bool {
	return slices.Contains(ChartNames, name)
}

func (s *Service) renderView(v *View, name string, w io.Writer) error {
	if v.Empty {
		return charts.ErrNotEnoughData
	}
	opts := charts.Options{
		Width:   s.settings.ChartWidth,
		Height:  s.settings.ChartHeight,
		Palette: s.settings.Palette,
		YLabel:  v.ValueColumn,
	}

	switch name {
	case ChartTimeline:
		opts.Title = "Timeline of " + v.ValueColumn + " (" + frequencyLabel(v.Frequency) + ")"
		return charts.Line(w, opts, charts.BucketSeries(v.ValueColumn, v.Timeline))
	case ChartArea:
		opts.Title = "Cumulative " + v.ValueColumn
		return charts.Area(w, opts, charts.CumulativeSeries(v.ValueColumn, v.Timeline))
	case ChartBreakdown:
		opts.Title = v.ValueColumn + " by " + v.BreakdownBy
		return charts.Bars(w, opts, charts.CategoryBars(v.Breakdown))
	case ChartPie:
		opts.Title = "Share of " + v.ValueColumn + " by " + v.BreakdownBy
		return charts.Pie(w, opts, charts.CategoryBars(v.Breakdown))
	case ChartComparison:
		opts.Title = "KM vs SPR (top drivers)"
		opts.YLabel = ""
		return charts.Comparison(w, opts, v.Comparison)
	}

	for _, r := range v.Rankings {
		if r.Key == name {
			opts.Title = r.Title
			opts.YLabel = r.Column
			return charts.Ranking(w, opts, r.Bars, s.settings.RankingTopN)
		}
	}
	return charts.ErrNotEnoughData
}

func frequencyLabel(f metrics.Frequency) string {
	switch f {
	case metrics.Weekly:
		return "weekly"
	case metrics.Monthly:
		return "monthly"
	case metrics.Yearly:
		return "yearly"
	}
	return "daily"
}
