package charts

import (
	"kpidash/domain/dataset"
	"kpidash/internal/helpers"
	"kpidash/internal/metrics"
	"kpidash/internal/processing"
)

// MaxLineCategories caps the per-category series of a line chart
const MaxLineCategories = 8

// BucketSeries turns a temporal aggregation into a series of totals
func BucketSeries(name string, buckets []metrics.Bucket) Series {
	s := Series{Name: name}
	for _, b := range buckets {
		s.Points = append(s.Points, Point{X: b.Period, Y: b.Total})
	}
	return s
}

// CumulativeSeries is the running total of a temporal aggregation
func CumulativeSeries(name string, buckets []metrics.Bucket) Series {
	s := Series{Name: name}
	running := 0.0
	for _, b := range buckets {
		running += b.Total
		s.Points = append(s.Points, Point{X: b.Period, Y: running})
	}
	return s
}

// SeriesByCategory resamples the value column separately for the largest
// categories of column
func SeriesByCategory(calc *metrics.Calculator, column string, freq metrics.Frequency) ([]Series, error) {
	groups, err := calc.CategoryBreakdown(column, MaxLineCategories)
	if err != nil {
		return nil, err
	}
	var out []Series
	for _, g := range groups {
		buckets, err := calc.Filter(nil, nil, column, []string{g.Category}).TemporalAggregation(freq, nil, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, BucketSeries(g.Category, buckets))
	}
	return out, nil
}

// CategoryBars converts a breakdown into bars of totals
func CategoryBars(groups []metrics.CategoryTotal) []Bar {
	bars := make([]Bar, len(groups))
	for i, g := range groups {
		bars[i] = Bar{Label: g.Category, Value: g.Total}
	}
	return bars
}

// RankingBars sums value per category and keeps the top n
func RankingBars(calc *metrics.Calculator, category, value string, n int) ([]Bar, error) {
	groups, err := calc.GroupBy(category, value, metrics.AggSum, n)
	if err != nil {
		return nil, err
	}
	return CategoryBars(groups), nil
}

// HeatmapCell is one colored cell of the heatmap grid
type HeatmapCell struct {
	Value     float64 `json:"value"`
	Label     string  `json:"label"`
	Intensity float64 `json:"intensity"`
	Color     string  `json:"color"`
}

// Heatmap is an HTML-ready grid built from a pivot
type Heatmap struct {
	Title   string          `json:"title"`
	Rows    []string        `json:"rows"`
	Columns []string        `json:"columns"`
	Cells   [][]HeatmapCell `json:"cells"`
}

// Empty reports whether the grid has no cells
func (h *Heatmap) Empty() bool {
	return h == nil || len(h.Rows) == 0 || len(h.Columns) == 0
}

// BuildHeatmap colors every cell of the pivot from white (0) to the primary
// color (the largest cell)
func BuildHeatmap(title string, p *processing.Pivot, palette Palette) *Heatmap {
	if palette.Primary == "" {
		palette = DefaultPalette
	}
	h := &Heatmap{Title: title, Rows: p.Index, Columns: p.Columns, Cells: make([][]HeatmapCell, len(p.Cells))}
	top := p.Max()
	primary := Color(palette.Primary)
	white := Color("#ffffff")
	for i, row := range p.Cells {
		h.Cells[i] = make([]HeatmapCell, len(row))
		for j, v := range row {
			f := 0.0
			if top > 0 && v > 0 {
				f = v / top
			}
			h.Cells[i][j] = HeatmapCell{
				Value:     v,
				Label:     helpers.FormatNumber(v, 0),
				Intensity: f,
				Color:     CSS(Blend(white, primary, f)),
			}
		}
	}
	return h
}

// WeekdayHeatmap pivots value by weekday (rows) and ISO week (columns)
func WeekdayHeatmap(t *dataset.Table, value string, palette Palette) (*Heatmap, error) {
	if !t.HasDateColumn() {
		return nil, ErrNotEnoughData
	}
	p, err := processing.PivotTable(processing.EnrichWithPeriods(t), processing.ColWeekday, processing.ColWeek, value, processing.AggSum)
	if err != nil {
		return nil, err
	}
	orderWeekdays(p)
	return BuildHeatmap("", p, palette), nil
}

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// orderWeekdays reorders the pivot rows Monday first, in place
func orderWeekdays(p *processing.Pivot) {
	pos := make(map[string]int, len(p.Index))
	for i, name := range p.Index {
		pos[name] = i
	}
	var index []string
	var cells [][]float64
	for _, day := range weekdays {
		if i, ok := pos[day]; ok {
			index = append(index, day)
			cells = append(cells, p.Cells[i])
		}
	}
	p.Index, p.Cells = index, cells
}
