package dashboard

import (
	"context"
	"sort"
	"strings"
	"time"

	"kpidash/domain/core"
	"kpidash/domain/dataset"
	"kpidash/internal/charts"
	"kpidash/internal/filters"
	"kpidash/internal/helpers"
	"kpidash/internal/metrics"
)

// EmptyWarning is shown when the filters leave no rows
const EmptyWarning = "No data matches the selected filters."

// Card is one KPI tile
type Card struct {
	Title  string        `json:"title"`
	Value  string        `json:"value"`
	Raw    float64       `json:"raw"`
	Delta  string        `json:"delta,omitempty"`
	Trend  helpers.Trend `json:"trend,omitempty"`
	Detail string        `json:"detail,omitempty"`
}

// Ranking is a top-N bar list for one measure
type Ranking struct {
	Key    string       `json:"key"`
	Title  string       `json:"title"`
	Column string       `json:"column"`
	Bars   []charts.Bar `json:"bars"`
}

// DriverSummary is one row of the per-driver table
type DriverSummary struct {
	Driver string  `json:"driver"`
	KM     float64 `json:"km"`
	SPR    float64 `json:"spr"`
	Stops  float64 `json:"stops"`
	Days   int     `json:"days"`
}

// DetailTable is the formatted head of the filtered table
type DetailTable struct {
	Headers   []string   `json:"headers"`
	Rows      [][]string `json:"rows"`
	Shown     int        `json:"shown"`
	Total     int        `json:"total"`
	Truncated bool       `json:"truncated"`
}

// View is everything the dashboard page shows for one filter state
type View struct {
	Summary       dataset.Summary         `json:"summary"`
	Options       filters.Options         `json:"options"`
	State         filters.State           `json:"state"`
	TotalRows     int                     `json:"total_rows"`
	FilteredRows  int                     `json:"filtered_rows"`
	Empty         bool                    `json:"empty"`
	Warning       string                  `json:"warning,omitempty"`
	Fleet         bool                    `json:"fleet"`
	ValueColumn   string                  `json:"value_column"`
	KPIs          metrics.KPIs            `json:"kpis"`
	Cards         []Card                  `json:"cards"`
	Growth        *metrics.Comparison     `json:"growth,omitempty"`
	Frequency     metrics.Frequency       `json:"frequency,omitempty"`
	Timeline      []metrics.Bucket        `json:"timeline,omitempty"`
	Breakdown     []metrics.CategoryTotal `json:"breakdown,omitempty"`
	BreakdownBy   string                  `json:"breakdown_by,omitempty"`
	Rankings      []Ranking               `json:"rankings,omitempty"`
	Comparison    []charts.Pair           `json:"comparison,omitempty"`
	DriverSummary []DriverSummary         `json:"driver_summary,omitempty"`
	Heatmap       *charts.Heatmap         `json:"heatmap,omitempty"`
	Detail        DetailTable             `json:"detail"`
	LoadedAt      time.Time               `json:"loaded_at"`
}

// fleetColumns are the delivery fleet measures recognised by name
type fleetColumns struct {
	Driver string
	KM     string
	SPR    string
	Stops  string
	ORH    string
}

func (f fleetColumns) any() bool {
	return f.KM != "" || f.SPR != "" || f.Stops != "" || f.ORH != ""
}

func detectFleetColumns(t *dataset.Table) fleetColumns {
	var f fleetColumns
	for _, col := range t.Columns() {
		name := strings.ToLower(col.Name)
		switch {
		case f.Driver == "" && strings.Contains(name, "motorista") && col.Role != dataset.RoleNumeric:
			f.Driver = col.Name
		case col.Role != dataset.RoleNumeric:
		case name == "km" && f.KM == "":
			f.KM = col.Name
		case name == "spr" && f.SPR == "":
			f.SPR = col.Name
		case strings.Contains(name, "parada") && f.Stops == "":
			f.Stops = col.Name
		case name == "orh" && f.ORH == "":
			f.ORH = col.Name
		}
	}
	return f
}

// Build assembles the view for a filter state
func (s *Service) Build(ctx context.Context, state filters.State) (*View, error) {
	res, filtered, err := s.Filtered(ctx, state)
	if err != nil {
		return nil, err
	}
	s.telemetry.observeBuild()

	view := &View{
		Summary:      res.Summary,
		Options:      filters.BuildOptions(res.Table),
		State:        state,
		TotalRows:    res.Table.NumRows(),
		FilteredRows: filtered.NumRows(),
		ValueColumn:  res.Table.PrimaryValueColumn(),
	}
	if at, ok := s.LoadedAt(); ok {
		view.LoadedAt = at
	}
	if filtered.IsEmpty() {
		view.Empty = true
		view.Warning = EmptyWarning
		return view, nil
	}

	calc := metrics.NewCalculator(filtered)
	view.KPIs = calc.SummaryKPIs()

	fleet := detectFleetColumns(filtered)
	view.Fleet = fleet.any()
	if view.Fleet {
		view.Cards = fleetCards(calc, fleet)
		view.Rankings = s.rankings(calc, fleet)
		view.DriverSummary = driverSummary(filtered, fleet)
		view.Comparison = comparisonPairs(view.DriverSummary, fleet, s.settings.ComparisonTopN)
	} else {
		view.Growth = s.growth(res.Table, filtered, state)
		view.Cards = genericCards(view.KPIs, view.Growth)
	}

	if calc.DateColumn() != "" {
		view.Frequency = timelineFrequency(filtered.DateRange())
		view.Timeline, err = calc.TemporalAggregation(view.Frequency, nil, nil)
		if err != nil {
			return nil, err
		}
		if hm, err := charts.WeekdayHeatmap(filtered, calc.ValueColumn(), s.settings.Palette); err == nil && !hm.Empty() {
			view.Heatmap = hm
		}
	}

	view.Breakdown, err = calc.CategoryBreakdown("", 10)
	if err != nil {
		return nil, err
	}
	if len(view.Breakdown) > 0 {
		view.BreakdownBy = firstCategorical(filtered, calc)
	}

	view.Detail = detailTable(filtered, s.settings.TableMaxRows)
	return view, nil
}

func firstCategorical(t *dataset.Table, calc *metrics.Calculator) string {
	for _, col := range t.Columns() {
		if col.Name == calc.DateColumn() || col.Name == calc.ValueColumn() {
			continue
		}
		if col.Role == dataset.RoleCategorical || col.Role == dataset.RoleText {
			return col.Name
		}
	}
	return ""
}

// growth compares the selected period with the one right before it. The
// previous period ignores the date filter but keeps every other constraint.
func (s *Service) growth(full, filtered *dataset.Table, state filters.State) *metrics.Comparison {
	r := filtered.DateRange()
	if r == nil {
		return nil
	}
	start, end := core.StartOfDay(r.Min), core.EndOfDay(r.Max)
	if state.Start != nil {
		start = core.StartOfDay(*state.Start)
	}
	if state.End != nil {
		end = core.EndOfDay(*state.End)
	}
	undated := state
	undated.Start, undated.End = nil, nil
	cmp := metrics.NewCalculator(filters.Apply(full, undated)).PeriodComparison(start, end, nil, nil)
	return &cmp
}

func genericCards(k metrics.KPIs, growth *metrics.Comparison) []Card {
	total := Card{Title: "Total", Value: helpers.FormatCompact(k.Total), Raw: k.Total, Trend: helpers.TrendFlat}
	if growth != nil {
		total.Trend = growth.Trend()
		if growth.ChangeDefined {
			total.Delta = helpers.FormatPercentage(growth.ChangePercent, 1)
		}
		total.Detail = "vs " + helpers.FormatDate(growth.PreviousStart) + " - " + helpers.FormatDate(growth.PreviousEnd)
	}
	return []Card{
		total,
		{Title: "Average", Value: helpers.FormatNumber(k.Average, 2), Raw: k.Average},
		{Title: "Median", Value: helpers.FormatNumber(k.Median, 2), Raw: k.Median},
		{Title: "Maximum", Value: helpers.FormatNumber(k.Max, 2), Raw: k.Max},
		{Title: "Records", Value: helpers.FormatNumber(float64(k.Count), 0), Raw: float64(k.Count)},
	}
}

func fleetCards(calc *metrics.Calculator, f fleetColumns) []Card {
	var cards []Card
	pair := func(column, totalTitle, avgTitle string, totalDecimals int) {
		if column == "" {
			return
		}
		floats, _ := calc.Table().Floats(column)
		if len(floats) == 0 {
			return
		}
		total, avg := calc.Total(column), calc.Average(column)
		cards = append(cards,
			Card{Title: totalTitle, Value: helpers.FormatNumber(total, totalDecimals), Raw: total},
			Card{Title: avgTitle, Value: helpers.FormatNumber(avg, 2), Raw: avg},
		)
	}
	pair(f.KM, "Total KM", "Average KM", 2)
	pair(f.SPR, "Total Boxes (SPR)", "Average Boxes", 0)
	pair(f.Stops, "Total Stops", "Average Stops", 0)

	if f.ORH != "" {
		if floats, _ := calc.Table().Floats(f.ORH); len(floats) > 0 {
			total, avg := calc.Total(f.ORH), calc.Average(f.ORH)
			cards = append(cards,
				Card{Title: "Total ORH", Value: helpers.FormatHours(total), Raw: total},
				Card{Title: "Average ORH", Value: helpers.FormatHours(avg), Raw: avg},
			)
		}
	}
	if f.Driver != "" {
		n := len(calc.Table().Distinct(f.Driver))
		cards = append(cards, Card{Title: "Drivers", Value: helpers.FormatNumber(float64(n), 0), Raw: float64(n)})
	}
	return cards
}

// Ranking keys, also used as chart names
const (
	RankingKM    = "ranking-km"
	RankingSPR   = "ranking-spr"
	RankingStops = "ranking-stops"
)

func (s *Service) rankings(calc *metrics.Calculator, f fleetColumns) []Ranking {
	if f.Driver == "" {
		return nil
	}
	var out []Ranking
	add := func(key, title, column string) {
		if column == "" {
			return
		}
		bars, err := charts.RankingBars(calc, f.Driver, column, s.settings.RankingTopN)
		if err != nil || len(bars) == 0 {
			return
		}
		out = append(out, Ranking{Key: key, Title: title, Column: column, Bars: bars})
	}
	add(RankingKM, "Top drivers by distance (KM)", f.KM)
	add(RankingSPR, "Top drivers by boxes delivered (SPR)", f.SPR)
	add(RankingStops, "Top drivers by stops", f.Stops)
	return out
}

// driverSummary totals the fleet measures per driver, ordered by KM (or the
// first available measure) descending
func driverSummary(t *dataset.Table, f fleetColumns) []DriverSummary {
	di := t.Index(f.Driver)
	if di < 0 {
		return nil
	}
	ki, si, pi, dti := t.Index(f.KM), t.Index(f.SPR), t.Index(f.Stops), t.Index(dataset.DateColumn)

	byDriver := make(map[string]*DriverSummary)
	days := make(map[string]map[string]bool)
	var order []string
	num := func(row []dataset.Value, i int) float64 {
		if i < 0 || row[i].Kind != dataset.KindNumber {
			return 0
		}
		return row[i].Num
	}
	for _, row := range t.Rows() {
		if row[di].IsNull() {
			continue
		}
		name := row[di].String()
		d, ok := byDriver[name]
		if !ok {
			d = &DriverSummary{Driver: name}
			byDriver[name] = d
			days[name] = make(map[string]bool)
			order = append(order, name)
		}
		d.KM += num(row, ki)
		d.SPR += num(row, si)
		d.Stops += num(row, pi)
		if dti >= 0 && row[dti].Kind == dataset.KindTime {
			days[name][row[dti].Time.Format(core.DateLayout)] = true
		}
	}

	out := make([]DriverSummary, 0, len(order))
	for _, name := range order {
		d := byDriver[name]
		d.Days = len(days[name])
		out = append(out, *d)
	}
	key := func(d DriverSummary) float64 {
		switch {
		case f.KM != "":
			return d.KM
		case f.SPR != "":
			return d.SPR
		}
		return d.Stops
	}
	sort.SliceStable(out, func(i, j int) bool {
		if key(out[i]) != key(out[j]) {
			return key(out[i]) > key(out[j])
		}
		return out[i].Driver < out[j].Driver
	})
	return out
}

// comparisonPairs is KM against SPR for the first n drivers of the summary
func comparisonPairs(summary []DriverSummary, f fleetColumns, n int) []charts.Pair {
	if f.KM == "" || f.SPR == "" {
		return nil
	}
	if n > 0 && len(summary) > n {
		summary = summary[:n]
	}
	pairs := make([]charts.Pair, len(summary))
	for i, d := range summary {
		pairs[i] = charts.Pair{Label: d.Driver, A: d.KM, B: d.SPR}
	}
	return pairs
}

// timelineFrequency keeps the number of buckets readable
func timelineFrequency(r *dataset.DateRange) metrics.Frequency {
	if r == nil {
		return metrics.Daily
	}
	switch days := core.DaysBetween(r.Min, r.Max); {
	case days <= 92:
		return metrics.Daily
	case days <= 731:
		return metrics.Weekly
	}
	return metrics.Monthly
}

// detailTable formats the first limit rows: ORH as H:MM, numbers with two
// decimals, dates as dd/mm/yyyy
func detailTable(t *dataset.Table, limit int) DetailTable {
	head := t.Head(limit)
	cols := head.Columns()
	out := DetailTable{
		Headers:   head.ColumnNames(),
		Shown:     head.NumRows(),
		Total:     t.NumRows(),
		Truncated: head.NumRows() < t.NumRows(),
		Rows:      make([][]string, head.NumRows()),
	}
	for r, row := range head.Rows() {
		cells := make([]string, len(row))
		for c, v := range row {
			cells[c] = formatCell(cols[c].Name, v)
		}
		out.Rows[r] = cells
	}
	return out
}

func formatCell(column string, v dataset.Value) string {
	switch v.Kind {
	case dataset.KindNull:
		return ""
	case dataset.KindTime:
		return helpers.FormatDate(v.Time)
	case dataset.KindNumber:
		if strings.Contains(strings.ToLower(column), "orh") {
			return helpers.FormatHours(v.Num)
		}
		return helpers.FormatNumber(v.Num, 2)
	}
	return v.Str
}
