// Package metrics computes KPIs and aggregations over a dataset table.
package metrics

import (
	"time"

	"github.com/montanaflynn/stats"

	"kpidash/domain/core"
	"kpidash/domain/dataset"
	"kpidash/internal/helpers"
)

// KPIs is the headline block of the dashboard
type KPIs struct {
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Count   int     `json:"count"`
}

// Calculator computes metrics over one table. The value column is the first
// numeric column and the date column is "date" when present.
type Calculator struct {
	table       *dataset.Table
	valueColumn string
	dateColumn  string
}

// NewCalculator wraps a table
func NewCalculator(t *dataset.Table) *Calculator {
	c := &Calculator{table: t, valueColumn: t.PrimaryValueColumn()}
	if t.HasDateColumn() {
		c.dateColumn = dataset.DateColumn
	}
	return c
}

// Table returns the table behind the calculator
func (c *Calculator) Table() *dataset.Table { return c.table }

// ValueColumn is the default column of every aggregate
func (c *Calculator) ValueColumn() string { return c.valueColumn }

// DateColumn is "" when the table has no dates
func (c *Calculator) DateColumn() string { return c.dateColumn }

func (c *Calculator) floats(column string) []float64 {
	if column == "" {
		column = c.valueColumn
	}
	if column == "" {
		return nil
	}
	floats, err := c.table.Floats(column)
	if err != nil {
		return nil
	}
	return floats
}

// Total sums a column ("" selects the value column). Missing data sums to 0.
func (c *Calculator) Total(column string) float64 {
	sum, err := stats.Sum(c.floats(column))
	if err != nil {
		return 0
	}
	return sum
}

// Average is the mean of the non-null values, 0 without data
func (c *Calculator) Average(column string) float64 {
	mean, err := stats.Mean(c.floats(column))
	if err != nil {
		return 0
	}
	return mean
}

// Median of the non-null values, 0 without data
func (c *Calculator) Median(column string) float64 {
	median, err := stats.Median(c.floats(column))
	if err != nil {
		return 0
	}
	return median
}

// Min of the non-null values, 0 without data
func (c *Calculator) Min(column string) float64 {
	min, err := stats.Min(c.floats(column))
	if err != nil {
		return 0
	}
	return min
}

// Max of the non-null values, 0 without data
func (c *Calculator) Max(column string) float64 {
	max, err := stats.Max(c.floats(column))
	if err != nil {
		return 0
	}
	return max
}

// Count is the number of rows
func (c *Calculator) Count() int {
	return c.table.NumRows()
}

// SummaryKPIs returns every headline figure for the value column
func (c *Calculator) SummaryKPIs() KPIs {
	return KPIs{
		Total:   c.Total(""),
		Average: c.Average(""),
		Median:  c.Median(""),
		Min:     c.Min(""),
		Max:     c.Max(""),
		Count:   c.Count(),
	}
}

// Comparison contrasts the value total of two periods
type Comparison struct {
	CurrentStart  time.Time `json:"current_start"`
	CurrentEnd    time.Time `json:"current_end"`
	PreviousStart time.Time `json:"previous_start"`
	PreviousEnd   time.Time `json:"previous_end"`
	CurrentTotal  float64   `json:"current_total"`
	PreviousTotal float64   `json:"previous_total"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	// false when the previous total is zero and no percentage exists
	ChangeDefined bool `json:"change_defined"`
}

// Trend classifies the change
func (c Comparison) Trend() helpers.Trend {
	return helpers.TrendIndicator(c.ChangePercent, c.ChangeDefined)
}

// PeriodComparison totals the value column over [curStart, curEnd] and over
// the previous period. Without explicit bounds the previous period is the
// window of the same number of days ending the day before curStart.
func (c *Calculator) PeriodComparison(curStart, curEnd time.Time, prevStart, prevEnd *time.Time) Comparison {
	cmp := Comparison{CurrentStart: curStart, CurrentEnd: curEnd}
	if prevStart != nil && prevEnd != nil {
		cmp.PreviousStart, cmp.PreviousEnd = *prevStart, *prevEnd
	} else {
		days := core.DaysBetween(curStart, curEnd)
		cmp.PreviousEnd = core.EndOfDay(curStart.AddDate(0, 0, -1))
		cmp.PreviousStart = core.StartOfDay(cmp.PreviousEnd.AddDate(0, 0, -(days - 1)))
	}

	if c.dateColumn == "" || c.valueColumn == "" {
		return cmp
	}

	cmp.CurrentTotal = c.totalBetween(cmp.CurrentStart, cmp.CurrentEnd)
	cmp.PreviousTotal = c.totalBetween(cmp.PreviousStart, cmp.PreviousEnd)
	cmp.Change = cmp.CurrentTotal - cmp.PreviousTotal
	cmp.ChangePercent, cmp.ChangeDefined = helpers.PercentageChange(cmp.CurrentTotal, cmp.PreviousTotal)
	return cmp
}

func (c *Calculator) totalBetween(start, end time.Time) float64 {
	di, vi := c.table.Index(c.dateColumn), c.table.Index(c.valueColumn)
	total := 0.0
	for _, row := range c.table.Rows() {
		d, v := row[di], row[vi]
		if d.Kind != dataset.KindTime || v.Kind != dataset.KindNumber {
			continue
		}
		if d.Time.Before(start) || d.Time.After(end) {
			continue
		}
		total += v.Num
	}
	return total
}

// Filter returns a calculator over the rows within [start, end] (either may be
// nil) whose column value is one of categories (ignored when empty)
func (c *Calculator) Filter(start, end *time.Time, column string, categories []string) *Calculator {
	di := c.table.Index(c.dateColumn)
	ci := c.table.Index(column)
	set := make(map[string]bool, len(categories))
	for _, v := range categories {
		set[v] = true
	}

	filtered := c.table.Filter(func(row []dataset.Value) bool {
		if di >= 0 && (start != nil || end != nil) {
			d := row[di]
			if d.Kind != dataset.KindTime {
				return false
			}
			if start != nil && d.Time.Before(*start) {
				return false
			}
			if end != nil && d.Time.After(*end) {
				return false
			}
		}
		if ci >= 0 && len(set) > 0 {
			v := row[ci]
			if v.IsNull() || !set[v.String()] {
				return false
			}
		}
		return true
	})
	return NewCalculator(filtered)
}
