package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"kpidash/domain/core"
	"kpidash/domain/dataset"
)

// Frequency is a resampling period
type Frequency string

const (
	Daily   Frequency = "D"
	Weekly  Frequency = "W"
	Monthly Frequency = "M"
	Yearly  Frequency = "Y"
)

// ParseFrequency accepts D, W, M or Y (case insensitive)
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToUpper(s)); f {
	case Daily, Weekly, Monthly, Yearly:
		return f, nil
	}
	return "", fmt.Errorf("unknown frequency %q, expected D, W, M or Y", s)
}

// periodEnd returns the label of the bucket containing t: the day itself,
// the Sunday closing the week, or the last day of the month or year
func (f Frequency) periodEnd(t time.Time) time.Time {
	day := core.StartOfDay(t)
	switch f {
	case Weekly:
		return day.AddDate(0, 0, (7-int(day.Weekday()))%7)
	case Monthly:
		return time.Date(day.Year(), day.Month()+1, 0, 0, 0, 0, 0, day.Location())
	case Yearly:
		return time.Date(day.Year(), 12, 31, 0, 0, 0, 0, day.Location())
	}
	return day
}

func (f Frequency) next(label time.Time) time.Time {
	switch f {
	case Weekly:
		return label.AddDate(0, 0, 7)
	case Monthly:
		return time.Date(label.Year(), label.Month()+2, 0, 0, 0, 0, 0, label.Location())
	case Yearly:
		return label.AddDate(1, 0, 0)
	}
	return label.AddDate(0, 0, 1)
}

// Bucket is one period of a time series
type Bucket struct {
	Period time.Time `json:"period"`
	Total  float64   `json:"total"`
	Mean   float64   `json:"mean"`
	Count  int       `json:"count"`
}

// TemporalAggregation resamples the value column. Buckets are contiguous from
// the first to the last dated row, so empty periods appear with Count 0.
func (c *Calculator) TemporalAggregation(freq Frequency, start, end *time.Time) ([]Bucket, error) {
	if _, err := ParseFrequency(string(freq)); err != nil {
		return nil, err
	}
	if c.dateColumn == "" || c.valueColumn == "" {
		return nil, nil
	}

	di, vi := c.table.Index(c.dateColumn), c.table.Index(c.valueColumn)
	byLabel := make(map[time.Time]*Bucket)
	var first, last time.Time
	for _, row := range c.table.Rows() {
		d := row[di]
		if d.Kind != dataset.KindTime {
			continue
		}
		if start != nil && d.Time.Before(*start) {
			continue
		}
		if end != nil && d.Time.After(*end) {
			continue
		}
		label := freq.periodEnd(d.Time)
		b, ok := byLabel[label]
		if !ok {
			b = &Bucket{Period: label}
			byLabel[label] = b
		}
		if first.IsZero() || label.Before(first) {
			first = label
		}
		if label.After(last) {
			last = label
		}
		if v := row[vi]; v.Kind == dataset.KindNumber {
			b.Total += v.Num
			b.Count++
		}
	}
	if len(byLabel) == 0 {
		return nil, nil
	}

	var out []Bucket
	for label := first; !label.After(last); label = freq.next(label) {
		b, ok := byLabel[label]
		if !ok {
			out = append(out, Bucket{Period: label})
			continue
		}
		if b.Count > 0 {
			b.Mean = b.Total / float64(b.Count)
		}
		out = append(out, *b)
	}
	return out, nil
}

// Aggregation selects what CategoryBreakdown sorts by
type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggMean  Aggregation = "mean"
	AggCount Aggregation = "count"
)

// CategoryTotal is one group of a breakdown
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Mean     float64 `json:"mean"`
	Count    int     `json:"count"`
}

// Value picks the figure named by agg
func (ct CategoryTotal) Value(agg Aggregation) float64 {
	switch agg {
	case AggMean:
		return ct.Mean
	case AggCount:
		return float64(ct.Count)
	}
	return ct.Total
}

// CategoryBreakdown groups the value column by column ("" picks the first
// categorical or text column) and returns the topN groups by total, all of
// them when topN <= 0
func (c *Calculator) CategoryBreakdown(column string, topN int) ([]CategoryTotal, error) {
	if column == "" {
		column = c.defaultCategoryColumn()
		if column == "" {
			return nil, nil
		}
	}
	return c.GroupBy(column, c.valueColumn, AggSum, topN)
}

// GroupBy aggregates valueColumn per distinct value of groupColumn, sorted by
// agg descending (ties by name). Rows with a null group are skipped.
func (c *Calculator) GroupBy(groupColumn, valueColumn string, agg Aggregation, topN int) ([]CategoryTotal, error) {
	gi := c.table.Index(groupColumn)
	if gi < 0 {
		return nil, core.NewColumnNotFoundError(groupColumn)
	}
	vi := c.table.Index(valueColumn)
	if vi < 0 {
		return nil, core.NewColumnNotFoundError(valueColumn)
	}

	groups := make(map[string]*CategoryTotal)
	var order []string
	for _, row := range c.table.Rows() {
		g := row[gi]
		if g.IsNull() {
			continue
		}
		key := g.String()
		ct, ok := groups[key]
		if !ok {
			ct = &CategoryTotal{Category: key}
			groups[key] = ct
			order = append(order, key)
		}
		if v := row[vi]; v.Kind == dataset.KindNumber {
			ct.Total += v.Num
			ct.Count++
		}
	}

	out := make([]CategoryTotal, 0, len(order))
	for _, key := range order {
		ct := groups[key]
		if ct.Count > 0 {
			ct.Mean = ct.Total / float64(ct.Count)
		}
		out = append(out, *ct)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Value(agg), out[j].Value(agg)
		if a != b {
			return a > b
		}
		return out[i].Category < out[j].Category
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

func (c *Calculator) defaultCategoryColumn() string {
	for _, col := range c.table.Columns() {
		if col.Name == c.dateColumn || col.Name == c.valueColumn {
			continue
		}
		if col.Role == dataset.RoleCategorical || col.Role == dataset.RoleText {
			return col.Name
		}
	}
	return ""
}
