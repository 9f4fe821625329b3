// Package filters implements the sidebar: which constraints a table offers,
// how they travel in a query string and how they narrow the table.
package filters

import (
	"sort"
	"time"

	"kpidash/domain/core"
	"kpidash/domain/dataset"
)

// Limits on the category selectors
const (
	MaxCategoryColumns = 3
	MaxCategoryValues  = 50
)

// CategoryOption is one multiselect
type CategoryOption struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// Options are the choices a table offers
type Options struct {
	DateMin     *time.Time       `json:"date_min,omitempty"`
	DateMax     *time.Time       `json:"date_max,omitempty"`
	Categories  []CategoryOption `json:"categories"`
	ValueColumn string           `json:"value_column,omitempty"`
	ValueMin    float64          `json:"value_min"`
	ValueMax    float64          `json:"value_max"`
}

// HasDates reports whether a date range can be selected
func (o Options) HasDates() bool {
	return o.DateMin != nil && o.DateMax != nil
}

// BuildOptions inspects a table: the date bounds, up to three categorical
// columns with at most fifty distinct values, and the range of the primary
// value column.
func BuildOptions(t *dataset.Table) Options {
	var opts Options

	if r := t.DateRange(); r != nil {
		lo, hi := core.StartOfDay(r.Min), core.StartOfDay(r.Max)
		opts.DateMin, opts.DateMax = &lo, &hi
	}

	for _, col := range t.ColumnsWithRole(dataset.RoleCategorical) {
		if len(opts.Categories) == MaxCategoryColumns {
			break
		}
		distinct := t.Distinct(col)
		if len(distinct) == 0 || len(distinct) > MaxCategoryValues {
			continue
		}
		values := make([]string, len(distinct))
		for i, v := range distinct {
			values[i] = v.String()
		}
		sort.Strings(values)
		opts.Categories = append(opts.Categories, CategoryOption{Column: col, Values: values})
	}

	if col := t.PrimaryValueColumn(); col != "" {
		opts.ValueColumn = col
		if floats, _ := t.Floats(col); len(floats) > 0 {
			opts.ValueMin, opts.ValueMax = floats[0], floats[0]
			for _, f := range floats[1:] {
				if f < opts.ValueMin {
					opts.ValueMin = f
				}
				if f > opts.ValueMax {
					opts.ValueMax = f
				}
			}
		}
	}
	return opts
}

// Apply keeps the rows satisfying every active constraint of s. Constraints
// on columns the table does not have are ignored.
func Apply(t *dataset.Table, s State) *dataset.Table {
	if s.IsZero() {
		return t
	}

	var preds []func(row []dataset.Value) bool

	if di := t.Index(dataset.DateColumn); di >= 0 && (s.Start != nil || s.End != nil) {
		var lo, hi time.Time
		if s.Start != nil {
			lo = core.StartOfDay(*s.Start)
		}
		if s.End != nil {
			hi = core.EndOfDay(*s.End)
		}
		start, end := s.Start, s.End
		preds = append(preds, func(row []dataset.Value) bool {
			v := row[di]
			if v.Kind != dataset.KindTime {
				return false
			}
			if start != nil && v.Time.Before(lo) {
				return false
			}
			return end == nil || !v.Time.After(hi)
		})
	}

	for col, selected := range s.Categories {
		ci := t.Index(col)
		if ci < 0 || len(selected) == 0 {
			continue
		}
		set := make(map[string]bool, len(selected))
		for _, v := range selected {
			set[v] = true
		}
		preds = append(preds, func(row []dataset.Value) bool {
			v := row[ci]
			return !v.IsNull() && set[v.String()]
		})
	}

	if vi := t.Index(t.PrimaryValueColumn()); vi >= 0 && (s.ValueMin != nil || s.ValueMax != nil) {
		lo, hi := s.ValueMin, s.ValueMax
		preds = append(preds, func(row []dataset.Value) bool {
			v := row[vi]
			if v.Kind != dataset.KindNumber {
				return false
			}
			if lo != nil && v.Num < *lo {
				return false
			}
			return hi == nil || v.Num <= *hi
		})
	}

	if len(preds) == 0 {
		return t
	}
	return t.Filter(func(row []dataset.Value) bool {
		for _, p := range preds {
			if !p(row) {
				return false
			}
		}
		return true
	})
}
