// Package processing enriches tables with derived columns and builds
// analytical views (outliers, pivots, normalization).
package processing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"kpidash/domain/core"
	"kpidash/domain/dataset"
)

// Period column names added by EnrichWithPeriods
const (
	ColYear      = "year"
	ColMonth     = "month"
	ColMonthName = "month_name"
	ColQuarter   = "quarter"
	ColWeek      = "week"
	ColWeekday   = "weekday"
)

// MovingAverageWindow is the row window of <value>_moving_avg
const MovingAverageWindow = 7

// EnrichWithPeriods adds calendar columns derived from the date column.
// Tables without dates are returned unchanged.
func EnrichWithPeriods(t *dataset.Table) *dataset.Table {
	di := t.Index(dataset.DateColumn)
	if di < 0 {
		return t
	}

	period := func(name string, f func(d dataset.Value) dataset.Value) {
		t = t.WithColumn(dataset.Column{Name: name, Role: dataset.RoleCategorical}, func(_ int, row []dataset.Value) dataset.Value {
			if row[di].Kind != dataset.KindTime {
				return dataset.Null
			}
			return f(row[di])
		})
	}

	period(ColYear, func(d dataset.Value) dataset.Value { return dataset.Number(float64(d.Time.Year())) })
	period(ColMonth, func(d dataset.Value) dataset.Value { return dataset.Number(float64(d.Time.Month())) })
	period(ColMonthName, func(d dataset.Value) dataset.Value { return dataset.Text(d.Time.Month().String()) })
	period(ColQuarter, func(d dataset.Value) dataset.Value { return dataset.Number(float64((int(d.Time.Month())-1)/3 + 1)) })
	period(ColWeek, func(d dataset.Value) dataset.Value {
		_, week := d.Time.ISOWeek()
		return dataset.Number(float64(week))
	})
	period(ColWeekday, func(d dataset.Value) dataset.Value { return dataset.Text(d.Time.Weekday().String()) })
	return t
}

// AddCalculatedColumns adds <value>_percent (share of the total, only when
// the total is positive), then sorts by date and adds <value>_cumulative and
// <value>_moving_avg over MovingAverageWindow rows.
func AddCalculatedColumns(t *dataset.Table, value string) *dataset.Table {
	vi := t.Index(value)
	if vi < 0 {
		return t
	}

	values, _ := t.Floats(value)
	if total := floats.Sum(values); total > 0 {
		t = t.WithColumn(dataset.Column{Name: value + "_percent", Role: dataset.RoleNumeric}, func(_ int, row []dataset.Value) dataset.Value {
			if row[vi].Kind != dataset.KindNumber {
				return dataset.Null
			}
			return dataset.Number(row[vi].Num / total * 100)
		})
	}

	hasDate := t.Has(dataset.DateColumn)
	if hasDate {
		t = t.SortBy(dataset.DateColumn, true)
	}

	running := 0.0
	t = t.WithColumn(dataset.Column{Name: value + "_cumulative", Role: dataset.RoleNumeric}, func(_ int, row []dataset.Value) dataset.Value {
		if row[vi].Kind != dataset.KindNumber {
			return dataset.Null
		}
		running += row[vi].Num
		return dataset.Number(running)
	})

	if !hasDate {
		return t
	}
	rows := t.Rows()
	return t.WithColumn(dataset.Column{Name: value + "_moving_avg", Role: dataset.RoleNumeric}, func(i int, _ []dataset.Value) dataset.Value {
		window := make([]float64, 0, MovingAverageWindow)
		for j := max(0, i-MovingAverageWindow+1); j <= i; j++ {
			if v := rows[j][vi]; v.Kind == dataset.KindNumber {
				window = append(window, v.Num)
			}
		}
		if len(window) == 0 {
			return dataset.Null
		}
		return dataset.Number(stat.Mean(window, nil))
	})
}

// OutlierMethod selects the rule used by DetectOutliers
type OutlierMethod string

const (
	MethodIQR    OutlierMethod = "iqr"
	MethodZScore OutlierMethod = "zscore"
)

// ZScoreThreshold is the |z| above which a value is an outlier
const ZScoreThreshold = 3.0

// Outliers is the result of DetectOutliers. Flags is aligned with the rows
// of Table; null cells are never outliers.
type Outliers struct {
	Table  *dataset.Table
	Flags  []bool
	Count  int
	Lower  float64
	Upper  float64
	Method OutlierMethod
}

// DetectOutliers flags values outside the 1.5 IQR fences, or with |z| > 3.
// The zscore method adds a "zscore" column and flags nothing when the
// standard deviation is zero.
func DetectOutliers(t *dataset.Table, column string, method OutlierMethod) (*Outliers, error) {
	ci := t.Index(column)
	if ci < 0 {
		return nil, core.NewColumnNotFoundError(column)
	}
	values, _ := t.Floats(column)
	out := &Outliers{Table: t, Flags: make([]bool, t.NumRows()), Method: method}
	if len(values) == 0 {
		return out, nil
	}

	switch method {
	case MethodIQR:
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
		q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
		iqr := q3 - q1
		out.Lower, out.Upper = q1-1.5*iqr, q3+1.5*iqr
	case MethodZScore:
		mean, std := stat.MeanStdDev(values, nil)
		if std == 0 || math.IsNaN(std) {
			return out, nil
		}
		out.Lower, out.Upper = mean-ZScoreThreshold*std, mean+ZScoreThreshold*std
		out.Table = t.WithColumn(dataset.Column{Name: "zscore", Role: dataset.RoleNumeric}, func(_ int, row []dataset.Value) dataset.Value {
			if row[ci].Kind != dataset.KindNumber {
				return dataset.Null
			}
			return dataset.Number(math.Abs((row[ci].Num - mean) / std))
		})
	default:
		return nil, fmt.Errorf("unknown outlier method %q", method)
	}

	for i, row := range t.Rows() {
		v := row[ci]
		if v.Kind == dataset.KindNumber && (v.Num < out.Lower || v.Num > out.Upper) {
			out.Flags[i] = true
			out.Count++
		}
	}
	return out, nil
}

// Normalize adds <c>_normalized min-max scaled to [0, 1] for every numeric
// column in columns whose max exceeds its min
func Normalize(t *dataset.Table, columns []string) *dataset.Table {
	for _, name := range columns {
		col, err := t.Column(name)
		if err != nil || col.Role != dataset.RoleNumeric {
			continue
		}
		values, _ := t.Floats(name)
		if len(values) == 0 {
			continue
		}
		lo, hi := floats.Min(values), floats.Max(values)
		if hi <= lo {
			continue
		}
		ci := t.Index(name)
		t = t.WithColumn(dataset.Column{Name: name + "_normalized", Role: dataset.RoleNumeric}, func(_ int, row []dataset.Value) dataset.Value {
			if row[ci].Kind != dataset.KindNumber {
				return dataset.Null
			}
			return dataset.Number((row[ci].Num - lo) / (hi - lo))
		})
	}
	return t
}
