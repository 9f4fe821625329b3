package dashboard

import (
	"context"
	"fmt"
	"strings"

	"kpidash/domain/dataset"
	"kpidash/internal/errors"
	"kpidash/internal/filters"
	"kpidash/internal/metrics"
	"kpidash/internal/processing"
	"kpidash/internal/profiling"
)

// ExportOptions add derived columns to exported records
type ExportOptions struct {
	Limit      int
	Periods    bool // year, month, quarter, week, weekday
	Calculated bool // percent, cumulative and moving average of the value column
	Normalize  bool // min-max copies of every numeric column
}

// Export is Records with optional enrichment. Calculated columns sort the
// rows by date.
func (s *Service) Export(ctx context.Context, state filters.State, opts ExportOptions) ([]map[string]interface{}, int, error) {
	if opts.Limit <= 0 || opts.Limit > MaxRecords {
		opts.Limit = MaxRecords
	}
	_, t, err := s.Filtered(ctx, state)
	if err != nil {
		return nil, 0, err
	}
	if opts.Normalize {
		t = processing.Normalize(t, t.NumericColumns())
	}
	if opts.Calculated {
		t = processing.AddCalculatedColumns(t, metrics.NewCalculator(t).ValueColumn())
	}
	if opts.Periods {
		t = processing.EnrichWithPeriods(t)
	}
	return Records(t.Head(opts.Limit)), t.NumRows(), nil
}

// OutlierReport lists the rows flagged by DetectOutliers
type OutlierReport struct {
	Column  string                   `json:"column"`
	Method  processing.OutlierMethod `json:"method"`
	Lower   float64                  `json:"lower"`
	Upper   float64                  `json:"upper"`
	Count   int                      `json:"count"`
	Checked int                      `json:"checked"`
	Rows    []map[string]interface{} `json:"rows"`
}

// Outliers flags unusual values of column ("" is the value column) in the
// filtered table. method is iqr or zscore.
func (s *Service) Outliers(ctx context.Context, state filters.State, column, method string) (*OutlierReport, error) {
	m := processing.OutlierMethod(strings.ToLower(method))
	if m == "" {
		m = processing.MethodIQR
	}
	if m != processing.MethodIQR && m != processing.MethodZScore {
		return nil, errors.InvalidInput(fmt.Sprintf("unknown outlier method %q, use iqr or zscore", method))
	}

	_, t, err := s.Filtered(ctx, state)
	if err != nil {
		return nil, err
	}
	if column == "" {
		column = metrics.NewCalculator(t).ValueColumn()
	}
	res, err := processing.DetectOutliers(t, column, m)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot check %q for outliers", column)
	}

	row := -1
	flagged := res.Table.Filter(func([]dataset.Value) bool {
		row++
		return res.Flags[row]
	})
	return &OutlierReport{
		Column:  column,
		Method:  m,
		Lower:   res.Lower,
		Upper:   res.Upper,
		Count:   res.Count,
		Checked: t.NumRows(),
		Rows:    Records(flagged),
	}, nil
}

// Pivot aggregates values ("" is the value column) by index and optional
// columns over the filtered table. Period columns (year, month, weekday...)
// can be used as dimensions.
func (s *Service) Pivot(ctx context.Context, state filters.State, index, columns, values, agg string) (*processing.Pivot, error) {
	a := processing.Aggregation(strings.ToLower(agg))
	if a == "" {
		a = processing.AggSum
	}
	switch a {
	case processing.AggSum, processing.AggMean, processing.AggCount:
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unknown aggregation %q, use sum, mean or count", agg))
	}
	if index == "" {
		return nil, errors.InvalidInput("index is required")
	}

	_, t, err := s.Filtered(ctx, state)
	if err != nil {
		return nil, err
	}
	if values == "" {
		values = metrics.NewCalculator(t).ValueColumn()
	}
	p, err := processing.PivotTable(processing.EnrichWithPeriods(t), index, columns, values, a)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot pivot %q by %q", values, index)
	}
	return p, nil
}

// Profile describes every column of the filtered table
func (s *Service) Profile(ctx context.Context, state filters.State) ([]profiling.ColumnProfile, error) {
	_, t, err := s.Filtered(ctx, state)
	if err != nil {
		return nil, err
	}
	return profiling.ProfileTable(t), nil
}
