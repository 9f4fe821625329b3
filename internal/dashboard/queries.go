package dashboard

import (
	"context"

	"kpidash/domain/core"
	"kpidash/domain/dataset"
	"kpidash/internal/errors"
	"kpidash/internal/filters"
	"kpidash/internal/metrics"
)

// MaxRecords caps the rows returned by Records
const MaxRecords = 5000

// KPIResult is the KPI block of the JSON API
type KPIResult struct {
	ValueColumn string              `json:"value_column"`
	KPIs        metrics.KPIs        `json:"kpis"`
	Cards       []Card              `json:"cards"`
	Growth      *metrics.Comparison `json:"growth,omitempty"`
	Rows        int                 `json:"rows"`
}

// KPIs computes the KPI block for a filter state
func (s *Service) KPIs(ctx context.Context, state filters.State) (*KPIResult, error) {
	view, err := s.Build(ctx, state)
	if err != nil {
		return nil, err
	}
	return &KPIResult{
		ValueColumn: view.ValueColumn,
		KPIs:        view.KPIs,
		Cards:       view.Cards,
		Growth:      view.Growth,
		Rows:        view.FilteredRows,
	}, nil
}

// Breakdown groups the filtered value column by column ("" picks the first
// categorical column)
func (s *Service) Breakdown(ctx context.Context, state filters.State, column string, top int) ([]metrics.CategoryTotal, error) {
	_, filtered, err := s.Filtered(ctx, state)
	if err != nil {
		return nil, err
	}
	groups, err := metrics.NewCalculator(filtered).CategoryBreakdown(column, top)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot break down by %q", column)
	}
	return groups, nil
}

// Timeseries resamples the filtered value column
func (s *Service) Timeseries(ctx context.Context, state filters.State, freq string) ([]metrics.Bucket, error) {
	f, err := metrics.ParseFrequency(freq)
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}
	_, filtered, err := s.Filtered(ctx, state)
	if err != nil {
		return nil, err
	}
	return metrics.NewCalculator(filtered).TemporalAggregation(f, nil, nil)
}

// Records returns up to limit filtered rows keyed by column name. Dates are
// YYYY-MM-DD and nulls are nil.
func (s *Service) Records(ctx context.Context, state filters.State, limit int) ([]map[string]interface{}, int, error) {
	if limit <= 0 || limit > MaxRecords {
		limit = MaxRecords
	}
	_, filtered, err := s.Filtered(ctx, state)
	if err != nil {
		return nil, 0, err
	}
	return Records(filtered.Head(limit)), filtered.NumRows(), nil
}

// Records converts a table to JSON friendly maps
func Records(t *dataset.Table) []map[string]interface{} {
	names := t.ColumnNames()
	out := make([]map[string]interface{}, t.NumRows())
	for i, row := range t.Rows() {
		rec := make(map[string]interface{}, len(names))
		for c, v := range row {
			rec[names[c]] = jsonValue(v)
		}
		out[i] = rec
	}
	return out
}

func jsonValue(v dataset.Value) interface{} {
	switch v.Kind {
	case dataset.KindNumber:
		return v.Num
	case dataset.KindText:
		return v.Str
	case dataset.KindTime:
		return v.Time.Format(core.DateLayout)
	}
	return nil
}
