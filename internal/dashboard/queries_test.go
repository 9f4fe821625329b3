package dashboard

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpidash/domain/dataset"
	apperrors "kpidash/internal/errors"
	"kpidash/internal/filters"
	"kpidash/internal/testkit"
)

func TestService_Queries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fleetPath(t))

	kpis, err := f.svc.KPIs(ctx, filters.State{})
	require.NoError(t, err)
	assert.Equal(t, "km", kpis.ValueColumn)
	assert.Equal(t, 180, kpis.Rows)
	assert.Equal(t, 180, kpis.KPIs.Count)

	groups, err := f.svc.Breakdown(ctx, filters.State{}, "motorista", 3)
	require.NoError(t, err)
	assert.Len(t, groups, 3)

	_, err = f.svc.Breakdown(ctx, filters.State{}, "nope", 3)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))

	weekly, err := f.svc.Timeseries(ctx, filters.State{}, "w")
	require.NoError(t, err)
	assert.NotEmpty(t, weekly)

	_, err = f.svc.Timeseries(ctx, filters.State{}, "hourly")
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))

	records, total, err := f.svc.Records(ctx, filters.State{}, 5)
	require.NoError(t, err)
	assert.Equal(t, 180, total)
	require.Len(t, records, 5)
	assert.Equal(t, "2024-03-01", records[0]["date"])
	assert.IsType(t, float64(0), records[0]["km"])
}

func TestRecords_Nulls(t *testing.T) {
	tbl := testkit.SalesTable(testkit.SalesRow{Date: testkit.Day(2024, 1, 1), Category: "A", Value: math.NaN()})

	recs := Records(tbl)

	require.Len(t, recs, 1)
	assert.Nil(t, recs[0]["valor"])
	assert.Equal(t, "A", recs[0]["categoria"])
	assert.Equal(t, "2024-01-01", recs[0][dataset.DateColumn])
}
