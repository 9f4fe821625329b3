package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpidash/adapters/excel"
	apperrors "kpidash/internal/errors"
	"kpidash/internal/filters"
	"kpidash/internal/processing"
	"kpidash/internal/testkit"
)

func TestService_Export(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fleetPath(t))

	plain, total, err := f.svc.Export(ctx, filters.State{}, ExportOptions{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 180, total)
	require.Len(t, plain, 3)
	assert.NotContains(t, plain[0], processing.ColWeekday)

	enriched, _, err := f.svc.Export(ctx, filters.State{}, ExportOptions{Limit: 3, Periods: true, Calculated: true, Normalize: true})
	require.NoError(t, err)
	require.Len(t, enriched, 3)
	for _, key := range []string{processing.ColYear, processing.ColWeekday, "km_percent", "km_cumulative", "km_moving_avg", "km_normalized"} {
		assert.Contains(t, enriched[0], key)
	}
	assert.Equal(t, "2024-03-01", enriched[0]["date"])
}

func TestService_Outliers(t *testing.T) {
	ctx := context.Background()
	rows := []testkit.FleetRow{}
	for i := 0; i < 20; i++ {
		rows = append(rows, testkit.FleetRow{Driver: "Ana Souza", Date: testkit.Day(2024, 1, i+1), KM: 100, ORH: 8, Stops: 20, SPR: 50})
	}
	rows[7].KM = 900
	path := testkit.WriteWorkbook(t, testkit.FleetSheet(rows...))
	f := newFixture(t, path)

	report, err := f.svc.Outliers(ctx, filters.State{}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "km", report.Column)
	assert.Equal(t, processing.MethodIQR, report.Method)
	assert.Equal(t, 1, report.Count)
	assert.Equal(t, 20, report.Checked)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, 900.0, report.Rows[0]["km"])

	_, err = f.svc.Outliers(ctx, filters.State{}, "km", "dbscan")
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))

	_, err = f.svc.Outliers(ctx, filters.State{}, "nope", "zscore")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))
}

func TestService_Pivot(t *testing.T) {
	ctx := context.Background()
	path := testkit.FleetWorkbook(t, excel.SampleOptions{Drivers: 3, Days: 14, Start: testkit.Day(2024, 4, 1), Seed: 8})
	f := newFixture(t, path)

	p, err := f.svc.Pivot(ctx, filters.State{}, "motorista", processing.ColWeekday, "", "count")
	require.NoError(t, err)
	assert.Len(t, p.Index, 3)
	assert.Len(t, p.Columns, 7)
	for _, row := range p.Cells {
		for _, cell := range row {
			assert.Equal(t, 2.0, cell)
		}
	}

	_, err = f.svc.Pivot(ctx, filters.State{}, "motorista", "", "km", "median")
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))

	_, err = f.svc.Pivot(ctx, filters.State{}, "", "", "km", "sum")
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))
}

func TestService_Profile(t *testing.T) {
	f := newFixture(t, fleetPath(t))

	profiles, err := f.svc.Profile(context.Background(), filters.State{Categories: map[string][]string{"motorista": {"Ana Souza"}}})
	require.NoError(t, err)
	require.NotEmpty(t, profiles)

	byName := map[string]int{}
	for i, p := range profiles {
		byName[p.Column] = i
	}
	driver := profiles[byName["motorista"]]
	assert.Equal(t, 1, driver.Distinct)
	assert.Equal(t, 30, driver.Count)

	km := profiles[byName["km"]]
	require.NotNil(t, km.Distribution)
	assert.GreaterOrEqual(t, km.Distribution.Min, 80.0)
	assert.LessOrEqual(t, km.Distribution.Max, 200.0)
}
