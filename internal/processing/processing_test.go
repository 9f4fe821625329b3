package processing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpidash/domain/dataset"
	"kpidash/internal/testkit"
)

func column(t *testing.T, tbl *dataset.Table, name string) []dataset.Value {
	t.Helper()
	vals, err := tbl.Values(name)
	require.NoError(t, err)
	return vals
}

func TestEnrichWithPeriods(t *testing.T) {
	tbl := testkit.SalesTable(
		testkit.SalesRow{Date: testkit.Day(2024, 2, 14), Category: "A", Value: 1},
		testkit.SalesRow{Date: testkit.Day(2024, 12, 30), Category: "B", Value: 2},
	)

	out := EnrichWithPeriods(tbl)

	for _, name := range []string{ColYear, ColMonth, ColMonthName, ColQuarter, ColWeek, ColWeekday} {
		assert.True(t, out.Has(name), name)
	}
	assert.Equal(t, 2024.0, column(t, out, ColYear)[0].Num)
	assert.Equal(t, "February", column(t, out, ColMonthName)[0].Str)
	assert.Equal(t, 1.0, column(t, out, ColQuarter)[0].Num)
	assert.Equal(t, 4.0, column(t, out, ColQuarter)[1].Num)
	assert.Equal(t, "Wednesday", column(t, out, ColWeekday)[0].Str)
	// 30 Dec 2024 belongs to ISO week 1 of 2025
	assert.Equal(t, 1.0, column(t, out, ColWeek)[1].Num)

	assert.False(t, tbl.Has(ColYear), "input is not mutated")
	assert.Equal(t, []string{"valor"}, out.NumericColumns())
}

func TestEnrichWithPeriods_NoDate(t *testing.T) {
	tbl := dataset.NewTable([]dataset.Column{{Name: "v", Role: dataset.RoleNumeric}}, [][]dataset.Value{{dataset.Number(1)}})
	assert.Same(t, tbl, EnrichWithPeriods(tbl))
}

func TestAddCalculatedColumns(t *testing.T) {
	tbl := testkit.SalesTable(
		testkit.SalesRow{Date: testkit.Day(2024, 1, 3), Category: "A", Value: 30},
		testkit.SalesRow{Date: testkit.Day(2024, 1, 1), Category: "A", Value: 10},
		testkit.SalesRow{Date: testkit.Day(2024, 1, 2), Category: "B", Value: 60},
	)

	out := AddCalculatedColumns(tbl, "valor")

	dates := column(t, out, dataset.DateColumn)
	assert.Equal(t, testkit.Day(2024, 1, 1), dates[0].Time, "sorted by date")

	pct := column(t, out, "valor_percent")
	assert.InDelta(t, 10.0, pct[0].Num, 1e-9)
	assert.InDelta(t, 60.0, pct[1].Num, 1e-9)

	cum := column(t, out, "valor_cumulative")
	assert.Equal(t, []float64{10, 70, 100}, []float64{cum[0].Num, cum[1].Num, cum[2].Num})

	avg := column(t, out, "valor_moving_avg")
	assert.Equal(t, 10.0, avg[0].Num)
	assert.Equal(t, 35.0, avg[1].Num)
	assert.InDelta(t, 100.0/3, avg[2].Num, 1e-9)
}

func TestAddCalculatedColumns_MovingWindowAndNulls(t *testing.T) {
	var rows []testkit.SalesRow
	for d := 1; d <= 9; d++ {
		rows = append(rows, testkit.SalesRow{Date: testkit.Day(2024, 1, d), Category: "A", Value: float64(d)})
	}
	rows[1].Value = math.NaN()

	out := AddCalculatedColumns(testkit.SalesTable(rows...), "valor")

	cum := column(t, out, "valor_cumulative")
	assert.True(t, cum[1].IsNull())
	assert.Equal(t, 4.0, cum[2].Num)

	avg := column(t, out, "valor_moving_avg")
	// rows 3..9
	assert.Equal(t, 6.0, avg[8].Num)
}

func TestAddCalculatedColumns_NonPositiveTotal(t *testing.T) {
	tbl := testkit.SalesTable(
		testkit.SalesRow{Date: testkit.Day(2024, 1, 1), Category: "A", Value: -5},
		testkit.SalesRow{Date: testkit.Day(2024, 1, 2), Category: "A", Value: 2},
	)

	out := AddCalculatedColumns(tbl, "valor")
	assert.False(t, out.Has("valor_percent"))
	assert.True(t, out.Has("valor_cumulative"))

	assert.Same(t, tbl, AddCalculatedColumns(tbl, "missing"))
}

func outlierFixture() *dataset.Table {
	var rows []testkit.SalesRow
	for i := 0; i < 20; i++ {
		rows = append(rows, testkit.SalesRow{Date: testkit.Day(2024, 1, i+1), Category: "A", Value: 10 + float64(i%3)})
	}
	rows = append(rows, testkit.SalesRow{Date: testkit.Day(2024, 1, 21), Category: "A", Value: 500})
	rows = append(rows, testkit.SalesRow{Date: testkit.Day(2024, 1, 22), Category: "A", Value: math.NaN()})
	return testkit.SalesTable(rows...)
}

func TestDetectOutliers_IQR(t *testing.T) {
	res, err := DetectOutliers(outlierFixture(), "valor", MethodIQR)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Count)
	assert.True(t, res.Flags[20])
	assert.False(t, res.Flags[21], "null is not an outlier")
	assert.Less(t, res.Upper, 500.0)
	assert.Greater(t, res.Upper, 12.0)
}

func TestDetectOutliers_ZScore(t *testing.T) {
	res, err := DetectOutliers(outlierFixture(), "valor", MethodZScore)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Count)
	assert.True(t, res.Flags[20])
	z := column(t, res.Table, "zscore")
	assert.Greater(t, z[20].Num, ZScoreThreshold)
	assert.True(t, z[21].IsNull())
}

func TestDetectOutliers_ConstantColumn(t *testing.T) {
	tbl := testkit.SalesTable(
		testkit.SalesRow{Date: testkit.Day(2024, 1, 1), Category: "A", Value: 5},
		testkit.SalesRow{Date: testkit.Day(2024, 1, 2), Category: "A", Value: 5},
	)

	res, err := DetectOutliers(tbl, "valor", MethodZScore)
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	assert.False(t, res.Table.Has("zscore"))
}

func TestDetectOutliers_Errors(t *testing.T) {
	_, err := DetectOutliers(outlierFixture(), "nope", MethodIQR)
	assert.Error(t, err)

	_, err = DetectOutliers(outlierFixture(), "valor", "mad")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	tbl := testkit.FleetTable(
		testkit.FleetRow{Driver: "ana", Date: testkit.Day(2024, 1, 1), KM: 100, SPR: 3},
		testkit.FleetRow{Driver: "rui", Date: testkit.Day(2024, 1, 2), KM: 200, SPR: 3},
		testkit.FleetRow{Driver: "eva", Date: testkit.Day(2024, 1, 3), KM: 150, SPR: 3},
	)

	out := Normalize(tbl, []string{"km", "spr", "motorista", "missing"})

	norm := column(t, out, "km_normalized")
	assert.Equal(t, []float64{0, 1, 0.5}, []float64{norm[0].Num, norm[1].Num, norm[2].Num})
	assert.False(t, out.Has("spr_normalized"), "constant column")
	assert.False(t, out.Has("motorista_normalized"), "not numeric")
}
