package processing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpidash/internal/testkit"
)

func TestPivotTable_WithColumns(t *testing.T) {
	tbl := testkit.FleetTable(
		testkit.FleetRow{Driver: "rui", Date: testkit.Day(2024, 1, 1), KM: 10},
		testkit.FleetRow{Driver: "ana", Date: testkit.Day(2024, 1, 1), KM: 20},
		testkit.FleetRow{Driver: "ana", Date: testkit.Day(2024, 1, 1), KM: 5},
		testkit.FleetRow{Driver: "ana", Date: testkit.Day(2024, 1, 2), KM: 7},
	)

	p, err := PivotTable(tbl, "motorista", "date", "km", AggSum)
	require.NoError(t, err)

	assert.Equal(t, []string{"ana", "rui"}, p.Index)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, p.Columns)
	assert.Equal(t, [][]float64{{25, 7}, {10, 0}}, p.Cells)
	assert.Equal(t, 25.0, p.Max())

	mean, err := PivotTable(tbl, "motorista", "date", "km", AggMean)
	require.NoError(t, err)
	assert.Equal(t, 12.5, mean.Cells[0][0])

	count, err := PivotTable(tbl, "motorista", "date", "km", AggCount)
	require.NoError(t, err)
	assert.Equal(t, 2.0, count.Cells[0][0])
}

func TestPivotTable_SingleColumn(t *testing.T) {
	tbl := testkit.SalesTable(
		testkit.SalesRow{Date: testkit.Day(2024, 1, 1), Category: "B", Value: 1},
		testkit.SalesRow{Date: testkit.Day(2024, 1, 2), Category: "A", Value: 2},
		testkit.SalesRow{Date: testkit.Day(2024, 1, 3), Category: "B", Value: 3},
	)

	p, err := PivotTable(tbl, "categoria", "", "valor", AggSum)
	require.NoError(t, err)
	assert.Equal(t, []string{"valor"}, p.Columns)
	assert.Equal(t, [][]float64{{2}, {4}}, p.Cells)

	out := p.ToTable()
	assert.Equal(t, []string{"categoria", "valor"}, out.ColumnNames())
	assert.Equal(t, 2, out.NumRows())
}

func TestPivotTable_NumericIndexSortsNumerically(t *testing.T) {
	tbl := EnrichWithPeriods(testkit.SalesTable(
		testkit.SalesRow{Date: testkit.Day(2024, 11, 5), Category: "A", Value: 1},
		testkit.SalesRow{Date: testkit.Day(2024, 2, 5), Category: "A", Value: 1},
	))

	p, err := PivotTable(tbl, ColMonth, "", "valor", AggCount)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "11"}, p.Index)
}

func TestPivotTable_Errors(t *testing.T) {
	tbl := testkit.SalesTable()
	_, err := PivotTable(tbl, "nope", "", "valor", AggSum)
	assert.Error(t, err)
	_, err = PivotTable(tbl, "categoria", "nope", "valor", AggSum)
	assert.Error(t, err)
	_, err = PivotTable(tbl, "categoria", "", "valor", "median")
	assert.Error(t, err)
}
