// Package testkit builds workbook and table fixtures for tests.
package testkit

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kpidash/adapters/excel"
	"kpidash/domain/dataset"
)

// WriteWorkbook writes sheets to a temp .xlsx and returns its path
func WriteWorkbook(t testing.TB, sheets ...excel.SheetData) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.xlsx")
	require.NoError(t, excel.WriteSheets(path, sheets...))
	return path
}

// FleetWorkbook writes the driver performance workbook
func FleetWorkbook(t testing.TB, opts excel.SampleOptions) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.xlsx")
	require.NoError(t, excel.WriteSample(path, opts))
	return path
}

// SalesWorkbook writes a generated sales sheet named "vendas"
func SalesWorkbook(t testing.TB, config SalesGeneratorConfig) string {
	t.Helper()
	return WriteWorkbook(t, NewSalesGenerator(config).Sheet("vendas"))
}

// Day is a UTC midnight
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// FleetRow is one line of FleetTable
type FleetRow struct {
	Driver string
	Date   time.Time
	KM     float64
	ORH    float64
	Stops  float64
	SPR    float64
}

// FleetSheet is the workbook form of rows, with the fleet headers
func FleetSheet(rows ...FleetRow) excel.SheetData {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		out[i] = []interface{}{r.Driver, r.Date, r.KM, r.ORH, r.Stops, r.SPR}
	}
	return excel.SheetData{
		Name:    "performance",
		Headers: []string{"Motorista", "Data", "KM", "ORH", "Paradas", "SPR"},
		Rows:    out,
	}
}

// FleetTable builds an already typed fleet table without touching disk
func FleetTable(rows ...FleetRow) *dataset.Table {
	cols := []dataset.Column{
		{Name: "motorista", Role: dataset.RoleCategorical},
		{Name: dataset.DateColumn, Role: dataset.RoleDate},
		{Name: "km", Role: dataset.RoleNumeric},
		{Name: "orh", Role: dataset.RoleNumeric},
		{Name: "paradas", Role: dataset.RoleNumeric},
		{Name: "spr", Role: dataset.RoleNumeric},
	}
	out := make([][]dataset.Value, len(rows))
	for i, r := range rows {
		out[i] = []dataset.Value{
			dataset.Text(r.Driver),
			dataset.Timestamp(r.Date),
			dataset.Number(r.KM),
			dataset.Number(r.ORH),
			dataset.Number(r.Stops),
			dataset.Number(r.SPR),
		}
	}
	return dataset.NewTable(cols, out)
}

// SalesRow is one line of SalesTable
type SalesRow struct {
	Date     time.Time
	Category string
	Value    float64
}

// SalesTable builds a typed date/categoria/valor table. A NaN value becomes null.
func SalesTable(rows ...SalesRow) *dataset.Table {
	cols := []dataset.Column{
		{Name: dataset.DateColumn, Role: dataset.RoleDate},
		{Name: "categoria", Role: dataset.RoleCategorical},
		{Name: "valor", Role: dataset.RoleNumeric},
	}
	out := make([][]dataset.Value, len(rows))
	for i, r := range rows {
		value := dataset.Number(r.Value)
		if math.IsNaN(r.Value) {
			value = dataset.Null
		}
		out[i] = []dataset.Value{dataset.Timestamp(r.Date), dataset.Text(r.Category), value}
	}
	return dataset.NewTable(cols, out)
}
