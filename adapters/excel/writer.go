package excel

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/xuri/excelize/v2"
)

// WriteSheets writes the given sheets to a new workbook at path
func WriteSheets(path string, sheets ...SheetData) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", sheet.Name, err)
		}

		header := make([]interface{}, len(sheet.Headers))
		for j, h := range sheet.Headers {
			header[j] = h
		}
		if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
			return fmt.Errorf("failed to write header of %q: %w", sheet.Name, err)
		}

		for r, row := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			values := row
			if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
				return fmt.Errorf("failed to write row %d of %q: %w", r+2, sheet.Name, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// SampleOptions shapes the generated demo workbook
type SampleOptions struct {
	Drivers int
	Days    int
	Start   time.Time
	Seed    int64
}

// DefaultSampleOptions covers a quarter of daily runs for eight drivers
func DefaultSampleOptions() SampleOptions {
	return SampleOptions{
		Drivers: 8,
		Days:    90,
		Start:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Seed:    42,
	}
}

var sampleDrivers = []string{
	"Ana Souza", "Bruno Lima", "Carla Dias", "Diego Alves",
	"Elisa Rocha", "Felipe Castro", "Gabriela Nunes", "Henrique Melo",
	"Igor Pires", "Julia Ramos",
}

// SampleHeaders are the columns of the performance sheet
var SampleHeaders = []string{"Motorista", "Data", "KM", "ORH", "Paradas", "SPR", "Insucessos", "CR", "DS", "Rota"}

// SampleSheet builds the driver performance sheet: one row per driver per day
func SampleSheet(opts SampleOptions) SheetData {
	if opts.Drivers <= 0 || opts.Drivers > len(sampleDrivers) {
		opts.Drivers = len(sampleDrivers)
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	rows := make([][]interface{}, 0, opts.Drivers*opts.Days)
	for d := 0; d < opts.Days; d++ {
		day := opts.Start.AddDate(0, 0, d)
		for i := 0; i < opts.Drivers; i++ {
			km := round2(80 + rng.Float64()*120)
			stops := 6 + rng.Intn(18)
			failures := 0
			if rng.Float64() < 0.2 {
				failures = 1 + rng.Intn(2)
			}
			rows = append(rows, []interface{}{
				sampleDrivers[i],
				day,
				km,
				round2(6 + rng.Float64()*4),
				stops,
				stops*4 + rng.Intn(20),
				failures,
				0,
				round2(100 - float64(failures)*1.5),
				fmt.Sprintf("R%02d", 1+i%5),
			})
		}
	}

	return SheetData{
		Name:    "performance",
		Headers: SampleHeaders,
		Rows:    rows,
	}
}

// WriteSample writes the demo workbook. A second, header-only sheet is added
// so readers see a sheet that gets skipped.
func WriteSample(path string, opts SampleOptions) error {
	return WriteSheets(path,
		SampleSheet(opts),
		SheetData{Name: "notas", Headers: []string{"Observação"}},
	)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
