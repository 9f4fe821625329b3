package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kpidash/domain/core"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	fileType := ""
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx", ".xlsm":
		fileType = "xlsx"
	case ".csv":
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// Read loads every sheet that has a header row and at least one data row
func (r *DataReader) Read(ctx context.Context) (*Workbook, error) {
	log.Printf("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", core.ErrFileNotFound, r.filePath)
	}

	var (
		wb  *Workbook
		err error
	)
	switch r.fileType {
	case "csv":
		wb, err = r.readCSVData()
	case "xlsx":
		wb, err = r.readExcelData(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, filepath.Ext(r.filePath))
	}
	if err != nil {
		return nil, err
	}

	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrNoSheets, r.filePath)
	}
	return wb, nil
}

func (r *DataReader) readExcelData(ctx context.Context) (*Workbook, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCorruptFile, err)
	}
	defer f.Close()
	log.Printf("[DataReader] Excel file opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)

	wb := &Workbook{Path: r.filePath}
	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		readStart := time.Now()
		// raw values keep numbers unformatted and dates as serials
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			log.Printf("[DataReader] WARNING: skipping sheet %q: %v", name, err)
			continue
		}
		sheet, ok := processRows(name, rows)
		if !ok {
			log.Printf("[DataReader] WARNING: skipping sheet %q: no data rows", name)
			continue
		}
		log.Printf("[DataReader] Sheet %q read in %.2fms (%d columns, %d rows)",
			name, float64(time.Since(readStart).Nanoseconds())/1e6, len(sheet.Headers), sheet.NumRows())
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

func (r *DataReader) readCSVData() (*Workbook, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCorruptFile, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCorruptFile, err)
	}
	log.Printf("[DataReader] CSV file read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	wb := &Workbook{Path: r.filePath}
	name := strings.TrimSuffix(filepath.Base(r.filePath), filepath.Ext(r.filePath))
	if sheet, ok := processRows(name, rows); ok {
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

// processRows splits header and data rows, trims cells and pads short rows
func processRows(name string, rows [][]string) (Sheet, bool) {
	if len(rows) < 2 {
		return Sheet{}, false
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}
	// cells beyond the header are widened into unnamed columns
	width := len(headers)
	for _, row := range rows[1:] {
		if len(row) > width {
			width = len(row)
		}
	}
	for len(headers) < width {
		headers = append(headers, "")
	}
	if width == 0 {
		return Sheet{}, false
	}

	dataRows := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out := make([]string, width)
		for j, cell := range row {
			out[j] = strings.TrimSpace(cell)
		}
		dataRows = append(dataRows, out)
	}

	return Sheet{Name: name, Headers: headers, Rows: dataRows}, true
}
