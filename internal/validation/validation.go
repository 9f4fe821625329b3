// Package validation guards the dashboard against unusable input: oversized
// or missing workbooks, empty tables, inverted date ranges and oversized text.
package validation

import (
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"kpidash/domain/core"
	"kpidash/domain/dataset"
)

// DefaultMaxFileSize is 50MB
const DefaultMaxFileSize int64 = 50 * 1024 * 1024

// DefaultMaxStringLength caps every text cell
const DefaultMaxStringLength = 1000

const bytesPerMB = 1024 * 1024

// ValidateFilePath checks the workbook exists, is a regular file and is not
// larger than maxBytes. maxBytes <= 0 uses DefaultMaxFileSize.
func ValidateFilePath(path string, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileSize
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", core.ErrFileNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrCorruptFile, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", core.ErrNotAFile, path)
	}
	if info.Size() > maxBytes {
		return core.NewFileTooLargeError(float64(info.Size())/bytesPerMB, float64(maxBytes)/bytesPerMB)
	}
	return nil
}

// ValidateTable checks the basic structure of a table
func ValidateTable(t *dataset.Table, minRows int) error {
	if t == nil {
		return fmt.Errorf("%w: no table", core.ErrEmptyTable)
	}
	if t.NumColumns() == 0 {
		return core.ErrNoColumns
	}
	if t.IsEmpty() {
		return core.ErrEmptyTable
	}
	if t.NumRows() < minRows {
		return fmt.Errorf("%w: %d rows, need at least %d", core.ErrEmptyTable, t.NumRows(), minRows)
	}
	return nil
}

// Sanitize drops rows where every cell is null and truncates text cells to
// maxLen runes. The input table is not modified.
func Sanitize(t *dataset.Table, maxLen int) *dataset.Table {
	if maxLen <= 0 {
		maxLen = DefaultMaxStringLength
	}

	rows := make([][]dataset.Value, 0, t.NumRows())
	for _, row := range t.Rows() {
		if allNull(row) {
			continue
		}
		out := make([]dataset.Value, len(row))
		for j, v := range row {
			if v.Kind == dataset.KindText {
				v = dataset.Text(TruncateString(v.Str, maxLen))
			}
			out[j] = v
		}
		rows = append(rows, out)
	}
	return dataset.NewTable(t.Columns(), rows)
}

// TruncateString cuts s to at most maxLen runes
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// ValidateDateRange rejects start after end. Either bound may be nil.
func ValidateDateRange(start, end *time.Time) error {
	if start == nil || end == nil {
		return nil
	}
	if start.After(*end) {
		return fmt.Errorf("%w: %s > %s", core.ErrInvalidDateRange,
			start.Format(core.DateLayout), end.Format(core.DateLayout))
	}
	return nil
}

// ValidateNumericColumn checks the column exists and holds at least one number
func ValidateNumericColumn(t *dataset.Table, name string) error {
	values, err := t.Values(name)
	if err != nil {
		return err
	}
	for _, v := range values {
		if v.Kind == dataset.KindNumber {
			return nil
		}
	}
	return fmt.Errorf("%w: column %q has no valid numbers", core.ErrNoNumericColumns, name)
}

func allNull(row []dataset.Value) bool {
	for _, v := range row {
		if !v.IsNull() {
			return false
		}
	}
	return true
}
