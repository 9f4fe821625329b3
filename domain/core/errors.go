package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// File errors
	ErrFileNotFound      = errors.New("file not found")
	ErrNotAFile          = errors.New("path is not a file")
	ErrFileTooLarge      = errors.New("file too large")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrCorruptFile       = errors.New("file could not be read")

	// Table errors
	ErrNoSheets         = errors.New("workbook has no usable sheets")
	ErrEmptyTable       = errors.New("table is empty")
	ErrNoColumns        = errors.New("table has no columns")
	ErrNoNumericColumns = errors.New("table has no numeric columns")
	ErrColumnNotFound   = errors.New("column not found")

	// Query errors
	ErrInvalidDateRange = errors.New("start date is after end date")
	ErrNotEnoughData    = errors.New("not enough data")
)

// Error constructors with context
func NewFileTooLargeError(sizeMB, limitMB float64) error {
	return fmt.Errorf("%w: %.2fMB (max: %.0fMB)", ErrFileTooLarge, sizeMB, limitMB)
}

func NewColumnNotFoundError(column string) error {
	return fmt.Errorf("%w: %s", ErrColumnNotFound, column)
}

// Error checking helpers
func IsFileError(err error) bool {
	return errors.Is(err, ErrFileNotFound) ||
		errors.Is(err, ErrNotAFile) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrCorruptFile)
}

func IsTableError(err error) bool {
	return errors.Is(err, ErrNoSheets) ||
		errors.Is(err, ErrEmptyTable) ||
		errors.Is(err, ErrNoColumns) ||
		errors.Is(err, ErrNoNumericColumns)
}
