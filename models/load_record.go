package models

import (
	"time"

	"kpidash/domain/core"
)

// LoadStatus is the outcome of a workbook load
type LoadStatus string

const (
	LoadStatusSuccess LoadStatus = "success"
	LoadStatusError   LoadStatus = "error"
)

// LoadRecord is one entry of the load history
type LoadRecord struct {
	ID             core.LoadID `json:"id" db:"id"`
	SourceFile     string      `json:"source_file" db:"source_file"`
	Sheet          string      `json:"sheet" db:"sheet"`
	Fingerprint    string      `json:"fingerprint" db:"fingerprint"`
	Status         LoadStatus  `json:"status" db:"status"`
	ErrorCode      string      `json:"error_code,omitempty" db:"error_code"`
	ErrorMessage   string      `json:"error_message,omitempty" db:"error_message"`
	Rows           int         `json:"rows" db:"row_count"`
	Columns        int         `json:"columns" db:"column_count"`
	NumericColumns []string    `json:"numeric_columns" db:"-"`
	DurationMS     int64       `json:"duration_ms" db:"duration_ms"`
	LoadedAt       time.Time   `json:"loaded_at" db:"loaded_at"`
}

// Succeeded reports whether the load produced a table
func (r *LoadRecord) Succeeded() bool {
	return r.Status == LoadStatusSuccess
}
