package ports

import (
	"context"

	"kpidash/models"
)

// LoadHistoryRepository stores one record per workbook load
type LoadHistoryRepository interface {
	// Record appends a load. A missing ID or LoadedAt is filled in.
	Record(ctx context.Context, record *models.LoadRecord) error

	// Recent returns up to limit records, newest first
	Recent(ctx context.Context, limit int) ([]*models.LoadRecord, error)
}
