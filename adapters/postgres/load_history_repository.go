package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"kpidash/domain/core"
	apperrors "kpidash/internal/errors"
	"kpidash/models"
	"kpidash/ports"
)

// loadRecordRow is the database shape of models.LoadRecord
type loadRecordRow struct {
	models.LoadRecord
	NumericColumns pq.StringArray `db:"numeric_columns"`
}

func toRow(r *models.LoadRecord) loadRecordRow {
	return loadRecordRow{LoadRecord: *r, NumericColumns: pq.StringArray(r.NumericColumns)}
}

func (row loadRecordRow) record() *models.LoadRecord {
	r := row.LoadRecord
	r.NumericColumns = []string(row.NumericColumns)
	return &r
}

// LoadHistoryRepositoryImpl implements LoadHistoryRepository for PostgreSQL
type LoadHistoryRepositoryImpl struct {
	db *sqlx.DB
}

// NewLoadHistoryRepository creates a new PostgreSQL load history repository
func NewLoadHistoryRepository(db *sqlx.DB) ports.LoadHistoryRepository {
	return &LoadHistoryRepositoryImpl{db: db}
}

// Record inserts a load record
func (r *LoadHistoryRepositoryImpl) Record(ctx context.Context, record *models.LoadRecord) error {
	if record.ID.String() == "" {
		record.ID = core.NewLoadID()
	}
	if record.LoadedAt.IsZero() {
		record.LoadedAt = time.Now().UTC()
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO load_history (
			id, source_file, sheet, fingerprint, status, error_code, error_message,
			row_count, column_count, numeric_columns, duration_ms, loaded_at
		) VALUES (
			:id, :source_file, :sheet, :fingerprint, :status, :error_code, :error_message,
			:row_count, :column_count, :numeric_columns, :duration_ms, :loaded_at
		)
	`, toRow(record))
	return translate(err, "failed to record load")
}

// Recent returns the newest records first
func (r *LoadHistoryRepositoryImpl) Recent(ctx context.Context, limit int) ([]*models.LoadRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []loadRecordRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, source_file, sheet, fingerprint, status, error_code, error_message,
		       row_count, column_count, numeric_columns, duration_ms, loaded_at
		FROM load_history
		ORDER BY loaded_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, translate(err, "failed to list load history")
	}

	records := make([]*models.LoadRecord, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, nil
}

// translate turns driver errors into database AppErrors, pointing at the
// migrations when the table is missing
func translate(err error, message string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42P01" { // undefined_table
		message = "load_history table missing, run migrations first"
	}
	return apperrors.WithCode(apperrors.CodeDatabaseError, apperrors.Wrap(err, message))
}
