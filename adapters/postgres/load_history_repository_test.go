package postgres

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	apperrors "kpidash/internal/errors"
	"kpidash/models"
)

func TestLoadRecordRow_RoundTrip(t *testing.T) {
	rec := &models.LoadRecord{
		ID:             "0190c1f2-0000-7000-8000-000000000001",
		SourceFile:     "data/dashboard.xlsx",
		Status:         models.LoadStatusSuccess,
		Rows:           720,
		NumericColumns: []string{"km", "spr"},
		LoadedAt:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	row := toRow(rec)
	assert.Equal(t, pq.StringArray{"km", "spr"}, row.NumericColumns)

	back := row.record()
	assert.Equal(t, rec.NumericColumns, back.NumericColumns)
	assert.Equal(t, rec.Rows, back.Rows)
	assert.Equal(t, rec.ID, back.ID)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil, "ignored"))

	err := translate(&pq.Error{Code: "42P01", Message: `relation "load_history" does not exist`}, "failed to record load")
	assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "run migrations")

	var pqErr *pq.Error
	assert.True(t, stderrors.As(err, &pqErr))

	err = translate(stderrors.New("connection refused"), "failed to list load history")
	assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "failed to list load history")
}
