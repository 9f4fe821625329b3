package migration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSteps_AreIdempotent(t *testing.T) {
	steps := Steps()
	assert.NotEmpty(t, steps)

	for _, step := range steps {
		assert.NotEmpty(t, step.Name)
		assert.Contains(t, step.SQL, "IF NOT EXISTS", step.Name)
	}
}

func TestSteps_TableCoversRepositoryColumns(t *testing.T) {
	create := Steps()[0].SQL
	for _, col := range []string{
		"id", "source_file", "sheet", "fingerprint", "status", "error_code", "error_message",
		"row_count", "column_count", "numeric_columns", "duration_ms", "loaded_at",
	} {
		assert.True(t, strings.Contains(create, "\t"+col+" "), col)
	}
	assert.Contains(t, create, "TEXT[]")
}

func TestRunner_Version(t *testing.T) {
	assert.Equal(t, "1.0.0", NewRunner().Version())
}
