package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpidash/models"
)

func TestLoadHistoryRepository_RecordAndRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewLoadHistoryRepository(3)

	for i := 1; i <= 2; i++ {
		require.NoError(t, repo.Record(ctx, &models.LoadRecord{SourceFile: fmt.Sprintf("f%d.xlsx", i), Status: models.LoadStatusSuccess}))
	}

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "f2.xlsx", recent[0].SourceFile)
	assert.Equal(t, "f1.xlsx", recent[1].SourceFile)
	assert.NotEmpty(t, recent[0].ID)
	assert.False(t, recent[0].LoadedAt.IsZero())
}

func TestLoadHistoryRepository_Wraps(t *testing.T) {
	ctx := context.Background()
	repo := NewLoadHistoryRepository(3)

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Record(ctx, &models.LoadRecord{Rows: i}))
	}

	recent, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []int{5, 4, 3}, []int{recent[0].Rows, recent[1].Rows, recent[2].Rows})

	top, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, top[0].Rows)
}

func TestLoadHistoryRepository_StoresCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewLoadHistoryRepository(0)

	rec := &models.LoadRecord{NumericColumns: []string{"km"}}
	require.NoError(t, repo.Record(ctx, rec))
	rec.NumericColumns[0] = "changed"

	recent, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"km"}, recent[0].NumericColumns)

	empty, err := NewLoadHistoryRepository(2).Recent(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLoadHistoryRepository_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewLoadHistoryRepository(2)
	assert.Error(t, repo.Record(ctx, &models.LoadRecord{}))
	_, err := repo.Recent(ctx, 1)
	assert.Error(t, err)
}
