package container

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpidash/adapters/excel"
	"kpidash/internal/config"
	"kpidash/internal/testkit"
)

func loadConfig(t *testing.T, watch bool) *config.Config {
	t.Helper()
	path := testkit.FleetWorkbook(t, excel.SampleOptions{Drivers: 2, Days: 7, Start: testkit.Day(2024, 1, 8), Seed: 2})
	t.Setenv("EXCEL_FILE", path)
	t.Setenv("DATABASE_URL", "")
	if watch {
		t.Setenv("WATCH_FILE", "true")
	} else {
		t.Setenv("WATCH_FILE", "false")
	}
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNewWithoutDatabase(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, loadConfig(t, false))
	require.NoError(t, err)
	defer c.Shutdown(ctx)

	assert.Nil(t, c.DB)
	require.NotNil(t, c.History)
	require.NoError(t, c.Start(ctx))
	assert.Nil(t, c.Watcher)

	res, err := c.Service.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 14, res.Table.NumRows())

	records, err := c.History.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
}

func TestWatcherReloadsChangedWorkbook(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := loadConfig(t, true)
	c, err := New(ctx, cfg)
	require.NoError(t, err)
	defer c.Shutdown(ctx)
	require.NoError(t, c.Start(ctx))
	require.NotNil(t, c.Watcher)

	content, err := os.ReadFile(cfg.Data.ExcelFile)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.Data.ExcelFile, content, 0o644))

	require.Eventually(t, func() bool {
		records, err := c.History.Recent(ctx, 10)
		return err == nil && len(records) >= 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestShutdownIsSafeTwice(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, loadConfig(t, false))
	require.NoError(t, err)
	assert.NoError(t, c.Shutdown(ctx))
	assert.NoError(t, c.Shutdown(ctx))
}
