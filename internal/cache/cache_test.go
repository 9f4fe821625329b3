package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpidash/domain/core"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type fakeFiles struct {
	mu  sync.Mutex
	fps map[string]core.FileFingerprint
}

func (f *fakeFiles) Fingerprint(path string) (core.FileFingerprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fp, ok := f.fps[path]
	if !ok {
		return "", errors.New("missing")
	}
	return fp, nil
}

func (f *fakeFiles) Set(path string, fp core.FileFingerprint) {
	f.mu.Lock()
	f.fps[path] = fp
	f.mu.Unlock()
}

func newTestCache(ttl time.Duration) (*Cache[string], *fakeClock, *fakeFiles) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	files := &fakeFiles{fps: map[string]core.FileFingerprint{"data.xlsx": "v1"}}
	c := New[string](ttl)
	c.now = clock.Now
	c.fingerprint = files.Fingerprint
	return c, clock, files
}

func counting(calls *atomic.Int32, value string) LoadFunc[string] {
	return func(ctx context.Context) (string, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestGetCachesUntilTTL(t *testing.T) {
	c, clock, _ := newTestCache(time.Hour)
	ctx := context.Background()
	var calls atomic.Int32

	v, hit, err := c.Get(ctx, "data.xlsx", counting(&calls, "a"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.False(t, hit)

	v, hit, err = c.Get(ctx, "data.xlsx", counting(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.True(t, hit)

	clock.Advance(time.Hour)
	v, hit, err = c.Get(ctx, "data.xlsx", counting(&calls, "c"))
	require.NoError(t, err)
	assert.Equal(t, "c", v)
	assert.False(t, hit)
	assert.Equal(t, int32(2), calls.Load())

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestGetReloadsWhenFileChanges(t *testing.T) {
	c, _, files := newTestCache(time.Hour)
	ctx := context.Background()
	var calls atomic.Int32

	_, _, err := c.Get(ctx, "data.xlsx", counting(&calls, "a"))
	require.NoError(t, err)

	files.Set("data.xlsx", "v2")
	v, hit, err := c.Get(ctx, "data.xlsx", counting(&calls, "b"))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "b", v)
}

func TestGetDoesNotCacheErrors(t *testing.T) {
	c, _, _ := newTestCache(time.Hour)
	ctx := context.Background()
	boom := errors.New("boom")

	_, _, err := c.Get(ctx, "data.xlsx", func(context.Context) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Stats().Entries)

	v, _, err := c.Get(ctx, "data.xlsx", func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestConcurrentMissesShareOneLoad(t *testing.T) {
	c, _, _ := newTestCache(time.Hour)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := c.Get(ctx, "data.xlsx", load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "shared", v)
	}
}

func TestGetHonoursCallerContext(t *testing.T) {
	c, _, _ := newTestCache(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	defer close(release)
	_, _, err := c.Get(ctx, "data.xlsx", func(context.Context) (string, error) {
		<-release
		return "late", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	c, _, _ := newTestCache(time.Hour)
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (string, error) {
		close(started)
		select {
		case <-release:
			return "loaded", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, _, err := c.Get(leaderCtx, "data.xlsx", load)
		leaderErr <- err
	}()
	<-started

	type result struct {
		value string
		err   error
	}
	follower := make(chan result, 1)
	go func() {
		v, _, err := c.Get(context.Background(), "data.xlsx", load)
		follower <- result{v, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancelLeader()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	close(release)

	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, "loaded", got.value)

	v, hit, err := c.Get(context.Background(), "data.xlsx", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "loaded", v)
}

func TestInvalidateAndPurge(t *testing.T) {
	c, _, _ := newTestCache(time.Hour)
	ctx := context.Background()
	var calls atomic.Int32

	_, _, _ = c.Get(ctx, "data.xlsx", counting(&calls, "a"))
	_, ok := c.LoadedAt("data.xlsx")
	assert.True(t, ok)

	c.Invalidate("data.xlsx")
	_, ok = c.LoadedAt("data.xlsx")
	assert.False(t, ok)

	_, hit, _ := c.Get(ctx, "data.xlsx", counting(&calls, "b"))
	assert.False(t, hit)

	c.Purge()
	assert.Equal(t, 0, c.Stats().Entries)
	assert.Equal(t, int64(2), c.Stats().Invalidations)
}

func TestNewDefaultsTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, New[int](0).TTL())
}
