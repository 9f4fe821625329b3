// Package memory holds in-process repository implementations used when no
// database is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"kpidash/domain/core"
	"kpidash/models"
	"kpidash/ports"
)

// DefaultHistorySize is the number of loads kept in memory
const DefaultHistorySize = 100

// LoadHistoryRepository is a fixed size ring of load records
type LoadHistoryRepository struct {
	mu      sync.RWMutex
	records []*models.LoadRecord
	next    int
	full    bool
}

// NewLoadHistoryRepository creates a ring keeping the last size records
func NewLoadHistoryRepository(size int) ports.LoadHistoryRepository {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &LoadHistoryRepository{records: make([]*models.LoadRecord, size)}
}

// Record stores a copy of record, overwriting the oldest when full
func (r *LoadHistoryRepository) Record(ctx context.Context, record *models.LoadRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.ID.String() == "" {
		record.ID = core.NewLoadID()
	}
	if record.LoadedAt.IsZero() {
		record.LoadedAt = time.Now().UTC()
	}
	cp := *record
	cp.NumericColumns = append([]string(nil), record.NumericColumns...)

	r.mu.Lock()
	r.records[r.next] = &cp
	r.next = (r.next + 1) % len(r.records)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()
	return nil
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (r *LoadHistoryRepository) Recent(ctx context.Context, limit int) ([]*models.LoadRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.next
	if r.full {
		n = len(r.records)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*models.LoadRecord, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (r.next - 1 - i + len(r.records)) % len(r.records)
		cp := *r.records[idx]
		out = append(out, &cp)
	}
	return out, nil
}
