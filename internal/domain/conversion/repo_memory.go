package conversion

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// recordRepoMemory keeps the most recent maxEntries records in insertion order.
// Older records are dropped once the limit is reached.
type recordRepoMemory struct {
	mu      sync.RWMutex
	limit   int
	records []*Record
	byID    map[uuid.UUID]*Record
}

func NewRecordRepoMemory(maxEntries int) RecordRepository {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &recordRepoMemory{limit: maxEntries, byID: make(map[uuid.UUID]*Record)}
}

func (r *recordRepoMemory) Create(_ context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	stored := *rec

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) >= r.limit {
		evict := len(r.records) - r.limit + 1
		for _, old := range r.records[:evict] {
			delete(r.byID, old.ID)
		}
		r.records = append(r.records[:0:0], r.records[evict:]...)
	}
	r.records = append(r.records, &stored)
	r.byID[stored.ID] = &stored
	return nil
}

func (r *recordRepoMemory) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (r *recordRepoMemory) List(_ context.Context, filter ListFilter, limit, offset int) ([]*Record, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := []*Record{}
	total := 0
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if !filter.matches(rec) {
			continue
		}
		if total >= offset && len(items) < limit {
			out := *rec
			items = append(items, &out)
		}
		total++
	}
	return items, total, nil
}
