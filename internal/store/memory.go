package store

import (
	"context"
	"sort"
	"sync"

	"media-insights-go/internal/types"
)

var _ BlobTier = (*MemoryTier)(nil)

// MemoryTier is a map-backed tier used in tests and as a stand-in when a
// durable backend is deliberately absent. FailWrites/FailReads simulate an
// unreachable backend.
type MemoryTier struct {
	mu         sync.RWMutex
	records    map[string]*types.MediaRecord
	FailWrites error
	FailReads  error
}

func NewMemoryTier() *MemoryTier {
	return &MemoryTier{records: map[string]*types.MediaRecord{}}
}

func (t *MemoryTier) Put(ctx context.Context, rec *types.MediaRecord) error {
	if t.FailWrites != nil {
		return t.FailWrites
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[rec.ID] = rec
	return nil
}

func (t *MemoryTier) Get(ctx context.Context, id string) (*types.MediaRecord, error) {
	if t.FailReads != nil {
		return nil, t.FailReads
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return rec, nil
}

func (t *MemoryTier) ListByOwner(ctx context.Context, ownerID string) ([]*types.MediaRecord, error) {
	if t.FailReads != nil {
		return nil, t.FailReads
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*types.MediaRecord
	for _, rec := range t.records {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *MemoryTier) ListIDs(ctx context.Context, ownerID string) ([]string, error) {
	if t.FailReads != nil {
		return nil, t.FailReads
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	var ids []string
	for _, rec := range t.records {
		if rec.OwnerID == ownerID {
			ids = append(ids, rec.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (t *MemoryTier) Delete(ctx context.Context, ownerID, id string) error {
	if t.FailWrites != nil {
		return t.FailWrites
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	if !ok || rec.OwnerID != ownerID {
		return types.ErrNotFound
	}
	delete(t.records, id)
	return nil
}
