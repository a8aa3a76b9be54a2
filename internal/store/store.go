// Package store persists MediaRecords across three tiers with a strict read
// precedence: primary keyed table, then blob snapshots, then an in-process
// cache that only masks first-write latency and is never authoritative.
package store

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"media-insights-go/internal/types"
)

// Tier is one durable backing store for MediaRecords.
type Tier interface {
	Put(ctx context.Context, rec *types.MediaRecord) error
	Get(ctx context.Context, id string) (*types.MediaRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*types.MediaRecord, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// BlobTier additionally supports a prefix scan of record ids, used as the
// durable-truth set during reconciliation.
type BlobTier interface {
	Tier
	ListIDs(ctx context.Context, ownerID string) ([]string, error)
}

// WriteResult reports which tier accepted a write. Durable is false only in
// the cache-only degraded state.
type WriteResult struct {
	Durable bool   `json:"durable"`
	Tier    string `json:"tier"`
}

// MultiTierStore coordinates the three tiers. Safe for concurrent use with
// distinct record ids; the cache guards its own mutation.
type MultiTierStore struct {
	primary Tier
	blob    BlobTier
	cache   *Cache
	log     *logrus.Entry
}

func NewMultiTierStore(primary Tier, blob BlobTier, cache *Cache, log *logrus.Entry) *MultiTierStore {
	return &MultiTierStore{primary: primary, blob: blob, cache: cache, log: log}
}

// Put writes the record to the primary tier, falling back to a blob snapshot
// when the primary write fails. The cache is updated best-effort either way.
// An error is returned only when both durable tiers rejected the write; the
// record then survives in the cache alone and the result says so.
func (s *MultiTierStore) Put(ctx context.Context, rec *types.MediaRecord) (WriteResult, error) {
	primaryErr := s.primary.Put(ctx, rec)
	if primaryErr == nil {
		s.cache.Put(rec)
		return WriteResult{Durable: true, Tier: "primary"}, nil
	}
	s.log.WithError(primaryErr).WithField("record_id", rec.ID).Warn("primary write failed, falling back to blob tier")

	blobErr := s.blob.Put(ctx, rec)
	if blobErr == nil {
		s.cache.Put(rec)
		return WriteResult{Durable: true, Tier: "blob"}, nil
	}
	s.log.WithError(blobErr).WithField("record_id", rec.ID).Error("blob fallback write failed")

	// Cache-only: callers must treat this as non-durable.
	s.cache.Put(rec)
	return WriteResult{Durable: false, Tier: "cache"}, errors.Join(primaryErr, blobErr)
}

// Get reads with strict tier precedence. A primary hit is authoritative and
// refreshes the cache, discarding any divergent cached copy. The blob tier is
// consulted only when the primary misses or is unreachable; the cache only
// when both durable tiers miss, and then only within the freshness window so
// deleted records are not resurrected.
func (s *MultiTierStore) Get(ctx context.Context, id string) (*types.MediaRecord, error) {
	rec, err := s.primary.Get(ctx, id)
	if err == nil {
		s.cache.Put(rec)
		return rec, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		s.log.WithError(err).WithField("record_id", id).Warn("primary read failed, trying blob tier")
	}

	rec, err = s.blob.Get(ctx, id)
	if err == nil {
		s.cache.Put(rec)
		return rec, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		s.log.WithError(err).WithField("record_id", id).Warn("blob read failed, trying cache")
	}

	if rec, ok := s.cache.GetFresh(id); ok {
		return rec, nil
	}
	return nil, types.ErrNotFound
}

// ListByOwner merges both durable tiers (primary wins per id) and appends any
// fresh cache-only records for the owner not present in either.
func (s *MultiTierStore) ListByOwner(ctx context.Context, ownerID string) ([]*types.MediaRecord, error) {
	seen := map[string]bool{}
	var out []*types.MediaRecord

	primary, primaryErr := s.primary.ListByOwner(ctx, ownerID)
	if primaryErr != nil {
		s.log.WithError(primaryErr).WithField("owner_id", ownerID).Warn("primary list failed")
	}
	for _, rec := range primary {
		seen[rec.ID] = true
		out = append(out, rec)
	}

	blob, blobErr := s.blob.ListByOwner(ctx, ownerID)
	if blobErr != nil {
		s.log.WithError(blobErr).WithField("owner_id", ownerID).Warn("blob list failed")
	}
	for _, rec := range blob {
		if !seen[rec.ID] {
			seen[rec.ID] = true
			out = append(out, rec)
		}
	}

	if primaryErr != nil && blobErr != nil {
		return nil, errors.Join(primaryErr, blobErr)
	}

	for _, rec := range s.cache.FreshByOwner(ownerID) {
		if !seen[rec.ID] {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Delete removes the record from every tier. A not-found on a durable tier is
// not an error; the goal state is absence.
func (s *MultiTierStore) Delete(ctx context.Context, ownerID, id string) error {
	var errs []error
	if err := s.primary.Delete(ctx, ownerID, id); err != nil && !errors.Is(err, types.ErrNotFound) {
		errs = append(errs, err)
	}
	if err := s.blob.Delete(ctx, ownerID, id); err != nil && !errors.Is(err, types.ErrNotFound) {
		errs = append(errs, err)
	}
	s.cache.Evict(id)
	return errors.Join(errs...)
}

// Reconcile evicts cache entries for the owner whose ids are absent from the
// blob tier's durable listing. Callers run it before multi-record operations
// where a phantom entry would corrupt the combined output. Returns the number
// of entries evicted.
func (s *MultiTierStore) Reconcile(ctx context.Context, ownerID string) (int, error) {
	ids, err := s.blob.ListIDs(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	durable := map[string]bool{}
	for _, id := range ids {
		durable[id] = true
	}

	evicted := 0
	for _, rec := range s.cache.ByOwner(ownerID) {
		if !durable[rec.ID] {
			s.cache.Evict(rec.ID)
			evicted++
		}
	}
	if evicted > 0 {
		s.log.WithFields(logrus.Fields{"owner_id": ownerID, "evicted": evicted}).Info("reconcile purged phantom cache entries")
	}
	return evicted, nil
}
