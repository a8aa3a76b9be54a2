package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-insights-go/internal/types"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func rec(id, owner, title string) *types.MediaRecord {
	return &types.MediaRecord{
		ID:      id,
		OwnerID: owner,
		Title:   title,
		Source:  types.SourceLocator{Bucket: "media", Key: id + ".mp4"},
		Insights: map[types.InsightKind]any{
			types.InsightSummary: "summary of " + id,
		},
		Embeddings: map[types.EmbeddingKind][]float64{
			types.EmbeddingContent: {0.1, 0.2},
			types.EmbeddingMedia:   {0.3, 0.4},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func newTestStore() (*MultiTierStore, *MemoryTier, *MemoryTier, *Cache) {
	primary := NewMemoryTier()
	blob := NewMemoryTier()
	cache := NewCache(5 * time.Minute)
	return NewMultiTierStore(primary, blob, cache, testLogger()), primary, blob, cache
}

func TestPut_PrimaryAccepted(t *testing.T) {
	s, primary, blob, cache := newTestStore()

	res, err := s.Put(context.Background(), rec("m1", "alice", "demo"))
	require.NoError(t, err)
	assert.True(t, res.Durable)
	assert.Equal(t, "primary", res.Tier)

	_, err = primary.Get(context.Background(), "m1")
	require.NoError(t, err)
	_, err = blob.Get(context.Background(), "m1")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, ok := cache.GetFresh("m1")
	assert.True(t, ok)
}

func TestPut_FallsBackToBlob(t *testing.T) {
	s, primary, blob, _ := newTestStore()
	primary.FailWrites = errors.New("primary down")

	res, err := s.Put(context.Background(), rec("m1", "alice", "demo"))
	require.NoError(t, err)
	assert.True(t, res.Durable)
	assert.Equal(t, "blob", res.Tier)

	_, err = blob.Get(context.Background(), "m1")
	require.NoError(t, err)
}

func TestPut_CacheOnlyIsNonDurable(t *testing.T) {
	s, primary, blob, cache := newTestStore()
	primary.FailWrites = errors.New("primary down")
	blob.FailWrites = errors.New("blob down")

	res, err := s.Put(context.Background(), rec("m1", "alice", "demo"))
	require.Error(t, err)
	assert.False(t, res.Durable)
	assert.Equal(t, "cache", res.Tier)

	// the record still masks latency for fresh reads
	_, ok := cache.GetFresh("m1")
	assert.True(t, ok)
}

// Primary content wins over a divergent blob copy, and the stale cached copy
// is replaced by the authoritative answer.
func TestGet_PrimaryPrecedence(t *testing.T) {
	s, primary, blob, cache := newTestStore()
	ctx := context.Background()

	require.NoError(t, primary.Put(ctx, rec("m1", "alice", "from-primary")))
	require.NoError(t, blob.Put(ctx, rec("m1", "alice", "from-blob")))
	cache.Put(rec("m1", "alice", "from-cache"))

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "from-primary", got.Title)

	cached, ok := cache.GetFresh("m1")
	require.True(t, ok)
	assert.Equal(t, "from-primary", cached.Title, "cache must be refreshed from the authoritative read")
}

func TestGet_BlobWhenPrimaryMisses(t *testing.T) {
	s, _, blob, _ := newTestStore()
	ctx := context.Background()
	require.NoError(t, blob.Put(ctx, rec("m1", "alice", "from-blob")))

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "from-blob", got.Title)
}

func TestGet_BlobWhenPrimaryUnreachable(t *testing.T) {
	s, primary, blob, _ := newTestStore()
	ctx := context.Background()
	require.NoError(t, blob.Put(ctx, rec("m1", "alice", "from-blob")))
	primary.FailReads = errors.New("primary down")

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "from-blob", got.Title)
}

// A cache entry with no durable backing answers only within the freshness
// window; past it, the read is NotFound rather than a resurrected phantom.
func TestGet_StaleCacheIsNotAuthoritative(t *testing.T) {
	s, _, _, cache := newTestStore()
	ctx := context.Background()

	cache.Put(rec("m1", "alice", "cache-only"))

	// fresh: the cache masks the write that has not landed durably yet
	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "cache-only", got.Title)

	// age the entry past the freshness window
	cache.mu.Lock()
	e := cache.entries["m1"]
	e.storedAt = e.storedAt.Add(-6 * time.Minute)
	cache.entries["m1"] = e
	cache.mu.Unlock()

	_, err = s.Get(ctx, "m1")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestListByOwner_MergesTiersPrimaryWins(t *testing.T) {
	s, primary, blob, cache := newTestStore()
	ctx := context.Background()

	require.NoError(t, primary.Put(ctx, rec("m1", "alice", "from-primary")))
	require.NoError(t, blob.Put(ctx, rec("m1", "alice", "from-blob")))
	require.NoError(t, blob.Put(ctx, rec("m2", "alice", "blob-only")))
	cache.Put(rec("m3", "alice", "cache-only"))
	cache.Put(rec("x1", "bob", "other-owner"))

	got, err := s.ListByOwner(ctx, "alice")
	require.NoError(t, err)

	byID := map[string]string{}
	for _, r := range got {
		byID[r.ID] = r.Title
	}
	assert.Len(t, got, 3)
	assert.Equal(t, "from-primary", byID["m1"])
	assert.Equal(t, "blob-only", byID["m2"])
	assert.Equal(t, "cache-only", byID["m3"])
}

// Three cache entries, one of which exists in the blob tier's durable
// listing: reconcile must leave exactly that one.
func TestReconcile_PurgesPhantoms(t *testing.T) {
	s, _, blob, cache := newTestStore()
	ctx := context.Background()

	require.NoError(t, blob.Put(ctx, rec("m1", "alice", "durable")))
	cache.Put(rec("m1", "alice", "durable"))
	cache.Put(rec("m2", "alice", "phantom"))
	cache.Put(rec("m3", "alice", "phantom"))

	evicted, err := s.Reconcile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, evicted)

	remaining := cache.ByOwner("alice")
	require.Len(t, remaining, 1)
	assert.Equal(t, "m1", remaining[0].ID)
}

func TestReconcile_DoesNotTouchOtherOwners(t *testing.T) {
	s, _, _, cache := newTestStore()

	cache.Put(rec("m1", "alice", "phantom"))
	cache.Put(rec("x1", "bob", "bob-entry"))

	evicted, err := s.Reconcile(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)
	assert.Len(t, cache.ByOwner("bob"), 1)
}

func TestDelete_RemovesEverywhere(t *testing.T) {
	s, primary, blob, cache := newTestStore()
	ctx := context.Background()

	require.NoError(t, primary.Put(ctx, rec("m1", "alice", "demo")))
	require.NoError(t, blob.Put(ctx, rec("m1", "alice", "demo")))
	cache.Put(rec("m1", "alice", "demo"))

	require.NoError(t, s.Delete(ctx, "alice", "m1"))

	_, err := s.Get(ctx, "m1")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
