package pool

import (
	"context"
	"errors"
	"sync"
	"testing"

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

func feed(ids ...string) chan types.MediaItem {
	ch := make(chan types.MediaItem, len(ids))
	for _, id := range ids {
		ch <- types.MediaItem{ID: id, OwnerID: "alice"}
	}
	close(ch)
	return ch
}

func collect(results chan Result) map[string]Result {
	out := map[string]Result{}
	for r := range results {
		out[r.Item.ID] = r
	}
	return out
}

func TestPool_DrainsAllItems(t *testing.T) {
	items := feed("a", "b", "c", "d", "e")
	results := make(chan Result, 5)

	p := NewWorkerPool(3, items, results, func(ctx context.Context, item types.MediaItem) (*types.MediaRecord, error) {
		return &types.MediaRecord{ID: item.ID, OwnerID: item.OwnerID}, nil
	}, testLogger())
	p.Start(context.Background())
	p.Wait()
	close(results)

	got := collect(results)
	require.Len(t, got, 5)
	for id, r := range got {
		assert.NoError(t, r.Err)
		assert.Equal(t, id, r.Record.ID)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const size = 2
	items := feed("a", "b", "c", "d", "e", "f")
	results := make(chan Result, 6)

	var mu sync.Mutex
	inFlight, peak := 0, 0
	gate := make(chan struct{}, size)

	p := NewWorkerPool(size, items, results, func(ctx context.Context, item types.MediaItem) (*types.MediaRecord, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		gate <- struct{}{}
		<-gate
		mu.Lock()
		inFlight--
		mu.Unlock()
		return &types.MediaRecord{ID: item.ID}, nil
	}, testLogger())
	p.Start(context.Background())
	p.Wait()
	close(results)

	assert.LessOrEqual(t, peak, size)
	assert.Len(t, collect(results), 6)
}

// A failing item is reported in its Result; the rest of the batch is
// unaffected.
func TestPool_ReportsPerItemFailures(t *testing.T) {
	items := feed("good", "bad", "also-good")
	results := make(chan Result, 3)

	wantErr := errors.New("gateway down")
	p := NewWorkerPool(2, items, results, func(ctx context.Context, item types.MediaItem) (*types.MediaRecord, error) {
		if item.ID == "bad" {
			return nil, wantErr
		}
		return &types.MediaRecord{ID: item.ID}, nil
	}, testLogger())
	p.Start(context.Background())
	p.Wait()
	close(results)

	got := collect(results)
	require.Len(t, got, 3)
	assert.ErrorIs(t, got["bad"].Err, wantErr)
	assert.Nil(t, got["bad"].Record)
	assert.NoError(t, got["good"].Err)
	assert.NoError(t, got["also-good"].Err)
}

func TestPool_PanicBecomesFailureAndWorkerSurvives(t *testing.T) {
	items := feed("boom", "after")
	results := make(chan Result, 2)

	p := NewWorkerPool(1, items, results, func(ctx context.Context, item types.MediaItem) (*types.MediaRecord, error) {
		if item.ID == "boom" {
			panic("nil map write")
		}
		return &types.MediaRecord{ID: item.ID}, nil
	}, testLogger())
	p.Start(context.Background())
	p.Wait()
	close(results)

	got := collect(results)
	require.Len(t, got, 2, "the single worker must survive the panic and drain the channel")
	require.Error(t, got["boom"].Err)
	assert.Contains(t, got["boom"].Err.Error(), "panicked")
	assert.NoError(t, got["after"].Err)
}

func TestPool_StopsOnContextCancel(t *testing.T) {
	items := make(chan types.MediaItem) // never closed, never fed
	ctx, cancel := context.WithCancel(context.Background())

	p := NewWorkerPool(2, items, nil, func(ctx context.Context, item types.MediaItem) (*types.MediaRecord, error) {
		return nil, nil
	}, testLogger())
	p.Start(ctx)
	cancel()
	p.Wait() // must return instead of blocking on the open channel
}
