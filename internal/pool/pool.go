// Package pool runs independent pipeline invocations concurrently. Each item
// is one invocation; there is no concurrency inside an invocation, so the
// pool size bounds total in-flight work against the model gateways.
package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"media-insights-go/internal/types"
)

// ProcessFunc runs one pipeline invocation for a manifest item.
type ProcessFunc func(ctx context.Context, item types.MediaItem) (*types.MediaRecord, error)

// Result pairs one item with its invocation outcome.
type Result struct {
	Item   types.MediaItem
	Record *types.MediaRecord
	Err    error
}

// WorkerPool is a fixed-size pool draining a channel of manifest items.
type WorkerPool struct {
	size    int
	items   <-chan types.MediaItem
	process ProcessFunc
	results chan<- Result
	log     *logrus.Entry
	wg      sync.WaitGroup
}

func NewWorkerPool(size int, items <-chan types.MediaItem, results chan<- Result, process ProcessFunc, log *logrus.Entry) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		items:   items,
		process: process,
		results: results,
		log:     log,
	}
}

// Start launches the workers. Call Wait to block until the item channel is
// drained and closed.
func (p *WorkerPool) Start(ctx context.Context) {
	p.log.WithField("pool_size", p.size).Info("starting worker pool")
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Wait blocks until every worker has exited.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
	p.log.Info("worker pool drained")
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.log.WithField("worker_id", id)

	for {
		select {
		case <-ctx.Done():
			log.Debug("worker shutting down")
			return
		case item, ok := <-p.items:
			if !ok {
				return
			}
			log.WithField("media_id", item.ID).Info("processing media item")
			rec, err := p.invoke(ctx, item)
			if err != nil {
				// Failed items are surfaced for retry by the caller; nothing
				// partial was committed for them.
				log.WithField("media_id", item.ID).WithField("error", err.Error()).Error("pipeline invocation failed")
			}
			if p.results != nil {
				p.results <- Result{Item: item, Record: rec, Err: err}
			}
		}
	}
}

// invoke runs one invocation, converting a panic into a per-item failure so
// the worker keeps draining the channel.
func (p *WorkerPool) invoke(ctx context.Context, item types.MediaItem) (rec *types.MediaRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("pipeline invocation panicked: %v", r)
		}
	}()
	return p.process(ctx, item)
}
