// Package tool wraps the pipeline and store operations in the uniform
// success/error envelope agents consume. Raw errors (and panics) never cross
// this boundary; they are translated into a human-readable message.
package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"media-insights-go/internal/store"
	"media-insights-go/internal/types"
)

// Envelope is the uniform result shape of every tool operation.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

func fail(msg string) Envelope {
	return Envelope{Success: false, Error: msg}
}

// Processor runs the full pipeline for one media item. The pipeline
// Orchestrator satisfies it.
type Processor interface {
	Process(ctx context.Context, item types.MediaItem) (*types.MediaRecord, error)
}

// Toolkit exposes the domain operations behind the envelope contract.
type Toolkit struct {
	processor Processor
	store     *store.MultiTierStore
	log       *logrus.Entry
}

func NewToolkit(processor Processor, st *store.MultiTierStore, log *logrus.Entry) *Toolkit {
	return &Toolkit{processor: processor, store: st, log: log}
}

// ProcessMedia runs the full pipeline for one media item.
func (t *Toolkit) ProcessMedia(ctx context.Context, item types.MediaItem) (env Envelope) {
	defer t.recoverInto(&env, "process_media")
	rec, err := t.processor.Process(ctx, item)
	if err != nil {
		t.log.WithField("media_id", item.ID).WithField("error", err.Error()).Warn("process_media failed")
		return fail(fmt.Sprintf("processing failed for %s: %v", item.ID, err))
	}
	return ok(rec)
}

// GetRecord reads one record through the tier precedence chain.
func (t *Toolkit) GetRecord(ctx context.Context, id string) (env Envelope) {
	defer t.recoverInto(&env, "get_record")
	rec, err := t.store.Get(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return fail(fmt.Sprintf("no record found for id %s", id))
	}
	if err != nil {
		return fail(fmt.Sprintf("read failed for id %s: %v", id, err))
	}
	return ok(rec)
}

// ListRecords lists an owner's records across all tiers.
func (t *Toolkit) ListRecords(ctx context.Context, ownerID string) (env Envelope) {
	defer t.recoverInto(&env, "list_records")
	recs, err := t.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return fail(fmt.Sprintf("list failed for owner %s: %v", ownerID, err))
	}
	if recs == nil {
		recs = []*types.MediaRecord{}
	}
	return ok(recs)
}

// DeleteRecord removes one record from every tier.
func (t *Toolkit) DeleteRecord(ctx context.Context, ownerID, id string) (env Envelope) {
	defer t.recoverInto(&env, "delete_record")
	if err := t.store.Delete(ctx, ownerID, id); err != nil {
		return fail(fmt.Sprintf("delete failed for id %s: %v", id, err))
	}
	return ok(map[string]string{"deleted": id})
}

// Reconcile purges phantom cache entries for an owner before multi-record
// operations whose output depends on an exact record set.
func (t *Toolkit) Reconcile(ctx context.Context, ownerID string) (env Envelope) {
	defer t.recoverInto(&env, "reconcile")
	evicted, err := t.store.Reconcile(ctx, ownerID)
	if err != nil {
		return fail(fmt.Sprintf("reconcile failed for owner %s: %v", ownerID, err))
	}
	return ok(map[string]int{"evicted": evicted})
}

func (t *Toolkit) recoverInto(env *Envelope, op string) {
	if r := recover(); r != nil {
		t.log.WithField("op", op).WithField("panic", r).Error("tool operation panicked")
		*env = fail(fmt.Sprintf("%s failed unexpectedly", op))
	}
}
