package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"media-insights-go/internal/types"
)

var _ Tier = (*PostgresTier)(nil)

// PostgresTier is the primary durable store: one row per media record, the
// insight and embedding maps stored as JSONB.
type PostgresTier struct {
	pool *pgxpool.Pool
}

func NewPostgresTier(pool *pgxpool.Pool) *PostgresTier {
	return &PostgresTier{pool: pool}
}

// EnsureSchema creates the media_records table when it does not exist yet.
func (t *PostgresTier) EnsureSchema(ctx context.Context) error {
	_, err := t.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS media_records (
			id            TEXT PRIMARY KEY,
			owner_id      TEXT NOT NULL,
			source_bucket TEXT NOT NULL,
			source_key    TEXT NOT NULL,
			title         TEXT NOT NULL DEFAULT '',
			insights      JSONB NOT NULL,
			embeddings    JSONB NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	_, err = t.pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS media_records_owner_idx ON media_records (owner_id)`)
	if err != nil {
		return fmt.Errorf("postgres: ensure owner index: %w", err)
	}
	return nil
}

func (t *PostgresTier) Put(ctx context.Context, rec *types.MediaRecord) error {
	insights, err := json.Marshal(rec.Insights)
	if err != nil {
		return fmt.Errorf("postgres: marshal insights: %w", err)
	}
	embeddings, err := json.Marshal(rec.Embeddings)
	if err != nil {
		return fmt.Errorf("postgres: marshal embeddings: %w", err)
	}
	// Upsert: reprocessing replaces the record wholesale, never patches.
	_, err = t.pool.Exec(ctx, `
		INSERT INTO media_records (id, owner_id, source_bucket, source_key, title, insights, embeddings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			source_bucket = EXCLUDED.source_bucket,
			source_key = EXCLUDED.source_key,
			title = EXCLUDED.title,
			insights = EXCLUDED.insights,
			embeddings = EXCLUDED.embeddings`,
		rec.ID, rec.OwnerID, rec.Source.Bucket, rec.Source.Key, rec.Title,
		insights, embeddings, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("postgres: put record: %w", err)
	}
	return nil
}

func (t *PostgresTier) Get(ctx context.Context, id string) (*types.MediaRecord, error) {
	row := t.pool.QueryRow(ctx, `
		SELECT id, owner_id, source_bucket, source_key, title, insights, embeddings, created_at
		FROM media_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get record: %w", err)
	}
	return rec, nil
}

func (t *PostgresTier) ListByOwner(ctx context.Context, ownerID string) ([]*types.MediaRecord, error) {
	rows, err := t.pool.Query(ctx, `
		SELECT id, owner_id, source_bucket, source_key, title, insights, embeddings, created_at
		FROM media_records WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list records: %w", err)
	}
	defer rows.Close()

	var out []*types.MediaRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list records: %w", err)
	}
	return out, nil
}

func (t *PostgresTier) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := t.pool.Exec(ctx,
		`DELETE FROM media_records WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("postgres: delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (*types.MediaRecord, error) {
	var (
		rec        types.MediaRecord
		insights   []byte
		embeddings []byte
		createdAt  time.Time
	)
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Source.Bucket, &rec.Source.Key,
		&rec.Title, &insights, &embeddings, &createdAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(insights, &rec.Insights); err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}
	if err := json.Unmarshal(embeddings, &rec.Embeddings); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}
	rec.CreatedAt = createdAt
	return &rec, nil
}
