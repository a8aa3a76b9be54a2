package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"

	"media-insights-go/internal/types"
)

var _ BlobTier = (*MinioTier)(nil)

// MinioTier snapshots records as JSON objects in an S3-compatible bucket,
// keyed records/<owner>/<id>.json so one prefix scan enumerates an owner.
type MinioTier struct {
	client *minio.Client
	bucket string
}

func NewMinioTier(client *minio.Client, bucket string) *MinioTier {
	return &MinioTier{client: client, bucket: bucket}
}

// EnsureBucket creates the backing bucket when missing.
func (t *MinioTier) EnsureBucket(ctx context.Context) error {
	exists, err := t.client.BucketExists(ctx, t.bucket)
	if err != nil {
		return fmt.Errorf("blob: bucket check: %w", err)
	}
	if !exists {
		if err := t.client.MakeBucket(ctx, t.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("blob: make bucket: %w", err)
		}
	}
	return nil
}

func objectName(ownerID, id string) string {
	return fmt.Sprintf("records/%s/%s.json", ownerID, id)
}

func (t *MinioTier) Put(ctx context.Context, rec *types.MediaRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("blob: marshal record: %w", err)
	}
	_, err = t.client.PutObject(ctx, t.bucket, objectName(rec.OwnerID, rec.ID),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("blob: put record: %w", err)
	}
	return nil
}

// Get scans the records/ prefix for the object ending in the record id. The
// owner is unknown on a plain read(id), so this is a listing walk by design.
func (t *MinioTier) Get(ctx context.Context, id string) (*types.MediaRecord, error) {
	suffix := "/" + id + ".json"
	for obj := range t.client.ListObjects(ctx, t.bucket, minio.ListObjectsOptions{
		Prefix:    "records/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("blob: list for get: %w", obj.Err)
		}
		if strings.HasSuffix(obj.Key, suffix) {
			return t.fetch(ctx, obj.Key)
		}
	}
	return nil, types.ErrNotFound
}

func (t *MinioTier) ListByOwner(ctx context.Context, ownerID string) ([]*types.MediaRecord, error) {
	var out []*types.MediaRecord
	for obj := range t.client.ListObjects(ctx, t.bucket, minio.ListObjectsOptions{
		Prefix:    "records/" + ownerID + "/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("blob: list records: %w", obj.Err)
		}
		rec, err := t.fetch(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListIDs enumerates the owner's durable snapshot ids without fetching bodies.
func (t *MinioTier) ListIDs(ctx context.Context, ownerID string) ([]string, error) {
	prefix := "records/" + ownerID + "/"
	var ids []string
	for obj := range t.client.ListObjects(ctx, t.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("blob: list ids: %w", obj.Err)
		}
		id := strings.TrimSuffix(strings.TrimPrefix(obj.Key, prefix), ".json")
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (t *MinioTier) Delete(ctx context.Context, ownerID, id string) error {
	err := t.client.RemoveObject(ctx, t.bucket, objectName(ownerID, id), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("blob: delete record: %w", err)
	}
	return nil
}

func (t *MinioTier) fetch(ctx context.Context, key string) (*types.MediaRecord, error) {
	obj, err := t.client.GetObject(ctx, t.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("blob: get object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("blob: read object: %w", err)
	}
	var rec types.MediaRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("blob: decode record: %w", err)
	}
	return &rec, nil
}
