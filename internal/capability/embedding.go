package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/sirupsen/logrus"

	"media-insights-go/internal/types"
)

// EmbeddingClient talks to the embedding gateway. Text embedding is a single
// synchronous call; media-level embedding is submit + poll + fetch, with the
// per-segment output written by the remote side to a blob-store locator.
type EmbeddingClient struct {
	URL        string
	APIKey     string
	Dimension  int
	MaxElapsed time.Duration
	Blob       *minio.Client
	Bucket     string
	Log        *logrus.Entry
}

// Embed returns one vector for text. The gateway is told the expected
// dimension; the commit-time invariant still re-checks the answer.
func (c *EmbeddingClient) Embed(ctx context.Context, text, purpose string) ([]float64, error) {
	payload := map[string]any{
		"input":     text,
		"purpose":   purpose,
		"dimension": c.Dimension,
	}
	body, err := postJSON(ctx, c.URL+"/embed", c.APIKey, payload, c.maxElapsed())
	if err != nil {
		return nil, &types.RemoteFailure{Op: "embed-text", Message: err.Error()}
	}
	vec, err := UnwrapEmbedding(body)
	if err != nil {
		return nil, &types.RemoteFailure{Op: "embed-text", Message: err.Error()}
	}
	return vec, nil
}

type submitResponse struct {
	InvocationID string `json:"invocation_id"`
	Error        string `json:"error,omitempty"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Submit starts an async media-level embedding job. The gateway writes one
// record per time segment to outputLocator in the blob bucket.
func (c *EmbeddingClient) Submit(ctx context.Context, locator types.SourceLocator, segmentSeconds int, outputLocator string) (*types.AsyncJob, error) {
	payload := map[string]any{
		"media": map[string]string{
			"bucket": locator.Bucket,
			"key":    locator.Key,
		},
		"segment_duration_seconds": segmentSeconds,
		"output_key":               outputLocator,
		"dimension":                c.Dimension,
	}
	body, err := postJSON(ctx, c.URL+"/embed-media", c.APIKey, payload, c.maxElapsed())
	if err != nil {
		return nil, &types.RemoteFailure{Op: "embed-media-submit", Message: err.Error()}
	}
	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &types.RemoteFailure{Op: "embed-media-submit", Message: "bad submit response: " + err.Error()}
	}
	if resp.Error != "" || resp.InvocationID == "" {
		return nil, &types.RemoteFailure{Op: "embed-media-submit", Message: resp.Error}
	}
	return &types.AsyncJob{
		InvocationID:  resp.InvocationID,
		Status:        types.JobRunning,
		OutputLocator: outputLocator,
	}, nil
}

// Status checks the async job once. Unknown remote states map to Running so
// the poller keeps waiting instead of inventing a terminal state.
func (c *EmbeddingClient) Status(ctx context.Context, job *types.AsyncJob) (types.JobStatus, string, error) {
	var resp statusResponse
	url := fmt.Sprintf("%s/embed-media/%s", c.URL, job.InvocationID)
	if err := getJSON(ctx, url, &resp, c.maxElapsed()); err != nil {
		return types.JobRunning, "", err
	}
	switch resp.Status {
	case "Completed", "completed", "COMPLETED":
		return types.JobCompleted, "", nil
	case "Failed", "failed", "FAILED":
		return types.JobFailed, resp.Message, nil
	default:
		return types.JobRunning, "", nil
	}
}

type segmentVector struct {
	StartSec  float64   `json:"start_sec"`
	EndSec    float64   `json:"end_sec"`
	Status    string    `json:"status"`
	Embedding []float64 `json:"embedding"`
}

// Fetch reads the per-segment vectors from the job's output locator and
// averages them into one vector. Segments flagged as failed are skipped,
// never averaged in.
func (c *EmbeddingClient) Fetch(ctx context.Context, outputLocator string) ([]float64, error) {
	obj, err := c.Blob.GetObject(ctx, c.Bucket, outputLocator, minio.GetObjectOptions{})
	if err != nil {
		return nil, &types.RemoteFailure{Op: "embed-media-fetch", Message: err.Error()}
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, &types.RemoteFailure{Op: "embed-media-fetch", Message: err.Error()}
	}
	var segments []segmentVector
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, &types.RemoteFailure{Op: "embed-media-fetch", Message: "bad segment output: " + err.Error()}
	}
	return averageSegments(segments, c.Dimension)
}

// averageSegments collapses the per-segment vectors into one. Segments
// flagged as failed are skipped, never averaged in; a segment vector of the
// wrong length is a hard error.
func averageSegments(segments []segmentVector, dim int) ([]float64, error) {
	sum := make([]float64, dim)
	used := 0
	for _, seg := range segments {
		if seg.Status != "" && seg.Status != "ok" {
			continue
		}
		if len(seg.Embedding) != dim {
			return nil, &types.DimensionMismatch{Kind: types.EmbeddingMedia, Got: len(seg.Embedding), Want: dim}
		}
		for i, v := range seg.Embedding {
			sum[i] += v
		}
		used++
	}
	if used == 0 {
		return nil, &types.RemoteFailure{Op: "embed-media-fetch", Message: "no usable segment vectors"}
	}
	for i := range sum {
		sum[i] /= float64(used)
	}
	return sum, nil
}

func (c *EmbeddingClient) maxElapsed() time.Duration {
	if c.MaxElapsed > 0 {
		return c.MaxElapsed
	}
	return 45 * time.Second
}
