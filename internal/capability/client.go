// Package capability holds thin clients for the external collaborators the
// pipeline depends on: content understanding, text and media embedding,
// transcription and entity extraction. Each call retries transient failures
// with exponential backoff and translates terminal failures into the shared
// error taxonomy.
package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// postJSON posts payload and returns the response body, retrying 5xx and
// transport errors. Client errors (4xx) are permanent and stop the retry.
func postJSON(ctx context.Context, url, apiKey string, payload any, maxElapsed time.Duration) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var body []byte
	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()

		body, _ = io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, truncate(body, 256))
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("client error %d: %s", resp.StatusCode, truncate(body, 256))
			return backoff.Permanent(lastErr)
		}
		lastErr = nil
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return body, nil
}

// getJSON fetches url into target, retrying like postJSON.
func getJSON(ctx context.Context, url string, target any, maxElapsed time.Duration) error {
	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, truncate(body, 256))
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("client error %d: %s", resp.StatusCode, truncate(body, 256))
			return backoff.Permanent(lastErr)
		}
		if err := json.Unmarshal(body, target); err != nil {
			lastErr = fmt.Errorf("json decode error: %v body=%s", err, truncate(body, 256))
			return lastErr
		}
		lastErr = nil
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
