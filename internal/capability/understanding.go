package capability

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"media-insights-go/internal/types"
)

// UnderstandingClient invokes the multimodal content-understanding gateway:
// one natural-language instruction plus a locator to media in the blob store,
// answered with free text that may or may not embed structured data.
type UnderstandingClient struct {
	URL        string
	APIKey     string
	Model      string
	MaxElapsed time.Duration
	Log        *logrus.Entry
}

func (c *UnderstandingClient) Invoke(ctx context.Context, prompt string, locator types.SourceLocator) (string, error) {
	payload := map[string]any{
		"model": c.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"media": map[string]string{
			"bucket": locator.Bucket,
			"key":    locator.Key,
		},
		"temperature": 0.0,
	}

	body, err := postJSON(ctx, c.URL, c.APIKey, payload, c.maxElapsed())
	if err != nil {
		c.Log.WithError(err).WithField("media", locator.String()).Warn("understanding request failed")
		return "", &types.RemoteFailure{Op: "understanding", Message: err.Error()}
	}

	text, err := UnwrapText(body)
	if err != nil {
		return "", &types.RemoteFailure{Op: "understanding", Message: err.Error()}
	}
	return text, nil
}

func (c *UnderstandingClient) maxElapsed() time.Duration {
	if c.MaxElapsed > 0 {
		return c.MaxElapsed
	}
	return 45 * time.Second
}
