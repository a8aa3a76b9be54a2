package capability

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"media-insights-go/internal/extract"
	"media-insights-go/internal/types"
)

const entityPrompt = `Extract every named entity from the transcript below.
Return ONLY a JSON object with exactly these keys:
{
  "brands": [],
  "companies": [],
  "person_names": []
}
Each value is a list of distinct strings found in the transcript. If a
category has no entities, return an empty list for it. Do not add commentary
and do not wrap the JSON in backticks.

TRANSCRIPT:
%s`

// EntitiesClient recovers structured entity lists from a transcript via a
// schema-constrained text completion.
type EntitiesClient struct {
	URL        string
	APIKey     string
	Model      string
	MaxElapsed time.Duration
	Log        *logrus.Entry
}

// Extract returns the entity sets named in the transcript. A remote failure
// or unparseable completion surfaces as an error; the pipeline degrades it to
// empty sets.
func (c *EntitiesClient) Extract(ctx context.Context, transcript string) (types.EntitySet, error) {
	payload := map[string]any{
		"model": c.Model,
		"messages": []map[string]string{
			{"role": "user", "content": fmt.Sprintf(entityPrompt, transcript)},
		},
		"temperature": 0.0,
	}

	maxElapsed := c.MaxElapsed
	if maxElapsed <= 0 {
		maxElapsed = 45 * time.Second
	}
	body, err := postJSON(ctx, c.URL, c.APIKey, payload, maxElapsed)
	if err != nil {
		return types.EntitySet{}, &types.RemoteFailure{Op: "entities", Message: err.Error()}
	}

	text, err := UnwrapText(body)
	if err != nil {
		return types.EntitySet{}, &types.RemoteFailure{Op: "entities", Message: err.Error()}
	}

	var set types.EntitySet
	if err := extract.ObjectInto(text, &set); err != nil {
		c.Log.WithError(err).Warn("entity completion did not match schema")
		return types.EntitySet{}, err
	}
	// Missing keys decode as nil; normalize so every key is present.
	if set.Brands == nil {
		set.Brands = []string{}
	}
	if set.Companies == nil {
		set.Companies = []string{}
	}
	if set.PersonNames == nil {
		set.PersonNames = []string{}
	}
	return set, nil
}
