// Package pipeline sequences the extraction steps for one media item and
// commits exactly one complete MediaRecord. Failure policy is graded:
// transcription and entity failures degrade to empty values, a single insight
// kind failing degrades that kind only, and any embedding failure aborts the
// whole record, because a missing or wrong-dimension vector would silently
// corrupt downstream similarity search.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"media-insights-go/internal/extract"
	"media-insights-go/internal/poll"
	"media-insights-go/internal/store"
	"media-insights-go/internal/types"
)

// Understanding invokes the multimodal model once per insight kind.
type Understanding interface {
	Invoke(ctx context.Context, prompt string, locator types.SourceLocator) (string, error)
}

// TextEmbedder produces the content-digest vector synchronously.
type TextEmbedder interface {
	Embed(ctx context.Context, text, purpose string) ([]float64, error)
}

// MediaEmbedder produces the media-level vector via submit/poll/fetch.
type MediaEmbedder interface {
	Submit(ctx context.Context, locator types.SourceLocator, segmentSeconds int, outputLocator string) (*types.AsyncJob, error)
	Status(ctx context.Context, job *types.AsyncJob) (types.JobStatus, string, error)
	Fetch(ctx context.Context, outputLocator string) ([]float64, error)
}

// Transcriber recovers the spoken text of the media's audio track.
type Transcriber interface {
	Transcribe(ctx context.Context, locator types.SourceLocator) (*types.Transcript, error)
}

// EntityExtractor recovers structured entity lists from the transcript.
type EntityExtractor interface {
	Extract(ctx context.Context, transcript string) (types.EntitySet, error)
}

// Poller drives an async job to a terminal state. poll.Wait satisfies it.
type Poller func(ctx context.Context, op string, check poll.CheckFunc, interval, maxWait time.Duration) error

// Config carries the orchestration constants.
type Config struct {
	EmbeddingDimension    int
	SegmentDurationSecond int
	PollInterval          time.Duration
	PollMaxWait           time.Duration
}

// Orchestrator wires the capabilities to the multi-tier store.
type Orchestrator struct {
	understanding Understanding
	textEmbedder  TextEmbedder
	mediaEmbedder MediaEmbedder
	transcriber   Transcriber
	entities      EntityExtractor
	poller        Poller
	store         *store.MultiTierStore
	cfg           Config
	log           *logrus.Entry
}

func NewOrchestrator(
	understanding Understanding,
	textEmbedder TextEmbedder,
	mediaEmbedder MediaEmbedder,
	transcriber Transcriber,
	entities EntityExtractor,
	poller Poller,
	st *store.MultiTierStore,
	cfg Config,
	log *logrus.Entry,
) *Orchestrator {
	return &Orchestrator{
		understanding: understanding,
		textEmbedder:  textEmbedder,
		mediaEmbedder: mediaEmbedder,
		transcriber:   transcriber,
		entities:      entities,
		poller:        poller,
		store:         st,
		cfg:           cfg,
		log:           log,
	}
}

var understandingPrompts = map[types.InsightKind]string{
	types.InsightSummary:    "Summarize this media in one dense paragraph covering what happens, who appears and the overall tone.",
	types.InsightChapters:   `Split this media into chapters. Return ONLY a JSON array of objects with keys "title", "start_sec", "end_sec", "description".`,
	types.InsightHighlights: `List the most shareable moments. Return ONLY a JSON array of objects with keys "title", "start_sec", "end_sec", "reason".`,
	types.InsightTopics:     "List the topics covered by this media, comma separated, most prominent first.",
	types.InsightHashtags:   "Suggest hashtags for this media, one line, space separated, each starting with #.",
	types.InsightSentiment:  "Describe the overall sentiment of this media in one short sentence (positive, negative, neutral or mixed, with the reason).",
	types.InsightAnalytics:  "Describe the audience this media would resonate with and why, in two or three sentences.",
}

// Process runs the full extraction sequence for one media item and commits
// the record. The returned record is durable unless the error says otherwise;
// on a fatal step error nothing is committed at all.
func (o *Orchestrator) Process(ctx context.Context, item types.MediaItem) (*types.MediaRecord, error) {
	log := o.log.WithField("media_id", item.ID)
	start := time.Now()

	insights := map[types.InsightKind]any{}

	// Step 1: transcription. Recoverable: media without a usable audio
	// track still gets visual insights.
	transcript := o.transcribeStep(ctx, item, log)
	insights[types.InsightTranscript] = transcript.FullText

	// Step 2: content understanding, one invocation per insight kind.
	// Per-kind failures degrade that kind; losing every kind is fatal.
	succeeded := 0
	for _, kind := range types.UnderstandingKinds {
		value, ok := o.understandingStep(ctx, item, kind, log)
		if ok {
			succeeded++
		}
		insights[kind] = value
	}
	if succeeded == 0 {
		return nil, &types.RemoteFailure{Op: "understanding", Message: "all insight kinds failed"}
	}

	// Step 3: entity extraction over the transcript. Recoverable.
	insights[types.InsightEntities] = o.entitiesStep(ctx, transcript.FullText, log)

	// Step 4: embeddings. Fatal on any failure.
	contentVec, err := o.textEmbedder.Embed(ctx, contentDigest(insights), "search_document")
	if err != nil {
		return nil, err
	}
	mediaVec, err := o.mediaEmbeddingStep(ctx, item)
	if err != nil {
		return nil, err
	}

	embeddings := map[types.EmbeddingKind][]float64{
		types.EmbeddingContent: contentVec,
		types.EmbeddingMedia:   mediaVec,
	}

	// Step 5: commit. The dimension check is the pipeline's one
	// non-negotiable invariant; no partial record ever reaches the store.
	for kind, vec := range embeddings {
		if len(vec) != o.cfg.EmbeddingDimension {
			return nil, &types.DimensionMismatch{Kind: kind, Got: len(vec), Want: o.cfg.EmbeddingDimension}
		}
	}

	rec := &types.MediaRecord{
		ID:         item.ID,
		OwnerID:    item.OwnerID,
		Source:     item.Source,
		Title:      item.Title,
		Insights:   insights,
		Embeddings: embeddings,
		CreatedAt:  time.Now().UTC(),
	}
	result, err := o.store.Put(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("commit record %s: %w", item.ID, err)
	}
	if !result.Durable {
		log.Warn("record held in cache only; no durable tier accepted the write")
	}

	log.WithFields(logrus.Fields{
		"duration_ms": time.Since(start).Milliseconds(),
		"tier":        result.Tier,
	}).Info("media record committed")
	return rec, nil
}

func (o *Orchestrator) transcribeStep(ctx context.Context, item types.MediaItem, log *logrus.Entry) *types.Transcript {
	tr, err := o.transcriber.Transcribe(ctx, item.Source)
	if err != nil {
		log.WithError(err).Warn("transcription failed, continuing with empty transcript")
		return &types.Transcript{}
	}
	return tr
}

func (o *Orchestrator) understandingStep(ctx context.Context, item types.MediaItem, kind types.InsightKind, log *logrus.Entry) (any, bool) {
	raw, err := o.understanding.Invoke(ctx, understandingPrompts[kind], item.Source)
	if err != nil {
		log.WithError(err).WithField("kind", string(kind)).Warn("insight kind failed, using empty fallback")
		return emptyInsight(kind), false
	}

	if !kind.Structured() {
		return strings.TrimSpace(raw), true
	}
	arr, err := extract.Array(raw)
	if err != nil {
		log.WithError(err).WithField("kind", string(kind)).Warn("structured insight unparseable, using empty fallback")
		return emptyInsight(kind), false
	}
	return arr, true
}

func (o *Orchestrator) entitiesStep(ctx context.Context, transcript string, log *logrus.Entry) types.EntitySet {
	if strings.TrimSpace(transcript) == "" {
		return types.EmptyEntitySet()
	}
	set, err := o.entities.Extract(ctx, transcript)
	if err != nil {
		log.WithError(err).Warn("entity extraction failed, using empty sets")
		return types.EmptyEntitySet()
	}
	return set
}

func (o *Orchestrator) mediaEmbeddingStep(ctx context.Context, item types.MediaItem) ([]float64, error) {
	outputLocator := fmt.Sprintf("embeddings/%s/segments.json", item.ID)
	job, err := o.mediaEmbedder.Submit(ctx, item.Source, o.cfg.SegmentDurationSecond, outputLocator)
	if err != nil {
		return nil, err
	}
	check := func(ctx context.Context) (types.JobStatus, string, error) {
		return o.mediaEmbedder.Status(ctx, job)
	}
	if err := o.poller(ctx, "embed-media", check, o.cfg.PollInterval, o.cfg.PollMaxWait); err != nil {
		return nil, err
	}
	return o.mediaEmbedder.Fetch(ctx, job.OutputLocator)
}

func emptyInsight(kind types.InsightKind) any {
	if kind.Structured() {
		return []any{}
	}
	return ""
}

// contentDigest concatenates all textual insight values in a stable order to
// feed the content embedding.
func contentDigest(insights map[types.InsightKind]any) string {
	kinds := make([]string, 0, len(insights))
	for k := range insights {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	var parts []string
	for _, k := range kinds {
		switch v := insights[types.InsightKind(k)].(type) {
		case string:
			if v != "" {
				parts = append(parts, v)
			}
		case []any:
			for _, e := range v {
				if m, ok := e.(map[string]any); ok {
					if title, ok := m["title"].(string); ok {
						parts = append(parts, title)
					}
					if desc, ok := m["description"].(string); ok {
						parts = append(parts, desc)
					}
				}
			}
		case types.EntitySet:
			parts = append(parts, strings.Join(v.Brands, " "))
			parts = append(parts, strings.Join(v.Companies, " "))
			parts = append(parts, strings.Join(v.PersonNames, " "))
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
