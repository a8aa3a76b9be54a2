package types

import "time"

// InsightKind names one category of extracted understanding.
type InsightKind string

const (
	InsightSummary    InsightKind = "summary"
	InsightChapters   InsightKind = "chapters"
	InsightHighlights InsightKind = "highlights"
	InsightTopics     InsightKind = "topics"
	InsightHashtags   InsightKind = "hashtags"
	InsightSentiment  InsightKind = "sentiment"
	InsightAnalytics  InsightKind = "analytics"
	InsightTranscript InsightKind = "transcript"
	InsightEntities   InsightKind = "entities"
)

// UnderstandingKinds are the insight kinds produced by the content-understanding
// capability, in invocation order. Chapters and highlights expect structured
// (JSON array) output; the rest are stored verbatim.
var UnderstandingKinds = []InsightKind{
	InsightSummary,
	InsightChapters,
	InsightHighlights,
	InsightTopics,
	InsightHashtags,
	InsightSentiment,
	InsightAnalytics,
}

// Structured reports whether this kind expects a JSON array payload.
func (k InsightKind) Structured() bool {
	return k == InsightChapters || k == InsightHighlights
}

// EmbeddingKind names one category of numeric vector representation.
type EmbeddingKind string

const (
	// EmbeddingContent is computed from the concatenated insight text.
	EmbeddingContent EmbeddingKind = "content"
	// EmbeddingMedia is the averaged media-level segment embedding.
	EmbeddingMedia EmbeddingKind = "media"
)

// SourceLocator references the original media binary. Immutable once assigned.
type SourceLocator struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

func (s SourceLocator) String() string {
	return s.Bucket + "/" + s.Key
}

// MediaRecord is the committed, queryable unit of extracted knowledge about
// one processed media item. A record is only ever constructed whole: every
// insight kind and both embedding kinds must have succeeded before commit.
// Reprocessing replaces the record under the same id (upsert), never patches.
type MediaRecord struct {
	ID         string                      `json:"id"`
	OwnerID    string                      `json:"owner_id"`
	Source     SourceLocator               `json:"source"`
	Title      string                      `json:"title,omitempty"`
	Insights   map[InsightKind]any         `json:"insights"`
	Embeddings map[EmbeddingKind][]float64 `json:"embeddings"`
	CreatedAt  time.Time                   `json:"created_at"`
}

// EntitySet is the fixed-schema output of the entity-extraction capability.
type EntitySet struct {
	Brands      []string `json:"brands"`
	Companies   []string `json:"companies"`
	PersonNames []string `json:"person_names"`
}

// EmptyEntitySet is the designated fallback when entity extraction fails or
// the transcript is empty: all lists present, all empty.
func EmptyEntitySet() EntitySet {
	return EntitySet{Brands: []string{}, Companies: []string{}, PersonNames: []string{}}
}

// TranscriptSegment is one speaker-attributed slice of the transcript.
type TranscriptSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
	Text    string  `json:"text"`
}

// Transcript is the output of the transcription capability.
type Transcript struct {
	FullText      string              `json:"full_text"`
	Segments      []TranscriptSegment `json:"segments,omitempty"`
	SpeakerLabels []string            `json:"speaker_labels,omitempty"`
}

// JobStatus is the closed set of states an async job can report.
type JobStatus string

const (
	JobRunning   JobStatus = "Running"
	JobCompleted JobStatus = "Completed"
	JobFailed    JobStatus = "Failed"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// AsyncJob is a handle to a long-running remote computation. It is polled to a
// terminal state, its output read once, and then discarded; never persisted.
type AsyncJob struct {
	InvocationID  string    `json:"invocation_id"`
	Status        JobStatus `json:"status"`
	OutputLocator string    `json:"output_locator"`
}

// MediaItem is one row of the ingestion manifest: a media binary waiting to be
// processed into a MediaRecord.
type MediaItem struct {
	ID      string        `json:"id"`
	OwnerID string        `json:"owner_id"`
	Source  SourceLocator `json:"source"`
	Title   string        `json:"title,omitempty"`
}
