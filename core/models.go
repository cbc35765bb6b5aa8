package core

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived key for records that have no natural identifier,
// such as vectors stored in a tenant namespace.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Status is the lifecycle status of an Item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPublished  Status = "published"
	StatusFailed     Status = "failed"
)

// TranscriptSegment is one caption entry with timing in seconds.
type TranscriptSegment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// End returns the end offset of the segment in seconds.
func (s TranscriptSegment) End() float64 {
	return s.Start + s.Duration
}

// AudioAsset describes extracted, normalized sermon audio.
type AudioAsset struct {
	URL             string `json:"url"`
	Path            string `json:"path,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	SizeBytes       int64  `json:"size_bytes"`
}

// Scripture is a Bible passage reference with (possibly abbreviated) text.
type Scripture struct {
	Reference string `json:"reference"`
	Text      string `json:"text"`
}

// DiscussionGuide is small-group material generated from a sermon.
type DiscussionGuide struct {
	Icebreaker   string   `json:"icebreaker"`
	Questions    []string `json:"questions"`
	Application  string   `json:"application"`
	PrayerPoints []string `json:"prayer_points"`
}

// AIContent is the structured content generated from a sermon transcript.
type AIContent struct {
	Summary              string          `json:"summary" jsonschema:"required,minLength=1"`
	BigIdea              string          `json:"big_idea" jsonschema:"required,minLength=1"`
	PrimaryScripture     Scripture       `json:"primary_scripture"`
	SupportingScriptures []Scripture     `json:"supporting_scriptures"`
	Topics               []string        `json:"topics"`
	DiscussionGuide      DiscussionGuide `json:"discussion_guide"`
}

// HasGuide reports whether the content carries usable discussion material.
func (c *AIContent) HasGuide() bool {
	return c != nil && (c.DiscussionGuide.Icebreaker != "" || len(c.DiscussionGuide.Questions) > 0)
}

// SearchInfo records where an item's chunks were indexed.
type SearchInfo struct {
	Indexed        bool   `json:"indexed"`
	Namespace      string `json:"namespace,omitempty"`
	ChunkCount     int    `json:"chunk_count"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
}

// Publication identifies the external post created for an item.
type Publication struct {
	PostID  int64  `json:"post_id,omitempty"`
	PostURL string `json:"post_url,omitempty"`
}

// Item is a sermon video moving through the enrichment pipeline.
// Result fields are written by stage actions and are never cleared by
// later stages.
type Item struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Title      string    `json:"title"`
	Speaker    string    `json:"speaker,omitempty"`
	SourceURL  string    `json:"source_url,omitempty"`
	SermonDate time.Time `json:"sermon_date,omitempty"`

	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`

	AudioURL            string              `json:"audio_url,omitempty"`
	DurationSeconds     int                 `json:"duration_seconds,omitempty"`
	Transcript          []TranscriptSegment `json:"transcript,omitempty"`
	FormattedTranscript string              `json:"formatted_transcript,omitempty"`
	ChunkCount          int                 `json:"chunk_count,omitempty"`
	Search              SearchInfo          `json:"search"`
	Content             *AIContent          `json:"content,omitempty"`
	GuideURL            string              `json:"guide_url,omitempty"`
	Publication         Publication         `json:"publication"`

	EnrolledAt          time.Time  `json:"enrolled_at"`
	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty"`
	PublishedAt         *time.Time `json:"published_at,omitempty"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// RawTranscript joins the transcript segments into plain text.
func (i *Item) RawTranscript() string {
	n := 0
	for _, s := range i.Transcript {
		n += len(s.Text) + 1
	}
	buf := make([]byte, 0, n)
	for idx, s := range i.Transcript {
		if idx > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, s.Text...)
	}
	return string(buf)
}

// TranscriptText returns the best available transcript text: the formatted
// version when present, otherwise the raw captions.
func (i *Item) TranscriptText() string {
	if i.FormattedTranscript != "" {
		return i.FormattedTranscript
	}
	return i.RawTranscript()
}

// Namespace returns the tenant-scoped vector namespace for an item.
func Namespace(tenantID string) string {
	return "tenant:" + tenantID
}

// Chunk is a time-bounded slice of a transcript prepared for embedding.
type Chunk struct {
	ID     string    `json:"id"`
	ItemID string    `json:"item_id"`
	Index  int       `json:"index"`
	Start  float64   `json:"start"`
	End    float64   `json:"end"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector,omitempty"`
}

// ChunkID formats the identifier of the idx-th chunk of an item.
func ChunkID(itemID string, idx int) string {
	return fmt.Sprintf("%s_chunk_%03d", itemID, idx)
}

// Vector is an embedding stored in a vector index namespace.
type Vector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ChunkVector builds the index record for an embedded chunk of item. The
// metadata lets search results be shown without loading the item.
func ChunkVector(item *Item, c *Chunk) *Vector {
	return &Vector{
		ID:     c.ID,
		Values: c.Vector,
		Metadata: map[string]string{
			"item_id":     item.ID,
			"tenant_id":   item.TenantID,
			"title":       item.Title,
			"speaker":     item.Speaker,
			"chunk_index": strconv.Itoa(c.Index),
			"start":       strconv.FormatFloat(c.Start, 'f', 2, 64),
			"end":         strconv.FormatFloat(c.End, 'f', 2, 64),
			"text":        c.Text,
		},
	}
}

// VectorMatch is a similarity hit returned by a vector index query.
type VectorMatch struct {
	Vector *Vector
	Score  float32
}
