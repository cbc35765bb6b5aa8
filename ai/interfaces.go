package ai

import (
	"context"

	"github.com/poiesic/homily/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the embedding model identifier, recorded on indexed items.
	Model() string
}

// Usage reports token consumption and spend for a single call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CostUSD += other.CostUSD
}

// ContentGenerator produces sermon summaries, scripture references, topics
// and a small-group discussion guide from a transcript.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, title, transcript string) (*core.AIContent, Usage, error)
}

// TranscriptFormatter turns raw caption text into punctuated paragraphs.
// Implementations return the input unchanged when it is too short to format.
type TranscriptFormatter interface {
	FormatTranscript(ctx context.Context, raw string) (string, Usage, error)
}

// AIProvider aggregates AI services sharing one configuration.
type AIProvider interface {
	Embedder() Embedder
	ContentGenerator() ContentGenerator
	TranscriptFormatter() TranscriptFormatter

	// Close releases resources held by the provider and its services.
	Close() error
}
