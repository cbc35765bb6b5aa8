package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/homily/ai"
	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/storage"
)

// BatchProcessor embeds batches of chunks and stores the new vectors.
type BatchProcessor struct {
	chunks         storage.ChunkStore
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts per embedding call
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(chunks storage.ChunkStore, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		chunks:         chunks,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds the text of chunks, attaches normalized vectors and
// updates the chunks in the store. It returns the token count sent to the
// embedder.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []*core.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	for i, c := range chunks {
		c.Vector = NormalizeVector(embeddings[i])
	}
	if err := bp.chunks.UpdateChunks(ctx, chunks...); err != nil {
		return 0, fmt.Errorf("failed to update chunks: %w", err)
	}
	return ai.CountTokensAll(bp.embedder.Model(), texts), nil
}
