package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/homily/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
// Texts are sent in batches of config.EmbeddingBatchSize; each batch is
// retried on its own.
type Embedder struct {
	embedder  embeddings.Embedder
	config    *ai.Config
	batchSize int
	logger    *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(token(config)),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}
	return newEmbedderWith(config, embedder), nil
}

func newEmbedderWith(config *ai.Config, embedder embeddings.Embedder) *Embedder {
	return &Embedder{
		embedder:  embedder,
		config:    config,
		batchSize: config.EmbeddingBatchSize,
		logger:    slog.Default().With("component", "openai-embedder"),
	}
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// Model returns the embedding model identifier.
func (e *Embedder) Model() string {
	return e.config.EmbeddingModel
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, ErrEmptyResponse
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings", "count", len(texts), "model", e.Model())

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batch := texts[start:end]

		vectors, err := withRetry(ctx, e.config, e.logger, "embed", func() ([][]float32, error) {
			return e.embedder.EmbedDocuments(ctx, batch)
		})
		if err != nil {
			e.logger.Error("failed to generate embeddings", "batch_start", start, "count", len(batch), "err", err)
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: sent %d, got %d", ErrVectorCountMismatch, len(batch), len(vectors))
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// token returns the API key, or a placeholder for local servers that ignore it.
func token(config *ai.Config) string {
	if config.APIKey == "" {
		return "none"
	}
	return config.APIKey
}
