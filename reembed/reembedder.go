// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/homily/ai"
	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks sent to the embedder per call
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per embedding call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Result summarizes a completed pass.
type Result struct {
	Items    int
	Chunks   int
	Indexed  int
	Tokens   int
	CostUSD  float64
	Model    string
	Duration time.Duration
}

// Reembedder regenerates chunk embeddings with the configured embedder and
// rewrites the search index for items that were already indexed. Use it
// after switching embedding models.
type Reembedder struct {
	items     storage.ItemStore
	index     storage.VectorIndex
	embedder  ai.Embedder
	config    *Config
	progress  io.Writer
	logger    *slog.Logger
	processor *BatchProcessor
	iterator  *ChunkIterator
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(items storage.ItemStore, chunks storage.ChunkStore, index storage.VectorIndex, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	switch {
	case items == nil:
		return nil, ErrItemStoreRequired
	case chunks == nil:
		return nil, ErrChunkStoreRequired
	case index == nil:
		return nil, ErrVectorIndexRequired
	case embedder == nil:
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		items:     items,
		index:     index,
		embedder:  embedder,
		config:    config,
		progress:  progress,
		logger:    slog.Default().With("component", "reembedder"),
		processor: NewBatchProcessor(chunks, embedder, config.MaxRetries, config.RetryDelay),
		iterator:  NewChunkIterator(items, chunks),
	}, nil
}

// Run reembeds every chunk of tenantID's items, or of all items when
// tenantID is empty. Items that were indexed get their vectors replaced.
func (r *Reembedder) Run(ctx context.Context, tenantID string) (*Result, error) {
	model := r.embedder.Model()
	result := &Result{Model: model}

	itemCount, chunkCount, err := r.iterator.Count(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	if chunkCount == 0 {
		fmt.Fprintf(r.progress, "No chunked items found (0 chunks)\n")
		return result, nil
	}

	fmt.Fprintf(r.progress, "Reembedding %d chunks of %d items with %s (batch size: %d)\n",
		chunkCount, itemCount, model, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, chunkCount, r.config.ReportInterval, "chunks")
	tracker.Start()

	err = r.iterator.ForEach(ctx, tenantID, func(item *core.Item, chunks []*core.Chunk) error {
		for start := 0; start < len(chunks); start += r.config.BatchSize {
			end := min(start+r.config.BatchSize, len(chunks))
			tokens, err := r.processor.Process(ctx, chunks[start:end])
			if err != nil {
				return fmt.Errorf("item %s: %w", item.ID, err)
			}
			result.Tokens += tokens
			result.Chunks += end - start
			tracker.Increment(end - start)
		}

		indexed, err := r.reindex(ctx, item, chunks)
		if err != nil {
			return fmt.Errorf("item %s: %w", item.ID, err)
		}
		if indexed {
			result.Indexed++
		}
		result.Items++
		return nil
	})
	if err != nil {
		return nil, err
	}

	tracker.Finish()
	result.Duration = tracker.Elapsed()
	result.CostUSD = ai.EmbeddingCost(model, result.Tokens)

	r.logger.Info("reembedding complete",
		"tenant", tenantID,
		"items", result.Items,
		"chunks", result.Chunks,
		"tokens", result.Tokens,
		"cost_usd", result.CostUSD)
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		result.Chunks, result.Duration.Round(time.Second), float64(result.Chunks)/result.Duration.Seconds())
	return result, nil
}

// reindex replaces the vectors of an indexed item and records the new
// model. Items that were never indexed are left as they are.
func (r *Reembedder) reindex(ctx context.Context, item *core.Item, chunks []*core.Chunk) (bool, error) {
	model := r.embedder.Model()
	if item.Search.Indexed {
		ns := item.Search.Namespace
		if ns == "" {
			ns = core.Namespace(item.TenantID)
		}
		vectors := make([]*core.Vector, len(chunks))
		for i, c := range chunks {
			vectors[i] = core.ChunkVector(item, c)
		}
		if err := r.index.DeleteByPrefix(ctx, ns, item.ID+"_chunk_"); err != nil {
			return false, fmt.Errorf("failed to clear vectors: %w", err)
		}
		if err := r.index.Upsert(ctx, ns, vectors); err != nil {
			return false, fmt.Errorf("failed to upsert vectors: %w", err)
		}
	}

	_, err := r.items.UpdateItem(ctx, item.ID, func(it *core.Item) error {
		if it.Search.Indexed {
			it.Search.EmbeddingModel = model
			it.Search.ChunkCount = len(chunks)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to update item: %w", err)
	}
	return item.Search.Indexed, nil
}
