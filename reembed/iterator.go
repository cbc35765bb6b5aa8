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

	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/storage"
)

const (
	// DefaultBatchSize is the default number of chunks embedded per call
	DefaultBatchSize = 100
)

// ChunkIterator walks the chunked items of a tenant.
type ChunkIterator struct {
	items  storage.ItemStore
	chunks storage.ChunkStore
}

// NewChunkIterator creates a new chunk iterator.
func NewChunkIterator(items storage.ItemStore, chunks storage.ChunkStore) *ChunkIterator {
	return &ChunkIterator{items: items, chunks: chunks}
}

// Count returns the number of items with chunks and their total chunk
// count. An empty tenantID covers every tenant.
func (it *ChunkIterator) Count(ctx context.Context, tenantID string) (items, chunks int, err error) {
	list, err := it.items.ListItems(ctx, tenantID)
	if err != nil {
		return 0, 0, err
	}
	for _, item := range list {
		if item.ChunkCount > 0 {
			items++
			chunks += item.ChunkCount
		}
	}
	return items, chunks, nil
}

// ForEach calls fn with every chunked item of tenantID and all of its
// chunks, in item ID order. Iteration stops on the first error from fn.
// Context cancellation is checked between items.
func (it *ChunkIterator) ForEach(ctx context.Context, tenantID string, fn func(*core.Item, []*core.Chunk) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	list, err := it.items.ListItems(ctx, tenantID)
	if err != nil {
		return err
	}

	for _, item := range list {
		if item.ChunkCount == 0 {
			continue
		}
		chunks, err := it.chunks.GetChunks(ctx, item.ID)
		if err != nil {
			return err
		}
		if len(chunks) == 0 {
			continue
		}
		if err := fn(item, chunks); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
