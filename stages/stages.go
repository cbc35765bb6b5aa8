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


package stages

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/homily/ai"
	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/pipeline"
	"github.com/poiesic/homily/storage"
)

// Stage names of the default catalog, in execution order.
const (
	Acquire    = "acquire"
	Transcript = "transcript"
	Format     = "format"
	Chunk      = "chunk"
	Embed      = "embed"
	Index      = "index"
	AIContent  = "ai_content"
	Guide      = "guide"
	Publish    = "publish"
)

var (
	// ErrItemStoreRequired is returned when no item store is provided.
	ErrItemStoreRequired = errors.New("item store required")

	// ErrChunkStoreRequired is returned when no chunk store is provided.
	ErrChunkStoreRequired = errors.New("chunk store required")

	// ErrVectorIndexRequired is returned when no vector index is provided.
	ErrVectorIndexRequired = errors.New("vector index required")
)

// AudioAcquirer extracts normalized podcast audio for an item.
type AudioAcquirer interface {
	AcquireAudio(ctx context.Context, item *core.Item) (core.AudioAsset, error)
}

// TranscriptFetcher retrieves timed captions for a video.
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, videoID string) ([]core.TranscriptSegment, error)
}

// Chunker splits a timed transcript into search chunks.
type Chunker interface {
	Chunk(itemID string, segments []core.TranscriptSegment) ([]*core.Chunk, error)
}

// GuideRenderer renders a discussion guide document and returns its location.
type GuideRenderer interface {
	RenderGuide(ctx context.Context, item *core.Item) (string, error)
}

// Publisher creates or updates the public post for an item.
type Publisher interface {
	Publish(ctx context.Context, item *core.Item) (core.Publication, error)
}

// Deps are the stores and collaborators the default stages act through.
// Stores are required. A nil collaborator leaves its stage in the catalog
// but every run bypasses it.
type Deps struct {
	Items  storage.ItemStore
	Chunks storage.ChunkStore
	Index  storage.VectorIndex

	Audio     AudioAcquirer
	Captions  TranscriptFetcher
	Formatter ai.TranscriptFormatter
	Chunker   Chunker
	Embedder  ai.Embedder
	Generator ai.ContentGenerator
	Renderer  GuideRenderer
	Publisher Publisher

	Logger *slog.Logger
}

// Catalog returns the default nine-stage pipeline. Acquisition and
// publication are fatal; every other stage is recoverable.
func Catalog(d Deps) ([]pipeline.Stage, error) {
	switch {
	case d.Items == nil:
		return nil, ErrItemStoreRequired
	case d.Chunks == nil:
		return nil, ErrChunkStoreRequired
	case d.Index == nil:
		return nil, ErrVectorIndexRequired
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	a := &actions{Deps: d, logger: d.Logger.With("component", "stages")}

	return []pipeline.Stage{
		{
			Order: 1, Name: Acquire, Fatal: true,
			Description: "Extract and loudness-normalize podcast audio",
			Probe:       a.probeItem(func(it *core.Item) bool { return it.AudioURL != "" }),
			Action:      a.acquire,
		},
		{
			Order: 2, Name: Transcript,
			Description: "Fetch timed captions",
			Probe:       a.probeItem(func(it *core.Item) bool { return len(it.Transcript) > 0 }),
			Action:      a.transcript,
		},
		{
			Order: 3, Name: Format,
			Description: "Punctuate and paragraph the transcript",
			Probe:       a.probeItem(func(it *core.Item) bool { return it.FormattedTranscript != "" }),
			Action:      a.format,
		},
		{
			Order: 4, Name: Chunk,
			Description: "Split the transcript into overlapping time windows",
			Probe:       a.probeItem(func(it *core.Item) bool { return it.ChunkCount > 0 }),
			Action:      a.chunk,
		},
		{
			Order: 5, Name: Embed,
			Description: "Embed transcript chunks",
			Probe:       a.probeEmbedded,
			Action:      a.embed,
		},
		{
			Order: 6, Name: Index,
			Description: "Index chunk embeddings in the tenant namespace",
			Probe:       a.probeItem(func(it *core.Item) bool { return it.Search.Indexed }),
			Action:      a.index,
		},
		{
			Order: 7, Name: AIContent,
			Description: "Generate summary, scripture, topics and discussion guide",
			Probe:       a.probeItem(func(it *core.Item) bool { return it.Content != nil }),
			Action:      a.aiContent,
		},
		{
			Order: 8, Name: Guide,
			Description: "Render the discussion guide PDF",
			Probe:       a.probeItem(func(it *core.Item) bool { return it.GuideURL != "" }),
			Action:      a.guide,
		},
		{
			Order: 9, Name: Publish, Fatal: true,
			Description: "Create or update the sermon post",
			Probe:       a.probeItem(func(it *core.Item) bool { return it.Publication.PostID != 0 }),
			Action:      a.publish,
		},
	}, nil
}

// NewRegistry builds a registry of the default catalog with policy applied.
// policy may be nil.
func NewRegistry(d Deps, policy *pipeline.Policy) (*pipeline.Registry, error) {
	catalog, err := Catalog(d)
	if err != nil {
		return nil, err
	}
	registry, err := pipeline.NewRegistry(catalog...)
	if err != nil {
		return nil, err
	}
	return registry.WithPolicy(policy)
}
