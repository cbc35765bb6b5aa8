package stages

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/homily/ai"
	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/pipeline"
)

type actions struct {
	Deps
	logger *slog.Logger
}

func (a *actions) probeItem(done func(*core.Item) bool) pipeline.ProbeFunc {
	return func(ctx context.Context, itemID string) (bool, error) {
		item, err := a.Items.GetItem(ctx, itemID)
		if err != nil {
			return false, err
		}
		return done(item), nil
	}
}

// probeEmbedded reports whether every stored chunk carries a vector.
func (a *actions) probeEmbedded(ctx context.Context, itemID string) (bool, error) {
	chunks, err := a.Chunks.GetChunks(ctx, itemID)
	if err != nil {
		return false, err
	}
	return len(chunks) > 0 && allEmbedded(chunks), nil
}

func allEmbedded(chunks []*core.Chunk) bool {
	for _, c := range chunks {
		if len(c.Vector) == 0 {
			return false
		}
	}
	return true
}

func (a *actions) update(ctx context.Context, itemID string, fn func(*core.Item)) error {
	_, err := a.Items.UpdateItem(ctx, itemID, func(it *core.Item) error {
		fn(it)
		return nil
	})
	return err
}

func notConfigured(what string) error {
	return pipeline.InputUnavailable("no %s configured", what)
}

func (a *actions) acquire(ctx context.Context, inv *pipeline.Invocation) error {
	if a.Audio == nil {
		return notConfigured("audio acquirer")
	}
	item, err := a.Items.GetItem(ctx, inv.ItemID)
	if err != nil {
		return err
	}
	asset, err := a.Audio.AcquireAudio(ctx, item)
	if err != nil {
		return err
	}
	return a.update(ctx, inv.ItemID, func(it *core.Item) {
		it.AudioURL = asset.URL
		it.DurationSeconds = asset.DurationSeconds
	})
}

func (a *actions) transcript(ctx context.Context, inv *pipeline.Invocation) error {
	if a.Captions == nil {
		return notConfigured("transcript fetcher")
	}
	segments, err := a.Captions.FetchTranscript(ctx, inv.ItemID)
	if err != nil {
		return err
	}
	a.logger.Debug("transcript fetched", "item", inv.ItemID, "segments", len(segments))
	return a.update(ctx, inv.ItemID, func(it *core.Item) {
		it.Transcript = segments
	})
}

func (a *actions) format(ctx context.Context, inv *pipeline.Invocation) error {
	if a.Formatter == nil {
		return notConfigured("transcript formatter")
	}
	item, err := a.Items.GetItem(ctx, inv.ItemID)
	if err != nil {
		return err
	}
	raw := item.RawTranscript()
	if raw == "" {
		return pipeline.InputUnavailable("transcript missing")
	}
	formatted, usage, err := a.Formatter.FormatTranscript(ctx, raw)
	inv.AddCost(core.CostFormatting, usage.CostUSD)
	if err != nil {
		return err
	}
	return a.update(ctx, inv.ItemID, func(it *core.Item) {
		it.FormattedTranscript = formatted
	})
}

func (a *actions) chunk(ctx context.Context, inv *pipeline.Invocation) error {
	if a.Chunker == nil {
		return notConfigured("chunker")
	}
	item, err := a.Items.GetItem(ctx, inv.ItemID)
	if err != nil {
		return err
	}
	if len(item.Transcript) == 0 {
		return pipeline.InputUnavailable("transcript missing")
	}
	chunks, err := a.Chunker.Chunk(item.ID, item.Transcript)
	if err != nil {
		return err
	}
	if err := a.Chunks.SaveChunks(ctx, item.ID, chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}
	return a.update(ctx, inv.ItemID, func(it *core.Item) {
		it.ChunkCount = len(chunks)
	})
}

func (a *actions) embed(ctx context.Context, inv *pipeline.Invocation) error {
	if a.Embedder == nil {
		return notConfigured("embedder")
	}
	chunks, err := a.Chunks.GetChunks(ctx, inv.ItemID)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return pipeline.InputUnavailable("chunks missing")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	model := a.Embedder.Model()
	vectors, err := a.Embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	inv.AddCost(core.CostEmbeddings, ai.EmbeddingCost(model, ai.CountTokensAll(model, texts)))

	for i, c := range chunks {
		c.Vector = vectors[i]
	}
	return a.Chunks.UpdateChunks(ctx, chunks...)
}

func (a *actions) index(ctx context.Context, inv *pipeline.Invocation) error {
	item, err := a.Items.GetItem(ctx, inv.ItemID)
	if err != nil {
		return err
	}
	chunks, err := a.Chunks.GetChunks(ctx, inv.ItemID)
	if err != nil {
		return err
	}
	if len(chunks) == 0 || !allEmbedded(chunks) {
		return pipeline.InputUnavailable("chunk embeddings missing")
	}

	ns := core.Namespace(item.TenantID)
	vectors := make([]*core.Vector, len(chunks))
	for i, c := range chunks {
		vectors[i] = core.ChunkVector(item, c)
	}
	if err := a.Index.DeleteByPrefix(ctx, ns, item.ID+"_chunk_"); err != nil {
		return fmt.Errorf("clear previous vectors: %w", err)
	}
	if err := a.Index.Upsert(ctx, ns, vectors); err != nil {
		return fmt.Errorf("upsert vectors: %w", err)
	}

	model := ""
	if a.Embedder != nil {
		model = a.Embedder.Model()
	}
	return a.update(ctx, inv.ItemID, func(it *core.Item) {
		it.Search = core.SearchInfo{
			Indexed:        true,
			Namespace:      ns,
			ChunkCount:     len(chunks),
			EmbeddingModel: model,
		}
	})
}

func (a *actions) aiContent(ctx context.Context, inv *pipeline.Invocation) error {
	if a.Generator == nil {
		return notConfigured("content generator")
	}
	item, err := a.Items.GetItem(ctx, inv.ItemID)
	if err != nil {
		return err
	}
	text := item.TranscriptText()
	if text == "" {
		return pipeline.InputUnavailable("transcript missing")
	}
	content, usage, err := a.Generator.GenerateContent(ctx, item.Title, text)
	inv.AddCost(core.CostAIContent, usage.CostUSD)
	if err != nil {
		return err
	}
	return a.update(ctx, inv.ItemID, func(it *core.Item) {
		it.Content = content
	})
}

func (a *actions) guide(ctx context.Context, inv *pipeline.Invocation) error {
	if a.Renderer == nil {
		return notConfigured("guide renderer")
	}
	item, err := a.Items.GetItem(ctx, inv.ItemID)
	if err != nil {
		return err
	}
	if !item.Content.HasGuide() {
		return pipeline.InputUnavailable("discussion guide content missing")
	}
	location, err := a.Renderer.RenderGuide(ctx, item)
	if err != nil {
		return err
	}
	return a.update(ctx, inv.ItemID, func(it *core.Item) {
		it.GuideURL = location
	})
}

func (a *actions) publish(ctx context.Context, inv *pipeline.Invocation) error {
	if a.Publisher == nil {
		return notConfigured("publisher")
	}
	item, err := a.Items.GetItem(ctx, inv.ItemID)
	if err != nil {
		return err
	}
	pub, err := a.Publisher.Publish(ctx, item)
	if err != nil {
		return err
	}
	return a.update(ctx, inv.ItemID, func(it *core.Item) {
		it.Publication = pub
	})
}
