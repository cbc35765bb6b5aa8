package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/homily/ai/mock"
	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// topicVector maps text onto one of three axes so similarity is predictable.
func topicVector(text string) []float32 {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "water"):
		return []float32{1, 0, 0}
	case strings.Contains(lower, "grace"):
		return []float32{0, 1, 0}
	}
	return []float32{0, 0, 1}
}

func newTopicEmbedder() *mock.MockEmbedder {
	e := mock.NewMockEmbedder()
	e.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return topicVector(text), nil
	}
	return e
}

func chunkVector(itemID, chunkID, title, text string, values []float32) *core.Vector {
	return &core.Vector{
		ID:     chunkID,
		Values: values,
		Metadata: map[string]string{
			"item_id": itemID,
			"title":   title,
			"speaker": "Pastor Ruth",
			"text":    text,
			"start":   "105.00",
			"end":     "225.50",
		},
	}
}

func seed(t *testing.T, stores *badger.Stores) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, stores.Vectors.Upsert(ctx, core.Namespace("grace"), []*core.Vector{
		chunkVector("abc", "abc_chunk_000", "Living Water", "Jesus offers living water to all who thirst", []float32{1, 0, 0}),
		chunkVector("abc", "abc_chunk_001", "Living Water", "the well was deep and the water cold", []float32{0.8, 0.5, 0}),
		chunkVector("def", "def_chunk_000", "Amazing Grace", "grace upon grace", []float32{0, 1, 0}),
	}))
	require.NoError(t, stores.Vectors.Upsert(ctx, core.Namespace("hope"), []*core.Vector{
		chunkVector("xyz", "xyz_chunk_000", "Water Walk", "peter walked on water", []float32{1, 0, 0}),
	}))
}

func newTestSearcher(t *testing.T) (*Searcher, *mock.MockEmbedder) {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close() })
	seed(t, stores)

	embedder := newTopicEmbedder()
	s, err := NewSearcher(stores.Vectors, embedder)
	require.NoError(t, err)
	return s, embedder
}

func TestNewSearcher(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	t.Run("valid configuration", func(t *testing.T) {
		s, err := NewSearcher(stores.Vectors, mock.NewMockEmbedder(), WithLogger(nil), WithMinScore(0.8))
		require.NoError(t, err)
		assert.Equal(t, float32(0.8), s.minScore)
	})

	t.Run("nil index", func(t *testing.T) {
		_, err := NewSearcher(nil, mock.NewMockEmbedder())
		assert.Equal(t, ErrVectorIndexRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewSearcher(stores.Vectors, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})
}

func TestSearch_RanksBySimilarity(t *testing.T) {
	s, _ := newTestSearcher(t)

	results, err := s.Search(context.Background(), "grace", "living water", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	top := results[0]
	assert.Equal(t, "abc_chunk_000", top.ChunkID)
	assert.Equal(t, "abc", top.ItemID)
	assert.Equal(t, "Living Water", top.Title)
	assert.Equal(t, "Pastor Ruth", top.Speaker)
	assert.Equal(t, 105.0, top.Start)
	assert.Equal(t, 225.5, top.End)
	assert.True(t, top.Verbatim)
	assert.InDelta(t, 1.3, top.Score, 1e-6)

	assert.Equal(t, "abc_chunk_001", results[1].ChunkID)
	assert.False(t, results[1].Verbatim)
	assert.InDelta(t, 0.8, results[1].Score, 1e-6)
}

func TestSearch_TenantIsolation(t *testing.T) {
	s, _ := newTestSearcher(t)

	results, err := s.Search(context.Background(), "hope", "water", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "xyz", results[0].ItemID)

	results, err = s.Search(context.Background(), "nobody", "water", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_VerbatimBoostReorders(t *testing.T) {
	s, _ := newTestSearcher(t)

	// Both water chunks match; only the second contains "cold" and "well"
	results, err := s.Search(context.Background(), "grace", "the cold water well", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "abc_chunk_001", results[0].ChunkID)
	assert.True(t, results[0].Verbatim)
	assert.InDelta(t, 1.1, results[0].Score, 1e-6)
}

func TestSearch_MaxHits(t *testing.T) {
	s, _ := newTestSearcher(t)

	results, err := s.Search(context.Background(), "grace", "water", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_Validation(t *testing.T) {
	s, _ := newTestSearcher(t)
	ctx := context.Background()

	_, err := s.Search(ctx, "", "water", 5)
	assert.ErrorIs(t, err, ErrTenantRequired)
	_, err = s.Search(ctx, "grace", "   ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearch_EmbedderError(t *testing.T) {
	s, embedder := newTestSearcher(t)
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("model offline")
	}
	_, err := s.Search(context.Background(), "grace", "water", 5)
	assert.EqualError(t, err, "model offline")
}

type recordingMonitor struct {
	started  string
	matches  int
	verbatim []string
	finished int
}

func (m *recordingMonitor) Start(tenantID, query string) { m.started = tenantID + ":" + query }
func (m *recordingMonitor) AfterSemanticSearch(n int)    { m.matches = n }
func (m *recordingMonitor) VerbatimHit(r *Result)        { m.verbatim = append(m.verbatim, r.ChunkID) }
func (m *recordingMonitor) Finish(results []*Result)     { m.finished = len(results) }

func TestSearchWithMonitor(t *testing.T) {
	s, _ := newTestSearcher(t)
	mon := &recordingMonitor{}

	_, err := s.SearchWithMonitor(context.Background(), "grace", "grace", 10, mon)
	require.NoError(t, err)
	assert.Equal(t, "grace:grace", mon.started)
	assert.Equal(t, 1, mon.matches)
	assert.Equal(t, []string{"def_chunk_000"}, mon.verbatim)
	assert.Equal(t, 1, mon.finished)
}

func TestContainsAllQueryWords(t *testing.T) {
	assert.True(t, containsAllQueryWords("Jesus offers living water.", "the living water"))
	assert.False(t, containsAllQueryWords("Jesus offers water", "living water"))
	assert.False(t, containsAllQueryWords("anything", "the of and"))
}
