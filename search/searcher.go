package search

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/poiesic/homily/ai"
	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/storage"
)

// DefaultMinScore is the similarity floor for semantic matches.
const DefaultMinScore = 0.60

// verbatimBoost is added to hits containing every significant query word.
const verbatimBoost = 0.3

// Result is one transcript passage matching a query.
type Result struct {
	ItemID   string
	ChunkID  string
	Title    string
	Speaker  string
	Text     string
	Start    float64
	End      float64
	Score    float32
	Verbatim bool
}

// Searcher runs semantic search over indexed transcript chunks.
type Searcher struct {
	index    storage.VectorIndex
	embedder ai.Embedder
	minScore float32
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinScore sets the similarity floor for semantic matches.
func WithMinScore(score float32) Option {
	return func(s *Searcher) error {
		s.minScore = score
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(index storage.VectorIndex, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		index:    index,
		embedder: embedder,
		minScore: DefaultMinScore,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")
	return s, nil
}

// Search returns up to maxHits passages of tenantID's sermons matching
// query, best first.
func (s *Searcher) Search(ctx context.Context, tenantID, query string, maxHits int) ([]*Result, error) {
	return s.SearchWithMonitor(ctx, tenantID, query, maxHits, nil)
}

// SearchWithMonitor is Search with progress callbacks.
func (s *Searcher) SearchWithMonitor(ctx context.Context, tenantID, query string, maxHits int, monitor SearchMonitor) ([]*Result, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits <= 0 {
		maxHits = 10
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(tenantID, query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	// Over-fetch so the verbatim boost can reorder beyond the first page
	matches, err := s.index.Query(ctx, core.Namespace(tenantID), embedding, s.minScore, maxHits*3)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "tenant", tenantID, "err", err)
		return nil, err
	}
	monitor.AfterSemanticSearch(len(matches))

	results := make([]*Result, 0, len(matches))
	for _, m := range matches {
		r := resultFrom(m)
		if containsAllQueryWords(r.Text, query) {
			r.Verbatim = true
			r.Score += verbatimBoost
			monitor.VerbatimHit(r)
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	s.logger.Debug("search complete", "tenant", tenantID, "matches", len(matches), "results", len(results))
	return results, nil
}

func resultFrom(m *core.VectorMatch) *Result {
	md := m.Vector.Metadata
	start, _ := strconv.ParseFloat(md["start"], 64)
	end, _ := strconv.ParseFloat(md["end"], 64)
	return &Result{
		ItemID:  md["item_id"],
		ChunkID: m.Vector.ID,
		Title:   md["title"],
		Speaker: md["speaker"],
		Text:    md["text"],
		Start:   start,
		End:     end,
		Score:   m.Score,
	}
}
