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


package homily

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/poiesic/homily/ai"
	"github.com/poiesic/homily/ai/mock"
	"github.com/poiesic/homily/ai/openai"
	"github.com/poiesic/homily/chunker"
	"github.com/poiesic/homily/config"
	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/media"
	"github.com/poiesic/homily/metrics"
	"github.com/poiesic/homily/pipeline"
	"github.com/poiesic/homily/publish"
	"github.com/poiesic/homily/queue"
	"github.com/poiesic/homily/reembed"
	"github.com/poiesic/homily/render"
	"github.com/poiesic/homily/search"
	"github.com/poiesic/homily/stages"
	"github.com/poiesic/homily/storage/badger"
)

// ErrConfigRequired is returned by Open without a configuration.
var ErrConfigRequired = errors.New("config is required")

// App wires the stores, collaborators and pipeline engine for one
// database.
type App struct {
	cfg          *config.Config
	stores       *badger.Stores
	provider     ai.AIProvider
	registry     *pipeline.Registry
	orchestrator *pipeline.Orchestrator
	metrics      *metrics.Metrics
	watchQueue   sync.Once
	logger       *slog.Logger
}

// Option configures an App.
type Option func(*appOptions)

type appOptions struct {
	inMemory  bool
	provider  ai.AIProvider
	acquirer  stages.AudioAcquirer
	captions  stages.TranscriptFetcher
	publisher stages.Publisher
	logger    *slog.Logger
}

// WithInMemory keeps the database in memory, ignoring cfg.DBPath.
func WithInMemory() Option {
	return func(o *appOptions) { o.inMemory = true }
}

// WithProvider replaces the AI provider built from cfg.AI.
func WithProvider(p ai.AIProvider) Option {
	return func(o *appOptions) { o.provider = p }
}

// WithAudioAcquirer replaces the yt-dlp audio acquirer.
func WithAudioAcquirer(a stages.AudioAcquirer) Option {
	return func(o *appOptions) { o.acquirer = a }
}

// WithTranscriptFetcher replaces the yt-dlp caption fetcher.
func WithTranscriptFetcher(f stages.TranscriptFetcher) Option {
	return func(o *appOptions) { o.captions = f }
}

// WithPublisher replaces the WordPress publisher.
func WithPublisher(p stages.Publisher) Option {
	return func(o *appOptions) { o.publisher = p }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *appOptions) { o.logger = logger }
}

// Open opens the database at cfg.DBPath and builds the pipeline. Stages
// whose collaborator is not configured are bypassed when they run.
func Open(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	options := &appOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	backend, err := badger.OpenBackend(cfg.DBPath, options.inMemory)
	if err != nil {
		return nil, err
	}
	stores := badger.NewStores(backend)

	provider := options.provider
	if provider == nil {
		provider, err = newProvider(cfg)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	deps, err := collaborators(cfg, options, logger)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}
	deps.Items = stores.Items
	deps.Chunks = stores.Chunks
	deps.Index = stores.Vectors
	deps.Embedder = provider.Embedder()
	deps.Generator = provider.ContentGenerator()
	deps.Formatter = provider.TranscriptFormatter()
	deps.Logger = logger

	var policy *pipeline.Policy
	if cfg.PolicyFile != "" {
		if policy, err = pipeline.LoadPolicy(cfg.PolicyFile); err != nil {
			provider.Close()
			backend.Close()
			return nil, err
		}
	}

	registry, err := stages.NewRegistry(deps, policy)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	m := metrics.New()
	orchestrator, err := pipeline.NewOrchestrator(registry, stores.States, stores.Items,
		pipeline.WithLogger(logger),
		pipeline.WithObserver(m),
	)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	return &App{
		cfg:          cfg,
		stores:       stores,
		provider:     provider,
		registry:     registry,
		orchestrator: orchestrator,
		metrics:      m,
		logger:       logger,
	}, nil
}

func newProvider(cfg *config.Config) (ai.AIProvider, error) {
	if cfg.AI.Provider == "mock" {
		return mock.NewMockProvider(), nil
	}
	return openai.NewProvider(cfg.AIConfig())
}

// collaborators builds the media, chunking, rendering and publishing
// adapters. Overrides in o win over cfg.
func collaborators(cfg *config.Config, o *appOptions, logger *slog.Logger) (stages.Deps, error) {
	var d stages.Deps

	ch, err := chunker.New()
	if err != nil {
		return d, err
	}
	d.Chunker = ch
	d.Renderer = render.NewRenderer(cfg.Render.OutputDir, cfg.Render.BaseURL, logger)

	d.Audio = o.acquirer
	d.Captions = o.captions
	if cfg.Media.Enabled {
		mc := cfg.MediaConfig()
		if d.Audio == nil {
			acq, err := media.NewAcquirer(mc, logger)
			if err != nil {
				return d, err
			}
			d.Audio = acq
		}
		if d.Captions == nil {
			d.Captions = media.NewCaptionFetcher(mc, logger)
		}
	}

	d.Publisher = o.publisher
	if d.Publisher == nil && cfg.WordPress.Enabled() {
		client, err := publish.NewClient(cfg.PublishConfig(), publish.WithLogger(logger))
		if err != nil {
			return d, err
		}
		d.Publisher = client
	}
	return d, nil
}

// Close releases the AI provider and the database.
func (a *App) Close() error {
	if err := a.provider.Close(); err != nil {
		a.logger.Error("error closing AI provider", "err", err)
	}
	if err := a.stores.Close(); err != nil {
		a.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Config returns the configuration the app was opened with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Stores returns the underlying stores.
func (a *App) Stores() *badger.Stores {
	return a.stores
}

// Registry returns the stage registry.
func (a *App) Registry() *pipeline.Registry {
	return a.registry
}

// Metrics returns the collector attached to every run.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Enroll adds a new item in pending status.
func (a *App) Enroll(ctx context.Context, item *core.Item) (*core.Item, error) {
	return a.stores.Items.AddItem(ctx, item)
}

// Item returns the stored item record.
func (a *App) Item(ctx context.Context, itemID string) (*core.Item, error) {
	return a.stores.Items.GetItem(ctx, itemID)
}

// Items lists a tenant's items, or every item when tenantID is empty.
func (a *App) Items(ctx context.Context, tenantID string) ([]*core.Item, error) {
	return a.stores.Items.ListItems(ctx, tenantID)
}

// State returns the pipeline state of itemID.
func (a *App) State(ctx context.Context, itemID string) (*core.PipelineState, error) {
	return a.stores.States.Load(ctx, itemID)
}

// Run drives one item through the pipeline.
func (a *App) Run(ctx context.Context, itemID string, opts pipeline.RunOptions) (*core.ArtifactSummary, error) {
	return a.orchestrator.Run(ctx, itemID, opts)
}

// NewBatch creates a batch coordinator running concurrency items at once.
// Zero uses cfg.Batch.Concurrency.
func (a *App) NewBatch(concurrency int) (*pipeline.Batch, error) {
	if concurrency <= 0 {
		concurrency = a.cfg.Batch.Concurrency
	}
	return pipeline.NewBatch(a.orchestrator,
		pipeline.WithConcurrency(concurrency),
		pipeline.WithLogger(a.logger),
	)
}

// NewQueue creates a job queue configured from cfg.Queue. The depth of
// the first queue created is exported on the app's metrics.
func (a *App) NewQueue(opts ...queue.Option) (*queue.Queue, error) {
	all := append(a.cfg.QueueOptions(),
		queue.WithLogger(a.logger),
		queue.WithObserver(a.metrics),
	)
	q, err := queue.New(a.orchestrator, a.stores.Items, a.stores.States, append(all, opts...)...)
	if err != nil {
		return nil, err
	}
	a.watchQueue.Do(func() { a.metrics.WatchQueue(q) })
	return q, nil
}

// NewSearcher creates a searcher over the indexed transcripts.
func (a *App) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	all := []search.Option{
		search.WithLogger(a.logger),
		search.WithMinScore(a.cfg.Search.MinScore),
	}
	return search.NewSearcher(a.stores.Vectors, a.provider.Embedder(), append(all, opts...)...)
}

// NewReembedder creates a reembedder using the provider's current
// embedding model. Progress lines are written to progress.
func (a *App) NewReembedder(progress io.Writer) (*reembed.Reembedder, error) {
	return reembed.NewReembedder(a.stores.Items, a.stores.Chunks, a.stores.Vectors,
		a.provider.Embedder(), a.cfg.ReembedConfig(), progress)
}
