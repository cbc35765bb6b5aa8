// Package config loads the application configuration from an optional
// YAML file and HOMILY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/poiesic/homily/ai"
	"github.com/poiesic/homily/media"
	"github.com/poiesic/homily/publish"
	"github.com/poiesic/homily/queue"
	"github.com/poiesic/homily/reembed"
	"github.com/poiesic/homily/search"
)

// EnvPrefix prefixes every environment override: ai.api_key is read from
// HOMILY_AI_API_KEY.
const EnvPrefix = "HOMILY"

// Config is the complete application configuration.
type Config struct {
	// DBPath is the BadgerDB directory.
	DBPath string `mapstructure:"db_path"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `mapstructure:"log_level"`

	// PolicyFile optionally overrides stage fatality (YAML).
	PolicyFile string `mapstructure:"policy_file"`

	// MetricsAddr serves /metrics while the queue runs. Empty disables it.
	MetricsAddr string `mapstructure:"metrics_addr"`

	AI        AIConfig        `mapstructure:"ai"`
	Media     MediaConfig     `mapstructure:"media"`
	Render    RenderConfig    `mapstructure:"render"`
	WordPress WordPressConfig `mapstructure:"wordpress"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Search    SearchConfig    `mapstructure:"search"`
	Reembed   ReembedConfig   `mapstructure:"reembed"`
}

type AIConfig struct {
	// Provider is "openai" for any OpenAI-compatible API, or "mock".
	Provider           string        `mapstructure:"provider"`
	Host               string        `mapstructure:"host"`
	APIKey             string        `mapstructure:"api_key"`
	EmbeddingModel     string        `mapstructure:"embedding_model"`
	GenerationModel    string        `mapstructure:"generation_model"`
	FormatModel        string        `mapstructure:"format_model"`
	MaxTranscriptChars int           `mapstructure:"max_transcript_chars"`
	EmbeddingBatchSize int           `mapstructure:"embedding_batch_size"`
	MaxAttempts        uint          `mapstructure:"max_attempts"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
}

type MediaConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	YtDlpPath   string        `mapstructure:"ytdlp_path"`
	FFmpegPath  string        `mapstructure:"ffmpeg_path"`
	FFprobePath string        `mapstructure:"ffprobe_path"`
	OutputDir   string        `mapstructure:"output_dir"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Languages   []string      `mapstructure:"languages"`
}

type RenderConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	BaseURL   string `mapstructure:"base_url"`
}

type WordPressConfig struct {
	SiteURL     string        `mapstructure:"site_url"`
	Username    string        `mapstructure:"username"`
	AppPassword string        `mapstructure:"app_password"`
	Status      string        `mapstructure:"status"`
	Categories  []int         `mapstructure:"categories"`
	Author      int           `mapstructure:"author"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether enough is configured to publish.
func (w WordPressConfig) Enabled() bool {
	return w.SiteURL != "" && w.Username != "" && w.AppPassword != ""
}

type QueueConfig struct {
	Workers    int           `mapstructure:"workers"`
	JobTimeout time.Duration `mapstructure:"job_timeout"`
	ResultTTL  time.Duration `mapstructure:"result_ttl"`
	FailureTTL time.Duration `mapstructure:"failure_ttl"`
}

type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type SearchConfig struct {
	MinScore float32 `mapstructure:"min_score"`
	MaxHits  int     `mapstructure:"max_hits"`
}

type ReembedConfig struct {
	BatchSize      int           `mapstructure:"batch_size"`
	ReportInterval int           `mapstructure:"report_interval"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	aiDef := ai.DefaultConfig()
	mediaDef := media.DefaultConfig()
	reDef := reembed.DefaultConfig()
	return &Config{
		DBPath:   "homily.db",
		LogLevel: "info",
		AI: AIConfig{
			Provider:           "openai",
			Host:               aiDef.Host,
			EmbeddingModel:     aiDef.EmbeddingModel,
			GenerationModel:    aiDef.GenerationModel,
			FormatModel:        aiDef.FormatModel,
			MaxTranscriptChars: aiDef.MaxTranscriptChars,
			EmbeddingBatchSize: aiDef.EmbeddingBatchSize,
			MaxAttempts:        aiDef.MaxAttempts,
			RetryDelay:         aiDef.RetryDelay,
		},
		Media: MediaConfig{
			Enabled:     true,
			YtDlpPath:   mediaDef.YtDlpPath,
			FFmpegPath:  mediaDef.FFmpegPath,
			FFprobePath: mediaDef.FFprobePath,
			OutputDir:   mediaDef.OutputDir,
			Timeout:     mediaDef.Timeout,
			Languages:   mediaDef.Languages,
		},
		Render: RenderConfig{
			OutputDir: "guides",
		},
		WordPress: WordPressConfig{
			Status:  publish.DefaultStatus,
			Timeout: publish.DefaultTimeout,
		},
		Queue: QueueConfig{
			Workers:    2,
			JobTimeout: queue.DefaultTimeout,
			ResultTTL:  queue.DefaultResultTTL,
			FailureTTL: queue.DefaultFailureTTL,
		},
		Batch: BatchConfig{
			Concurrency: 1,
		},
		Search: SearchConfig{
			MinScore: search.DefaultMinScore,
			MaxHits:  10,
		},
		Reembed: ReembedConfig{
			BatchSize:      reDef.BatchSize,
			ReportInterval: reDef.ReportInterval,
			MaxRetries:     reDef.MaxRetries,
			RetryDelay:     reDef.RetryDelay,
		},
	}
}

// defaults flattens Default into viper keys. Every key must be listed so
// that environment overrides are seen by Unmarshal.
func defaults() map[string]any {
	d := Default()
	return map[string]any{
		"db_path":                 d.DBPath,
		"log_level":               d.LogLevel,
		"policy_file":             d.PolicyFile,
		"metrics_addr":            d.MetricsAddr,
		"ai.provider":             d.AI.Provider,
		"ai.host":                 d.AI.Host,
		"ai.api_key":              d.AI.APIKey,
		"ai.embedding_model":      d.AI.EmbeddingModel,
		"ai.generation_model":     d.AI.GenerationModel,
		"ai.format_model":         d.AI.FormatModel,
		"ai.max_transcript_chars": d.AI.MaxTranscriptChars,
		"ai.embedding_batch_size": d.AI.EmbeddingBatchSize,
		"ai.max_attempts":         d.AI.MaxAttempts,
		"ai.retry_delay":          d.AI.RetryDelay,
		"media.enabled":           d.Media.Enabled,
		"media.ytdlp_path":        d.Media.YtDlpPath,
		"media.ffmpeg_path":       d.Media.FFmpegPath,
		"media.ffprobe_path":      d.Media.FFprobePath,
		"media.output_dir":        d.Media.OutputDir,
		"media.base_url":          d.Media.BaseURL,
		"media.timeout":           d.Media.Timeout,
		"media.languages":         d.Media.Languages,
		"render.output_dir":       d.Render.OutputDir,
		"render.base_url":         d.Render.BaseURL,
		"wordpress.site_url":      d.WordPress.SiteURL,
		"wordpress.username":      d.WordPress.Username,
		"wordpress.app_password":  d.WordPress.AppPassword,
		"wordpress.status":        d.WordPress.Status,
		"wordpress.categories":    d.WordPress.Categories,
		"wordpress.author":        d.WordPress.Author,
		"wordpress.timeout":       d.WordPress.Timeout,
		"queue.workers":           d.Queue.Workers,
		"queue.job_timeout":       d.Queue.JobTimeout,
		"queue.result_ttl":        d.Queue.ResultTTL,
		"queue.failure_ttl":       d.Queue.FailureTTL,
		"batch.concurrency":       d.Batch.Concurrency,
		"search.min_score":        d.Search.MinScore,
		"search.max_hits":         d.Search.MaxHits,
		"reembed.batch_size":      d.Reembed.BatchSize,
		"reembed.report_interval": d.Reembed.ReportInterval,
		"reembed.max_retries":     d.Reembed.MaxRetries,
		"reembed.retry_delay":     d.Reembed.RetryDelay,
	}
}

// Load reads configuration from path, or from homily.yaml in the working
// directory or $HOME/.homily when path is empty, then applies HOMILY_*
// environment overrides. A missing default file is not an error; a
// missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults() {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The provider's conventional variable works too.
	if err := v.BindEnv("ai.api_key", EnvPrefix+"_AI_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("homily")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.homily")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values no component can fall back from.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("config: db_path is required")
	}
	switch c.AI.Provider {
	case "openai", "mock":
	default:
		return fmt.Errorf("config: unknown ai.provider %q", c.AI.Provider)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	if c.Batch.Concurrency < 1 {
		return errors.New("config: batch.concurrency must be at least 1")
	}
	if c.Queue.Workers < 1 {
		return errors.New("config: queue.workers must be at least 1")
	}
	return nil
}

// AIConfig converts the ai section for the provider packages.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithHost(c.AI.Host),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithGenerationModel(c.AI.GenerationModel),
		ai.WithFormatModel(c.AI.FormatModel),
		ai.WithMaxTranscriptChars(c.AI.MaxTranscriptChars),
		ai.WithEmbeddingBatchSize(c.AI.EmbeddingBatchSize),
		ai.WithRetry(c.AI.MaxAttempts, c.AI.RetryDelay),
	)
}

// MediaConfig converts the media section.
func (c *Config) MediaConfig() media.Config {
	mc := media.DefaultConfig()
	mc.YtDlpPath = c.Media.YtDlpPath
	mc.FFmpegPath = c.Media.FFmpegPath
	mc.FFprobePath = c.Media.FFprobePath
	mc.OutputDir = c.Media.OutputDir
	mc.BaseURL = c.Media.BaseURL
	mc.Timeout = c.Media.Timeout
	mc.Languages = c.Media.Languages
	mc.Normalize()
	return mc
}

// PublishConfig converts the wordpress section.
func (c *Config) PublishConfig() publish.Config {
	return publish.Config{
		SiteURL:     c.WordPress.SiteURL,
		Username:    c.WordPress.Username,
		AppPassword: c.WordPress.AppPassword,
		Status:      c.WordPress.Status,
		Categories:  c.WordPress.Categories,
		Author:      c.WordPress.Author,
		Timeout:     c.WordPress.Timeout,
	}
}

// QueueOptions converts the queue section.
func (c *Config) QueueOptions() []queue.Option {
	return []queue.Option{
		queue.WithWorkers(c.Queue.Workers),
		queue.WithTimeout(c.Queue.JobTimeout),
		queue.WithRetention(c.Queue.ResultTTL, c.Queue.FailureTTL),
	}
}

// ReembedConfig converts the reembed section.
func (c *Config) ReembedConfig() *reembed.Config {
	return &reembed.Config{
		BatchSize:      c.Reembed.BatchSize,
		ReportInterval: c.Reembed.ReportInterval,
		MaxRetries:     c.Reembed.MaxRetries,
		RetryDelay:     c.Reembed.RetryDelay,
	}
}
