package media

import (
	"context"
	"errors"
	"time"
)

// Config holds tool paths and output locations for media processing.
type Config struct {
	// YtDlpPath, FFmpegPath and FFprobePath locate the external tools.
	YtDlpPath   string
	FFmpegPath  string
	FFprobePath string

	// OutputDir is where normalized audio is written, one directory per tenant.
	OutputDir string

	// BaseURL is the public prefix audio files are served under. When
	// empty, file:// URLs are returned.
	BaseURL string

	// Timeout bounds each external tool invocation.
	Timeout time.Duration

	// Languages lists caption languages in preference order.
	Languages []string

	// Bitrate, Channels and SampleRate shape the normalized mp3.
	Bitrate    string
	Channels   int
	SampleRate int
}

// DefaultConfig returns podcast-ready defaults: mono 128k mp3 at 44.1kHz
// and a 10 minute tool timeout.
func DefaultConfig() Config {
	return Config{
		YtDlpPath:   "yt-dlp",
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		OutputDir:   "media",
		Timeout:     10 * time.Minute,
		Languages:   []string{"en", "en-US", "en-GB"},
		Bitrate:     "128k",
		Channels:    1,
		SampleRate:  44100,
	}
}

// Normalize fills unset fields from DefaultConfig.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.YtDlpPath == "" {
		c.YtDlpPath = d.YtDlpPath
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = d.FFmpegPath
	}
	if c.FFprobePath == "" {
		c.FFprobePath = d.FFprobePath
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if len(c.Languages) == 0 {
		c.Languages = d.Languages
	}
	if c.Bitrate == "" {
		c.Bitrate = d.Bitrate
	}
	if c.Channels <= 0 {
		c.Channels = d.Channels
	}
	if c.SampleRate <= 0 {
		c.SampleRate = d.SampleRate
	}
}

// Validate checks a normalized config.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output dir is required")
	}
	return nil
}

func (c *Config) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.Timeout)
}

// videoURL returns the watch URL for a video ID.
func videoURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
