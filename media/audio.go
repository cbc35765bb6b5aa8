package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/poiesic/homily/core"
)

// Acquirer extracts sermon audio with yt-dlp, normalizes loudness with
// ffmpeg and measures it with ffprobe.
type Acquirer struct {
	cfg    Config
	runner commandRunner
	logger *slog.Logger
}

// NewAcquirer creates an Acquirer that runs the real tools.
func NewAcquirer(cfg Config, logger *slog.Logger) (*Acquirer, error) {
	return newAcquirer(cfg, &execRunner{}, logger)
}

func newAcquirer(cfg Config, runner commandRunner, logger *slog.Logger) (*Acquirer, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{
		cfg:    cfg,
		runner: runner,
		logger: logger.With("component", "audio_acquirer"),
	}, nil
}

// AcquireAudio downloads and normalizes the audio of item. A failed
// loudness pass keeps the unnormalized file; an unreadable duration is
// reported as zero.
func (a *Acquirer) AcquireAudio(ctx context.Context, item *core.Item) (core.AudioAsset, error) {
	if item.ID == "" {
		return core.AudioAsset{}, ErrVideoIDRequired
	}

	dir := filepath.Join(a.cfg.OutputDir, item.TenantID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.AudioAsset{}, fmt.Errorf("create audio dir: %w", err)
	}
	out := filepath.Join(dir, item.ID+".mp3")

	source := item.SourceURL
	if source == "" {
		source = videoURL(item.ID)
	}

	a.logger.Info("extracting audio", "item", item.ID)
	_, err := run(ctx, a.runner, a.cfg.withTimeout, a.cfg.YtDlpPath,
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--output", filepath.Join(dir, item.ID+".%(ext)s"),
		"--no-playlist",
		"--no-warnings",
		"--quiet",
		source,
	)
	if err != nil {
		return core.AudioAsset{}, err
	}

	if _, err := os.Stat(out); err != nil {
		if err := a.convertLeftover(ctx, dir, item.ID, out); err != nil {
			return core.AudioAsset{}, err
		}
	}

	a.normalize(ctx, out)
	duration := a.duration(ctx, out)

	info, err := os.Stat(out)
	if err != nil {
		return core.AudioAsset{}, fmt.Errorf("stat audio: %w", err)
	}

	asset := core.AudioAsset{
		URL:             a.publicURL(item.TenantID, out),
		Path:            out,
		DurationSeconds: duration,
		SizeBytes:       info.Size(),
	}
	a.logger.Info("audio extracted", "item", item.ID, "duration", duration, "bytes", asset.SizeBytes)
	return asset, nil
}

// convertLeftover handles yt-dlp writing a non-mp3 container.
func (a *Acquirer) convertLeftover(ctx context.Context, dir, videoID, out string) error {
	matches, err := filepath.Glob(filepath.Join(dir, videoID+".*"))
	if err != nil {
		return err
	}
	var source string
	for _, m := range matches {
		if m != out && !strings.HasSuffix(m, ".part") {
			source = m
			break
		}
	}
	if source == "" {
		return fmt.Errorf("%w for %s", ErrAudioNotCreated, videoID)
	}

	a.logger.Debug("converting to mp3", "source", filepath.Base(source))
	_, err = run(ctx, a.runner, a.cfg.withTimeout, a.cfg.FFmpegPath,
		"-i", source,
		"-codec:a", "libmp3lame",
		"-b:a", a.cfg.Bitrate,
		"-y", out,
	)
	if err != nil {
		return err
	}
	return os.Remove(source)
}

func (a *Acquirer) normalize(ctx context.Context, path string) {
	tmp := strings.TrimSuffix(path, ".mp3") + ".normalized.mp3"
	_, err := run(ctx, a.runner, a.cfg.withTimeout, a.cfg.FFmpegPath,
		"-i", path,
		"-af", "loudnorm=I=-16:LRA=11:TP=-1.5",
		"-codec:a", "libmp3lame",
		"-b:a", a.cfg.Bitrate,
		"-ac", strconv.Itoa(a.cfg.Channels),
		"-ar", strconv.Itoa(a.cfg.SampleRate),
		"-y", tmp,
	)
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		a.logger.Warn("audio normalization failed, keeping original", "path", path, "err", err)
		if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			a.logger.Debug("remove normalized temp", "err", rmErr)
		}
	}
}

func (a *Acquirer) duration(ctx context.Context, path string) int {
	res, err := run(ctx, a.runner, a.cfg.withTimeout, a.cfg.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		a.logger.Warn("ffprobe failed", "path", path, "err", err)
		return 0
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil {
		a.logger.Warn("unparseable duration", "output", res.Stdout)
		return 0
	}
	return int(secs)
}

func (a *Acquirer) publicURL(tenantID, path string) string {
	name := filepath.Base(path)
	if a.cfg.BaseURL != "" {
		return strings.TrimRight(a.cfg.BaseURL, "/") + "/" + url.PathEscape(tenantID) + "/" + url.PathEscape(name)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}
