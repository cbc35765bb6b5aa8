package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/homily/core"
)

// CaptionFetcher downloads YouTube captions with yt-dlp. Manual captions
// are preferred; auto-generated ones are used when none exist.
type CaptionFetcher struct {
	cfg    Config
	runner commandRunner
	logger *slog.Logger
}

// NewCaptionFetcher creates a CaptionFetcher that runs yt-dlp.
func NewCaptionFetcher(cfg Config, logger *slog.Logger) *CaptionFetcher {
	return newCaptionFetcher(cfg, &execRunner{}, logger)
}

func newCaptionFetcher(cfg Config, runner commandRunner, logger *slog.Logger) *CaptionFetcher {
	cfg.Normalize()
	if logger == nil {
		logger = slog.Default()
	}
	return &CaptionFetcher{
		cfg:    cfg,
		runner: runner,
		logger: logger.With("component", "caption_fetcher"),
	}
}

// FetchTranscript returns the caption segments of videoID.
// Returns ErrNoTranscript when the video has no captions in any language.
func (f *CaptionFetcher) FetchTranscript(ctx context.Context, videoID string) ([]core.TranscriptSegment, error) {
	if videoID == "" {
		return nil, ErrVideoIDRequired
	}

	dir, err := os.MkdirTemp("", "homily-captions-*")
	if err != nil {
		return nil, fmt.Errorf("create caption dir: %w", err)
	}
	defer os.RemoveAll(dir)

	_, err = run(ctx, f.runner, f.cfg.withTimeout, f.cfg.YtDlpPath,
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", strings.Join(f.cfg.Languages, ","),
		"--sub-format", "json3",
		"--output", filepath.Join(dir, "%(id)s"),
		"--no-playlist",
		"--no-warnings",
		"--quiet",
		videoURL(videoID),
	)
	if err != nil {
		return nil, err
	}

	path, err := f.pickCaptionFile(dir, videoID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read captions: %w", err)
	}
	segments, err := parseJSON3(data)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoTranscript, videoID)
	}

	f.logger.Info("transcript fetched", "video", videoID, "file", filepath.Base(path), "segments", len(segments))
	return segments, nil
}

func (f *CaptionFetcher) pickCaptionFile(dir, videoID string) (string, error) {
	for _, lang := range f.cfg.Languages {
		path := filepath.Join(dir, videoID+"."+lang+".json3")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.json3"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w for %s", ErrNoTranscript, videoID)
	}
	return matches[0], nil
}

type json3Doc struct {
	Events []struct {
		StartMs    float64 `json:"tStartMs"`
		DurationMs float64 `json:"dDurationMs"`
		Segs       []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// parseJSON3 converts YouTube json3 captions into transcript segments,
// dropping events with no text.
func parseJSON3(data []byte) ([]core.TranscriptSegment, error) {
	var doc json3Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse json3 captions: %w", err)
	}

	segments := make([]core.TranscriptSegment, 0, len(doc.Events))
	for _, ev := range doc.Events {
		var b strings.Builder
		for _, s := range ev.Segs {
			b.WriteString(s.UTF8)
		}
		text := strings.Join(strings.Fields(b.String()), " ")
		if text == "" {
			continue
		}
		segments = append(segments, core.TranscriptSegment{
			Start:    ev.StartMs / 1000,
			Duration: ev.DurationMs / 1000,
			Text:     text,
		})
	}
	return segments, nil
}
