// Package chunker splits timed transcripts into overlapping windows sized
// for embedding and semantic search.
package chunker

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/poiesic/homily/core"
)

var (
	// ErrNoSegments is returned for an empty transcript.
	ErrNoSegments = errors.New("transcript has no segments")

	// ErrInvalidWindow is returned when the overlap is not smaller than
	// the target window.
	ErrInvalidWindow = errors.New("invalid chunk window")
)

// Defaults in seconds.
const (
	DefaultTarget  = 120.0
	DefaultOverlap = 15.0
	DefaultMinimum = 30.0
)

// Chunker builds time-windowed chunks. Windows advance by
// target-overlap; a trailing remainder shorter than the minimum is folded
// into the previous chunk instead of becoming its own.
type Chunker struct {
	target  float64
	overlap float64
	minimum float64
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithWindow sets the target window, overlap and minimum in seconds.
func WithWindow(target, overlap, minimum float64) Option {
	return func(c *Chunker) {
		c.target = target
		c.overlap = overlap
		c.minimum = minimum
	}
}

// New creates a Chunker with the default 120s/15s/30s window.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		target:  DefaultTarget,
		overlap: DefaultOverlap,
		minimum: DefaultMinimum,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.target <= 0 || c.overlap < 0 || c.overlap >= c.target || c.minimum < 0 {
		return nil, fmt.Errorf("%w: target %.1fs overlap %.1fs minimum %.1fs", ErrInvalidWindow, c.target, c.overlap, c.minimum)
	}
	return c, nil
}

// Chunk splits the segments of itemID into chunks with IDs
// "{itemID}_chunk_{NNN}".
func (c *Chunker) Chunk(itemID string, segments []core.TranscriptSegment) ([]*core.Chunk, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	var total float64
	for _, s := range segments {
		total = max(total, s.End())
	}

	step := c.target - c.overlap
	var (
		chunks []*core.Chunk
		parts  []string
	)
	for start := 0.0; start < total; start += step {
		end := min(start+c.target, total)

		parts = parts[:0]
		first, last := math.Inf(1), 0.0
		for _, s := range segments {
			if s.End() > start && s.Start < end {
				parts = append(parts, s.Text)
				first = min(first, s.Start)
				last = max(last, s.End())
			}
		}
		if len(parts) > 0 {
			chunks = append(chunks, &core.Chunk{
				ID:     core.ChunkID(itemID, len(chunks)),
				ItemID: itemID,
				Index:  len(chunks),
				Start:  round2(first),
				End:    round2(last),
				Text:   normalizeSpace(strings.Join(parts, " ")),
			})
		}

		remaining := total - (start + step)
		if remaining > 0 && remaining < c.minimum && len(chunks) > 0 {
			c.foldTail(chunks[len(chunks)-1], segments, end)
			break
		}
	}
	return chunks, nil
}

// foldTail appends segments starting at or after windowEnd to chunk.
func (c *Chunker) foldTail(chunk *core.Chunk, segments []core.TranscriptSegment, windowEnd float64) {
	var tail []string
	last := chunk.End
	for _, s := range segments {
		if s.Start >= windowEnd {
			tail = append(tail, s.Text)
			last = max(last, s.End())
		}
	}
	if len(tail) == 0 {
		return
	}
	chunk.Text = normalizeSpace(chunk.Text + " " + strings.Join(tail, " "))
	chunk.End = round2(last)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
