package chunker

import (
	"fmt"
	"testing"

	"github.com/poiesic/homily/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evenSegments returns n segments of width seconds each, texts "w0".."wN".
func evenSegments(n int, width float64) []core.TranscriptSegment {
	segs := make([]core.TranscriptSegment, n)
	for i := range segs {
		segs[i] = core.TranscriptSegment{
			Start:    float64(i) * width,
			Duration: width,
			Text:     fmt.Sprintf("w%d", i),
		}
	}
	return segs
}

func TestNew_ValidatesWindow(t *testing.T) {
	_, err := New(WithWindow(60, 60, 10))
	assert.ErrorIs(t, err, ErrInvalidWindow)
	_, err = New(WithWindow(0, 0, 0))
	assert.ErrorIs(t, err, ErrInvalidWindow)

	c, err := New()
	require.NoError(t, err)
	assert.Equal(t, DefaultTarget, c.target)
}

func TestChunk_Empty(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	_, err = c.Chunk("abc", nil)
	assert.ErrorIs(t, err, ErrNoSegments)
}

func TestChunk_OverlappingWindows(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	// 600s of 10s segments: windows start at 0, 105, 210, 315, 420, 525
	chunks, err := c.Chunk("abc", evenSegments(60, 10))
	require.NoError(t, err)
	require.Len(t, chunks, 6)

	for i, ch := range chunks {
		assert.Equal(t, core.ChunkID("abc", i), ch.ID)
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, "abc", ch.ItemID)
	}
	assert.Equal(t, "abc_chunk_000", chunks[0].ID)
	assert.Equal(t, 0.0, chunks[0].Start)
	assert.Equal(t, 120.0, chunks[0].End)

	// Window [105,225) picks up the segment straddling 105
	assert.Equal(t, 100.0, chunks[1].Start)
	assert.Equal(t, 230.0, chunks[1].End)

	assert.Equal(t, 600.0, chunks[5].End)

	// Adjacent chunks share overlapping text
	assert.Contains(t, chunks[0].Text, "w10")
	assert.Contains(t, chunks[1].Text, "w10")
}

func TestChunk_FoldsShortTail(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	// 235s total; after the window at 105 only 25s remain, below the minimum
	segs := evenSegments(23, 10)
	segs = append(segs, core.TranscriptSegment{Start: 230, Duration: 5, Text: "amen"})

	chunks, err := c.Chunk("abc", segs)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 235.0, chunks[1].End)
	assert.Contains(t, chunks[1].Text, "amen")
}

func TestChunk_ShortTranscriptIsSingleChunk(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	chunks, err := c.Chunk("abc", evenSegments(2, 10))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "w0 w1", chunks[0].Text)
	assert.Equal(t, 20.0, chunks[0].End)
}

func TestChunk_NormalizesWhitespace(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	chunks, err := c.Chunk("abc", []core.TranscriptSegment{
		{Start: 0, Duration: 3, Text: "  In the\nbeginning "},
		{Start: 3, Duration: 3, Text: "\twas the Word"},
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "In the beginning was the Word", chunks[0].Text)
}

func TestChunk_SkipsGaps(t *testing.T) {
	c, err := New(WithWindow(60, 10, 5))
	require.NoError(t, err)

	// Nothing between 20s and 170s: empty windows produce no chunk
	chunks, err := c.Chunk("abc", []core.TranscriptSegment{
		{Start: 0, Duration: 20, Text: "opening"},
		{Start: 170, Duration: 20, Text: "closing"},
	})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "opening", chunks[0].Text)
	assert.Equal(t, "closing", chunks[1].Text)
	assert.Equal(t, "abc_chunk_001", chunks[1].ID)
}
