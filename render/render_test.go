package render

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/poiesic/homily/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guideItem() *core.Item {
	return &core.Item{
		ID:         "abc123",
		TenantID:   "grace",
		Title:      "Living Water",
		Speaker:    "Pastor Ruth",
		SermonDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Content: &core.AIContent{
			Summary:              "Jesus meets a woman at a well.",
			BigIdea:              "Only Jesus satisfies.",
			PrimaryScripture:     core.Scripture{Reference: "John 4:13-14", Text: "Whoever drinks the water I give will never thirst."},
			SupportingScriptures: []core.Scripture{{Reference: "Isaiah 55:1"}, {Reference: ""}, {Reference: "Psalm 42:1"}},
			DiscussionGuide: core.DiscussionGuide{
				Icebreaker:   "What is your favorite drink on a hot day?",
				Questions:    []string{"What was the woman looking for?", "Where do you look for satisfaction?"},
				Application:  "Name one thirst and bring it to Jesus.",
				PrayerPoints: []string{"For honesty", "For neighbors"},
			},
		},
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, wrap("   ", 10))
	assert.Equal(t, []string{"one two", "three"}, wrap("one two three", 9))
	assert.Equal(t, []string{"abcd", "efgh", "ij k"}, wrap("abcdefghij k", 4))
	assert.Equal(t, []string{`"quoted" - it's...`}, wrap("“quoted” — it’s…", 40))
	assert.Equal(t, []string{"café ok"}, wrap("café ok 🙏", 40))
}

func TestLayout_Sections(t *testing.T) {
	lines := layout(guideItem())
	var all []string
	for _, l := range lines {
		all = append(all, l.text)
	}
	joined := strings.Join(all, "\n")

	assert.Equal(t, "Living Water", lines[0].text)
	assert.Equal(t, sizeTitle, lines[0].size)
	assert.Contains(t, joined, "Pastor Ruth | March 10, 2024")
	for _, h := range []string{"The Big Idea", "Scripture Focus", "Icebreaker", "Discussion Questions", "This Week's Challenge", "Prayer Focus", "Going Deeper"} {
		assert.Contains(t, all, h)
	}
	assert.Contains(t, all, "1. What was the woman looking for?")
	assert.Contains(t, all, "2. Where do you look for satisfaction?")
	assert.Contains(t, all, "- For neighbors")
	assert.Contains(t, all, "Related passages: Isaiah 55:1, Psalm 42:1")
}

func TestLayout_OmitsEmptySections(t *testing.T) {
	item := guideItem()
	item.Content.DiscussionGuide.PrayerPoints = nil
	item.Content.SupportingScriptures = nil
	item.Speaker = ""
	item.SermonDate = time.Time{}

	var all []string
	for _, l := range layout(item) {
		all = append(all, l.text)
	}
	assert.NotContains(t, all, "Prayer Focus")
	assert.NotContains(t, all, "Going Deeper")
	assert.Equal(t, "Small Group Discussion Guide", all[1])
}

func TestPaginate_SpillsToNewPages(t *testing.T) {
	var lines []line
	for range 120 {
		lines = append(lines, line{text: "row", font: fontBody, size: sizeBody})
	}
	doc := paginate(lines)
	assert.Equal(t, "Letter", doc.Paper)
	assert.Equal(t, "LowerLeft", doc.Origin)
	require.Greater(t, len(doc.Pages), 1)

	count := 0
	for _, p := range doc.Pages {
		for _, txt := range p.Content.Text {
			assert.GreaterOrEqual(t, txt.Pos[1], margin)
			assert.LessOrEqual(t, txt.Pos[1], pageHeight-margin)
			count++
		}
	}
	assert.Equal(t, 120, count)
}

func TestPaginate_KeepsOrder(t *testing.T) {
	doc := paginate(layout(guideItem()))
	require.Len(t, doc.Pages, 1)
	first := doc.Pages["1"].Content.Text
	assert.Equal(t, "Living Water", first[0].Value)
	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i].Pos[1], first[i-1].Pos[1])
	}
}

func TestBuild_ProducesPDF(t *testing.T) {
	pdf, pages, err := Build(guideItem())
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	n, err := api.PageCount(bytes.NewReader(pdf), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRenderGuide_WritesFile(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir, "https://cdn.example.org/guides/", nil)

	loc, err := r.RenderGuide(context.Background(), guideItem())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.org/guides/grace/abc123_discussion_guide.pdf", loc)

	info, err := os.Stat(filepath.Join(dir, "grace", "abc123_discussion_guide.pdf"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRenderGuide_FileURLWithoutBase(t *testing.T) {
	r := NewRenderer(t.TempDir(), "", nil)
	loc, err := r.RenderGuide(context.Background(), guideItem())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc, "file:///"))
	assert.True(t, strings.HasSuffix(loc, "/grace/abc123_discussion_guide.pdf"))
}

func TestRenderGuide_NoContent(t *testing.T) {
	r := NewRenderer(t.TempDir(), "", nil)

	_, err := r.RenderGuide(context.Background(), &core.Item{ID: "abc"})
	assert.ErrorIs(t, err, ErrNoGuideContent)

	_, err = r.RenderGuide(context.Background(), &core.Item{ID: "abc", Content: &core.AIContent{Summary: "s"}})
	assert.ErrorIs(t, err, ErrNoGuideContent)
}

func TestRenderGuide_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRenderer(t.TempDir(), "", nil).RenderGuide(ctx, guideItem())
	assert.ErrorIs(t, err, context.Canceled)
}
