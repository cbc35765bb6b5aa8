package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/homily/core"
)

// Page geometry in points (US Letter).
const (
	pageWidth  = 612.0
	pageHeight = 792.0
	margin     = 54.0
	wrapChars  = 88
)

const (
	fontBody    = "Helvetica"
	fontBold    = "Helvetica-Bold"
	fontItalic  = "Helvetica-Oblique"
	sizeTitle   = 18
	sizeHeading = 13
	sizeBody    = 11
)

// line is one laid-out row of text.
type line struct {
	text   string
	font   string
	size   int
	indent float64
	gap    float64 // extra space above
}

func (l line) height() float64 {
	return float64(l.size)*1.35 + l.gap
}

// createDoc is the pdfcpu JSON create input.
type createDoc struct {
	Paper  string             `json:"paper"`
	Origin string             `json:"origin"`
	Pages  map[string]pageDoc `json:"pages"`
}

type pageDoc struct {
	Content contentDoc `json:"content"`
}

type contentDoc struct {
	Text []textDoc `json:"text"`
}

type textDoc struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  fontDoc    `json:"font"`
}

type fontDoc struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// layout renders the discussion guide of item as lines.
func layout(item *core.Item) []line {
	c := item.Content
	g := c.DiscussionGuide

	var lines []line
	add := func(text, font string, size int, indent, gap float64) {
		for i, w := range wrap(text, wrapChars-int(indent/6)) {
			l := line{text: w, font: font, size: size, indent: indent}
			if i == 0 {
				l.gap = gap
			}
			lines = append(lines, l)
		}
	}
	heading := func(text string) {
		add(text, fontBold, sizeHeading, 0, 12)
	}

	add(item.Title, fontBold, sizeTitle, 0, 0)
	var sub []string
	if item.Speaker != "" {
		sub = append(sub, item.Speaker)
	}
	if !item.SermonDate.IsZero() {
		sub = append(sub, item.SermonDate.Format("January 2, 2006"))
	}
	if len(sub) > 0 {
		add(strings.Join(sub, " | "), fontItalic, sizeBody, 0, 2)
	}
	add("Small Group Discussion Guide", fontBody, sizeBody, 0, 2)

	if c.BigIdea != "" {
		heading("The Big Idea")
		add(c.BigIdea, fontItalic, sizeBody, 0, 0)
	}
	if c.PrimaryScripture.Reference != "" {
		heading("Scripture Focus")
		add(c.PrimaryScripture.Reference, fontBold, sizeBody, 0, 0)
		if c.PrimaryScripture.Text != "" {
			add(c.PrimaryScripture.Text, fontBody, sizeBody, 12, 0)
		}
	}
	if g.Icebreaker != "" {
		heading("Icebreaker")
		add(g.Icebreaker, fontBody, sizeBody, 0, 0)
	}
	if len(g.Questions) > 0 {
		heading("Discussion Questions")
		for i, q := range g.Questions {
			add(strconv.Itoa(i+1)+". "+q, fontBody, sizeBody, 12, 4)
		}
	}
	if g.Application != "" {
		heading("This Week's Challenge")
		add(g.Application, fontBody, sizeBody, 0, 0)
	}
	if len(g.PrayerPoints) > 0 {
		heading("Prayer Focus")
		for _, p := range g.PrayerPoints {
			add("- "+p, fontBody, sizeBody, 12, 2)
		}
	}
	if refs := scriptureRefs(c.SupportingScriptures); refs != "" {
		heading("Going Deeper")
		add("Related passages: "+refs, fontBody, sizeBody, 0, 0)
	}
	return lines
}

// paginate places lines top-down, starting a new page when one fills.
func paginate(lines []line) createDoc {
	doc := createDoc{Paper: "Letter", Origin: "LowerLeft", Pages: map[string]pageDoc{}}

	page := 1
	y := pageHeight - margin
	var texts []textDoc
	flush := func() {
		doc.Pages[strconv.Itoa(page)] = pageDoc{Content: contentDoc{Text: texts}}
		texts = nil
	}
	for _, l := range lines {
		if y-l.height() < margin && len(texts) > 0 {
			flush()
			page++
			y = pageHeight - margin
		}
		y -= l.height()
		texts = append(texts, textDoc{
			Value: l.text,
			Pos:   [2]float64{margin + l.indent, y},
			Font:  fontDoc{Name: l.font, Size: l.size},
		})
	}
	if len(texts) > 0 || len(doc.Pages) == 0 {
		flush()
	}
	return doc
}

func scriptureRefs(ss []core.Scripture) string {
	var refs []string
	for _, s := range ss {
		if s.Reference != "" {
			refs = append(refs, s.Reference)
		}
	}
	return strings.Join(refs, ", ")
}

// wrap breaks text at word boundaries into lines of at most width runes.
// Words longer than width are split.
func wrap(text string, width int) []string {
	words := strings.Fields(latin1(text))
	if len(words) == 0 {
		return nil
	}
	var (
		out []string
		cur []rune
	)
	for _, w := range words {
		r := []rune(w)
		for len(r) > width {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			out = append(out, string(r[:width]))
			r = r[width:]
		}
		switch {
		case len(cur) == 0:
			cur = append(cur, r...)
		case len(cur)+1+len(r) <= width:
			cur = append(append(cur, ' '), r...)
		default:
			out = append(out, string(cur))
			cur = append([]rune(nil), r...)
		}
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

var replacements = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", `"`, "”", `"`,
	"–", "-", "—", "-",
	"…", "...",
)

// latin1 maps typographic punctuation to ASCII and drops runes the
// standard PDF fonts cannot encode.
func latin1(s string) string {
	s = replacements.Replace(s)
	return strings.Map(func(r rune) rune {
		if r > 0xff {
			return -1
		}
		return r
	}, s)
}

func guideName(item *core.Item) string {
	return fmt.Sprintf("%s_discussion_guide.pdf", item.ID)
}
