package search

import (
	"strings"
	"unicode"
)

// fillerWords never count toward a verbatim match. Spoken transcripts are
// full of them, so a query like "the well" should match on "well" alone.
var fillerWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "do": {}, "for": {}, "from": {}, "have": {}, "in": {},
	"is": {}, "it": {}, "not": {}, "of": {}, "on": {}, "that": {}, "the": {},
	"this": {}, "to": {}, "was": {}, "with": {}, "you": {},
	"uh": {}, "um": {},
}

// terms lowercases text and returns its words without punctuation or
// filler words.
func terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '\'')
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f == "" {
			continue
		}
		if _, filler := fillerWords[f]; filler {
			continue
		}
		out = append(out, f)
	}
	return out
}

// containsAllQueryWords reports whether passage contains every significant
// word of query. A query made only of filler words never matches.
func containsAllQueryWords(passage, query string) bool {
	want := terms(query)
	if len(want) == 0 {
		return false
	}
	have := make(map[string]struct{})
	for _, t := range terms(passage) {
		have[t] = struct{}{}
	}
	for _, w := range want {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}
