package openai

import (
	"strings"
	"unicode/utf8"
)

// extractJSON returns the outermost JSON object in s, dropping markdown
// fences and any chatter around it. Returns "" when no object is present.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// splitPieces breaks s into pieces of at most size bytes, preferring to cut
// at whitespace so words stay whole.
func splitPieces(s string, size int) []string {
	if size <= 0 || len(s) <= size {
		return []string{s}
	}
	var pieces []string
	for len(s) > size {
		piece := truncate(s, size)
		if piece == "" {
			_, n := utf8.DecodeRuneInString(s)
			piece = s[:n]
		} else if i := strings.LastIndexAny(piece, " \n\t"); i > size/2 {
			piece = piece[:i]
		}
		pieces = append(pieces, piece)
		s = strings.TrimLeft(s[len(piece):], " \n\t")
	}
	if s != "" {
		pieces = append(pieces, s)
	}
	return pieces
}
