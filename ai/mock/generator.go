package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/homily/ai"
	"github.com/poiesic/homily/core"
)

// MockContentGenerator is a test double for ai.ContentGenerator.
type MockContentGenerator struct {
	// GenerateContentFunc is called by GenerateContent if set.
	// If nil, returns content derived from the title.
	GenerateContentFunc func(ctx context.Context, title, transcript string) (*core.AIContent, ai.Usage, error)

	// CostUSD is reported on every default call.
	CostUSD float64

	mu        sync.Mutex
	callCount int
}

// NewMockContentGenerator creates a mock generator with default behavior.
func NewMockContentGenerator() *MockContentGenerator {
	return &MockContentGenerator{CostUSD: 0.002}
}

// GenerateContent returns canned content built from title and transcript.
func (m *MockContentGenerator) GenerateContent(ctx context.Context, title, transcript string) (*core.AIContent, ai.Usage, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, title, transcript)
	}

	topics := []string{}
	for _, w := range strings.Fields(strings.ToLower(title)) {
		if len(topics) == 3 {
			break
		}
		topics = append(topics, strings.Trim(w, ".,!?;:\"'"))
	}
	return &core.AIContent{
		Summary:              "A sermon titled " + title + ".",
		BigIdea:              title,
		PrimaryScripture:     core.Scripture{Reference: "John 1:1", Text: "In the beginning was the Word"},
		SupportingScriptures: []core.Scripture{},
		Topics:               topics,
		DiscussionGuide: core.DiscussionGuide{
			Icebreaker:   "What stood out to you?",
			Questions:    []string{"What did you hear?", "What will you do?"},
			Application:  "Share one insight this week.",
			PrayerPoints: []string{"Pray for understanding."},
		},
	}, ai.Usage{InputTokens: ai.EstimateTokens(transcript), OutputTokens: 200, CostUSD: m.CostUSD}, nil
}

// CallCount returns the number of times GenerateContent was called.
func (m *MockContentGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom function.
func (m *MockContentGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.GenerateContentFunc = nil
}

// MockFormatter is a test double for ai.TranscriptFormatter.
type MockFormatter struct {
	// FormatTranscriptFunc is called by FormatTranscript if set.
	// If nil, capitalizes the first letter and appends a period.
	FormatTranscriptFunc func(ctx context.Context, raw string) (string, ai.Usage, error)

	mu        sync.Mutex
	callCount int
}

// NewMockFormatter creates a mock formatter with default behavior.
func NewMockFormatter() *MockFormatter {
	return &MockFormatter{}
}

// FormatTranscript returns a lightly tidied copy of raw.
func (m *MockFormatter) FormatTranscript(ctx context.Context, raw string) (string, ai.Usage, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.FormatTranscriptFunc != nil {
		return m.FormatTranscriptFunc(ctx, raw)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw, ai.Usage{}, nil
	}
	return strings.ToUpper(raw[:1]) + raw[1:] + ".", ai.Usage{}, nil
}

// CallCount returns the number of times FormatTranscript was called.
func (m *MockFormatter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom function.
func (m *MockFormatter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.FormatTranscriptFunc = nil
}
