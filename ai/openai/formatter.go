package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/homily/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Formatter implements ai.TranscriptFormatter with a chat model.
type Formatter struct {
	client llms.Model
	config *ai.Config
	logger *slog.Logger
}

func newFormatter(config *ai.Config) (*Formatter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(token(config)),
		openai.WithModel(config.FormatModel),
	)
	if err != nil {
		return nil, err
	}
	return newFormatterWith(config, client), nil
}

func newFormatterWith(config *ai.Config, client llms.Model) *Formatter {
	return &Formatter{
		client: client,
		config: config,
		logger: slog.Default().With("component", "openai-formatter"),
	}
}

// NewFormatter creates a new transcript formatter using the provided configuration.
//
// Returns ai.TranscriptFormatter interface to enforce abstraction.
func NewFormatter(config *ai.Config) (ai.TranscriptFormatter, error) {
	return newFormatter(config)
}

// FormatTranscript punctuates raw caption text. Short transcripts are
// returned unchanged; long ones are formatted piece by piece and rejoined
// with blank lines.
func (f *Formatter) FormatTranscript(ctx context.Context, raw string) (string, ai.Usage, error) {
	if len(raw) < f.config.FormatMinChars {
		return raw, ai.Usage{}, nil
	}

	pieces := splitPieces(raw, f.config.FormatPieceChars)
	formatted := make([]string, 0, len(pieces))
	var usage ai.Usage

	for i, piece := range pieces {
		prompt := buildFormatPrompt(piece)
		content := []llms.MessageContent{
			{
				Role:  llms.ChatMessageTypeHuman,
				Parts: []llms.ContentPart{llms.TextPart(prompt)},
			},
		}

		text, err := withRetry(ctx, f.config, f.logger, "format", func() (string, error) {
			response, err := f.client.GenerateContent(ctx, content, llms.WithTemperature(0.3))
			if err != nil {
				return "", err
			}
			if len(response.Choices) < 1 {
				return "", ErrEmptyResponse
			}
			choice := response.Choices[0]
			usage.Add(usageOf(f.config.FormatModel, prompt, choice))
			out := strings.TrimSpace(choice.Content)
			if out == "" {
				return "", ErrEmptyResponse
			}
			return out, nil
		})
		if err != nil {
			f.logger.Error("transcript formatting failed", "piece", i+1, "pieces", len(pieces), "err", err)
			return "", usage, err
		}
		formatted = append(formatted, text)
	}

	return strings.Join(formatted, "\n\n"), usage, nil
}
