// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/homily/ai"
	"github.com/poiesic/homily/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ContentGenerator implements ai.ContentGenerator using OpenAI-compatible chat APIs.
type ContentGenerator struct {
	client llms.Model
	config *ai.Config
	logger *slog.Logger
}

// newContentGenerator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newContentGenerator(config *ai.Config) (*ContentGenerator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(token(config)),
		openai.WithModel(config.GenerationModel),
	)
	if err != nil {
		return nil, err
	}
	return newContentGeneratorWith(config, client), nil
}

func newContentGeneratorWith(config *ai.Config, client llms.Model) *ContentGenerator {
	return &ContentGenerator{
		client: client,
		config: config,
		logger: slog.Default().With("component", "openai-generator"),
	}
}

// NewContentGenerator creates a new content generator using the provided configuration.
//
// Returns ai.ContentGenerator interface to enforce abstraction.
func NewContentGenerator(config *ai.Config) (ai.ContentGenerator, error) {
	return newContentGenerator(config)
}

// GenerateContent asks the model for sermon content and validates the reply
// against the content schema. Malformed replies are retried; usage covers
// every attempt.
func (g *ContentGenerator) GenerateContent(ctx context.Context, title, transcript string) (*core.AIContent, ai.Usage, error) {
	schema, err := ai.ContentSchemaJSON()
	if err != nil {
		return nil, ai.Usage{}, err
	}

	if len(transcript) > g.config.MaxTranscriptChars {
		g.logger.Debug("truncating transcript", "length", len(transcript), "max", g.config.MaxTranscriptChars)
		transcript = truncate(transcript, g.config.MaxTranscriptChars)
	}

	prompt := buildContentPrompt(schema, title, transcript)
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(contentSystemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	var usage ai.Usage
	result, err := withRetry(ctx, g.config, g.logger, "generate", func() (*core.AIContent, error) {
		response, err := g.client.GenerateContent(ctx, content, llms.WithTemperature(0.7), llms.WithJSONMode())
		if err != nil {
			return nil, err
		}
		if len(response.Choices) < 1 {
			return nil, ErrEmptyResponse
		}

		choice := response.Choices[0]
		usage.Add(usageOf(g.config.GenerationModel, contentSystemPrompt+prompt, choice))

		raw := extractJSON(choice.Content)
		if raw == "" {
			g.logger.Warn("generation reply had no JSON object", "response", truncate(choice.Content, 200))
			return nil, ErrNoJSON
		}
		return ai.ParseContent([]byte(raw))
	})
	if err != nil {
		g.logger.Error("content generation failed", "title", title, "err", err)
		return nil, usage, err
	}

	g.logger.Debug("generated content",
		"title", title,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"cost_usd", usage.CostUSD)
	return result, usage, nil
}
