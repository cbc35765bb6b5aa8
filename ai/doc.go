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


// Package ai provides abstractions for the language model services used by
// the homily pipeline.
//
// Three collaborator interfaces cover the model-backed stages:
//
//   - Embedder: vector embeddings for transcript chunks and search queries
//   - TranscriptFormatter: punctuation and paragraphing of raw captions
//   - ContentGenerator: summary, big idea, scripture, topics and discussion guide
//
// AIProvider aggregates them behind one configuration.
//
// # Cost accounting
//
// Formatter and generator calls report a Usage with token counts and USD
// spend. Prices are per one million tokens for the hosted OpenAI models;
// unpriced models, such as those served by a local Ollama, cost nothing.
// CountTokens uses tiktoken encodings where the model is known and falls
// back to four characters per token.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible implementation built on langchaingo
//   - ai/mock: test doubles with injectable behavior and call counters
//
// Public constructors in ai/openai return interface types; mock constructors
// return concrete types so tests can inject behavior and assert on calls.
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithAPIKey(key)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	content, usage, err := provider.ContentGenerator().GenerateContent(ctx, title, transcript)
package ai
