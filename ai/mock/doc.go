// Package mock provides test double implementations of AI service interfaces.
//
// The mocks let pipeline and search tests run without a model server and
// with deterministic output.
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("quota exceeded")
//	}
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: unit vectors derived from an FNV hash of the text
//   - MockContentGenerator: content built from the sermon title
//   - MockFormatter: capitalizes and terminates the raw text
//   - MockProvider: aggregates the three
//
// All mocks are safe for concurrent use.
package mock
