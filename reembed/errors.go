package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrItemStoreRequired is returned when no item store is provided.
	ErrItemStoreRequired = errors.New("item store required")

	// ErrChunkStoreRequired is returned when no chunk store is provided.
	ErrChunkStoreRequired = errors.New("chunk store required")

	// ErrVectorIndexRequired is returned when no vector index is provided.
	ErrVectorIndexRequired = errors.New("vector index required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
