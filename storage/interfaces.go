package storage

import (
	"context"

	"github.com/poiesic/homily/core"
)

// StateStore persists per-item Pipeline State.
// Save is a whole-record replace; only one orchestrator run is ever active
// per item, so no partial update semantics are provided.
type StateStore interface {
	// Load retrieves the state for itemID.
	// Returns ErrNotFound if no state has been saved.
	Load(ctx context.Context, itemID string) (*core.PipelineState, error)

	// Save atomically replaces the stored state for state.ItemID.
	Save(ctx context.Context, state *core.PipelineState) error

	// CreateInitial builds a zeroed pending state for itemID, saves it
	// (replacing any previous state) and returns it.
	CreateInitial(ctx context.Context, itemID string) (*core.PipelineState, error)

	// Delete removes the state for itemID. Missing state is not an error.
	Delete(ctx context.Context, itemID string) error

	// List returns all stored states ordered by item ID.
	List(ctx context.Context) ([]*core.PipelineState, error)
}

// ItemStore persists Item records.
type ItemStore interface {
	// AddItem enrolls a new item. Sets EnrolledAt and Status pending when unset.
	// Returns ErrItemExists if the item is already enrolled.
	AddItem(ctx context.Context, item *core.Item) (*core.Item, error)

	// GetItem retrieves an item by ID.
	// Returns ErrNotFound if the item doesn't exist.
	GetItem(ctx context.Context, id string) (*core.Item, error)

	// UpdateItem applies fn to the stored item inside one read-write
	// transaction and saves the result. UpdatedAt is set automatically.
	// Returns ErrNotFound if the item doesn't exist; an error from fn aborts
	// the update and is returned unchanged.
	UpdateItem(ctx context.Context, id string, fn func(*core.Item) error) (*core.Item, error)

	// ListItems returns the items of a tenant, or all items when tenantID is
	// empty, ordered by ID.
	ListItems(ctx context.Context, tenantID string) ([]*core.Item, error)

	// ListItemsByStatus returns all items with the given status.
	ListItemsByStatus(ctx context.Context, status core.Status) ([]*core.Item, error)
}

// ChunkStore persists transcript chunks and their embeddings.
type ChunkStore interface {
	// SaveChunks replaces all chunks for itemID with chunks.
	SaveChunks(ctx context.Context, itemID string, chunks []*core.Chunk) error

	// GetChunks returns the chunks of itemID ordered by index.
	// Returns an empty slice when the item has no chunks.
	GetChunks(ctx context.Context, itemID string) ([]*core.Chunk, error)

	// UpdateChunks overwrites existing chunks (typically to attach vectors).
	// Returns ErrNotFound if any chunk doesn't exist.
	UpdateChunks(ctx context.Context, chunks ...*core.Chunk) error
}

// VectorIndex stores embeddings under tenant-scoped namespaces.
// Implementations must be thread-safe.
type VectorIndex interface {
	// Upsert inserts or replaces vectors in namespace.
	Upsert(ctx context.Context, namespace string, vectors []*core.Vector) error

	// Query returns up to limit vectors in namespace whose similarity to
	// vector is at least minScore, highest score first.
	Query(ctx context.Context, namespace string, vector []float32, minScore float32, limit int) ([]*core.VectorMatch, error)

	// DeleteByPrefix removes every vector in namespace whose ID starts with prefix.
	DeleteByPrefix(ctx context.Context, namespace, prefix string) error
}
