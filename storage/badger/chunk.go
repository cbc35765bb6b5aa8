package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/storage"
)

// ChunkStore implements storage.ChunkStore for BadgerDB.
type ChunkStore struct {
	backend *Backend
}

var _ storage.ChunkStore = (*ChunkStore)(nil)

// NewChunkStore creates a new ChunkStore.
func NewChunkStore(backend *Backend) *ChunkStore {
	return &ChunkStore{backend: backend}
}

// SaveChunks replaces all chunks of an item.
func (r *ChunkStore) SaveChunks(ctx context.Context, itemID string, chunks []*core.Chunk) error {
	prefix := makePartialChunkKey(itemID)
	return r.backend.WithTx(func(tx *badger.Txn) error {
		ownChunk := func(key []byte) bool { return isChunkKey(prefix, key) }
		if err := deletePrefixFunc(tx, prefix, ownChunk); err != nil {
			return err
		}
		for _, chunk := range chunks {
			chunk.ItemID = itemID
			if err := r.writeChunk(tx, chunk); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetChunks returns the chunks of an item ordered by index.
func (r *ChunkStore) GetChunks(ctx context.Context, itemID string) ([]*core.Chunk, error) {
	chunks := []*core.Chunk{}
	prefix := makePartialChunkKey(itemID)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return forEachPrefix(tx, prefix, func(key, val []byte) error {
			if !isChunkKey(prefix, key) {
				return nil
			}
			chunk, err := storage.UnmarshalChunk(val)
			if err != nil {
				return err
			}
			chunks = append(chunks, chunk)
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// UpdateChunks overwrites existing chunks.
func (r *ChunkStore) UpdateChunks(ctx context.Context, chunks ...*core.Chunk) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if _, err := tx.Get(makeChunkKey(chunk.ItemID, chunk.Index)); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return storage.ErrNotFound
				}
				return err
			}
			if err := r.writeChunk(tx, chunk); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// isChunkKey reports whether key is a chunk directly under prefix rather
// than a chunk of an item whose ID extends this one ("a" and "a:b").
func isChunkKey(prefix, key []byte) bool {
	return len(key) == len(prefix)+4
}

func (r *ChunkStore) writeChunk(tx *badger.Txn, chunk *core.Chunk) error {
	value, err := storage.MarshalChunk(chunk)
	if err != nil {
		return err
	}
	return tx.Set(makeChunkKey(chunk.ItemID, chunk.Index), value)
}
