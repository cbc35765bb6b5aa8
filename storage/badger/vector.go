package badger

import (
	"context"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/storage"
)

// VectorIndex implements storage.VectorIndex on BadgerDB with a brute-force
// dot product scan per namespace. Vectors are expected to be unit length.
type VectorIndex struct {
	backend *Backend
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex creates a new VectorIndex.
func NewVectorIndex(backend *Backend) *VectorIndex {
	return &VectorIndex{backend: backend}
}

// Upsert inserts or replaces vectors in a namespace.
func (v *VectorIndex) Upsert(ctx context.Context, namespace string, vectors []*core.Vector) error {
	if namespace == "" {
		return storage.ErrInvalidVectorQuery
	}
	return v.backend.WithTx(func(tx *badger.Txn) error {
		for _, vec := range vectors {
			value, err := storage.MarshalVector(vec)
			if err != nil {
				return err
			}
			if err := tx.Set(makeVectorKey(namespace, vec.ID), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Query finds vectors in namespace similar to vector.
func (v *VectorIndex) Query(ctx context.Context, namespace string, vector []float32, minScore float32, limit int) ([]*core.VectorMatch, error) {
	if namespace == "" || limit <= 0 {
		return nil, storage.ErrInvalidVectorQuery
	}

	var results []*core.VectorMatch
	prefix := makePartialVectorKey(namespace)
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		return forEachPrefix(tx, prefix, func(key, val []byte) error {
			if len(key) != len(prefix)+8 {
				return nil
			}
			stored, err := storage.UnmarshalVector(val)
			if err != nil {
				return err
			}
			if len(stored.Values) == 0 {
				return nil
			}
			// Cosine similarity (dot product for normalized vectors)
			score := dotProduct(vector, stored.Values)
			if score >= minScore {
				results = append(results, &core.VectorMatch{Vector: stored, Score: score})
			}
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.VectorMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return strings.Compare(a.Vector.ID, b.Vector.ID)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// DeleteByPrefix removes the vectors in namespace whose IDs start with prefix.
func (v *VectorIndex) DeleteByPrefix(ctx context.Context, namespace, prefix string) error {
	return v.backend.WithTx(func(tx *badger.Txn) error {
		var doomed [][]byte
		nsPrefix := makePartialVectorKey(namespace)
		err := forEachPrefix(tx, nsPrefix, func(key, val []byte) error {
			if len(key) != len(nsPrefix)+8 {
				return nil
			}
			stored, err := storage.UnmarshalVector(val)
			if err != nil {
				return err
			}
			if strings.HasPrefix(stored.ID, prefix) {
				doomed = append(doomed, key)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, key := range doomed {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
