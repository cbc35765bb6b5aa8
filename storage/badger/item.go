package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/storage"
)

// ItemStore implements storage.ItemStore for BadgerDB.
// Items are indexed by status so operators can list failed or pending work.
type ItemStore struct {
	backend *Backend
}

var _ storage.ItemStore = (*ItemStore)(nil)

// NewItemStore creates a new ItemStore.
func NewItemStore(backend *Backend) *ItemStore {
	return &ItemStore{
		backend: backend,
	}
}

// AddItem enrolls a new item.
func (r *ItemStore) AddItem(ctx context.Context, item *core.Item) (*core.Item, error) {
	if item.Status == "" {
		item.Status = core.StatusPending
	}
	if err := core.ValidateItem(item); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeItemKey(item.ID)
		if _, err := tx.Get(key); err == nil {
			return storage.ErrItemExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		now := time.Now().UTC()
		if item.EnrolledAt.IsZero() {
			item.EnrolledAt = now
		}
		item.UpdatedAt = now

		if err := r.writeItem(tx, item); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem retrieves an item by ID.
func (r *ItemStore) GetItem(ctx context.Context, id string) (*core.Item, error) {
	var item *core.Item
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		item, err = r.readItem(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem applies fn to the stored item and saves the result atomically.
func (r *ItemStore) UpdateItem(ctx context.Context, id string, fn func(*core.Item) error) (*core.Item, error) {
	var updated *core.Item
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := r.readItem(tx, id)
		if err != nil {
			return err
		}
		oldStatus := item.Status

		if err := fn(item); err != nil {
			return err
		}
		// Identity is immutable
		item.ID = id
		if err := core.ValidateItem(item); err != nil {
			return err
		}
		item.UpdatedAt = time.Now().UTC()

		if oldStatus != item.Status {
			if err := tx.Delete(makeItemStatusKey(oldStatus, id)); err != nil {
				return err
			}
		}
		if err := r.writeItem(tx, item); err != nil {
			return err
		}
		updated = item
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListItems returns the items of a tenant, or every item when tenantID is empty.
func (r *ItemStore) ListItems(ctx context.Context, tenantID string) ([]*core.Item, error) {
	items := []*core.Item{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return forEachPrefix(tx, []byte(itemPrefix+":"), func(_, val []byte) error {
			item, err := storage.UnmarshalItem(val)
			if err != nil {
				return err
			}
			if tenantID == "" || item.TenantID == tenantID {
				items = append(items, item)
			}
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListItemsByStatus returns every item with status.
func (r *ItemStore) ListItemsByStatus(ctx context.Context, status core.Status) ([]*core.Item, error) {
	items := []*core.Item{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var ids []string
		prefix := makePartialItemStatusKey(status)
		if err := forEachPrefix(tx, prefix, func(key, _ []byte) error {
			ids = append(ids, string(key[len(prefix):]))
			return nil
		}); err != nil {
			return err
		}
		for _, id := range ids {
			item, err := r.readItem(tx, id)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ItemStore) readItem(tx *badger.Txn, id string) (*core.Item, error) {
	var item *core.Item
	err := getValue(tx, makeItemKey(id), func(val []byte) error {
		var err error
		item, err = storage.UnmarshalItem(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *ItemStore) writeItem(tx *badger.Txn, item *core.Item) error {
	value, err := storage.MarshalItem(item)
	if err != nil {
		return err
	}
	if err := tx.Set(makeItemKey(item.ID), value); err != nil {
		return err
	}
	return tx.Set(makeItemStatusKey(item.Status, item.ID), []byte{})
}
