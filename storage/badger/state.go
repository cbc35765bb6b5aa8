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


package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/storage"
)

// StateStore implements storage.StateStore for BadgerDB.
type StateStore struct {
	backend *Backend
	now     func() time.Time
}

var _ storage.StateStore = (*StateStore)(nil)

// NewStateStore creates a new StateStore.
func NewStateStore(backend *Backend) *StateStore {
	return &StateStore{
		backend: backend,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Load retrieves the pipeline state for an item.
// Returns storage.ErrNotFound if no state exists.
func (s *StateStore) Load(ctx context.Context, itemID string) (*core.PipelineState, error) {
	var state *core.PipelineState
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		return getValue(tx, makeStateKey(itemID), func(val []byte) error {
			var err error
			state, err = storage.UnmarshalState(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Save replaces the pipeline state for state.ItemID.
func (s *StateStore) Save(ctx context.Context, state *core.PipelineState) error {
	if err := core.ValidateState(state); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		state.UpdatedAt = s.now()
		value, err := storage.MarshalState(state)
		if err != nil {
			return err
		}
		if err := tx.Set(makeStateKey(state.ItemID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// CreateInitial saves and returns a fresh pending state for an item.
func (s *StateStore) CreateInitial(ctx context.Context, itemID string) (*core.PipelineState, error) {
	state := core.NewPipelineState(itemID, s.now())
	if err := s.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Delete removes the pipeline state for an item.
func (s *StateStore) Delete(ctx context.Context, itemID string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeStateKey(itemID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return tx.Commit()
	}, true)
}

// List returns every stored pipeline state ordered by item ID.
func (s *StateStore) List(ctx context.Context) ([]*core.PipelineState, error) {
	states := []*core.PipelineState{}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		return forEachPrefix(tx, []byte(statePrefix+":"), func(_, val []byte) error {
			state, err := storage.UnmarshalState(val)
			if err != nil {
				return err
			}
			states = append(states, state)
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return states, nil
}
