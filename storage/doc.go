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


// Package storage provides the storage abstraction layer for homily.
//
// This package defines store interfaces that decouple persistence from the
// pipeline engine. The engine only needs atomic whole-record replacement, so
// any key-value store, relational row or document store can back it.
//
// # Stores
//
//   - StateStore: per-item Pipeline State (the resume record)
//   - ItemStore: sermon items and the result fields stages write
//   - ChunkStore: transcript chunks and their embeddings
//   - VectorIndex: tenant-namespaced embeddings for semantic search
//
// Pipeline State and Item records are kept under separate keys so that
// progress is durable even when an item write fails.
//
// # Usage
//
// Open a BadgerDB backend and create stores from it:
//
//	backend, err := badger.OpenBackend("/var/lib/homily", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	states := badger.NewStateStore(backend)
//
// Use in tests with in-memory storage:
//
//	stores, err := badger.NewMemoryStores()
//
// # Thread Safety
//
// All store implementations must be thread-safe. Callers are still
// responsible for running at most one pipeline per item at a time.
//
// # Context Support
//
// All store methods accept context.Context for cancellation and timeout
// support.
package storage
