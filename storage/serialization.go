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


package storage

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/homily/core"
)

// Records are stored as JSON documents so operators can inspect them with
// the state command and fields can be added without a migration.

func marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return b, nil
}

func unmarshal[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return &v, nil
}

// MarshalState serializes a PipelineState to bytes.
func MarshalState(state *core.PipelineState) ([]byte, error) {
	return marshal(state)
}

// UnmarshalState deserializes a PipelineState from bytes.
func UnmarshalState(data []byte) (*core.PipelineState, error) {
	return unmarshal[core.PipelineState](data)
}

// MarshalItem serializes an Item to bytes.
func MarshalItem(item *core.Item) ([]byte, error) {
	return marshal(item)
}

// UnmarshalItem deserializes an Item from bytes.
func UnmarshalItem(data []byte) (*core.Item, error) {
	return unmarshal[core.Item](data)
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) ([]byte, error) {
	return marshal(chunk)
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	return unmarshal[core.Chunk](data)
}

// MarshalVector serializes a Vector to bytes.
func MarshalVector(vector *core.Vector) ([]byte, error) {
	return marshal(vector)
}

// UnmarshalVector deserializes a Vector from bytes.
func UnmarshalVector(data []byte) (*core.Vector, error) {
	return unmarshal[core.Vector](data)
}
