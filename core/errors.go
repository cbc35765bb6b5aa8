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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidItem indicates an Item failed validation.
	ErrInvalidItem = errors.New("invalid item")

	// ErrInvalidState indicates a PipelineState failed validation.
	ErrInvalidState = errors.New("invalid pipeline state")

	// ErrEmptyItemID indicates the item ID is empty.
	ErrEmptyItemID = errors.New("item id cannot be empty")

	// ErrEmptyTenantID indicates the tenant ID is empty.
	ErrEmptyTenantID = errors.New("tenant id cannot be empty")

	// ErrInvalidStatus indicates an unknown item or run status.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidTransition indicates a lifecycle transition that is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrFailureMismatch indicates failed_step/error disagree with the run status.
	ErrFailureMismatch = errors.New("failed step and error must be set exactly when status is failed")
)
