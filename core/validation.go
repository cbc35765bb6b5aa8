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

import (
	"fmt"
)

// validTransitions lists the allowed item lifecycle moves.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusPublished, StatusFailed, StatusProcessing},
	StatusPublished:  {StatusProcessing, StatusPending},
	StatusFailed:     {StatusProcessing, StatusPending},
}

// ValidateItem validates an Item according to domain rules.
//
// Validation rules:
//   - ID and TenantID must not be empty
//   - Status must be a known status
//
// NOT validated (populated by stages):
//   - audio, transcript, content and publication fields
func ValidateItem(item *Item) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidItem)
	}
	if item.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidItem, ErrEmptyItemID)
	}
	if item.TenantID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidItem, ErrEmptyTenantID)
	}
	if err := ValidateStatus(item.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidItem, err)
	}
	return nil
}

// ValidateStatus validates that a Status has a known value.
func ValidateStatus(s Status) error {
	switch s {
	case StatusPending, StatusProcessing, StatusPublished, StatusFailed:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// ValidateState checks the failed_step/error invariant of a PipelineState.
func ValidateState(state *PipelineState) error {
	if state == nil {
		return fmt.Errorf("%w: state is nil", ErrInvalidState)
	}
	if state.ItemID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidState, ErrEmptyItemID)
	}
	switch state.Status {
	case RunPending, RunProcessing, RunCompleted, RunFailed:
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidState, ErrInvalidStatus, state.Status)
	}
	failed := state.Status == RunFailed
	if failed != (state.FailedStep != "") || failed != (state.Error != "") {
		return fmt.Errorf("%w: %w", ErrInvalidState, ErrFailureMismatch)
	}
	return nil
}

// CanTransition reports whether an item may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves item to status to, returning ErrInvalidTransition when the
// move is not allowed.
func (i *Item) Transition(to Status) error {
	if !CanTransition(i.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, i.Status, to)
	}
	i.Status = to
	return nil
}
