package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrRegistryRequired is returned when a stage registry is not provided.
	ErrRegistryRequired = errors.New("stage registry required")

	// ErrStateStoreRequired is returned when a state store is not provided.
	ErrStateStoreRequired = errors.New("state store required")

	// ErrItemStoreRequired is returned when an item store is not provided.
	ErrItemStoreRequired = errors.New("item store required")

	// ErrRunnerRequired is returned when a batch is built without a runner.
	ErrRunnerRequired = errors.New("runner required")

	// ErrInvalidRegistry is returned when stage definitions are inconsistent.
	ErrInvalidRegistry = errors.New("invalid stage registry")

	// ErrUnknownStage is returned when a plan or policy names a stage the
	// registry doesn't have.
	ErrUnknownStage = errors.New("unknown stage")

	// ErrNothingToResume is returned when resuming an item whose last run completed.
	ErrNothingToResume = errors.New("nothing to resume")

	// ErrFatalStage is matched by every *StageError.
	ErrFatalStage = errors.New("fatal stage failure")

	// ErrStateStore wraps pipeline state persistence failures.
	ErrStateStore = errors.New("state store")

	// ErrItemStore wraps item persistence failures.
	ErrItemStore = errors.New("item store")

	// ErrRunInterrupted is returned when the run context ends between stages.
	ErrRunInterrupted = errors.New("run interrupted")

	// ErrInputUnavailable is wrapped by stage actions whose input was not
	// produced by an earlier stage. The executor reports such stages as
	// bypassed rather than failed.
	ErrInputUnavailable = errors.New("stage input unavailable")
)

// StageError reports a fatal stage failure that halted an item run.
type StageError struct {
	ItemID  string
	Stage   string
	Message string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("item %s: fatal failure in stage %s: %s", e.ItemID, e.Stage, e.Message)
}

// Is reports whether target is ErrFatalStage.
func (e *StageError) Is(target error) bool {
	return target == ErrFatalStage
}

// InputUnavailable returns an error wrapping ErrInputUnavailable with a
// description of the missing input.
func InputUnavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInputUnavailable, fmt.Sprintf(format, args...))
}
