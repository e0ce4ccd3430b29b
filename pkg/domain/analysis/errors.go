package analysis

import (
	"errors"
	"fmt"

	"github.com/agentshield/api/pkg/domain/shared"
)

// Domain errors for analysis runs.
var (
	ErrRunNotFound     = errors.New("analysis run not found")
	ErrTriggerConflict = errors.New("analysis already running")
	ErrInvalidRunState = errors.New("invalid run state transition")
)

// NewRunNotFoundError creates a new run not found error.
func NewRunNotFoundError(id string) error {
	return fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// NewTriggerConflictError creates a new trigger conflict error.
func NewTriggerConflictError(agentID string) error {
	return fmt.Errorf("%w: agent %s", ErrTriggerConflict, agentID)
}

// NewInvalidRunStateError creates a new invalid run state transition error.
func NewInvalidRunStateError(from, to State) error {
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidRunState, from, to)
}

// IsRunNotFound checks if the error is a run not found error.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound) || errors.Is(err, shared.ErrNotFound)
}

// IsInvalidRunState checks if the error is an invalid run state transition.
func IsInvalidRunState(err error) bool {
	return errors.Is(err, ErrInvalidRunState)
}

// IsTriggerConflict checks if the error is a trigger conflict.
// A conflict is informational, not a failure: callers surface the
// already_running outcome and refresh status once.
func IsTriggerConflict(err error) bool {
	return errors.Is(err, ErrTriggerConflict)
}
