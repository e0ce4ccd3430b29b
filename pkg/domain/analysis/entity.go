// Package analysis models dynamic analysis runs over recorded agent sessions
// and the status snapshot the dashboard polls while a run is in flight.
package analysis

import (
	"fmt"
	"time"

	"github.com/agentshield/api/pkg/domain/shared"
)

// Run represents a single dynamic analysis execution for an agent.
type Run struct {
	id      shared.ID
	agentID shared.ID

	state            State
	sessionsAnalyzed int
	errorMessage     string

	startedAt   *time.Time
	completedAt *time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

// NewRun creates a new Run in the queued state.
func NewRun(agentID shared.ID) (*Run, error) {
	if agentID.IsZero() {
		return nil, fmt.Errorf("%w: agent ID is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Run{
		id:        shared.NewID(),
		agentID:   agentID,
		state:     StateQueued,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstitute recreates a Run from persistence.
func Reconstitute(
	id shared.ID,
	agentID shared.ID,
	state State,
	sessionsAnalyzed int,
	errorMessage string,
	startedAt, completedAt *time.Time,
	createdAt, updatedAt time.Time,
) *Run {
	return &Run{
		id:               id,
		agentID:          agentID,
		state:            state,
		sessionsAnalyzed: sessionsAnalyzed,
		errorMessage:     errorMessage,
		startedAt:        startedAt,
		completedAt:      completedAt,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// ID returns the run ID.
func (r *Run) ID() shared.ID {
	return r.id
}

// AgentID returns the agent this run analyzes.
func (r *Run) AgentID() shared.ID {
	return r.agentID
}

// State returns the current run state.
func (r *Run) State() State {
	return r.state
}

// SessionsAnalyzed returns how many sessions the run processed.
func (r *Run) SessionsAnalyzed() int {
	return r.sessionsAnalyzed
}

// ErrorMessage returns the failure message, if the run failed.
func (r *Run) ErrorMessage() string {
	return r.errorMessage
}

// StartedAt returns when the run started executing.
func (r *Run) StartedAt() *time.Time {
	return r.startedAt
}

// CompletedAt returns when the run finished.
func (r *Run) CompletedAt() *time.Time {
	return r.completedAt
}

// CreatedAt returns the creation timestamp.
func (r *Run) CreatedAt() time.Time {
	return r.createdAt
}

// UpdatedAt returns the last update timestamp.
func (r *Run) UpdatedAt() time.Time {
	return r.updatedAt
}

// IsRunning returns true while the run is queued or executing.
func (r *Run) IsRunning() bool {
	return r.state.IsActive()
}

// Start transitions queued -> running.
func (r *Run) Start() error {
	if r.state != StateQueued {
		return NewInvalidRunStateError(r.state, StateRunning)
	}
	now := time.Now().UTC()
	r.state = StateRunning
	r.startedAt = &now
	r.updatedAt = now
	return nil
}

// Complete transitions running -> completed with the analyzed session count.
func (r *Run) Complete(sessionsAnalyzed int) error {
	if r.state != StateRunning {
		return NewInvalidRunStateError(r.state, StateCompleted)
	}
	now := time.Now().UTC()
	r.state = StateCompleted
	r.sessionsAnalyzed = sessionsAnalyzed
	r.completedAt = &now
	r.updatedAt = now
	return nil
}

// Fail transitions queued or running -> failed with an error message.
func (r *Run) Fail(message string) error {
	if !r.state.IsActive() {
		return NewInvalidRunStateError(r.state, StateFailed)
	}
	now := time.Now().UTC()
	r.state = StateFailed
	r.errorMessage = message
	r.completedAt = &now
	r.updatedAt = now
	return nil
}
