package analysis

import (
	"context"

	"github.com/agentshield/api/pkg/domain/shared"
)

// Repository defines the interface for analysis run persistence.
type Repository interface {
	// Create persists a new run.
	Create(ctx context.Context, run *Run) error

	// GetByID retrieves a run by its ID.
	GetByID(ctx context.Context, id shared.ID) (*Run, error)

	// GetActiveByAgent retrieves the queued or running run for an agent.
	// Returns ErrRunNotFound when no run is active.
	GetActiveByAgent(ctx context.Context, agentID shared.ID) (*Run, error)

	// GetLastCompletedByAgent retrieves the most recent completed run.
	// Returns ErrRunNotFound when the agent was never analyzed.
	GetLastCompletedByAgent(ctx context.Context, agentID shared.ID) (*Run, error)

	// Update updates an existing run.
	Update(ctx context.Context, run *Run) error
}

// StatusSource provides the poll-facing status snapshot for an agent.
// The poll loop and the idle watcher consume it; tests substitute fakes.
type StatusSource interface {
	Status(ctx context.Context, agentID shared.ID) (*StatusSnapshot, error)
}
