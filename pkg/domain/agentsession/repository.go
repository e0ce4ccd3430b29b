package agentsession

import (
	"context"

	"github.com/agentshield/api/pkg/domain/shared"
)

// Counts holds the per-agent session totals the analysis status reports.
type Counts struct {
	Active     int
	Unanalyzed int
}

// Repository defines the interface for agent session persistence.
type Repository interface {
	// Create persists a new session.
	Create(ctx context.Context, session *Session) error

	// GetByID retrieves a session by its ID.
	GetByID(ctx context.Context, id shared.ID) (*Session, error)

	// Update updates an existing session.
	Update(ctx context.Context, session *Session) error

	// ListUnanalyzedByAgent retrieves unanalyzed sessions for an agent,
	// oldest first, limited to batchSize (0 = no limit).
	ListUnanalyzedByAgent(ctx context.Context, agentID shared.ID, batchSize int) ([]*Session, error)

	// ListAgentsWithUnanalyzed returns the agents that currently have at
	// least one unanalyzed session. Feeds the idle session watcher.
	ListAgentsWithUnanalyzed(ctx context.Context) ([]shared.ID, error)

	// CountsByAgent returns active and unanalyzed totals for an agent.
	CountsByAgent(ctx context.Context, agentID shared.ID) (Counts, error)

	// MarkAnalyzed stamps the given sessions as analyzed in one statement.
	MarkAnalyzed(ctx context.Context, ids []shared.ID) (int64, error)
}
