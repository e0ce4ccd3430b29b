package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/agentshield/api/pkg/domain/agentsession"
	"github.com/agentshield/api/pkg/domain/shared"
)

// SessionRepository implements agentsession.Repository using PostgreSQL.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, session *agentsession.Session) error {
	query := `
		INSERT INTO agent_sessions (
			id, agent_id, active, analyzed_at, started_at, ended_at,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID().String(),
		session.AgentID().String(),
		session.IsActive(),
		nullTime(session.AnalyzedAt()),
		session.StartedAt(),
		nullTime(session.EndedAt()),
		session.CreatedAt(),
		session.UpdatedAt(),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create agent session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id shared.ID) (*agentsession.Session, error) {
	query := r.selectQuery() + " WHERE id = $1"

	row := r.db.QueryRowContext(ctx, query, id.String())
	session, err := r.doScan(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: session %s", shared.ErrNotFound, id.String())
		}
		return nil, fmt.Errorf("failed to scan agent session: %w", err)
	}
	return session, nil
}

// Update updates an existing session.
func (r *SessionRepository) Update(ctx context.Context, session *agentsession.Session) error {
	query := `
		UPDATE agent_sessions
		SET active = $2, analyzed_at = $3, ended_at = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		session.ID().String(),
		session.IsActive(),
		nullTime(session.AnalyzedAt()),
		nullTime(session.EndedAt()),
		session.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update agent session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: session %s", shared.ErrNotFound, session.ID().String())
	}

	return nil
}

// ListUnanalyzedByAgent retrieves unanalyzed sessions for an agent, oldest
// first, limited to batchSize (0 = no limit).
func (r *SessionRepository) ListUnanalyzedByAgent(ctx context.Context, agentID shared.ID, batchSize int) ([]*agentsession.Session, error) {
	query := r.selectQuery() + " WHERE agent_id = $1 AND analyzed_at IS NULL ORDER BY started_at ASC"
	if batchSize > 0 {
		query += fmt.Sprintf(" LIMIT %d", batchSize)
	}

	rows, err := r.db.QueryContext(ctx, query, agentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query unanalyzed sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*agentsession.Session
	for rows.Next() {
		session, err := r.doScan(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agent sessions: %w", err)
	}

	return sessions, nil
}

// ListAgentsWithUnanalyzed returns the agents that currently have at least
// one unanalyzed session.
func (r *SessionRepository) ListAgentsWithUnanalyzed(ctx context.Context) ([]shared.ID, error) {
	query := `SELECT DISTINCT agent_id FROM agent_sessions WHERE analyzed_at IS NULL`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents with unanalyzed sessions: %w", err)
	}
	defer rows.Close()

	var agentIDs []shared.ID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("failed to scan agent id: %w", err)
		}
		id, err := shared.IDFromString(idStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse agent id: %w", err)
		}
		agentIDs = append(agentIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agent ids: %w", err)
	}

	return agentIDs, nil
}

// CountsByAgent returns active and unanalyzed totals for an agent.
func (r *SessionRepository) CountsByAgent(ctx context.Context, agentID shared.ID) (agentsession.Counts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE active),
			COUNT(*) FILTER (WHERE analyzed_at IS NULL)
		FROM agent_sessions
		WHERE agent_id = $1
	`

	var counts agentsession.Counts
	err := r.db.QueryRowContext(ctx, query, agentID.String()).Scan(&counts.Active, &counts.Unanalyzed)
	if err != nil {
		return agentsession.Counts{}, fmt.Errorf("failed to count agent sessions: %w", err)
	}

	return counts, nil
}

// MarkAnalyzed stamps the given sessions as analyzed in one statement.
func (r *SessionRepository) MarkAnalyzed(ctx context.Context, ids []shared.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	query := `
		UPDATE agent_sessions
		SET analyzed_at = NOW(), updated_at = NOW()
		WHERE id = ANY($1) AND analyzed_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, pq.Array(idStrings))
	if err != nil {
		return 0, fmt.Errorf("failed to mark sessions analyzed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// Helper methods

func (r *SessionRepository) selectQuery() string {
	return `
		SELECT id, agent_id, active, analyzed_at, started_at, ended_at,
		       created_at, updated_at
		FROM agent_sessions
	`
}

func (r *SessionRepository) doScan(scan func(dest ...any) error) (*agentsession.Session, error) {
	var (
		idStr      string
		agentIDStr string
		active     bool
		analyzedAt sql.NullTime
		startedAt  time.Time
		endedAt    sql.NullTime
		createdAt  time.Time
		updatedAt  time.Time
	)

	err := scan(
		&idStr, &agentIDStr, &active, &analyzedAt, &startedAt, &endedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsedID, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse id: %w", err)
	}

	agentID, err := shared.IDFromString(agentIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse agent id: %w", err)
	}

	return agentsession.Reconstitute(
		parsedID,
		agentID,
		active,
		nullTimeValue(analyzedAt),
		startedAt,
		nullTimeValue(endedAt),
		createdAt,
		updatedAt,
	), nil
}
