package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agentshield/api/pkg/domain/analysis"
	"github.com/agentshield/api/pkg/domain/shared"
)

// AnalysisRepository implements analysis.Repository using PostgreSQL.
type AnalysisRepository struct {
	db *DB
}

// NewAnalysisRepository creates a new AnalysisRepository.
func NewAnalysisRepository(db *DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Create persists a new run.
func (r *AnalysisRepository) Create(ctx context.Context, run *analysis.Run) error {
	query := `
		INSERT INTO analysis_runs (
			id, agent_id, state, sessions_analyzed, error_message,
			started_at, completed_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID().String(),
		run.AgentID().String(),
		run.State().String(),
		run.SessionsAnalyzed(),
		nullString(run.ErrorMessage()),
		nullTime(run.StartedAt()),
		nullTime(run.CompletedAt()),
		run.CreatedAt(),
		run.UpdatedAt(),
	)

	if err != nil {
		if isUniqueViolation(err) {
			// A partial unique index on active states enforces the single
			// in-flight run per agent at the storage layer too.
			return analysis.NewTriggerConflictError(run.AgentID().String())
		}
		return fmt.Errorf("failed to create analysis run: %w", err)
	}

	return nil
}

// GetByID retrieves a run by its ID.
func (r *AnalysisRepository) GetByID(ctx context.Context, id shared.ID) (*analysis.Run, error) {
	query := r.selectQuery() + " WHERE id = $1"

	row := r.db.QueryRowContext(ctx, query, id.String())
	run, err := r.doScan(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, analysis.NewRunNotFoundError(id.String())
		}
		return nil, fmt.Errorf("failed to scan analysis run: %w", err)
	}
	return run, nil
}

// GetActiveByAgent retrieves the queued or running run for an agent.
func (r *AnalysisRepository) GetActiveByAgent(ctx context.Context, agentID shared.ID) (*analysis.Run, error) {
	query := r.selectQuery() + ` WHERE agent_id = $1 AND state IN ('queued', 'running') ORDER BY created_at DESC LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, agentID.String())
	run, err := r.doScan(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, analysis.NewRunNotFoundError(agentID.String())
		}
		return nil, fmt.Errorf("failed to scan analysis run: %w", err)
	}
	return run, nil
}

// GetLastCompletedByAgent retrieves the most recent completed run.
func (r *AnalysisRepository) GetLastCompletedByAgent(ctx context.Context, agentID shared.ID) (*analysis.Run, error) {
	query := r.selectQuery() + ` WHERE agent_id = $1 AND state = 'completed' ORDER BY completed_at DESC LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, agentID.String())
	run, err := r.doScan(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, analysis.NewRunNotFoundError(agentID.String())
		}
		return nil, fmt.Errorf("failed to scan analysis run: %w", err)
	}
	return run, nil
}

// Update updates an existing run.
func (r *AnalysisRepository) Update(ctx context.Context, run *analysis.Run) error {
	query := `
		UPDATE analysis_runs
		SET state = $2, sessions_analyzed = $3, error_message = $4,
		    started_at = $5, completed_at = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		run.ID().String(),
		run.State().String(),
		run.SessionsAnalyzed(),
		nullString(run.ErrorMessage()),
		nullTime(run.StartedAt()),
		nullTime(run.CompletedAt()),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update analysis run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return analysis.NewRunNotFoundError(run.ID().String())
	}

	return nil
}

// Helper methods

func (r *AnalysisRepository) selectQuery() string {
	return `
		SELECT id, agent_id, state, sessions_analyzed, error_message,
		       started_at, completed_at, created_at, updated_at
		FROM analysis_runs
	`
}

func (r *AnalysisRepository) doScan(scan func(dest ...any) error) (*analysis.Run, error) {
	var (
		idStr            string
		agentIDStr       string
		state            string
		sessionsAnalyzed int
		errorMessage     sql.NullString
		startedAt        sql.NullTime
		completedAt      sql.NullTime
		createdAt        time.Time
		updatedAt        time.Time
	)

	err := scan(
		&idStr, &agentIDStr, &state, &sessionsAnalyzed, &errorMessage,
		&startedAt, &completedAt, &createdAt, &updatedAt,
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

	parsedState, _ := analysis.ParseState(state)

	return analysis.Reconstitute(
		parsedID,
		agentID,
		parsedState,
		sessionsAnalyzed,
		nullStringValue(errorMessage),
		nullTimeValue(startedAt),
		nullTimeValue(completedAt),
		createdAt,
		updatedAt,
	), nil
}
