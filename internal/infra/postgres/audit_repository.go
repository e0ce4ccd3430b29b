package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/agentshield/api/pkg/domain/audit"
	"github.com/agentshield/api/pkg/domain/shared"
)

// AuditRepository implements audit.Repository using PostgreSQL.
// The table is append-only: entries are inserted, listed, and pruned by the
// retention controller, never updated.
type AuditRepository struct {
	db *DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends a new audit entry.
func (r *AuditRepository) Create(ctx context.Context, entry *audit.Entry) error {
	_, err := r.db.ExecContext(ctx, r.insertQuery(), r.insertArgs(entry)...)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

// CreateInTx appends a new audit entry within an existing transaction.
func (r *AuditRepository) CreateInTx(ctx context.Context, tx *sql.Tx, entry *audit.Entry) error {
	_, err := tx.ExecContext(ctx, r.insertQuery(), r.insertArgs(entry)...)
	if err != nil {
		return fmt.Errorf("failed to create audit entry in tx: %w", err)
	}
	return nil
}

// ListByRecommendation retrieves the full trail for a recommendation, newest first.
func (r *AuditRepository) ListByRecommendation(ctx context.Context, recommendationID shared.ID) ([]*audit.Entry, error) {
	query := `
		SELECT id, recommendation_id, action, reason, performed_by, performed_at
		FROM recommendation_audit_entries
		WHERE recommendation_id = $1
		ORDER BY performed_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, recommendationID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		entry, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}

	return entries, nil
}

// CountByRecommendation returns the trail length for a recommendation.
func (r *AuditRepository) CountByRecommendation(ctx context.Context, recommendationID shared.ID) (int64, error) {
	query := `SELECT COUNT(*) FROM recommendation_audit_entries WHERE recommendation_id = $1`

	var count int64
	err := r.db.QueryRowContext(ctx, query, recommendationID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	return count, nil
}

// DeleteOlderThan prunes entries performed before the cutoff, always keeping
// the newest entry of each recommendation so no trail goes empty.
func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM recommendation_audit_entries
		WHERE performed_at < $1
		  AND id NOT IN (
			SELECT DISTINCT ON (recommendation_id) id
			FROM recommendation_audit_entries
			ORDER BY recommendation_id, performed_at DESC
		  )
	`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// Helper methods

func (r *AuditRepository) insertQuery() string {
	return `
		INSERT INTO recommendation_audit_entries (
			id, recommendation_id, action, reason, performed_by, performed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
}

func (r *AuditRepository) insertArgs(entry *audit.Entry) []any {
	return []any{
		entry.ID().String(),
		entry.RecommendationID().String(),
		entry.Action(),
		nullString(entry.Reason()),
		nullString(entry.PerformedBy()),
		entry.PerformedAt(),
	}
}

func (r *AuditRepository) scanEntry(rows *sql.Rows) (*audit.Entry, error) {
	var (
		idStr               string
		recommendationIDStr string
		action              string
		reason              sql.NullString
		performedBy         sql.NullString
		performedAt         time.Time
	)

	err := rows.Scan(&idStr, &recommendationIDStr, &action, &reason, &performedBy, &performedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit entry: %w", err)
	}

	parsedID, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse id: %w", err)
	}

	recommendationID, err := shared.IDFromString(recommendationIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recommendation id: %w", err)
	}

	return audit.Reconstitute(
		parsedID,
		recommendationID,
		action,
		nullStringValue(reason),
		nullStringValue(performedBy),
		performedAt,
	), nil
}
