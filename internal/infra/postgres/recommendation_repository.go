package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentshield/api/pkg/domain/recommendation"
	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/pagination"
)

// RecommendationRepository implements recommendation.Repository using PostgreSQL.
type RecommendationRepository struct {
	db *DB
}

// NewRecommendationRepository creates a new RecommendationRepository.
func NewRecommendationRepository(db *DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// Create persists a new recommendation.
func (r *RecommendationRepository) Create(ctx context.Context, rec *recommendation.Recommendation) error {
	_, err := r.db.ExecContext(ctx, r.insertQuery(), r.insertArgs(rec)...)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create recommendation: %w", err)
	}
	return nil
}

// CreateInTx persists a new recommendation within an existing transaction.
func (r *RecommendationRepository) CreateInTx(ctx context.Context, tx *sql.Tx, rec *recommendation.Recommendation) error {
	_, err := tx.ExecContext(ctx, r.insertQuery(), r.insertArgs(rec)...)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create recommendation in tx: %w", err)
	}
	return nil
}

// GetByID retrieves a recommendation by its ID.
func (r *RecommendationRepository) GetByID(ctx context.Context, id shared.ID) (*recommendation.Recommendation, error) {
	query := r.selectQuery() + " WHERE id = $1"

	row := r.db.QueryRowContext(ctx, query, id.String())
	return r.scanRecommendation(row, id)
}

// Update updates a recommendation, guarded by the expected current status.
// The status predicate makes a raced duplicate transition affect zero rows,
// which surfaces as ErrStaleStatus instead of silently double-applying.
func (r *RecommendationRepository) Update(ctx context.Context, rec *recommendation.Recommendation, expectedStatus recommendation.Status) error {
	result, err := r.db.ExecContext(ctx, r.updateQuery(), r.updateArgs(rec, expectedStatus)...)
	if err != nil {
		return fmt.Errorf("failed to update recommendation: %w", err)
	}
	return r.checkUpdateResult(ctx, result, rec.ID())
}

// UpdateInTx is Update within an existing transaction.
func (r *RecommendationRepository) UpdateInTx(ctx context.Context, tx *sql.Tx, rec *recommendation.Recommendation, expectedStatus recommendation.Status) error {
	result, err := tx.ExecContext(ctx, r.updateQuery(), r.updateArgs(rec, expectedStatus)...)
	if err != nil {
		return fmt.Errorf("failed to update recommendation in tx: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Inside a transaction the caller rolls back either way, so the
		// stale case does not need to be distinguished from not-found.
		return recommendation.NewStaleStatusError(rec.ID().String())
	}
	return nil
}

// List retrieves recommendations with filtering, sorting, and pagination.
func (r *RecommendationRepository) List(
	ctx context.Context,
	filter recommendation.Filter,
	opts recommendation.ListOptions,
	page pagination.Pagination,
) (pagination.Result[*recommendation.Recommendation], error) {
	baseQuery := r.selectQuery()
	countQuery := `SELECT COUNT(*) FROM recommendations`

	whereClause, args := r.buildWhereClause(filter)
	if whereClause != "" {
		baseQuery += " WHERE " + whereClause
		countQuery += " WHERE " + whereClause
	}

	// Apply sorting
	orderBy := "severity_rank ASC, created_at DESC"
	if opts.Sort != nil && !opts.Sort.IsEmpty() {
		orderBy = opts.Sort.SQLWithDefault("severity_rank ASC, created_at DESC")
	}
	baseQuery += " ORDER BY " + orderBy
	baseQuery += fmt.Sprintf(" LIMIT %d OFFSET %d", page.Limit(), page.Offset())

	var total int64
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return pagination.Result[*recommendation.Recommendation]{}, fmt.Errorf("failed to count recommendations: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return pagination.Result[*recommendation.Recommendation]{}, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []*recommendation.Recommendation
	for rows.Next() {
		rec, err := r.doScan(rows.Scan)
		if err != nil {
			return pagination.Result[*recommendation.Recommendation]{}, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return pagination.Result[*recommendation.Recommendation]{}, fmt.Errorf("failed to iterate recommendations: %w", err)
	}

	return pagination.NewResult(recs, total, page), nil
}

// ListByWorkflow retrieves the full recommendation set for a workflow,
// severity-ordered. The gate computation needs the untruncated set.
func (r *RecommendationRepository) ListByWorkflow(ctx context.Context, workflowID shared.ID) ([]*recommendation.Recommendation, error) {
	query := r.selectQuery() + " WHERE workflow_id = $1 ORDER BY severity_rank ASC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, workflowID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow recommendations: %w", err)
	}
	defer rows.Close()

	var recs []*recommendation.Recommendation
	for rows.Next() {
		rec, err := r.doScan(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recommendations: %w", err)
	}

	return recs, nil
}

// Count returns the total number of recommendations matching the filter.
func (r *RecommendationRepository) Count(ctx context.Context, filter recommendation.Filter) (int64, error) {
	query := `SELECT COUNT(*) FROM recommendations`

	whereClause, args := r.buildWhereClause(filter)
	if whereClause != "" {
		query += " WHERE " + whereClause
	}

	var count int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recommendations: %w", err)
	}

	return count, nil
}

// CountByStatus returns counts grouped by status for a workflow.
func (r *RecommendationRepository) CountByStatus(ctx context.Context, workflowID shared.ID) (map[recommendation.Status]int64, error) {
	query := `
		SELECT status, COUNT(*) as count
		FROM recommendations
		WHERE workflow_id = $1
		GROUP BY status
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	defer rows.Close()

	result := make(map[recommendation.Status]int64)
	for rows.Next() {
		var statusStr string
		var count int64
		if err := rows.Scan(&statusStr, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		status, _ := recommendation.ParseStatus(statusStr)
		result[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Helper methods

func (r *RecommendationRepository) insertQuery() string {
	return `
		INSERT INTO recommendations (
			id, workflow_id, source_type, severity, severity_rank,
			category, title, description, status, source_finding_id,
			fix_notes, fix_method, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
}

func (r *RecommendationRepository) insertArgs(rec *recommendation.Recommendation) []any {
	return []any{
		rec.ID().String(),
		rec.WorkflowID().String(),
		rec.SourceType().String(),
		rec.Severity().String(),
		rec.Severity().Rank(),
		rec.Category(),
		rec.Title(),
		nullString(rec.Description()),
		rec.Status().String(),
		nullID(rec.SourceFindingID()),
		nullString(rec.FixNotes()),
		nullString(rec.FixMethod()),
		rec.CreatedAt(),
		rec.UpdatedAt(),
	}
}

func (r *RecommendationRepository) updateQuery() string {
	return `
		UPDATE recommendations
		SET status = $2, description = $3, fix_notes = $4, fix_method = $5,
		    source_finding_id = $6, updated_at = $7
		WHERE id = $1 AND status = $8
	`
}

func (r *RecommendationRepository) updateArgs(rec *recommendation.Recommendation, expectedStatus recommendation.Status) []any {
	return []any{
		rec.ID().String(),
		rec.Status().String(),
		nullString(rec.Description()),
		nullString(rec.FixNotes()),
		nullString(rec.FixMethod()),
		nullID(rec.SourceFindingID()),
		rec.UpdatedAt(),
		expectedStatus.String(),
	}
}

// checkUpdateResult distinguishes a missing row from a stale status guard.
func (r *RecommendationRepository) checkUpdateResult(ctx context.Context, result sql.Result, id shared.ID) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM recommendations WHERE id = $1)`, id.String()).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check recommendation existence: %w", err)
	}
	if !exists {
		return recommendation.NewRecommendationNotFoundError(id.String())
	}
	return recommendation.NewStaleStatusError(id.String())
}

func (r *RecommendationRepository) selectQuery() string {
	return `
		SELECT id, workflow_id, source_type, severity,
		       category, title, description, status, source_finding_id,
		       fix_notes, fix_method, created_at, updated_at
		FROM recommendations
	`
}

func (r *RecommendationRepository) scanRecommendation(row *sql.Row, id shared.ID) (*recommendation.Recommendation, error) {
	rec, err := r.doScan(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, recommendation.NewRecommendationNotFoundError(id.String())
		}
		return nil, fmt.Errorf("failed to scan recommendation: %w", err)
	}
	return rec, nil
}

func (r *RecommendationRepository) doScan(scan func(dest ...any) error) (*recommendation.Recommendation, error) {
	var (
		idStr              string
		workflowIDStr      string
		sourceType         string
		severity           string
		category           string
		title              string
		description        sql.NullString
		status             string
		sourceFindingIDStr sql.NullString
		fixNotes           sql.NullString
		fixMethod          sql.NullString
		createdAt          time.Time
		updatedAt          time.Time
	)

	err := scan(
		&idStr, &workflowIDStr, &sourceType, &severity,
		&category, &title, &description, &status, &sourceFindingIDStr,
		&fixNotes, &fixMethod, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsedID, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse id: %w", err)
	}

	workflowID, err := shared.IDFromString(workflowIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workflow id: %w", err)
	}

	parsedSourceType, _ := recommendation.ParseSourceType(sourceType)
	parsedSeverity, _ := recommendation.ParseSeverity(severity)
	parsedStatus, _ := recommendation.ParseStatus(status)

	return recommendation.Reconstitute(
		parsedID,
		workflowID,
		parsedSourceType,
		parsedSeverity,
		category,
		title,
		nullStringValue(description),
		parsedStatus,
		parseNullID(sourceFindingIDStr),
		nullStringValue(fixNotes),
		nullStringValue(fixMethod),
		createdAt,
		updatedAt,
	), nil
}

func (r *RecommendationRepository) buildWhereClause(filter recommendation.Filter) (string, []any) {
	var conditions []string
	var args []any
	argIndex := 1

	if filter.WorkflowID != nil && *filter.WorkflowID != "" {
		conditions = append(conditions, fmt.Sprintf("workflow_id = $%d", argIndex))
		args = append(args, *filter.WorkflowID)
		argIndex++
	}

	if len(filter.Sources) > 0 {
		placeholders := make([]string, len(filter.Sources))
		for i, s := range filter.Sources {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, s.String())
			argIndex++
		}
		conditions = append(conditions, "source_type IN ("+strings.Join(placeholders, ", ")+")")
	}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, s.String())
			argIndex++
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, c := range filter.Categories {
			placeholders[i] = fmt.Sprintf("LOWER($%d)", argIndex)
			args = append(args, c)
			argIndex++
		}
		conditions = append(conditions, "LOWER(category) IN ("+strings.Join(placeholders, ", ")+")")
	}

	if filter.BlockingOnly {
		conditions = append(conditions, "severity IN ('critical', 'high') AND status IN ('pending', 'fixing')")
	}

	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex+1))
		searchPattern := "%" + *filter.Search + "%"
		args = append(args, searchPattern, searchPattern)
		argIndex += 2
	}

	return strings.Join(conditions, " AND "), args
}
