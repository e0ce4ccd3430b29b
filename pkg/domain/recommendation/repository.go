package recommendation

import (
	"context"
	"database/sql"

	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/pagination"
)

// Repository defines the interface for recommendation persistence.
type Repository interface {
	// Create persists a new recommendation.
	Create(ctx context.Context, rec *Recommendation) error

	// CreateInTx persists a new recommendation within an existing transaction.
	CreateInTx(ctx context.Context, tx *sql.Tx, rec *Recommendation) error

	// GetByID retrieves a recommendation by its ID.
	GetByID(ctx context.Context, id shared.ID) (*Recommendation, error)

	// Update updates a recommendation, guarded by the expected current status.
	// Returns ErrStaleStatus if the row no longer carries expectedStatus, so a
	// raced duplicate transition fails instead of double-applying.
	Update(ctx context.Context, rec *Recommendation, expectedStatus Status) error

	// UpdateInTx is Update within an existing transaction.
	UpdateInTx(ctx context.Context, tx *sql.Tx, rec *Recommendation, expectedStatus Status) error

	// List retrieves recommendations with filtering, sorting, and pagination.
	List(ctx context.Context, filter Filter, opts ListOptions, page pagination.Pagination) (pagination.Result[*Recommendation], error)

	// ListByWorkflow retrieves the full recommendation set for a workflow,
	// severity-ordered. Used by the gate computation, which must see the
	// untruncated set.
	ListByWorkflow(ctx context.Context, workflowID shared.ID) ([]*Recommendation, error)

	// Count returns the total number of recommendations matching the filter.
	Count(ctx context.Context, filter Filter) (int64, error)

	// CountByStatus returns counts grouped by status for a workflow.
	// The groups partition the set: the counts sum to the workflow total.
	CountByStatus(ctx context.Context, workflowID shared.ID) (map[Status]int64, error)
}

// ListOptions contains options for listing (sorting).
type ListOptions struct {
	Sort *pagination.SortOption
}

// NewListOptions creates empty list options.
func NewListOptions() ListOptions {
	return ListOptions{}
}

// WithSort adds sorting options.
func (o ListOptions) WithSort(sort *pagination.SortOption) ListOptions {
	o.Sort = sort
	return o
}

// AllowedSortFields returns the allowed sort fields for recommendations.
func AllowedSortFields() map[string]string {
	return map[string]string{
		"title":      "title",
		"severity":   "severity_rank",
		"status":     "status",
		"category":   "category",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
}
