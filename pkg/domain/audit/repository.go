package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/agentshield/api/pkg/domain/shared"
)

// Repository defines the interface for audit entry persistence.
// The store is append-only: there is no update and no per-entry delete.
type Repository interface {
	// Create appends a new audit entry.
	Create(ctx context.Context, entry *Entry) error

	// CreateInTx appends a new audit entry within an existing transaction,
	// so a lifecycle transition and its trail entry commit atomically.
	CreateInTx(ctx context.Context, tx *sql.Tx, entry *Entry) error

	// ListByRecommendation retrieves the full trail for a recommendation,
	// newest first.
	ListByRecommendation(ctx context.Context, recommendationID shared.ID) ([]*Entry, error)

	// CountByRecommendation returns the trail length for a recommendation.
	CountByRecommendation(ctx context.Context, recommendationID shared.ID) (int64, error)

	// DeleteOlderThan prunes entries performed before the cutoff, keeping the
	// newest entry of every recommendation so no trail goes empty.
	// Used only by the retention controller.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
