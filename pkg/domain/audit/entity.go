// Package audit provides the append-only audit trail for recommendation
// lifecycle transitions. Entries are never mutated or deleted by transitions;
// only the retention controller prunes aged history.
package audit

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agentshield/api/pkg/domain/shared"
)

// Entry represents a single audit trail entry for a recommendation.
type Entry struct {
	id               shared.ID
	recommendationID shared.ID
	action           string // raw action code as produced
	reason           string
	performedBy      string // optional actor
	performedAt      time.Time
}

// NewEntry creates a new audit entry stamped with the current time.
// Dismiss-family actions require a non-empty reason.
func NewEntry(recommendationID shared.ID, action string) (*Entry, error) {
	return newEntry(recommendationID, action, "", "")
}

// NewEntryWithReason creates a new audit entry carrying a reason and actor.
func NewEntryWithReason(recommendationID shared.ID, action, reason, performedBy string) (*Entry, error) {
	return newEntry(recommendationID, action, reason, performedBy)
}

func newEntry(recommendationID shared.ID, action, reason, performedBy string) (*Entry, error) {
	if recommendationID.IsZero() {
		return nil, fmt.Errorf("%w: recommendation ID is required", shared.ErrValidation)
	}
	if strings.TrimSpace(action) == "" {
		return nil, fmt.Errorf("%w: action is required", shared.ErrValidation)
	}
	if Classify(action).IsDismissFamily() && strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: %s entries require a reason", shared.ErrValidation, Classify(action))
	}

	return &Entry{
		id:               shared.NewID(),
		recommendationID: recommendationID,
		action:           action,
		reason:           reason,
		performedBy:      performedBy,
		performedAt:      time.Now().UTC(),
	}, nil
}

// Reconstitute recreates an Entry from persistence.
func Reconstitute(
	id shared.ID,
	recommendationID shared.ID,
	action string,
	reason string,
	performedBy string,
	performedAt time.Time,
) *Entry {
	return &Entry{
		id:               id,
		recommendationID: recommendationID,
		action:           action,
		reason:           reason,
		performedBy:      performedBy,
		performedAt:      performedAt,
	}
}

// ID returns the entry ID.
func (e *Entry) ID() shared.ID {
	return e.id
}

// RecommendationID returns the recommendation this entry belongs to.
func (e *Entry) RecommendationID() shared.ID {
	return e.recommendationID
}

// Action returns the raw action code.
func (e *Entry) Action() string {
	return e.action
}

// ActionType returns the semantic classification of the raw action code.
func (e *Entry) ActionType() ActionType {
	return Classify(e.action)
}

// Reason returns the recorded reason, if any.
func (e *Entry) Reason() string {
	return e.reason
}

// PerformedBy returns the actor, if recorded.
func (e *Entry) PerformedBy() string {
	return e.performedBy
}

// PerformedAt returns when the action happened.
func (e *Entry) PerformedAt() time.Time {
	return e.performedAt
}

// SortNewestFirst orders entries by performed_at descending, in place.
// Ordering is applied at read time because entries from concurrent producers
// may be inserted out of order.
func SortNewestFirst(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].performedAt.After(entries[j].performedAt)
	})
}
