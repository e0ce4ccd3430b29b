package recommendation

import (
	"errors"
	"fmt"

	"github.com/agentshield/api/pkg/domain/shared"
)

// Domain errors for recommendations.
var (
	ErrRecommendationNotFound = errors.New("recommendation not found")
	ErrInvalidTransition      = errors.New("invalid lifecycle transition")
	ErrReasonRequired         = errors.New("reason is required")
	ErrStaleStatus            = errors.New("recommendation status changed concurrently")
)

// NewRecommendationNotFoundError creates a new recommendation not found error.
func NewRecommendationNotFoundError(id string) error {
	return fmt.Errorf("%w: %s", ErrRecommendationNotFound, id)
}

// NewInvalidTransitionError creates a new invalid transition error.
func NewInvalidTransitionError(from, to Status) error {
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, from, to)
}

// NewReasonRequiredError creates a new reason required error.
func NewReasonRequiredError(dismissType DismissType) error {
	return fmt.Errorf("%w: %s requires a non-empty reason", ErrReasonRequired, dismissType)
}

// NewStaleStatusError creates a new stale status error.
func NewStaleStatusError(id string) error {
	return fmt.Errorf("%w: %s", ErrStaleStatus, id)
}

// IsRecommendationNotFound checks if the error is a recommendation not found error.
func IsRecommendationNotFound(err error) bool {
	return errors.Is(err, ErrRecommendationNotFound) || errors.Is(err, shared.ErrNotFound)
}

// IsInvalidTransition checks if the error is an invalid transition error.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsReasonRequired checks if the error is a reason required error.
func IsReasonRequired(err error) bool {
	return errors.Is(err, ErrReasonRequired)
}

// IsStaleStatus checks if the error is a concurrent status change error.
func IsStaleStatus(err error) bool {
	return errors.Is(err, ErrStaleStatus)
}
