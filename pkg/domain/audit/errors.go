package audit

import (
	"errors"
	"fmt"

	"github.com/agentshield/api/pkg/domain/shared"
)

// Domain errors for audit entries.
var (
	ErrEntryNotFound = errors.New("audit entry not found")
)

// NewEntryNotFoundError creates a new entry not found error.
func NewEntryNotFoundError(id string) error {
	return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
}

// IsEntryNotFound checks if the error is an entry not found error.
func IsEntryNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound) || errors.Is(err, shared.ErrNotFound)
}
