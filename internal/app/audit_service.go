package app

import (
	"context"
	"fmt"

	"github.com/agentshield/api/pkg/domain/audit"
	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/logger"
)

// AuditService exposes the read side of the recommendation audit trail.
// Writes happen inside lifecycle transactions; this service only lists.
type AuditService struct {
	repo   audit.Repository
	logger *logger.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(repo audit.Repository, log *logger.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		logger: log.With("service", "audit"),
	}
}

// GetTrail retrieves the full audit trail for a recommendation, newest first.
func (s *AuditService) GetTrail(ctx context.Context, recommendationID string) ([]*audit.Entry, error) {
	recID, err := shared.IDFromString(recommendationID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid recommendation ID", shared.ErrValidation)
	}

	entries, err := s.repo.ListByRecommendation(ctx, recID)
	if err != nil {
		return nil, err
	}

	// The repository orders by performed_at already; re-sorting keeps the
	// contract even if a backing store returns insertion order.
	audit.SortNewestFirst(entries)
	return entries, nil
}

// CountTrail returns the trail length for a recommendation.
func (s *AuditService) CountTrail(ctx context.Context, recommendationID string) (int64, error) {
	recID, err := shared.IDFromString(recommendationID)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid recommendation ID", shared.ErrValidation)
	}

	return s.repo.CountByRecommendation(ctx, recID)
}
