// Package app contains the application services orchestrating domain
// operations, persistence, caching, and background jobs.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentshield/api/pkg/domain/audit"
	"github.com/agentshield/api/pkg/domain/recommendation"
	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/logger"
	"github.com/agentshield/api/pkg/pagination"
)

// TransitionMetrics records lifecycle transitions. Optional.
type TransitionMetrics interface {
	IncTransition(toStatus string)
}

// RecommendationService handles recommendation lifecycle operations.
// Every transition commits together with its audit trail entry in one
// transaction, so the trail can never drift from the lifecycle.
type RecommendationService struct {
	repo        recommendation.Repository
	auditRepo   audit.Repository
	gateService *GateService
	db          *sql.DB
	metrics     TransitionMetrics
	logger      *logger.Logger
}

// NewRecommendationService creates a new RecommendationService.
func NewRecommendationService(
	repo recommendation.Repository,
	auditRepo audit.Repository,
	db *sql.DB,
	log *logger.Logger,
) *RecommendationService {
	return &RecommendationService{
		repo:      repo,
		auditRepo: auditRepo,
		db:        db,
		logger:    log.With("service", "recommendation"),
	}
}

// SetGateService wires gate cache invalidation. Transitions change the gate
// input set, so the cached gate for the workflow is dropped after each one.
func (s *RecommendationService) SetGateService(gateService *GateService) {
	s.gateService = gateService
}

// SetMetrics wires transition metrics.
func (s *RecommendationService) SetMetrics(metrics TransitionMetrics) {
	s.metrics = metrics
}

// CreateRecommendationInput represents the input for creating a recommendation.
type CreateRecommendationInput struct {
	WorkflowID      string `validate:"required,uuid"`
	SourceType      string `validate:"required,source_type"`
	Severity        string `validate:"required,severity"`
	Category        string `validate:"required,category"`
	Title           string `validate:"required,min=1,max=500"`
	Description     string `validate:"max=2000"`
	SourceFindingID string `validate:"omitempty,uuid"`
}

// CreateRecommendation creates a new recommendation in the pending state and
// appends its creation audit entry atomically.
func (s *RecommendationService) CreateRecommendation(ctx context.Context, input CreateRecommendationInput) (*recommendation.Recommendation, error) {
	workflowID, err := shared.IDFromString(input.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid workflow ID", shared.ErrValidation)
	}

	sourceType, err := recommendation.ParseSourceType(input.SourceType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrValidation, err)
	}

	severity, err := recommendation.ParseSeverity(input.Severity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrValidation, err)
	}

	rec, err := recommendation.NewRecommendation(workflowID, sourceType, severity, input.Category, input.Title)
	if err != nil {
		return nil, err
	}

	if input.Description != "" {
		rec.SetDescription(input.Description)
	}
	if input.SourceFindingID != "" {
		findingID, err := shared.IDFromString(input.SourceFindingID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid source finding ID", shared.ErrValidation)
		}
		rec.SetSourceFinding(findingID)
	}

	entry, err := audit.NewEntry(rec.ID(), "create")
	if err != nil {
		return nil, err
	}

	err = s.inTransaction(ctx, func(tx *sql.Tx) error {
		if err := s.repo.CreateInTx(ctx, tx, rec); err != nil {
			return err
		}
		return s.auditRepo.CreateInTx(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateGate(ctx, rec.WorkflowID())
	s.logger.Info("recommendation created",
		"id", rec.ID().String(),
		"workflow_id", rec.WorkflowID().String(),
		"severity", rec.Severity().String(),
	)
	return rec, nil
}

// GetRecommendation retrieves a recommendation by ID.
func (s *RecommendationService) GetRecommendation(ctx context.Context, id string) (*recommendation.Recommendation, error) {
	recID, err := shared.IDFromString(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid recommendation ID", shared.ErrValidation)
	}

	return s.repo.GetByID(ctx, recID)
}

// ListRecommendations retrieves recommendations with filtering, sorting, and
// pagination.
func (s *RecommendationService) ListRecommendations(
	ctx context.Context,
	filter recommendation.Filter,
	opts recommendation.ListOptions,
	page pagination.Pagination,
) (pagination.Result[*recommendation.Recommendation], error) {
	return s.repo.List(ctx, filter, opts, page)
}

// CountByStatus returns per-status counts for a workflow. The counts always
// partition the workflow's recommendation set.
func (s *RecommendationService) CountByStatus(ctx context.Context, workflowID string) (map[recommendation.Status]int64, error) {
	wfID, err := shared.IDFromString(workflowID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid workflow ID", shared.ErrValidation)
	}

	return s.repo.CountByStatus(ctx, wfID)
}

// StartFix transitions a recommendation from pending to fixing.
func (s *RecommendationService) StartFix(ctx context.Context, id, performedBy string) (*recommendation.Recommendation, error) {
	return s.applyTransition(ctx, id, "start_fix", "", performedBy, func(rec *recommendation.Recommendation) error {
		return rec.StartFix()
	})
}

// CompleteFixInput carries the optional fix details recorded on completion.
type CompleteFixInput struct {
	FixNotes  string `validate:"max=2000"`
	FixMethod string `validate:"max=100"`
}

// CompleteFix transitions a recommendation to fixed, recording how the fix
// was applied.
func (s *RecommendationService) CompleteFix(ctx context.Context, id, performedBy string, input CompleteFixInput) (*recommendation.Recommendation, error) {
	return s.applyTransition(ctx, id, "complete_fix", "", performedBy, func(rec *recommendation.Recommendation) error {
		return rec.CompleteFix(input.FixNotes, input.FixMethod)
	})
}

// Verify transitions a recommendation from fixed to verified.
func (s *RecommendationService) Verify(ctx context.Context, id, performedBy string) (*recommendation.Recommendation, error) {
	return s.applyTransition(ctx, id, "verified", "", performedBy, func(rec *recommendation.Recommendation) error {
		return rec.Verify()
	})
}

// DismissInput carries the dismissal kind and its mandatory reason.
type DismissInput struct {
	DismissType string `validate:"required,dismiss_type"`
	Reason      string `validate:"required,nonblank,max=2000"`
}

// Dismiss transitions an open recommendation to dismissed or ignored.
// The reason is mandatory and lands verbatim in the audit trail.
func (s *RecommendationService) Dismiss(ctx context.Context, id, performedBy string, input DismissInput) (*recommendation.Recommendation, error) {
	dismissType, err := recommendation.ParseDismissType(input.DismissType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrValidation, err)
	}

	return s.applyTransition(ctx, id, dismissType.Status().String(), input.Reason, performedBy, func(rec *recommendation.Recommendation) error {
		return rec.Dismiss(dismissType, input.Reason)
	})
}

// Reopen transitions a resolved recommendation back to pending.
func (s *RecommendationService) Reopen(ctx context.Context, id, performedBy string) (*recommendation.Recommendation, error) {
	return s.applyTransition(ctx, id, "reopened", "", performedBy, func(rec *recommendation.Recommendation) error {
		return rec.Reopen()
	})
}

// applyTransition loads the recommendation, applies the domain transition,
// and commits the status change together with its audit entry. The update is
// guarded by the loaded status so a raced duplicate of the same transition
// fails with ErrStaleStatus instead of double-applying and double-logging.
func (s *RecommendationService) applyTransition(
	ctx context.Context,
	id, action, reason, performedBy string,
	transition func(*recommendation.Recommendation) error,
) (*recommendation.Recommendation, error) {
	recID, err := shared.IDFromString(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid recommendation ID", shared.ErrValidation)
	}

	rec, err := s.repo.GetByID(ctx, recID)
	if err != nil {
		return nil, err
	}
	priorStatus := rec.Status()

	if err := transition(rec); err != nil {
		return nil, err
	}

	entry, err := audit.NewEntryWithReason(rec.ID(), action, reason, performedBy)
	if err != nil {
		return nil, err
	}

	err = s.inTransaction(ctx, func(tx *sql.Tx) error {
		if err := s.repo.UpdateInTx(ctx, tx, rec, priorStatus); err != nil {
			return err
		}
		return s.auditRepo.CreateInTx(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncTransition(rec.Status().String())
	}
	s.invalidateGate(ctx, rec.WorkflowID())

	s.logger.Info("recommendation transitioned",
		"id", rec.ID().String(),
		"from", priorStatus.String(),
		"to", rec.Status().String(),
		"action", action,
	)
	return rec, nil
}

func (s *RecommendationService) inTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *RecommendationService) invalidateGate(ctx context.Context, workflowID shared.ID) {
	if s.gateService == nil {
		return
	}
	if err := s.gateService.Invalidate(ctx, workflowID); err != nil {
		s.logger.Warn("failed to invalidate gate cache",
			"workflow_id", workflowID.String(),
			"error", err,
		)
	}
}
