package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentshield/api/internal/infra/redis"
	"github.com/agentshield/api/pkg/domain/gate"
	"github.com/agentshield/api/pkg/domain/recommendation"
	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/logger"
)

// GateMetrics records gate evaluations. Optional.
type GateMetrics interface {
	IncGateEvaluation(decision string)
}

// GateService computes the production-readiness gate for a workflow.
// The gate is never stored: each evaluation recomputes it from the live
// recommendation set, with a short-lived cache in front of the recompute.
type GateService struct {
	repo    recommendation.Repository
	cache   *redis.Cache[gate.Status]
	metrics GateMetrics
	logger  *logger.Logger
}

// NewGateService creates a new GateService. The cache is optional; without
// it every evaluation hits the repository.
func NewGateService(
	repo recommendation.Repository,
	cache *redis.Cache[gate.Status],
	log *logger.Logger,
) *GateService {
	return &GateService{
		repo:   repo,
		cache:  cache,
		logger: log.With("service", "gate"),
	}
}

// SetMetrics wires gate evaluation metrics.
func (s *GateService) SetMetrics(metrics GateMetrics) {
	s.metrics = metrics
}

// DefaultGateCacheTTL bounds how stale a cached gate can be. Transitions
// invalidate eagerly; the TTL only covers writers that bypass the service.
const DefaultGateCacheTTL = 30 * time.Second

// Evaluate computes the gate status for a workflow.
func (s *GateService) Evaluate(ctx context.Context, workflowID string) (gate.Status, error) {
	wfID, err := shared.IDFromString(workflowID)
	if err != nil {
		return gate.Status{}, fmt.Errorf("%w: invalid workflow ID", shared.ErrValidation)
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, wfID.String())
		if err == nil {
			return *cached, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.logger.Warn("gate cache read failed", "workflow_id", wfID.String(), "error", err)
		}
	}

	recs, err := s.repo.ListByWorkflow(ctx, wfID)
	if err != nil {
		return gate.Status{}, fmt.Errorf("failed to load recommendations for gate: %w", err)
	}

	status := gate.Compute(recs)

	if s.metrics != nil {
		s.metrics.IncGateEvaluation(status.Decision.String())
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, wfID.String(), status); err != nil {
			s.logger.Warn("gate cache write failed", "workflow_id", wfID.String(), "error", err)
		}
	}

	return status, nil
}

// EvaluateTopN computes the gate and truncates the blocking item list for
// display. BlockingCount stays the untruncated total.
func (s *GateService) EvaluateTopN(ctx context.Context, workflowID string, n int) (gate.Status, error) {
	status, err := s.Evaluate(ctx, workflowID)
	if err != nil {
		return gate.Status{}, err
	}
	return status.TopN(n), nil
}

// Invalidate drops the cached gate for a workflow. Called after every
// recommendation transition, since each one changes the gate input set.
func (s *GateService) Invalidate(ctx context.Context, workflowID shared.ID) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, workflowID.String())
}
