package app

import (
	"context"
	"fmt"

	"github.com/agentshield/api/pkg/domain/agentsession"
	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/logger"
)

// SessionService handles agent session recording.
type SessionService struct {
	repo   agentsession.Repository
	logger *logger.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(repo agentsession.Repository, log *logger.Logger) *SessionService {
	return &SessionService{
		repo:   repo,
		logger: log.With("service", "session"),
	}
}

// StartSession records the start of a new agent session.
func (s *SessionService) StartSession(ctx context.Context, agentID string) (*agentsession.Session, error) {
	aID, err := shared.IDFromString(agentID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid agent ID", shared.ErrValidation)
	}

	session, err := agentsession.NewSession(aID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session started",
		"session_id", session.ID().String(),
		"agent_id", aID.String(),
	)
	return session, nil
}

// EndSession closes an active session. Ending an already ended session is a
// no-op.
func (s *SessionService) EndSession(ctx context.Context, sessionID string) (*agentsession.Session, error) {
	sID, err := shared.IDFromString(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid session ID", shared.ErrValidation)
	}

	session, err := s.repo.GetByID(ctx, sID)
	if err != nil {
		return nil, err
	}

	if session.IsActive() {
		session.End()
		if err := s.repo.Update(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to update session: %w", err)
		}
	}

	return session, nil
}

// GetSession retrieves a session by ID.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*agentsession.Session, error) {
	sID, err := shared.IDFromString(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid session ID", shared.ErrValidation)
	}

	return s.repo.GetByID(ctx, sID)
}

// GetCounts returns active and unanalyzed session totals for an agent.
func (s *SessionService) GetCounts(ctx context.Context, agentID string) (agentsession.Counts, error) {
	aID, err := shared.IDFromString(agentID)
	if err != nil {
		return agentsession.Counts{}, fmt.Errorf("%w: invalid agent ID", shared.ErrValidation)
	}

	return s.repo.CountsByAgent(ctx, aID)
}
