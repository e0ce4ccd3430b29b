// Package agentsession models recorded agent sessions, the raw material of
// dynamic analysis. A session is unanalyzed until a run processes it.
package agentsession

import (
	"fmt"
	"time"

	"github.com/agentshield/api/pkg/domain/shared"
)

// Session represents one recorded agent session.
type Session struct {
	id      shared.ID
	agentID shared.ID

	active     bool
	analyzedAt *time.Time
	startedAt  time.Time
	endedAt    *time.Time
	createdAt  time.Time
	updatedAt  time.Time
}

// NewSession creates a new active, unanalyzed session.
func NewSession(agentID shared.ID) (*Session, error) {
	if agentID.IsZero() {
		return nil, fmt.Errorf("%w: agent ID is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Session{
		id:        shared.NewID(),
		agentID:   agentID,
		active:    true,
		startedAt: now,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstitute recreates a Session from persistence.
func Reconstitute(
	id shared.ID,
	agentID shared.ID,
	active bool,
	analyzedAt *time.Time,
	startedAt time.Time,
	endedAt *time.Time,
	createdAt, updatedAt time.Time,
) *Session {
	return &Session{
		id:         id,
		agentID:    agentID,
		active:     active,
		analyzedAt: analyzedAt,
		startedAt:  startedAt,
		endedAt:    endedAt,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

// ID returns the session ID.
func (s *Session) ID() shared.ID {
	return s.id
}

// AgentID returns the owning agent ID.
func (s *Session) AgentID() shared.ID {
	return s.agentID
}

// IsActive returns true while the session is still open.
func (s *Session) IsActive() bool {
	return s.active
}

// IsAnalyzed returns true once a dynamic analysis run processed the session.
func (s *Session) IsAnalyzed() bool {
	return s.analyzedAt != nil
}

// AnalyzedAt returns when the session was analyzed, if it was.
func (s *Session) AnalyzedAt() *time.Time {
	return s.analyzedAt
}

// StartedAt returns when the session started.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// EndedAt returns when the session ended, if it has.
func (s *Session) EndedAt() *time.Time {
	return s.endedAt
}

// CreatedAt returns the creation timestamp.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// UpdatedAt returns the last update timestamp.
func (s *Session) UpdatedAt() time.Time {
	return s.updatedAt
}

// End closes an active session.
func (s *Session) End() {
	if !s.active {
		return
	}
	now := time.Now().UTC()
	s.active = false
	s.endedAt = &now
	s.updatedAt = now
}

// MarkAnalyzed stamps the session as processed by an analysis run.
func (s *Session) MarkAnalyzed() {
	now := time.Now().UTC()
	s.analyzedAt = &now
	s.updatedAt = now
}
