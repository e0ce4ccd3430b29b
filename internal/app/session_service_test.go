package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/logger"
)

func TestSessionService_StartSession(t *testing.T) {
	ctx := context.Background()

	t.Run("records an active session", func(t *testing.T) {
		repo := newMockSessionRepo()
		svc := NewSessionService(repo, logger.NewNop())
		agentID := shared.NewID()

		session, err := svc.StartSession(ctx, agentID.String())

		require.NoError(t, err)
		assert.True(t, session.IsActive())
		assert.False(t, session.IsAnalyzed())
		assert.Len(t, repo.sessions, 1)
	})

	t.Run("invalid agent ID", func(t *testing.T) {
		svc := NewSessionService(newMockSessionRepo(), logger.NewNop())

		_, err := svc.StartSession(ctx, "bogus")

		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestSessionService_EndSession(t *testing.T) {
	ctx := context.Background()

	t.Run("closes an active session", func(t *testing.T) {
		repo := newMockSessionRepo()
		svc := NewSessionService(repo, logger.NewNop())
		session := addUnanalyzedSession(t, repo, shared.NewID())

		ended, err := svc.EndSession(ctx, session.ID().String())

		require.NoError(t, err)
		assert.False(t, ended.IsActive())
		require.NotNil(t, ended.EndedAt())
	})

	t.Run("ending twice is a no-op", func(t *testing.T) {
		repo := newMockSessionRepo()
		svc := NewSessionService(repo, logger.NewNop())
		session := addUnanalyzedSession(t, repo, shared.NewID())

		first, err := svc.EndSession(ctx, session.ID().String())
		require.NoError(t, err)
		firstEnded := *first.EndedAt()

		second, err := svc.EndSession(ctx, session.ID().String())
		require.NoError(t, err)
		assert.True(t, second.EndedAt().Equal(firstEnded))
	})

	t.Run("unknown session", func(t *testing.T) {
		svc := NewSessionService(newMockSessionRepo(), logger.NewNop())

		_, err := svc.EndSession(ctx, shared.NewID().String())

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestSessionService_GetCounts(t *testing.T) {
	ctx := context.Background()
	repo := newMockSessionRepo()
	svc := NewSessionService(repo, logger.NewNop())
	agentID := shared.NewID()

	addUnanalyzedSession(t, repo, agentID)

	analyzed := addUnanalyzedSession(t, repo, agentID)
	analyzed.End()
	analyzed.MarkAnalyzed()

	addUnanalyzedSession(t, repo, shared.NewID()) // other agent

	counts, err := svc.GetCounts(ctx, agentID.String())

	require.NoError(t, err)
	assert.Equal(t, 1, counts.Active)
	assert.Equal(t, 1, counts.Unanalyzed)
}
