package app

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentshield/api/pkg/domain/audit"
	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/logger"
)

// mockAuditRepo implements audit.Repository in memory.
type mockAuditRepo struct {
	entries []*audit.Entry
}

func (m *mockAuditRepo) Create(_ context.Context, entry *audit.Entry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) CreateInTx(_ context.Context, _ *sql.Tx, entry *audit.Entry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByRecommendation(_ context.Context, recommendationID shared.ID) ([]*audit.Entry, error) {
	var out []*audit.Entry
	for _, e := range m.entries {
		if e.RecommendationID().Equals(recommendationID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockAuditRepo) CountByRecommendation(_ context.Context, recommendationID shared.ID) (int64, error) {
	var n int64
	for _, e := range m.entries {
		if e.RecommendationID().Equals(recommendationID) {
			n++
		}
	}
	return n, nil
}

func (m *mockAuditRepo) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func TestAuditService_GetTrail(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the trail newest first", func(t *testing.T) {
		repo := &mockAuditRepo{}
		recID := shared.NewID()
		base := time.Now().UTC()

		repo.entries = append(repo.entries,
			audit.Reconstitute(shared.NewID(), recID, "create", "", "", base.Add(-2*time.Hour)),
			audit.Reconstitute(shared.NewID(), recID, "complete_fix", "", "bob", base),
			audit.Reconstitute(shared.NewID(), recID, "start_fix", "", "alice", base.Add(-time.Hour)),
		)
		// Entry for another recommendation must not leak into the trail.
		repo.entries = append(repo.entries,
			audit.Reconstitute(shared.NewID(), shared.NewID(), "create", "", "", base))

		svc := NewAuditService(repo, logger.NewNop())

		entries, err := svc.GetTrail(ctx, recID.String())

		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "complete_fix", entries[0].Action())
		assert.Equal(t, "start_fix", entries[1].Action())
		assert.Equal(t, "create", entries[2].Action())
	})

	t.Run("empty trail", func(t *testing.T) {
		svc := NewAuditService(&mockAuditRepo{}, logger.NewNop())

		entries, err := svc.GetTrail(ctx, shared.NewID().String())

		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("invalid recommendation ID", func(t *testing.T) {
		svc := NewAuditService(&mockAuditRepo{}, logger.NewNop())

		_, err := svc.GetTrail(ctx, "nope")

		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestAuditService_CountTrail(t *testing.T) {
	repo := &mockAuditRepo{}
	recID := shared.NewID()
	repo.entries = append(repo.entries,
		audit.Reconstitute(shared.NewID(), recID, "create", "", "", time.Now().UTC()))

	svc := NewAuditService(repo, logger.NewNop())

	count, err := svc.CountTrail(context.Background(), recID.String())

	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
