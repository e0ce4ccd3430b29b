package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentshield/api/pkg/domain/recommendation"
	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/logger"
)

func TestRecommendationService_CountByStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("counts partition the workflow set", func(t *testing.T) {
		repo := newMockRecommendationRepo()
		svc := NewRecommendationService(repo, &mockAuditRepo{}, nil, logger.NewNop())
		wfID := shared.NewID()

		// Two left pending.
		repo.add(mustRecommendation(t, wfID, recommendation.SeverityCritical))
		repo.add(mustRecommendation(t, wfID, recommendation.SeverityLow))

		// One in fixing.
		fixing := mustRecommendation(t, wfID, recommendation.SeverityHigh)
		require.NoError(t, fixing.StartFix())
		repo.add(fixing)

		// One fixed, one verified.
		fixed := mustRecommendation(t, wfID, recommendation.SeverityMedium)
		require.NoError(t, fixed.StartFix())
		require.NoError(t, fixed.CompleteFix("patched prompt template", "manual"))
		repo.add(fixed)

		verified := mustRecommendation(t, wfID, recommendation.SeverityHigh)
		require.NoError(t, verified.StartFix())
		require.NoError(t, verified.CompleteFix("rotated credentials", "manual"))
		require.NoError(t, verified.Verify())
		repo.add(verified)

		// One dismissed, one ignored.
		dismissed := mustRecommendation(t, wfID, recommendation.SeverityLow)
		require.NoError(t, dismissed.Dismiss(recommendation.DismissTypeDismissed, "false positive"))
		repo.add(dismissed)

		ignored := mustRecommendation(t, wfID, recommendation.SeverityLow)
		require.NoError(t, ignored.Dismiss(recommendation.DismissTypeIgnored, "accepted risk"))
		repo.add(ignored)

		// Another workflow's recommendations must not leak into the counts.
		otherID := shared.NewID()
		repo.add(mustRecommendation(t, otherID, recommendation.SeverityCritical))
		repo.add(mustRecommendation(t, otherID, recommendation.SeverityHigh))

		counts, err := svc.CountByStatus(ctx, wfID.String())
		require.NoError(t, err)

		assert.Equal(t, int64(2), counts[recommendation.StatusPending])
		assert.Equal(t, int64(1), counts[recommendation.StatusFixing])
		assert.Equal(t, int64(1), counts[recommendation.StatusFixed])
		assert.Equal(t, int64(1), counts[recommendation.StatusVerified])
		assert.Equal(t, int64(1), counts[recommendation.StatusDismissed])
		assert.Equal(t, int64(1), counts[recommendation.StatusIgnored])

		var total int64
		for _, n := range counts {
			total += n
		}
		assert.Equal(t, int64(len(repo.byWorkflow[wfID.String()])), total)
	})

	t.Run("empty workflow sums to zero", func(t *testing.T) {
		repo := newMockRecommendationRepo()
		svc := NewRecommendationService(repo, &mockAuditRepo{}, nil, logger.NewNop())

		counts, err := svc.CountByStatus(ctx, shared.NewID().String())
		require.NoError(t, err)

		var total int64
		for _, n := range counts {
			total += n
		}
		assert.Zero(t, total)
	})

	t.Run("invalid workflow ID", func(t *testing.T) {
		svc := NewRecommendationService(newMockRecommendationRepo(), &mockAuditRepo{}, nil, logger.NewNop())

		_, err := svc.CountByStatus(ctx, "not-a-uuid")
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}
