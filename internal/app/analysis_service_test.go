package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentshield/api/pkg/domain/agentsession"
	"github.com/agentshield/api/pkg/domain/analysis"
	"github.com/agentshield/api/pkg/domain/recommendation"
	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/logger"
)

// mockRunRepo implements analysis.Repository in memory.
type mockRunRepo struct {
	runs      map[string]*analysis.Run
	createErr error
}

func newMockRunRepo() *mockRunRepo {
	return &mockRunRepo{runs: make(map[string]*analysis.Run)}
}

func (m *mockRunRepo) Create(_ context.Context, run *analysis.Run) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.runs[run.ID().String()] = run
	return nil
}

func (m *mockRunRepo) GetByID(_ context.Context, id shared.ID) (*analysis.Run, error) {
	run, ok := m.runs[id.String()]
	if !ok {
		return nil, analysis.NewRunNotFoundError(id.String())
	}
	return run, nil
}

func (m *mockRunRepo) GetActiveByAgent(_ context.Context, agentID shared.ID) (*analysis.Run, error) {
	for _, run := range m.runs {
		if run.AgentID().Equals(agentID) && run.IsRunning() {
			return run, nil
		}
	}
	return nil, analysis.NewRunNotFoundError(agentID.String())
}

func (m *mockRunRepo) GetLastCompletedByAgent(_ context.Context, agentID shared.ID) (*analysis.Run, error) {
	var last *analysis.Run
	for _, run := range m.runs {
		if !run.AgentID().Equals(agentID) || run.State() != analysis.StateCompleted {
			continue
		}
		if last == nil || run.CompletedAt().After(*last.CompletedAt()) {
			last = run
		}
	}
	if last == nil {
		return nil, analysis.NewRunNotFoundError(agentID.String())
	}
	return last, nil
}

func (m *mockRunRepo) Update(_ context.Context, run *analysis.Run) error {
	m.runs[run.ID().String()] = run
	return nil
}

// mockSessionRepo implements agentsession.Repository in memory.
type mockSessionRepo struct {
	sessions map[string]*agentsession.Session
	analyzed []string
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*agentsession.Session)}
}

func (m *mockSessionRepo) add(s *agentsession.Session) {
	m.sessions[s.ID().String()] = s
}

func (m *mockSessionRepo) Create(_ context.Context, s *agentsession.Session) error {
	m.add(s)
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id shared.ID) (*agentsession.Session, error) {
	s, ok := m.sessions[id.String()]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", shared.ErrNotFound, id.String())
	}
	return s, nil
}

func (m *mockSessionRepo) Update(_ context.Context, s *agentsession.Session) error {
	m.add(s)
	return nil
}

func (m *mockSessionRepo) ListUnanalyzedByAgent(_ context.Context, agentID shared.ID, batchSize int) ([]*agentsession.Session, error) {
	var out []*agentsession.Session
	for _, s := range m.sessions {
		if s.AgentID().Equals(agentID) && !s.IsAnalyzed() {
			out = append(out, s)
		}
		if batchSize > 0 && len(out) >= batchSize {
			break
		}
	}
	return out, nil
}

func (m *mockSessionRepo) ListAgentsWithUnanalyzed(_ context.Context) ([]shared.ID, error) {
	seen := make(map[string]shared.ID)
	for _, s := range m.sessions {
		if !s.IsAnalyzed() {
			seen[s.AgentID().String()] = s.AgentID()
		}
	}
	out := make([]shared.ID, 0, len(seen))
	for _, id := range seen {
		out = append(out, id)
	}
	return out, nil
}

func (m *mockSessionRepo) CountsByAgent(_ context.Context, agentID shared.ID) (agentsession.Counts, error) {
	var counts agentsession.Counts
	for _, s := range m.sessions {
		if !s.AgentID().Equals(agentID) {
			continue
		}
		if s.IsActive() {
			counts.Active++
		}
		if !s.IsAnalyzed() {
			counts.Unanalyzed++
		}
	}
	return counts, nil
}

func (m *mockSessionRepo) MarkAnalyzed(_ context.Context, ids []shared.ID) (int64, error) {
	var n int64
	for _, id := range ids {
		if s, ok := m.sessions[id.String()]; ok {
			s.MarkAnalyzed()
			m.analyzed = append(m.analyzed, id.String())
			n++
		}
	}
	return n, nil
}

// mockEnqueuer records enqueued runs.
type mockEnqueuer struct {
	enqueued []string
	err      error
}

func (m *mockEnqueuer) EnqueueAnalysisRun(_ context.Context, runID, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, runID)
	return nil
}

// mockAnalyzer returns canned findings.
type mockAnalyzer struct {
	findings []Finding
	err      error
}

func (m *mockAnalyzer) Analyze(_ context.Context, _ *agentsession.Session) ([]Finding, error) {
	return m.findings, m.err
}

func newTestAnalysisService(runRepo *mockRunRepo, sessionRepo *mockSessionRepo, enqueuer *mockEnqueuer) *AnalysisService {
	return NewAnalysisService(runRepo, sessionRepo, nil, &mockAnalyzer{}, enqueuer, nil, 100, logger.NewNop())
}

func addUnanalyzedSession(t *testing.T, repo *mockSessionRepo, agentID shared.ID) *agentsession.Session {
	t.Helper()
	s, err := agentsession.NewSession(agentID)
	require.NoError(t, err)
	repo.add(s)
	return s
}

func TestAnalysisService_Trigger(t *testing.T) {
	ctx := context.Background()

	t.Run("triggered when unanalyzed sessions exist", func(t *testing.T) {
		runRepo := newMockRunRepo()
		sessionRepo := newMockSessionRepo()
		enqueuer := &mockEnqueuer{}
		agentID := shared.NewID()
		addUnanalyzedSession(t, sessionRepo, agentID)

		svc := newTestAnalysisService(runRepo, sessionRepo, enqueuer)

		result, err := svc.Trigger(ctx, agentID.String())

		require.NoError(t, err)
		assert.Equal(t, analysis.OutcomeTriggered, result.Outcome)
		assert.Len(t, enqueuer.enqueued, 1)
		require.NotNil(t, result.Status)
		assert.True(t, result.Status.IsRunning)
		assert.Equal(t, 1, result.Status.TotalUnanalyzedSessions)
	})

	t.Run("already_running when a run is in flight", func(t *testing.T) {
		runRepo := newMockRunRepo()
		sessionRepo := newMockSessionRepo()
		enqueuer := &mockEnqueuer{}
		agentID := shared.NewID()
		addUnanalyzedSession(t, sessionRepo, agentID)

		active, err := analysis.NewRun(agentID)
		require.NoError(t, err)
		require.NoError(t, runRepo.Create(ctx, active))

		svc := newTestAnalysisService(runRepo, sessionRepo, enqueuer)

		result, err := svc.Trigger(ctx, agentID.String())

		require.NoError(t, err)
		assert.Equal(t, analysis.OutcomeAlreadyRunning, result.Outcome)
		assert.Empty(t, enqueuer.enqueued, "no new run may be enqueued")
		assert.False(t, result.Outcome.StartsPolling())
	})

	t.Run("no_new_sessions when nothing to analyze", func(t *testing.T) {
		runRepo := newMockRunRepo()
		sessionRepo := newMockSessionRepo()
		enqueuer := &mockEnqueuer{}
		agentID := shared.NewID()

		svc := newTestAnalysisService(runRepo, sessionRepo, enqueuer)

		result, err := svc.Trigger(ctx, agentID.String())

		require.NoError(t, err)
		assert.Equal(t, analysis.OutcomeNoNewSessions, result.Outcome)
		assert.Empty(t, enqueuer.enqueued)
		assert.Empty(t, runRepo.runs, "no run row may be created")
	})

	t.Run("duplicate trigger settles on already_running", func(t *testing.T) {
		runRepo := newMockRunRepo()
		sessionRepo := newMockSessionRepo()
		enqueuer := &mockEnqueuer{}
		agentID := shared.NewID()
		addUnanalyzedSession(t, sessionRepo, agentID)

		svc := newTestAnalysisService(runRepo, sessionRepo, enqueuer)

		first, err := svc.Trigger(ctx, agentID.String())
		require.NoError(t, err)
		require.Equal(t, analysis.OutcomeTriggered, first.Outcome)

		second, err := svc.Trigger(ctx, agentID.String())
		require.NoError(t, err)
		assert.Equal(t, analysis.OutcomeAlreadyRunning, second.Outcome)
		assert.Len(t, enqueuer.enqueued, 1, "exactly one run enqueued")
	})

	t.Run("in-memory guard refuses while slot is held", func(t *testing.T) {
		runRepo := newMockRunRepo()
		sessionRepo := newMockSessionRepo()
		agentID := shared.NewID()
		addUnanalyzedSession(t, sessionRepo, agentID)

		svc := newTestAnalysisService(runRepo, sessionRepo, &mockEnqueuer{})

		require.True(t, svc.tryAcquire(agentID))
		assert.True(t, svc.IsAnalysisActive(agentID))

		result, err := svc.Trigger(ctx, agentID.String())
		require.NoError(t, err)
		assert.Equal(t, analysis.OutcomeAlreadyRunning, result.Outcome)

		svc.release(agentID)
		assert.False(t, svc.IsAnalysisActive(agentID))
	})

	t.Run("enqueue failure marks the run failed", func(t *testing.T) {
		runRepo := newMockRunRepo()
		sessionRepo := newMockSessionRepo()
		enqueuer := &mockEnqueuer{err: errors.New("queue unavailable")}
		agentID := shared.NewID()
		addUnanalyzedSession(t, sessionRepo, agentID)

		svc := newTestAnalysisService(runRepo, sessionRepo, enqueuer)

		_, err := svc.Trigger(ctx, agentID.String())

		require.Error(t, err)
		require.Len(t, runRepo.runs, 1)
		for _, run := range runRepo.runs {
			assert.Equal(t, analysis.StateFailed, run.State())
		}
		assert.False(t, svc.IsAnalysisActive(agentID), "guard must be released on failure")
	})

	t.Run("invalid agent ID", func(t *testing.T) {
		svc := newTestAnalysisService(newMockRunRepo(), newMockSessionRepo(), &mockEnqueuer{})

		_, err := svc.Trigger(ctx, "not-a-uuid")

		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestAnalysisService_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("idle agent with unanalyzed sessions can trigger", func(t *testing.T) {
		runRepo := newMockRunRepo()
		sessionRepo := newMockSessionRepo()
		agentID := shared.NewID()
		addUnanalyzedSession(t, sessionRepo, agentID)

		svc := newTestAnalysisService(runRepo, sessionRepo, &mockEnqueuer{})

		snapshot, err := svc.Status(ctx, agentID)

		require.NoError(t, err)
		assert.False(t, snapshot.IsRunning)
		assert.True(t, snapshot.CanTrigger)
		assert.Equal(t, 1, snapshot.TotalUnanalyzedSessions)
		assert.Nil(t, snapshot.LastAnalysis)
	})

	t.Run("running agent cannot trigger", func(t *testing.T) {
		runRepo := newMockRunRepo()
		sessionRepo := newMockSessionRepo()
		agentID := shared.NewID()
		addUnanalyzedSession(t, sessionRepo, agentID)

		run, err := analysis.NewRun(agentID)
		require.NoError(t, err)
		require.NoError(t, runRepo.Create(ctx, run))

		svc := newTestAnalysisService(runRepo, sessionRepo, &mockEnqueuer{})

		snapshot, err := svc.Status(ctx, agentID)

		require.NoError(t, err)
		assert.True(t, snapshot.IsRunning)
		assert.False(t, snapshot.CanTrigger)
	})

	t.Run("includes last completed analysis", func(t *testing.T) {
		runRepo := newMockRunRepo()
		sessionRepo := newMockSessionRepo()
		agentID := shared.NewID()

		run, err := analysis.NewRun(agentID)
		require.NoError(t, err)
		require.NoError(t, run.Start())
		require.NoError(t, run.Complete(5))
		require.NoError(t, runRepo.Create(ctx, run))

		svc := newTestAnalysisService(runRepo, sessionRepo, &mockEnqueuer{})

		snapshot, err := svc.Status(ctx, agentID)

		require.NoError(t, err)
		require.NotNil(t, snapshot.LastAnalysis)
		assert.Equal(t, 5, snapshot.LastAnalysis.SessionsAnalyzed)
		assert.False(t, snapshot.CanTrigger, "no unanalyzed sessions left")
	})
}

func TestAnalysisService_ProcessRun(t *testing.T) {
	ctx := context.Background()

	t.Run("completes run and marks sessions analyzed", func(t *testing.T) {
		runRepo := newMockRunRepo()
		sessionRepo := newMockSessionRepo()
		agentID := shared.NewID()
		session := addUnanalyzedSession(t, sessionRepo, agentID)

		run, err := analysis.NewRun(agentID)
		require.NoError(t, err)
		require.NoError(t, runRepo.Create(ctx, run))

		svc := newTestAnalysisService(runRepo, sessionRepo, &mockEnqueuer{})

		err = svc.ProcessRun(ctx, run.ID().String(), agentID.String())

		require.NoError(t, err)
		assert.Equal(t, analysis.StateCompleted, run.State())
		assert.Equal(t, 1, run.SessionsAnalyzed())
		assert.Contains(t, sessionRepo.analyzed, session.ID().String())
	})

	t.Run("analyzer failure fails the run", func(t *testing.T) {
		runRepo := newMockRunRepo()
		sessionRepo := newMockSessionRepo()
		agentID := shared.NewID()
		addUnanalyzedSession(t, sessionRepo, agentID)

		run, err := analysis.NewRun(agentID)
		require.NoError(t, err)
		require.NoError(t, runRepo.Create(ctx, run))

		svc := NewAnalysisService(runRepo, sessionRepo, nil,
			&mockAnalyzer{err: errors.New("analyzer crashed")},
			&mockEnqueuer{}, nil, 100, logger.NewNop())

		err = svc.ProcessRun(ctx, run.ID().String(), agentID.String())

		require.Error(t, err)
		assert.Equal(t, analysis.StateFailed, run.State())
		assert.Contains(t, run.ErrorMessage(), "analyzer crashed")
	})

	t.Run("unknown run ID", func(t *testing.T) {
		svc := newTestAnalysisService(newMockRunRepo(), newMockSessionRepo(), &mockEnqueuer{})

		err := svc.ProcessRun(ctx, shared.NewID().String(), shared.NewID().String())

		assert.True(t, analysis.IsRunNotFound(err))
	})
}

func TestRuleAnalyzer(t *testing.T) {
	ctx := context.Background()

	t.Run("short session yields no findings", func(t *testing.T) {
		analyzer := NewRuleAnalyzer()
		session, err := agentsession.NewSession(shared.NewID())
		require.NoError(t, err)

		findings, err := analyzer.Analyze(ctx, session)

		require.NoError(t, err)
		assert.Empty(t, findings)
	})

	t.Run("overlong session is flagged", func(t *testing.T) {
		analyzer := NewRuleAnalyzer()
		now := time.Now().UTC()
		started := now.Add(-6 * time.Hour)
		ended := now
		session := agentsession.Reconstitute(
			shared.NewID(), shared.NewID(), false, nil, started, &ended, started, now)

		findings, err := analyzer.Analyze(ctx, session)

		require.NoError(t, err)
		require.Len(t, findings, 1)
		assert.Equal(t, "rate_abuse", findings[0].Category)
		assert.Equal(t, recommendation.SeverityMedium, findings[0].Severity)
	})
}
