package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agentshield/api/internal/infra/controller"
	"github.com/agentshield/api/internal/infra/redis"
	"github.com/agentshield/api/pkg/domain/agentsession"
	"github.com/agentshield/api/pkg/domain/analysis"
	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/logger"
)

// AnalysisJobEnqueuer submits a dynamic analysis run to the job queue.
type AnalysisJobEnqueuer interface {
	EnqueueAnalysisRun(ctx context.Context, runID, agentID string) error
}

// AnalysisMetrics records trigger and run activity. Optional.
type AnalysisMetrics interface {
	IncTrigger(outcome string)
	ObserveRunDuration(d time.Duration)
}

// TriggerResult is the outcome of a trigger request plus the status snapshot
// taken right after it was decided.
type TriggerResult struct {
	Outcome analysis.TriggerOutcome
	Status  *analysis.StatusSnapshot
}

// AnalysisService owns the dynamic analysis lifecycle for agents: deciding
// trigger outcomes, executing queued runs, and publishing the status snapshot
// the dashboard polls.
//
// At most one analysis per agent is in flight at a time. The in-memory guard
// makes a duplicate trigger (a double click, a retried request) settle on
// already_running before any run is created; the storage layer backs it up
// with a uniqueness constraint on active runs.
type AnalysisService struct {
	runRepo     analysis.Repository
	sessionRepo agentsession.Repository
	recService  *RecommendationService
	analyzer    SessionAnalyzer
	enqueuer    AnalysisJobEnqueuer
	statusCache *redis.Cache[analysis.StatusSnapshot]
	poller      *controller.Poller
	metrics     AnalysisMetrics
	logger      *logger.Logger

	batchSize int

	mu     sync.Mutex
	active map[string]*controller.PollHandle // agentID -> poll loop, nil while trigger is settling
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(
	runRepo analysis.Repository,
	sessionRepo agentsession.Repository,
	recService *RecommendationService,
	analyzer SessionAnalyzer,
	enqueuer AnalysisJobEnqueuer,
	statusCache *redis.Cache[analysis.StatusSnapshot],
	batchSize int,
	log *logger.Logger,
) *AnalysisService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &AnalysisService{
		runRepo:     runRepo,
		sessionRepo: sessionRepo,
		recService:  recService,
		analyzer:    analyzer,
		enqueuer:    enqueuer,
		statusCache: statusCache,
		batchSize:   batchSize,
		logger:      log.With("service", "analysis"),
		active:      make(map[string]*controller.PollHandle),
	}
}

// SetPoller wires the bounded status poll loop started on a successful
// trigger. Without a poller, triggered runs still execute; only the follow-up
// polling is skipped.
func (s *AnalysisService) SetPoller(poller *controller.Poller) {
	s.poller = poller
}

// SetMetrics wires analysis metrics.
func (s *AnalysisService) SetMetrics(metrics AnalysisMetrics) {
	s.metrics = metrics
}

// SetEnqueuer wires the job queue client used to submit runs.
func (s *AnalysisService) SetEnqueuer(enqueuer AnalysisJobEnqueuer) {
	s.enqueuer = enqueuer
}

// Trigger requests a dynamic analysis for an agent.
//
// Exactly one of three outcomes comes back, and only triggered opens a poll
// loop. The two no-op outcomes are not errors: the snapshot in the result is
// the single status refresh they are allowed.
func (s *AnalysisService) Trigger(ctx context.Context, agentID string) (*TriggerResult, error) {
	aID, err := shared.IDFromString(agentID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid agent ID", shared.ErrValidation)
	}

	if !s.tryAcquire(aID) {
		return s.settle(ctx, aID, analysis.OutcomeAlreadyRunning)
	}

	// Holding the guard now; every return path below either keeps it for
	// the poll loop or releases it.

	if _, err := s.runRepo.GetActiveByAgent(ctx, aID); err == nil {
		s.release(aID)
		return s.settle(ctx, aID, analysis.OutcomeAlreadyRunning)
	} else if !analysis.IsRunNotFound(err) {
		s.release(aID)
		return nil, fmt.Errorf("failed to check active run: %w", err)
	}

	counts, err := s.sessionRepo.CountsByAgent(ctx, aID)
	if err != nil {
		s.release(aID)
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	if counts.Unanalyzed == 0 {
		s.release(aID)
		return s.settle(ctx, aID, analysis.OutcomeNoNewSessions)
	}

	run, err := analysis.NewRun(aID)
	if err != nil {
		s.release(aID)
		return nil, err
	}

	if err := s.runRepo.Create(ctx, run); err != nil {
		s.release(aID)
		if analysis.IsTriggerConflict(err) {
			return s.settle(ctx, aID, analysis.OutcomeAlreadyRunning)
		}
		return nil, fmt.Errorf("failed to create analysis run: %w", err)
	}

	if err := s.enqueuer.EnqueueAnalysisRun(ctx, run.ID().String(), aID.String()); err != nil {
		if failErr := run.Fail("failed to enqueue analysis job"); failErr == nil {
			if updErr := s.runRepo.Update(ctx, run); updErr != nil {
				s.logger.Error("failed to mark run as failed", "run_id", run.ID().String(), "error", updErr)
			}
		}
		s.release(aID)
		return nil, fmt.Errorf("failed to enqueue analysis run: %w", err)
	}

	s.startPolling(ctx, aID)

	if s.metrics != nil {
		s.metrics.IncTrigger(analysis.OutcomeTriggered.String())
	}

	s.logger.Info("analysis triggered",
		"agent_id", aID.String(),
		"run_id", run.ID().String(),
		"unanalyzed_sessions", counts.Unanalyzed,
	)

	snapshot, err := s.Status(ctx, aID)
	if err != nil {
		return nil, err
	}
	return &TriggerResult{Outcome: analysis.OutcomeTriggered, Status: snapshot}, nil
}

// settle finishes a no-op trigger: record the outcome and refresh status once.
func (s *AnalysisService) settle(ctx context.Context, agentID shared.ID, outcome analysis.TriggerOutcome) (*TriggerResult, error) {
	if s.metrics != nil {
		s.metrics.IncTrigger(outcome.String())
	}

	snapshot, err := s.Status(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return &TriggerResult{Outcome: outcome, Status: snapshot}, nil
}

// startPolling opens the bounded poll loop and keeps the guard held until
// the loop exits, for any reason. The normal-completion callback publishes
// one final status refresh; cancellation and cap exhaustion do not.
func (s *AnalysisService) startPolling(ctx context.Context, agentID shared.ID) {
	if s.poller == nil {
		s.release(agentID)
		return
	}

	// The loop must outlive the trigger request.
	pollCtx := context.WithoutCancel(ctx)

	handle := s.poller.Start(pollCtx, agentID, func(cbCtx context.Context) {
		if err := s.RefreshStatus(cbCtx, agentID); err != nil {
			s.logger.Warn("post-completion status refresh failed",
				"agent_id", agentID.String(),
				"error", err,
			)
		}
	})

	s.mu.Lock()
	s.active[agentID.String()] = handle
	s.mu.Unlock()

	go func() {
		handle.Wait()
		s.release(agentID)
	}()
}

// tryAcquire claims the agent's single analysis slot. Returns false if a
// trigger or poll loop already holds it.
func (s *AnalysisService) tryAcquire(agentID shared.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.active[agentID.String()]; held {
		return false
	}
	s.active[agentID.String()] = nil
	return true
}

func (s *AnalysisService) release(agentID shared.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, agentID.String())
}

// IsAnalysisActive reports whether a trigger or poll loop currently owns the
// agent's analysis slot. The idle session watcher checks this before
// refreshing, so the slow and fast loops never interleave.
func (s *AnalysisService) IsAnalysisActive(agentID shared.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, held := s.active[agentID.String()]
	return held
}

// Close cancels all running poll loops and waits for them to exit.
func (s *AnalysisService) Close() {
	s.mu.Lock()
	handles := make([]*controller.PollHandle, 0, len(s.active))
	for _, h := range s.active {
		if h != nil {
			handles = append(handles, h)
		}
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
		h.Wait()
	}
}

// Status computes the live status snapshot for an agent. Implements
// analysis.StatusSource for the poll loop and the watcher.
func (s *AnalysisService) Status(ctx context.Context, agentID shared.ID) (*analysis.StatusSnapshot, error) {
	var isRunning bool
	_, err := s.runRepo.GetActiveByAgent(ctx, agentID)
	switch {
	case err == nil:
		isRunning = true
	case analysis.IsRunNotFound(err):
		isRunning = false
	default:
		return nil, fmt.Errorf("failed to check active run: %w", err)
	}

	counts, err := s.sessionRepo.CountsByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	var last *analysis.LastAnalysis
	lastRun, err := s.runRepo.GetLastCompletedByAgent(ctx, agentID)
	switch {
	case err == nil:
		if lastRun.CompletedAt() != nil {
			last = &analysis.LastAnalysis{
				CompletedAt:      *lastRun.CompletedAt(),
				SessionsAnalyzed: lastRun.SessionsAnalyzed(),
			}
		}
	case analysis.IsRunNotFound(err):
		// Never analyzed; leave last nil.
	default:
		return nil, fmt.Errorf("failed to load last completed run: %w", err)
	}

	return &analysis.StatusSnapshot{
		AgentID:                 agentID.String(),
		IsRunning:               isRunning,
		TotalUnanalyzedSessions: counts.Unanalyzed,
		TotalActiveSessions:     counts.Active,
		LastAnalysis:            last,
		CanTrigger:              !isRunning && counts.Unanalyzed > 0,
	}, nil
}

// GetStatus computes the snapshot for an agent ID string and republishes it.
func (s *AnalysisService) GetStatus(ctx context.Context, agentID string) (*analysis.StatusSnapshot, error) {
	aID, err := shared.IDFromString(agentID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid agent ID", shared.ErrValidation)
	}

	snapshot, err := s.Status(ctx, aID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, aID, snapshot)
	return snapshot, nil
}

// RefreshStatus recomputes and republishes the snapshot for an agent.
// Called by the poll loop on natural completion and by the idle watcher.
func (s *AnalysisService) RefreshStatus(ctx context.Context, agentID shared.ID) error {
	snapshot, err := s.Status(ctx, agentID)
	if err != nil {
		return err
	}
	s.publish(ctx, agentID, snapshot)
	return nil
}

func (s *AnalysisService) publish(ctx context.Context, agentID shared.ID, snapshot *analysis.StatusSnapshot) {
	if s.statusCache == nil {
		return
	}
	if err := s.statusCache.Set(ctx, agentID.String(), *snapshot); err != nil {
		s.logger.Warn("failed to publish status snapshot",
			"agent_id", agentID.String(),
			"error", err,
		)
	}
}

// ProcessRun executes a queued dynamic analysis run end to end. Implements
// the job worker's analysis processor.
func (s *AnalysisService) ProcessRun(ctx context.Context, runID, agentID string) error {
	rID, err := shared.IDFromString(runID)
	if err != nil {
		return fmt.Errorf("%w: invalid run ID", shared.ErrValidation)
	}
	aID, err := shared.IDFromString(agentID)
	if err != nil {
		return fmt.Errorf("%w: invalid agent ID", shared.ErrValidation)
	}

	run, err := s.runRepo.GetByID(ctx, rID)
	if err != nil {
		return err
	}

	if err := run.Start(); err != nil {
		return err
	}
	if err := s.runRepo.Update(ctx, run); err != nil {
		return err
	}
	start := time.Now()

	analyzed, err := s.executeRun(ctx, aID)
	if err != nil {
		if failErr := run.Fail(err.Error()); failErr != nil {
			s.logger.Error("failed to mark run as failed", "run_id", runID, "error", failErr)
		} else if updErr := s.runRepo.Update(ctx, run); updErr != nil {
			s.logger.Error("failed to persist failed run", "run_id", runID, "error", updErr)
		}
		return err
	}

	if err := run.Complete(analyzed); err != nil {
		return err
	}
	if err := s.runRepo.Update(ctx, run); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.ObserveRunDuration(time.Since(start))
	}

	s.logger.Info("analysis run finished",
		"run_id", runID,
		"agent_id", agentID,
		"sessions_analyzed", analyzed,
	)
	return nil
}

// executeRun analyzes the agent's unanalyzed sessions and emits dynamic
// recommendations for every finding.
func (s *AnalysisService) executeRun(ctx context.Context, agentID shared.ID) (int, error) {
	sessions, err := s.sessionRepo.ListUnanalyzedByAgent(ctx, agentID, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list unanalyzed sessions: %w", err)
	}

	sessionIDs := make([]shared.ID, 0, len(sessions))
	for _, session := range sessions {
		findings, err := s.analyzer.Analyze(ctx, session)
		if err != nil {
			return 0, fmt.Errorf("failed to analyze session %s: %w", session.ID().String(), err)
		}

		for _, finding := range findings {
			_, err := s.recService.CreateRecommendation(ctx, CreateRecommendationInput{
				WorkflowID:  agentID.String(),
				SourceType:  "dynamic",
				Severity:    finding.Severity.String(),
				Category:    finding.Category,
				Title:       finding.Title,
				Description: finding.Description,
			})
			if err != nil && !errors.Is(err, shared.ErrAlreadyExists) {
				return 0, fmt.Errorf("failed to create recommendation: %w", err)
			}
		}

		sessionIDs = append(sessionIDs, session.ID())
	}

	if _, err := s.sessionRepo.MarkAnalyzed(ctx, sessionIDs); err != nil {
		return 0, fmt.Errorf("failed to mark sessions analyzed: %w", err)
	}

	return len(sessions), nil
}
