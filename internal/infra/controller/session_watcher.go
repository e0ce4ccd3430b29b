package controller

import (
	"context"
	"time"

	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/logger"
)

// UnanalyzedLister finds agents that have accumulated unanalyzed sessions.
type UnanalyzedLister interface {
	ListAgentsWithUnanalyzed(ctx context.Context) ([]shared.ID, error)
}

// StatusRefresher recomputes and republishes an agent's analysis status.
// IsAnalysisActive reports whether a trigger or poll loop currently owns the
// agent's status; the watcher stays silent for those agents so the two loops
// never interleave refreshes.
type StatusRefresher interface {
	RefreshStatus(ctx context.Context, agentID shared.ID) error
	IsAnalysisActive(agentID shared.ID) bool
}

// SessionWatcherControllerConfig configures the SessionWatcherController.
type SessionWatcherControllerConfig struct {
	// Interval is how often to check for newly arrived sessions.
	// Default: 10 seconds.
	Interval time.Duration

	// Logger for logging.
	Logger *logger.Logger
}

// SessionWatcherController is the slow idle loop behind the analysis status
// view. While nothing is in flight it periodically refreshes the status of
// agents with unanalyzed sessions, so newly recorded sessions show up without
// a trigger. Agents with an active trigger or poll loop are skipped.
type SessionWatcherController struct {
	sessions  UnanalyzedLister
	refresher StatusRefresher
	config    *SessionWatcherControllerConfig
	logger    *logger.Logger
}

// NewSessionWatcherController creates a new SessionWatcherController.
func NewSessionWatcherController(
	sessions UnanalyzedLister,
	refresher StatusRefresher,
	config *SessionWatcherControllerConfig,
) *SessionWatcherController {
	if config == nil {
		config = &SessionWatcherControllerConfig{}
	}
	if config.Interval == 0 {
		config.Interval = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = logger.NewNop()
	}

	return &SessionWatcherController{
		sessions:  sessions,
		refresher: refresher,
		config:    config,
		logger:    config.Logger,
	}
}

// Name returns the controller name.
func (c *SessionWatcherController) Name() string {
	return "session-watcher"
}

// Interval returns the reconciliation interval.
func (c *SessionWatcherController) Interval() time.Duration {
	return c.config.Interval
}

// Reconcile refreshes analysis status for idle agents with unanalyzed sessions.
func (c *SessionWatcherController) Reconcile(ctx context.Context) (int, error) {
	agentIDs, err := c.sessions.ListAgentsWithUnanalyzed(ctx)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, agentID := range agentIDs {
		if c.refresher.IsAnalysisActive(agentID) {
			// The fast poll loop owns this agent's status right now.
			continue
		}

		if err := c.refresher.RefreshStatus(ctx, agentID); err != nil {
			c.logger.Warn("failed to refresh analysis status",
				"agent_id", agentID.String(),
				"error", err,
			)
			continue
		}
		refreshed++
	}

	return refreshed, nil
}
