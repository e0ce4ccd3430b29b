package controller

import (
	"context"
	"time"

	"github.com/agentshield/api/pkg/domain/analysis"
	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/logger"
)

// PollerConfig configures the analysis status poller.
type PollerConfig struct {
	// Interval is the fixed time between status polls.
	// Default: 2 seconds.
	Interval time.Duration

	// MaxTicks caps the poll loop. The loop never outlives
	// Interval * MaxTicks even if the analysis never reports completion.
	// Default: 60.
	MaxTicks int
}

// PollMetrics records poll activity. Optional.
type PollMetrics interface {
	IncPollTick()
}

// Poller runs the bounded status poll loop that follows a successful
// analysis trigger. One Start call owns one loop; the returned handle
// cancels it.
type Poller struct {
	source  analysis.StatusSource
	cfg     PollerConfig
	logger  *logger.Logger
	metrics PollMetrics
}

// NewPoller creates a new Poller.
func NewPoller(source analysis.StatusSource, cfg PollerConfig, log *logger.Logger, metrics PollMetrics) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.MaxTicks <= 0 {
		cfg.MaxTicks = 60
	}
	return &Poller{
		source:  source,
		cfg:     cfg,
		logger:  log.With("component", "analysis_poller"),
		metrics: metrics,
	}
}

// PollHandle controls a running poll loop.
type PollHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops the loop. The pending completion callback is dropped:
// a cancelled loop never fires it.
func (h *PollHandle) Cancel() {
	h.cancel()
}

// Done returns a channel closed when the loop has fully exited.
func (h *PollHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the loop has fully exited.
func (h *PollHandle) Wait() {
	<-h.done
}

// Start launches a poll loop for the agent. onComplete fires exactly once,
// and only when the analysis is observed to have finished naturally; it never
// fires on cancellation or when the tick cap is exhausted.
func (p *Poller) Start(ctx context.Context, agentID shared.ID, onComplete func(ctx context.Context)) *PollHandle {
	pollCtx, cancel := context.WithCancel(ctx)
	handle := &PollHandle{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go p.run(pollCtx, agentID, onComplete, handle)

	return handle
}

func (p *Poller) run(ctx context.Context, agentID shared.ID, onComplete func(ctx context.Context), handle *PollHandle) {
	defer close(handle.done)
	defer handle.cancel()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for tick := 1; tick <= p.cfg.MaxTicks; tick++ {
		select {
		case <-ctx.Done():
			p.logger.Debug("poll loop cancelled",
				"agent_id", agentID.String(),
				"ticks", tick-1,
			)
			return
		case <-ticker.C:
		}

		if p.metrics != nil {
			p.metrics.IncPollTick()
		}

		snapshot, err := p.source.Status(ctx, agentID)
		if err != nil {
			// A failed poll is not fatal; the tick still counts toward
			// the cap so errors cannot extend the loop.
			p.logger.Warn("status poll failed",
				"agent_id", agentID.String(),
				"tick", tick,
				"error", err,
			)
			continue
		}

		if !snapshot.IsRunning {
			p.logger.Info("analysis completed, stopping poll loop",
				"agent_id", agentID.String(),
				"ticks", tick,
			)
			if onComplete != nil {
				onComplete(ctx)
			}
			return
		}
	}

	p.logger.Warn("poll tick cap reached before analysis completion",
		"agent_id", agentID.String(),
		"max_ticks", p.cfg.MaxTicks,
	)
}
