// Package controller implements reconciliation loop controllers for
// self-healing background operations.
//
// Each controller runs in its own goroutine and maintains one aspect of the
// system:
//   - SessionWatcherController: refreshes analysis status for agents that have
//     accumulated unanalyzed sessions while no analysis is in flight
//   - AuditRetentionController: prunes aged audit trail entries
//
// Controllers are independent and idempotent; one failing does not affect
// the others.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentshield/api/pkg/logger"
)

// Controller is one periodic reconciliation loop.
type Controller interface {
	// Name identifies the controller in logs and metrics.
	Name() string

	// Interval is the period between reconcile runs.
	Interval() time.Duration

	// Reconcile runs one pass. It must be idempotent and returns the
	// number of items it processed.
	Reconcile(ctx context.Context) (int, error)
}

// Metrics receives reconcile outcomes; nil disables collection.
type Metrics interface {
	RecordReconcile(controller string, itemsProcessed int, duration time.Duration, err error)
	SetControllerRunning(controller string, running bool)
	IncrementReconcileErrors(controller string)
	SetLastReconcileTime(controller string, t time.Time)
}

// Manager runs registered controllers, one goroutine each.
type Manager struct {
	controllers []Controller
	metrics     Metrics
	logger      *logger.Logger
	running     bool
	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
}

// ManagerConfig configures the controller manager. Metrics may be nil.
type ManagerConfig struct {
	Metrics Metrics
	Logger  *logger.Logger
}

// NewManager creates a controller manager.
func NewManager(cfg *ManagerConfig) *Manager {
	return &Manager{
		controllers: make([]Controller, 0),
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		stopCh:      make(chan struct{}),
	}
}

// Register adds a controller. Registration after Start is a bug.
func (m *Manager) Register(c Controller) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		panic("cannot register controllers while manager is running")
	}

	m.controllers = append(m.controllers, c)
	m.logger.Info("controller registered",
		"name", c.Name(),
		"interval", c.Interval().String(),
	)
}

// Start launches every registered controller. Each runs a reconcile
// immediately, then on its own interval.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("controller manager already running")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	m.logger.Info("starting controller manager",
		"controller_count", len(m.controllers),
	)

	for _, c := range m.controllers {
		m.wg.Add(1)
		go m.runController(ctx, c)
	}

	return nil
}

// Stop signals all controllers and waits for them to exit. Calling
// Stop on a stopped manager is a no-op.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.logger.Info("stopping controller manager")
	m.wg.Wait()
	m.logger.Info("controller manager stopped")
	return nil
}

// IsRunning reports whether Start has been called without a Stop.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) runController(ctx context.Context, c Controller) {
	defer m.wg.Done()

	name := c.Name()
	interval := c.Interval()

	m.logger.Info("starting controller", "name", name, "interval", interval)

	if m.metrics != nil {
		m.metrics.SetControllerRunning(name, true)
	}

	m.reconcileOnce(ctx, c)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("controller stopping (context canceled)", "name", name)
			if m.metrics != nil {
				m.metrics.SetControllerRunning(name, false)
			}
			return

		case <-m.stopCh:
			m.logger.Info("controller stopping (manager stopped)", "name", name)
			if m.metrics != nil {
				m.metrics.SetControllerRunning(name, false)
			}
			return

		case <-ticker.C:
			m.reconcileOnce(ctx, c)
		}
	}
}

// reconcileOnce runs one pass with a deadline of the controller's own
// interval, so a stuck pass cannot pile up behind the ticker.
func (m *Manager) reconcileOnce(ctx context.Context, c Controller) {
	name := c.Name()
	start := time.Now()

	reconcileCtx, cancel := context.WithTimeout(ctx, c.Interval())
	defer cancel()

	count, err := c.Reconcile(reconcileCtx)
	duration := time.Since(start)

	if err != nil {
		m.logger.Error("controller reconcile failed",
			"name", name,
			"duration", duration,
			"error", err,
		)
		if m.metrics != nil {
			m.metrics.IncrementReconcileErrors(name)
			m.metrics.RecordReconcile(name, count, duration, err)
		}
	} else {
		if count > 0 {
			m.logger.Info("controller reconcile completed",
				"name", name,
				"items_processed", count,
				"duration", duration,
			)
		} else {
			m.logger.Debug("controller reconcile completed (no items)",
				"name", name,
				"duration", duration,
			)
		}
		if m.metrics != nil {
			m.metrics.RecordReconcile(name, count, duration, nil)
		}
	}

	if m.metrics != nil {
		m.metrics.SetLastReconcileTime(name, time.Now())
	}
}
