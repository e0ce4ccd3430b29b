package main

import (
	"context"

	"github.com/agentshield/api/internal/config"
	"github.com/agentshield/api/internal/infra/controller"
	"github.com/agentshield/api/internal/infra/jobs"
	"github.com/agentshield/api/internal/metrics"
	"github.com/agentshield/api/pkg/logger"
)

// Workers holds all background worker instances.
type Workers struct {
	JobWorker         *jobs.Worker
	ControllerManager *controller.Manager
}

// WorkerDeps contains dependencies needed to create workers.
type WorkerDeps struct {
	Config   *config.Config
	Log      *logger.Logger
	Repos    *Repositories
	Services *Services
	Metrics  *metrics.Metrics
}

// NewWorkers initializes the job worker and the controller manager.
func NewWorkers(deps *WorkerDeps) (*Workers, error) {
	cfg := deps.Config
	log := deps.Log
	repos := deps.Repos
	svc := deps.Services

	w := &Workers{}

	jobWorker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		Concurrency:   cfg.Worker.Concurrency,
	}, svc.Analysis, log)
	if err != nil {
		return nil, err
	}
	w.JobWorker = jobWorker

	var ctrlMetrics controller.Metrics
	if deps.Metrics != nil {
		ctrlMetrics = deps.Metrics
	}

	manager := controller.NewManager(&controller.ManagerConfig{
		Metrics: ctrlMetrics,
		Logger:  log,
	})

	manager.Register(controller.NewSessionWatcherController(
		repos.Session,
		svc.Analysis,
		&controller.SessionWatcherControllerConfig{
			Interval: cfg.Analysis.WatcherInterval,
			Logger:   log,
		},
	))

	manager.Register(controller.NewAuditRetentionController(
		repos.Audit,
		&controller.AuditRetentionControllerConfig{
			Interval:  cfg.Audit.RetentionInterval,
			Retention: cfg.Audit.Retention,
			Logger:    log,
		},
	))

	w.ControllerManager = manager

	return w, nil
}

// Start launches all workers.
func (w *Workers) Start(ctx context.Context, log *logger.Logger) error {
	if err := w.JobWorker.Start(); err != nil {
		return err
	}
	log.Info("job worker started")

	if err := w.ControllerManager.Start(ctx); err != nil {
		return err
	}
	log.Info("controller manager started")

	return nil
}

// Stop stops all workers.
func (w *Workers) Stop(log *logger.Logger) {
	if err := w.ControllerManager.Stop(); err != nil {
		log.Error("failed to stop controller manager", "error", err)
	} else {
		log.Info("controller manager stopped")
	}

	w.JobWorker.Stop()
	log.Info("job worker stopped")
}
