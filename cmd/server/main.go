package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentshield/api/internal/config"
	"github.com/agentshield/api/internal/infra/controller"
	"github.com/agentshield/api/internal/infra/http"
	"github.com/agentshield/api/internal/infra/http/routes"
	"github.com/agentshield/api/internal/infra/jobs"
	"github.com/agentshield/api/internal/infra/postgres"
	"github.com/agentshield/api/internal/infra/redis"
	"github.com/agentshield/api/internal/metrics"
	"github.com/agentshield/api/pkg/domain/recommendation"
	"github.com/agentshield/api/pkg/logger"
	"github.com/agentshield/api/pkg/migrations"
	"github.com/agentshield/api/pkg/validator"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	// ==========================================================================
	// Configuration & Logger
	// ==========================================================================
	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault()
		log.Error("failed to load configuration", "error", err)
		return 1
	}

	log := initLogger(cfg)
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Env)

	m := metrics.New(cfg.App.Name)

	// ==========================================================================
	// Infrastructure
	// ==========================================================================
	db, err := postgres.New(&cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer closeWithLog(db, "database", log)
	log.Info("database connected")

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(db.DB, migrations.Files(), log)
		if err := runner.Up(ctx); err != nil {
			log.Error("failed to apply migrations", "error", err)
			return 1
		}
	}

	redisClient, err := redis.New(&cfg.Redis, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		return 1
	}
	defer closeWithLog(redisClient, "redis", log)
	log.Info("redis connected")

	// ==========================================================================
	// Category Catalog
	// ==========================================================================
	catalog, err := loadCatalog(cfg, log)
	if err != nil {
		log.Error("failed to load category catalog", "error", err)
		return 1
	}

	// ==========================================================================
	// Repositories & Services
	// ==========================================================================
	repos := NewRepositories(db)
	log.Info("repositories initialized")

	services, err := NewServices(&ServiceDeps{
		Config:      cfg,
		Log:         log,
		DB:          db.DB,
		Repos:       repos,
		RedisClient: redisClient,
		Metrics:     m,
	})
	if err != nil {
		log.Error("failed to initialize services", "error", err)
		return 1
	}
	log.Info("services initialized")

	// ==========================================================================
	// Job Queue
	// ==========================================================================
	jobClient, err := jobs.NewClient(jobs.ClientConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		log.Error("failed to initialize job client", "error", err)
		return 1
	}
	defer closeWithLog(jobClient, "job client", log)

	services.Analysis.SetEnqueuer(jobs.NewEnqueuerAdapter(jobClient))

	poller := controller.NewPoller(services.Analysis, controller.PollerConfig{
		Interval: cfg.Analysis.PollInterval,
		MaxTicks: cfg.Analysis.MaxPollTicks,
	}, log, m)
	services.Analysis.SetPoller(poller)
	defer services.Analysis.Close()

	// ==========================================================================
	// Handlers & HTTP Server
	// ==========================================================================
	handlers := NewHandlers(&HandlerDeps{
		Log:         log,
		Validator:   validator.NewWithCatalog(catalog),
		DB:          db,
		RedisClient: redisClient,
		Services:    services,
	})

	server := http.NewServer(cfg, log, m)
	routes.Register(server.Router(), handlers, m)

	// ==========================================================================
	// Workers
	// ==========================================================================
	workers, err := NewWorkers(&WorkerDeps{
		Config:   cfg,
		Log:      log,
		Repos:    repos,
		Services: services,
		Metrics:  m,
	})
	if err != nil {
		log.Error("failed to initialize workers", "error", err)
		return 1
	}

	if err := workers.Start(ctx, log); err != nil {
		log.Error("failed to start workers", "error", err)
		return 1
	}

	// ==========================================================================
	// Start Server
	// ==========================================================================
	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", "error", err)
		}
	}()
	log.Info("application started", "http_addr", cfg.Server.Addr())

	// ==========================================================================
	// Graceful Shutdown
	// ==========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	workers.Stop(log)

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return 1
	}

	log.Info("application stopped")
	return 0
}

// =============================================================================
// Helper Functions
// =============================================================================

func initLogger(cfg *config.Config) *logger.Logger {
	if cfg.IsDevelopment() {
		return logger.NewDevelopment()
	}
	return logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

func loadCatalog(cfg *config.Config, log *logger.Logger) (*recommendation.Catalog, error) {
	if cfg.App.CatalogPath == "" {
		return recommendation.DefaultCatalog(), nil
	}

	catalog, err := recommendation.LoadCatalog(cfg.App.CatalogPath)
	if err != nil {
		return nil, err
	}

	log.Info("category catalog loaded", "path", cfg.App.CatalogPath, "categories", len(catalog.Names()))
	return catalog, nil
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, name string, log *logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}
