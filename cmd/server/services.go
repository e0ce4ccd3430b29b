package main

import (
	"database/sql"
	"time"

	"github.com/agentshield/api/internal/app"
	"github.com/agentshield/api/internal/config"
	"github.com/agentshield/api/internal/infra/redis"
	"github.com/agentshield/api/internal/metrics"
	"github.com/agentshield/api/pkg/domain/analysis"
	"github.com/agentshield/api/pkg/domain/gate"
	"github.com/agentshield/api/pkg/logger"
)

// Services holds all application service instances.
type Services struct {
	Recommendation *app.RecommendationService
	Gate           *app.GateService
	Audit          *app.AuditService
	Analysis       *app.AnalysisService
	Session        *app.SessionService
}

// ServiceDeps contains dependencies needed to create services.
type ServiceDeps struct {
	Config      *config.Config
	Log         *logger.Logger
	DB          *sql.DB
	Repos       *Repositories
	RedisClient *redis.Client
	Metrics     *metrics.Metrics
}

// NewServices initializes all application services.
func NewServices(deps *ServiceDeps) (*Services, error) {
	cfg := deps.Config
	log := deps.Log
	repos := deps.Repos

	gateCache, err := redis.NewCache[gate.Status](deps.RedisClient, "gate_status", app.DefaultGateCacheTTL)
	if err != nil {
		return nil, err
	}

	statusCache, err := redis.NewCache[analysis.StatusSnapshot](deps.RedisClient, "analysis_status", 30*time.Second)
	if err != nil {
		return nil, err
	}

	s := &Services{}

	s.Recommendation = app.NewRecommendationService(repos.Recommendation, repos.Audit, deps.DB, log)
	s.Gate = app.NewGateService(repos.Recommendation, gateCache, log)
	s.Recommendation.SetGateService(s.Gate)

	s.Audit = app.NewAuditService(repos.Audit, log)

	s.Analysis = app.NewAnalysisService(
		repos.AnalysisRun,
		repos.Session,
		s.Recommendation,
		app.NewRuleAnalyzer(),
		nil, // enqueuer wired in main once the job client exists
		statusCache,
		cfg.Analysis.SessionBatchSize,
		log,
	)

	s.Session = app.NewSessionService(repos.Session, log)

	if deps.Metrics != nil {
		s.Recommendation.SetMetrics(deps.Metrics)
		s.Gate.SetMetrics(deps.Metrics)
		s.Analysis.SetMetrics(deps.Metrics)
	}

	return s, nil
}
