package main

import (
	"github.com/agentshield/api/internal/infra/http/handler"
	"github.com/agentshield/api/internal/infra/http/routes"
	"github.com/agentshield/api/internal/infra/postgres"
	"github.com/agentshield/api/internal/infra/redis"
	"github.com/agentshield/api/pkg/logger"
	"github.com/agentshield/api/pkg/validator"
)

// HandlerDeps contains dependencies needed to create handlers.
type HandlerDeps struct {
	Log         *logger.Logger
	Validator   *validator.Validator
	DB          *postgres.DB
	RedisClient *redis.Client
	Services    *Services
}

// NewHandlers initializes all HTTP handlers.
func NewHandlers(deps *HandlerDeps) routes.Handlers {
	log := deps.Log
	svc := deps.Services

	return routes.Handlers{
		Health: handler.NewHealthHandler(
			handler.WithDatabase(deps.DB),
			handler.WithRedis(deps.RedisClient),
		),
		Recommendation: handler.NewRecommendationHandler(svc.Recommendation, deps.Validator, log),
		Gate:           handler.NewGateHandler(svc.Gate, log),
		Audit:          handler.NewAuditHandler(svc.Audit, log),
		Analysis:       handler.NewAnalysisHandler(svc.Analysis, log),
		Session:        handler.NewSessionHandler(svc.Session, log),
	}
}
