package main

import (
	"github.com/agentshield/api/internal/infra/postgres"
)

// Repositories holds all repository instances.
type Repositories struct {
	Recommendation *postgres.RecommendationRepository
	Audit          *postgres.AuditRepository
	AnalysisRun    *postgres.AnalysisRepository
	Session        *postgres.SessionRepository
}

// NewRepositories initializes all repositories.
func NewRepositories(db *postgres.DB) *Repositories {
	return &Repositories{
		Recommendation: postgres.NewRecommendationRepository(db),
		Audit:          postgres.NewAuditRepository(db),
		AnalysisRun:    postgres.NewAnalysisRepository(db),
		Session:        postgres.NewSessionRepository(db),
	}
}
