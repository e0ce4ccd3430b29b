// Package routes registers all HTTP routes for the API.
package routes

import (
	"net/http"

	infrahttp "github.com/agentshield/api/internal/infra/http"
	"github.com/agentshield/api/internal/infra/http/handler"
	"github.com/agentshield/api/internal/metrics"
)

// Middleware is an alias to the http package's Middleware type.
type Middleware = infrahttp.Middleware

// Router is an alias to the http package's Router interface.
type Router = infrahttp.Router

// Handlers holds all HTTP handlers for route registration.
type Handlers struct {
	Health         *handler.HealthHandler
	Recommendation *handler.RecommendationHandler
	Gate           *handler.GateHandler
	Audit          *handler.AuditHandler
	Analysis       *handler.AnalysisHandler
	Session        *handler.SessionHandler
}

// Register registers all application routes.
// This keeps route definitions in the infrastructure layer, not in main.
func Register(router Router, h Handlers, m *metrics.Metrics) {
	registerHealthRoutes(router, h.Health, m)

	router.Group("/api/v1", func(r Router) {
		registerWorkflowRoutes(r, h)
		registerRecommendationRoutes(r, h)
		registerAnalysisRoutes(r, h)
		registerSessionRoutes(r, h)
	})
}

// registerHealthRoutes registers health check and metrics endpoints.
func registerHealthRoutes(router Router, h *handler.HealthHandler, m *metrics.Metrics) {
	router.GET("/healthz", h.Health)
	router.GET("/readyz", h.Ready)
	router.GET("/metrics", func(w http.ResponseWriter, r *http.Request) {
		m.Handler().ServeHTTP(w, r)
	})
}

// registerWorkflowRoutes registers workflow-scoped read endpoints.
func registerWorkflowRoutes(r Router, h Handlers) {
	r.GET("/workflows/{workflow_id}/recommendations", h.Recommendation.ListByWorkflow)
	r.GET("/workflows/{workflow_id}/recommendations/counts", h.Recommendation.CountByStatus)
	r.GET("/workflows/{workflow_id}/gate", h.Gate.Get)
}

// registerRecommendationRoutes registers the recommendation lifecycle endpoints.
func registerRecommendationRoutes(r Router, h Handlers) {
	r.POST("/recommendations", h.Recommendation.Create)
	r.GET("/recommendations/{id}", h.Recommendation.Get)
	r.GET("/recommendations/{id}/audit-trail", h.Audit.GetTrail)

	// Lifecycle transitions
	r.POST("/recommendations/{id}/start-fix", h.Recommendation.StartFix)
	r.POST("/recommendations/{id}/complete-fix", h.Recommendation.CompleteFix)
	r.POST("/recommendations/{id}/verify", h.Recommendation.Verify)
	r.POST("/recommendations/{id}/dismiss", h.Recommendation.Dismiss)
	r.POST("/recommendations/{id}/reopen", h.Recommendation.Reopen)
}

// registerAnalysisRoutes registers analysis trigger and status endpoints.
func registerAnalysisRoutes(r Router, h Handlers) {
	r.POST("/agents/{agent_id}/analysis/trigger", h.Analysis.Trigger)
	r.GET("/agents/{agent_id}/analysis/status", h.Analysis.GetStatus)
}

// registerSessionRoutes registers agent session recording endpoints.
func registerSessionRoutes(r Router, h Handlers) {
	r.POST("/agents/{agent_id}/sessions", h.Session.Start)
	r.GET("/agents/{agent_id}/sessions/counts", h.Session.GetCounts)
	r.GET("/sessions/{id}", h.Session.Get)
	r.POST("/sessions/{id}/end", h.Session.End)
}
