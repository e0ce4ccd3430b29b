package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agentshield/api/internal/app"
	"github.com/agentshield/api/pkg/apierror"
	"github.com/agentshield/api/pkg/domain/analysis"
	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/logger"
)

// AnalysisHandler serves analysis trigger and status endpoints.
type AnalysisHandler struct {
	service *app.AnalysisService
	logger  *logger.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(service *app.AnalysisService, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		logger:  log.With("handler", "analysis"),
	}
}

// TriggerResponse reports the outcome of a trigger request together with the
// current analysis status.
type TriggerResponse struct {
	Outcome string                   `json:"outcome"`
	Status  *analysis.StatusSnapshot `json:"status,omitempty"`
}

// Trigger handles POST /api/v1/agents/{agent_id}/analysis/trigger.
//
// Triggering is idempotent with respect to an already running analysis: the
// request settles with outcome "already_running" instead of failing, and a
// trigger with no unanalyzed sessions settles with "no_new_sessions".
func (h *AnalysisHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agent_id")

	result, err := h.service.Trigger(r.Context(), agentID)
	if err != nil {
		h.handleServiceError(w, agentID, err)
		return
	}

	status := http.StatusAccepted
	if !result.Outcome.StartsPolling() {
		status = http.StatusOK
	}

	writeJSON(w, status, TriggerResponse{
		Outcome: result.Outcome.String(),
		Status:  result.Status,
	})
}

// GetStatus handles GET /api/v1/agents/{agent_id}/analysis/status.
func (h *AnalysisHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agent_id")

	snapshot, err := h.service.GetStatus(r.Context(), agentID)
	if err != nil {
		h.handleServiceError(w, agentID, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (h *AnalysisHandler) handleServiceError(w http.ResponseWriter, agentID string, err error) {
	switch {
	case analysis.IsTriggerConflict(err):
		apierror.Conflict("An analysis is already running for this agent").WriteJSON(w)
	case analysis.IsRunNotFound(err):
		apierror.NotFound("Analysis run").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(err.Error()).WriteJSON(w)
	default:
		h.logger.Error("analysis request failed", "agent_id", agentID, "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}
