package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agentshield/api/internal/app"
	"github.com/agentshield/api/pkg/apierror"
	"github.com/agentshield/api/pkg/domain/gate"
	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/logger"
)

// GateHandler serves the production-readiness gate endpoint.
type GateHandler struct {
	service *app.GateService
	logger  *logger.Logger
}

// NewGateHandler creates a new GateHandler.
func NewGateHandler(service *app.GateService, log *logger.Logger) *GateHandler {
	return &GateHandler{
		service: service,
		logger:  log.With("handler", "gate"),
	}
}

// GateResponse is the API representation of the derived gate state.
type GateResponse struct {
	WorkflowID    string              `json:"workflow_id"`
	GateStatus    string              `json:"gate_status"`
	BlockingCount int                 `json:"blocking_count"`
	BlockingItems []gate.BlockingItem `json:"blocking_items"`
}

func toGateResponse(workflowID string, status gate.Status) GateResponse {
	items := status.BlockingItems
	if items == nil {
		items = make([]gate.BlockingItem, 0)
	}
	return GateResponse{
		WorkflowID:    workflowID,
		GateStatus:    status.Decision.String(),
		BlockingCount: status.BlockingCount,
		BlockingItems: items,
	}
}

// Get handles GET /api/v1/workflows/{workflow_id}/gate.
//
// The gate is recomputed from the live recommendation set on every evaluation
// and never stored. An optional top_n parameter truncates the blocking item
// list while preserving the full blocking count.
func (h *GateHandler) Get(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflow_id")

	topN := parseQueryInt(r, "top_n", 0)
	if topN < 0 {
		apierror.BadRequest("top_n must be non-negative").WriteJSON(w)
		return
	}

	var (
		status gate.Status
		err    error
	)
	if topN > 0 {
		status, err = h.service.EvaluateTopN(r.Context(), workflowID, topN)
	} else {
		status, err = h.service.Evaluate(r.Context(), workflowID)
	}
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrValidation):
			apierror.BadRequest(err.Error()).WriteJSON(w)
		default:
			h.logger.Error("gate evaluation failed", "workflow_id", workflowID, "error", err)
			apierror.InternalError(err).WriteJSON(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, toGateResponse(workflowID, status))
}
