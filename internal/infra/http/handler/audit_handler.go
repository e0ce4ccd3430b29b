package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agentshield/api/internal/app"
	"github.com/agentshield/api/pkg/apierror"
	"github.com/agentshield/api/pkg/domain/audit"
	"github.com/agentshield/api/pkg/domain/recommendation"
	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/logger"
)

// AuditHandler serves the recommendation audit trail.
type AuditHandler struct {
	service *app.AuditService
	logger  *logger.Logger
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(service *app.AuditService, log *logger.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		logger:  log.With("handler", "audit"),
	}
}

// AuditEntryResponse is the API representation of an audit trail entry.
type AuditEntryResponse struct {
	ID               string    `json:"id"`
	RecommendationID string    `json:"recommendation_id"`
	Action           string    `json:"action"`
	ActionType       string    `json:"action_type"`
	Reason           string    `json:"reason,omitempty"`
	PerformedBy      string    `json:"performed_by,omitempty"`
	PerformedAt      time.Time `json:"performed_at"`
}

func toAuditEntryResponse(e *audit.Entry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:               e.ID().String(),
		RecommendationID: e.RecommendationID().String(),
		Action:           e.Action(),
		ActionType:       e.ActionType().String(),
		Reason:           e.Reason(),
		PerformedBy:      e.PerformedBy(),
		PerformedAt:      e.PerformedAt(),
	}
}

// AuditTrailResponse wraps the full trail for a recommendation, newest first.
type AuditTrailResponse struct {
	RecommendationID string               `json:"recommendation_id"`
	Entries          []AuditEntryResponse `json:"entries"`
	Total            int                  `json:"total"`
}

// GetTrail handles GET /api/v1/recommendations/{id}/audit-trail.
func (h *AuditHandler) GetTrail(w http.ResponseWriter, r *http.Request) {
	recommendationID := chi.URLParam(r, "id")

	entries, err := h.service.GetTrail(r.Context(), recommendationID)
	if err != nil {
		switch {
		case recommendation.IsRecommendationNotFound(err):
			apierror.NotFound("Recommendation").WriteJSON(w)
		case errors.Is(err, shared.ErrValidation):
			apierror.BadRequest(err.Error()).WriteJSON(w)
		default:
			h.logger.Error("audit trail request failed", "recommendation_id", recommendationID, "error", err)
			apierror.InternalError(err).WriteJSON(w)
		}
		return
	}

	resp := AuditTrailResponse{
		RecommendationID: recommendationID,
		Entries:          make([]AuditEntryResponse, 0, len(entries)),
		Total:            len(entries),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toAuditEntryResponse(e))
	}

	writeJSON(w, http.StatusOK, resp)
}
