package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agentshield/api/internal/app"
	"github.com/agentshield/api/pkg/apierror"
	"github.com/agentshield/api/pkg/domain/agentsession"
	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/logger"
)

// SessionHandler serves agent session recording endpoints.
type SessionHandler struct {
	service *app.SessionService
	logger  *logger.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(service *app.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  log.With("handler", "session"),
	}
}

// SessionResponse is the API representation of an agent session.
type SessionResponse struct {
	ID         string     `json:"id"`
	AgentID    string     `json:"agent_id"`
	Active     bool       `json:"active"`
	Analyzed   bool       `json:"analyzed"`
	AnalyzedAt *time.Time `json:"analyzed_at,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

func toSessionResponse(s *agentsession.Session) SessionResponse {
	return SessionResponse{
		ID:         s.ID().String(),
		AgentID:    s.AgentID().String(),
		Active:     s.IsActive(),
		Analyzed:   s.IsAnalyzed(),
		AnalyzedAt: s.AnalyzedAt(),
		StartedAt:  s.StartedAt(),
		EndedAt:    s.EndedAt(),
	}
}

// Start handles POST /api/v1/agents/{agent_id}/sessions.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agent_id")

	session, err := h.service.StartSession(r.Context(), agentID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

// End handles POST /api/v1/sessions/{id}/end. Ending an already ended
// session returns the session unchanged.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	session, err := h.service.EndSession(r.Context(), sessionID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// Get handles GET /api/v1/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// SessionCountsResponse reports the per-agent session totals.
type SessionCountsResponse struct {
	AgentID    string `json:"agent_id"`
	Active     int    `json:"active"`
	Unanalyzed int    `json:"unanalyzed"`
}

// GetCounts handles GET /api/v1/agents/{agent_id}/sessions/counts.
func (h *SessionHandler) GetCounts(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agent_id")

	counts, err := h.service.GetCounts(r.Context(), agentID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SessionCountsResponse{
		AgentID:    agentID,
		Active:     counts.Active,
		Unanalyzed: counts.Unanalyzed,
	})
}

func (h *SessionHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Session").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(err.Error()).WriteJSON(w)
	default:
		h.logger.Error("session request failed", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}
