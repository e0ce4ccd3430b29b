package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agentshield/api/internal/app"
	"github.com/agentshield/api/pkg/apierror"
	"github.com/agentshield/api/pkg/domain/recommendation"
	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/logger"
	"github.com/agentshield/api/pkg/pagination"
	"github.com/agentshield/api/pkg/validator"
)

// RecommendationHandler handles recommendation lifecycle endpoints.
type RecommendationHandler struct {
	service   *app.RecommendationService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(service *app.RecommendationService, v *validator.Validator, log *logger.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		service:   service,
		validator: v,
		logger:    log.With("handler", "recommendation"),
	}
}

// RecommendationResponse is the API representation of a recommendation.
type RecommendationResponse struct {
	ID              string    `json:"id"`
	WorkflowID      string    `json:"workflow_id"`
	SourceType      string    `json:"source_type"`
	Severity        string    `json:"severity"`
	Category        string    `json:"category"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Status          string    `json:"status"`
	SourceFindingID *string   `json:"source_finding_id,omitempty"`
	FixNotes        string    `json:"fix_notes,omitempty"`
	FixMethod       string    `json:"fix_method,omitempty"`
	GateBlocking    bool      `json:"gate_blocking"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toRecommendationResponse(rec *recommendation.Recommendation) RecommendationResponse {
	resp := RecommendationResponse{
		ID:           rec.ID().String(),
		WorkflowID:   rec.WorkflowID().String(),
		SourceType:   rec.SourceType().String(),
		Severity:     rec.Severity().String(),
		Category:     rec.Category(),
		Title:        rec.Title(),
		Description:  rec.Description(),
		Status:       rec.Status().String(),
		FixNotes:     rec.FixNotes(),
		FixMethod:    rec.FixMethod(),
		GateBlocking: rec.IsGateBlocking(),
		CreatedAt:    rec.CreatedAt(),
		UpdatedAt:    rec.UpdatedAt(),
	}
	if fid := rec.SourceFindingID(); fid != nil {
		s := fid.String()
		resp.SourceFindingID = &s
	}
	return resp
}

// CreateRecommendationRequest is the request body for creating a recommendation.
type CreateRecommendationRequest struct {
	WorkflowID      string `json:"workflow_id"`
	SourceType      string `json:"source_type"`
	Severity        string `json:"severity"`
	Category        string `json:"category"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	SourceFindingID string `json:"source_finding_id"`
}

// Create handles POST /api/v1/recommendations.
func (h *RecommendationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRecommendationRequest
	if err := decodeJSON(r, &req); err != nil {
		apierror.BadRequest(err.Error()).WriteJSON(w)
		return
	}

	input := app.CreateRecommendationInput{
		WorkflowID:      req.WorkflowID,
		SourceType:      req.SourceType,
		Severity:        req.Severity,
		Category:        req.Category,
		Title:           req.Title,
		Description:     req.Description,
		SourceFindingID: req.SourceFindingID,
	}

	if err := h.validator.Validate(input); err != nil {
		handleValidationError(w, err)
		return
	}

	rec, err := h.service.CreateRecommendation(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRecommendationResponse(rec))
}

// Get handles GET /api/v1/recommendations/{id}.
func (h *RecommendationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.service.GetRecommendation(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecommendationResponse(rec))
}

// ListByWorkflow handles GET /api/v1/workflows/{workflow_id}/recommendations.
//
// Filter parameters (source, status, category, blocking, q) combine with AND
// semantics and round-trip through the query string, so a shared link
// reproduces the exact same view.
func (h *RecommendationHandler) ListByWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflow_id")
	if _, err := shared.IDFromString(workflowID); err != nil {
		apierror.BadRequest("invalid workflow ID").WriteJSON(w)
		return
	}

	filter := recommendation.ParseFilterQuery(r.URL.Query()).WithWorkflowID(workflowID)
	page := parsePagination(r)

	sort := pagination.NewSortOption(recommendation.AllowedSortFields()).
		Parse(r.URL.Query().Get("sort"))
	opts := recommendation.NewListOptions().WithSort(sort)

	result, err := h.service.ListRecommendations(r.Context(), filter, opts, page)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	data := make([]RecommendationResponse, 0, len(result.Data))
	for _, rec := range result.Data {
		data = append(data, toRecommendationResponse(rec))
	}

	writeJSON(w, http.StatusOK, newListResponse(r, data, result.Total, page, result.TotalPages))
}

// StatusCountsResponse reports per-status totals for a workflow.
type StatusCountsResponse struct {
	WorkflowID string           `json:"workflow_id"`
	Counts     map[string]int64 `json:"counts"`
	Total      int64            `json:"total"`
}

// CountByStatus handles GET /api/v1/workflows/{workflow_id}/recommendations/counts.
func (h *RecommendationHandler) CountByStatus(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflow_id")

	counts, err := h.service.CountByStatus(r.Context(), workflowID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := StatusCountsResponse{
		WorkflowID: workflowID,
		Counts:     make(map[string]int64, len(counts)),
	}
	for status, n := range counts {
		resp.Counts[status.String()] = n
		resp.Total += n
	}

	writeJSON(w, http.StatusOK, resp)
}

// StartFix handles POST /api/v1/recommendations/{id}/start-fix.
func (h *RecommendationHandler) StartFix(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.service.StartFix(r.Context(), id, performedBy(r))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecommendationResponse(rec))
}

// CompleteFixRequest is the request body for completing a fix.
type CompleteFixRequest struct {
	FixNotes  string `json:"fix_notes"`
	FixMethod string `json:"fix_method"`
}

// CompleteFix handles POST /api/v1/recommendations/{id}/complete-fix.
// The body is optional; an empty body completes the fix with no notes.
func (h *RecommendationHandler) CompleteFix(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req CompleteFixRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			apierror.BadRequest(err.Error()).WriteJSON(w)
			return
		}
	}

	input := app.CompleteFixInput{
		FixNotes:  req.FixNotes,
		FixMethod: req.FixMethod,
	}
	if err := h.validator.Validate(input); err != nil {
		handleValidationError(w, err)
		return
	}

	rec, err := h.service.CompleteFix(r.Context(), id, performedBy(r), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecommendationResponse(rec))
}

// Verify handles POST /api/v1/recommendations/{id}/verify.
func (h *RecommendationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.service.Verify(r.Context(), id, performedBy(r))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecommendationResponse(rec))
}

// DismissRequest is the request body for dismissing a recommendation.
type DismissRequest struct {
	DismissType string `json:"dismiss_type"`
	Reason      string `json:"reason"`
}

// Dismiss handles POST /api/v1/recommendations/{id}/dismiss. The reason is
// mandatory and must not be blank; it is recorded verbatim in the audit trail.
func (h *RecommendationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req DismissRequest
	if err := decodeJSON(r, &req); err != nil {
		apierror.BadRequest(err.Error()).WriteJSON(w)
		return
	}

	input := app.DismissInput{
		DismissType: req.DismissType,
		Reason:      req.Reason,
	}
	if err := h.validator.Validate(input); err != nil {
		handleValidationError(w, err)
		return
	}

	rec, err := h.service.Dismiss(r.Context(), id, performedBy(r), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecommendationResponse(rec))
}

// Reopen handles POST /api/v1/recommendations/{id}/reopen.
func (h *RecommendationHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.service.Reopen(r.Context(), id, performedBy(r))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecommendationResponse(rec))
}

func (h *RecommendationHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case recommendation.IsRecommendationNotFound(err):
		apierror.NotFound("Recommendation").WriteJSON(w)
	case recommendation.IsReasonRequired(err):
		apierror.ValidationFailed("A non-blank reason is required to dismiss or ignore a recommendation", nil).WriteJSON(w)
	case recommendation.IsInvalidTransition(err):
		apierror.Conflict(err.Error()).WriteJSON(w)
	case recommendation.IsStaleStatus(err):
		apierror.Conflict("Recommendation was modified concurrently, retry with fresh state").WriteJSON(w)
	case errors.Is(err, shared.ErrAlreadyExists):
		apierror.Conflict(err.Error()).WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(err.Error()).WriteJSON(w)
	default:
		h.logger.Error("recommendation request failed", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}

// performedBy identifies the acting user for audit attribution. Identity
// propagation is out of scope for this service, so it falls back to a
// header set by the gateway.
func performedBy(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "anonymous"
}
