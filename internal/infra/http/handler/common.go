// Package handler contains the HTTP handlers for the REST API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/agentshield/api/pkg/apierror"
	"github.com/agentshield/api/pkg/domain/shared"
	"github.com/agentshield/api/pkg/pagination"
	"github.com/agentshield/api/pkg/validator"
)

// ListResponse wraps paginated list responses.
type ListResponse[T any] struct {
	Data       []T              `json:"data"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalPages int              `json:"total_pages"`
	Links      *PaginationLinks `json:"links,omitempty"`
}

// PaginationLinks provides navigation links for paginated responses.
type PaginationLinks struct {
	Self  string `json:"self"`
	First string `json:"first"`
	Last  string `json:"last"`
	Next  string `json:"next,omitempty"`
	Prev  string `json:"prev,omitempty"`
}

// NewPaginationLinks builds pagination links from the request URL and result.
func NewPaginationLinks(r *http.Request, page, perPage, totalPages int) *PaginationLinks {
	buildURL := func(p int) string {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(p))
		q.Set("per_page", strconv.Itoa(perPage))
		u := url.URL{Path: r.URL.Path, RawQuery: q.Encode()}
		return u.String()
	}

	links := &PaginationLinks{
		Self:  buildURL(page),
		First: buildURL(1),
	}

	if totalPages > 0 {
		links.Last = buildURL(totalPages)
	} else {
		links.Last = buildURL(1)
	}

	if page < totalPages {
		links.Next = buildURL(page + 1)
	}
	if page > 1 {
		links.Prev = buildURL(page - 1)
	}

	return links
}

// newListResponse converts a pagination result plus mapped data into a ListResponse.
func newListResponse[T any](r *http.Request, data []T, total int64, p pagination.Pagination, totalPages int) ListResponse[T] {
	if data == nil {
		data = make([]T, 0)
	}
	return ListResponse[T]{
		Data:       data,
		Total:      total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: totalPages,
		Links:      NewPaginationLinks(r, p.Page, p.PerPage, totalPages),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// parsePagination parses page/per_page query parameters with defaults.
func parsePagination(r *http.Request) pagination.Pagination {
	page := parseQueryInt(r, "page", 1)
	perPage := parseQueryInt(r, "per_page", 20)
	return pagination.New(page, perPage)
}

// parseQueryInt parses an integer query parameter with a default value.
func parseQueryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// handleValidationError writes a 422 with per-field details for validation
// failures, falling back to a generic 400.
func handleValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]apierror.ValidationError, 0, len(verrs))
		for _, ve := range verrs {
			details = append(details, apierror.ValidationError{
				Field:   ve.Field,
				Message: ve.Message,
			})
		}
		apierror.ValidationFailed("Validation failed", details).WriteJSON(w)
		return
	}

	apierror.BadRequest(err.Error()).WriteJSON(w)
}

// handleDomainError maps shared domain errors to API errors. Handlers call
// this after their own more specific mappings.
func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(err.Error()).WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("").WriteJSON(w)
	case errors.Is(err, shared.ErrAlreadyExists):
		apierror.Conflict(err.Error()).WriteJSON(w)
	default:
		apierror.InternalError(err).WriteJSON(w)
	}
}
