// Package validator provides struct validation utilities with custom validators.
package validator

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/agentshield/api/pkg/domain/recommendation"
)

// Validator wraps the go-playground validator with custom validations.
type Validator struct {
	validate *validator.Validate
	catalog  *recommendation.Catalog
}

// ValidationError represents a single field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, e := range v {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return sb.String()
}

// New creates a new Validator with custom validators registered.
func New() *Validator {
	return NewWithCatalog(recommendation.DefaultCatalog())
}

// NewWithCatalog creates a Validator validating categories against the given catalog.
func NewWithCatalog(catalog *recommendation.Catalog) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("severity", validateSeverity)
	_ = v.RegisterValidation("rec_status", validateRecStatus)
	_ = v.RegisterValidation("source_type", validateSourceType)
	_ = v.RegisterValidation("dismiss_type", validateDismissType)
	_ = v.RegisterValidation("nonblank", validateNonBlank)

	wrapped := &Validator{validate: v, catalog: catalog}
	_ = v.RegisterValidation("category", wrapped.validateCategory)

	return wrapped
}

// Validate validates a struct and returns ValidationErrors if validation fails.
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return err
	}

	result := make(ValidationErrors, 0, len(validationErrors))
	for _, fe := range validationErrors {
		result = append(result, ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: messageFor(fe),
		})
	}
	return result
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "nonblank":
		return "must not be blank"
	case "severity":
		return fmt.Sprintf("must be one of: %s", joinSeverities())
	case "rec_status":
		return fmt.Sprintf("must be one of: %s", joinStatuses())
	case "source_type":
		return "must be static or dynamic"
	case "dismiss_type":
		return "must be dismissed or ignored"
	case "category":
		return "is not a known category"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func joinSeverities() string {
	parts := make([]string, 0, len(recommendation.AllSeverities()))
	for _, s := range recommendation.AllSeverities() {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, ", ")
}

func joinStatuses() string {
	parts := make([]string, 0, len(recommendation.AllStatuses()))
	for _, s := range recommendation.AllStatuses() {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, ", ")
}

func validateSeverity(fl validator.FieldLevel) bool {
	_, err := recommendation.ParseSeverity(fl.Field().String())
	return err == nil
}

func validateRecStatus(fl validator.FieldLevel) bool {
	_, err := recommendation.ParseStatus(fl.Field().String())
	return err == nil
}

func validateSourceType(fl validator.FieldLevel) bool {
	_, err := recommendation.ParseSourceType(fl.Field().String())
	return err == nil
}

func validateDismissType(fl validator.FieldLevel) bool {
	_, err := recommendation.ParseDismissType(fl.Field().String())
	return err == nil
}

// validateNonBlank rejects strings that are empty after trimming.
// "required" alone accepts whitespace-only values, which must not pass for
// dismissal reasons.
func validateNonBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func (v *Validator) validateCategory(fl validator.FieldLevel) bool {
	return v.catalog.Contains(fl.Field().String())
}
