// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/chemequip/backend/internal/parser"
	"github.com/labstack/echo/v4"
)

// Client-facing details that callers match on.
const (
	DetailFileRequired    = "CSV file is required with field name 'file'."
	DetailNoDatasets      = "No datasets uploaded yet."
	DetailDatasetNotFound = "Dataset not found."
	DetailUnauthorized    = "Unauthorized"
	DetailUnexpected      = "An unexpected error occurred"
	unreadablePrefix      = "Unable to process CSV: "
)

// APIError represents a structured API error response
type APIError struct {
	Status int    `json:"-"`
	Code   string `json:"code"`
	Detail string `json:"detail"`

	// cause is logged, never sent to the client.
	cause error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(detail string) *APIError {
	return &APIError{
		Status: http.StatusBadRequest,
		Code:   "BAD_REQUEST",
		Detail: detail,
	}
}

// NewValidationError creates a 400 for an upload whose content is rejected
func NewValidationError(detail string) *APIError {
	return &APIError{
		Status: http.StatusBadRequest,
		Code:   "VALIDATION_ERROR",
		Detail: detail,
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(detail string) *APIError {
	return &APIError{
		Status: http.StatusNotFound,
		Code:   "NOT_FOUND",
		Detail: detail,
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(cause error) *APIError {
	return &APIError{
		Status: http.StatusInternalServerError,
		Code:   "INTERNAL_ERROR",
		Detail: DetailUnexpected,
		cause:  cause,
	}
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(detail string, cause error) *APIError {
	return &APIError{
		Status: http.StatusServiceUnavailable,
		Code:   "SERVICE_UNAVAILABLE",
		Detail: detail,
		cause:  cause,
	}
}

// uploadError maps a parser failure to the 400 the client sees.
func uploadError(err error) *APIError {
	var verr *parser.ValidationError
	if errors.As(err, &verr) {
		return NewValidationError(verr.Message)
	}
	apiErr := &APIError{
		Status: http.StatusBadRequest,
		Code:   "UNREADABLE_FILE",
		Detail: unreadablePrefix + err.Error(),
	}
	var uerr *parser.UnreadableFileError
	if errors.As(err, &uerr) {
		apiErr.Detail = unreadablePrefix + uerr.Err.Error()
	}
	return apiErr
}

// ErrorHandler renders every error as {"code", "detail"}.
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status: httpErr.Code,
			Code:   "HTTP_ERROR",
			Detail: fmt.Sprintf("%v", httpErr.Message),
		}
		if httpErr.Code == http.StatusUnauthorized {
			apiErr.Code = "UNAUTHORIZED"
			apiErr.Detail = DetailUnauthorized
		}
	default:
		apiErr = NewInternalError(err)
	}

	if c.Request().Method == http.MethodHead {
		c.NoContent(apiErr.Status)
		return
	}
	c.JSON(apiErr.Status, apiErr)
}
