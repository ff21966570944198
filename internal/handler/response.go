package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/repository"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status
// code and API error code.
func respondError(c *gin.Context, err error) {
	status := mapErrorToHTTPStatus(err)
	body := ErrorResponse{Error: err.Error()}
	switch status {
	case http.StatusBadRequest, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		body.Code = service.CodeForError(err)
	}
	c.JSON(status, body)
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrMissingField),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrAmountLimitExceeded),
		errors.Is(err, service.ErrUnsupportedProvider),
		errors.Is(err, service.ErrMissingPhoneNumber),
		errors.Is(err, service.ErrInvalidPhoneNumber),
		errors.Is(err, service.ErrInvalidTransactionID),
		errors.Is(err, service.ErrAmountMismatch):
		return http.StatusBadRequest

	// Rate limiting
	case errors.Is(err, service.ErrRateLimitExceeded):
		return http.StatusTooManyRequests

	// Conflict errors
	case errors.Is(err, service.ErrCannotCancel),
		errors.Is(err, service.ErrTransactionBusy),
		errors.Is(err, repository.ErrTerminalState):
		return http.StatusConflict

	// Service unavailable
	case errors.Is(err, service.ErrProviderUnavailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
