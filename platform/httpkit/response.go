// Package httpkit carries the HTTP plumbing shared by the API modules:
// response envelopes, error mapping and the middleware in this directory.
package httpkit

import (
	"errors"
	"net/http"

	"callcrm_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error envelope every endpoint returns on failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK sends a 200 with the payload.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Accepted sends a 202 for work handed off asynchronously, such as a call
// pushed to the dialer.
func Accepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}

// Error sends the error envelope with an explicit status.
func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// HandleError maps a service error onto the wire. Kind-typed errors carry
// their own status (412 for the do-not-call guard, 503 for a failing
// dialer); anything untyped is treated as a bad request. Returns false when
// err is nil so callers can use it as a guard.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus(), ErrorResponse{
			Error:   appErr.Message,
			Details: appErr.Details,
		})
		return true
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	return true
}
