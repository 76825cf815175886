package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError represents a structured error response
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	RetryAfter int    `json:"retry_after_ms,omitempty"`
}

// Common error codes
const (
	ErrCodeBadRequest           = "BAD_REQUEST"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeAIServiceUnavailable = "AI_SERVICE_UNAVAILABLE"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	ErrCodeRequestCanceled      = "REQUEST_CANCELED"
)

// StatusClientClosedRequest is reported when the caller went away mid-request
const StatusClientClosedRequest = 499

// RespondError sends a structured error response
func RespondError(c *gin.Context, status int, code string, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": APIError{
			Code:    code,
			Message: message,
		},
	})
}

// RespondErrorWithDetails sends a structured error response with details
func RespondErrorWithDetails(c *gin.Context, status int, code string, message string, details string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// RespondErrorWithRetry sends a structured error response with retry hint
func RespondErrorWithRetry(c *gin.Context, status int, code string, message string, retryAfterMs int) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": APIError{
			Code:       code,
			Message:    message,
			RetryAfter: retryAfterMs,
		},
	})
}

// BadRequest sends a 400 error
func BadRequest(c *gin.Context, message string) {
	RespondError(c, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound sends a 404 error naming the path
func NotFound(c *gin.Context) {
	RespondErrorWithDetails(c, http.StatusNotFound, ErrCodeNotFound, "Route not found", c.Request.URL.Path)
}

// InternalError sends a 500 error
func InternalError(c *gin.Context, message string) {
	RespondError(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// PayloadTooLarge sends a 413 error
func PayloadTooLarge(c *gin.Context, limit int64) {
	RespondErrorWithDetails(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
		"Request body is too large", formatBytes(limit))
}

// RequestCanceled reports a request abandoned by its caller
func RequestCanceled(c *gin.Context) {
	RespondError(c, StatusClientClosedRequest, ErrCodeRequestCanceled, "Request canceled")
}

// AIServiceUnavailable sends a 503 error for AI service issues
func AIServiceUnavailable(c *gin.Context, message string) {
	RespondErrorWithRetry(c, http.StatusServiceUnavailable, ErrCodeAIServiceUnavailable, message, 5000)
}
