package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/savepoint/internal/auth"
	"github.com/mrlokans/savepoint/internal/database/imported"
	"github.com/mrlokans/savepoint/internal/database/runs"
	"github.com/mrlokans/savepoint/internal/services"
)

// GetUserID extracts the authenticated user's ID from the Gin context.
// Returns 0 when no user is authenticated.
func GetUserID(c *gin.Context) uint {
	return auth.GetUserID(c)
}

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

func respondBadRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: code})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: "NOT_FOUND"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, op string) {
	slog.Error("internal error", "op", op, "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "INTERNAL"})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// respondServiceError maps errors returned by the import service onto HTTP
// status codes.
func respondServiceError(c *gin.Context, err error, op string) {
	var runErr *services.RunError
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
	case errors.As(err, &runErr):
		switch runErr.Kind {
		case services.RunInvalidAccount:
			respondBadRequest(c, "INVALID_ACCOUNT", runErr.Err.Error())
		case services.RunFetchUnauthorized:
			respondError(c, http.StatusBadGateway, "FETCH_UNAUTHORIZED", "steam rejected the request: check the API key and profile privacy")
		default:
			respondError(c, http.StatusBadGateway, "FETCH_UNAVAILABLE", "steam is temporarily unavailable")
		}
	case errors.Is(err, imported.ErrInvalidFilter):
		respondBadRequest(c, "INVALID_FILTER", err.Error())
	case errors.Is(err, services.ErrEmptyTitle):
		respondBadRequest(c, "EMPTY_TITLE", err.Error())
	case errors.Is(err, services.ErrNotIgnored):
		respondError(c, http.StatusNotFound, "NOT_IGNORED", err.Error())
	case errors.Is(err, runs.ErrRunNotFound):
		respondNotFound(c, "import run")
	case errors.Is(err, services.ErrQueueDisabled):
		respondError(c, http.StatusServiceUnavailable, "QUEUE_DISABLED", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusGatewayTimeout, "TIMEOUT", "request timed out")
	case errors.Is(err, context.Canceled):
		respondError(c, StatusClientClosedRequest, "CANCELLED", "request cancelled")
	default:
		respondInternalError(c, err, op)
	}
}

// --- Success Response Helpers ---

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// parseIntQuery reads an optional positive integer query parameter. A
// missing parameter yields def; an invalid one responds with 400.
func parseIntQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		respondBadRequest(c, "INVALID_FILTER", "invalid "+name)
		return 0, false
	}
	return n, true
}

// requireUser responds with 401 and returns false when nobody is signed in.
func requireUser(c *gin.Context) (uint, bool) {
	userID := GetUserID(c)
	if userID == 0 {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		return 0, false
	}
	return userID, true
}
