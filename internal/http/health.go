package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/savepoint/internal/database"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// LimiterState reports whether the rate limiter is on its in-process fallback.
type LimiterState interface {
	Degraded() bool
}

type HealthController struct {
	db      *database.Database
	limiter LimiterState
	version string
}

func NewHealthController(db *database.Database, limiter LimiterState, version string) *HealthController {
	return &HealthController{
		db:      db,
		limiter: limiter,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	// Check database connectivity
	if h.db != nil {
		sqlDB, err := h.db.DB.DB()
		if err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	// The fallback still admits requests, so it degrades rather than fails.
	if h.limiter != nil {
		if h.limiter.Degraded() {
			checks["rate_limiter"] = "fallback"
		} else {
			checks["rate_limiter"] = "ok"
		}
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
