package http

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/savepoint/internal/importers"
	"github.com/mrlokans/savepoint/internal/services"
)

const defaultRunListLimit = 20

// StatusClientClosedRequest answers a run cut short because the caller went away.
const StatusClientClosedRequest = 499

// ImportController handles Steam library imports and their run history.
type ImportController struct {
	service ImportAPI
}

func NewImportController(service ImportAPI) *ImportController {
	return &ImportController{service: service}
}

type steamImportRequest struct {
	SteamID string `json:"steam_id"`
}

// RateLimitedResponse is returned when catalog lookups were throttled during
// a run. The work done before the limit was hit is kept.
type RateLimitedResponse struct {
	ErrorResponse
	Remaining         int                     `json:"remaining"`
	RetryAfterSeconds int                     `json:"retry_after_seconds,omitempty"`
	Report            *services.ImportReport `json:"report"`
}

// InterruptedResponse carries the partial report of a run that was cancelled
// or timed out. Games handled before the interruption stay imported.
type InterruptedResponse struct {
	ErrorResponse
	Report *services.ImportReport `json:"report"`
}

// ImportSteam handles POST /api/import/steam.
// An empty steam_id falls back to the linked account. With ?async=true the
// run is queued and 202 is returned with the run record.
func (ic *ImportController) ImportSteam(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req steamImportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "INVALID_REQUEST", "invalid request body")
			return
		}
	}

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		run, err := ic.service.QueueImport(c.Request.Context(), userID, req.SteamID)
		if err != nil {
			respondServiceError(c, err, "queue import")
			return
		}
		respondAccepted(c, "import queued", run)
		return
	}

	report, err := ic.service.StartImport(c.Request.Context(), userID, req.SteamID)
	if err != nil {
		if report != nil && respondInterrupted(c, report, err) {
			return
		}
		respondServiceError(c, err, "start import")
		return
	}

	respondImportReport(c, report)
}

// respondInterrupted answers with the partial report when err is a
// cancellation or deadline. It reports false for any other error.
func respondInterrupted(c *gin.Context, report *services.ImportReport, err error) bool {
	var resp InterruptedResponse
	status := StatusClientClosedRequest
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		resp.ErrorResponse = ErrorResponse{Error: "import timed out", Code: "TIMEOUT"}
	case errors.Is(err, context.Canceled):
		resp.ErrorResponse = ErrorResponse{Error: "import cancelled", Code: "CANCELLED"}
	default:
		return false
	}
	resp.Report = report
	c.JSON(status, resp)
	return true
}

func respondImportReport(c *gin.Context, report *services.ImportReport) {
	var (
		limited     *importers.Failure
		unavailable int
	)
	for i, f := range report.Failures {
		switch f.Kind {
		case importers.FailureRateLimited:
			if limited == nil {
				limited = &report.Failures[i]
			}
		case importers.FailureCatalogUnavailable:
			unavailable++
		}
	}

	if limited != nil {
		resp := RateLimitedResponse{
			ErrorResponse: ErrorResponse{Error: "catalog rate limit exceeded", Code: "RATE_LIMITED"},
			Report:        report,
		}
		if limited.Remaining != nil {
			resp.Remaining = *limited.Remaining
		}
		if limited.RetryAfter > 0 {
			resp.RetryAfterSeconds = int(math.Ceil(limited.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(resp.RetryAfterSeconds))
		}
		c.JSON(http.StatusTooManyRequests, resp)
		return
	}

	nothingDone := report.Imported == 0 && report.SkippedOwned == 0 && report.SkippedIgnored == 0
	if unavailable > 0 && unavailable == report.Failed && nothingDone {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  "game catalog is temporarily unavailable",
			"code":   "CATALOG_UNAVAILABLE",
			"report": report,
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListRuns handles GET /api/import/runs?limit=N.
func (ic *ImportController) ListRuns(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	limit, ok := parseIntQuery(c, "limit", defaultRunListLimit)
	if !ok {
		return
	}

	runs, err := ic.service.ListRuns(c.Request.Context(), userID, limit)
	if err != nil {
		respondServiceError(c, err, "list import runs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun handles GET /api/import/runs/:id.
func (ic *ImportController) GetRun(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	run, err := ic.service.GetRun(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "get import run")
		return
	}
	c.JSON(http.StatusOK, run)
}
