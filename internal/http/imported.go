package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/savepoint/internal/database/imported"
	"github.com/mrlokans/savepoint/internal/entities"
)

// ImportedController serves the imported games browser and the ignore list.
type ImportedController struct {
	service ImportAPI
	now     func() time.Time
}

func NewImportedController(service ImportAPI) *ImportedController {
	return &ImportedController{service: service, now: time.Now}
}

type ignoreRequest struct {
	Title string `json:"title" binding:"required"`
}

// List handles GET /api/imported.
//
// Query parameters: search, platform, last_played, playtime, match_status,
// sort_by, sort_order, page, page_size.
func (ic *ImportedController) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	q, err := ic.parseQuery(c)
	if err != nil {
		respondServiceError(c, err, "parse imported query")
		return
	}
	page, ok := parseIntQuery(c, "page", 1)
	if !ok {
		return
	}
	pageSize, ok := parseIntQuery(c, "page_size", imported.DefaultPageSize)
	if !ok {
		return
	}
	q.Page, q.PageSize = page, pageSize

	result, err := ic.service.ListImported(c.Request.Context(), userID, q)
	if err != nil {
		respondServiceError(c, err, "list imported games")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ic *ImportedController) parseQuery(c *gin.Context) (imported.Query, error) {
	lastPlayed, err := imported.LastPlayedPreset(c.Query("last_played"), ic.now())
	if err != nil {
		return imported.Query{}, err
	}
	playtime, err := imported.PlaytimePreset(c.Query("playtime"))
	if err != nil {
		return imported.Query{}, err
	}

	platform := c.Query("platform")
	if platform == "all" {
		platform = ""
	}

	return imported.Query{
		Search:      c.Query("search"),
		Platform:    platform,
		LastPlayed:  lastPlayed,
		Playtime:    playtime,
		MatchStatus: entities.MatchStatus(c.Query("match_status")),
		SortBy:      imported.SortField(c.Query("sort_by")),
		SortOrder:   imported.SortOrder(c.Query("sort_order")),
	}, nil
}

// Ignore handles POST /api/imported/ignore.
func (ic *ImportedController) Ignore(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req ignoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", "title is required")
		return
	}

	if err := ic.service.IgnoreCandidate(c.Request.Context(), userID, req.Title); err != nil {
		respondServiceError(c, err, "ignore candidate")
		return
	}
	c.Status(http.StatusNoContent)
}

// Unignore handles DELETE /api/imported/ignore.
func (ic *ImportedController) Unignore(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req ignoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", "title is required")
		return
	}

	if err := ic.service.UnignoreCandidate(c.Request.Context(), userID, req.Title); err != nil {
		respondServiceError(c, err, "unignore candidate")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListIgnored handles GET /api/imported/ignored.
func (ic *ImportedController) ListIgnored(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	entries, err := ic.service.ListIgnored(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "list ignored")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ignored": entries})
}
