package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/savepoint/internal/entities"
)

type AuditController struct {
	log AuditLog
}

func NewAuditController(log AuditLog) *AuditController {
	return &AuditController{log: log}
}

// List handles GET /api/audit?event_type=&page=&limit=
func (ac *AuditController) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	eventType := entities.AuditEventType(c.Query("event_type"))
	if eventType != "" && !entities.ValidAuditEventType(eventType) {
		respondBadRequest(c, "INVALID_FILTER", "unknown event_type")
		return
	}
	limit, ok := parseIntQuery(c, "limit", 50)
	if !ok {
		return
	}
	page, ok := parseIntQuery(c, "page", 1)
	if !ok {
		return
	}

	events, total, err := ac.log.Events(c.Request.Context(), userID, eventType, limit, (page-1)*limit)
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  total,
		"page":   page,
	})
}
