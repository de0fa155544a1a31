package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/savepoint/internal/tasks"
)

// TasksController exposes background task status and manual maintenance.
type TasksController struct {
	client      TaskStatusReader
	maintenance MaintenanceRunner
}

func NewTasksController(client TaskStatusReader, maintenance MaintenanceRunner) *TasksController {
	return &TasksController{client: client, maintenance: maintenance}
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "INVALID_REQUEST", "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.client.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": tasks.StatusName(status),
	})
}

// RunMaintenance handles POST /api/tasks/maintenance/run (admin only).
func (tc *TasksController) RunMaintenance(c *gin.Context) {
	if tc.maintenance == nil {
		respondError(c, http.StatusServiceUnavailable, "SCHEDULER_DISABLED", "maintenance scheduler is disabled")
		return
	}
	if err := tc.maintenance.RunNow(c.Request.Context()); err != nil {
		respondInternalError(c, err, "run maintenance")
		return
	}
	respondAccepted(c, "maintenance tasks enqueued", nil)
}
