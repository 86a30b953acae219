package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/repositories"
	"github.com/classpulse/interaction-service/internal/services"
	"github.com/classpulse/interaction-service/internal/utils"
)

type TaskHandler struct {
	BaseHandler
	taskService services.TaskService
}

func NewTaskHandler(taskService services.TaskService, logger utils.Logger) *TaskHandler {
	return &TaskHandler{
		BaseHandler: NewBaseHandler(logger),
		taskService: taskService,
	}
}

// ListTasks lists GenAI ledger tasks, newest first. Non-admins only see
// their own rows.
// @Summary List GenAI tasks
// @Tags tasks
// @Produce json
// @Param task_type query string false "Task type filter"
// @Param status query string false "Status filter"
// @Param date_from query string false "Created-after filter (RFC 3339)"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} services.TaskListResponse
// @Router /genai/tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	filters := repositories.TaskFilters{
		Limit:  h.parseIntQuery(c, "limit", 50),
		Offset: h.parseIntQuery(c, "offset", 0),
	}
	if typeStr := c.Query("task_type"); typeStr != "" {
		taskType := models.TaskType(typeStr)
		filters.TaskType = &taskType
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := models.TaskStatus(statusStr)
		filters.Status = &status
	}
	if fromStr := c.Query("date_from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid date_from",
				Details: err.Error(),
			})
			return
		}
		filters.DateFrom = &from
	}

	list, err := h.taskService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// GetTask retrieves one ledger task
// @Summary Get GenAI task
// @Tags tasks
// @Produce json
// @Param id path uint true "Task ID"
// @Success 200 {object} models.GenAITask
// @Failure 404 {object} ErrorResponse
// @Router /genai/tasks/{id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}
