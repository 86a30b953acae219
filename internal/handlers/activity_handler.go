package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/repositories"
	"github.com/classpulse/interaction-service/internal/services"
	"github.com/classpulse/interaction-service/internal/utils"
)

type ActivityHandler struct {
	BaseHandler
	activityService services.ActivityService
}

func NewActivityHandler(activityService services.ActivityService, logger utils.Logger) *ActivityHandler {
	return &ActivityHandler{
		BaseHandler:     NewBaseHandler(logger),
		activityService: activityService,
	}
}

// CreateActivity creates a new activity
// @Summary Create activity
// @Tags activities
// @Accept json
// @Produce json
// @Param activity body services.CreateActivityRequest true "Activity data"
// @Success 201 {object} models.Activity
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /activities [post]
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	var req services.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	activity, err := h.activityService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, activity)
}

// GetActivity retrieves an activity by ID
// @Summary Get activity
// @Tags activities
// @Produce json
// @Param id path uint true "Activity ID"
// @Success 200 {object} models.Activity
// @Failure 404 {object} ErrorResponse
// @Router /activities/{id} [get]
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	activity, err := h.activityService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, activity)
}

// ListCourseActivities lists a course's activities. Students only see
// activities that are currently open.
// @Summary List course activities
// @Tags activities
// @Produce json
// @Param id path uint true "Course ID"
// @Param type query string false "Activity type filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} services.ActivityListResponse
// @Router /courses/{id}/activities [get]
func (h *ActivityHandler) ListCourseActivities(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	filters := repositories.ActivityFilters{
		Limit:     h.parseIntQuery(c, "limit", 50),
		Offset:    h.parseIntQuery(c, "offset", 0),
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}
	if typeStr := c.Query("type"); typeStr != "" {
		activityType := models.ActivityType(typeStr)
		filters.Type = &activityType
	}

	list, err := h.activityService.ListByCourse(c.Request.Context(), courseID, filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetActivityState activates or deactivates an activity
// @Summary Activate or deactivate activity
// @Tags activities
// @Accept json
// @Produce json
// @Param id path uint true "Activity ID"
// @Param state body setActiveRequest true "Desired state"
// @Success 200 {object} models.Activity
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /activities/{id}/active [put]
func (h *ActivityHandler) SetActivityState(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Changing activity state", "activity_id", id, "is_active", *req.IsActive)

	activity, err := h.activityService.SetActive(c.Request.Context(), id, *req.IsActive, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, activity)
}

// SubmitResponse submits the requester's response to an activity
// @Summary Submit response
// @Tags responses
// @Accept json
// @Produce json
// @Param id path uint true "Activity ID"
// @Param response body services.SubmitResponseRequest true "Response payload"
// @Success 201 {object} models.Response
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /activities/{id}/responses [post]
func (h *ActivityHandler) SubmitResponse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.SubmitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	response, err := h.activityService.SubmitResponse(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListResponses lists all responses to an activity (lecturer only)
// @Summary List responses
// @Tags responses
// @Produce json
// @Param id path uint true "Activity ID"
// @Success 200 {array} models.Response
// @Failure 403 {object} ErrorResponse
// @Router /activities/{id}/responses [get]
func (h *ActivityHandler) ListResponses(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	responses, err := h.activityService.GetResponses(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses)
}

// GetMyResponse retrieves the requester's own response to an activity
// @Summary Get my response
// @Tags responses
// @Produce json
// @Param id path uint true "Activity ID"
// @Success 200 {object} models.Response
// @Failure 404 {object} ErrorResponse
// @Router /activities/{id}/responses/me [get]
func (h *ActivityHandler) GetMyResponse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	response, err := h.activityService.GetMyResponse(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetReport returns the aggregated report for an activity (lecturer only)
// @Summary Get activity report
// @Tags activities
// @Produce json
// @Param id path uint true "Activity ID"
// @Success 200 {object} services.ActivityReport
// @Failure 403 {object} ErrorResponse
// @Router /activities/{id}/report [get]
func (h *ActivityHandler) GetReport(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	report, err := h.activityService.GetReport(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
