package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/interaction-service/internal/services"
	"github.com/classpulse/interaction-service/internal/utils"
)

type GenAIHandler struct {
	BaseHandler
	generationService services.GenerationService
	groupingService   services.GroupingService
}

func NewGenAIHandler(
	generationService services.GenerationService,
	groupingService services.GroupingService,
	logger utils.Logger,
) *GenAIHandler {
	return &GenAIHandler{
		BaseHandler:       NewBaseHandler(logger),
		generationService: generationService,
		groupingService:   groupingService,
	}
}

// GenerateDraft generates an activity draft from a topic
// @Summary Generate activity draft
// @Tags genai
// @Accept json
// @Produce json
// @Param request body services.GenerateDraftRequest true "Generation request"
// @Success 200 {object} services.DraftResult
// @Failure 422 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /genai/drafts [post]
func (h *GenAIHandler) GenerateDraft(c *gin.Context) {
	var req services.GenerateDraftRequest
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

	h.LogRequest(c, "Generating activity draft", "activity_type", req.ActivityType)

	result, err := h.generationService.GenerateDraft(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GroupAnswers runs the answer-grouping pipeline for a short-answer activity
// @Summary Group short answers
// @Tags genai
// @Produce json
// @Param id path uint true "Activity ID"
// @Success 200 {object} services.GroupingResult
// @Failure 422 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /activities/{id}/group-answers [post]
func (h *GenAIHandler) GroupAnswers(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Grouping answers", "activity_id", id)

	result, err := h.groupingService.GroupAnswers(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
