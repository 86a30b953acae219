package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/services"
	"github.com/classpulse/interaction-service/internal/utils"
)

type CourseHandler struct {
	BaseHandler
	courseService services.CourseService
}

func NewCourseHandler(courseService services.CourseService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler:   NewBaseHandler(logger),
		courseService: courseService,
	}
}

// CreateCourse creates a new course
// @Summary Create course
// @Tags courses
// @Accept json
// @Produce json
// @Param course body services.CreateCourseRequest true "Course data"
// @Success 201 {object} models.Course
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /courses [post]
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req services.CreateCourseRequest
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

	course, err := h.courseService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, course)
}

// GetCourse retrieves a course by ID
// @Summary Get course
// @Tags courses
// @Produce json
// @Param id path uint true "Course ID"
// @Success 200 {object} models.Course
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [get]
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	course, err := h.courseService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// ListCourses lists the requester's courses: taught courses for lecturers,
// enrolled courses for students.
// @Summary List my courses
// @Tags courses
// @Produce json
// @Success 200 {array} models.Course
// @Router /courses [get]
func (h *CourseHandler) ListCourses(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	role, _ := c.Get("user_role")

	var (
		courses []*models.Course
		err     error
	)
	if role == models.RoleLecturer || role == models.RoleAdmin {
		courses, err = h.courseService.ListByLecturer(c.Request.Context(), userID)
	} else {
		courses, err = h.courseService.ListEnrolled(c.Request.Context(), userID)
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, courses)
}

// EnrollStudent enrolls a single student in a course
// @Summary Enroll student
// @Tags courses
// @Accept json
// @Produce json
// @Param id path uint true "Course ID"
// @Param enrollment body services.EnrollRequest true "Student reference"
// @Success 201 {object} models.Enrollment
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /courses/{id}/enrollments [post]
func (h *CourseHandler) EnrollStudent(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.EnrollRequest
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

	enrollment, err := h.courseService.Enroll(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

// ListRoster lists a course's enrollments
// @Summary List roster
// @Tags courses
// @Produce json
// @Param id path uint true "Course ID"
// @Success 200 {array} models.Enrollment
// @Router /courses/{id}/enrollments [get]
func (h *CourseHandler) ListRoster(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	roster, err := h.courseService.ListRoster(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, roster)
}

type importRosterRequest struct {
	Entries []services.RosterEntry `json:"entries"`
}

// ImportRoster bulk-enrolls students from a JSON body or an uploaded
// roster file (multipart "file" field, .csv or .xlsx).
// @Summary Import roster
// @Tags courses
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Param id path uint true "Course ID"
// @Success 200 {object} services.RosterImportResult
// @Failure 400 {object} ErrorResponse
// @Router /courses/{id}/roster/import [post]
func (h *CourseHandler) ImportRoster(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Importing roster", "course_id", id)

	var (
		result *services.RosterImportResult
		err    error
	)
	if file, header, fileErr := c.Request.FormFile("file"); fileErr == nil {
		defer file.Close()
		result, err = h.courseService.ImportRosterFromFile(c.Request.Context(), id, file, header.Filename, userID)
	} else {
		var req importRosterRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: bindErr.Error(),
			})
			return
		}
		result, err = h.courseService.ImportRoster(c.Request.Context(), id, req.Entries, userID)
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
