package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/services"
	"github.com/classpulse/interaction-service/internal/utils"
)

type HandlerManager struct {
	courseHandler   *CourseHandler
	activityHandler *ActivityHandler
	genaiHandler    *GenAIHandler
	taskHandler     *TaskHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		courseHandler:   NewCourseHandler(serviceManager.Course(), logger),
		activityHandler: NewActivityHandler(serviceManager.Activity(), logger),
		genaiHandler:    NewGenAIHandler(serviceManager.Generation(), serviceManager.Grouping(), logger),
		taskHandler:     NewTaskHandler(serviceManager.Task(), logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, auth *AuthMiddleware) {
	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "interaction-service",
		})
	})

	// API v1 routes, all authenticated
	v1 := router.Group("/api/v1")
	v1.Use(auth.Handler())
	{
		// Course routes
		courses := v1.Group("/courses")
		{
			courses.POST("", RequireRole(models.RoleLecturer), hm.courseHandler.CreateCourse)
			courses.GET("", hm.courseHandler.ListCourses)
			courses.GET("/:id", hm.courseHandler.GetCourse)

			// Roster management
			courses.GET("/:id/enrollments", hm.courseHandler.ListRoster)
			courses.POST("/:id/enrollments", RequireRole(models.RoleLecturer), hm.courseHandler.EnrollStudent)
			courses.POST("/:id/roster/import", RequireRole(models.RoleLecturer), hm.courseHandler.ImportRoster)

			// Activities scoped to a course
			courses.GET("/:id/activities", hm.activityHandler.ListCourseActivities)
		}

		// Activity routes
		activities := v1.Group("/activities")
		{
			activities.POST("", RequireRole(models.RoleLecturer), hm.activityHandler.CreateActivity)
			activities.GET("/:id", hm.activityHandler.GetActivity)
			activities.PUT("/:id/active", RequireRole(models.RoleLecturer), hm.activityHandler.SetActivityState)
			activities.GET("/:id/report", RequireRole(models.RoleLecturer), hm.activityHandler.GetReport)

			// Responses
			activities.POST("/:id/responses", hm.activityHandler.SubmitResponse)
			activities.GET("/:id/responses", RequireRole(models.RoleLecturer), hm.activityHandler.ListResponses)
			activities.GET("/:id/responses/me", hm.activityHandler.GetMyResponse)

			// Answer grouping
			activities.POST("/:id/group-answers", RequireRole(models.RoleLecturer), hm.genaiHandler.GroupAnswers)
		}

		// GenAI routes
		genai := v1.Group("/genai")
		{
			genai.POST("/drafts", RequireRole(models.RoleLecturer), hm.genaiHandler.GenerateDraft)
			genai.GET("/tasks", hm.taskHandler.ListTasks)
			genai.GET("/tasks/:id", hm.taskHandler.GetTask)
		}
	}
}
