package repositories

import (
	"context"

	"github.com/classpulse/interaction-service/internal/models"
)

// ActivityRepository interface for activity operations
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	GetByID(ctx context.Context, id uint) (*models.Activity, error)
	GetByIDWithCourse(ctx context.Context, id uint) (*models.Activity, error)
	Update(ctx context.Context, activity *models.Activity) error
	Delete(ctx context.Context, id uint) error // Soft delete

	// Query operations
	List(ctx context.Context, filters ActivityFilters) ([]*models.Activity, int64, error)
	ListByCourse(ctx context.Context, courseID uint, filters ActivityFilters) ([]*models.Activity, int64, error)

	// State management
	SetActive(ctx context.Context, id uint, active bool) error

	// Permission checks
	IsCreator(ctx context.Context, activityID, userID uint) (bool, error)
}

// GroupAssignment maps one response row to its grouping surrogate id.
type GroupAssignment struct {
	ResponseID uint `json:"response_id"`
	GroupID    int  `json:"group_id"`
}

// ResponseRepository interface for response operations
type ResponseRepository interface {
	Create(ctx context.Context, response *models.Response) error
	GetByID(ctx context.Context, id uint) (*models.Response, error)
	Update(ctx context.Context, response *models.Response) error

	// GetByActivityAndResponder returns the single response a participant has
	// for an activity, or gorm.ErrRecordNotFound.
	GetByActivityAndResponder(ctx context.Context, activityID, responderID uint) (*models.Response, error)

	// ListByActivity returns responses in stable primary-key order; the slice
	// index is the coordinate system the grouping oracle operates on.
	ListByActivity(ctx context.Context, activityID uint) ([]*models.Response, error)

	CountByActivity(ctx context.Context, activityID uint) (int64, error)

	// Grouping reconciliation
	AssignGroups(ctx context.Context, assignments []GroupAssignment) error
	GroupCounts(ctx context.Context, activityID uint) (map[int]int, error)
}

// TaskRepository interface for the GenAI task ledger
type TaskRepository interface {
	Create(ctx context.Context, task *models.GenAITask) error
	GetByID(ctx context.Context, id uint) (*models.GenAITask, error)
	Update(ctx context.Context, task *models.GenAITask) error

	List(ctx context.Context, filters TaskFilters) ([]*models.GenAITask, int64, error)

	// LatestCompletedGrouping returns the newest completed answer_grouping
	// ledger row recorded for the given activity.
	LatestCompletedGrouping(ctx context.Context, activityID uint) (*models.GenAITask, error)
}
