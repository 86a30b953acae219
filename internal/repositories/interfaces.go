package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/classpulse/interaction-service/internal/models"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type ActivityFilters struct {
	CourseID  *uint                `json:"course_id"`
	CreatorID *uint                `json:"creator_id"`
	Type      *models.ActivityType `json:"type"`
	IsActive  *bool                `json:"is_active"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`    // "created_at", "title"
	SortOrder string               `json:"sort_order"` // "asc", "desc"
}

type TaskFilters struct {
	UserID   *uint              `json:"user_id"`
	TaskType *models.TaskType   `json:"task_type"`
	Status   *models.TaskStatus `json:"status"`
	DateFrom *time.Time         `json:"date_from"`
	DateTo   *time.Time         `json:"date_to"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

// ===== AGGREGATE REPOSITORY =====

// Repository aggregates all entity repositories behind one unit of work.
type Repository interface {
	User() UserRepository
	Course() CourseRepository
	Enrollment() EnrollmentRepository
	Activity() ActivityRepository
	Response() ResponseRepository
	Task() TaskRepository
}

// TransactionRepository is implemented by repositories that can scope all
// entity operations to one database transaction.
type TransactionRepository interface {
	Repository
	Begin(ctx context.Context) (Repository, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// IsNotFoundError reports whether err represents a missing record.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
