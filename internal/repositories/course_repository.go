package repositories

import (
	"context"

	"github.com/classpulse/interaction-service/internal/models"
)

// CourseRepository interface for course operations
type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id uint) (*models.Course, error)
	GetByCode(ctx context.Context, code string) (*models.Course, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id uint) error // Soft delete

	ListByLecturer(ctx context.Context, lecturerID uint) ([]*models.Course, error)

	// Validation helpers
	ExistsByCode(ctx context.Context, code string) (bool, error)
	IsOwner(ctx context.Context, courseID, userID uint) (bool, error)
}

// EnrollmentRepository interface for enrollment operations
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	GetByCourseAndStudent(ctx context.Context, courseID, studentID uint) (*models.Enrollment, error)
	ListByCourse(ctx context.Context, courseID uint) ([]*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID uint) ([]*models.Enrollment, error)

	IsEnrolled(ctx context.Context, courseID, studentID uint) (bool, error)
	CountByCourse(ctx context.Context, courseID uint) (int64, error)
}
