package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/repositories"
	"github.com/classpulse/interaction-service/internal/validator"
)

// ===== REQUEST / RESPONSE TYPES =====

type CreateCourseRequest struct {
	Code string `json:"code" validate:"required,min=1,max=10"`
	Name string `json:"name" validate:"required,min=1,max=128"`
}

type EnrollRequest struct {
	// Exactly one of StudentID or Username identifies the student.
	StudentID uint   `json:"student_id"`
	Username  string `json:"username"`
}

// CourseService manages courses and their enrollment rosters.
type CourseService interface {
	Create(ctx context.Context, req *CreateCourseRequest, lecturerID uint) (*models.Course, error)
	GetByID(ctx context.Context, id uint, userID uint) (*models.Course, error)
	ListByLecturer(ctx context.Context, lecturerID uint) ([]*models.Course, error)
	ListEnrolled(ctx context.Context, studentID uint) ([]*models.Course, error)

	Enroll(ctx context.Context, courseID uint, req *EnrollRequest, actorID uint) (*models.Enrollment, error)
	ListRoster(ctx context.Context, courseID uint, actorID uint) ([]*models.Enrollment, error)

	ImportRoster(ctx context.Context, courseID uint, entries []RosterEntry, actorID uint) (*RosterImportResult, error)
	ImportRosterFromFile(ctx context.Context, courseID uint, file io.Reader, filename string, actorID uint) (*RosterImportResult, error)
}

type courseService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	opLogger  *ServiceLogger
}

func NewCourseService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator) CourseService {
	return &courseService{
		repo:      repo,
		logger:    logger,
		validator: v,
		opLogger:  NewServiceLogger(logger, LogConfig{Service: "interaction", Component: "course"}),
	}
}

// ===== CRUD OPERATIONS =====

func (s *courseService) Create(ctx context.Context, req *CreateCourseRequest, lecturerID uint) (_ *models.Course, err error) {
	timer := s.opLogger.StartOperation("course.create", lecturerID, 0, "course")
	defer func() { timer.End(ctx, err) }()

	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}

	isLecturer, err := s.repo.User().HasRole(ctx, lecturerID, models.RoleLecturer)
	if err != nil {
		return nil, fmt.Errorf("failed to check role: %w", err)
	}
	if !isLecturer {
		return nil, NewPermissionError(lecturerID, 0, "course", "create", "lecturer role required")
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	exists, err := s.repo.Course().ExistsByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to check course code: %w", err)
	}
	if exists {
		return nil, ErrCourseCodeTaken
	}

	course := &models.Course{
		Code:       code,
		Name:       strings.TrimSpace(req.Name),
		LecturerID: lecturerID,
	}
	if err = s.repo.Course().Create(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	timer.SetResourceID(course.ID)

	s.logger.Info("Course created", "course_id", course.ID, "code", course.Code, "lecturer_id", lecturerID)
	return course, nil
}

func (s *courseService) GetByID(ctx context.Context, id uint, userID uint) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	if course.LecturerID != userID {
		enrolled, err := s.repo.Enrollment().IsEnrolled(ctx, id, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check enrollment: %w", err)
		}
		if !enrolled {
			return nil, NewPermissionError(userID, id, "course", "read", "not enrolled and not the lecturer")
		}
	}

	count, err := s.repo.Enrollment().CountByCourse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count enrollments: %w", err)
	}
	course.EnrollmentCount = int(count)

	return course, nil
}

func (s *courseService) ListByLecturer(ctx context.Context, lecturerID uint) ([]*models.Course, error) {
	courses, err := s.repo.Course().ListByLecturer(ctx, lecturerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

func (s *courseService) ListEnrolled(ctx context.Context, studentID uint) ([]*models.Course, error) {
	enrollments, err := s.repo.Enrollment().ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	courses := make([]*models.Course, 0, len(enrollments))
	for _, e := range enrollments {
		course := e.Course
		courses = append(courses, &course)
	}
	return courses, nil
}

// ===== ENROLLMENT =====

func (s *courseService) Enroll(ctx context.Context, courseID uint, req *EnrollRequest, actorID uint) (_ *models.Enrollment, err error) {
	timer := s.opLogger.StartOperation("course.enroll", actorID, courseID, "enrollment")
	defer func() { timer.End(ctx, err) }()

	if err = s.requireOwner(ctx, courseID, actorID, "enroll"); err != nil {
		return nil, err
	}

	student, err := s.resolveStudent(ctx, req)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.repo.Enrollment().IsEnrolled(ctx, courseID, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	enrollment := &models.Enrollment{CourseID: courseID, StudentID: student.ID}
	if err = s.repo.Enrollment().Create(ctx, enrollment); err != nil {
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}
	enrollment.Student = *student

	s.logger.Info("Student enrolled", "course_id", courseID, "student_id", student.ID)
	return enrollment, nil
}

func (s *courseService) ListRoster(ctx context.Context, courseID uint, actorID uint) ([]*models.Enrollment, error) {
	if err := s.requireOwner(ctx, courseID, actorID, "list_roster"); err != nil {
		return nil, err
	}

	enrollments, err := s.repo.Enrollment().ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}
	return enrollments, nil
}

// ===== INTERNAL HELPERS =====

func (s *courseService) requireOwner(ctx context.Context, courseID, actorID uint, action string) error {
	_, err := s.repo.Course().GetByID(ctx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrCourseNotFound
		}
		return fmt.Errorf("failed to get course: %w", err)
	}

	isOwner, err := s.repo.Course().IsOwner(ctx, courseID, actorID)
	if err != nil {
		return fmt.Errorf("failed to check course ownership: %w", err)
	}
	if !isOwner {
		return NewPermissionError(actorID, courseID, "course", action, "not the course lecturer")
	}
	return nil
}

func (s *courseService) resolveStudent(ctx context.Context, req *EnrollRequest) (*models.User, error) {
	var (
		student *models.User
		err     error
	)
	switch {
	case req.StudentID != 0:
		student, err = s.repo.User().GetByID(ctx, req.StudentID)
	case req.Username != "":
		student, err = s.repo.User().GetByUsername(ctx, strings.TrimSpace(req.Username))
	default:
		return nil, NewValidationError("student_id", "student_id or username is required", nil)
	}
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up student: %w", err)
	}
	if student.Role != models.RoleStudent {
		return nil, NewBusinessRuleError("enroll_students_only", "only students can be enrolled in a course",
			map[string]interface{}{"user_id": student.ID, "role": student.Role})
	}
	return student, nil
}
