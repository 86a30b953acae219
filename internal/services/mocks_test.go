package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/classpulse/interaction-service/internal/cache"
	"github.com/classpulse/interaction-service/internal/genai"
	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/repositories"
)

// ===== REPOSITORY MOCKS =====

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByCasdoorSubject(ctx context.Context, subject string) (*models.User, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByStudentNumber(ctx context.Context, studentNumber string) (*models.User, error) {
	args := m.Called(ctx, studentNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, ids []uint) ([]*models.User, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) HasRole(ctx context.Context, id uint, role models.UserRole) (bool, error) {
	args := m.Called(ctx, id, role)
	return args.Bool(0), args.Error(1)
}

type MockCourseRepository struct {
	mock.Mock
}

func (m *MockCourseRepository) Create(ctx context.Context, course *models.Course) error {
	args := m.Called(ctx, course)
	return args.Error(0)
}

func (m *MockCourseRepository) GetByID(ctx context.Context, id uint) (*models.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *MockCourseRepository) GetByCode(ctx context.Context, code string) (*models.Course, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *MockCourseRepository) Update(ctx context.Context, course *models.Course) error {
	args := m.Called(ctx, course)
	return args.Error(0)
}

func (m *MockCourseRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCourseRepository) ListByLecturer(ctx context.Context, lecturerID uint) ([]*models.Course, error) {
	args := m.Called(ctx, lecturerID)
	return args.Get(0).([]*models.Course), args.Error(1)
}

func (m *MockCourseRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockCourseRepository) IsOwner(ctx context.Context, courseID, userID uint) (bool, error) {
	args := m.Called(ctx, courseID, userID)
	return args.Bool(0), args.Error(1)
}

type MockEnrollmentRepository struct {
	mock.Mock
}

func (m *MockEnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	args := m.Called(ctx, enrollment)
	return args.Error(0)
}

func (m *MockEnrollmentRepository) GetByCourseAndStudent(ctx context.Context, courseID, studentID uint) (*models.Enrollment, error) {
	args := m.Called(ctx, courseID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Enrollment), args.Error(1)
}

func (m *MockEnrollmentRepository) ListByCourse(ctx context.Context, courseID uint) ([]*models.Enrollment, error) {
	args := m.Called(ctx, courseID)
	return args.Get(0).([]*models.Enrollment), args.Error(1)
}

func (m *MockEnrollmentRepository) ListByStudent(ctx context.Context, studentID uint) ([]*models.Enrollment, error) {
	args := m.Called(ctx, studentID)
	return args.Get(0).([]*models.Enrollment), args.Error(1)
}

func (m *MockEnrollmentRepository) IsEnrolled(ctx context.Context, courseID, studentID uint) (bool, error) {
	args := m.Called(ctx, courseID, studentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnrollmentRepository) CountByCourse(ctx context.Context, courseID uint) (int64, error) {
	args := m.Called(ctx, courseID)
	return args.Get(0).(int64), args.Error(1)
}

type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	args := m.Called(ctx, activity)
	return args.Error(0)
}

func (m *MockActivityRepository) GetByID(ctx context.Context, id uint) (*models.Activity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Activity), args.Error(1)
}

func (m *MockActivityRepository) GetByIDWithCourse(ctx context.Context, id uint) (*models.Activity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Activity), args.Error(1)
}

func (m *MockActivityRepository) Update(ctx context.Context, activity *models.Activity) error {
	args := m.Called(ctx, activity)
	return args.Error(0)
}

func (m *MockActivityRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockActivityRepository) List(ctx context.Context, filters repositories.ActivityFilters) ([]*models.Activity, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Activity), args.Get(1).(int64), args.Error(2)
}

func (m *MockActivityRepository) ListByCourse(ctx context.Context, courseID uint, filters repositories.ActivityFilters) ([]*models.Activity, int64, error) {
	args := m.Called(ctx, courseID, filters)
	return args.Get(0).([]*models.Activity), args.Get(1).(int64), args.Error(2)
}

func (m *MockActivityRepository) SetActive(ctx context.Context, id uint, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockActivityRepository) IsCreator(ctx context.Context, activityID, userID uint) (bool, error) {
	args := m.Called(ctx, activityID, userID)
	return args.Bool(0), args.Error(1)
}

type MockResponseRepository struct {
	mock.Mock
}

func (m *MockResponseRepository) Create(ctx context.Context, response *models.Response) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}

func (m *MockResponseRepository) GetByID(ctx context.Context, id uint) (*models.Response, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Response), args.Error(1)
}

func (m *MockResponseRepository) Update(ctx context.Context, response *models.Response) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}

func (m *MockResponseRepository) GetByActivityAndResponder(ctx context.Context, activityID, responderID uint) (*models.Response, error) {
	args := m.Called(ctx, activityID, responderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Response), args.Error(1)
}

func (m *MockResponseRepository) ListByActivity(ctx context.Context, activityID uint) ([]*models.Response, error) {
	args := m.Called(ctx, activityID)
	return args.Get(0).([]*models.Response), args.Error(1)
}

func (m *MockResponseRepository) CountByActivity(ctx context.Context, activityID uint) (int64, error) {
	args := m.Called(ctx, activityID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockResponseRepository) AssignGroups(ctx context.Context, assignments []repositories.GroupAssignment) error {
	args := m.Called(ctx, assignments)
	return args.Error(0)
}

func (m *MockResponseRepository) GroupCounts(ctx context.Context, activityID uint) (map[int]int, error) {
	args := m.Called(ctx, activityID)
	return args.Get(0).(map[int]int), args.Error(1)
}

type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, task *models.GenAITask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uint) (*models.GenAITask, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GenAITask), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, task *models.GenAITask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) List(ctx context.Context, filters repositories.TaskFilters) ([]*models.GenAITask, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.GenAITask), args.Get(1).(int64), args.Error(2)
}

func (m *MockTaskRepository) LatestCompletedGrouping(ctx context.Context, activityID uint) (*models.GenAITask, error) {
	args := m.Called(ctx, activityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GenAITask), args.Error(1)
}

// ===== AGGREGATE MOCK =====

// MockRepository bundles the entity mocks behind the aggregate interface.
// Begin returns the same instance so transactional code paths run against
// the same expectations.
type MockRepository struct {
	userRepo       *MockUserRepository
	courseRepo     *MockCourseRepository
	enrollmentRepo *MockEnrollmentRepository
	activityRepo   *MockActivityRepository
	responseRepo   *MockResponseRepository
	taskRepo       *MockTaskRepository

	commits   int
	rollbacks int
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		userRepo:       &MockUserRepository{},
		courseRepo:     &MockCourseRepository{},
		enrollmentRepo: &MockEnrollmentRepository{},
		activityRepo:   &MockActivityRepository{},
		responseRepo:   &MockResponseRepository{},
		taskRepo:       &MockTaskRepository{},
	}
}

func (m *MockRepository) User() repositories.UserRepository             { return m.userRepo }
func (m *MockRepository) Course() repositories.CourseRepository         { return m.courseRepo }
func (m *MockRepository) Enrollment() repositories.EnrollmentRepository { return m.enrollmentRepo }
func (m *MockRepository) Activity() repositories.ActivityRepository     { return m.activityRepo }
func (m *MockRepository) Response() repositories.ResponseRepository     { return m.responseRepo }
func (m *MockRepository) Task() repositories.TaskRepository             { return m.taskRepo }

func (m *MockRepository) Begin(ctx context.Context) (repositories.Repository, error) {
	return m, nil
}

func (m *MockRepository) Commit(ctx context.Context) error {
	m.commits++
	return nil
}

func (m *MockRepository) Rollback(ctx context.Context) error {
	m.rollbacks++
	return nil
}

func (m *MockRepository) assertExpectations(t mock.TestingT) {
	m.userRepo.AssertExpectations(t)
	m.courseRepo.AssertExpectations(t)
	m.enrollmentRepo.AssertExpectations(t)
	m.activityRepo.AssertExpectations(t)
	m.responseRepo.AssertExpectations(t)
	m.taskRepo.AssertExpectations(t)
}

// ===== ORACLE MOCK =====

type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) GenerateActivityDraft(ctx context.Context, topic string, activityType models.ActivityType) (*genai.ActivityDraft, error) {
	args := m.Called(ctx, topic, activityType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*genai.ActivityDraft), args.Error(1)
}

func (m *MockOracle) GroupAnswers(ctx context.Context, answers []string) (*genai.GroupingOutput, error) {
	args := m.Called(ctx, answers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*genai.GroupingOutput), args.Error(1)
}

// ===== TEST HELPERS =====

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// noopCache always misses; writes and deletes succeed silently.
type noopCache struct{}

func (noopCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (noopCache) Get(ctx context.Context, key string, dest interface{}) error {
	return cache.ErrCacheMiss
}

func (noopCache) Delete(ctx context.Context, key string) error         { return nil }
func (noopCache) DeletePattern(ctx context.Context, pattern string) error { return nil }
