package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/classpulse/interaction-service/internal/cache"
	"github.com/classpulse/interaction-service/internal/events"
	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/repositories"
	"github.com/classpulse/interaction-service/internal/validator"
)

// ===== REQUEST / RESPONSE TYPES =====

type CreateActivityRequest struct {
	CourseID uint                `json:"course_id" validate:"required"`
	Title    string              `json:"title" validate:"required,min=1,max=128"`
	Type     models.ActivityType `json:"type" validate:"required,activity_type"`
	Content  json.RawMessage     `json:"content" validate:"required"`
}

type SubmitResponseRequest struct {
	ResponseData json.RawMessage `json:"response_data" validate:"required"`
}

type ActivityListResponse struct {
	Activities []*models.Activity `json:"activities"`
	Total      int64              `json:"total"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

// ActivityService manages the activity lifecycle: creation, activation and
// response collection.
type ActivityService interface {
	Create(ctx context.Context, req *CreateActivityRequest, creatorID uint) (*models.Activity, error)
	GetByID(ctx context.Context, id uint, userID uint) (*models.Activity, error)
	ListByCourse(ctx context.Context, courseID uint, filters repositories.ActivityFilters, userID uint) (*ActivityListResponse, error)
	SetActive(ctx context.Context, id uint, active bool, userID uint) (*models.Activity, error)

	SubmitResponse(ctx context.Context, activityID uint, req *SubmitResponseRequest, responderID uint) (*models.Response, error)
	GetResponses(ctx context.Context, activityID uint, userID uint) ([]*models.Response, error)
	GetMyResponse(ctx context.Context, activityID uint, responderID uint) (*models.Response, error)

	GetReport(ctx context.Context, activityID uint, userID uint) (*ActivityReport, error)
}

type activityService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	cache     cache.CacheService
	publisher events.EventPublisher
	opLogger  *ServiceLogger
}

func NewActivityService(
	repo repositories.Repository,
	logger *slog.Logger,
	v *validator.Validator,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
) ActivityService {
	return &activityService{
		repo:      repo,
		logger:    logger,
		validator: v,
		cache:     cacheService,
		publisher: publisher,
		opLogger:  NewServiceLogger(logger, LogConfig{Service: "interaction", Component: "activity"}),
	}
}

// ===== LIFECYCLE =====

func (s *activityService) Create(ctx context.Context, req *CreateActivityRequest, creatorID uint) (_ *models.Activity, err error) {
	timer := s.opLogger.StartOperation("activity.create", creatorID, 0, "activity")
	defer func() { timer.End(ctx, err) }()

	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}

	course, err := s.repo.Course().GetByID(ctx, req.CourseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course.LecturerID != creatorID {
		return nil, NewPermissionError(creatorID, course.ID, "course", "create_activity", "not the course lecturer")
	}

	// Content shape is validated once here; it is immutable afterwards.
	if err = s.validator.Content().ValidateContent(req.Type, req.Content); err != nil {
		return nil, err
	}

	activity := &models.Activity{
		CourseID:  req.CourseID,
		CreatorID: creatorID,
		Title:     req.Title,
		Type:      req.Type,
		Content:   datatypes.JSON(req.Content),
		IsActive:  false,
	}

	if err = s.repo.Activity().Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}
	timer.SetResourceID(activity.ID)

	s.publishEvent(ctx, events.NewActivityCreatedEvent(activity))

	s.logger.Info("Activity created", "activity_id", activity.ID, "course_id", activity.CourseID, "type", activity.Type)
	return activity, nil
}

func (s *activityService) GetByID(ctx context.Context, id uint, userID uint) (*models.Activity, error) {
	activity, err := s.repo.Activity().GetByIDWithCourse(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}

	if err := s.canAccessActivity(ctx, activity, userID); err != nil {
		return nil, err
	}

	count, err := s.repo.Response().CountByActivity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count responses: %w", err)
	}
	activity.ResponseCount = int(count)

	return activity, nil
}

func (s *activityService) ListByCourse(ctx context.Context, courseID uint, filters repositories.ActivityFilters, userID uint) (*ActivityListResponse, error) {
	course, err := s.repo.Course().GetByID(ctx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	if course.LecturerID != userID {
		enrolled, err := s.repo.Enrollment().IsEnrolled(ctx, courseID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check enrollment: %w", err)
		}
		if !enrolled {
			return nil, NewPermissionError(userID, courseID, "course", "list_activities", "not enrolled and not the lecturer")
		}
		// Students only see activities that are open for responses.
		active := true
		filters.IsActive = &active
	}

	activities, total, err := s.repo.Activity().ListByCourse(ctx, courseID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	return &ActivityListResponse{
		Activities: activities,
		Total:      total,
		Limit:      filters.Limit,
		Offset:     filters.Offset,
	}, nil
}

func (s *activityService) SetActive(ctx context.Context, id uint, active bool, userID uint) (_ *models.Activity, err error) {
	timer := s.opLogger.StartOperation("activity.set_active", userID, id, "activity")
	defer func() { timer.End(ctx, err) }()

	activity, err := s.repo.Activity().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}

	if activity.CreatorID != userID {
		return nil, NewPermissionError(userID, id, "activity", "set_active", "not the activity creator")
	}

	// Idempotent: re-applying the current state is a no-op and emits nothing.
	if activity.IsActive == active {
		return activity, nil
	}

	if err = s.repo.Activity().SetActive(ctx, id, active); err != nil {
		return nil, fmt.Errorf("failed to update activity state: %w", err)
	}
	activity.IsActive = active

	s.publishEvent(ctx, events.NewActivityStateChangedEvent(activity, userID))

	s.logger.Info("Activity state changed", "activity_id", id, "is_active", active, "user_id", userID)
	return activity, nil
}

// ===== RESPONSES =====

func (s *activityService) SubmitResponse(ctx context.Context, activityID uint, req *SubmitResponseRequest, responderID uint) (_ *models.Response, err error) {
	timer := s.opLogger.StartOperation("response.submit", responderID, activityID, "response")
	defer func() { timer.End(ctx, err) }()

	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}

	activity, err := s.repo.Activity().GetByID(ctx, activityID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}

	if !activity.IsActive {
		return nil, ErrActivityInactive
	}

	enrolled, err := s.repo.Enrollment().IsEnrolled(ctx, activity.CourseID, responderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	if err = s.validator.Content().ValidateResponsePayload(activity, req.ResponseData); err != nil {
		return nil, err
	}

	existing, err := s.repo.Response().GetByActivityAndResponder(ctx, activityID, responderID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up existing response: %w", err)
	}

	// Quiz answers are first-write-wins; everything else overwrites in place.
	if existing != nil && activity.Type == models.TypeQuiz {
		return nil, ErrDuplicateSubmission
	}

	now := time.Now().UTC()
	var response *models.Response
	resubmission := existing != nil

	if resubmission {
		existing.ResponseData = datatypes.JSON(req.ResponseData)
		existing.SubmittedAt = now
		existing.IsCorrect = s.deriveCorrectness(activity, req.ResponseData)
		if err = s.repo.Response().Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to update response: %w", err)
		}
		response = existing
	} else {
		response = &models.Response{
			ActivityID:   activityID,
			ResponderID:  responderID,
			ResponseData: datatypes.JSON(req.ResponseData),
			SubmittedAt:  now,
			IsCorrect:    s.deriveCorrectness(activity, req.ResponseData),
		}
		if err = s.repo.Response().Create(ctx, response); err != nil {
			return nil, fmt.Errorf("failed to create response: %w", err)
		}
	}

	s.invalidateReportCache(ctx, activityID)
	s.publishEvent(ctx, events.NewResponseSubmittedEvent(response, activity, resubmission))

	return response, nil
}

func (s *activityService) GetResponses(ctx context.Context, activityID uint, userID uint) ([]*models.Response, error) {
	activity, err := s.repo.Activity().GetByID(ctx, activityID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}

	isOwner, err := s.repo.Course().IsOwner(ctx, activity.CourseID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check course ownership: %w", err)
	}
	if !isOwner {
		return nil, NewPermissionError(userID, activityID, "activity", "list_responses", "not the course lecturer")
	}

	responses, err := s.repo.Response().ListByActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	return responses, nil
}

func (s *activityService) GetMyResponse(ctx context.Context, activityID uint, responderID uint) (*models.Response, error) {
	response, err := s.repo.Response().GetByActivityAndResponder(ctx, activityID, responderID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResponseNotFound
		}
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	return response, nil
}

// ===== INTERNAL HELPERS =====

// canAccessActivity allows the course lecturer and enrolled students.
func (s *activityService) canAccessActivity(ctx context.Context, activity *models.Activity, userID uint) error {
	if activity.Course.LecturerID == userID || activity.CreatorID == userID {
		return nil
	}
	enrolled, err := s.repo.Enrollment().IsEnrolled(ctx, activity.CourseID, userID)
	if err != nil {
		return fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return NewPermissionError(userID, activity.ID, "activity", "read", "not enrolled and not the lecturer")
	}
	return nil
}

// deriveCorrectness grades quiz answers at submission time. Non-quiz
// activities have no notion of correctness and get nil.
func (s *activityService) deriveCorrectness(activity *models.Activity, payload json.RawMessage) *bool {
	if activity.Type != models.TypeQuiz {
		return nil
	}

	var content models.QuizContent
	if err := json.Unmarshal(activity.Content, &content); err != nil {
		s.logger.Warn("Quiz content unreadable during grading", "activity_id", activity.ID, "error", err)
		return nil
	}
	var answer models.QuizResponse
	if err := json.Unmarshal(payload, &answer); err != nil {
		return nil
	}

	correct := answer.Answer == content.CorrectAnswer
	return &correct
}

func (s *activityService) invalidateReportCache(ctx context.Context, activityID uint) {
	key := reportCacheKey(activityID)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to invalidate report cache", "key", key, "error", err)
	}
}

// publishEvent delivers a lifecycle event; delivery failure is logged and
// never fails the originating request.
func (s *activityService) publishEvent(ctx context.Context, event *events.ClassroomEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
