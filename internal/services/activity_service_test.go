package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/classpulse/interaction-service/internal/events"
	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/validator"
)

func newActivityFixture() (*MockRepository, *events.MockEventPublisher, ActivityService) {
	repo := newMockRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewActivityService(repo, testLogger(), validator.New(), noopCache{}, publisher)
	return repo, publisher, svc
}

func TestActivityService_Create(t *testing.T) {
	const (
		courseID   = uint(3)
		lecturerID = uint(7)
	)

	t.Run("creates an inactive activity with valid content", func(t *testing.T) {
		repo, publisher, svc := newActivityFixture()

		repo.courseRepo.On("GetByID", mock.Anything, courseID).
			Return(&models.Course{ID: courseID, LecturerID: lecturerID}, nil)
		repo.activityRepo.On("Create", mock.Anything, mock.MatchedBy(func(a *models.Activity) bool {
			a.ID = 20
			return a.CourseID == courseID && a.CreatorID == lecturerID && !a.IsActive
		})).Return(nil)

		activity, err := svc.Create(context.Background(), &CreateActivityRequest{
			CourseID: courseID,
			Title:    "Favourite color",
			Type:     models.TypePoll,
			Content:  json.RawMessage(`{"question":"Pick one","options":["red","blue"]}`),
		}, lecturerID)
		require.NoError(t, err)
		assert.False(t, activity.IsActive)

		published := publisher.GetPublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventActivityCreated, published[0].Type)
	})

	t.Run("rejects malformed content", func(t *testing.T) {
		repo, _, svc := newActivityFixture()

		repo.courseRepo.On("GetByID", mock.Anything, courseID).
			Return(&models.Course{ID: courseID, LecturerID: lecturerID}, nil)

		_, err := svc.Create(context.Background(), &CreateActivityRequest{
			CourseID: courseID,
			Title:    "Broken quiz",
			Type:     models.TypeQuiz,
			Content:  json.RawMessage(`{"question":"Q","options":["a","b"],"correct_answer":"c"}`),
		}, lecturerID)
		assert.Error(t, err)
		repo.activityRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("denies non-lecturers", func(t *testing.T) {
		repo, _, svc := newActivityFixture()

		repo.courseRepo.On("GetByID", mock.Anything, courseID).
			Return(&models.Course{ID: courseID, LecturerID: lecturerID}, nil)

		_, err := svc.Create(context.Background(), &CreateActivityRequest{
			CourseID: courseID,
			Title:    "Sneaky",
			Type:     models.TypePoll,
			Content:  json.RawMessage(`{"question":"Pick one","options":["red","blue"]}`),
		}, 99)
		var permErr *PermissionError
		assert.ErrorAs(t, err, &permErr)
	})
}

func TestActivityService_SetActive(t *testing.T) {
	const (
		activityID = uint(20)
		creatorID  = uint(7)
	)

	t.Run("activates and publishes a state change", func(t *testing.T) {
		repo, publisher, svc := newActivityFixture()

		repo.activityRepo.On("GetByID", mock.Anything, activityID).
			Return(&models.Activity{ID: activityID, CreatorID: creatorID, IsActive: false}, nil)
		repo.activityRepo.On("SetActive", mock.Anything, activityID, true).Return(nil)

		activity, err := svc.SetActive(context.Background(), activityID, true, creatorID)
		require.NoError(t, err)
		assert.True(t, activity.IsActive)

		published := publisher.GetPublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventActivityActivated, published[0].Type)
	})

	t.Run("re-applying the current state is a no-op", func(t *testing.T) {
		repo, publisher, svc := newActivityFixture()

		repo.activityRepo.On("GetByID", mock.Anything, activityID).
			Return(&models.Activity{ID: activityID, CreatorID: creatorID, IsActive: true}, nil)

		activity, err := svc.SetActive(context.Background(), activityID, true, creatorID)
		require.NoError(t, err)
		assert.True(t, activity.IsActive)

		repo.activityRepo.AssertNotCalled(t, "SetActive", mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, publisher.GetPublishedEvents())
	})

	t.Run("denies non-creators", func(t *testing.T) {
		repo, _, svc := newActivityFixture()

		repo.activityRepo.On("GetByID", mock.Anything, activityID).
			Return(&models.Activity{ID: activityID, CreatorID: creatorID, IsActive: false}, nil)

		_, err := svc.SetActive(context.Background(), activityID, true, 99)
		var permErr *PermissionError
		assert.ErrorAs(t, err, &permErr)
	})
}

func TestActivityService_SubmitResponse(t *testing.T) {
	const (
		activityID = uint(20)
		courseID   = uint(3)
		studentID  = uint(42)
	)

	pollActivity := func() *models.Activity {
		return &models.Activity{
			ID:       activityID,
			CourseID: courseID,
			Type:     models.TypePoll,
			Content:  datatypes.JSON(`{"question":"Pick one","options":["red","blue"]}`),
			IsActive: true,
		}
	}
	quizActivity := func() *models.Activity {
		return &models.Activity{
			ID:       activityID,
			CourseID: courseID,
			Type:     models.TypeQuiz,
			Content:  datatypes.JSON(`{"question":"2+2?","options":["3","4"],"correct_answer":"4"}`),
			IsActive: true,
		}
	}

	t.Run("stores a first submission", func(t *testing.T) {
		repo, publisher, svc := newActivityFixture()

		repo.activityRepo.On("GetByID", mock.Anything, activityID).Return(pollActivity(), nil)
		repo.enrollmentRepo.On("IsEnrolled", mock.Anything, courseID, studentID).Return(true, nil)
		repo.responseRepo.On("GetByActivityAndResponder", mock.Anything, activityID, studentID).
			Return(nil, gorm.ErrRecordNotFound)
		repo.responseRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *models.Response) bool {
			return r.ActivityID == activityID && r.ResponderID == studentID && r.IsCorrect == nil
		})).Return(nil)

		_, err := svc.SubmitResponse(context.Background(), activityID, &SubmitResponseRequest{
			ResponseData: json.RawMessage(`{"selected_option":"red"}`),
		}, studentID)
		require.NoError(t, err)

		published := publisher.GetPublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventResponseSubmitted, published[0].Type)
	})

	t.Run("rejects submissions to inactive activities", func(t *testing.T) {
		repo, _, svc := newActivityFixture()

		inactive := pollActivity()
		inactive.IsActive = false
		repo.activityRepo.On("GetByID", mock.Anything, activityID).Return(inactive, nil)

		_, err := svc.SubmitResponse(context.Background(), activityID, &SubmitResponseRequest{
			ResponseData: json.RawMessage(`{"selected_option":"red"}`),
		}, studentID)
		assert.ErrorIs(t, err, ErrActivityInactive)
	})

	t.Run("rejects unenrolled responders", func(t *testing.T) {
		repo, _, svc := newActivityFixture()

		repo.activityRepo.On("GetByID", mock.Anything, activityID).Return(pollActivity(), nil)
		repo.enrollmentRepo.On("IsEnrolled", mock.Anything, courseID, studentID).Return(false, nil)

		_, err := svc.SubmitResponse(context.Background(), activityID, &SubmitResponseRequest{
			ResponseData: json.RawMessage(`{"selected_option":"red"}`),
		}, studentID)
		assert.ErrorIs(t, err, ErrNotEnrolled)
	})

	t.Run("quiz resubmission is rejected", func(t *testing.T) {
		repo, _, svc := newActivityFixture()

		repo.activityRepo.On("GetByID", mock.Anything, activityID).Return(quizActivity(), nil)
		repo.enrollmentRepo.On("IsEnrolled", mock.Anything, courseID, studentID).Return(true, nil)
		repo.responseRepo.On("GetByActivityAndResponder", mock.Anything, activityID, studentID).
			Return(&models.Response{ID: 101, ActivityID: activityID, ResponderID: studentID}, nil)

		_, err := svc.SubmitResponse(context.Background(), activityID, &SubmitResponseRequest{
			ResponseData: json.RawMessage(`{"answer":"4"}`),
		}, studentID)
		assert.ErrorIs(t, err, ErrDuplicateSubmission)
		repo.responseRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("quiz first submission is graded", func(t *testing.T) {
		repo, _, svc := newActivityFixture()

		repo.activityRepo.On("GetByID", mock.Anything, activityID).Return(quizActivity(), nil)
		repo.enrollmentRepo.On("IsEnrolled", mock.Anything, courseID, studentID).Return(true, nil)
		repo.responseRepo.On("GetByActivityAndResponder", mock.Anything, activityID, studentID).
			Return(nil, gorm.ErrRecordNotFound)
		repo.responseRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *models.Response) bool {
			return r.IsCorrect != nil && *r.IsCorrect
		})).Return(nil)

		response, err := svc.SubmitResponse(context.Background(), activityID, &SubmitResponseRequest{
			ResponseData: json.RawMessage(`{"answer":"4"}`),
		}, studentID)
		require.NoError(t, err)
		require.NotNil(t, response.IsCorrect)
		assert.True(t, *response.IsCorrect)
	})

	t.Run("poll resubmission overwrites in place and keeps the group id", func(t *testing.T) {
		repo, publisher, svc := newActivityFixture()

		groupID := 2
		existing := &models.Response{
			ID:           101,
			ActivityID:   activityID,
			ResponderID:  studentID,
			ResponseData: datatypes.JSON(`{"selected_option":"red"}`),
			GroupID:      &groupID,
		}

		repo.activityRepo.On("GetByID", mock.Anything, activityID).Return(pollActivity(), nil)
		repo.enrollmentRepo.On("IsEnrolled", mock.Anything, courseID, studentID).Return(true, nil)
		repo.responseRepo.On("GetByActivityAndResponder", mock.Anything, activityID, studentID).
			Return(existing, nil)
		repo.responseRepo.On("Update", mock.Anything, mock.MatchedBy(func(r *models.Response) bool {
			return r.ID == 101 && string(r.ResponseData) == `{"selected_option":"blue"}`
		})).Return(nil)

		response, err := svc.SubmitResponse(context.Background(), activityID, &SubmitResponseRequest{
			ResponseData: json.RawMessage(`{"selected_option":"blue"}`),
		}, studentID)
		require.NoError(t, err)

		// The stale grouping assignment stays until the next grouping run.
		require.NotNil(t, response.GroupID)
		assert.Equal(t, 2, *response.GroupID)

		published := publisher.GetPublishedEvents()
		require.Len(t, published, 1)

		payload, ok := published[0].Data.(events.ResponseSubmittedEvent)
		require.True(t, ok)
		assert.True(t, payload.Resubmission)
	})

	t.Run("rejects payloads that do not match the activity content", func(t *testing.T) {
		repo, _, svc := newActivityFixture()

		repo.activityRepo.On("GetByID", mock.Anything, activityID).Return(pollActivity(), nil)
		repo.enrollmentRepo.On("IsEnrolled", mock.Anything, courseID, studentID).Return(true, nil)

		_, err := svc.SubmitResponse(context.Background(), activityID, &SubmitResponseRequest{
			ResponseData: json.RawMessage(`{"selected_option":"green"}`),
		}, studentID)
		assert.Error(t, err)
		repo.responseRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
