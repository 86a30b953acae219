package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/classpulse/interaction-service/internal/events"
	"github.com/classpulse/interaction-service/internal/genai"
	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/repositories"
)

func shortAnswerActivity(id, courseID uint) *models.Activity {
	return &models.Activity{
		ID:       id,
		CourseID: courseID,
		Type:     models.TypeShortAnswer,
		Content:  datatypes.JSON(`{"question":"Name a color"}`),
	}
}

func shortAnswerResponse(id uint, answer string) *models.Response {
	data, _ := json.Marshal(models.ShortAnswerResponse{Answer: answer})
	return &models.Response{ID: id, ResponseData: datatypes.JSON(data)}
}

func newGroupingFixture() (*MockRepository, *MockOracle, *events.MockEventPublisher, GroupingService) {
	repo := newMockRepository()
	oracle := &MockOracle{}
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewGroupingService(repo, testLogger(), oracle, noopCache{}, publisher)
	return repo, oracle, publisher, svc
}

func TestGroupingService_GroupAnswers(t *testing.T) {
	const (
		activityID = uint(10)
		courseID   = uint(3)
		lecturerID = uint(7)
	)

	t.Run("clusters answers in oracle key order", func(t *testing.T) {
		repo, oracle, publisher, svc := newGroupingFixture()

		repo.activityRepo.On("GetByID", mock.Anything, activityID).
			Return(shortAnswerActivity(activityID, courseID), nil)
		repo.courseRepo.On("IsOwner", mock.Anything, courseID, lecturerID).Return(true, nil)

		responses := []*models.Response{
			shortAnswerResponse(101, "red"),
			shortAnswerResponse(102, "blue"),
			shortAnswerResponse(103, "crimson"),
		}
		repo.responseRepo.On("ListByActivity", mock.Anything, activityID).Return(responses, nil)

		repo.taskRepo.On("Create", mock.Anything, mock.MatchedBy(func(task *models.GenAITask) bool {
			task.ID = 55
			return task.TaskType == models.TaskAnswerGrouping && task.UserID == lecturerID
		})).Return(nil)

		raw := json.RawMessage(`{"Color-Warm": [0, 2], "Color-Cool": [1]}`)
		groups, err := genai.ParseGroupingObject(raw)
		require.NoError(t, err)
		oracle.On("GroupAnswers", mock.Anything, []string{"red", "blue", "crimson"}).
			Return(&genai.GroupingOutput{Groups: groups, Raw: raw}, nil)

		repo.responseRepo.On("AssignGroups", mock.Anything, []repositories.GroupAssignment{
			{ResponseID: 101, GroupID: 1},
			{ResponseID: 103, GroupID: 1},
			{ResponseID: 102, GroupID: 2},
		}).Return(nil)

		repo.taskRepo.On("Update", mock.Anything, mock.MatchedBy(func(task *models.GenAITask) bool {
			return task.Status == models.TaskCompleted && task.CompletedAt != nil &&
				string(task.OutputData) == string(raw)
		})).Return(nil)

		result, err := svc.GroupAnswers(context.Background(), activityID, lecturerID)
		require.NoError(t, err)
		assert.Equal(t, uint(55), result.TaskID)
		assert.Equal(t, 3, result.ResponseCount)
		assert.Equal(t, 2, result.GroupCount)
		assert.Equal(t, 3, result.AssignedCount)
		assert.Equal(t, 0, result.DroppedIndices)

		published := publisher.GetPublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventAnswersGrouped, published[0].Type)

		repo.assertExpectations(t)
		oracle.AssertExpectations(t)
	})

	t.Run("rejects non short-answer activities without a ledger row", func(t *testing.T) {
		repo, _, _, svc := newGroupingFixture()

		activity := shortAnswerActivity(activityID, courseID)
		activity.Type = models.TypePoll
		repo.activityRepo.On("GetByID", mock.Anything, activityID).Return(activity, nil)

		_, err := svc.GroupAnswers(context.Background(), activityID, lecturerID)
		assert.ErrorIs(t, err, ErrUnsupportedActivityType)
		repo.taskRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("skips the oracle when there are no responses", func(t *testing.T) {
		repo, oracle, _, svc := newGroupingFixture()

		repo.activityRepo.On("GetByID", mock.Anything, activityID).
			Return(shortAnswerActivity(activityID, courseID), nil)
		repo.courseRepo.On("IsOwner", mock.Anything, courseID, lecturerID).Return(true, nil)
		repo.responseRepo.On("ListByActivity", mock.Anything, activityID).
			Return([]*models.Response{}, nil)
		repo.taskRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		repo.taskRepo.On("Update", mock.Anything, mock.MatchedBy(func(task *models.GenAITask) bool {
			return task.Status == models.TaskCompleted
		})).Return(nil)

		result, err := svc.GroupAnswers(context.Background(), activityID, lecturerID)
		require.NoError(t, err)
		assert.Equal(t, 0, result.ResponseCount)
		assert.Equal(t, 0, result.GroupCount)

		oracle.AssertNotCalled(t, "GroupAnswers", mock.Anything, mock.Anything)
	})

	t.Run("records the failure and leaves responses untouched when the oracle errors", func(t *testing.T) {
		repo, oracle, publisher, svc := newGroupingFixture()

		repo.activityRepo.On("GetByID", mock.Anything, activityID).
			Return(shortAnswerActivity(activityID, courseID), nil)
		repo.courseRepo.On("IsOwner", mock.Anything, courseID, lecturerID).Return(true, nil)
		repo.responseRepo.On("ListByActivity", mock.Anything, activityID).
			Return([]*models.Response{shortAnswerResponse(101, "red")}, nil)
		repo.taskRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		oracle.On("GroupAnswers", mock.Anything, []string{"red"}).
			Return(nil, errors.New("upstream timeout"))

		repo.taskRepo.On("Update", mock.Anything, mock.MatchedBy(func(task *models.GenAITask) bool {
			return task.Status == models.TaskFailed &&
				task.ErrorDetail != nil && *task.ErrorDetail == "upstream timeout"
		})).Return(nil)

		_, err := svc.GroupAnswers(context.Background(), activityID, lecturerID)
		assert.ErrorIs(t, err, ErrGroupingFailed)

		repo.responseRepo.AssertNotCalled(t, "AssignGroups", mock.Anything, mock.Anything)
		assert.Empty(t, publisher.GetPublishedEvents())
	})

	t.Run("drops out-of-range indices", func(t *testing.T) {
		repo, oracle, _, svc := newGroupingFixture()

		repo.activityRepo.On("GetByID", mock.Anything, activityID).
			Return(shortAnswerActivity(activityID, courseID), nil)
		repo.courseRepo.On("IsOwner", mock.Anything, courseID, lecturerID).Return(true, nil)
		repo.responseRepo.On("ListByActivity", mock.Anything, activityID).
			Return([]*models.Response{shortAnswerResponse(101, "red"), shortAnswerResponse(102, "blue")}, nil)
		repo.taskRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		raw := json.RawMessage(`{"Colors": [0, 5, -1, 1]}`)
		groups, err := genai.ParseGroupingObject(raw)
		require.NoError(t, err)
		oracle.On("GroupAnswers", mock.Anything, mock.Anything).
			Return(&genai.GroupingOutput{Groups: groups, Raw: raw}, nil)

		repo.responseRepo.On("AssignGroups", mock.Anything, []repositories.GroupAssignment{
			{ResponseID: 101, GroupID: 1},
			{ResponseID: 102, GroupID: 1},
		}).Return(nil)
		repo.taskRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

		result, err := svc.GroupAnswers(context.Background(), activityID, lecturerID)
		require.NoError(t, err)
		assert.Equal(t, 2, result.AssignedCount)
		assert.Equal(t, 2, result.DroppedIndices)
	})

	t.Run("substitutes empty strings for malformed payloads", func(t *testing.T) {
		repo, oracle, _, svc := newGroupingFixture()

		repo.activityRepo.On("GetByID", mock.Anything, activityID).
			Return(shortAnswerActivity(activityID, courseID), nil)
		repo.courseRepo.On("IsOwner", mock.Anything, courseID, lecturerID).Return(true, nil)

		broken := &models.Response{ID: 102, ResponseData: datatypes.JSON(`"not an object"`)}
		repo.responseRepo.On("ListByActivity", mock.Anything, activityID).
			Return([]*models.Response{shortAnswerResponse(101, "red"), broken}, nil)
		repo.taskRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		raw := json.RawMessage(`{"Colors": [0], "Unparseable": [1]}`)
		groups, err := genai.ParseGroupingObject(raw)
		require.NoError(t, err)
		oracle.On("GroupAnswers", mock.Anything, []string{"red", ""}).
			Return(&genai.GroupingOutput{Groups: groups, Raw: raw}, nil)

		repo.responseRepo.On("AssignGroups", mock.Anything, mock.Anything).Return(nil)
		repo.taskRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

		_, err = svc.GroupAnswers(context.Background(), activityID, lecturerID)
		require.NoError(t, err)
		oracle.AssertExpectations(t)
	})

	t.Run("denies non-owners", func(t *testing.T) {
		repo, _, _, svc := newGroupingFixture()

		repo.activityRepo.On("GetByID", mock.Anything, activityID).
			Return(shortAnswerActivity(activityID, courseID), nil)
		repo.courseRepo.On("IsOwner", mock.Anything, courseID, uint(99)).Return(false, nil)

		_, err := svc.GroupAnswers(context.Background(), activityID, 99)
		var permErr *PermissionError
		assert.ErrorAs(t, err, &permErr)
		repo.taskRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
