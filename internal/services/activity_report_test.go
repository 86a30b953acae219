package services

import (
	"context"
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

func newReportFixture() (*MockRepository, ActivityService) {
	repo := newMockRepository()
	svc := NewActivityService(repo, testLogger(), validator.New(), noopCache{}, events.NewMockEventPublisher(testLogger()))
	return repo, svc
}

func groupedResponse(id uint, answer string, groupID *int) *models.Response {
	return &models.Response{
		ID:           id,
		ResponseData: datatypes.JSON(`{"answer":"` + answer + `"}`),
		GroupID:      groupID,
	}
}

func intPtr(v int) *int { return &v }

func TestActivityService_GetReport(t *testing.T) {
	const (
		activityID = uint(20)
		courseID   = uint(3)
		lecturerID = uint(7)
	)

	ownedActivity := func(repo *MockRepository, activity *models.Activity) {
		repo.activityRepo.On("GetByID", mock.Anything, activityID).Return(activity, nil)
		repo.courseRepo.On("IsOwner", mock.Anything, courseID, lecturerID).Return(true, nil)
	}

	t.Run("poll report counts options in authored order", func(t *testing.T) {
		repo, svc := newReportFixture()

		ownedActivity(repo, &models.Activity{
			ID:       activityID,
			CourseID: courseID,
			Type:     models.TypePoll,
			Title:    "Favourite color",
			Content:  datatypes.JSON(`{"question":"Pick one","options":["red","blue","green"]}`),
		})
		repo.responseRepo.On("ListByActivity", mock.Anything, activityID).Return([]*models.Response{
			{ID: 1, ResponseData: datatypes.JSON(`{"selected_option":"blue"}`)},
			{ID: 2, ResponseData: datatypes.JSON(`{"selected_option":"red"}`)},
			{ID: 3, ResponseData: datatypes.JSON(`{"selected_option":"blue"}`)},
		}, nil)

		report, err := svc.GetReport(context.Background(), activityID, lecturerID)
		require.NoError(t, err)

		assert.Equal(t, 3, report.TotalResponses)
		assert.Equal(t, []OptionCount{
			{Option: "red", Count: 1},
			{Option: "blue", Count: 2},
			{Option: "green", Count: 0},
		}, report.Options)
		assert.Nil(t, report.CorrectCount)
	})

	t.Run("quiz report includes the correct count", func(t *testing.T) {
		repo, svc := newReportFixture()

		ownedActivity(repo, &models.Activity{
			ID:       activityID,
			CourseID: courseID,
			Type:     models.TypeQuiz,
			Content:  datatypes.JSON(`{"question":"2+2?","options":["3","4"],"correct_answer":"4"}`),
		})
		right := true
		wrong := false
		repo.responseRepo.On("ListByActivity", mock.Anything, activityID).Return([]*models.Response{
			{ID: 1, ResponseData: datatypes.JSON(`{"answer":"4"}`), IsCorrect: &right},
			{ID: 2, ResponseData: datatypes.JSON(`{"answer":"3"}`), IsCorrect: &wrong},
		}, nil)

		report, err := svc.GetReport(context.Background(), activityID, lecturerID)
		require.NoError(t, err)

		require.NotNil(t, report.CorrectCount)
		assert.Equal(t, 1, *report.CorrectCount)
	})

	t.Run("word cloud report sorts by frequency then word", func(t *testing.T) {
		repo, svc := newReportFixture()

		ownedActivity(repo, &models.Activity{
			ID:       activityID,
			CourseID: courseID,
			Type:     models.TypeWordCloud,
			Content:  datatypes.JSON(`{"prompt":"Describe the lecture"}`),
		})
		repo.responseRepo.On("ListByActivity", mock.Anything, activityID).Return([]*models.Response{
			{ID: 1, ResponseData: datatypes.JSON(`{"words":"Fun, fast"}`)},
			{ID: 2, ResponseData: datatypes.JSON(`{"words":"fun; dense"}`)},
		}, nil)

		report, err := svc.GetReport(context.Background(), activityID, lecturerID)
		require.NoError(t, err)

		assert.Equal(t, []WordCount{
			{Word: "fun", Count: 2},
			{Word: "dense", Count: 1},
			{Word: "fast", Count: 1},
		}, report.Words)
	})

	t.Run("short answer report replays ledger labels", func(t *testing.T) {
		repo, svc := newReportFixture()

		ownedActivity(repo, &models.Activity{
			ID:       activityID,
			CourseID: courseID,
			Type:     models.TypeShortAnswer,
			Content:  datatypes.JSON(`{"question":"Name a color"}`),
		})
		repo.responseRepo.On("ListByActivity", mock.Anything, activityID).Return([]*models.Response{
			groupedResponse(1, "red", intPtr(1)),
			groupedResponse(2, "blue", intPtr(2)),
			groupedResponse(3, "crimson", intPtr(1)),
			groupedResponse(4, "maybe teal", nil),
		}, nil)
		repo.taskRepo.On("LatestCompletedGrouping", mock.Anything, activityID).
			Return(&models.GenAITask{
				ID:         55,
				OutputData: datatypes.JSON(`{"Color-Warm":[0,2],"Color-Cool":[1]}`),
			}, nil)

		report, err := svc.GetReport(context.Background(), activityID, lecturerID)
		require.NoError(t, err)

		require.Len(t, report.Groups, 2)
		assert.Equal(t, GroupSummary{GroupID: 1, Label: "Color-Warm", Count: 2, Samples: []string{"red", "crimson"}}, report.Groups[0])
		assert.Equal(t, GroupSummary{GroupID: 2, Label: "Color-Cool", Count: 1, Samples: []string{"blue"}}, report.Groups[1])
		assert.Equal(t, 1, report.UngroupedCount)
	})

	t.Run("stale group ids keep their responses with an empty label", func(t *testing.T) {
		repo, svc := newReportFixture()

		ownedActivity(repo, &models.Activity{
			ID:       activityID,
			CourseID: courseID,
			Type:     models.TypeShortAnswer,
			Content:  datatypes.JSON(`{"question":"Name a color"}`),
		})
		repo.responseRepo.On("ListByActivity", mock.Anything, activityID).Return([]*models.Response{
			groupedResponse(1, "red", intPtr(1)),
			groupedResponse(2, "blue", intPtr(5)),
		}, nil)
		repo.taskRepo.On("LatestCompletedGrouping", mock.Anything, activityID).
			Return(&models.GenAITask{ID: 55, OutputData: datatypes.JSON(`{"Colors":[0]}`)}, nil)

		report, err := svc.GetReport(context.Background(), activityID, lecturerID)
		require.NoError(t, err)

		require.Len(t, report.Groups, 2)
		assert.Equal(t, "Colors", report.Groups[0].Label)
		assert.Equal(t, 5, report.Groups[1].GroupID)
		assert.Equal(t, "", report.Groups[1].Label)
		assert.Equal(t, 1, report.Groups[1].Count)
	})

	t.Run("never-grouped activities report everything as ungrouped", func(t *testing.T) {
		repo, svc := newReportFixture()

		ownedActivity(repo, &models.Activity{
			ID:       activityID,
			CourseID: courseID,
			Type:     models.TypeShortAnswer,
			Content:  datatypes.JSON(`{"question":"Name a color"}`),
		})
		repo.responseRepo.On("ListByActivity", mock.Anything, activityID).Return([]*models.Response{
			groupedResponse(1, "red", nil),
		}, nil)
		repo.taskRepo.On("LatestCompletedGrouping", mock.Anything, activityID).
			Return(nil, gorm.ErrRecordNotFound)

		report, err := svc.GetReport(context.Background(), activityID, lecturerID)
		require.NoError(t, err)

		assert.Empty(t, report.Groups)
		assert.Equal(t, 1, report.UngroupedCount)
	})

	t.Run("mini game report is count only", func(t *testing.T) {
		repo, svc := newReportFixture()

		ownedActivity(repo, &models.Activity{
			ID:       activityID,
			CourseID: courseID,
			Type:     models.TypeMiniGame,
			Content:  datatypes.JSON(`{"game":"trivia-race"}`),
		})
		repo.responseRepo.On("ListByActivity", mock.Anything, activityID).Return([]*models.Response{
			{ID: 1, ResponseData: datatypes.JSON(`{"score":120}`)},
			{ID: 2, ResponseData: datatypes.JSON(`{"score":95}`)},
		}, nil)

		report, err := svc.GetReport(context.Background(), activityID, lecturerID)
		require.NoError(t, err)

		assert.Equal(t, 2, report.TotalResponses)
		assert.Empty(t, report.Options)
		assert.Empty(t, report.Words)
		assert.Empty(t, report.Groups)
	})

	t.Run("denies non-owners", func(t *testing.T) {
		repo, svc := newReportFixture()

		repo.activityRepo.On("GetByID", mock.Anything, activityID).
			Return(&models.Activity{ID: activityID, CourseID: courseID, Type: models.TypePoll}, nil)
		repo.courseRepo.On("IsOwner", mock.Anything, courseID, uint(99)).Return(false, nil)

		_, err := svc.GetReport(context.Background(), activityID, 99)
		var permErr *PermissionError
		assert.ErrorAs(t, err, &permErr)
	})
}
