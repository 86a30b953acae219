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
	"github.com/classpulse/interaction-service/internal/genai"
	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/repositories"
)

// ===== REQUEST / RESPONSE TYPES =====

type GroupingResult struct {
	TaskID         uint `json:"task_id"`
	ActivityID     uint `json:"activity_id"`
	ResponseCount  int  `json:"response_count"`
	GroupCount     int  `json:"group_count"`
	AssignedCount  int  `json:"assigned_count"`
	DroppedIndices int  `json:"dropped_indices"`
}

// GroupingService runs the answer-grouping pipeline: it snapshots an
// activity's responses, asks the oracle for clusters and reconciles the
// result onto the response rows. Every run, successful or not, leaves a
// row in the task ledger.
type GroupingService interface {
	GroupAnswers(ctx context.Context, activityID uint, actorID uint) (*GroupingResult, error)
}

type groupingService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	oracle    genai.Oracle
	cache     cache.CacheService
	publisher events.EventPublisher
	opLogger  *ServiceLogger
}

func NewGroupingService(
	repo repositories.Repository,
	logger *slog.Logger,
	oracle genai.Oracle,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
) GroupingService {
	return &groupingService{
		repo:      repo,
		logger:    logger,
		oracle:    oracle,
		cache:     cacheService,
		publisher: publisher,
		opLogger:  NewServiceLogger(logger, LogConfig{Service: "interaction", Component: "grouping"}),
	}
}

type groupingInput struct {
	ActivityID    uint `json:"activity_id"`
	ResponseCount int  `json:"response_count"`
}

func (s *groupingService) GroupAnswers(ctx context.Context, activityID uint, actorID uint) (_ *GroupingResult, err error) {
	timer := s.opLogger.StartOperation("grouping.run", actorID, activityID, "activity")
	defer func() { timer.End(ctx, err) }()

	activity, err := s.repo.Activity().GetByID(ctx, activityID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}

	if activity.Type != models.TypeShortAnswer {
		return nil, ErrUnsupportedActivityType
	}

	isOwner, err := s.repo.Course().IsOwner(ctx, activity.CourseID, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check course ownership: %w", err)
	}
	if !isOwner {
		return nil, NewPermissionError(actorID, activityID, "activity", "group_answers", "not the course lecturer")
	}

	// Snapshot: the slice index is the coordinate the oracle's output
	// indices refer to, so the order must not change mid-run.
	responses, err := s.repo.Response().ListByActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}

	task, err := s.openLedger(ctx, activityID, actorID, len(responses))
	if err != nil {
		return nil, err
	}

	result := &GroupingResult{
		TaskID:        task.ID,
		ActivityID:    activityID,
		ResponseCount: len(responses),
	}

	// Nothing to cluster; complete the run without consulting the oracle.
	if len(responses) == 0 {
		if err = s.closeLedgerCompleted(ctx, task, json.RawMessage(`{}`)); err != nil {
			return nil, err
		}
		return result, nil
	}

	answers := extractAnswers(responses)

	output, oracleErr := s.oracle.GroupAnswers(ctx, answers)
	if oracleErr != nil {
		s.closeLedgerFailed(ctx, task, oracleErr)
		err = fmt.Errorf("%w: %v", ErrGroupingFailed, oracleErr)
		return nil, err
	}

	assignments, dropped := buildAssignments(responses, output.Groups)
	result.GroupCount = len(output.Groups)
	result.AssignedCount = len(assignments)
	result.DroppedIndices = dropped
	if dropped > 0 {
		s.logger.Warn("Oracle returned out-of-range answer indices",
			"activity_id", activityID, "task_id", task.ID, "dropped", dropped)
	}

	if err = s.repo.Response().AssignGroups(ctx, assignments); err != nil {
		s.closeLedgerFailed(ctx, task, err)
		return nil, fmt.Errorf("failed to assign groups: %w", err)
	}

	if err = s.closeLedgerCompleted(ctx, task, output.Raw); err != nil {
		return nil, err
	}

	s.invalidateReportCache(ctx, activityID)
	s.publishEvent(ctx, events.NewAnswersGroupedEvent(activityID, task.ID, result.GroupCount, result.ResponseCount, actorID))

	s.logger.Info("Answers grouped",
		"activity_id", activityID,
		"task_id", task.ID,
		"groups", result.GroupCount,
		"assigned", result.AssignedCount)
	return result, nil
}

// ===== PIPELINE STEPS =====

// extractAnswers maps responses to the ordered answer texts sent to the
// oracle. Malformed payloads become empty strings so the positions of all
// other answers stay aligned with their row indices.
func extractAnswers(responses []*models.Response) []string {
	answers := make([]string, len(responses))
	for i, r := range responses {
		var payload models.ShortAnswerResponse
		if err := json.Unmarshal(r.ResponseData, &payload); err == nil {
			answers[i] = payload.Answer
		}
	}
	return answers
}

// buildAssignments converts oracle clusters into row-level group assignments.
// Group ids are assigned 1..k following the order the oracle returned its
// groups in; indices outside the snapshot are dropped, not failed.
func buildAssignments(responses []*models.Response, groups []genai.AnswerGroup) ([]repositories.GroupAssignment, int) {
	assignments := make([]repositories.GroupAssignment, 0, len(responses))
	dropped := 0
	for i, group := range groups {
		groupID := i + 1
		for _, idx := range group.Indices {
			if idx < 0 || idx >= len(responses) {
				dropped++
				continue
			}
			assignments = append(assignments, repositories.GroupAssignment{
				ResponseID: responses[idx].ID,
				GroupID:    groupID,
			})
		}
	}
	return assignments, dropped
}

// ===== LEDGER BOOKKEEPING =====

// openLedger records the run before the oracle is consulted, so a crash
// mid-call still leaves an auditable row.
func (s *groupingService) openLedger(ctx context.Context, activityID, actorID uint, responseCount int) (*models.GenAITask, error) {
	input, err := json.Marshal(groupingInput{ActivityID: activityID, ResponseCount: responseCount})
	if err != nil {
		return nil, fmt.Errorf("failed to encode task input: %w", err)
	}

	task := &models.GenAITask{
		UserID:    actorID,
		TaskType:  models.TaskAnswerGrouping,
		InputData: datatypes.JSON(input),
		Status:    models.TaskProcessing,
	}
	if err := s.repo.Task().Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create ledger task: %w", err)
	}
	return task, nil
}

func (s *groupingService) closeLedgerCompleted(ctx context.Context, task *models.GenAITask, output json.RawMessage) error {
	now := time.Now().UTC()
	task.Status = models.TaskCompleted
	task.OutputData = datatypes.JSON(output)
	task.CompletedAt = &now
	if err := s.repo.Task().Update(ctx, task); err != nil {
		return fmt.Errorf("failed to complete ledger task: %w", err)
	}
	return nil
}

// closeLedgerFailed marks the run failed. The ledger update itself is
// best-effort: the original failure is what the caller reports.
func (s *groupingService) closeLedgerFailed(ctx context.Context, task *models.GenAITask, cause error) {
	now := time.Now().UTC()
	detail := cause.Error()
	task.Status = models.TaskFailed
	task.ErrorDetail = &detail
	task.CompletedAt = &now
	if err := s.repo.Task().Update(ctx, task); err != nil {
		s.logger.Error("Failed to record task failure", "task_id", task.ID, "error", err)
	}
}

func (s *groupingService) invalidateReportCache(ctx context.Context, activityID uint) {
	key := reportCacheKey(activityID)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to invalidate report cache", "key", key, "error", err)
	}
}

func (s *groupingService) publishEvent(ctx context.Context, event *events.ClassroomEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
