package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/classpulse/interaction-service/internal/genai"
	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/repositories"
	"github.com/classpulse/interaction-service/internal/validator"
)

// ===== REQUEST / RESPONSE TYPES =====

type GenerateDraftRequest struct {
	Topic        string              `json:"topic" validate:"required,min=1,max=500"`
	ActivityType models.ActivityType `json:"activity_type" validate:"required,activity_type"`
}

// DraftResult carries a generated draft. The draft is advisory: nothing is
// persisted beyond the ledger row until the lecturer creates an activity
// from it.
type DraftResult struct {
	TaskID uint                 `json:"task_id"`
	Draft  *genai.ActivityDraft `json:"draft"`
}

// GenerationService turns free-text topics into activity drafts via the
// oracle, recording every attempt in the task ledger.
type GenerationService interface {
	GenerateDraft(ctx context.Context, req *GenerateDraftRequest, userID uint) (*DraftResult, error)
}

type generationService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	oracle    genai.Oracle
	opLogger  *ServiceLogger
}

func NewGenerationService(
	repo repositories.Repository,
	logger *slog.Logger,
	v *validator.Validator,
	oracle genai.Oracle,
) GenerationService {
	return &generationService{
		repo:      repo,
		logger:    logger,
		validator: v,
		oracle:    oracle,
		opLogger:  NewServiceLogger(logger, LogConfig{Service: "interaction", Component: "generation"}),
	}
}

func (s *generationService) GenerateDraft(ctx context.Context, req *GenerateDraftRequest, userID uint) (_ *DraftResult, err error) {
	timer := s.opLogger.StartOperation("generation.draft", userID, 0, "genai_task")
	defer func() { timer.End(ctx, err) }()

	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}

	isLecturer, err := s.repo.User().HasRole(ctx, userID, models.RoleLecturer)
	if err != nil {
		return nil, fmt.Errorf("failed to check role: %w", err)
	}
	if !isLecturer {
		return nil, NewPermissionError(userID, 0, "genai_task", "generate_draft", "lecturer role required")
	}

	input, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task input: %w", err)
	}
	task := &models.GenAITask{
		UserID:    userID,
		TaskType:  models.TaskActivityGeneration,
		InputData: datatypes.JSON(input),
		Status:    models.TaskProcessing,
	}
	if err = s.repo.Task().Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create ledger task: %w", err)
	}
	timer.SetResourceID(task.ID)

	draft, oracleErr := s.oracle.GenerateActivityDraft(ctx, req.Topic, req.ActivityType)
	if oracleErr != nil {
		s.failTask(ctx, task, oracleErr)
		if errors.Is(oracleErr, genai.ErrUnsupportedDraftType) {
			err = ErrUnsupportedActivityType
			return nil, err
		}
		err = fmt.Errorf("%w: %v", ErrGenerationFailed, oracleErr)
		return nil, err
	}

	output, err := json.Marshal(draft)
	if err != nil {
		s.failTask(ctx, task, err)
		return nil, fmt.Errorf("failed to encode draft: %w", err)
	}

	now := time.Now().UTC()
	task.Status = models.TaskCompleted
	task.OutputData = datatypes.JSON(output)
	task.CompletedAt = &now
	if err = s.repo.Task().Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to complete ledger task: %w", err)
	}

	s.logger.Info("Activity draft generated", "task_id", task.ID, "activity_type", req.ActivityType, "user_id", userID)
	return &DraftResult{TaskID: task.ID, Draft: draft}, nil
}

func (s *generationService) failTask(ctx context.Context, task *models.GenAITask, cause error) {
	now := time.Now().UTC()
	detail := cause.Error()
	task.Status = models.TaskFailed
	task.ErrorDetail = &detail
	task.CompletedAt = &now
	if err := s.repo.Task().Update(ctx, task); err != nil {
		s.logger.Error("Failed to record task failure", "task_id", task.ID, "error", err)
	}
}
