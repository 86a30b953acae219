package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/repositories"
)

type TaskListResponse struct {
	Tasks  []*models.GenAITask `json:"tasks"`
	Total  int64               `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// TaskService exposes the GenAI task ledger. Lecturers see their own rows;
// admins see everything.
type TaskService interface {
	List(ctx context.Context, filters repositories.TaskFilters, actorID uint) (*TaskListResponse, error)
	GetByID(ctx context.Context, id uint, actorID uint) (*models.GenAITask, error)
}

type taskService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewTaskService(repo repositories.Repository, logger *slog.Logger) TaskService {
	return &taskService{repo: repo, logger: logger}
}

func (s *taskService) List(ctx context.Context, filters repositories.TaskFilters, actorID uint) (*TaskListResponse, error) {
	isAdmin, err := s.repo.User().HasRole(ctx, actorID, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to check role: %w", err)
	}
	if !isAdmin {
		// Non-admins can only inspect their own ledger rows.
		filters.UserID = &actorID
	}

	tasks, total, err := s.repo.Task().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return &TaskListResponse{
		Tasks:  tasks,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}

func (s *taskService) GetByID(ctx context.Context, id uint, actorID uint) (*models.GenAITask, error) {
	task, err := s.repo.Task().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if task.UserID != actorID {
		isAdmin, err := s.repo.User().HasRole(ctx, actorID, models.RoleAdmin)
		if err != nil {
			return nil, fmt.Errorf("failed to check role: %w", err)
		}
		if !isAdmin {
			return nil, ErrTaskAccessDenied
		}
	}

	return task, nil
}
