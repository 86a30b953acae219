package postgres

import (
	"context"
	"strconv"

	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/repositories"
	"gorm.io/gorm"
)

type TaskPostgreSQL struct {
	db *gorm.DB
}

func NewTaskPostgreSQL(db *gorm.DB) repositories.TaskRepository {
	return &TaskPostgreSQL{db: db}
}

func (t TaskPostgreSQL) Create(ctx context.Context, task *models.GenAITask) error {
	return t.db.WithContext(ctx).Create(task).Error
}

func (t TaskPostgreSQL) GetByID(ctx context.Context, id uint) (*models.GenAITask, error) {
	var task models.GenAITask
	if err := t.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (t TaskPostgreSQL) Update(ctx context.Context, task *models.GenAITask) error {
	return t.db.WithContext(ctx).Save(task).Error
}

func (t TaskPostgreSQL) List(ctx context.Context, filters repositories.TaskFilters) ([]*models.GenAITask, int64, error) {
	var tasks []*models.GenAITask
	var total int64

	query := t.db.WithContext(ctx).Model(&models.GenAITask{})
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.TaskType != nil {
		query = query.Where("task_type = ?", *filters.TaskType)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

func (t TaskPostgreSQL) LatestCompletedGrouping(ctx context.Context, activityID uint) (*models.GenAITask, error) {
	var task models.GenAITask
	if err := t.db.WithContext(ctx).
		Where("task_type = ? AND status = ?", models.TaskAnswerGrouping, models.TaskCompleted).
		Where("input_data->>'activity_id' = ?", strconv.FormatUint(uint64(activityID), 10)).
		Order("completed_at DESC").
		First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}
