package postgres

import (
	"context"

	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/repositories"
	"gorm.io/gorm"
)

type ResponsePostgreSQL struct {
	db *gorm.DB
}

func NewResponsePostgreSQL(db *gorm.DB) repositories.ResponseRepository {
	return &ResponsePostgreSQL{db: db}
}

func (r ResponsePostgreSQL) Create(ctx context.Context, response *models.Response) error {
	return r.db.WithContext(ctx).Create(response).Error
}

func (r ResponsePostgreSQL) GetByID(ctx context.Context, id uint) (*models.Response, error) {
	var response models.Response
	if err := r.db.WithContext(ctx).First(&response, id).Error; err != nil {
		return nil, err
	}
	return &response, nil
}

func (r ResponsePostgreSQL) Update(ctx context.Context, response *models.Response) error {
	return r.db.WithContext(ctx).Save(response).Error
}

func (r ResponsePostgreSQL) GetByActivityAndResponder(ctx context.Context, activityID, responderID uint) (*models.Response, error) {
	var response models.Response
	if err := r.db.WithContext(ctx).
		Where("activity_id = ? AND responder_id = ?", activityID, responderID).
		First(&response).Error; err != nil {
		return nil, err
	}
	return &response, nil
}

// ListByActivity orders by primary key so the slice index is stable between
// the grouping request and its reconciliation.
func (r ResponsePostgreSQL) ListByActivity(ctx context.Context, activityID uint) ([]*models.Response, error) {
	var responses []*models.Response
	if err := r.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("id ASC").
		Preload("Responder").
		Find(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

func (r ResponsePostgreSQL) CountByActivity(ctx context.Context, activityID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Response{}).
		Where("activity_id = ?", activityID).
		Count(&count).Error
	return count, err
}

func (r ResponsePostgreSQL) AssignGroups(ctx context.Context, assignments []repositories.GroupAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range assignments {
			if err := tx.Model(&models.Response{}).
				Where("id = ?", a.ResponseID).
				Update("group_id", a.GroupID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r ResponsePostgreSQL) GroupCounts(ctx context.Context, activityID uint) (map[int]int, error) {
	type row struct {
		GroupID int
		Count   int
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&models.Response{}).
		Select("group_id, COUNT(id) AS count").
		Where("activity_id = ? AND group_id IS NOT NULL", activityID).
		Group("group_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[int]int, len(rows))
	for _, r := range rows {
		counts[r.GroupID] = r.Count
	}
	return counts, nil
}
