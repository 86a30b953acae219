package postgres

import (
	"context"

	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/repositories"
	"gorm.io/gorm"
)

type ActivityPostgreSQL struct {
	db *gorm.DB
}

func NewActivityPostgreSQL(db *gorm.DB) repositories.ActivityRepository {
	return &ActivityPostgreSQL{db: db}
}

func (a ActivityPostgreSQL) Create(ctx context.Context, activity *models.Activity) error {
	return a.db.WithContext(ctx).Create(activity).Error
}

func (a ActivityPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Activity, error) {
	var activity models.Activity
	if err := a.db.WithContext(ctx).First(&activity, id).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func (a ActivityPostgreSQL) GetByIDWithCourse(ctx context.Context, id uint) (*models.Activity, error) {
	var activity models.Activity
	if err := a.db.WithContext(ctx).
		Preload("Course").
		Preload("Creator").
		First(&activity, id).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func (a ActivityPostgreSQL) Update(ctx context.Context, activity *models.Activity) error {
	return a.db.WithContext(ctx).Save(activity).Error
}

func (a ActivityPostgreSQL) Delete(ctx context.Context, id uint) error {
	return a.db.WithContext(ctx).Delete(&models.Activity{}, id).Error
}

func (a ActivityPostgreSQL) List(ctx context.Context, filters repositories.ActivityFilters) ([]*models.Activity, int64, error) {
	var activities []*models.Activity
	var total int64

	// apply filters first
	query := a.db.WithContext(ctx).Model(&models.Activity{})
	query = a.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = a.applyPaginationAndSort(query, filters)

	if err := query.Find(&activities).Error; err != nil {
		return nil, 0, err
	}

	return activities, total, nil
}

func (a ActivityPostgreSQL) ListByCourse(ctx context.Context, courseID uint, filters repositories.ActivityFilters) ([]*models.Activity, int64, error) {
	filters.CourseID = &courseID
	return a.List(ctx, filters)
}

func (a ActivityPostgreSQL) SetActive(ctx context.Context, id uint, active bool) error {
	return a.db.WithContext(ctx).Model(&models.Activity{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

func (a ActivityPostgreSQL) IsCreator(ctx context.Context, activityID, userID uint) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&models.Activity{}).
		Where("id = ? AND creator_id = ?", activityID, userID).
		Count(&count).Error
	return count > 0, err
}

func (a ActivityPostgreSQL) applyFilters(query *gorm.DB, filters repositories.ActivityFilters) *gorm.DB {
	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	if filters.CreatorID != nil {
		query = query.Where("creator_id = ?", *filters.CreatorID)
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	return query
}

func (a ActivityPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.ActivityFilters) *gorm.DB {
	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	sortOrder := filters.SortOrder
	if sortOrder != "asc" {
		sortOrder = "desc"
	}
	query = query.Order(sortBy + " " + sortOrder)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
