package postgres

import (
	"context"
	"fmt"

	"github.com/classpulse/interaction-service/internal/repositories"
	"gorm.io/gorm"
)

// GormRepository aggregates all entity repositories over one *gorm.DB. A
// transactional copy shares the same structure with db pointing at the tx.
type GormRepository struct {
	db   *gorm.DB
	inTx bool
}

func NewRepository(db *gorm.DB) repositories.TransactionRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) User() repositories.UserRepository {
	return NewUserPostgreSQL(r.db)
}

func (r *GormRepository) Course() repositories.CourseRepository {
	return NewCoursePostgreSQL(r.db)
}

func (r *GormRepository) Enrollment() repositories.EnrollmentRepository {
	return NewEnrollmentPostgreSQL(r.db)
}

func (r *GormRepository) Activity() repositories.ActivityRepository {
	return NewActivityPostgreSQL(r.db)
}

func (r *GormRepository) Response() repositories.ResponseRepository {
	return NewResponsePostgreSQL(r.db)
}

func (r *GormRepository) Task() repositories.TaskRepository {
	return NewTaskPostgreSQL(r.db)
}

func (r *GormRepository) Begin(ctx context.Context) (repositories.Repository, error) {
	if r.inTx {
		return nil, fmt.Errorf("transaction already in progress")
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &GormRepository{db: tx, inTx: true}, nil
}

func (r *GormRepository) Commit(ctx context.Context) error {
	if !r.inTx {
		return fmt.Errorf("not in a transaction")
	}
	return r.db.Commit().Error
}

func (r *GormRepository) Rollback(ctx context.Context) error {
	if !r.inTx {
		return fmt.Errorf("not in a transaction")
	}
	return r.db.Rollback().Error
}
