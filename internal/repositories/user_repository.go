package repositories

import (
	"context"

	"github.com/classpulse/interaction-service/internal/models"
)

// UserRepository interface for user operations. Identity is owned by the
// Casdoor provider; this service keeps a local mirror for foreign keys.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByCasdoorSubject(ctx context.Context, subject string) (*models.User, error)
	GetByStudentNumber(ctx context.Context, studentNumber string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.User, error)

	// Validation and checks
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	HasRole(ctx context.Context, id uint, role models.UserRole) (bool, error)
}
