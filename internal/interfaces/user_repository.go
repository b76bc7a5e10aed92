package interfaces

import (
	"context"
	"time"

	"storyboard-server/internal/models"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user data persistence (PostgreSQL).
type UserRepository interface {
	// CreateUser inserts a new user. Returns models.ErrEmailTaken on duplicate email.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID returns models.ErrUserNotFound if the user does not exist.
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetUserByEmail returns models.ErrUserNotFound if the user does not exist.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdateUsage записывает счетчик генераций и дату последнего использования.
	UpdateUsage(ctx context.Context, id uuid.UUID, count int, date time.Time) (*models.User, error)

	// UpdateProfile обновляет только непустые поля.
	UpdateProfile(ctx context.Context, id uuid.UUID, name, email *string) (*models.User, error)

	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	UpdateRole(ctx context.Context, id uuid.UUID, role string, isAdmin bool) (*models.User, error)

	DeleteUser(ctx context.Context, id uuid.UUID) error

	// ListUsers returns a page of users ordered by creation time (newest first) and the total count.
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error)

	// ResetDailyUsage обнуляет счетчики всех пользователей и возвращает число затронутых строк.
	ResetDailyUsage(ctx context.Context) (int64, error)

	GetUserCount(ctx context.Context) (int64, error)
}
