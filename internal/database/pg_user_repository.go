package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storyboard-server/internal/interfaces"
	"storyboard-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const userColumns = `id, name, email, password_hash, device_id, role, is_admin,
	daily_usage_count, last_usage_date, created_at, updated_at, last_login_at`

// Compile-time check to ensure pgUserRepository implements UserRepository
var _ interfaces.UserRepository = (*pgUserRepository)(nil)

type pgUserRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgUserRepository creates a new PostgreSQL-backed UserRepository.
func NewPgUserRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.UserRepository {
	return &pgUserRepository{
		db:     db,
		logger: logger.Named("PgUserRepo"),
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || pgxscan.NotFound(err)
}

// CreateUser inserts a new user into the database.
func (r *pgUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.LastUsageDate.IsZero() {
		user.LastUsageDate = time.Now().UTC()
	}
	query := `INSERT INTO users (name, email, password_hash, device_id, role, is_admin, daily_usage_count, last_usage_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	logFields := []zap.Field{zap.String("name", user.Name)}
	if user.Email != nil {
		logFields = append(logFields, zap.String("email", *user.Email))
	}
	r.logger.Debug("Executing query", append(logFields, zap.String("query", query))...)

	err := r.db.QueryRow(ctx, query,
		user.Name, user.Email, user.PasswordHash, user.DeviceID, user.Role, user.IsAdmin,
		user.DailyUsageCount, user.LastUsageDate,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Attempted to create duplicate user by email", logFields...)
			return models.ErrEmailTaken
		}
		r.logger.Error("Failed to create user in postgres", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to create user in postgres: %w", err)
	}
	r.logger.Info("User created successfully", append(logFields, zap.String("userID", user.ID.String()))...)
	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *pgUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("id", id.String()))

	var user models.User
	if err := pgxscan.Get(ctx, r.db, &user, query, id); err != nil {
		if isNoRows(err) {
			r.logger.Debug("User not found by ID", zap.String("id", id.String()))
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by id from postgres", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("failed to get user by id from postgres: %w", err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by their email (без учета регистра).
func (r *pgUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("email", email))

	var user models.User
	if err := pgxscan.Get(ctx, r.db, &user, query, email); err != nil {
		if isNoRows(err) {
			r.logger.Debug("User not found by email", zap.String("email", email))
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by email from postgres", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email from postgres: %w", err)
	}
	return &user, nil
}

// UpdateUsage записывает счетчик и дату использования.
func (r *pgUserRepository) UpdateUsage(ctx context.Context, id uuid.UUID, count int, date time.Time) (*models.User, error) {
	query := `UPDATE users SET daily_usage_count = $2, last_usage_date = $3, updated_at = NOW()
		WHERE id = $1 RETURNING ` + userColumns
	logFields := []zap.Field{
		zap.String("userID", id.String()),
		zap.Int("count", count),
		zap.Time("date", date),
	}
	r.logger.Debug("Executing query", append(logFields, zap.String("query", query))...)

	var user models.User
	if err := pgxscan.Get(ctx, r.db, &user, query, id, count, date); err != nil {
		if isNoRows(err) {
			r.logger.Warn("Attempted to update usage for non-existent user", logFields...)
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to update user usage", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to update user usage: %w", err)
	}
	return &user, nil
}

// UpdateProfile обновляет указанные поля. Если указатель nil, поле не меняется.
func (r *pgUserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name, email *string) (*models.User, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []interface{}{id}
	argID := 2

	if name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argID))
		args = append(args, *name)
		argID++
	}
	if email != nil {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", argID))
		args = append(args, *email)
	}
	if len(args) == 1 {
		return nil, models.ErrNothingUpdated
	}

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $1 RETURNING %s", strings.Join(setClauses, ", "), userColumns)
	logFields := []zap.Field{zap.String("userID", id.String())}
	r.logger.Debug("Executing query", append(logFields, zap.String("query", query))...)

	var user models.User
	if err := pgxscan.Get(ctx, r.db, &user, query, args...); err != nil {
		if isNoRows(err) {
			return nil, models.ErrUserNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Profile update hit duplicate email", logFields...)
			return nil, models.ErrEmailTaken
		}
		r.logger.Error("Failed to update user profile", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to update user profile: %w", err)
	}
	r.logger.Info("User profile updated", logFields...)
	return &user, nil
}

func (r *pgUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login_at = $2 WHERE id = $1`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("userID", id.String()))

	cmdTag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		r.logger.Error("Failed to update last login", zap.Error(err), zap.String("userID", id.String()))
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (r *pgUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string, isAdmin bool) (*models.User, error) {
	query := `UPDATE users SET role = $2, is_admin = $3, updated_at = NOW() WHERE id = $1 RETURNING ` + userColumns
	logFields := []zap.Field{
		zap.String("userID", id.String()),
		zap.String("role", role),
		zap.Bool("isAdmin", isAdmin),
	}
	r.logger.Debug("Executing query", append(logFields, zap.String("query", query))...)

	var user models.User
	if err := pgxscan.Get(ctx, r.db, &user, query, id, role, isAdmin); err != nil {
		if isNoRows(err) {
			r.logger.Warn("Attempted to update role for non-existent user", logFields...)
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to update user role", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}
	r.logger.Info("User role updated", logFields...)
	return &user, nil
}

func (r *pgUserRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM users WHERE id = $1`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("userID", id.String()))

	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete user", zap.Error(err), zap.String("userID", id.String()))
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to delete non-existent user", zap.String("userID", id.String()))
		return models.ErrUserNotFound
	}
	r.logger.Info("User deleted", zap.String("userID", id.String()))
	return nil
}

// ListUsers retrieves a page of users and the total count.
func (r *pgUserRepository) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	r.logger.Debug("Executing query", zap.String("query", query), zap.Int("limit", limit), zap.Int("offset", offset))

	users := make([]models.User, 0)
	if err := pgxscan.Select(ctx, r.db, &users, query, limit, offset); err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	total, err := r.GetUserCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ResetDailyUsage обнуляет счетчики всех пользователей.
func (r *pgUserRepository) ResetDailyUsage(ctx context.Context) (int64, error) {
	query := `UPDATE users SET daily_usage_count = 0, updated_at = NOW()`
	r.logger.Debug("Executing query", zap.String("query", query))

	cmdTag, err := r.db.Exec(ctx, query)
	if err != nil {
		r.logger.Error("Failed to reset daily usage", zap.Error(err))
		return 0, fmt.Errorf("failed to reset daily usage: %w", err)
	}
	r.logger.Info("Daily usage reset", zap.Int64("usersAffected", cmdTag.RowsAffected()))
	return cmdTag.RowsAffected(), nil
}

// GetUserCount retrieves the total number of users.
func (r *pgUserRepository) GetUserCount(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM users`
	var count int64
	r.logger.Debug("Executing query", zap.String("query", query))
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		r.logger.Error("Failed to get user count from postgres", zap.Error(err))
		return 0, fmt.Errorf("failed to get user count: %w", err)
	}
	return count, nil
}
