package database

import (
	"context"
	"errors"
	"fmt"

	"storyboard-server/internal/interfaces"
	"storyboard-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// pgLikeRepository реализует интерфейс LikeRepository для PostgreSQL.
type pgLikeRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// Compile-time check
var _ interfaces.LikeRepository = (*pgLikeRepository)(nil)

// NewPgLikeRepository создает новый экземпляр репозитория лайков.
func NewPgLikeRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.LikeRepository {
	return &pgLikeRepository{
		db:     db,
		logger: logger.Named("PgLikeRepo"),
	}
}

// ToggleLike снимает лайк, если он был, иначе ставит.
func (r *pgLikeRepository) ToggleLike(ctx context.Context, storyID, userID uuid.UUID) (bool, error) {
	logFields := []zap.Field{
		zap.String("userID", userID.String()),
		zap.String("storyID", storyID.String()),
	}

	deleteQuery := `DELETE FROM story_likes WHERE story_id = $1 AND user_id = $2`
	r.logger.Debug("Executing query", append(logFields, zap.String("query", deleteQuery))...)
	cmdTag, err := r.db.Exec(ctx, deleteQuery, storyID, userID)
	if err != nil {
		r.logger.Error("Failed to remove like record", append(logFields, zap.Error(err))...)
		return false, fmt.Errorf("failed to remove like: %w", err)
	}
	if cmdTag.RowsAffected() > 0 {
		r.logger.Info("Like removed", logFields...)
		return false, nil
	}

	insertQuery := `INSERT INTO story_likes (story_id, user_id) VALUES ($1, $2)`
	r.logger.Debug("Executing query", append(logFields, zap.String("query", insertQuery))...)
	if _, err := r.db.Exec(ctx, insertQuery, storyID, userID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // параллельный запрос уже поставил лайк
				r.logger.Warn("Like already exists (unique constraint violation)", logFields...)
				return true, nil
			case "23503":
				if pgErr.ConstraintName == "story_likes_user_id_fkey" {
					r.logger.Warn("User not found (foreign key violation)", logFields...)
					return false, models.ErrUserNotFound
				}
				r.logger.Warn("Story not found (foreign key violation)", logFields...)
				return false, models.ErrStoryNotFound
			}
		}
		r.logger.Error("Failed to add like record", append(logFields, zap.Error(err))...)
		return false, fmt.Errorf("failed to add like: %w", err)
	}

	r.logger.Info("Like added", logFields...)
	return true, nil
}

// CountLikes возвращает количество лайков истории.
func (r *pgLikeRepository) CountLikes(ctx context.Context, storyID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM story_likes WHERE story_id = $1`
	var count int64
	if err := r.db.QueryRow(ctx, query, storyID).Scan(&count); err != nil {
		r.logger.Error("Failed to count likes for story", zap.Error(err), zap.String("storyID", storyID.String()))
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return count, nil
}
