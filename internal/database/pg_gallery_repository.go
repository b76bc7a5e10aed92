package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storyboard-server/internal/interfaces"
	"storyboard-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const storySelect = `SELECT gs.id, gs.title, gs.description, gs.frames, gs.user_name, gs.user_id,
	gs.genre, gs.style, gs.total_frames, gs.is_public, gs.created_at,
	(SELECT COUNT(*) FROM story_likes sl WHERE sl.story_id = gs.id) AS likes
	FROM gallery_stories gs`

// galleryStoryRow - строка gallery_stories, frames хранится как JSONB.
type galleryStoryRow struct {
	ID          uuid.UUID `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Frames      []byte    `db:"frames"`
	UserName    string    `db:"user_name"`
	UserID      uuid.UUID `db:"user_id"`
	Genre       string    `db:"genre"`
	Style       string    `db:"style"`
	TotalFrames int       `db:"total_frames"`
	IsPublic    bool      `db:"is_public"`
	CreatedAt   time.Time `db:"created_at"`
	Likes       int64     `db:"likes"`
}

func (row galleryStoryRow) toModel() (models.GalleryStory, error) {
	story := models.GalleryStory{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Frames:      []models.RenderedFrame{},
		UserName:    row.UserName,
		UserID:      row.UserID,
		Genre:       row.Genre,
		Style:       row.Style,
		TotalFrames: row.TotalFrames,
		IsPublic:    row.IsPublic,
		CreatedAt:   row.CreatedAt,
		Likes:       row.Likes,
	}
	if len(row.Frames) > 0 {
		if err := json.Unmarshal(row.Frames, &story.Frames); err != nil {
			return story, fmt.Errorf("failed to decode frames of story %s: %w", row.ID, err)
		}
	}
	return story, nil
}

// Compile-time check
var _ interfaces.GalleryRepository = (*pgGalleryRepository)(nil)

type pgGalleryRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgGalleryRepository создает репозиторий историй галереи.
func NewPgGalleryRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.GalleryRepository {
	return &pgGalleryRepository{
		db:     db,
		logger: logger.Named("PgGalleryRepo"),
	}
}

func (r *pgGalleryRepository) Create(ctx context.Context, story models.NewGalleryStory) (*models.GalleryStory, error) {
	framesJSON, err := json.Marshal(story.Frames)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frames: %w", err)
	}
	if story.Frames == nil {
		framesJSON = []byte("[]")
	}

	query := `INSERT INTO gallery_stories
		(title, description, frames, user_name, user_id, genre, style, total_frames, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	logFields := []zap.Field{
		zap.String("userID", story.UserID.String()),
		zap.String("title", story.Title),
		zap.Int("frames", len(story.Frames)),
	}
	r.logger.Debug("Executing query", append(logFields, zap.String("query", query))...)

	var id uuid.UUID
	err = r.db.QueryRow(ctx, query,
		story.Title, story.Description, framesJSON, story.UserName, story.UserID,
		story.Genre, story.Style, len(story.Frames), story.Visibility(),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			r.logger.Warn("Story owner not found (foreign key violation)", logFields...)
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to insert gallery story", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to insert gallery story: %w", err)
	}

	r.logger.Info("Gallery story created", append(logFields, zap.String("storyID", id.String()))...)
	return r.GetByID(ctx, id)
}

func (r *pgGalleryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GalleryStory, error) {
	query := storySelect + ` WHERE gs.id = $1`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("storyID", id.String()))

	var row galleryStoryRow
	if err := pgxscan.Get(ctx, r.db, &row, query, id); err != nil {
		if isNoRows(err) {
			return nil, models.ErrStoryNotFound
		}
		r.logger.Error("Failed to get gallery story", zap.Error(err), zap.String("storyID", id.String()))
		return nil, fmt.Errorf("failed to get gallery story: %w", err)
	}
	story, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &story, nil
}

func (r *pgGalleryRepository) ListPublic(ctx context.Context, limit, offset int) ([]models.GalleryStory, error) {
	query := storySelect + ` WHERE gs.is_public = TRUE ORDER BY gs.created_at DESC LIMIT $1 OFFSET $2`
	return r.selectStories(ctx, query, limit, offset)
}

func (r *pgGalleryRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.GalleryStory, error) {
	query := storySelect + ` WHERE gs.user_id = $1 ORDER BY gs.created_at DESC`
	return r.selectStories(ctx, query, userID)
}

func (r *pgGalleryRepository) ListAll(ctx context.Context, limit, offset int, includePrivate bool) ([]models.GalleryStory, int64, error) {
	where := ` WHERE gs.is_public = TRUE OR $3`
	query := storySelect + where + ` ORDER BY gs.created_at DESC LIMIT $1 OFFSET $2`
	stories, err := r.selectStories(ctx, query, limit, offset, includePrivate)
	if err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM gallery_stories gs WHERE gs.is_public = TRUE OR $1`
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, includePrivate).Scan(&total); err != nil {
		r.logger.Error("Failed to count gallery stories", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count gallery stories: %w", err)
	}
	return stories, total, nil
}

func (r *pgGalleryRepository) selectStories(ctx context.Context, query string, args ...interface{}) ([]models.GalleryStory, error) {
	r.logger.Debug("Executing query", zap.String("query", query), zap.Any("args", args))

	var rows []galleryStoryRow
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		r.logger.Error("Failed to list gallery stories", zap.Error(err))
		return nil, fmt.Errorf("failed to list gallery stories: %w", err)
	}

	stories := make([]models.GalleryStory, 0, len(rows))
	for _, row := range rows {
		story, err := row.toModel()
		if err != nil {
			// Битые кадры одной истории не ломают весь список
			r.logger.Warn("Skipping story with malformed frames", zap.String("storyID", row.ID.String()), zap.Error(err))
			continue
		}
		stories = append(stories, story)
	}
	return stories, nil
}

func (r *pgGalleryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM gallery_stories WHERE id = $1`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("storyID", id.String()))

	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete gallery story", zap.Error(err), zap.String("storyID", id.String()))
		return fmt.Errorf("failed to delete gallery story: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	r.logger.Info("Gallery story deleted", zap.String("storyID", id.String()))
	return nil
}

func (r *pgGalleryRepository) SetVisibility(ctx context.Context, id uuid.UUID, isPublic bool) (*models.GalleryStory, error) {
	query := `UPDATE gallery_stories SET is_public = $2 WHERE id = $1`
	logFields := []zap.Field{zap.String("storyID", id.String()), zap.Bool("isPublic", isPublic)}
	r.logger.Debug("Executing query", append(logFields, zap.String("query", query))...)

	cmdTag, err := r.db.Exec(ctx, query, id, isPublic)
	if err != nil {
		r.logger.Error("Failed to update story visibility", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to update story visibility: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, models.ErrStoryNotFound
	}
	r.logger.Info("Story visibility updated", logFields...)
	return r.GetByID(ctx, id)
}

func (r *pgGalleryRepository) CountStories(ctx context.Context) (int64, int64, error) {
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_public) FROM gallery_stories`
	r.logger.Debug("Executing query", zap.String("query", query))

	var total, public int64
	if err := r.db.QueryRow(ctx, query).Scan(&total, &public); err != nil {
		r.logger.Error("Failed to count stories", zap.Error(err))
		return 0, 0, fmt.Errorf("failed to count stories: %w", err)
	}
	return total, public, nil
}
