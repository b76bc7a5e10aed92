package interfaces

import (
	"context"

	"storyboard-server/internal/models"

	"github.com/google/uuid"
)

// GalleryRepository - хранилище историй галереи.
type GalleryRepository interface {
	Create(ctx context.Context, story models.NewGalleryStory) (*models.GalleryStory, error)

	// GetByID returns models.ErrStoryNotFound if the story does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*models.GalleryStory, error)

	// ListPublic - публичные истории, новые первыми.
	ListPublic(ctx context.Context, limit, offset int) ([]models.GalleryStory, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.GalleryStory, error)

	// ListAll - для админки, с общим количеством.
	ListAll(ctx context.Context, limit, offset int, includePrivate bool) ([]models.GalleryStory, int64, error)

	Delete(ctx context.Context, id uuid.UUID) error

	SetVisibility(ctx context.Context, id uuid.UUID, isPublic bool) (*models.GalleryStory, error)

	// CountStories возвращает общее число историй и число публичных.
	CountStories(ctx context.Context) (total int64, public int64, err error)
}

// LikeRepository - лайки историй галереи.
type LikeRepository interface {
	// ToggleLike ставит лайк, если его не было, иначе снимает. Возвращает итоговое состояние.
	ToggleLike(ctx context.Context, storyID, userID uuid.UUID) (bool, error)

	CountLikes(ctx context.Context, storyID uuid.UUID) (int64, error)
}
