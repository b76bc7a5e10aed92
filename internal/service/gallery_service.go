package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storyboard-server/internal/interfaces"
	"storyboard-server/internal/models"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Пагинация галереи
const (
	DefaultGalleryLimit = 100
	MaxPageLimit        = 100
)

const msgStoryNotFound = "Story not found"

// GalleryService - публичная галерея историй и лайки.
type GalleryService interface {
	// ListPublic нормализует limit (1..100) и offset (>= 0), страницы кешируются.
	ListPublic(ctx context.Context, limit, offset int) ([]models.GalleryStory, error)
	Create(ctx context.Context, story models.NewGalleryStory) (*models.GalleryStory, error)
	Get(ctx context.Context, storyID uuid.UUID) (*models.GalleryStory, error)
	// ToggleLike возвращает true, если лайк поставлен, и false, если снят.
	ToggleLike(ctx context.Context, storyID, userID uuid.UUID) (bool, error)
	// Invalidate сбрасывает кеш страниц после изменений вне сервиса (админка).
	Invalidate()
}

var _ GalleryService = (*galleryServiceImpl)(nil)

type galleryServiceImpl struct {
	galleryRepo interfaces.GalleryRepository
	likeRepo    interfaces.LikeRepository
	pages       *cache.Cache
	logger      *zap.Logger
}

// NewGalleryService создает сервис галереи. ttl <= 0 отключает кеш страниц.
func NewGalleryService(galleryRepo interfaces.GalleryRepository, likeRepo interfaces.LikeRepository, ttl time.Duration, logger *zap.Logger) GalleryService {
	var pages *cache.Cache
	if ttl > 0 {
		pages = cache.New(ttl, 2*ttl)
	}
	return &galleryServiceImpl{
		galleryRepo: galleryRepo,
		likeRepo:    likeRepo,
		pages:       pages,
		logger:      logger.Named("GalleryService"),
	}
}

// ClampPage приводит параметры пагинации к допустимым значениям.
func ClampPage(limit, offset int) (int, int) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *galleryServiceImpl) ListPublic(ctx context.Context, limit, offset int) ([]models.GalleryStory, error) {
	limit, offset = ClampPage(limit, offset)
	key := fmt.Sprintf("gallery:%d:%d", limit, offset)

	if s.pages != nil {
		if cached, ok := s.pages.Get(key); ok {
			s.logger.Debug("Gallery page served from cache", zap.String("key", key))
			return cached.([]models.GalleryStory), nil
		}
	}

	stories, err := s.galleryRepo.ListPublic(ctx, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list gallery stories", zap.Int("limit", limit), zap.Int("offset", offset), zap.Error(err))
		return nil, err
	}
	if stories == nil {
		stories = []models.GalleryStory{}
	}
	if s.pages != nil {
		s.pages.SetDefault(key, stories)
	}
	return stories, nil
}

func (s *galleryServiceImpl) Create(ctx context.Context, story models.NewGalleryStory) (*models.GalleryStory, error) {
	if err := story.Validate(); err != nil {
		return nil, err
	}
	created, err := s.galleryRepo.Create(ctx, story)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.NewNotFoundError(models.ErrUserNotFound, msgUserNotFound)
		}
		s.logger.Error("Failed to add story to gallery", zap.String("userID", story.UserID.String()), zap.Error(err))
		return nil, err
	}
	s.Invalidate()
	s.logger.Info("Story added to gallery", zap.String("storyID", created.ID.String()), zap.Bool("public", created.IsPublic))
	return created, nil
}

func (s *galleryServiceImpl) Get(ctx context.Context, storyID uuid.UUID) (*models.GalleryStory, error) {
	story, err := s.galleryRepo.GetByID(ctx, storyID)
	if err != nil {
		if errors.Is(err, models.ErrStoryNotFound) {
			return nil, models.NewNotFoundError(models.ErrStoryNotFound, msgStoryNotFound)
		}
		return nil, err
	}
	return story, nil
}

func (s *galleryServiceImpl) ToggleLike(ctx context.Context, storyID, userID uuid.UUID) (bool, error) {
	if _, err := s.Get(ctx, storyID); err != nil {
		return false, err
	}
	liked, err := s.likeRepo.ToggleLike(ctx, storyID, userID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrStoryNotFound):
			return false, models.NewNotFoundError(models.ErrStoryNotFound, msgStoryNotFound)
		case errors.Is(err, models.ErrUserNotFound):
			return false, models.NewNotFoundError(models.ErrUserNotFound, msgUserNotFound)
		}
		s.logger.Error("Failed to toggle like", zap.String("storyID", storyID.String()), zap.String("userID", userID.String()), zap.Error(err))
		return false, err
	}
	// Счетчики лайков входят в кешированные страницы
	s.Invalidate()
	return liked, nil
}

func (s *galleryServiceImpl) Invalidate() {
	if s.pages != nil {
		s.pages.Flush()
	}
}
