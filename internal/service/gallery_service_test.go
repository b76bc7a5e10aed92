package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"storyboard-server/internal/mocks"
	"storyboard-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGalleryService(t *testing.T, ttl time.Duration) (GalleryService, *mocks.MockGalleryRepository, *mocks.MockLikeRepository) {
	galleryRepo := mocks.NewMockGalleryRepository(t)
	likeRepo := mocks.NewMockLikeRepository(t)
	return NewGalleryService(galleryRepo, likeRepo, ttl, zap.NewNop()), galleryRepo, likeRepo
}

func TestClampPage(t *testing.T) {
	testCases := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{100, 0, 100, 0},
		{500, 10, 100, 10},
		{0, 0, 1, 0},
		{-5, -3, 1, 0},
		{20, 40, 20, 40},
	}
	for _, tc := range testCases {
		limit, offset := ClampPage(tc.limit, tc.offset)
		assert.Equal(t, tc.wantLimit, limit)
		assert.Equal(t, tc.wantOffset, offset)
	}
}

func TestGalleryService_ListPublic_CachesPages(t *testing.T) {
	svc, galleryRepo, _ := newTestGalleryService(t, time.Minute)
	ctx := context.Background()
	stories := []models.GalleryStory{{ID: uuid.New(), Title: "Robot", Likes: 2}}

	// Второй вызов с теми же (нормализованными) параметрами идет из кеша
	galleryRepo.On("ListPublic", ctx, 100, 0).Return(stories, nil).Once()

	first, err := svc.ListPublic(ctx, 1000, -1)
	require.NoError(t, err)
	second, err := svc.ListPublic(ctx, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, stories, first)
	assert.Equal(t, stories, second)
}

func TestGalleryService_ListPublic_EmptyIsNotNil(t *testing.T) {
	svc, galleryRepo, _ := newTestGalleryService(t, 0)
	ctx := context.Background()
	galleryRepo.On("ListPublic", ctx, 10, 0).Return(nil, nil).Once()

	stories, err := svc.ListPublic(ctx, 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, stories)
	assert.Empty(t, stories)
}

func TestGalleryService_Create(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	input := models.NewGalleryStory{
		Title:       "Robot",
		Description: "A robot learns to paint",
		Frames:      []models.RenderedFrame{{Description: "f1", ImageURL: "https://img/1.png"}},
		UserName:    "Alice",
		UserID:      userID,
	}

	t.Run("flushes cached pages", func(t *testing.T) {
		svc, galleryRepo, _ := newTestGalleryService(t, time.Minute)
		galleryRepo.On("ListPublic", ctx, 100, 0).Return([]models.GalleryStory{}, nil).Twice()
		created := &models.GalleryStory{ID: uuid.New(), Title: "Robot", IsPublic: true}
		galleryRepo.On("Create", ctx, input).Return(created, nil).Once()

		_, err := svc.ListPublic(ctx, 100, 0)
		require.NoError(t, err)
		got, err := svc.Create(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, created, got)
		_, err = svc.ListPublic(ctx, 100, 0)
		require.NoError(t, err)
	})

	t.Run("missing fields", func(t *testing.T) {
		svc, _, _ := newTestGalleryService(t, 0)
		_, err := svc.Create(ctx, models.NewGalleryStory{Title: "Robot", UserName: "Alice", UserID: userID})
		assert.ErrorIs(t, err, models.ErrValidation)
		assert.Equal(t, "Missing required fields: description, frames", err.Error())
	})

	t.Run("unknown owner", func(t *testing.T) {
		svc, galleryRepo, _ := newTestGalleryService(t, 0)
		galleryRepo.On("Create", ctx, input).Return(nil, models.ErrUserNotFound).Once()

		_, err := svc.Create(ctx, input)
		assert.ErrorIs(t, err, models.ErrUserNotFound)
		assert.Equal(t, "User not found", err.Error())
	})
}

func TestGalleryService_Get_NotFound(t *testing.T) {
	svc, galleryRepo, _ := newTestGalleryService(t, 0)
	ctx := context.Background()
	id := uuid.New()
	galleryRepo.On("GetByID", ctx, id).Return(nil, models.ErrStoryNotFound).Once()

	_, err := svc.Get(ctx, id)
	assert.ErrorIs(t, err, models.ErrStoryNotFound)
	assert.Equal(t, "Story not found", err.Error())
}

func TestGalleryService_ToggleLike(t *testing.T) {
	ctx := context.Background()
	storyID, userID := uuid.New(), uuid.New()

	t.Run("toggles existing story", func(t *testing.T) {
		svc, galleryRepo, likeRepo := newTestGalleryService(t, 0)
		galleryRepo.On("GetByID", ctx, storyID).Return(&models.GalleryStory{ID: storyID}, nil).Once()
		likeRepo.On("ToggleLike", ctx, storyID, userID).Return(true, nil).Once()

		liked, err := svc.ToggleLike(ctx, storyID, userID)
		require.NoError(t, err)
		assert.True(t, liked)
	})

	t.Run("story absent", func(t *testing.T) {
		svc, galleryRepo, _ := newTestGalleryService(t, 0)
		galleryRepo.On("GetByID", ctx, storyID).Return(nil, models.ErrStoryNotFound).Once()

		_, err := svc.ToggleLike(ctx, storyID, userID)
		assert.ErrorIs(t, err, models.ErrStoryNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, galleryRepo, likeRepo := newTestGalleryService(t, 0)
		galleryRepo.On("GetByID", ctx, storyID).Return(&models.GalleryStory{ID: storyID}, nil).Once()
		likeRepo.On("ToggleLike", ctx, storyID, mock.Anything).Return(false, errors.New("connection reset")).Once()

		_, err := svc.ToggleLike(ctx, storyID, userID)
		require.Error(t, err)
		_, hasMessage := models.ClientMessage(err)
		assert.False(t, hasMessage)
	})
}
