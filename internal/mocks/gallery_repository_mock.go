package mocks

import (
	"context"

	"storyboard-server/internal/interfaces"
	"storyboard-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockGalleryRepository is a mock type for the GalleryRepository type
type MockGalleryRepository struct {
	mock.Mock
}

func (m *MockGalleryRepository) Create(ctx context.Context, story models.NewGalleryStory) (*models.GalleryStory, error) {
	args := m.Called(ctx, story)
	s, _ := args.Get(0).(*models.GalleryStory)
	return s, args.Error(1)
}

func (m *MockGalleryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GalleryStory, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*models.GalleryStory)
	return s, args.Error(1)
}

func (m *MockGalleryRepository) ListPublic(ctx context.Context, limit, offset int) ([]models.GalleryStory, error) {
	args := m.Called(ctx, limit, offset)
	s, _ := args.Get(0).([]models.GalleryStory)
	return s, args.Error(1)
}

func (m *MockGalleryRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.GalleryStory, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).([]models.GalleryStory)
	return s, args.Error(1)
}

func (m *MockGalleryRepository) ListAll(ctx context.Context, limit, offset int, includePrivate bool) ([]models.GalleryStory, int64, error) {
	args := m.Called(ctx, limit, offset, includePrivate)
	s, _ := args.Get(0).([]models.GalleryStory)
	return s, args.Get(1).(int64), args.Error(2)
}

func (m *MockGalleryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockGalleryRepository) SetVisibility(ctx context.Context, id uuid.UUID, isPublic bool) (*models.GalleryStory, error) {
	args := m.Called(ctx, id, isPublic)
	s, _ := args.Get(0).(*models.GalleryStory)
	return s, args.Error(1)
}

func (m *MockGalleryRepository) CountStories(ctx context.Context) (int64, int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// NewMockGalleryRepository creates a new instance of MockGalleryRepository and asserts expectations on cleanup.
func NewMockGalleryRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGalleryRepository {
	m := &MockGalleryRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockLikeRepository is a mock type for the LikeRepository type
type MockLikeRepository struct {
	mock.Mock
}

func (m *MockLikeRepository) ToggleLike(ctx context.Context, storyID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, storyID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLikeRepository) CountLikes(ctx context.Context, storyID uuid.UUID) (int64, error) {
	args := m.Called(ctx, storyID)
	return args.Get(0).(int64), args.Error(1)
}

// NewMockLikeRepository creates a new instance of MockLikeRepository and asserts expectations on cleanup.
func NewMockLikeRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockLikeRepository {
	m := &MockLikeRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var (
	_ interfaces.GalleryRepository = (*MockGalleryRepository)(nil)
	_ interfaces.LikeRepository    = (*MockLikeRepository)(nil)
)
