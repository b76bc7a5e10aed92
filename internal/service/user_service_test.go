package service

import (
	"context"
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

func TestUserService_CreateDeviceUser(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with zero usage", func(t *testing.T) {
		userRepo := mocks.NewMockUserRepository(t)
		svc := NewUserService(userRepo, mocks.NewMockGalleryRepository(t), zap.NewNop())
		newID := uuid.New()
		userRepo.On("CreateUser", ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.Name == "Alice" && *u.DeviceID == "device-1" && u.DailyUsageCount == 0 && u.Email == nil
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.User).ID = newID
		}).Return(nil).Once()

		user, err := svc.CreateDeviceUser(ctx, models.NewDeviceUser{Name: "Alice", DeviceID: "device-1"})
		require.NoError(t, err)
		assert.Equal(t, newID, user.ID)
		assert.True(t, models.SameDay(user.LastUsageDate, time.Now()))
	})

	t.Run("missing device id", func(t *testing.T) {
		svc := NewUserService(mocks.NewMockUserRepository(t), mocks.NewMockGalleryRepository(t), zap.NewNop())
		_, err := svc.CreateDeviceUser(ctx, models.NewDeviceUser{Name: "Alice"})
		assert.ErrorIs(t, err, models.ErrValidation)
		assert.Equal(t, "Missing required fields: deviceId", err.Error())
	})
}

func TestUserService_GetUser_NotFound(t *testing.T) {
	ctx := context.Background()
	userRepo := mocks.NewMockUserRepository(t)
	svc := NewUserService(userRepo, mocks.NewMockGalleryRepository(t), zap.NewNop())
	id := uuid.New()
	userRepo.On("GetUserByID", ctx, id).Return(nil, models.ErrUserNotFound).Once()

	_, err := svc.GetUser(ctx, id)
	assert.ErrorIs(t, err, models.ErrUserNotFound)
	assert.Equal(t, "User not found", err.Error())
}

func TestUserService_UpdateUsage(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	date := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	t.Run("writes count and date", func(t *testing.T) {
		userRepo := mocks.NewMockUserRepository(t)
		svc := NewUserService(userRepo, mocks.NewMockGalleryRepository(t), zap.NewNop())
		updated := &models.User{ID: id, DailyUsageCount: 2, LastUsageDate: date}
		userRepo.On("UpdateUsage", ctx, id, 2, date).Return(updated, nil).Once()

		got, err := svc.UpdateUsage(ctx, id, 2, date)
		require.NoError(t, err)
		assert.Equal(t, 2, got.DailyUsageCount)
	})

	t.Run("negative count", func(t *testing.T) {
		svc := NewUserService(mocks.NewMockUserRepository(t), mocks.NewMockGalleryRepository(t), zap.NewNop())
		_, err := svc.UpdateUsage(ctx, id, -1, date)
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestUserService_ListStories(t *testing.T) {
	ctx := context.Background()
	galleryRepo := mocks.NewMockGalleryRepository(t)
	svc := NewUserService(mocks.NewMockUserRepository(t), galleryRepo, zap.NewNop())
	id := uuid.New()
	galleryRepo.On("ListByUser", ctx, id).Return(nil, nil).Once()

	stories, err := svc.ListStories(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, stories)
	assert.Empty(t, stories)
}
