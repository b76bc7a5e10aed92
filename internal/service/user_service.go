package service

import (
	"context"
	"errors"
	"time"

	"storyboard-server/internal/interfaces"
	"storyboard-server/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService - пользователи, созданные по deviceId, и их учет использования.
type UserService interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	CreateDeviceUser(ctx context.Context, input models.NewDeviceUser) (*models.User, error)
	UpdateUsage(ctx context.Context, userID uuid.UUID, count int, date time.Time) (*models.User, error)
	ListStories(ctx context.Context, userID uuid.UUID) ([]models.GalleryStory, error)
}

var _ UserService = (*userServiceImpl)(nil)

type userServiceImpl struct {
	userRepo    interfaces.UserRepository
	galleryRepo interfaces.GalleryRepository
	logger      *zap.Logger
}

func NewUserService(userRepo interfaces.UserRepository, galleryRepo interfaces.GalleryRepository, logger *zap.Logger) UserService {
	return &userServiceImpl{
		userRepo:    userRepo,
		galleryRepo: galleryRepo,
		logger:      logger.Named("UserService"),
	}
}

func (s *userServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.NewNotFoundError(models.ErrUserNotFound, msgUserNotFound)
		}
		s.logger.Error("Failed to get user", zap.String("userID", userID.String()), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (s *userServiceImpl) CreateDeviceUser(ctx context.Context, input models.NewDeviceUser) (*models.User, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	deviceID := input.DeviceID
	user := &models.User{
		Name:          input.Name,
		DeviceID:      &deviceID,
		Role:          models.RoleUser,
		LastUsageDate: time.Now().UTC(),
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		s.logger.Error("Failed to create device user", zap.String("deviceID", deviceID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Device user created", zap.String("userID", user.ID.String()), zap.String("deviceID", deviceID))
	return user, nil
}

// UpdateUsage перезаписывает счетчик генераций так, как его прислал клиент.
func (s *userServiceImpl) UpdateUsage(ctx context.Context, userID uuid.UUID, count int, date time.Time) (*models.User, error) {
	if count < 0 {
		return nil, models.NewValidationError("Daily usage count must not be negative")
	}
	user, err := s.userRepo.UpdateUsage(ctx, userID, count, date.UTC())
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.NewNotFoundError(models.ErrUserNotFound, msgUserNotFound)
		}
		s.logger.Error("Failed to update usage", zap.String("userID", userID.String()), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (s *userServiceImpl) ListStories(ctx context.Context, userID uuid.UUID) ([]models.GalleryStory, error) {
	stories, err := s.galleryRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list user stories", zap.String("userID", userID.String()), zap.Error(err))
		return nil, err
	}
	if stories == nil {
		stories = []models.GalleryStory{}
	}
	return stories, nil
}
