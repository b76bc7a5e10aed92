package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storyboard-server/internal/interfaces"
	"storyboard-server/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultAdminPageLimit - размер страницы списков админки по умолчанию.
const DefaultAdminPageLimit = 50

// Actor - администратор, выполняющий действие.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// UserDetail - пользователь вместе с его историями.
type UserDetail struct {
	User         *models.User          `json:"user"`
	Stories      []models.GalleryStory `json:"stories"`
	TotalStories int                   `json:"totalStories"`
}

// AdminService - управление пользователями и историями.
type AdminService interface {
	ResetDailyUsage(ctx context.Context) (int64, error)
	ListUsers(ctx context.Context, limit, offset int) (models.Page[models.User], error)
	GetUserDetail(ctx context.Context, userID uuid.UUID) (*UserDetail, error)
	UpdateUserRole(ctx context.Context, actor Actor, userID uuid.UUID, role string, isAdmin bool) (*models.User, error)
	// DeleteUser возвращает удаленного пользователя для сообщения об успехе.
	DeleteUser(ctx context.Context, actor Actor, userID uuid.UUID) (*models.User, error)
	ListStories(ctx context.Context, limit, offset int, includePrivate bool) (models.Page[models.GalleryStory], error)
	DeleteStory(ctx context.Context, storyID uuid.UUID) (*models.GalleryStory, error)
	SetStoryVisibility(ctx context.Context, storyID uuid.UUID, isPublic bool) (*models.GalleryStory, error)
	Stats(ctx context.Context) (*models.UserStats, error)
}

var _ AdminService = (*adminServiceImpl)(nil)

type adminServiceImpl struct {
	userRepo    interfaces.UserRepository
	galleryRepo interfaces.GalleryRepository
	tokenRepo   interfaces.TokenRepository
	gallery     GalleryService
	logger      *zap.Logger
}

// NewAdminService создает AdminService. gallery используется для сброса кеша публичных страниц.
func NewAdminService(
	userRepo interfaces.UserRepository,
	galleryRepo interfaces.GalleryRepository,
	tokenRepo interfaces.TokenRepository,
	gallery GalleryService,
	logger *zap.Logger,
) AdminService {
	return &adminServiceImpl{
		userRepo:    userRepo,
		galleryRepo: galleryRepo,
		tokenRepo:   tokenRepo,
		gallery:     gallery,
		logger:      logger.Named("AdminService"),
	}
}

func (s *adminServiceImpl) ResetDailyUsage(ctx context.Context) (int64, error) {
	affected, err := s.userRepo.ResetDailyUsage(ctx)
	if err != nil {
		s.logger.Error("Failed to reset daily usage", zap.Error(err))
		return 0, err
	}
	s.logger.Info("Manual daily usage reset completed", zap.Int64("usersAffected", affected))
	return affected, nil
}

func (s *adminServiceImpl) ListUsers(ctx context.Context, limit, offset int) (models.Page[models.User], error) {
	limit, offset = ClampPage(limit, offset)
	users, total, err := s.userRepo.ListUsers(ctx, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return models.Page[models.User]{}, err
	}
	if users == nil {
		users = []models.User{}
	}
	return models.NewPage(users, total, limit, offset), nil
}

func (s *adminServiceImpl) GetUserDetail(ctx context.Context, userID uuid.UUID) (*UserDetail, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	stories, err := s.galleryRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list user stories", zap.String("userID", userID.String()), zap.Error(err))
		return nil, err
	}
	if stories == nil {
		stories = []models.GalleryStory{}
	}
	return &UserDetail{User: user, Stories: stories, TotalStories: len(stories)}, nil
}

func (s *adminServiceImpl) UpdateUserRole(ctx context.Context, actor Actor, userID uuid.UUID, role string, isAdmin bool) (*models.User, error) {
	if role == "" {
		role = models.RoleUser
	}
	if !models.IsValidRole(role) {
		return nil, models.NewValidationError("Invalid role. Must be one of: " + strings.Join(models.AllRoles(), ", "))
	}
	if role != models.RoleUser && actor.Role != models.RoleSuperAdmin {
		return nil, models.NewValidationError("Only superadmin can promote users to admin")
	}

	user, err := s.userRepo.UpdateRole(ctx, userID, role, isAdmin)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.NewNotFoundError(models.ErrUserNotFound, msgUserNotFound)
		}
		s.logger.Error("Failed to update user role", zap.String("userID", userID.String()), zap.Error(err))
		return nil, err
	}

	// Старые токены несут прежнюю роль
	if _, err := s.tokenRepo.DeleteTokensByUserID(ctx, userID); err != nil {
		s.logger.Warn("Failed to revoke tokens after role change", zap.String("userID", userID.String()), zap.Error(err))
	}

	s.logger.Info("User role updated",
		zap.String("actorID", actor.UserID.String()),
		zap.String("userID", userID.String()),
		zap.String("role", role),
		zap.Bool("isAdmin", isAdmin),
	)
	return user, nil
}

func (s *adminServiceImpl) DeleteUser(ctx context.Context, actor Actor, userID uuid.UUID) (*models.User, error) {
	if userID == actor.UserID {
		return nil, models.NewValidationError("Cannot delete your own admin account")
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsPrivileged() && actor.Role != models.RoleSuperAdmin {
		return nil, models.NewValidationError("Only superadmin can delete other admin accounts")
	}

	if err := s.userRepo.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.NewNotFoundError(models.ErrUserNotFound, msgUserNotFound)
		}
		s.logger.Error("Failed to delete user", zap.String("userID", userID.String()), zap.Error(err))
		return nil, err
	}
	if _, err := s.tokenRepo.DeleteTokensByUserID(ctx, userID); err != nil {
		s.logger.Warn("Failed to revoke tokens of deleted user", zap.String("userID", userID.String()), zap.Error(err))
	}
	// Истории пользователя удаляются каскадно
	s.gallery.Invalidate()

	s.logger.Info("User deleted", zap.String("actorID", actor.UserID.String()), zap.String("userID", userID.String()))
	return user, nil
}

func (s *adminServiceImpl) ListStories(ctx context.Context, limit, offset int, includePrivate bool) (models.Page[models.GalleryStory], error) {
	limit, offset = ClampPage(limit, offset)
	stories, total, err := s.galleryRepo.ListAll(ctx, limit, offset, includePrivate)
	if err != nil {
		s.logger.Error("Failed to list stories", zap.Error(err))
		return models.Page[models.GalleryStory]{}, err
	}
	if stories == nil {
		stories = []models.GalleryStory{}
	}
	return models.NewPage(stories, total, limit, offset), nil
}

func (s *adminServiceImpl) DeleteStory(ctx context.Context, storyID uuid.UUID) (*models.GalleryStory, error) {
	story, err := s.getStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if err := s.galleryRepo.Delete(ctx, storyID); err != nil {
		if errors.Is(err, models.ErrStoryNotFound) {
			return nil, models.NewNotFoundError(models.ErrStoryNotFound, msgStoryNotFound)
		}
		s.logger.Error("Failed to delete story", zap.String("storyID", storyID.String()), zap.Error(err))
		return nil, err
	}
	s.gallery.Invalidate()
	s.logger.Info("Story deleted", zap.String("storyID", storyID.String()))
	return story, nil
}

func (s *adminServiceImpl) SetStoryVisibility(ctx context.Context, storyID uuid.UUID, isPublic bool) (*models.GalleryStory, error) {
	story, err := s.galleryRepo.SetVisibility(ctx, storyID, isPublic)
	if err != nil {
		if errors.Is(err, models.ErrStoryNotFound) {
			return nil, models.NewNotFoundError(models.ErrStoryNotFound, msgStoryNotFound)
		}
		s.logger.Error("Failed to update story visibility", zap.String("storyID", storyID.String()), zap.Error(err))
		return nil, err
	}
	s.gallery.Invalidate()
	return story, nil
}

func (s *adminServiceImpl) Stats(ctx context.Context) (*models.UserStats, error) {
	users, err := s.userRepo.GetUserCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	total, public, err := s.galleryRepo.CountStories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count stories: %w", err)
	}
	return &models.UserStats{
		TotalUsers:     users,
		TotalStories:   total,
		PublicStories:  public,
		PrivateStories: total - public,
	}, nil
}

func (s *adminServiceImpl) getUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.NewNotFoundError(models.ErrUserNotFound, msgUserNotFound)
		}
		return nil, err
	}
	return user, nil
}

func (s *adminServiceImpl) getStory(ctx context.Context, storyID uuid.UUID) (*models.GalleryStory, error) {
	story, err := s.galleryRepo.GetByID(ctx, storyID)
	if err != nil {
		if errors.Is(err, models.ErrStoryNotFound) {
			return nil, models.NewNotFoundError(models.ErrStoryNotFound, msgStoryNotFound)
		}
		return nil, err
	}
	return story, nil
}
