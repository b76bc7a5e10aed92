package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storyboard-server/internal/interfaces"
	"storyboard-server/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UsageGate проверяет и учитывает дневной лимит генераций пользователя.
type UsageGate interface {
	// Authorize возвращает ошибку с models.ErrRateLimitExceeded, если лимит на сегодня исчерпан.
	// Ошибки хранилища не блокируют генерацию.
	Authorize(ctx context.Context, userID string) error
	// Record учитывает одну успешную генерацию.
	Record(ctx context.Context, userID string) error
}

var _ UsageGate = (*usageGateImpl)(nil)

type usageGateImpl struct {
	userRepo interfaces.UserRepository
	limit    int
	now      func() time.Time
	logger   *zap.Logger
}

// NewUsageGate создает UsageGate с дневным лимитом limit.
func NewUsageGate(userRepo interfaces.UserRepository, limit int, logger *zap.Logger) UsageGate {
	return &usageGateImpl{
		userRepo: userRepo,
		limit:    limit,
		now:      time.Now,
		logger:   logger.Named("UsageGate"),
	}
}

func (g *usageGateImpl) Authorize(ctx context.Context, userID string) error {
	log := g.logger.With(zap.String("userID", userID))

	user, err := g.loadUser(ctx, userID)
	if err != nil {
		// fail-open: учет использования не должен ломать генерацию
		log.Warn("Usage check skipped", zap.Error(err))
		return nil
	}

	if user.IsPrivileged() {
		return nil
	}
	// Новый день: счетчик будет сброшен при записи
	if !models.SameDay(user.LastUsageDate, g.now()) {
		return nil
	}
	if user.DailyUsageCount >= g.limit {
		log.Info("Daily usage limit reached", zap.Int("count", user.DailyUsageCount), zap.Int("limit", g.limit))
		return models.NewRateLimitError(fmt.Sprintf("Daily usage limit exceeded. You can create %d storyboards per day.", g.limit))
	}
	return nil
}

func (g *usageGateImpl) Record(ctx context.Context, userID string) error {
	user, err := g.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsPrivileged() {
		return nil
	}

	today := g.now().UTC()
	count := 1
	if models.SameDay(user.LastUsageDate, today) {
		count = user.DailyUsageCount + 1
	}
	// Чтение и запись не атомарны: параллельные запросы одного пользователя могут недосчитать.
	if _, err := g.userRepo.UpdateUsage(ctx, user.ID, count, today); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	g.logger.Debug("Usage recorded", zap.String("userID", userID), zap.Int("count", count))
	return nil
}

func (g *usageGateImpl) loadUser(ctx context.Context, userID string) (*models.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	user, err := g.userRepo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}
