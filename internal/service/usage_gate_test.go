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

var gateNow = time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)

func newTestGate(t *testing.T) (*usageGateImpl, *mocks.MockUserRepository) {
	repo := mocks.NewMockUserRepository(t)
	gate := NewUsageGate(repo, 3, zap.NewNop()).(*usageGateImpl)
	gate.now = func() time.Time { return gateNow }
	return gate, repo
}

func TestUsageGate_Authorize(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	yesterday := gateNow.AddDate(0, 0, -1)

	tests := []struct {
		name      string
		user      *models.User
		repoErr   error
		wantLimit bool
	}{
		{name: "new day ignores count", user: &models.User{ID: userID, Role: models.RoleUser, DailyUsageCount: 10, LastUsageDate: yesterday}},
		{name: "under limit today", user: &models.User{ID: userID, Role: models.RoleUser, DailyUsageCount: 2, LastUsageDate: gateNow}},
		{name: "at limit today", user: &models.User{ID: userID, Role: models.RoleUser, DailyUsageCount: 3, LastUsageDate: gateNow}, wantLimit: true},
		{name: "admin role bypasses", user: &models.User{ID: userID, Role: models.RoleAdmin, DailyUsageCount: 99, LastUsageDate: gateNow}},
		{name: "superadmin role bypasses", user: &models.User{ID: userID, Role: models.RoleSuperAdmin, DailyUsageCount: 99, LastUsageDate: gateNow}},
		{name: "is_admin flag bypasses", user: &models.User{ID: userID, Role: models.RoleUser, IsAdmin: true, DailyUsageCount: 99, LastUsageDate: gateNow}},
		{name: "store error fails open", repoErr: errors.New("connection refused")},
		{name: "unknown user fails open", repoErr: models.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, repo := newTestGate(t)
			repo.On("GetUserByID", ctx, userID).Return(tt.user, tt.repoErr).Once()

			err := gate.Authorize(ctx, userID.String())
			if tt.wantLimit {
				require.Error(t, err)
				assert.ErrorIs(t, err, models.ErrRateLimitExceeded)
				assert.Equal(t, "Daily usage limit exceeded. You can create 3 storyboards per day.", err.Error())
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestUsageGate_Authorize_InvalidUserIDFailsOpen(t *testing.T) {
	gate, _ := newTestGate(t)
	assert.NoError(t, gate.Authorize(context.Background(), "not-a-uuid"))
}

func TestUsageGate_Record(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	today := func(d time.Time) bool { return models.SameDay(d, gateNow) }

	t.Run("same day increments", func(t *testing.T) {
		gate, repo := newTestGate(t)
		user := &models.User{ID: userID, Role: models.RoleUser, DailyUsageCount: 2, LastUsageDate: gateNow}
		repo.On("GetUserByID", ctx, userID).Return(user, nil).Once()
		repo.On("UpdateUsage", ctx, userID, 3, mock.MatchedBy(today)).Return(user, nil).Once()

		require.NoError(t, gate.Record(ctx, userID.String()))
	})

	t.Run("new day resets to one", func(t *testing.T) {
		gate, repo := newTestGate(t)
		user := &models.User{ID: userID, Role: models.RoleUser, DailyUsageCount: 3, LastUsageDate: gateNow.AddDate(0, 0, -2)}
		repo.On("GetUserByID", ctx, userID).Return(user, nil).Once()
		repo.On("UpdateUsage", ctx, userID, 1, mock.MatchedBy(today)).Return(user, nil).Once()

		require.NoError(t, gate.Record(ctx, userID.String()))
	})

	t.Run("privileged user is not counted", func(t *testing.T) {
		gate, repo := newTestGate(t)
		user := &models.User{ID: userID, Role: models.RoleAdmin, LastUsageDate: gateNow}
		repo.On("GetUserByID", ctx, userID).Return(user, nil).Once()

		require.NoError(t, gate.Record(ctx, userID.String()))
		repo.AssertNotCalled(t, "UpdateUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("update error is returned", func(t *testing.T) {
		gate, repo := newTestGate(t)
		user := &models.User{ID: userID, Role: models.RoleUser, LastUsageDate: gateNow}
		repo.On("GetUserByID", ctx, userID).Return(user, nil).Once()
		repo.On("UpdateUsage", ctx, userID, 1, mock.Anything).Return(nil, errors.New("db down")).Once()

		assert.Error(t, gate.Record(ctx, userID.String()))
	})
}
