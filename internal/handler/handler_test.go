package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storyboard-server/internal/models"
	"storyboard-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Моки сервисов. Встроенный интерфейс закрывает методы, которые тест не вызывает.

type mockAuthService struct {
	service.AuthService
	mock.Mock
}

func (m *mockAuthService) Register(ctx context.Context, name, email, password string) (*models.User, *models.TokenDetails, error) {
	args := m.Called(ctx, name, email, password)
	user, _ := args.Get(0).(*models.User)
	td, _ := args.Get(1).(*models.TokenDetails)
	return user, td, args.Error(2)
}

func (m *mockAuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*models.Claims, error) {
	args := m.Called(ctx, tokenString)
	claims, _ := args.Get(0).(*models.Claims)
	return claims, args.Error(1)
}

type mockStoryboardService struct {
	mock.Mock
}

func (m *mockStoryboardService) GenerateStoryboard(ctx context.Context, req models.StoryboardRequest) (*models.StoryboardResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*models.StoryboardResult)
	return result, args.Error(1)
}

type mockGalleryService struct {
	service.GalleryService
	mock.Mock
}

func (m *mockGalleryService) ListPublic(ctx context.Context, limit, offset int) ([]models.GalleryStory, error) {
	args := m.Called(ctx, limit, offset)
	stories, _ := args.Get(0).([]models.GalleryStory)
	return stories, args.Error(1)
}

func (m *mockGalleryService) ToggleLike(ctx context.Context, storyID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, storyID, userID)
	return args.Bool(0), args.Error(1)
}

type mockAdminService struct {
	service.AdminService
	mock.Mock
}

func (m *mockAdminService) Stats(ctx context.Context) (*models.UserStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*models.UserStats)
	return stats, args.Error(1)
}

type handlerFixture struct {
	auth       *mockAuthService
	storyboard *mockStoryboardService
	gallery    *mockGalleryService
	admin      *mockAdminService
	router     *gin.Engine
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		auth:       &mockAuthService{},
		storyboard: &mockStoryboardService{},
		gallery:    &mockGalleryService{},
		admin:      &mockAdminService{},
		router:     gin.New(),
	}
	h := NewHandler(f.auth, f.storyboard, nil, f.gallery, f.admin, zap.NewNop())
	h.RegisterRoutes(f.router, Limiters{})
	return f
}

func (f *handlerFixture) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

const validStoryboardBody = `{
	"prompt": "A robot learns to paint",
	"genre": "sci-fi",
	"visualStyle": "watercolor",
	"mood": "hopeful",
	"frameCount": 2,
	"cameraAngles": ["wide"],
	"userId": "body-user"
}`

func TestHealth(t *testing.T) {
	f := newHandlerFixture()

	w := f.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGenerateStoryboard(t *testing.T) {
	result := &models.StoryboardResult{
		Title:  "Robot",
		Frames: []models.RenderedFrame{{Description: "f1", ImageURL: "https://img/1.png"}},
	}

	t.Run("anonymous keeps body userId", func(t *testing.T) {
		f := newHandlerFixture()
		f.storyboard.On("GenerateStoryboard", mock.Anything, mock.MatchedBy(func(req models.StoryboardRequest) bool {
			return req.UserID == "body-user" && req.FrameCount == 2 && req.VisualStyle == "watercolor"
		})).Return(result, nil).Once()

		w := f.do(http.MethodPost, "/api/generateStoryboard", validStoryboardBody, "")
		assert.Equal(t, http.StatusOK, w.Code)

		var got models.StoryboardResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "Robot", got.Title)
		assert.Len(t, got.Frames, 1)
		f.storyboard.AssertExpectations(t)
	})

	t.Run("token user overrides body userId", func(t *testing.T) {
		f := newHandlerFixture()
		userID := uuid.New()
		f.auth.On("VerifyAccessToken", mock.Anything, "tok").Return(&models.Claims{UserID: userID, Role: models.RoleUser}, nil).Once()
		f.storyboard.On("GenerateStoryboard", mock.Anything, mock.MatchedBy(func(req models.StoryboardRequest) bool {
			return req.UserID == userID.String()
		})).Return(result, nil).Once()

		w := f.do(http.MethodPost, "/api/generateStoryboard", validStoryboardBody, "tok")
		assert.Equal(t, http.StatusOK, w.Code)
		f.storyboard.AssertExpectations(t)
	})

	t.Run("validation error", func(t *testing.T) {
		f := newHandlerFixture()
		f.storyboard.On("GenerateStoryboard", mock.Anything, mock.Anything).
			Return(nil, models.NewValidationError("Prompt is required")).Once()

		w := f.do(http.MethodPost, "/api/generateStoryboard", `{"genre":"drama"}`, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Prompt is required", errorBody(t, w))
	})

	t.Run("daily limit reached", func(t *testing.T) {
		f := newHandlerFixture()
		f.storyboard.On("GenerateStoryboard", mock.Anything, mock.Anything).
			Return(nil, models.NewRateLimitError("Daily generation limit reached")).Once()

		w := f.do(http.MethodPost, "/api/generateStoryboard", validStoryboardBody, "")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "Daily generation limit reached", errorBody(t, w))
	})

	t.Run("malformed json", func(t *testing.T) {
		f := newHandlerFixture()

		w := f.do(http.MethodPost, "/api/generateStoryboard", `{"prompt":`, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid JSON input", errorBody(t, w))
		f.storyboard.AssertNotCalled(t, "GenerateStoryboard", mock.Anything, mock.Anything)
	})

	t.Run("empty body", func(t *testing.T) {
		f := newHandlerFixture()

		w := f.do(http.MethodPost, "/api/generateStoryboard", "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Request body required", errorBody(t, w))
	})
}

func TestListGallery(t *testing.T) {
	t.Run("default page", func(t *testing.T) {
		f := newHandlerFixture()
		stories := []models.GalleryStory{{ID: uuid.New(), Title: "Robot"}}
		f.gallery.On("ListPublic", mock.Anything, service.DefaultGalleryLimit, 0).Return(stories, nil).Once()

		w := f.do(http.MethodGet, "/api/gallery", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		f.gallery.AssertExpectations(t)
	})

	t.Run("non numeric limit", func(t *testing.T) {
		f := newHandlerFixture()

		w := f.do(http.MethodGet, "/api/gallery?limit=abc", "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid pagination parameters", errorBody(t, w))
	})
}

func TestLikeStory(t *testing.T) {
	storyID, userID := uuid.New(), uuid.New()

	t.Run("toggles", func(t *testing.T) {
		f := newHandlerFixture()
		f.gallery.On("ToggleLike", mock.Anything, storyID, userID).Return(true, nil).Once()

		w := f.do(http.MethodPost, "/api/gallery/"+storyID.String()+"/like", fmt.Sprintf(`{"userId":%q}`, userID), "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"message":"Like toggled successfully","liked":true}`, w.Body.String())
	})

	t.Run("malformed story id", func(t *testing.T) {
		f := newHandlerFixture()

		w := f.do(http.MethodPost, "/api/gallery/not-a-uuid/like", fmt.Sprintf(`{"userId":%q}`, userID), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Story not found", errorBody(t, w))
	})

	t.Run("missing user", func(t *testing.T) {
		f := newHandlerFixture()

		w := f.do(http.MethodPost, "/api/gallery/"+storyID.String()+"/like", `{}`, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Missing required fields: userId", errorBody(t, w))
	})

	t.Run("story absent", func(t *testing.T) {
		f := newHandlerFixture()
		f.gallery.On("ToggleLike", mock.Anything, storyID, userID).
			Return(false, models.NewNotFoundError(models.ErrStoryNotFound, "Story not found")).Once()

		w := f.do(http.MethodPost, "/api/gallery/"+storyID.String()+"/like", fmt.Sprintf(`{"userId":%q}`, userID), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRegister(t *testing.T) {
	t.Run("returns user and tokens", func(t *testing.T) {
		f := newHandlerFixture()
		email := "alice@example.com"
		hash := "secret-hash"
		user := &models.User{ID: uuid.New(), Name: "Alice", Email: &email, PasswordHash: &hash, Role: models.RoleUser}
		td := &models.TokenDetails{AccessToken: "access", RefreshToken: "refresh", AtExpires: time.Now().Add(15 * time.Minute).Unix()}
		f.auth.On("Register", mock.Anything, "Alice", email, "Str0ng!pass").Return(user, td, nil).Once()

		w := f.do(http.MethodPost, "/api/auth/register", `{"name":"Alice","email":"alice@example.com","password":"Str0ng!pass"}`, "")
		require.Equal(t, http.StatusCreated, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, user.ID.String(), body["id"])
		assert.Equal(t, "access", body["access_token"])
		assert.Equal(t, "refresh", body["refresh_token"])
		assert.Equal(t, "Bearer", body["token_type"])
		assert.Greater(t, body["expires_in"].(float64), float64(0))
		assert.NotContains(t, body, "password_hash")
		assert.NotContains(t, w.Body.String(), hash)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newHandlerFixture()

		w := f.do(http.MethodPost, "/api/auth/register", `{"name":"Alice"}`, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Missing required fields: email, password", errorBody(t, w))
	})

	t.Run("email taken", func(t *testing.T) {
		f := newHandlerFixture()
		f.auth.On("Register", mock.Anything, "Alice", "alice@example.com", "Str0ng!pass").
			Return(nil, nil, &models.AppError{Kind: models.ErrEmailTaken, Message: "User with this email already exists"}).Once()

		w := f.do(http.MethodPost, "/api/auth/register", `{"name":"Alice","email":"alice@example.com","password":"Str0ng!pass"}`, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "User with this email already exists", errorBody(t, w))
	})
}

func TestAdminRoutes(t *testing.T) {
	t.Run("plain user is forbidden", func(t *testing.T) {
		f := newHandlerFixture()
		f.auth.On("VerifyAccessToken", mock.Anything, "tok").Return(&models.Claims{UserID: uuid.New(), Role: models.RoleUser}, nil).Once()

		w := f.do(http.MethodGet, "/api/admin/stats", "", "tok")
		assert.Equal(t, http.StatusForbidden, w.Code)
		f.admin.AssertNotCalled(t, "Stats", mock.Anything)
	})

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		f := newHandlerFixture()

		w := f.do(http.MethodGet, "/api/admin/stats", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("admin gets stats", func(t *testing.T) {
		f := newHandlerFixture()
		f.auth.On("VerifyAccessToken", mock.Anything, "tok").Return(&models.Claims{UserID: uuid.New(), Role: models.RoleAdmin}, nil).Once()
		f.admin.On("Stats", mock.Anything).Return(&models.UserStats{TotalUsers: 3, TotalStories: 2, PublicStories: 1, PrivateStories: 1}, nil).Once()

		w := f.do(http.MethodGet, "/api/admin/stats", "", "tok")
		assert.Equal(t, http.StatusOK, w.Code)
		f.admin.AssertExpectations(t)
	})
}

func TestHandleServiceError(t *testing.T) {
	testCases := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"validation", models.NewValidationError("Genre is required"), http.StatusBadRequest, "Genre is required"},
		{"invalid credentials", &models.AppError{Kind: models.ErrInvalidCredentials, Message: "Invalid email or password"}, http.StatusBadRequest, "Invalid email or password"},
		{"rate limit", models.NewRateLimitError("Daily generation limit reached"), http.StatusTooManyRequests, "Daily generation limit reached"},
		{"user not found", models.NewNotFoundError(models.ErrUserNotFound, "User not found"), http.StatusNotFound, "User not found"},
		{"bare story not found", fmt.Errorf("load: %w", models.ErrStoryNotFound), http.StatusNotFound, "Story not found"},
		{"expired token", models.ErrTokenExpired, http.StatusUnauthorized, "Invalid or expired token"},
		{"forbidden", models.NewForbiddenError("Admin access required"), http.StatusForbidden, "Admin access required"},
		{"generation failed", models.NewGenerationError("Failed to generate storyboard", errors.New("upstream 500")), http.StatusInternalServerError, "Failed to generate storyboard"},
		{"unknown", errors.New("pgx: connection refused"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			handleServiceError(c, tc.err)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantMessage, errorBody(t, w))
			assert.True(t, c.IsAborted())
		})
	}
}
