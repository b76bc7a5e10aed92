package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storyboard-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) VerifyAccessToken(ctx context.Context, tokenString string) (*models.Claims, error) {
	args := m.Called(ctx, tokenString)
	claims, _ := args.Get(0).(*models.Claims)
	return claims, args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		id, ok := UserIDFromContext(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, id.String())
	})
	r.GET("/protected", handlers...)
	return r
}

func doGet(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	userID := uuid.New()

	testCases := []struct {
		name       string
		header     string
		setup      func(v *mockVerifier)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Authorization token required"}`,
		},
		{
			name:       "wrong scheme",
			header:     "Basic abc",
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Invalid or expired token"}`,
		},
		{
			name:   "expired token",
			header: "Bearer expired",
			setup: func(v *mockVerifier) {
				v.On("VerifyAccessToken", mock.Anything, "expired").Return(nil, models.ErrTokenExpired).Once()
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Invalid or expired token"}`,
		},
		{
			name:   "store failure",
			header: "Bearer good",
			setup: func(v *mockVerifier) {
				v.On("VerifyAccessToken", mock.Anything, "good").Return(nil, errors.New("redis down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"An unexpected error occurred"}`,
		},
		{
			name:   "valid token",
			header: "Bearer good",
			setup: func(v *mockVerifier) {
				v.On("VerifyAccessToken", mock.Anything, "good").Return(&models.Claims{UserID: userID, Role: models.RoleUser}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   userID.String(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := &mockVerifier{}
			if tc.setup != nil {
				tc.setup(v)
			}
			w := doGet(newAuthRouter(RequireAuth(v, zap.NewNop())), tc.header)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantStatus == http.StatusOK {
				assert.Equal(t, tc.wantBody, w.Body.String())
			} else {
				assert.JSONEq(t, tc.wantBody, w.Body.String())
			}
			v.AssertExpectations(t)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	userID := uuid.New()

	t.Run("anonymous passes", func(t *testing.T) {
		v := &mockVerifier{}
		w := doGet(newAuthRouter(OptionalAuth(v, zap.NewNop())), "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "anonymous", w.Body.String())
		v.AssertNotCalled(t, "VerifyAccessToken", mock.Anything, mock.Anything)
	})

	t.Run("valid token sets user", func(t *testing.T) {
		v := &mockVerifier{}
		v.On("VerifyAccessToken", mock.Anything, "good").Return(&models.Claims{UserID: userID}, nil).Once()
		w := doGet(newAuthRouter(OptionalAuth(v, zap.NewNop())), "Bearer good")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, userID.String(), w.Body.String())
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		v := &mockVerifier{}
		v.On("VerifyAccessToken", mock.Anything, "bad").Return(nil, models.ErrTokenInvalid).Once()
		w := doGet(newAuthRouter(OptionalAuth(v, zap.NewNop())), "Bearer bad")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	testCases := []struct {
		name       string
		claims     *models.Claims
		wantStatus int
	}{
		{"plain user", &models.Claims{UserID: uuid.New(), Role: models.RoleUser}, http.StatusForbidden},
		{"admin role", &models.Claims{UserID: uuid.New(), Role: models.RoleAdmin}, http.StatusOK},
		{"superadmin role", &models.Claims{UserID: uuid.New(), Role: models.RoleSuperAdmin}, http.StatusOK},
		{"admin flag", &models.Claims{UserID: uuid.New(), Role: models.RoleUser, IsAdmin: true}, http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := &mockVerifier{}
			v.On("VerifyAccessToken", mock.Anything, "token").Return(tc.claims, nil).Once()
			r := newAuthRouter(RequireAuth(v, zap.NewNop()), RequireAdmin(zap.NewNop()))

			w := doGet(r, "Bearer token")
			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantStatus == http.StatusForbidden {
				assert.JSONEq(t, `{"error":"Admin access required"}`, w.Body.String())
			}
		})
	}
}

func TestGinZapLogger_SetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(GinZapLogger(zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}
