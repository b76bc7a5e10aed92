package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storyboard-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenVerifier проверяет access токен. Реализуется service.AuthService.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, tokenString string) (*models.Claims, error)
}

const (
	msgTokenRequired = "Authorization token required"
	msgTokenInvalid  = "Invalid or expired token"
	msgAdminRequired = "Admin access required"
)

// bearerToken разбирает заголовок Authorization: present=false без заголовка, valid=false при неверном формате.
func bearerToken(c *gin.Context) (token string, present bool, valid bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false, false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", true, false
	}
	return parts[1], true, true
}

func setClaims(c *gin.Context, claims *models.Claims) {
	c.Set(models.CtxClaimsKey, claims)
	c.Set(models.CtxUserIDKey, claims.UserID)
	c.Set(models.CtxRoleKey, claims.Role)
	c.Set(models.CtxIsAdminKey, claims.IsAdmin)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: message})
}

// RequireAuth пропускает только запросы с действующим access токеном.
func RequireAuth(verifier TokenVerifier, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present, valid := bearerToken(c)
		if !present {
			log.Warn("Authorization header missing", zap.String("path", c.Request.URL.Path))
			abortUnauthorized(c, msgTokenRequired)
			return
		}
		if !valid {
			log.Warn("Invalid Authorization header format")
			abortUnauthorized(c, msgTokenInvalid)
			return
		}

		claims, err := verifier.VerifyAccessToken(c.Request.Context(), token)
		if err != nil {
			if isTokenError(err) {
				log.Warn("Access token verification failed", zap.Error(err))
				abortUnauthorized(c, msgTokenInvalid)
				return
			}
			log.Error("Access token verification error", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Error: "An unexpected error occurred"})
			return
		}

		setClaims(c, claims)
		log.Debug("Access token verified", zap.String("userID", claims.UserID.String()), zap.String("accessUUID", claims.ID))
		c.Next()
	}
}

// OptionalAuth заполняет контекст, если передан действующий токен. Без токена запрос идет дальше анонимно,
// неверный токен отклоняется.
func OptionalAuth(verifier TokenVerifier, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, present, _ := bearerToken(c); !present {
			c.Next()
			return
		}
		RequireAuth(verifier, log)(c)
	}
}

// RequireAdmin должен стоять после RequireAuth.
func RequireAdmin(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(models.CtxRoleKey)
		isAdmin := c.GetBool(models.CtxIsAdminKey)
		if !models.IsPrivileged(role, isAdmin) {
			userID, _ := UserIDFromContext(c)
			log.Warn("Admin access denied", zap.String("userID", userID.String()), zap.String("role", role))
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{Error: msgAdminRequired})
			return
		}
		c.Next()
	}
}

// UserIDFromContext возвращает ID пользователя, установленный middleware.
func UserIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(models.CtxUserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

// ClaimsFromContext возвращает claims текущего токена.
func ClaimsFromContext(c *gin.Context) (*models.Claims, bool) {
	value, exists := c.Get(models.CtxClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.Claims)
	return claims, ok
}

func isTokenError(err error) bool {
	return errors.Is(err, models.ErrTokenInvalid) ||
		errors.Is(err, models.ErrTokenExpired) ||
		errors.Is(err, models.ErrTokenMalformed) ||
		errors.Is(err, models.ErrTokenNotFound) ||
		errors.Is(err, models.ErrUnauthorized)
}
