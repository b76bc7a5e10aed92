package handler

import (
	"errors"
	"net/http"

	"storyboard-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const msgUnexpected = "An unexpected error occurred"

// handleServiceError переводит ошибку сервиса в HTTP статус и тело {error}.
// Клиент видит только сообщение AppError, внутренние детали остаются в логах.
func handleServiceError(c *gin.Context, err error) {
	var status int
	var fallback string

	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrBadRequest),
		errors.Is(err, models.ErrEmailTaken),
		errors.Is(err, models.ErrInvalidCredentials):
		status, fallback = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, models.ErrRateLimitExceeded):
		status, fallback = http.StatusTooManyRequests, "Rate limit exceeded"
	case errors.Is(err, models.ErrUserNotFound):
		status, fallback = http.StatusNotFound, "User not found"
	case errors.Is(err, models.ErrStoryNotFound):
		status, fallback = http.StatusNotFound, "Story not found"
	case errors.Is(err, models.ErrNotFound):
		status, fallback = http.StatusNotFound, "Resource not found"
	case errors.Is(err, models.ErrUnauthorized),
		errors.Is(err, models.ErrTokenInvalid),
		errors.Is(err, models.ErrTokenMalformed),
		errors.Is(err, models.ErrTokenExpired),
		errors.Is(err, models.ErrTokenNotFound):
		status, fallback = http.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, models.ErrForbidden):
		status, fallback = http.StatusForbidden, "Forbidden"
	case errors.Is(err, models.ErrGenerationFailed):
		status, fallback = http.StatusInternalServerError, "Generation failed"
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Error: msgUnexpected})
		return
	}

	message, ok := models.ClientMessage(err)
	if !ok {
		message = fallback
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error("Service error", zap.Error(err), zap.String("path", c.Request.URL.Path))
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: message})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: message})
}
