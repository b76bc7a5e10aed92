package handler

import (
	"net/http"

	"storyboard-server/internal/middleware"
	"storyboard-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) generateStoryboard(c *gin.Context) {
	req := models.NewStoryboardRequest()
	if !bindJSON(c, &req) {
		return
	}
	// Пользователь из токена важнее userId из тела
	if userID, ok := middleware.UserIDFromContext(c); ok {
		req.UserID = userID.String()
	}

	result, err := h.storyboardService.GenerateStoryboard(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	h.logger.Debug("Storyboard response ready", zap.String("title", result.Title), zap.Int("frames", len(result.Frames)))
	c.JSON(http.StatusOK, result)
}
