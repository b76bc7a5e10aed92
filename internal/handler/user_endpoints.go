package handler

import (
	"net/http"
	"time"

	"storyboard-server/internal/models"

	"github.com/gin-gonic/gin"
)

const msgUserNotFound = "User not found"

func (h *Handler) getUser(c *gin.Context) {
	userID, ok := pathUUID(c, "userId", models.ErrUserNotFound, msgUserNotFound)
	if !ok {
		return
	}
	user, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) createUser(c *gin.Context) {
	var req models.NewDeviceUser
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.CreateDeviceUser(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) updateUsage(c *gin.Context) {
	userID, ok := pathUUID(c, "userId", models.ErrUserNotFound, msgUserNotFound)
	if !ok {
		return
	}
	var req updateUsageRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.DailyUsageCount == nil || req.LastUsageDate == "" {
		badRequest(c, "Missing required fields: dailyUsageCount, lastUsageDate")
		return
	}
	date, err := parseUsageDate(req.LastUsageDate)
	if err != nil {
		badRequest(c, "Invalid lastUsageDate")
		return
	}

	user, err := h.userService.UpdateUsage(c.Request.Context(), userID, *req.DailyUsageCount, date)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) getUserStories(c *gin.Context) {
	userID, ok := pathUUID(c, "userId", models.ErrUserNotFound, msgUserNotFound)
	if !ok {
		return
	}
	stories, err := h.userService.ListStories(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stories)
}

// parseUsageDate принимает дату (2006-01-02) или полную метку времени RFC 3339.
func parseUsageDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
