package handler

import (
	"fmt"
	"net/http"
	"strings"

	"storyboard-server/internal/middleware"
	"storyboard-server/internal/models"
	"storyboard-server/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) actor(c *gin.Context) (service.Actor, bool) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthorized)
		return service.Actor{}, false
	}
	return service.Actor{UserID: claims.UserID, Role: claims.Role}, true
}

func (h *Handler) resetDailyUsage(c *gin.Context) {
	affected, err := h.adminService.ResetDailyUsage(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Success: true, Message: "Daily usage reset completed", UsersAffected: &affected})
}

func (h *Handler) listUsers(c *gin.Context) {
	limit, offset, ok := queryPage(c, service.DefaultAdminPageLimit)
	if !ok {
		return
	}
	page, err := h.adminService.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, usersPageResponse{Users: page.Items, Page: page})
}

func (h *Handler) getUserDetail(c *gin.Context) {
	userID, ok := pathUUID(c, "userId", models.ErrUserNotFound, msgUserNotFound)
	if !ok {
		return
	}
	detail, err := h.adminService.GetUserDetail(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) updateUserRole(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	userID, ok := pathUUID(c, "userId", models.ErrUserNotFound, msgUserNotFound)
	if !ok {
		return
	}
	var req updateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.adminService.UpdateUserRole(c.Request.Context(), actor, userID, req.Role, req.IsAdmin)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, roleUpdateResponse{Success: true, User: user})
}

func (h *Handler) deleteUser(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	userID, ok := pathUUID(c, "userId", models.ErrUserNotFound, msgUserNotFound)
	if !ok {
		return
	}
	user, err := h.adminService.DeleteUser(c.Request.Context(), actor, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	label := user.Name
	if user.Email != nil {
		label = *user.Email
	}
	c.JSON(http.StatusOK, models.StatusResponse{Success: true, Message: fmt.Sprintf("User %s deleted successfully", label)})
}

func (h *Handler) listStories(c *gin.Context) {
	limit, offset, ok := queryPage(c, service.DefaultAdminPageLimit)
	if !ok {
		return
	}
	includePrivate := strings.ToLower(c.DefaultQuery("includePrivate", "true")) == "true"
	page, err := h.adminService.ListStories(c.Request.Context(), limit, offset, includePrivate)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, storiesPageResponse{Stories: page.Items, Page: page})
}

func (h *Handler) deleteStory(c *gin.Context) {
	storyID, ok := pathUUID(c, "storyId", models.ErrStoryNotFound, msgStoryNotFound)
	if !ok {
		return
	}
	story, err := h.adminService.DeleteStory(c.Request.Context(), storyID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Success: true, Message: fmt.Sprintf("Story '%s' deleted successfully", story.Title)})
}

func (h *Handler) updateStoryVisibility(c *gin.Context) {
	storyID, ok := pathUUID(c, "storyId", models.ErrStoryNotFound, msgStoryNotFound)
	if !ok {
		return
	}
	var req visibilityRequest
	if !bindJSON(c, &req) {
		return
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	story, err := h.adminService.SetStoryVisibility(c.Request.Context(), storyID, isPublic)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	action := "removed from"
	if isPublic {
		action = "added to"
	}
	c.JSON(http.StatusOK, visibilityResponse{
		Success: true,
		Message: fmt.Sprintf("Story '%s' %s public gallery", story.Title, action),
		Story:   story,
	})
}

func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.adminService.Stats(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
