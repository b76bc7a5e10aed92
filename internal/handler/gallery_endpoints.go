package handler

import (
	"net/http"

	"storyboard-server/internal/models"
	"storyboard-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgStoryNotFound = "Story not found"

func (h *Handler) listGallery(c *gin.Context) {
	limit, offset, ok := queryPage(c, service.DefaultGalleryLimit)
	if !ok {
		return
	}
	stories, err := h.galleryService.ListPublic(c.Request.Context(), limit, offset)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stories)
}

func (h *Handler) addToGallery(c *gin.Context) {
	var req models.NewGalleryStory
	if !bindJSON(c, &req) {
		return
	}
	story, err := h.galleryService.Create(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, story)
}

func (h *Handler) getStory(c *gin.Context) {
	storyID, ok := pathUUID(c, "storyId", models.ErrStoryNotFound, msgStoryNotFound)
	if !ok {
		return
	}
	story, err := h.galleryService.Get(c.Request.Context(), storyID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, story)
}

func (h *Handler) likeStory(c *gin.Context) {
	storyID, ok := pathUUID(c, "storyId", models.ErrStoryNotFound, msgStoryNotFound)
	if !ok {
		return
	}
	var req likeRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.UserID == "" {
		badRequest(c, "Missing required fields: userId")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		handleServiceError(c, models.NewNotFoundError(models.ErrUserNotFound, msgUserNotFound))
		return
	}

	liked, err := h.galleryService.ToggleLike(c.Request.Context(), storyID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Success: true, Message: "Like toggled successfully", Liked: &liked})
}
