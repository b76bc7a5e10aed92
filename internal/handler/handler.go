package handler

import (
	"net/http"

	"storyboard-server/internal/middleware"
	"storyboard-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler - HTTP слой поверх сервисов.
type Handler struct {
	authService       service.AuthService
	storyboardService service.StoryboardService
	userService       service.UserService
	galleryService    service.GalleryService
	adminService      service.AdminService
	logger            *zap.Logger
}

func NewHandler(
	authService service.AuthService,
	storyboardService service.StoryboardService,
	userService service.UserService,
	galleryService service.GalleryService,
	adminService service.AdminService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		authService:       authService,
		storyboardService: storyboardService,
		userService:       userService,
		galleryService:    galleryService,
		adminService:      adminService,
		logger:            logger.Named("Handler"),
	}
}

// Limiters - ограничители частоты запросов по IP для отдельных групп маршрутов. nil отключает ограничение.
type Limiters struct {
	Auth     gin.HandlerFunc
	Generate gin.HandlerFunc
}

func withLimiter(limiter gin.HandlerFunc, handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	if limiter == nil {
		return handlers
	}
	return append([]gin.HandlerFunc{limiter}, handlers...)
}

func (h *Handler) RegisterRoutes(router *gin.Engine, limiters Limiters) {
	router.GET("/health", h.health)
	router.HEAD("/health", h.health)

	requireAuth := middleware.RequireAuth(h.authService, h.logger)
	optionalAuth := middleware.OptionalAuth(h.authService, h.logger)
	requireAdmin := middleware.RequireAdmin(h.logger)

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", withLimiter(limiters.Auth, h.register)...)
		authGroup.POST("/login", withLimiter(limiters.Auth, h.login)...)
		authGroup.POST("/refresh", withLimiter(limiters.Auth, h.refresh)...)
		authGroup.POST("/logout", requireAuth, h.logout)
		authGroup.GET("/profile", requireAuth, h.getProfile)
		authGroup.PATCH("/profile", requireAuth, h.updateProfile)
	}

	api.POST("/generateStoryboard", withLimiter(limiters.Generate, optionalAuth, h.generateStoryboard)...)

	userGroup := api.Group("/user")
	{
		userGroup.POST("", h.createUser)
		userGroup.GET("/:userId", h.getUser)
		userGroup.PATCH("/:userId/usage", h.updateUsage)
		userGroup.GET("/:userId/stories", h.getUserStories)
	}

	galleryGroup := api.Group("/gallery")
	{
		galleryGroup.GET("", h.listGallery)
		galleryGroup.POST("", h.addToGallery)
		galleryGroup.GET("/:storyId", h.getStory)
		galleryGroup.POST("/:storyId/like", h.likeStory)
	}

	api.POST("/reset-daily-usage", requireAuth, requireAdmin, h.resetDailyUsage)

	adminGroup := api.Group("/admin")
	adminGroup.Use(requireAuth, requireAdmin)
	{
		adminGroup.GET("/users", h.listUsers)
		adminGroup.GET("/users/:userId", h.getUserDetail)
		adminGroup.PATCH("/users/:userId/role", h.updateUserRole)
		adminGroup.DELETE("/users/:userId", h.deleteUser)
		adminGroup.GET("/stories", h.listStories)
		adminGroup.DELETE("/stories/:storyId", h.deleteStory)
		adminGroup.PATCH("/stories/:storyId/visibility", h.updateStoryVisibility)
		adminGroup.GET("/stats", h.getStats)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}
