package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storyboard-server/internal/config"
	"storyboard-server/internal/database"
	"storyboard-server/internal/handler"
	"storyboard-server/internal/interfaces"
	"storyboard-server/internal/logger"
	"storyboard-server/internal/messaging"
	"storyboard-server/internal/middleware"
	"storyboard-server/internal/models"
	"storyboard-server/internal/service"
	"storyboard-server/internal/storage"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	envFile := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	// --- Configuration ---
	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Encoding:    cfg.LogEncoding,
		OutputPath:  cfg.LogOutput,
		ServiceName: "storyboard-server",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	zap.ReplaceGlobals(log)
	log.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel), zap.String("env", cfg.Env))

	// --- External Connections ---
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	retry := database.RetryPolicy{MaxRetries: cfg.DBConnectTries, Delay: 3 * time.Second}

	if cfg.DBRunMigrations {
		if err := database.ApplyMigrations(cfg.DatabaseURL(), log); err != nil {
			log.Fatal("Failed to apply database migrations", zap.Error(err))
		}
	}

	pgPool, err := database.ConnectPostgres(ctx, cfg.DatabaseURL(), cfg.DBMaxConns, retry, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()

	redisClient, err := database.ConnectRedis(ctx, &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, retry, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	var publisher interfaces.StoryboardEventPublisher = messaging.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		mqConn, err := messaging.ConnectRabbitMQ(cfg.RabbitMQURL, cfg.DBConnectTries, 5*time.Second, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqConn.Close()

		publisher, err = messaging.NewRabbitStoryboardEventPublisher(mqConn, cfg.StoryboardEventQueue, log)
		if err != nil {
			log.Fatal("Failed to create storyboard event publisher", zap.Error(err))
		}
	} else {
		log.Warn("RABBITMQ_URL is not set, storyboard events are not published")
	}

	var artifactStore interfaces.ArtifactStore
	if cfg.StorageEnabled {
		artifactStore, err = storage.NewGCSArtifactStore(ctx, storage.Config{
			Bucket:          cfg.StorageBucket,
			CredentialsFile: cfg.StorageCredentialsFile,
			SignedURLTTL:    cfg.StorageSignedURLTTL,
			DownloadTimeout: cfg.StorageDownloadTimeout,
			UploadTimeout:   cfg.StorageUploadTimeout,
			ConnectTimeout:  cfg.StorageConnectTimeout,
		}, log)
		if err != nil {
			// Без хранилища кадры получают временные URL модели
			log.Error("Failed to initialize artifact store, images will not be persisted", zap.Error(err))
			artifactStore = nil
		}
	}

	chatModel, err := service.NewChatModel(cfg, log)
	if err != nil {
		log.Fatal("Failed to create text model client", zap.Error(err))
	}
	imageModel, err := service.NewImageModel(cfg, log)
	if err != nil {
		log.Fatal("Failed to create image model client", zap.Error(err))
	}

	// --- Dependency Injection ---
	userRepo := database.NewPgUserRepository(pgPool, log)
	galleryRepo := database.NewPgGalleryRepository(pgPool, log)
	likeRepo := database.NewPgLikeRepository(pgPool, log)
	tokenRepo := database.NewRedisTokenRepository(redisClient, log)

	usageGate := service.NewUsageGate(userRepo, cfg.DailyUsageLimit, log)
	textGenerator := service.NewTextGenerator(chatModel, cfg, log)
	imageGenerator := service.NewImageGenerator(imageModel, artifactStore, cfg, log)
	frameRenderer := service.NewFrameRenderer(imageGenerator, cfg.FrameConcurrency, cfg.PlaceholderImageURL, log)

	authSvc := service.NewAuthService(userRepo, tokenRepo, cfg, log)
	storyboardSvc := service.NewStoryboardService(usageGate, textGenerator, frameRenderer, publisher, cfg.PlaceholderImageURL, log)
	userSvc := service.NewUserService(userRepo, galleryRepo, log)
	gallerySvc := service.NewGalleryService(galleryRepo, likeRepo, cfg.GalleryCacheTTL, log)
	adminSvc := service.NewAdminService(userRepo, galleryRepo, tokenRepo, gallerySvc, log)

	h := handler.NewHandler(authSvc, storyboardSvc, userSvc, gallerySvc, adminSvc, log)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapLogger(log))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.GetAllowedOrigins()
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	p := ginprometheus.NewPrometheus("gin")

	h.RegisterRoutes(router, handler.Limiters{
		Auth:     newRateLimiter(redisClient, cfg.AuthRateLimit),
		Generate: newRateLimiter(redisClient, cfg.GenerateRateLimit),
	})

	// Метрики подключаются после регистрации маршрутов
	p.Use(router)

	// --- Start HTTP Server ---
	srv := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Генерация сториборда идет минутами из-за пауз при лимитах модели
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exiting")
}

// newRateLimiter ограничивает число запросов в минуту с одного IP. limit = 0 отключает ограничение.
func newRateLimiter(client *redis.Client, limit uint) gin.HandlerFunc {
	if limit == 0 {
		return nil
	}
	store := rateli.RedisStore(&rateli.RedisOptions{
		RedisClient: client,
		Rate:        time.Minute,
		Limit:       limit,
	})
	return rateli.RateLimiter(store, &rateli.Options{
		ErrorHandler: func(c *gin.Context, info rateli.Info) {
			zap.L().Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error: "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}
