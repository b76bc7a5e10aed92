package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"storyboard-server/internal/utils"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Провайдеры моделей
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderOllama = "ollama"
)

// Config holds the application configuration.
type Config struct {
	Env         string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	LogOutput   string `envconfig:"LOG_OUTPUT" default:"stdout"`
	ServerPort  string `envconfig:"SERVER_PORT" default:"8080"`

	// Database
	DBHost          string `envconfig:"DB_HOST" required:"true"`
	DBPort          string `envconfig:"DB_PORT" default:"5432"`
	DBUser          string `envconfig:"DB_USER" required:"true"`
	DBName          string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode       string `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns      int    `envconfig:"DB_MAX_CONNS" default:"10"`
	DBConnectTries  int    `envconfig:"DB_CONNECT_RETRIES" default:"5"`
	DBRunMigrations bool   `envconfig:"DB_RUN_MIGRATIONS" default:"true"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	// Redis (токены и IP rate limiting)
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPassword string

	// RabbitMQ (необязательно: пустой URL отключает публикацию событий)
	RabbitMQURL          string `envconfig:"RABBITMQ_URL" default:""`
	StoryboardEventQueue string `envconfig:"STORYBOARD_EVENTS_QUEUE" default:"storyboard_events"`

	// JWT Settings
	JWTSecret       string
	PasswordPepper  string
	AccessTokenTTL  time.Duration `envconfig:"JWT_ACCESS_TOKEN_TTL" default:"1h"`
	RefreshTokenTTL time.Duration `envconfig:"JWT_REFRESH_TOKEN_TTL" default:"168h"`

	// CORS Settings
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// IP rate limiting (запросов в минуту)
	AuthRateLimit     uint `envconfig:"RATE_LIMIT_AUTH_PER_MINUTE" default:"20"`
	GenerateRateLimit uint `envconfig:"RATE_LIMIT_GENERATE_PER_MINUTE" default:"10"`

	// Usage
	DailyUsageLimit  int `envconfig:"DAILY_USAGE_LIMIT" default:"3"`
	FrameConcurrency int `envconfig:"FRAME_CONCURRENCY" default:"3"`

	// Text model
	TextProvider    string        `envconfig:"TEXT_PROVIDER" default:"openai"`
	TextEndpoint    string        `envconfig:"TEXT_MODEL_ENDPOINT" default:""`
	TextModel       string        `envconfig:"TEXT_MODEL_NAME" default:"gpt-4o-mini"`
	TextAPIVersion  string        `envconfig:"TEXT_MODEL_API_VERSION" default:"2024-05-01-preview"`
	TextMaxTokens   int           `envconfig:"TEXT_MAX_TOKENS" default:"2048"`
	TextTemperature float32       `envconfig:"TEXT_TEMPERATURE" default:"0.8"`
	TextTopP        float32       `envconfig:"TEXT_TOP_P" default:"0.1"`
	TextTimeout     time.Duration `envconfig:"TEXT_TIMEOUT" default:"120s"`
	TokenEstimation bool          `envconfig:"TEXT_TOKEN_ESTIMATION" default:"false"`
	TextAPIKey      string

	// Image model
	ImageProvider        string        `envconfig:"IMAGE_PROVIDER" default:"openai"`
	ImageEndpoint        string        `envconfig:"IMAGE_MODEL_ENDPOINT" default:""`
	ImageModel           string        `envconfig:"IMAGE_MODEL_NAME" default:"dall-e-3"`
	ImageAPIVersion      string        `envconfig:"IMAGE_MODEL_API_VERSION" default:"2024-05-01-preview"`
	ImageSize            string        `envconfig:"IMAGE_SIZE" default:"1792x1024"`
	ImageStyle           string        `envconfig:"IMAGE_STYLE" default:"vivid"`
	ImageQuality         string        `envconfig:"IMAGE_QUALITY" default:"standard"`
	ImageMaxAttempts     int           `envconfig:"IMAGE_MAX_ATTEMPTS" default:"3"`
	ImageRetryBaseDelay  time.Duration `envconfig:"IMAGE_RETRY_BASE_DELAY" default:"60s"`
	ImageRequestInterval time.Duration `envconfig:"IMAGE_REQUEST_INTERVAL" default:"0s"`
	ImagePromptMaxLength int           `envconfig:"IMAGE_PROMPT_MAX_LENGTH" default:"400"`
	ImageBreakerFailures uint32        `envconfig:"IMAGE_BREAKER_FAILURES" default:"5"`
	ImageBreakerTimeout  time.Duration `envconfig:"IMAGE_BREAKER_TIMEOUT" default:"60s"`
	PlaceholderImageURL  string        `envconfig:"PLACEHOLDER_IMAGE_URL" default:"https://via.placeholder.com/1792x1024/cccccc/333333?text=Image+Generation+Failed"`
	ImageAPIKey          string

	// Artifact storage (Firebase / Google Cloud Storage)
	StorageEnabled         bool          `envconfig:"STORAGE_ENABLED" default:"true"`
	StorageBucket          string        `envconfig:"STORAGE_BUCKET" default:"storyboard-images"`
	StorageCredentialsFile string        `envconfig:"GOOGLE_APPLICATION_CREDENTIALS" default:""`
	StorageSignedURLTTL    time.Duration `envconfig:"STORAGE_SIGNED_URL_TTL" default:"87600h"`
	StorageDownloadTimeout time.Duration `envconfig:"STORAGE_DOWNLOAD_TIMEOUT" default:"15s"`
	StorageUploadTimeout   time.Duration `envconfig:"STORAGE_UPLOAD_TIMEOUT" default:"30s"`
	StorageConnectTimeout  time.Duration `envconfig:"STORAGE_CONNECT_TIMEOUT" default:"10s"`

	// Gallery
	GalleryCacheTTL time.Duration `envconfig:"GALLERY_CACHE_TTL" default:"30s"`
}

// GetAllowedOrigins splits the CORSAllowedOrigins string into a slice.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}

// DatabaseURL собирает строку подключения к PostgreSQL.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%s", c.DBHost, c.DBPort),
		Path:     c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// LoadConfig loads configuration from environment variables and secrets.
func LoadConfig(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if _, err := os.Stat(envFilePath); err == nil {
			if err := godotenv.Load(envFilePath); err != nil {
				log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
			} else {
				log.Printf("Loaded configuration from %s", envFilePath)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	// Обязательные секреты
	var loadErr error
	if cfg.DBPassword, loadErr = utils.ReadSecret("db_password"); loadErr != nil {
		return nil, loadErr
	}
	if cfg.JWTSecret, loadErr = utils.ReadSecret("jwt_secret"); loadErr != nil {
		return nil, loadErr
	}
	if cfg.PasswordPepper, loadErr = utils.ReadSecret("password_pepper"); loadErr != nil {
		return nil, loadErr
	}

	// Ключ текстовой модели не нужен только для локальной Ollama
	textKey, err := utils.ReadSecret("text_model_api_key")
	if err != nil && cfg.TextProvider != ProviderOllama {
		return nil, err
	}
	cfg.TextAPIKey = textKey

	// Ключ модели изображений: если не задан отдельно, используем ключ текстовой модели
	if imageKey, err := utils.ReadSecret("image_model_api_key"); err == nil {
		cfg.ImageAPIKey = imageKey
	} else {
		cfg.ImageAPIKey = cfg.TextAPIKey
	}

	if redisPass, err := utils.ReadSecret("redis_password"); err == nil {
		cfg.RedisPassword = redisPass
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Println("Configuration loaded successfully.")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.TextProvider {
	case ProviderOpenAI, ProviderAzure, ProviderOllama:
	default:
		return fmt.Errorf("unsupported TEXT_PROVIDER %q", c.TextProvider)
	}
	switch c.ImageProvider {
	case ProviderOpenAI, ProviderAzure:
	default:
		return fmt.Errorf("unsupported IMAGE_PROVIDER %q", c.ImageProvider)
	}
	if c.ImageAPIKey == "" {
		return fmt.Errorf("image model API key is not configured")
	}
	if c.TextProvider == ProviderAzure && c.TextEndpoint == "" {
		return fmt.Errorf("TEXT_MODEL_ENDPOINT is required for azure provider")
	}
	if c.ImageProvider == ProviderAzure && c.ImageEndpoint == "" {
		return fmt.Errorf("IMAGE_MODEL_ENDPOINT is required for azure provider")
	}
	if c.DailyUsageLimit < 1 {
		return fmt.Errorf("DAILY_USAGE_LIMIT must be positive")
	}
	if c.FrameConcurrency < 1 {
		return fmt.Errorf("FRAME_CONCURRENCY must be positive")
	}
	if c.ImageMaxAttempts < 1 {
		return fmt.Errorf("IMAGE_MAX_ATTEMPTS must be positive")
	}
	if c.StorageEnabled {
		// Нулевой таймаут истекает сразу, и каждый кадр молча остается с временным URL
		if c.StorageDownloadTimeout <= 0 {
			return fmt.Errorf("STORAGE_DOWNLOAD_TIMEOUT must be positive")
		}
		if c.StorageUploadTimeout <= 0 {
			return fmt.Errorf("STORAGE_UPLOAD_TIMEOUT must be positive")
		}
		if c.StorageConnectTimeout <= 0 {
			return fmt.Errorf("STORAGE_CONNECT_TIMEOUT must be positive")
		}
	}
	return nil
}
