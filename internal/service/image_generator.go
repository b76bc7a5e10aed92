package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"storyboard-server/internal/config"
	"storyboard-server/internal/interfaces"
	"storyboard-server/internal/models"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const imageRateLimitMessage = "Rate limit exceeded. Please wait a few minutes before trying again."

// Бюджеты частей промпта (в символах) до общего ограничения длины
const (
	defaultPromptMaxLength = 400
	sceneClauseMax         = 140
	characterClauseMax     = 140
	// минимум, который остается выдержке из первого кадра внутри characterClauseMax
	referenceClauseMin     = 50
	environmentClauseMax   = 80
)

// ImageGenerator строит промпт кадра и получает изображение от модели.
type ImageGenerator interface {
	// BuildPrompt собирает промпт не длиннее настроенного лимита.
	BuildPrompt(input models.ImagePromptInput) string
	// Generate возвращает постоянный URL изображения или временный, если сохранить не удалось.
	// Исчерпание попыток из-за лимита модели дает models.ErrRateLimitExceeded, иначе models.ErrGenerationFailed.
	Generate(ctx context.Context, prompt, storyID string, frameIndex int) (string, error)
}

var _ ImageGenerator = (*imageGeneratorImpl)(nil)

type imageGeneratorImpl struct {
	model       ImageModel
	store       interfaces.ArtifactStore
	breaker     *gobreaker.CircuitBreaker[openai.ImageResponse]
	limiter     *rate.Limiter
	modelName   string
	size        string
	style       string
	quality     string
	maxAttempts int
	baseDelay   time.Duration
	promptMax   int
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *zap.Logger
}

// NewImageGenerator создает ImageGenerator. store может быть nil: тогда возвращается временный URL модели.
func NewImageGenerator(model ImageModel, store interfaces.ArtifactStore, cfg *config.Config, logger *zap.Logger) ImageGenerator {
	log := logger.Named("ImageGenerator")

	limit := rate.Inf
	if cfg.ImageRequestInterval > 0 {
		limit = rate.Every(cfg.ImageRequestInterval)
	}

	promptMax := cfg.ImagePromptMaxLength
	if promptMax <= 0 {
		promptMax = defaultPromptMaxLength
	}

	failures := cfg.ImageBreakerFailures
	breaker := gobreaker.NewCircuitBreaker[openai.ImageResponse](gobreaker.Settings{
		Name:        "image-model",
		MaxRequests: 1,
		Timeout:     cfg.ImageBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return failures > 0 && counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Лимит запросов - нормальный ответ перегруженного сервиса, а не его отказ
		IsSuccessful: func(err error) bool {
			return err == nil || isRateLimitError(err) || errors.Is(err, context.Canceled)
		},
	})

	return &imageGeneratorImpl{
		model:       model,
		store:       store,
		breaker:     breaker,
		limiter:     rate.NewLimiter(limit, 1),
		modelName:   cfg.ImageModel,
		size:        cfg.ImageSize,
		style:       cfg.ImageStyle,
		quality:     cfg.ImageQuality,
		maxAttempts: cfg.ImageMaxAttempts,
		baseDelay:   cfg.ImageRetryBaseDelay,
		promptMax:   promptMax,
		sleep:       sleepCtx,
		logger:      log,
	}
}

func (g *imageGeneratorImpl) BuildPrompt(input models.ImagePromptInput) string {
	scene := SanitizePrompt(input.Description)
	if scene == "" {
		scene = SanitizePrompt(input.StoryContext)
	}

	parts := make([]string, 0, 5)
	if style := SanitizePrompt(input.VisualStyle); style != "" {
		parts = append(parts, style+" style digital illustration")
	} else {
		parts = append(parts, "digital illustration")
	}
	if scene != "" {
		parts = append(parts, "scene: "+truncateRunes(scene, sceneClauseMax))
	}
	if chars := characterClause(SanitizePrompt(input.CharacterDetails), SanitizePrompt(input.ReferenceCharacters)); chars != "" {
		parts = append(parts, "characters: "+chars)
	}
	if env := SanitizePrompt(input.EnvironmentDetails); env != "" {
		parts = append(parts, "setting: "+truncateRunes(env, environmentClauseMax))
	}

	suffix := "high quality, clean composition, no text, no borders"
	if mood := SanitizePrompt(input.Mood); mood != "" {
		suffix = mood + " mood, " + suffix
	}
	parts = append(parts, suffix)

	return truncateRunes(strings.Join(parts, ", "), g.promptMax)
}

// characterClause ставит собственных персонажей кадра первыми и обрезает только выдержку из первого кадра.
func characterClause(own, reference string) string {
	if reference == "" {
		return truncateRunes(own, characterClauseMax)
	}
	if own == "" {
		return "maintain same characters as frame 1: " + truncateRunes(reference, characterClauseMax)
	}
	own = truncateRunes(own, characterClauseMax-referenceClauseMin)
	refBudget := characterClauseMax - utf8.RuneCountInString(own)
	return own + "; maintain same characters as frame 1: " + truncateRunes(reference, refBudget)
}

func (g *imageGeneratorImpl) Generate(ctx context.Context, prompt, storyID string, frameIndex int) (string, error) {
	log := g.logger.With(zap.String("storyID", storyID), zap.Int("frame", frameIndex))

	req := openai.ImageRequest{
		Prompt:         prompt,
		Model:          g.modelName,
		N:              1,
		Size:           g.size,
		Style:          g.style,
		Quality:        g.quality,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", models.NewGenerationError("Image generation cancelled", err)
		}

		start := time.Now()
		resp, err := g.breaker.Execute(func() (openai.ImageResponse, error) {
			resp, err := g.model.CreateImage(ctx, req)
			if err != nil {
				return resp, err
			}
			if len(resp.Data) == 0 || resp.Data[0].URL == "" {
				return resp, errors.New("image model returned no image")
			}
			return resp, nil
		})
		imageRequestDuration.Observe(time.Since(start).Seconds())

		if err == nil {
			imageRequestsTotal.WithLabelValues("success").Inc()
			return g.persist(ctx, resp.Data[0].URL, storyID, frameIndex, log), nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			imageRequestsTotal.WithLabelValues("breaker_open").Inc()
			log.Warn("Image model circuit breaker is open, skipping frame", zap.Error(err))
			return "", models.NewGenerationError("Image generation temporarily unavailable", err)
		}

		if isRateLimitError(err) {
			imageRequestsTotal.WithLabelValues("rate_limited").Inc()
			if attempt == g.maxAttempts {
				log.Error("Image model rate limit persisted after all attempts", zap.Int("attempts", attempt), zap.Error(err))
				return "", &models.AppError{Kind: models.ErrRateLimitExceeded, Message: imageRateLimitMessage, Cause: err}
			}
			wait := time.Duration(attempt) * g.baseDelay
			log.Warn("Image model rate limit hit, backing off",
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", g.maxAttempts),
				zap.Duration("wait", wait),
			)
			if err := g.sleep(ctx, wait); err != nil {
				return "", models.NewGenerationError("Image generation cancelled", err)
			}
			continue
		}

		imageRequestsTotal.WithLabelValues("error").Inc()
		log.Warn("Image model request failed", zap.Int("attempt", attempt), zap.Error(err))
	}

	log.Error("Image generation failed after all attempts", zap.Int("attempts", g.maxAttempts), zap.Error(lastErr))
	return "", models.NewGenerationError(fmt.Sprintf("Image generation failed: %v", lastErr), lastErr)
}

// persist переносит изображение в хранилище. При ошибке кадр получает временный URL модели.
func (g *imageGeneratorImpl) persist(ctx context.Context, tempURL, storyID string, frameIndex int, log *zap.Logger) string {
	if g.store == nil {
		return tempURL
	}
	name := ""
	if storyID != "" && frameIndex > 0 {
		name = fmt.Sprintf("story_%s_frame_%d.png", storyID, frameIndex)
	}
	permanentURL, err := g.store.Persist(ctx, tempURL, name)
	if err != nil {
		persistFallbacksTotal.Inc()
		log.Error("Failed to persist image, falling back to temporary URL", zap.Error(err))
		return tempURL
	}
	log.Info("Image persisted", zap.String("object", name))
	return permanentURL
}

// isRateLimitError распознает ответ 429 как по статусу, так и по тексту ошибки.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "429")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
