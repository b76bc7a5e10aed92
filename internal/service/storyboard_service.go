package service

import (
	"context"
	"errors"
	"time"

	"storyboard-server/internal/interfaces"
	"storyboard-server/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StoryboardService - точка входа генерации сториборда.
type StoryboardService interface {
	GenerateStoryboard(ctx context.Context, req models.StoryboardRequest) (*models.StoryboardResult, error)
}

var _ StoryboardService = (*storyboardServiceImpl)(nil)

type storyboardServiceImpl struct {
	usage          UsageGate
	text           TextGenerator
	frames         FrameRenderer
	publisher      interfaces.StoryboardEventPublisher
	placeholderURL string
	newStoryID     func() string
	logger         *zap.Logger
}

// NewStoryboardService собирает конвейер генерации. publisher может быть nil.
func NewStoryboardService(
	usage UsageGate,
	text TextGenerator,
	frames FrameRenderer,
	publisher interfaces.StoryboardEventPublisher,
	placeholderURL string,
	logger *zap.Logger,
) StoryboardService {
	return &storyboardServiceImpl{
		usage:          usage,
		text:           text,
		frames:         frames,
		publisher:      publisher,
		placeholderURL: placeholderURL,
		newStoryID:     func() string { return uuid.NewString()[:8] },
		logger:         logger.Named("StoryboardService"),
	}
}

func (s *storyboardServiceImpl) GenerateStoryboard(ctx context.Context, req models.StoryboardRequest) (*models.StoryboardResult, error) {
	log := s.logger.With(zap.String("userID", req.UserID), zap.Int("frameCount", req.FrameCount))
	start := time.Now()

	if err := req.Validate(); err != nil {
		log.Warn("Invalid storyboard request", zap.Error(err))
		return nil, err
	}

	if req.UserID != "" {
		if err := s.usage.Authorize(ctx, req.UserID); err != nil {
			if errors.Is(err, models.ErrRateLimitExceeded) {
				storyboardsGeneratedTotal.WithLabelValues("rate_limited").Inc()
				return nil, err
			}
			// Authorize сам пропускает ошибки хранилища, сюда они не доходят
			log.Warn("Usage authorization returned unexpected error, continuing", zap.Error(err))
		}
	}

	outline, err := s.text.Generate(ctx, req)
	if err != nil {
		storyboardsGeneratedTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if len(outline.Frames) == 0 {
		storyboardsGeneratedTotal.WithLabelValues("empty").Inc()
		log.Warn("No frames generated, returning empty storyboard")
		return &models.StoryboardResult{Title: outline.Title, Frames: []models.RenderedFrame{}}, nil
	}

	storyID := s.newStoryID()
	frames := s.frames.Render(ctx, storyID, outline, req)

	if req.UserID != "" {
		if err := s.usage.Record(ctx, req.UserID); err != nil {
			log.Error("Error updating user usage", zap.Error(err))
		}
	}

	placeholders := 0
	for _, f := range frames {
		if f.ImageURL == s.placeholderURL {
			placeholders++
		}
	}
	duration := time.Since(start)
	s.publish(ctx, models.StoryboardGeneratedEvent{
		StoryID:           storyID,
		UserID:            req.UserID,
		Title:             outline.Title,
		FrameCount:        len(frames),
		PlaceholderFrames: placeholders,
		DurationMs:        duration.Milliseconds(),
	}, log)

	storyboardsGeneratedTotal.WithLabelValues("success").Inc()
	log.Info("Storyboard generated",
		zap.String("storyID", storyID),
		zap.Int("frames", len(frames)),
		zap.Int("placeholders", placeholders),
		zap.Duration("duration", duration),
	)
	return &models.StoryboardResult{Title: outline.Title, Frames: frames}, nil
}

func (s *storyboardServiceImpl) publish(ctx context.Context, event models.StoryboardGeneratedEvent, log *zap.Logger) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishStoryboardGenerated(ctx, event); err != nil {
		log.Error("Failed to publish storyboard event", zap.String("storyID", event.StoryID), zap.Error(err))
	}
}
