package service

import (
	"context"
	"fmt"
	"time"

	"storyboard-server/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// consistencyExcerptMax - длина выдержки из персонажей первого кадра для остальных кадров.
const consistencyExcerptMax = 150

// FrameRenderer получает изображения для всех кадров плана.
type FrameRenderer interface {
	// Render возвращает кадры в исходном порядке. Ошибка отдельного кадра заменяется заглушкой.
	Render(ctx context.Context, storyID string, outline *models.StoryboardOutline, req models.StoryboardRequest) []models.RenderedFrame
}

var _ FrameRenderer = (*frameRendererImpl)(nil)

type frameRendererImpl struct {
	images         ImageGenerator
	concurrency    int
	placeholderURL string
	logger         *zap.Logger
}

// NewFrameRenderer создает FrameRenderer с ограничением одновременных генераций concurrency.
func NewFrameRenderer(images ImageGenerator, concurrency int, placeholderURL string, logger *zap.Logger) FrameRenderer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &frameRendererImpl{
		images:         images,
		concurrency:    concurrency,
		placeholderURL: placeholderURL,
		logger:         logger.Named("FrameRenderer"),
	}
}

func (r *frameRendererImpl) Render(ctx context.Context, storyID string, outline *models.StoryboardOutline, req models.StoryboardRequest) []models.RenderedFrame {
	if outline == nil || len(outline.Frames) == 0 {
		return []models.RenderedFrame{}
	}

	total := len(outline.Frames)
	// Снимок персонажей первого кадра до запуска воркеров
	reference := truncateRunes(outline.Frames[0].CharacterDetails, consistencyExcerptMax)
	storyContext := fmt.Sprintf("%s: %s", outline.Title, truncateRunes(req.Prompt, 50))

	results := make([]models.RenderedFrame, total)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, frame := range outline.Frames {
		index := i + 1
		g.Go(func() error {
			results[i] = r.renderFrame(ctx, storyID, index, total, frame, reference, storyContext, req)
			// Ошибки кадров не отменяют соседей
			return nil
		})
	}
	_ = g.Wait()

	r.logger.Info("Frames rendered",
		zap.String("storyID", storyID),
		zap.Int("frames", total),
		zap.Duration("duration", time.Since(start)),
	)
	return results
}

func (r *frameRendererImpl) renderFrame(
	ctx context.Context,
	storyID string,
	index, total int,
	frame models.FrameOutline,
	reference, storyContext string,
	req models.StoryboardRequest,
) (result models.RenderedFrame) {
	log := r.logger.With(zap.String("storyID", storyID), zap.Int("frame", index))

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Panic while rendering frame", zap.Any("panic", rec), zap.Stack("stack"))
			placeholderFramesTotal.Inc()
			result = r.assemble(frame, r.placeholderURL, req)
		}
	}()

	// Кадры 2..N получают выдержку из первого кадра в дополнение к своим персонажам
	if index == 1 {
		reference = ""
	}

	prompt := r.images.BuildPrompt(models.ImagePromptInput{
		Description:         frame.ImageDescription(),
		VisualStyle:         req.VisualStyle,
		Mood:                req.Mood,
		FrameIndex:          index,
		TotalFrames:         total,
		StoryContext:        storyContext,
		CharacterDetails:    frame.CharacterDetails,
		ReferenceCharacters: reference,
		EnvironmentDetails:  frame.EnvironmentDetails,
	})
	log.Debug("Image prompt built", zap.Int("promptLength", len(prompt)), zap.Int("totalFrames", total))

	imageURL, err := r.images.Generate(ctx, prompt, storyID, index)
	if err != nil {
		log.Error("Failed to generate image for frame, using placeholder", zap.Error(err))
		placeholderFramesTotal.Inc()
		return r.assemble(frame, r.placeholderURL, req)
	}
	return r.assemble(frame, imageURL, req)
}

// assemble собирает кадр ответа. Диалог и пометка действия включаются по флагам запроса.
func (r *frameRendererImpl) assemble(frame models.FrameOutline, imageURL string, req models.StoryboardRequest) models.RenderedFrame {
	out := models.RenderedFrame{
		Description: frame.Description,
		ImageURL:    imageURL,
	}
	if req.IncludeDialogue {
		dialogue := frame.Dialogue
		out.Dialogue = &dialogue
	}
	if req.IncludeActionNotes {
		note := frame.ActionNote
		out.ActionNote = &note
	}
	return out
}
