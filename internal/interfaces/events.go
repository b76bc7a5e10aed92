package interfaces

import (
	"context"

	"storyboard-server/internal/models"
)

// StoryboardEventPublisher публикует события о завершенных генерациях.
type StoryboardEventPublisher interface {
	PublishStoryboardGenerated(ctx context.Context, event models.StoryboardGeneratedEvent) error
}
