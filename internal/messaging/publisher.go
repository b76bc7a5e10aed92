package messaging

import (
	"context"
	"fmt"
	"time"

	"storyboard-server/internal/interfaces"
	"storyboard-server/internal/models"

	"github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EventTypeStoryboardGenerated - тип события в заголовке сообщения.
const EventTypeStoryboardGenerated = "storyboard.generated"

// amqpChannel - часть *amqp091.Channel, которой пользуется publisher.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type channelFactory func() (amqpChannel, error)

// Убедимся, что реализации соответствуют интерфейсу
var (
	_ interfaces.StoryboardEventPublisher = (*rabbitStoryboardEventPublisher)(nil)
	_ interfaces.StoryboardEventPublisher = NoopPublisher{}
)

// rabbitStoryboardEventPublisher отправляет события о сгенерированных сторибордах в очередь.
type rabbitStoryboardEventPublisher struct {
	openChannel channelFactory
	queueName   string
	logger      *zap.Logger
}

// NewRabbitStoryboardEventPublisher создает publisher и проверяет очередь.
func NewRabbitStoryboardEventPublisher(conn *amqp091.Connection, queueName string, logger *zap.Logger) (interfaces.StoryboardEventPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection is nil")
	}
	return newPublisher(func() (amqpChannel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		return ch, nil
	}, queueName, logger)
}

func newPublisher(open channelFactory, queueName string, logger *zap.Logger) (*rabbitStoryboardEventPublisher, error) {
	p := &rabbitStoryboardEventPublisher{
		openChannel: open,
		queueName:   queueName,
		logger:      logger.Named("StoryboardEventPublisher").With(zap.String("queue", queueName)),
	}
	if err := p.verifyQueue(); err != nil {
		return nil, fmt.Errorf("failed to verify queue %s on init: %w", queueName, err)
	}
	p.logger.Info("StoryboardEventPublisher initialized")
	return p, nil
}

func (p *rabbitStoryboardEventPublisher) verifyQueue() error {
	ch, err := p.openChannel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(p.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue '%s': %w", p.queueName, err)
	}
	return nil
}

// PublishStoryboardGenerated публикует событие в очередь (routing key = имя очереди).
func (p *rabbitStoryboardEventPublisher) PublishStoryboardGenerated(ctx context.Context, event models.StoryboardGeneratedEvent) error {
	log := p.logger.With(zap.String("storyID", event.StoryID))

	body, err := json.Marshal(event)
	if err != nil {
		log.Error("Failed to marshal storyboard event", zap.Error(err))
		return fmt.Errorf("failed to marshal storyboard event: %w", err)
	}

	ch, err := p.openChannel()
	if err != nil {
		log.Error("Failed to open channel for publishing", zap.Error(err))
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx,
		"",
		p.queueName,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Type:         EventTypeStoryboardGenerated,
			Body:         body,
		},
	)
	if err != nil {
		log.Error("Failed to publish storyboard event", zap.Error(err))
		return fmt.Errorf("failed to publish storyboard event: %w", err)
	}

	log.Debug("Storyboard event published", zap.Int("frames", event.FrameCount))
	return nil
}

// NoopPublisher используется, когда RabbitMQ не настроен.
type NoopPublisher struct{}

func (NoopPublisher) PublishStoryboardGenerated(context.Context, models.StoryboardGeneratedEvent) error {
	return nil
}
