package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/deskflow/request-portal/internal/config"
	"github.com/deskflow/request-portal/internal/events"
)

// Publisher is the subset of the redis client used to hand events to the delivery side.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Envelope is the message published for every domain event.
type Envelope struct {
	EventID    string           `json:"event_id"`
	EntityCode string           `json:"entity_code"`
	EntityType string           `json:"entity_type"`
	EventKind  events.EventType `json:"event_kind"`
	Actor      events.Actor     `json:"actor"`
	Payload    any              `json:"payload"`
	Timestamp  time.Time        `json:"timestamp"`
}

// NotificationService forwards domain events to the notification channel.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  Publisher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. A nil publisher only logs events.
func NewNotificationService(dispatcher events.Dispatcher, publisher Publisher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to every event type.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.SubscribeAll(n.handle)
}

// handle never fails: delivery problems are logged and left to the delivery side.
func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info("domain event",
		zap.String("event_type", string(event.Type)),
		zap.String("entity_code", event.Entity.Code),
		zap.String("actor_id", event.Actor.ID))

	n.publish(ctx, event)
	switch event.Type {
	case events.EventCommunicationSent, events.EventRequestCreated, events.EventTicketCreated:
		n.logEmailIntent(event)
	}
	return nil
}

func (n *NotificationService) publish(ctx context.Context, event events.Event) {
	if n.publisher == nil || strings.TrimSpace(n.cfg.RedisChannel) == "" {
		return
	}
	body, err := json.Marshal(Envelope{
		EventID:    event.ID,
		EntityCode: event.Entity.Code,
		EntityType: string(event.Entity.Type),
		EventKind:  event.Type,
		Actor:      event.Actor,
		Payload:    event.Payload,
		Timestamp:  event.Timestamp,
	})
	if err != nil {
		n.logger.Error("encode notification", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	if err := n.publisher.Publish(ctx, n.cfg.RedisChannel, body).Err(); err != nil {
		n.logger.Warn("publish notification",
			zap.String("channel", n.cfg.RedisChannel),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

// logEmailIntent records which mail an SMTP relay should send for event. Delivery
// itself belongs to the consumer of the notification channel.
func (n *NotificationService) logEmailIntent(event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	fields := []zap.Field{
		zap.String("from", n.cfg.EmailFrom),
		zap.String("entity_code", event.Entity.Code),
		zap.String("event_type", string(event.Type)),
	}
	if payload, ok := event.Payload.(events.CommentPayload); ok && payload.Recipient != "" {
		fields = append(fields, zap.String("to", payload.Recipient))
	}
	n.logger.Info("email notification due", fields...)
}
