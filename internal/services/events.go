package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-user-accounts/internal/logger"
	"github.com/sbilibin2017/gw-user-accounts/internal/models"
	"github.com/segmentio/kafka-go"
)

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
}

// EventPublisher publishes account events. Publishing is best effort: a
// failure is logged and never fails the request that caused the event.
// A nil *EventPublisher is valid and publishes nothing.
type EventPublisher struct {
	writer KafkaWriter
	now    func() time.Time
}

// NewEventPublisher creates a publisher; writer may be nil.
func NewEventPublisher(writer KafkaWriter) *EventPublisher {
	return &EventPublisher{
		writer: writer,
		now:    time.Now,
	}
}

// Publish sends an event of eventType about userID.
func (p *EventPublisher) Publish(ctx context.Context, userID uuid.UUID, eventType string) {
	if p == nil || p.writer == nil {
		logger.Log.Warnw("Kafka writer not configured, skipping publishing", "user_id", userID, "type", eventType)
		return
	}

	event := models.AccountEvent{
		EventID:   uuid.NewString(),
		Timestamp: p.now().Unix(),
		UserID:    userID.String(),
		Type:      eventType,
	}

	value, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorw("Failed to marshal account event for Kafka", "event_id", event.EventID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: value,
		Time:  p.now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("Failed to publish account event to Kafka", "event_id", event.EventID, "type", eventType, "error", err)
	} else {
		logger.Log.Infow("Account event published to Kafka", "event_id", event.EventID, "type", eventType)
	}
}
