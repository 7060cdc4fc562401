package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cardsystem/internal/model"
	"cardsystem/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is the envelope relayed to Kafka for every lifecycle change.
type Event struct {
	ID         string      `json:"event_id"`
	Type       string      `json:"event_type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

type CardEventData struct {
	Identifier string           `json:"identifier"`
	MaskedPan  string           `json:"masked_pan"`
	CardType   model.CardType   `json:"card_type"`
	Status     model.CardStatus `json:"status"`
}

type TransactionEventData struct {
	ReferenceNumber string                  `json:"reference_number"`
	CardIdentifier  string                  `json:"card_identifier"`
	TotalAmount     string                  `json:"total_amount"`
	Status          model.TransactionStatus `json:"status"`
}

// eventWriter stages events in the outbox table within the caller's transaction.
type eventWriter struct {
	outboxRepo *repository.OutboxRepository
	topic      string
}

func newEventWriter(db *gorm.DB, topic string) *eventWriter {
	return &eventWriter{
		outboxRepo: repository.NewOutboxRepository(db),
		topic:      topic,
	}
}

func (w *eventWriter) write(ctx context.Context, tx *gorm.DB, key, eventType string, data interface{}) error {
	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}

	msg := &model.OutboxMessage{
		EventID:    event.ID,
		EventType:  eventType,
		MessageKey: key,
		Topic:      w.topic,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
	if err := w.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("failed to stage %s event: %w", eventType, err)
	}
	return nil
}
