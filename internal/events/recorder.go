package events

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/jackc/pgx/v5"
)

// Recorder stores lifecycle events in the same transaction as the change
// that produced them.
type Recorder interface {
	Record(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID, eventType string, payload any) error
}

// Envelope is the message body published for every event.
type Envelope struct {
	EventType     string          `json:"eventType"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	Data          json.RawMessage `json:"data"`
}

type outboxRecorder struct {
	repo        repository.OutboxRepository
	topicPrefix string
}

// NewOutboxRecorder returns a Recorder writing to repo. Topics are named
// "<prefix>.<aggregate>s".
func NewOutboxRecorder(repo repository.OutboxRepository, topicPrefix string) Recorder {
	return &outboxRecorder{repo: repo, topicPrefix: topicPrefix}
}

func (r *outboxRecorder) Record(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}

	body, err := json.Marshal(Envelope{
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Data:          data,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s envelope: %w", eventType, err)
	}

	return r.repo.Save(ctx, tx, &model.OutboxEvent{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Topic:         Topic(r.topicPrefix, aggregateType),
		Payload:       body,
	})
}

// Topic returns the topic events of aggregateType are published to.
func Topic(prefix, aggregateType string) string {
	if prefix == "" {
		return aggregateType + "s"
	}
	return prefix + "." + aggregateType + "s"
}

type nopRecorder struct{}

// NopRecorder discards events. Used when event delivery is disabled.
func NopRecorder() Recorder {
	return nopRecorder{}
}

func (nopRecorder) Record(context.Context, pgx.Tx, string, string, string, any) error {
	return nil
}
