package model

import (
	"encoding/json"
	"time"
)

// Event types written to the outbox.
const (
	EventOrderCreated        = "order.created"
	EventOrderStatusChanged  = "order.status_changed"
	EventOrderItemsUpdated   = "order.items_updated"
	EventReturnCreated       = "return.created"
	EventReturnStatusChanged = "return.status_changed"
)

// Aggregate types stored with outbox events.
const (
	AggregateOrder  = "order"
	AggregateReturn = "return"
)

// OutboxEvent is a lifecycle event persisted with the record change that produced it.
type OutboxEvent struct {
	ID            int64           `db:"id"`
	AggregateType string          `db:"aggregate_type"`
	AggregateID   string          `db:"aggregate_id"`
	EventType     string          `db:"event_type"`
	Topic         string          `db:"topic"`
	Payload       json.RawMessage `db:"payload"`
	CreatedAt     time.Time       `db:"created_at"`
	PublishedAt   *time.Time      `db:"published_at"`
	Attempts      int             `db:"attempts"`
	LastError     *string         `db:"last_error"`
}
