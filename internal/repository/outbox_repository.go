package repository

import (
	"context"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// MaxPublishAttempts is the number of failed publishes after which an event is
// no longer picked up.
const MaxPublishAttempts = 10

// outboxRepository implements the OutboxRepository interface using PostgreSQL.
type outboxRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOutboxRepository creates a new PostgreSQL-backed outbox repository.
func NewOutboxRepository(pool *pgxpool.Pool, logger zerolog.Logger) OutboxRepository {
	return &outboxRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "outbox").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *outboxRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

// Save stores an event within the provided transaction.
func (r *outboxRepository) Save(ctx context.Context, tx pgx.Tx, event *model.OutboxEvent) error {
	query := `
		INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query,
		event.AggregateType,
		event.AggregateID,
		event.EventType,
		event.Topic,
		event.Payload,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("aggregate_id", event.AggregateID).
			Str("event_type", event.EventType).
			Msg("failed to save outbox event")
		return fmt.Errorf("failed to save outbox event: %w", err)
	}

	return nil
}

// FetchUnpublished claims up to batchSize pending events in creation order.
func (r *outboxRepository) FetchUnpublished(ctx context.Context, tx pgx.Tx, batchSize int) ([]model.OutboxEvent, error) {
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, topic, payload,
			created_at, published_at, attempts, last_error
		FROM outbox
		WHERE published_at IS NULL AND attempts < $2
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.Query(ctx, query, batchSize, MaxPublishAttempts)
	if err != nil {
		r.logger.Error().Err(err).Int("batch_size", batchSize).Msg("failed to query unpublished events")
		return nil, fmt.Errorf("failed to query unpublished events: %w", err)
	}
	defer rows.Close()

	events := []model.OutboxEvent{}
	for rows.Next() {
		var e model.OutboxEvent
		if err := rows.Scan(
			&e.ID,
			&e.AggregateType,
			&e.AggregateID,
			&e.EventType,
			&e.Topic,
			&e.Payload,
			&e.CreatedAt,
			&e.PublishedAt,
			&e.Attempts,
			&e.LastError,
		); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan outbox row")
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating outbox rows")
		return nil, fmt.Errorf("error iterating outbox events: %w", err)
	}

	return events, nil
}

// MarkPublished records a successful publish.
func (r *outboxRepository) MarkPublished(ctx context.Context, tx pgx.Tx, id int64) error {
	query := `
		UPDATE outbox
		SET published_at = NOW(), last_error = NULL
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, query, id); err != nil {
		r.logger.Error().Err(err).Int64("event_id", id).Msg("failed to mark event published")
		return fmt.Errorf("failed to mark event published: %w", err)
	}
	return nil
}

// MarkFailed records a failed publish attempt.
func (r *outboxRepository) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, reason string) error {
	query := `
		UPDATE outbox
		SET last_error = $2, attempts = attempts + 1
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, query, id, reason); err != nil {
		r.logger.Error().Err(err).Int64("event_id", id).Msg("failed to mark event failed")
		return fmt.Errorf("failed to mark event failed: %w", err)
	}
	return nil
}
