package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// OutboxProcessor periodically publishes pending outbox events.
type OutboxProcessor struct {
	repo      repository.OutboxRepository
	publisher Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	batchSize int
	interval  time.Duration
}

// NewOutboxProcessor creates a processor. Non-positive batchSize or interval
// fall back to 50 events every 500ms.
func NewOutboxProcessor(
	repo repository.OutboxRepository,
	publisher Publisher,
	m *metrics.Metrics,
	batchSize int,
	interval time.Duration,
	logger zerolog.Logger,
) *OutboxProcessor {
	if batchSize <= 0 {
		batchSize = 50
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	return &OutboxProcessor{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		logger:    logger.With().Str("component", "outbox-processor").Logger(),
		batchSize: batchSize,
		interval:  interval,
	}
}

// Start runs until ctx is cancelled.
func (p *OutboxProcessor) Start(ctx context.Context) {
	p.logger.Info().
		Dur("interval", p.interval).
		Int("batch_size", p.batchSize).
		Msg("starting outbox processor")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("outbox processor stopping")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error().Err(err).Msg("error processing outbox batch")
			}
		}
	}
}

// ProcessBatch publishes one batch and returns the number of events published.
// Failed events stay pending with their attempt count raised.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	tx, err := p.repo.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			p.logger.Error().Err(err).Msg("failed to rollback outbox transaction")
		}
	}()

	events, err := p.repo.FetchUnpublished(ctx, tx, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	p.logger.Debug().Int("count", len(events)).Msg("processing outbox events")

	published := 0
	for _, event := range events {
		if err := p.publisher.Publish(ctx, event.Topic, event.AggregateID, event.Payload); err != nil {
			p.logger.Warn().
				Err(err).
				Int64("event_id", event.ID).
				Str("event_type", event.EventType).
				Int("attempts", event.Attempts+1).
				Msg("failed to publish outbox event")
			p.metrics.OutboxResult("failed")

			if dbErr := p.repo.MarkFailed(ctx, tx, event.ID, err.Error()); dbErr != nil {
				return published, dbErr
			}
			continue
		}

		if err := p.repo.MarkPublished(ctx, tx, event.ID); err != nil {
			return published, err
		}
		p.metrics.OutboxResult("published")
		published++
	}

	if err := tx.Commit(ctx); err != nil {
		return published, fmt.Errorf("failed to commit outbox batch: %w", err)
	}

	return published, nil
}
