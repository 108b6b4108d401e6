package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// querier is the read side shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// GetAll retrieves all products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	// Create inserts a catalogue product.
	Create(ctx context.Context, product *model.Product) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Create inserts a new order within the provided transaction. A taken
	// order number is reported as model.ErrDuplicateIdentifier.
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// Update overwrites the mutable fields of an order within the provided transaction.
	Update(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// GetByNumber retrieves an order by its order number. Returns nil when not found.
	GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error)

	// GetByNumberForUpdate retrieves and row-locks an order inside tx. Returns nil when not found.
	GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, orderNumber string) (*model.Order, error)

	// List retrieves orders newest first.
	List(ctx context.Context, filter model.ListOrdersFilter) ([]model.Order, error)
}

// ReturnRepository defines the interface for return data access operations.
type ReturnRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Create inserts a new return within the provided transaction. A taken
	// RMA number is reported as model.ErrDuplicateIdentifier.
	Create(ctx context.Context, tx pgx.Tx, ret *model.Return) error

	// Update overwrites the mutable fields of a return within the provided transaction.
	Update(ctx context.Context, tx pgx.Tx, ret *model.Return) error

	// GetByNumber retrieves a return by its RMA number. Returns nil when not found.
	GetByNumber(ctx context.Context, rmaNumber string) (*model.Return, error)

	// GetByNumberForUpdate retrieves and row-locks a return inside tx. Returns nil when not found.
	GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, rmaNumber string) (*model.Return, error)

	// ListByOrder retrieves all returns raised against an order.
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Return, error)

	// ListByOrderTx retrieves all returns raised against an order inside tx.
	ListByOrderTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]model.Return, error)
}

// OutboxRepository defines the interface for the transactional event outbox.
type OutboxRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Save stores an event within the transaction that changed the record.
	Save(ctx context.Context, tx pgx.Tx, event *model.OutboxEvent) error

	// FetchUnpublished claims up to batchSize pending events, skipping rows
	// locked by other workers.
	FetchUnpublished(ctx context.Context, tx pgx.Tx, batchSize int) ([]model.OutboxEvent, error)

	// MarkPublished records a successful publish.
	MarkPublished(ctx context.Context, tx pgx.Tx, id int64) error

	// MarkFailed records a failed publish attempt.
	MarkFailed(ctx context.Context, tx pgx.Tx, id int64, reason string) error
}

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique violation on constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}

// beginTx starts a transaction on pool, logging failures.
func beginTx(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) (pgx.Tx, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}
