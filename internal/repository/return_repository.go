package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const returnSelect = `SELECT r.id, r.rma_number, r.order_id, o.order_number, r.customer_id, r.items,
	r.reason, r.return_value, r.refund_amount, r.status, r.approval_date, r.processed_date,
	r.refund_date, r.staff_notes, r.created_at, r.updated_at
	FROM returns r
	JOIN orders o ON o.id = r.order_id`

// rmaNumberConstraint is the unique constraint guarding RMA numbers.
const rmaNumberConstraint = "returns_rma_number_key"

// returnRepository implements the ReturnRepository interface using PostgreSQL.
type returnRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewReturnRepository creates a new PostgreSQL-backed return repository.
func NewReturnRepository(pool *pgxpool.Pool, logger zerolog.Logger) ReturnRepository {
	return &returnRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "return").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *returnRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

// Create inserts a new return within the provided transaction.
func (r *returnRepository) Create(ctx context.Context, tx pgx.Tx, ret *model.Return) error {
	orderID, err := uuid.Parse(ret.Order.ID())
	if err != nil {
		return fmt.Errorf("invalid order reference %q: %w", ret.Order.ID(), err)
	}

	query := `
		INSERT INTO returns (id, rma_number, order_id, customer_id, items, reason, return_value,
			refund_amount, status, approval_date, processed_date, refund_date, staff_notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = tx.Exec(ctx, query,
		ret.ID,
		ret.RMANumber,
		orderID,
		ret.CustomerID,
		ret.Items,
		ret.Reason,
		ret.ReturnValue,
		ret.RefundAmount,
		ret.Status,
		ret.ApprovalDate,
		ret.ProcessedDate,
		ret.RefundDate,
		ret.StaffNotes,
		ret.CreatedAt,
		ret.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, rmaNumberConstraint) {
			r.logger.Warn().
				Str("rma_number", ret.RMANumber).
				Msg("rma number already taken")
			return model.NewDuplicateIdentifierError(ret.RMANumber)
		}
		r.logger.Error().
			Err(err).
			Str("return_id", ret.ID.String()).
			Msg("failed to create return")
		return fmt.Errorf("failed to create return: %w", err)
	}

	r.logger.Debug().
		Str("return_id", ret.ID.String()).
		Str("rma_number", ret.RMANumber).
		Msg("return created successfully")

	return nil
}

// Update overwrites the mutable fields of a return within the provided transaction.
func (r *returnRepository) Update(ctx context.Context, tx pgx.Tx, ret *model.Return) error {
	query := `
		UPDATE returns SET
			items = $2,
			return_value = $3,
			refund_amount = $4,
			status = $5,
			approval_date = $6,
			processed_date = $7,
			refund_date = $8,
			staff_notes = $9,
			updated_at = $10
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query,
		ret.ID,
		ret.Items,
		ret.ReturnValue,
		ret.RefundAmount,
		ret.Status,
		ret.ApprovalDate,
		ret.ProcessedDate,
		ret.RefundDate,
		ret.StaffNotes,
		ret.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("return_id", ret.ID.String()).
			Msg("failed to update return")
		return fmt.Errorf("failed to update return: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrReturnNotFound
	}

	return nil
}

// GetByNumber retrieves a return by its RMA number.
func (r *returnRepository) GetByNumber(ctx context.Context, rmaNumber string) (*model.Return, error) {
	query := returnSelect + ` WHERE r.rma_number = $1`
	return r.getOne(r.pool.QueryRow(ctx, query, rmaNumber), rmaNumber)
}

// GetByNumberForUpdate retrieves and row-locks a return inside tx.
func (r *returnRepository) GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, rmaNumber string) (*model.Return, error) {
	query := returnSelect + ` WHERE r.rma_number = $1 FOR UPDATE OF r`
	return r.getOne(tx.QueryRow(ctx, query, rmaNumber), rmaNumber)
}

// ListByOrder retrieves all returns raised against an order, oldest first.
func (r *returnRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Return, error) {
	return r.listByOrder(ctx, r.pool, orderID)
}

// ListByOrderTx retrieves all returns raised against an order inside tx.
func (r *returnRepository) ListByOrderTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]model.Return, error) {
	return r.listByOrder(ctx, tx, orderID)
}

func (r *returnRepository) listByOrder(ctx context.Context, q querier, orderID uuid.UUID) ([]model.Return, error) {
	query := returnSelect + ` WHERE r.order_id = $1 ORDER BY r.created_at, r.rma_number`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to query returns")
		return nil, fmt.Errorf("failed to query returns: %w", err)
	}
	defer rows.Close()

	returns := []model.Return{}
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan return row")
			return nil, fmt.Errorf("failed to scan return: %w", err)
		}
		returns = append(returns, ret)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating return rows")
		return nil, fmt.Errorf("error iterating returns: %w", err)
	}

	return returns, nil
}

func (r *returnRepository) getOne(row pgx.Row, rmaNumber string) (*model.Return, error) {
	ret, err := scanReturn(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("rma_number", rmaNumber).Msg("return not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("rma_number", rmaNumber).Msg("failed to query return")
		return nil, fmt.Errorf("failed to query return: %w", err)
	}
	return &ret, nil
}

func scanReturn(row pgx.Row) (model.Return, error) {
	var (
		ret     model.Return
		orderID uuid.UUID
	)
	err := row.Scan(
		&ret.ID,
		&ret.RMANumber,
		&orderID,
		&ret.OrderNumber,
		&ret.CustomerID,
		&ret.Items,
		&ret.Reason,
		&ret.ReturnValue,
		&ret.RefundAmount,
		&ret.Status,
		&ret.ApprovalDate,
		&ret.ProcessedDate,
		&ret.RefundDate,
		&ret.StaffNotes,
		&ret.CreatedAt,
		&ret.UpdatedAt,
	)
	if err != nil {
		return ret, err
	}
	ret.Order = model.Unresolved[model.Order](orderID.String())
	return ret, nil
}
