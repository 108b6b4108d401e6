package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `id, order_number, customer_id, items, subtotal, discount_total, shipping_total,
	tax_total, total, tax_rate, currency, status, payment_status, timeline,
	billing_address, shipping_address, notes, created_at, updated_at`

// orderNumberConstraint is the unique constraint guarding order numbers.
const orderNumberConstraint = "orders_order_number_key"

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

// Create inserts a new order within the provided transaction.
func (r *orderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.OrderNumber,
		order.CustomerID,
		order.Items,
		order.Subtotal,
		order.DiscountTotal,
		order.ShippingTotal,
		order.TaxTotal,
		order.Total,
		order.TaxRate,
		order.Currency,
		order.Status,
		order.PaymentStatus,
		order.Timeline,
		order.BillingAddress,
		order.ShippingAddress,
		order.Notes,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, orderNumberConstraint) {
			r.logger.Warn().
				Str("order_number", order.OrderNumber).
				Msg("order number already taken")
			return model.NewDuplicateIdentifierError(order.OrderNumber)
		}
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order created successfully")

	return nil
}

// Update overwrites the mutable fields of an order within the provided transaction.
func (r *orderRepository) Update(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		UPDATE orders SET
			items = $2,
			subtotal = $3,
			discount_total = $4,
			shipping_total = $5,
			tax_total = $6,
			total = $7,
			tax_rate = $8,
			status = $9,
			payment_status = $10,
			timeline = $11,
			notes = $12,
			updated_at = $13
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query,
		order.ID,
		order.Items,
		order.Subtotal,
		order.DiscountTotal,
		order.ShippingTotal,
		order.TaxTotal,
		order.Total,
		order.TaxRate,
		order.Status,
		order.PaymentStatus,
		order.Timeline,
		order.Notes,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to update order")
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

// GetByNumber retrieves an order by its order number.
func (r *orderRepository) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	return r.getOne(r.pool.QueryRow(ctx, query, orderNumber), orderNumber)
}

// GetByNumberForUpdate retrieves and row-locks an order inside tx.
func (r *orderRepository) GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, orderNumber string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1 FOR UPDATE`
	return r.getOne(tx.QueryRow(ctx, query, orderNumber), orderNumber)
}

// List retrieves orders newest first, optionally restricted to one customer.
func (r *orderRepository) List(ctx context.Context, filter model.ListOrdersFilter) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1 = '' OR customer_id = $1)
		ORDER BY created_at DESC, order_number
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, filter.CustomerID, filter.Limit, filter.Offset)
	if err != nil {
		r.logger.Error().Err(err).
			Str("customer_id", filter.CustomerID).
			Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) getOne(row pgx.Row, orderNumber string) (*model.Order, error) {
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_number", orderNumber).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_number", orderNumber).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	return &order, nil
}

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerID,
		&o.Items,
		&o.Subtotal,
		&o.DiscountTotal,
		&o.ShippingTotal,
		&o.TaxTotal,
		&o.Total,
		&o.TaxRate,
		&o.Currency,
		&o.Status,
		&o.PaymentStatus,
		&o.Timeline,
		&o.BillingAddress,
		&o.ShippingAddress,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}
