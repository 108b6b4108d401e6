package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/events"
	"storefront/internal/ledger"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/taxrate"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// ProductService defines read operations on the catalogue.
type ProductService interface {
	// GetAll retrieves products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)
}

// OrderService defines operations for order management. Every write
// recomputes the derived amounts before the record is stored.
type OrderService interface {
	// CreateOrder snapshots the requested products, computes totals and stores
	// the order under a freshly generated order number.
	CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.Order, error)

	// GetByNumber retrieves an order with its product references resolved.
	GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error)

	// List retrieves orders newest first.
	List(ctx context.Context, filter model.ListOrdersFilter) ([]model.Order, error)

	// UpdateItems replaces the line items of an order.
	UpdateItems(ctx context.Context, orderNumber string, req *model.UpdateOrderItemsRequest) (*model.Order, error)

	// UpdateStatus changes the status and/or payment status of an order.
	UpdateStatus(ctx context.Context, orderNumber string, req *model.UpdateOrderStatusRequest) (*model.Order, error)
}

// ReturnService defines operations for return merchandise authorisations.
type ReturnService interface {
	// CreateReturn raises a return against an order owned by the same customer.
	CreateReturn(ctx context.Context, req *model.CreateReturnRequest) (*model.Return, error)

	// GetByNumber retrieves a return by RMA number.
	GetByNumber(ctx context.Context, rmaNumber string) (*model.Return, error)

	// ListByOrder retrieves the returns raised against an order.
	ListByOrder(ctx context.Context, orderNumber string) ([]model.Return, error)

	// UpdateReturn applies a partial update, including status transitions.
	UpdateReturn(ctx context.Context, rmaNumber string, req *model.UpdateReturnRequest) (*model.Return, error)
}

// Dependencies are the collaborators shared by the order and return services.
// Events, IDs, Validator, Metrics and Clock are optional.
type Dependencies struct {
	Orders    repository.OrderRepository
	Returns   repository.ReturnRepository
	Products  repository.ProductRepository
	TaxRates  taxrate.Resolver
	Events    events.Recorder
	IDs       *ledger.IdentifierGenerator
	Validator *ledger.Validator
	Metrics   *metrics.Metrics
	Clock     func() time.Time

	Currency                 string
	IdentifierMaxAttempts    int
	EnforceReturnTransitions bool
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Events == nil {
		d.Events = events.NopRecorder()
	}
	if d.IDs == nil {
		d.IDs = ledger.NewIdentifierGenerator()
	}
	if d.Validator == nil {
		d.Validator = ledger.NewValidator()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Currency == "" {
		d.Currency = "EUR"
	}
	if d.IdentifierMaxAttempts < 1 {
		d.IdentifierMaxAttempts = ledger.DefaultMaxAttempts
	}
	return d
}

// inTx runs fn inside a transaction and commits when fn succeeds.
func inTx(ctx context.Context, begin func(context.Context) (pgx.Tx, error), logger zerolog.Logger, fn func(tx pgx.Tx) error) error {
	tx, err := begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isDomainError reports whether err carries a business rule violation.
func isDomainError(err error) bool {
	var domainErr *model.DomainError
	return errors.As(err, &domainErr)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
