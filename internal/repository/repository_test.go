package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a migrated PostgreSQL testcontainer and returns a connection pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.Migrate(connStr, zerolog.Nop()))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

// seedProducts inserts test products into the database.
func seedProducts(t *testing.T, pool *pgxpool.Pool, products ...model.Product) {
	t.Helper()

	repo := NewProductRepository(pool, zerolog.Nop())
	for i := range products {
		require.NoError(t, repo.Create(context.Background(), &products[i]))
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testProducts() []model.Product {
	return []model.Product{
		{ID: "prod-1", Title: "Laptop", SKU: "LAP-1", EAN: "4006381333931", Price: dec("999.99"), Category: "Electronics", IsReturnable: true},
		{ID: "prod-2", Title: "Mouse", SKU: "MOU-1", Price: dec("25.50"), Category: "Electronics", IsReturnable: true},
		{ID: "prod-3", Title: "Gift Card", SKU: "GFT-1", Price: dec("50.00"), Category: "Vouchers", IsReturnable: false},
	}
}

// newTestOrder builds a fully computed order fixture.
func newTestOrder(number, customer string) *model.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Order{
		ID:          uuid.New(),
		OrderNumber: number,
		CustomerID:  customer,
		Items: []model.OrderLineItem{
			{
				Product:      model.Unresolved[model.Product]("prod-2"),
				Title:        "Mouse",
				SKU:          "MOU-1",
				Quantity:     2,
				UnitPrice:    dec("25.50"),
				Discount:     dec("1.00"),
				LineSubtotal: dec("51.00"),
			},
		},
		Subtotal:      dec("51.00"),
		DiscountTotal: dec("1.00"),
		ShippingTotal: dec("4.95"),
		TaxTotal:      dec("11.54"),
		Total:         dec("66.49"),
		TaxRate:       dec("0.21"),
		Currency:      "EUR",
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		Timeline: []model.TimelineEvent{
			{Event: model.TimelineCreated, Title: "Order created", Timestamp: now},
		},
		ShippingAddress: &model.Address{FirstName: "Ada", LastName: "Lovelace", Street: "Main St", PostalCode: "1011", City: "Amsterdam", Country: "NL"},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// insertOrder stores order in its own transaction.
func insertOrder(t *testing.T, repo OrderRepository, order *model.Order) {
	t.Helper()

	ctx := context.Background()
	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tx, order))
	require.NoError(t, tx.Commit(ctx))
}
