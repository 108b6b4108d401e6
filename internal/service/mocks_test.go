package service

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"storefront/internal/ledger"
	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *model.Product) error {
	return m.Called(ctx, product).Error(0)
}

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	return m.Called(ctx, tx, order).Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	return m.Called(ctx, tx, order).Error(0)
}

func (m *MockOrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, orderNumber string) (*model.Order, error) {
	args := m.Called(ctx, tx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter model.ListOrdersFilter) ([]model.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

// MockReturnRepository is a mock implementation of ReturnRepository.
type MockReturnRepository struct {
	mock.Mock
}

func (m *MockReturnRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReturnRepository) Create(ctx context.Context, tx pgx.Tx, ret *model.Return) error {
	return m.Called(ctx, tx, ret).Error(0)
}

func (m *MockReturnRepository) Update(ctx context.Context, tx pgx.Tx, ret *model.Return) error {
	return m.Called(ctx, tx, ret).Error(0)
}

func (m *MockReturnRepository) GetByNumber(ctx context.Context, rmaNumber string) (*model.Return, error) {
	args := m.Called(ctx, rmaNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Return), args.Error(1)
}

func (m *MockReturnRepository) GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, rmaNumber string) (*model.Return, error) {
	args := m.Called(ctx, tx, rmaNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Return), args.Error(1)
}

func (m *MockReturnRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Return, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Return), args.Error(1)
}

func (m *MockReturnRepository) ListByOrderTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]model.Return, error) {
	args := m.Called(ctx, tx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Return), args.Error(1)
}

// MockRecorder is a mock implementation of events.Recorder.
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID, eventType string, payload any) error {
	return m.Called(ctx, tx, aggregateType, aggregateID, eventType, payload).Error(0)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// committingTx returns a MockTx expecting one commit. The deferred rollback
// after a commit reports pgx.ErrTxClosed like a real transaction.
func committingTx() *MockTx {
	tx := new(MockTx)
	tx.On("Commit", mock.Anything).Return(nil)
	tx.On("Rollback", mock.Anything).Return(pgx.ErrTxClosed)
	return tx
}

// abortedTx returns a MockTx expecting only a rollback.
func abortedTx() *MockTx {
	tx := new(MockTx)
	tx.On("Rollback", mock.Anything).Return(nil)
	return tx
}

// rates is a fixed jurisdiction table with a default.
type rates struct {
	table    map[string]decimal.Decimal
	fallback decimal.Decimal
}

func (r rates) Rate(jurisdiction string) decimal.Decimal {
	if rate, ok := r.table[strings.ToUpper(jurisdiction)]; ok {
		return rate
	}
	return r.fallback
}

func (r rates) Close() error { return nil }

var testNow = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func testIDs() *ledger.IdentifierGenerator {
	return ledger.NewIdentifierGeneratorWith(fixedClock, rand.NewPCG(1, 2))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func productRef(id string) model.Reference[model.Product] {
	return model.Unresolved[model.Product](id)
}

// fixture bundles the mocks behind one set of service dependencies.
type fixture struct {
	orders   *MockOrderRepository
	returns  *MockReturnRepository
	products *MockProductRepository
	recorder *MockRecorder
	deps     Dependencies
}

func newFixture() *fixture {
	f := &fixture{
		orders:   new(MockOrderRepository),
		returns:  new(MockReturnRepository),
		products: new(MockProductRepository),
		recorder: new(MockRecorder),
	}
	f.deps = Dependencies{
		Orders:   f.orders,
		Returns:  f.returns,
		Products: f.products,
		TaxRates: rates{
			table:    map[string]decimal.Decimal{"NL": dec("0.09")},
			fallback: dec("0.21"),
		},
		Events:                   f.recorder,
		IDs:                      testIDs(),
		Clock:                    fixedClock,
		Currency:                 "EUR",
		IdentifierMaxAttempts:    3,
		EnforceReturnTransitions: true,
	}
	return f
}

func (f *fixture) assertExpectations(t mock.TestingT) {
	f.orders.AssertExpectations(t)
	f.returns.AssertExpectations(t)
	f.products.AssertExpectations(t)
	f.recorder.AssertExpectations(t)
}

func catalogue() []model.Product {
	return []model.Product{
		{ID: "P001", Title: "Desk Lamp", SKU: "LMP-1", EAN: "4006381333931", Price: dec("10.00"), IsReturnable: true},
		{ID: "P002", Title: "Bulb", SKU: "BLB-1", Price: dec("20.00"), IsReturnable: true},
		{ID: "P003", Title: "Gift Card", SKU: "GFT-1", Price: dec("50.00"), IsReturnable: false},
	}
}

// storedOrder is an order as the repository would return it.
func storedOrder() *model.Order {
	created := testNow.Add(-24 * time.Hour)
	return &model.Order{
		ID:          uuid.MustParse("8f14e45f-ceea-4b6b-9f3e-7c3a1f0b2d11"),
		OrderNumber: "ORD-20250313-00042",
		CustomerID:  "cust-1",
		Items: []model.OrderLineItem{
			{Product: productRef("P001"), Title: "Desk Lamp (2024)", SKU: "LMP-1", Quantity: 2, UnitPrice: dec("8.00"), LineSubtotal: dec("16.00")},
			{Product: productRef("P003"), Title: "Gift Card", SKU: "GFT-1", Quantity: 1, UnitPrice: dec("50.00"), LineSubtotal: dec("50.00")},
		},
		Subtotal:      dec("66.00"),
		DiscountTotal: decimal.Zero,
		ShippingTotal: dec("4.00"),
		TaxTotal:      dec("6.30"),
		Total:         dec("76.30"),
		TaxRate:       dec("0.09"),
		Currency:      "EUR",
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		Timeline: []model.TimelineEvent{
			{Event: model.TimelineCreated, Title: "Order created", Timestamp: created},
		},
		ShippingAddress: &model.Address{Country: "NL"},
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

// storedReturn is a pending return against storedOrder.
func storedReturn() *model.Return {
	order := storedOrder()
	return &model.Return{
		ID:          uuid.MustParse("2c9a1f4e-5b7d-4e8a-9c3b-1d2e3f4a5b6c"),
		RMANumber:   "RMA-2025-123",
		Order:       model.Unresolved[model.Order](order.ID.String()),
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Items: []model.ReturnItem{
			{Product: productRef("P001"), Title: "Desk Lamp (2024)", SKU: "LMP-1", UnitPrice: dec("8.00"), QuantityOrdered: 2, QuantityReturning: 1, IsReturnable: true},
		},
		ReturnValue: dec("8.00"),
		Status:      model.ReturnStatusPending,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.CreatedAt,
	}
}
