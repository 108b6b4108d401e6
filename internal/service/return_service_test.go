package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReturnService_CreateReturn_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tx := committingTx()
	order := storedOrder()

	cancelled := storedReturn()
	cancelled.Status = model.ReturnStatusCancelled
	cancelled.Items[0].QuantityReturning = 2

	f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
	f.orders.On("GetByNumberForUpdate", mock.Anything, tx, order.OrderNumber).Return(order, nil).Once()
	f.products.On("GetByIDs", mock.Anything, []string{"P001"}).Return(catalogue()[:1], nil)
	f.returns.On("BeginTx", mock.Anything).Return(tx, nil).Once()
	f.returns.On("ListByOrderTx", mock.Anything, tx, order.ID).Return([]model.Return{*cancelled}, nil).Once()
	f.returns.On("Create", mock.Anything, tx, mock.AnythingOfType("*model.Return")).Return(nil).Once()
	f.recorder.On("Record", mock.Anything, tx, model.AggregateReturn, mock.AnythingOfType("string"), model.EventReturnCreated, mock.Anything).Return(nil).Once()

	req := &model.CreateReturnRequest{
		OrderNumber: order.OrderNumber,
		CustomerID:  "cust-1",
		Reason:      "arrived broken",
		Items:       []model.ReturnItemRequest{{Product: productRef("P001"), QuantityReturning: 2}},
	}
	ret, err := NewReturnService(f.deps, zerolog.Nop()).CreateReturn(ctx, req)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ret.RMANumber, "RMA-2025-"), ret.RMANumber)
	assert.Equal(t, order.ID.String(), ret.Order.ID())
	assert.Equal(t, order.OrderNumber, ret.OrderNumber)
	assert.Equal(t, model.ReturnStatusPending, ret.Status)
	assert.Equal(t, "arrived broken", ret.Reason)

	require.Len(t, ret.Items, 1)
	item := ret.Items[0]
	assert.Equal(t, "Desk Lamp (2024)", item.Title)
	assertAmount(t, "8.00", item.UnitPrice)
	assert.Equal(t, 2, item.QuantityOrdered)
	assert.True(t, item.IsReturnable)

	assertAmount(t, "16.00", ret.ReturnValue)
	assertAmount(t, "0.00", ret.RefundAmount)
	assert.Nil(t, ret.ApprovalDate)

	f.assertExpectations(t)
	tx.AssertExpectations(t)
}

func TestReturnService_CreateReturn_DelistedProductIsReturnable(t *testing.T) {
	f := newFixture()
	tx := committingTx()
	order := storedOrder()

	f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
	f.orders.On("GetByNumberForUpdate", mock.Anything, tx, order.OrderNumber).Return(order, nil)
	f.products.On("GetByIDs", mock.Anything, []string{"P001"}).Return([]model.Product{}, nil)
	f.returns.On("BeginTx", mock.Anything).Return(tx, nil)
	f.returns.On("ListByOrderTx", mock.Anything, tx, order.ID).Return(nil, nil)
	f.returns.On("Create", mock.Anything, tx, mock.Anything).Return(nil)
	f.recorder.On("Record", mock.Anything, tx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	ret, err := NewReturnService(f.deps, zerolog.Nop()).CreateReturn(context.Background(), &model.CreateReturnRequest{
		OrderNumber: order.OrderNumber,
		CustomerID:  "cust-1",
		Items:       []model.ReturnItemRequest{{Product: productRef("P001"), QuantityReturning: 1}},
	})

	require.NoError(t, err)
	assert.True(t, ret.Items[0].IsReturnable)
}

func TestReturnService_CreateReturn_RetriesOnCollision(t *testing.T) {
	f := newFixture()
	order := storedOrder()
	second := committingTx()

	f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
	f.products.On("GetByIDs", mock.Anything, []string{"P001"}).Return(catalogue()[:1], nil)
	f.orders.On("GetByNumberForUpdate", mock.Anything, mock.Anything, order.OrderNumber).Return(order, nil).Twice()
	f.returns.On("ListByOrderTx", mock.Anything, mock.Anything, order.ID).Return(nil, nil).Twice()
	f.returns.On("BeginTx", mock.Anything).Return(abortedTx(), nil).Once()
	f.returns.On("BeginTx", mock.Anything).Return(second, nil).Once()
	f.returns.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(model.NewDuplicateIdentifierError("RMA-2025-001")).Once()
	f.returns.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.recorder.On("Record", mock.Anything, second, model.AggregateReturn, mock.Anything, model.EventReturnCreated, mock.Anything).Return(nil).Once()

	ret, err := NewReturnService(f.deps, zerolog.Nop()).CreateReturn(context.Background(), &model.CreateReturnRequest{
		OrderNumber: order.OrderNumber,
		CustomerID:  "cust-1",
		Items:       []model.ReturnItemRequest{{Product: productRef("P001"), QuantityReturning: 1}},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, ret.RMANumber)
	f.assertExpectations(t)
	second.AssertExpectations(t)
}

func TestReturnService_CreateReturn_Rejected(t *testing.T) {
	order := storedOrder()

	tests := []struct {
		name      string
		req       *model.CreateReturnRequest
		order     *model.Order
		wantErr   error
		wantField string
	}{
		{
			name:      "missing order number",
			req:       &model.CreateReturnRequest{CustomerID: "cust-1"},
			wantErr:   model.ErrMissingField,
			wantField: "orderNumber",
		},
		{
			name:      "missing customer",
			req:       &model.CreateReturnRequest{OrderNumber: order.OrderNumber},
			wantErr:   model.ErrMissingField,
			wantField: "customerId",
		},
		{
			name:    "order not found",
			req:     &model.CreateReturnRequest{OrderNumber: order.OrderNumber, CustomerID: "cust-1"},
			wantErr: model.ErrOrderNotFound,
		},
		{
			name:      "order of another customer",
			req:       &model.CreateReturnRequest{OrderNumber: order.OrderNumber, CustomerID: "cust-2", Items: []model.ReturnItemRequest{{Product: productRef("P001"), QuantityReturning: 1}}},
			order:     order,
			wantErr:   model.ErrOwnershipMismatch,
			wantField: "customerId",
		},
		{
			name:      "no items",
			req:       &model.CreateReturnRequest{OrderNumber: order.OrderNumber, CustomerID: "cust-1"},
			order:     order,
			wantErr:   model.ErrInvalidLineItem,
			wantField: "items",
		},
		{
			name:      "product not on order",
			req:       &model.CreateReturnRequest{OrderNumber: order.OrderNumber, CustomerID: "cust-1", Items: []model.ReturnItemRequest{{Product: productRef("P002"), QuantityReturning: 1}}},
			order:     order,
			wantErr:   model.ErrInvalidLineItem,
			wantField: "items[0].product",
		},
		{
			name:      "more than ordered",
			req:       &model.CreateReturnRequest{OrderNumber: order.OrderNumber, CustomerID: "cust-1", Items: []model.ReturnItemRequest{{Product: productRef("P001"), QuantityReturning: 3}}},
			order:     order,
			wantErr:   model.ErrInvalidLineItem,
			wantField: "items[0].quantityReturning",
		},
		{
			name: "product listed twice",
			req: &model.CreateReturnRequest{OrderNumber: order.OrderNumber, CustomerID: "cust-1", Items: []model.ReturnItemRequest{
				{Product: productRef("P001"), QuantityReturning: 2},
				{Product: productRef("P001"), QuantityReturning: 2},
			}},
			order:     order,
			wantErr:   model.ErrInvalidLineItem,
			wantField: "items[1].product",
		},
		{
			name:      "zero quantity",
			req:       &model.CreateReturnRequest{OrderNumber: order.OrderNumber, CustomerID: "cust-1", Items: []model.ReturnItemRequest{{Product: productRef("P001")}}},
			order:     order,
			wantErr:   model.ErrInvalidLineItem,
			wantField: "items[0].quantityReturning",
		},
		{
			name:      "not returnable",
			req:       &model.CreateReturnRequest{OrderNumber: order.OrderNumber, CustomerID: "cust-1", Items: []model.ReturnItemRequest{{Product: productRef("P003"), QuantityReturning: 1}}},
			order:     order,
			wantErr:   model.ErrInvalidLineItem,
			wantField: "items[0].isReturnable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.order != nil {
				f.orders.On("GetByNumber", mock.Anything, tt.req.OrderNumber).Return(tt.order, nil).Maybe()
			} else {
				f.orders.On("GetByNumber", mock.Anything, tt.req.OrderNumber).Return(nil, nil).Maybe()
			}
			f.products.On("GetByIDs", mock.Anything, mock.Anything).Return(catalogue(), nil).Maybe()

			ret, err := NewReturnService(f.deps, zerolog.Nop()).CreateReturn(context.Background(), tt.req)

			require.Error(t, err)
			assert.Nil(t, ret)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantField != "" {
				var domainErr *model.DomainError
				require.ErrorAs(t, err, &domainErr)
				assert.Equal(t, tt.wantField, domainErr.Field)
			}
			f.returns.AssertNotCalled(t, "BeginTx", mock.Anything)
		})
	}
}

func TestReturnService_CreateReturn_ClaimedByOtherReturns(t *testing.T) {
	order := storedOrder()

	claiming := func(status model.ReturnStatus, quantity int) model.Return {
		ret := storedReturn()
		ret.Status = status
		ret.Items[0].QuantityReturning = quantity
		return *ret
	}

	tests := []struct {
		name     string
		existing []model.Return
		quantity int
	}{
		{
			name:     "pending return holds one of two",
			existing: []model.Return{claiming(model.ReturnStatusPending, 1)},
			quantity: 2,
		},
		{
			name:     "refunded return holds both",
			existing: []model.Return{claiming(model.ReturnStatusRefunded, 2)},
			quantity: 1,
		},
		{
			name: "claims add up across returns",
			existing: []model.Return{
				claiming(model.ReturnStatusApproved, 1),
				claiming(model.ReturnStatusRejected, 2),
				claiming(model.ReturnStatusReceived, 1),
			},
			quantity: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tx := abortedTx()
			f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
			f.orders.On("GetByNumberForUpdate", mock.Anything, tx, order.OrderNumber).Return(order, nil)
			f.products.On("GetByIDs", mock.Anything, []string{"P001"}).Return(catalogue()[:1], nil)
			f.returns.On("BeginTx", mock.Anything).Return(tx, nil).Once()
			f.returns.On("ListByOrderTx", mock.Anything, tx, order.ID).Return(tt.existing, nil)

			ret, err := NewReturnService(f.deps, zerolog.Nop()).CreateReturn(context.Background(), &model.CreateReturnRequest{
				OrderNumber: order.OrderNumber,
				CustomerID:  "cust-1",
				Items:       []model.ReturnItemRequest{{Product: productRef("P001"), QuantityReturning: tt.quantity}},
			})

			assert.Nil(t, ret)
			assert.ErrorIs(t, err, model.ErrInvalidLineItem)
			var domainErr *model.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, "items[0].quantityReturning", domainErr.Field)
			f.returns.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
			f.recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			tx.AssertExpectations(t)
		})
	}
}

func TestReturnService_GetByNumber(t *testing.T) {
	f := newFixture()
	f.returns.On("GetByNumber", mock.Anything, "RMA-2025-123").Return(storedReturn(), nil)
	f.returns.On("GetByNumber", mock.Anything, "RMA-2025-999").Return(nil, nil)
	f.returns.On("GetByNumber", mock.Anything, "RMA-2025-500").Return(nil, errors.New("connection refused"))

	svc := NewReturnService(f.deps, zerolog.Nop())

	ret, err := svc.GetByNumber(context.Background(), "RMA-2025-123")
	require.NoError(t, err)
	assert.Equal(t, "RMA-2025-123", ret.RMANumber)

	_, err = svc.GetByNumber(context.Background(), "RMA-2025-999")
	assert.ErrorIs(t, err, model.ErrReturnNotFound)

	_, err = svc.GetByNumber(context.Background(), "RMA-2025-500")
	require.Error(t, err)
	assert.False(t, isDomainError(err))
}

func TestReturnService_ListByOrder(t *testing.T) {
	f := newFixture()
	order := storedOrder()
	f.orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)
	f.orders.On("GetByNumber", mock.Anything, "ORD-missing").Return(nil, nil)
	f.returns.On("ListByOrder", mock.Anything, order.ID).Return([]model.Return{*storedReturn()}, nil)

	svc := NewReturnService(f.deps, zerolog.Nop())

	returns, err := svc.ListByOrder(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Len(t, returns, 1)

	_, err = svc.ListByOrder(context.Background(), "ORD-missing")
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
	f.returns.AssertNumberOfCalls(t, "ListByOrder", 1)
}

// expectReturnUpdate wires a locked read of current and a successful write.
func expectReturnUpdate(f *fixture, tx *MockTx, current *model.Return) *model.Return {
	written := new(model.Return)
	f.returns.On("BeginTx", mock.Anything).Return(tx, nil)
	f.returns.On("GetByNumberForUpdate", mock.Anything, tx, current.RMANumber).Return(current, nil)
	f.returns.On("Update", mock.Anything, tx, mock.AnythingOfType("*model.Return")).
		Run(func(args mock.Arguments) { *written = *args.Get(2).(*model.Return) }).
		Return(nil).Once()
	return written
}

func TestReturnService_UpdateReturn_Approve(t *testing.T) {
	f := newFixture()
	tx := committingTx()
	written := expectReturnUpdate(f, tx, storedReturn())

	var payload map[string]any
	f.recorder.On("Record", mock.Anything, tx, model.AggregateReturn, "RMA-2025-123", model.EventReturnStatusChanged, mock.Anything).
		Run(func(args mock.Arguments) { payload = args.Get(5).(map[string]any) }).
		Return(nil).Once()

	approved := model.ReturnStatusApproved
	ret, err := NewReturnService(f.deps, zerolog.Nop()).UpdateReturn(context.Background(), "RMA-2025-123",
		&model.UpdateReturnRequest{Status: &approved})

	require.NoError(t, err)
	assert.Equal(t, model.ReturnStatusApproved, ret.Status)
	require.NotNil(t, ret.ApprovalDate)
	assert.Equal(t, testNow, *ret.ApprovalDate)
	assert.Nil(t, ret.RefundDate)
	assert.Equal(t, testNow, ret.UpdatedAt)
	assert.Equal(t, ret.Status, written.Status)

	assert.Equal(t, model.ReturnStatusPending, payload["previous"])
	assert.Equal(t, model.ReturnStatusApproved, payload["status"])

	f.assertExpectations(t)
	tx.AssertExpectations(t)
}

func TestReturnService_UpdateReturn_RefundStampsDates(t *testing.T) {
	f := newFixture()
	tx := committingTx()
	current := storedReturn()
	current.Status = model.ReturnStatusInspecting
	expectReturnUpdate(f, tx, current)
	f.recorder.On("Record", mock.Anything, tx, mock.Anything, mock.Anything, model.EventReturnStatusChanged, mock.Anything).Return(nil)

	refunded := model.ReturnStatusRefunded
	ret, err := NewReturnService(f.deps, zerolog.Nop()).UpdateReturn(context.Background(), current.RMANumber,
		&model.UpdateReturnRequest{Status: &refunded, RefundAmount: decPtr("7.50")})

	require.NoError(t, err)
	assertAmount(t, "7.50", ret.RefundAmount)
	assertAmount(t, "8.00", ret.ReturnValue)
	require.NotNil(t, ret.ProcessedDate)
	require.NotNil(t, ret.RefundDate)
	assert.Equal(t, testNow, *ret.RefundDate)
}

func TestReturnService_UpdateReturn_RefundAmountAfterRefund(t *testing.T) {
	f := newFixture()
	tx := committingTx()
	current := storedReturn()
	current.Status = model.ReturnStatusRefunded
	expectReturnUpdate(f, tx, current)

	ret, err := NewReturnService(f.deps, zerolog.Nop()).UpdateReturn(context.Background(), current.RMANumber,
		&model.UpdateReturnRequest{RefundAmount: decPtr("8.00")})

	require.NoError(t, err)
	require.NotNil(t, ret.RefundDate)
	assert.Equal(t, testNow, *ret.RefundDate)
	f.recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReturnService_UpdateReturn_ItemsAndNotes(t *testing.T) {
	f := newFixture()
	tx := committingTx()
	order := storedOrder()
	written := expectReturnUpdate(f, tx, storedReturn())
	f.orders.On("GetByNumberForUpdate", mock.Anything, tx, order.OrderNumber).Return(order, nil).Once()
	f.returns.On("ListByOrderTx", mock.Anything, tx, order.ID).Return([]model.Return{*storedReturn()}, nil).Once()

	notes := "customer sent both lamps"
	ret, err := NewReturnService(f.deps, zerolog.Nop()).UpdateReturn(context.Background(), "RMA-2025-123",
		&model.UpdateReturnRequest{
			StaffNotes: &notes,
			Items:      []model.ReturnItemRequest{{Product: productRef("P001"), QuantityReturning: 2}},
		})

	require.NoError(t, err)
	assert.Equal(t, 2, ret.Items[0].QuantityReturning)
	assertAmount(t, "16.00", ret.ReturnValue)
	assertAmount(t, "16.00", written.ReturnValue)
	assert.Equal(t, notes, ret.StaffNotes)
	assert.Equal(t, model.ReturnStatusPending, ret.Status)
}

func TestReturnService_UpdateReturn_TransitionEnforcement(t *testing.T) {
	refunded := model.ReturnStatusRefunded

	t.Run("enforced", func(t *testing.T) {
		f := newFixture()
		tx := abortedTx()
		f.returns.On("BeginTx", mock.Anything).Return(tx, nil)
		f.returns.On("GetByNumberForUpdate", mock.Anything, tx, "RMA-2025-123").Return(storedReturn(), nil)

		_, err := NewReturnService(f.deps, zerolog.Nop()).UpdateReturn(context.Background(), "RMA-2025-123",
			&model.UpdateReturnRequest{Status: &refunded})

		assert.ErrorIs(t, err, model.ErrInvalidTransition)
		f.returns.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		tx.AssertNotCalled(t, "Commit", mock.Anything)
	})

	t.Run("relaxed", func(t *testing.T) {
		f := newFixture()
		f.deps.EnforceReturnTransitions = false
		tx := committingTx()
		expectReturnUpdate(f, tx, storedReturn())
		f.recorder.On("Record", mock.Anything, tx, mock.Anything, mock.Anything, model.EventReturnStatusChanged, mock.Anything).Return(nil)

		ret, err := NewReturnService(f.deps, zerolog.Nop()).UpdateReturn(context.Background(), "RMA-2025-123",
			&model.UpdateReturnRequest{Status: &refunded})

		require.NoError(t, err)
		assert.Equal(t, model.ReturnStatusRefunded, ret.Status)
		require.NotNil(t, ret.ProcessedDate)
		assert.Nil(t, ret.RefundDate)
	})
}

func TestReturnService_UpdateReturn_Rejected(t *testing.T) {
	bogus := model.ReturnStatus("vanished")

	withStatus := func(status model.ReturnStatus) *model.Return {
		ret := storedReturn()
		ret.Status = status
		return ret
	}
	refundDated := withStatus(model.ReturnStatusRefunded)
	refundDated.RefundDate = &testNow
	other := storedReturn()
	other.RMANumber = "RMA-2025-124"

	tests := []struct {
		name    string
		rma     string
		current *model.Return
		others  []model.Return
		req     *model.UpdateReturnRequest
		wantErr error
	}{
		{
			name:    "not found",
			rma:     "RMA-2025-999",
			req:     &model.UpdateReturnRequest{StaffNotes: new(string)},
			wantErr: model.ErrReturnNotFound,
		},
		{
			name:    "unknown status",
			rma:     "RMA-2025-123",
			current: storedReturn(),
			req:     &model.UpdateReturnRequest{Status: &bogus},
			wantErr: model.ErrInvalidStatus,
		},
		{
			name:    "item not on return",
			rma:     "RMA-2025-123",
			current: storedReturn(),
			req:     &model.UpdateReturnRequest{Items: []model.ReturnItemRequest{{Product: productRef("P003"), QuantityReturning: 1}}},
			wantErr: model.ErrInvalidLineItem,
		},
		{
			name:    "quantity above ordered",
			rma:     "RMA-2025-123",
			current: storedReturn(),
			req:     &model.UpdateReturnRequest{Items: []model.ReturnItemRequest{{Product: productRef("P001"), QuantityReturning: 5}}},
			wantErr: model.ErrInvalidLineItem,
		},
		{
			name:    "quantity held by another return",
			rma:     "RMA-2025-123",
			current: storedReturn(),
			others:  []model.Return{*storedReturn(), *other},
			req:     &model.UpdateReturnRequest{Items: []model.ReturnItemRequest{{Product: productRef("P001"), QuantityReturning: 2}}},
			wantErr: model.ErrInvalidLineItem,
		},
		{
			name:    "items of a refunded return",
			rma:     "RMA-2025-123",
			current: withStatus(model.ReturnStatusRefunded),
			req:     &model.UpdateReturnRequest{Items: []model.ReturnItemRequest{{Product: productRef("P001"), QuantityReturning: 2}}},
			wantErr: model.ErrInvalidTransition,
		},
		{
			name:    "items of a cancelled return",
			rma:     "RMA-2025-123",
			current: withStatus(model.ReturnStatusCancelled),
			req:     &model.UpdateReturnRequest{Items: []model.ReturnItemRequest{{Product: productRef("P001"), QuantityReturning: 1}}},
			wantErr: model.ErrInvalidTransition,
		},
		{
			name:    "refund amount of a completed return",
			rma:     "RMA-2025-123",
			current: withStatus(model.ReturnStatusCompleted),
			req:     &model.UpdateReturnRequest{RefundAmount: decPtr("8.00")},
			wantErr: model.ErrInvalidTransition,
		},
		{
			name:    "refund amount after the refund is dated",
			rma:     "RMA-2025-123",
			current: refundDated,
			req:     &model.UpdateReturnRequest{RefundAmount: decPtr("5.00")},
			wantErr: model.ErrInvalidTransition,
		},
		{
			name:    "negative refund",
			rma:     "RMA-2025-123",
			current: storedReturn(),
			req:     &model.UpdateReturnRequest{RefundAmount: decPtr("-1.00")},
			wantErr: model.NewDomainError(model.ErrCodeInvalidAmount, ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tx := abortedTx()
			f.returns.On("BeginTx", mock.Anything).Return(tx, nil)
			if tt.current != nil {
				f.returns.On("GetByNumberForUpdate", mock.Anything, tx, tt.rma).Return(tt.current, nil)
			} else {
				f.returns.On("GetByNumberForUpdate", mock.Anything, tx, tt.rma).Return(nil, nil)
			}
			order := storedOrder()
			f.orders.On("GetByNumberForUpdate", mock.Anything, tx, order.OrderNumber).Return(order, nil).Maybe()
			f.returns.On("ListByOrderTx", mock.Anything, tx, order.ID).Return(tt.others, nil).Maybe()

			ret, err := NewReturnService(f.deps, zerolog.Nop()).UpdateReturn(context.Background(), tt.rma, tt.req)

			assert.Nil(t, ret)
			assert.ErrorIs(t, err, tt.wantErr)
			f.returns.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
			tx.AssertExpectations(t)
		})
	}
}
