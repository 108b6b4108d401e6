package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"storefront/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, "storefront.orders", Topic("storefront", model.AggregateOrder))
	assert.Equal(t, "storefront.returns", Topic("storefront", model.AggregateReturn))
	assert.Equal(t, "orders", Topic("", model.AggregateOrder))
}

func TestOutboxRecorder_Record(t *testing.T) {
	ctx := context.Background()
	repo := new(MockOutboxRepository)
	tx := new(MockTx)

	var saved *model.OutboxEvent
	repo.On("Save", ctx, tx, mock.AnythingOfType("*model.OutboxEvent")).
		Run(func(args mock.Arguments) { saved = args.Get(2).(*model.OutboxEvent) }).
		Return(nil)

	recorder := NewOutboxRecorder(repo, "storefront")
	payload := map[string]string{"orderNumber": "ORD-1", "status": "paid"}

	err := recorder.Record(ctx, tx, model.AggregateOrder, "ORD-1", model.EventOrderStatusChanged, payload)
	require.NoError(t, err)
	require.NotNil(t, saved)

	assert.Equal(t, model.AggregateOrder, saved.AggregateType)
	assert.Equal(t, "ORD-1", saved.AggregateID)
	assert.Equal(t, model.EventOrderStatusChanged, saved.EventType)
	assert.Equal(t, "storefront.orders", saved.Topic)

	var envelope Envelope
	require.NoError(t, json.Unmarshal(saved.Payload, &envelope))
	assert.Equal(t, model.EventOrderStatusChanged, envelope.EventType)
	assert.Equal(t, "ORD-1", envelope.AggregateID)
	assert.JSONEq(t, `{"orderNumber":"ORD-1","status":"paid"}`, string(envelope.Data))

	repo.AssertExpectations(t)
}

func TestOutboxRecorder_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("Unencodable payload", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		recorder := NewOutboxRecorder(repo, "storefront")

		err := recorder.Record(ctx, new(MockTx), model.AggregateOrder, "ORD-1", model.EventOrderCreated, make(chan int))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to encode order.created payload")
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Save fails", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		tx := new(MockTx)
		repo.On("Save", ctx, tx, mock.Anything).Return(errors.New("insert failed"))

		err := NewOutboxRecorder(repo, "storefront").Record(ctx, tx, model.AggregateReturn, "RMA-1", model.EventReturnCreated, struct{}{})

		assert.EqualError(t, err, "insert failed")
	})
}

func TestNopRecorder(t *testing.T) {
	assert.NoError(t, NopRecorder().Record(context.Background(), nil, "order", "ORD-1", "order.created", nil))
}
