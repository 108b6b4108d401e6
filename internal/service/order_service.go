package service

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/ledger"
	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	deps   Dependencies
	policy ledger.Policy
	logger zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(deps Dependencies, logger zerolog.Logger) OrderService {
	return &orderService{
		deps:   deps.withDefaults(),
		policy: ledger.DefaultPolicy(),
		logger: logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder creates a new order from the requested lines.
func (s *orderService) CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.Order, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return nil, model.NewMissingFieldError("customerId")
	}

	items, err := s.buildLines(ctx, req.Items, nil)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = model.OrderStatusPending
	}
	paymentStatus := req.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = model.PaymentStatusPending
	}

	now := s.deps.Clock().UTC()
	order := model.Order{
		ID:              uuid.New(),
		CustomerID:      req.CustomerID,
		Items:           items,
		ShippingTotal:   req.Shipping(),
		Currency:        s.deps.Currency,
		Status:          status,
		PaymentStatus:   paymentStatus,
		BillingAddress:  req.BillingAddress,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
		Timeline: []model.TimelineEvent{
			{Event: model.TimelineCreated, Title: "Order created", Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.deps.Validator.ValidateOrder(order); err != nil {
		s.logger.Warn().Err(err).Str("customer_id", order.CustomerID).Msg("order rejected")
		return nil, err
	}

	jurisdiction := order.Jurisdiction()
	order = ledger.RecomputeOrder(order, s.policy.WithTaxRate(s.deps.TaxRates.Rate(jurisdiction)))

	number, err := ledger.GenerateUnique(ctx, s.deps.IdentifierMaxAttempts, s.deps.IDs.OrderNumber,
		func(ctx context.Context, id string) error {
			order.OrderNumber = id
			return inTx(ctx, s.deps.Orders.BeginTx, s.logger, func(tx pgx.Tx) error {
				if err := s.deps.Orders.Create(ctx, tx, &order); err != nil {
					return err
				}
				return s.deps.Events.Record(ctx, tx, model.AggregateOrder, id, model.EventOrderCreated, order)
			})
		},
		func(attempt int, id string) {
			s.logger.Warn().Int("attempt", attempt).Str("order_number", id).Msg("order number collision")
			s.deps.Metrics.IdentifierCollision("order")
		},
	)
	if err != nil {
		s.logger.Error().Err(err).Str("customer_id", order.CustomerID).Msg("failed to create order")
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.deps.Metrics.OrderCreated()
	s.logger.Info().
		Str("order_number", number).
		Str("customer_id", order.CustomerID).
		Str("jurisdiction", jurisdiction).
		Str("total", order.Total.StringFixed(ledger.MoneyPrecision)).
		Int("item_count", len(order.Items)).
		Msg("order created successfully")

	return &order, nil
}

// GetByNumber retrieves an order and resolves the products its lines refer to.
func (s *orderService) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	order, err := s.deps.Orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	ids := make([]string, len(order.Items))
	for i, item := range order.Items {
		ids[i] = item.Product.ID()
	}

	products, err := s.deps.Products.GetByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve order products: %w", err)
	}
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for i := range order.Items {
		if p, ok := byID[order.Items[i].Product.ID()]; ok {
			order.Items[i].Product = model.Resolved(p)
		}
	}

	return order, nil
}

func (s *orderService) List(ctx context.Context, filter model.ListOrdersFilter) ([]model.Order, error) {
	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)

	orders, err := s.deps.Orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateItems replaces the lines of an order. Lines for products already on
// the order keep their snapshot and price unless a new price is sent. The
// tax rate stored on the order is reused.
func (s *orderService) UpdateItems(ctx context.Context, orderNumber string, req *model.UpdateOrderItemsRequest) (*model.Order, error) {
	var updated model.Order

	err := inTx(ctx, s.deps.Orders.BeginTx, s.logger, func(tx pgx.Tx) error {
		current, err := s.deps.Orders.GetByNumberForUpdate(ctx, tx, orderNumber)
		if err != nil {
			return err
		}
		if current == nil {
			return model.ErrOrderNotFound
		}

		items, err := s.buildLines(ctx, req.Items, current.Items)
		if err != nil {
			return err
		}

		next := *current
		next.Items = items
		if shipping, ok := req.Shipping(); ok {
			next.ShippingTotal = shipping
		}

		if err := s.deps.Validator.ValidateOrder(next); err != nil {
			return err
		}

		now := s.deps.Clock().UTC()
		next = ledger.RecomputeOrder(next, s.policy.WithTaxRate(current.TaxRate))
		next = ledger.AppendTimeline(next, model.TimelineEvent{
			Event:       model.TimelineItemsUpdated,
			Title:       "Items updated",
			Description: fmt.Sprintf("Total changed from %s to %s", current.Total.StringFixed(ledger.MoneyPrecision), next.Total.StringFixed(ledger.MoneyPrecision)),
			Timestamp:   now,
		})
		next.UpdatedAt = now

		if err := s.deps.Orders.Update(ctx, tx, &next); err != nil {
			return err
		}
		if err := s.deps.Events.Record(ctx, tx, model.AggregateOrder, next.OrderNumber, model.EventOrderItemsUpdated, next); err != nil {
			return err
		}

		updated = next
		return nil
	})
	if err != nil {
		return nil, s.writeError(err, orderNumber, "failed to update order items")
	}

	s.logger.Info().
		Str("order_number", orderNumber).
		Int("item_count", len(updated.Items)).
		Str("total", updated.Total.StringFixed(ledger.MoneyPrecision)).
		Msg("order items updated")

	return &updated, nil
}

// UpdateStatus applies a status and/or payment status change and records it
// on the timeline. A request that changes nothing leaves the order untouched.
func (s *orderService) UpdateStatus(ctx context.Context, orderNumber string, req *model.UpdateOrderStatusRequest) (*model.Order, error) {
	if req.Status == "" && req.PaymentStatus == "" {
		return nil, model.NewMissingFieldError("status")
	}

	var updated model.Order

	err := inTx(ctx, s.deps.Orders.BeginTx, s.logger, func(tx pgx.Tx) error {
		current, err := s.deps.Orders.GetByNumberForUpdate(ctx, tx, orderNumber)
		if err != nil {
			return err
		}
		if current == nil {
			return model.ErrOrderNotFound
		}

		now := s.deps.Clock().UTC()
		next, err := ledger.ApplyOrderStatus(*current, ledger.OrderStatusChange{
			Status:        req.Status,
			PaymentStatus: req.PaymentStatus,
			Description:   req.Description,
			Location:      req.Location,
		}, now)
		if err != nil {
			return err
		}

		if len(next.Timeline) == len(current.Timeline) {
			updated = *current
			return nil
		}

		next = ledger.RecomputeOrder(next, s.policy.WithTaxRate(current.TaxRate))
		next.UpdatedAt = now

		if err := s.deps.Orders.Update(ctx, tx, &next); err != nil {
			return err
		}

		payload := map[string]any{
			"orderNumber":   next.OrderNumber,
			"previous":      map[string]any{"status": current.Status, "paymentStatus": current.PaymentStatus},
			"status":        next.Status,
			"paymentStatus": next.PaymentStatus,
		}
		if err := s.deps.Events.Record(ctx, tx, model.AggregateOrder, next.OrderNumber, model.EventOrderStatusChanged, payload); err != nil {
			return err
		}

		updated = next
		return nil
	})
	if err != nil {
		return nil, s.writeError(err, orderNumber, "failed to update order status")
	}

	s.logger.Info().
		Str("order_number", orderNumber).
		Str("status", string(updated.Status)).
		Str("payment_status", string(updated.PaymentStatus)).
		Msg("order status updated")

	return &updated, nil
}

// buildLines turns requested lines into order lines. Snapshot fields come
// from the matching existing line when there is one, otherwise from the
// catalogue.
func (s *orderService) buildLines(ctx context.Context, reqs []model.OrderItemRequest, existing []model.OrderLineItem) ([]model.OrderLineItem, error) {
	lines := make([]model.OrderLineItem, len(reqs))
	if len(reqs) == 0 {
		return lines, nil
	}

	previous := make(map[string]model.OrderLineItem, len(existing))
	for _, line := range existing {
		if _, ok := previous[line.Product.ID()]; !ok {
			previous[line.Product.ID()] = line
		}
	}

	var lookup []string
	for i, r := range reqs {
		id := r.Product.ID()
		if id == "" {
			return nil, model.NewInvalidLineItemError(i, "product", "is required")
		}
		if _, ok := previous[id]; !ok {
			lookup = append(lookup, id)
		}
	}

	catalogue := map[string]model.Product{}
	if ids := uniqueIDs(lookup); len(ids) > 0 {
		products, err := s.deps.Products.GetByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load products: %w", err)
		}
		for _, p := range products {
			catalogue[p.ID] = p
		}
	}

	for i, r := range reqs {
		id := r.Product.ID()
		line := model.OrderLineItem{
			Product:  model.Unresolved[model.Product](id),
			Quantity: r.Quantity,
			Discount: r.Discount,
		}

		if prev, ok := previous[id]; ok {
			line.Title, line.SKU, line.EAN = prev.Title, prev.SKU, prev.EAN
			line.UnitPrice = prev.UnitPrice
		} else if p, ok := catalogue[id]; ok {
			line.Title, line.SKU, line.EAN = p.Title, p.SKU, p.EAN
			line.UnitPrice = p.Price
		} else {
			return nil, productNotFound(id, fmt.Sprintf("items[%d].product", i))
		}

		if price, ok := r.RequestedPrice(); ok {
			line.UnitPrice = price
		}
		lines[i] = line
	}

	return lines, nil
}

func (s *orderService) writeError(err error, orderNumber, msg string) error {
	if isDomainError(err) {
		s.logger.Warn().Err(err).Str("order_number", orderNumber).Msg("order update rejected")
		return err
	}
	s.logger.Error().Err(err).Str("order_number", orderNumber).Msg(msg)
	return fmt.Errorf("%s: %w", msg, err)
}
