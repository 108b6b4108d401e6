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

// returnService implements ReturnService.
type returnService struct {
	deps   Dependencies
	logger zerolog.Logger
}

// NewReturnService creates a new return service.
func NewReturnService(deps Dependencies, logger zerolog.Logger) ReturnService {
	return &returnService{
		deps:   deps.withDefaults(),
		logger: logger.With().Str("service", "return").Logger(),
	}
}

// CreateReturn raises a return for lines of an existing order. Unit prices and
// ordered quantities are copied from the order lines; returnability comes from
// the catalogue and defaults to true for products no longer listed. Units
// already claimed by the order's open returns cannot be claimed again.
func (s *returnService) CreateReturn(ctx context.Context, req *model.CreateReturnRequest) (*model.Return, error) {
	if strings.TrimSpace(req.OrderNumber) == "" {
		return nil, model.NewMissingFieldError("orderNumber")
	}
	if strings.TrimSpace(req.CustomerID) == "" {
		return nil, model.NewMissingFieldError("customerId")
	}

	order, err := s.deps.Orders.GetByNumber(ctx, req.OrderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.CustomerID != req.CustomerID {
		s.logger.Warn().
			Str("order_number", order.OrderNumber).
			Str("customer_id", req.CustomerID).
			Msg("return requested for another customer's order")
		return nil, &model.DomainError{
			Code:    model.ErrCodeOwnershipMismatch,
			Message: fmt.Sprintf("order %s does not belong to customer %s", order.OrderNumber, req.CustomerID),
			Field:   "customerId",
		}
	}

	items, err := s.buildItems(ctx, req.Items, order.Items)
	if err != nil {
		return nil, err
	}

	now := s.deps.Clock().UTC()
	ret := model.Return{
		ID:          uuid.New(),
		Order:       model.Unresolved[model.Order](order.ID.String()),
		OrderNumber: order.OrderNumber,
		CustomerID:  req.CustomerID,
		Items:       items,
		Reason:      req.Reason,
		Status:      model.ReturnStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.deps.Validator.ValidateReturn(ret); err != nil {
		s.logger.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("return rejected")
		return nil, err
	}

	ret = ledger.RecomputeReturn(ret)

	number, err := ledger.GenerateUnique(ctx, s.deps.IdentifierMaxAttempts, s.deps.IDs.RMANumber,
		func(ctx context.Context, id string) error {
			ret.RMANumber = id
			return inTx(ctx, s.deps.Returns.BeginTx, s.logger, func(tx pgx.Tx) error {
				if err := s.checkClaims(ctx, tx, order.OrderNumber, "", ret.Items); err != nil {
					return err
				}
				if err := s.deps.Returns.Create(ctx, tx, &ret); err != nil {
					return err
				}
				return s.deps.Events.Record(ctx, tx, model.AggregateReturn, id, model.EventReturnCreated, ret)
			})
		},
		func(attempt int, id string) {
			s.logger.Warn().Int("attempt", attempt).Str("rma_number", id).Msg("rma number collision")
			s.deps.Metrics.IdentifierCollision("rma")
		},
	)
	if err != nil {
		if isDomainError(err) {
			s.logger.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("return rejected")
			return nil, err
		}
		s.logger.Error().Err(err).Str("order_number", order.OrderNumber).Msg("failed to create return")
		return nil, fmt.Errorf("failed to create return: %w", err)
	}

	s.deps.Metrics.ReturnCreated()
	s.logger.Info().
		Str("rma_number", number).
		Str("order_number", order.OrderNumber).
		Str("return_value", ret.ReturnValue.StringFixed(ledger.MoneyPrecision)).
		Msg("return created successfully")

	return &ret, nil
}

func (s *returnService) GetByNumber(ctx context.Context, rmaNumber string) (*model.Return, error) {
	ret, err := s.deps.Returns.GetByNumber(ctx, rmaNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get return: %w", err)
	}
	if ret == nil {
		return nil, model.ErrReturnNotFound
	}
	return ret, nil
}

func (s *returnService) ListByOrder(ctx context.Context, orderNumber string) ([]model.Return, error) {
	order, err := s.deps.Orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	returns, err := s.deps.Returns.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list returns: %w", err)
	}
	return returns, nil
}

// UpdateReturn applies the non-nil fields of req. Refund amount and notes are
// set before the status so that moving to refunded stamps the refund date.
// Lines of a terminal return are frozen; its refund amount may only be
// recorded on a refunded return that has no refund date yet.
func (s *returnService) UpdateReturn(ctx context.Context, rmaNumber string, req *model.UpdateReturnRequest) (*model.Return, error) {
	var (
		updated model.Return
		from    model.ReturnStatus
	)

	err := inTx(ctx, s.deps.Returns.BeginTx, s.logger, func(tx pgx.Tx) error {
		current, err := s.deps.Returns.GetByNumberForUpdate(ctx, tx, rmaNumber)
		if err != nil {
			return err
		}
		if current == nil {
			return model.ErrReturnNotFound
		}
		from = current.Status
		if err := checkClosed(current, req); err != nil {
			return err
		}

		next := *current
		next.Items = append([]model.ReturnItem(nil), current.Items...)

		for i, r := range req.Items {
			idx := indexOfReturnItem(next.Items, r.Product.ID())
			if idx < 0 {
				return model.NewInvalidLineItemError(i, "product", "is not part of the return")
			}
			next.Items[idx].QuantityReturning = r.QuantityReturning
		}
		if len(req.Items) > 0 {
			if err := s.checkClaims(ctx, tx, next.OrderNumber, next.RMANumber, next.Items); err != nil {
				return err
			}
		}
		if req.RefundAmount != nil {
			next.RefundAmount = *req.RefundAmount
		}
		if req.StaffNotes != nil {
			next.StaffNotes = *req.StaffNotes
		}

		now := s.deps.Clock()
		if req.Status != nil {
			next, err = ledger.ApplyReturnStatus(next, *req.Status, now, s.deps.EnforceReturnTransitions)
			if err != nil {
				return err
			}
		}
		next = ledger.StampReturn(next, now)

		if err := s.deps.Validator.ValidateReturn(next); err != nil {
			return err
		}

		next = ledger.RecomputeReturn(next)
		next.UpdatedAt = now.UTC()

		if err := s.deps.Returns.Update(ctx, tx, &next); err != nil {
			return err
		}

		if next.Status != from {
			payload := map[string]any{
				"rmaNumber":    next.RMANumber,
				"orderNumber":  next.OrderNumber,
				"previous":     from,
				"status":       next.Status,
				"refundAmount": next.RefundAmount,
			}
			if err := s.deps.Events.Record(ctx, tx, model.AggregateReturn, next.RMANumber, model.EventReturnStatusChanged, payload); err != nil {
				return err
			}
		}

		updated = next
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			s.logger.Warn().Err(err).Str("rma_number", rmaNumber).Msg("return update rejected")
			return nil, err
		}
		s.logger.Error().Err(err).Str("rma_number", rmaNumber).Msg("failed to update return")
		return nil, fmt.Errorf("failed to update return: %w", err)
	}

	if updated.Status != from {
		s.deps.Metrics.ReturnTransition(string(from), string(updated.Status))
	}
	s.logger.Info().
		Str("rma_number", rmaNumber).
		Str("from", string(from)).
		Str("status", string(updated.Status)).
		Msg("return updated")

	return &updated, nil
}

// buildItems maps requested return lines onto the order lines they refer to.
func (s *returnService) buildItems(ctx context.Context, reqs []model.ReturnItemRequest, lines []model.OrderLineItem) ([]model.ReturnItem, error) {
	items := make([]model.ReturnItem, len(reqs))
	if len(reqs) == 0 {
		return items, nil
	}

	// A product split over several order lines is returned against their
	// combined quantity at the first line's price.
	byProduct := make(map[string]model.OrderLineItem, len(lines))
	for _, line := range lines {
		id := line.Product.ID()
		if first, ok := byProduct[id]; ok {
			first.Quantity += line.Quantity
			byProduct[id] = first
			continue
		}
		byProduct[id] = line
	}

	ids := make([]string, 0, len(reqs))
	seen := make(map[string]struct{}, len(reqs))
	for i, r := range reqs {
		id := r.Product.ID()
		if id == "" {
			return nil, model.NewInvalidLineItemError(i, "product", "is required")
		}
		if _, ok := byProduct[id]; !ok {
			return nil, model.NewInvalidLineItemError(i, "product", "is not part of the order")
		}
		if _, dup := seen[id]; dup {
			return nil, model.NewInvalidLineItemError(i, "product", "is listed twice")
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	products, err := s.deps.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	returnable := make(map[string]bool, len(products))
	for _, p := range products {
		returnable[p.ID] = p.IsReturnable
	}

	for i, r := range reqs {
		line := byProduct[r.Product.ID()]
		isReturnable, known := returnable[line.Product.ID()]
		items[i] = model.ReturnItem{
			Product:           model.Unresolved[model.Product](line.Product.ID()),
			Title:             line.Title,
			SKU:               line.SKU,
			UnitPrice:         line.UnitPrice,
			QuantityOrdered:   line.Quantity,
			QuantityReturning: r.QuantityReturning,
			IsReturnable:      isReturnable || !known,
		}
	}

	return items, nil
}

// checkClaims rejects lines that, together with the other open returns of the
// order, claim more units than were ordered. The order row stays locked until
// tx ends so concurrent returns against the same order are checked in turn.
// Returns other than exclude that were rejected or cancelled claim nothing.
func (s *returnService) checkClaims(ctx context.Context, tx pgx.Tx, orderNumber, exclude string, items []model.ReturnItem) error {
	order, err := s.deps.Orders.GetByNumberForUpdate(ctx, tx, orderNumber)
	if err != nil {
		return fmt.Errorf("failed to lock order: %w", err)
	}
	if order == nil {
		return model.ErrOrderNotFound
	}

	existing, err := s.deps.Returns.ListByOrderTx(ctx, tx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to list returns: %w", err)
	}

	claimed := make(map[string]int)
	for _, ret := range existing {
		if ret.RMANumber == exclude || ret.Status == model.ReturnStatusRejected || ret.Status == model.ReturnStatusCancelled {
			continue
		}
		for _, item := range ret.Items {
			claimed[item.Product.ID()] += item.QuantityReturning
		}
	}

	for i, item := range items {
		remaining := max(item.QuantityOrdered-claimed[item.Product.ID()], 0)
		if item.QuantityReturning > remaining {
			return model.NewInvalidLineItemError(i, "quantityReturning",
				fmt.Sprintf("exceeds the %d unit(s) not yet claimed by other returns", remaining))
		}
	}
	return nil
}

// checkClosed rejects edits to the lines or refund amount of a terminal return.
func checkClosed(current *model.Return, req *model.UpdateReturnRequest) error {
	if !current.Status.Terminal() {
		return nil
	}
	if len(req.Items) > 0 {
		return &model.DomainError{
			Code:    model.ErrCodeInvalidTransition,
			Message: fmt.Sprintf("return %s is %s and its items can no longer change", current.RMANumber, current.Status),
			Field:   "items",
		}
	}
	if req.RefundAmount != nil && (current.Status != model.ReturnStatusRefunded || current.RefundDate != nil) {
		return &model.DomainError{
			Code:    model.ErrCodeInvalidTransition,
			Message: fmt.Sprintf("return %s is %s and its refund amount can no longer change", current.RMANumber, current.Status),
			Field:   "refundAmount",
		}
	}
	return nil
}

func indexOfReturnItem(items []model.ReturnItem, productID string) int {
	for i, item := range items {
		if item.Product.ID() == productID {
			return i
		}
	}
	return -1
}
