package ledger

import (
	"fmt"
	"time"

	"storefront/internal/model"
)

// returnTransitions lists the statuses reachable from each non-terminal return status.
var returnTransitions = map[model.ReturnStatus][]model.ReturnStatus{
	model.ReturnStatusPending: {
		model.ReturnStatusApproved,
		model.ReturnStatusRejected,
		model.ReturnStatusCancelled,
	},
	model.ReturnStatusApproved: {
		model.ReturnStatusLabelSent,
		model.ReturnStatusReceived,
		model.ReturnStatusInspecting,
		model.ReturnStatusCancelled,
	},
	model.ReturnStatusLabelSent: {
		model.ReturnStatusReceived,
		model.ReturnStatusCancelled,
	},
	model.ReturnStatusReceived: {
		model.ReturnStatusInspecting,
		model.ReturnStatusRefunded,
		model.ReturnStatusReplaced,
		model.ReturnStatusCompleted,
		model.ReturnStatusRejected,
		model.ReturnStatusCancelled,
	},
	model.ReturnStatusInspecting: {
		model.ReturnStatusRefunded,
		model.ReturnStatusReplaced,
		model.ReturnStatusCompleted,
		model.ReturnStatusRejected,
		model.ReturnStatusCancelled,
	},
}

// ValidateReturnTransition reports whether a return may move from one status
// to another. Staying on the same status is always allowed. An empty from is
// treated as pending.
func ValidateReturnTransition(from, to model.ReturnStatus) error {
	if !to.Valid() {
		return model.NewInvalidStatusError("status", string(to))
	}
	if from == "" {
		from = model.ReturnStatusPending
	}
	if from == to {
		return nil
	}
	for _, next := range returnTransitions[from] {
		if next == to {
			return nil
		}
	}
	return model.NewInvalidTransitionError(string(from), string(to))
}

// StampReturn fills the lifecycle dates that the current status calls for.
// A date that is already set is never overwritten.
func StampReturn(ret model.Return, now time.Time) model.Return {
	switch ret.Status {
	case model.ReturnStatusApproved:
		ret.ApprovalDate = stampOnce(ret.ApprovalDate, now)
	case model.ReturnStatusCompleted:
		ret.ProcessedDate = stampOnce(ret.ProcessedDate, now)
	case model.ReturnStatusRefunded:
		ret.ProcessedDate = stampOnce(ret.ProcessedDate, now)
		if ret.RefundAmount.IsPositive() {
			ret.RefundDate = stampOnce(ret.RefundDate, now)
		}
	}
	return ret
}

// ApplyReturnStatus moves ret to status and stamps the lifecycle dates.
// When enforce is false any known status is accepted.
func ApplyReturnStatus(ret model.Return, to model.ReturnStatus, now time.Time, enforce bool) (model.Return, error) {
	if enforce {
		if err := ValidateReturnTransition(ret.Status, to); err != nil {
			return ret, err
		}
	} else if !to.Valid() {
		return ret, model.NewInvalidStatusError("status", string(to))
	}

	ret.Status = to
	return StampReturn(ret, now), nil
}

func stampOnce(current *time.Time, now time.Time) *time.Time {
	if current != nil {
		return current
	}
	t := now.UTC()
	return &t
}

// OrderStatusChange describes a status update applied to an order.
type OrderStatusChange struct {
	Status        model.OrderStatus
	PaymentStatus model.PaymentStatus
	Description   string
	Location      string
}

// ApplyOrderStatus sets the status and payment status named in change and
// appends one timeline entry per axis that actually changed. Empty values in
// change leave the corresponding axis untouched. The returned order never
// shares its timeline with the input.
func ApplyOrderStatus(order model.Order, change OrderStatusChange, now time.Time) (model.Order, error) {
	if change.Status != "" && !change.Status.Valid() {
		return order, model.NewInvalidStatusError("status", string(change.Status))
	}
	if change.PaymentStatus != "" && !change.PaymentStatus.Valid() {
		return order, model.NewInvalidStatusError("paymentStatus", string(change.PaymentStatus))
	}

	timeline := make([]model.TimelineEvent, len(order.Timeline), len(order.Timeline)+2)
	copy(timeline, order.Timeline)
	ts := now.UTC()

	if change.Status != "" && change.Status != order.Status {
		timeline = append(timeline, model.TimelineEvent{
			Event:       model.TimelineStatusChanged,
			Title:       fmt.Sprintf("Status changed from %s to %s", order.Status, change.Status),
			Description: change.Description,
			Location:    change.Location,
			Timestamp:   ts,
		})
		order.Status = change.Status
	}

	if change.PaymentStatus != "" && change.PaymentStatus != order.PaymentStatus {
		timeline = append(timeline, model.TimelineEvent{
			Event:       model.TimelinePaymentUpdated,
			Title:       fmt.Sprintf("Payment %s", change.PaymentStatus),
			Description: change.Description,
			Timestamp:   ts,
		})
		order.PaymentStatus = change.PaymentStatus
	}

	order.Timeline = timeline
	return order, nil
}

// AppendTimeline returns a copy of order with event appended to its timeline.
func AppendTimeline(order model.Order, event model.TimelineEvent) model.Order {
	timeline := make([]model.TimelineEvent, len(order.Timeline), len(order.Timeline)+1)
	copy(timeline, order.Timeline)
	order.Timeline = append(timeline, event)
	return order
}
