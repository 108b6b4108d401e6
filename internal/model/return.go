package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnStatus is the lifecycle status of a return merchandise authorisation.
type ReturnStatus string

const (
	ReturnStatusPending    ReturnStatus = "pending"
	ReturnStatusApproved   ReturnStatus = "approved"
	ReturnStatusRejected   ReturnStatus = "rejected"
	ReturnStatusLabelSent  ReturnStatus = "label_sent"
	ReturnStatusReceived   ReturnStatus = "received"
	ReturnStatusInspecting ReturnStatus = "inspecting"
	ReturnStatusRefunded   ReturnStatus = "refunded"
	ReturnStatusReplaced   ReturnStatus = "replaced"
	ReturnStatusCompleted  ReturnStatus = "completed"
	ReturnStatusCancelled  ReturnStatus = "cancelled"
)

// Valid reports whether s is a known return status.
func (s ReturnStatus) Valid() bool {
	switch s {
	case ReturnStatusPending, ReturnStatusApproved, ReturnStatusRejected, ReturnStatusLabelSent,
		ReturnStatusReceived, ReturnStatusInspecting, ReturnStatusRefunded, ReturnStatusReplaced,
		ReturnStatusCompleted, ReturnStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions leave s.
func (s ReturnStatus) Terminal() bool {
	switch s {
	case ReturnStatusRefunded, ReturnStatusReplaced, ReturnStatusCompleted,
		ReturnStatusRejected, ReturnStatusCancelled:
		return true
	}
	return false
}

// Return represents an RMA raised against an order. ReturnValue is derived
// from Items; RefundAmount is set by staff and never derived.
type Return struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	RMANumber     string           `json:"rmaNumber" db:"rma_number"`
	Order         Reference[Order] `json:"order" db:"order_id"`
	OrderNumber   string           `json:"orderNumber" db:"order_number"`
	CustomerID    string           `json:"customerId" db:"customer_id" validate:"required"`
	Items         []ReturnItem     `json:"items" db:"items" validate:"min=1,dive"`
	Reason        string           `json:"reason,omitempty" db:"reason"`
	ReturnValue   decimal.Decimal  `json:"returnValue" db:"return_value"`
	RefundAmount  decimal.Decimal  `json:"refundAmount" db:"refund_amount" validate:"gte=0"`
	Status        ReturnStatus     `json:"status" db:"status" validate:"returnstatus"`
	ApprovalDate  *time.Time       `json:"approvalDate,omitempty" db:"approval_date"`
	ProcessedDate *time.Time       `json:"processedDate,omitempty" db:"processed_date"`
	RefundDate    *time.Time       `json:"refundDate,omitempty" db:"refund_date"`
	StaffNotes    string           `json:"staffNotes,omitempty" db:"staff_notes"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time        `json:"updatedAt" db:"updated_at"`
}

// ReturnItem is one returned line, copied from the order line it refers to.
type ReturnItem struct {
	Product           Reference[Product] `json:"product"`
	Title             string             `json:"title"`
	SKU               string             `json:"sku"`
	UnitPrice         decimal.Decimal    `json:"unitPrice" validate:"gte=0"`
	QuantityOrdered   int                `json:"quantityOrdered" validate:"gte=1"`
	QuantityReturning int                `json:"quantityReturning" validate:"gte=1,ltefield=QuantityOrdered"`
	IsReturnable      bool               `json:"isReturnable"`
}

// CreateReturnRequest represents the request payload for raising a return.
// The returned value is derived and not part of the payload.
type CreateReturnRequest struct {
	OrderNumber string              `json:"orderNumber"`
	CustomerID  string              `json:"customerId"`
	Reason      string              `json:"reason,omitempty"`
	Items       []ReturnItemRequest `json:"items"`
}

// ReturnItemRequest selects an order line by product and the quantity to send back.
type ReturnItemRequest struct {
	Product           Reference[Product] `json:"product"`
	QuantityReturning int                `json:"quantityReturning"`
}

// UpdateReturnRequest is a partial update of a return. Nil fields are left unchanged.
type UpdateReturnRequest struct {
	Status       *ReturnStatus       `json:"status,omitempty"`
	RefundAmount *decimal.Decimal    `json:"refundAmount,omitempty"`
	StaffNotes   *string             `json:"staffNotes,omitempty"`
	Items        []ReturnItemRequest `json:"items,omitempty"`
}
