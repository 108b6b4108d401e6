package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment status of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusQuote      OrderStatus = "quote"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded,
		OrderStatusQuote:
		return true
	}
	return false
}

// PaymentStatus is the payment axis of an order, independent of OrderStatus.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// TimelineKind tags an entry of the order timeline.
type TimelineKind string

const (
	TimelineCreated        TimelineKind = "created"
	TimelineStatusChanged  TimelineKind = "status_changed"
	TimelinePaymentUpdated TimelineKind = "payment_updated"
	TimelineItemsUpdated   TimelineKind = "items_updated"
	TimelineNote           TimelineKind = "note"
)

// TimelineEvent is one entry of the append-only order timeline.
type TimelineEvent struct {
	Event       TimelineKind `json:"event"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Location    string       `json:"location,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Address is a postal address snapshot captured at order time.
type Address struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Company     string `json:"company,omitempty"`
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber,omitempty"`
	PostalCode  string `json:"postalCode"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Phone       string `json:"phone,omitempty"`
}

// Order represents a customer order. All amount fields except ShippingTotal
// are derived from Items and overwritten on every write.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderNumber     string          `json:"orderNumber" db:"order_number"`
	CustomerID      string          `json:"customerId" db:"customer_id" validate:"required"`
	Items           []OrderLineItem `json:"items" db:"items" validate:"min=1,dive"`
	Subtotal        decimal.Decimal `json:"subtotal" db:"subtotal"`
	DiscountTotal   decimal.Decimal `json:"discountTotal" db:"discount_total"`
	ShippingTotal   decimal.Decimal `json:"shippingTotal" db:"shipping_total" validate:"gte=0"`
	TaxTotal        decimal.Decimal `json:"taxTotal" db:"tax_total"`
	Total           decimal.Decimal `json:"total" db:"total"`
	TaxRate         decimal.Decimal `json:"taxRate" db:"tax_rate"`
	Currency        string          `json:"currency" db:"currency"`
	Status          OrderStatus     `json:"status" db:"status" validate:"orderstatus"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" db:"payment_status" validate:"paymentstatus"`
	Timeline        []TimelineEvent `json:"timeline" db:"timeline"`
	BillingAddress  *Address        `json:"billingAddress,omitempty" db:"billing_address"`
	ShippingAddress *Address        `json:"shippingAddress,omitempty" db:"shipping_address"`
	Notes           string          `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// RefID implements Identifiable.
func (o Order) RefID() string {
	return o.ID.String()
}

// Jurisdiction returns the country used to look up the tax rate: the shipping
// country, or the billing country when no shipping address is known.
func (o Order) Jurisdiction() string {
	if o.ShippingAddress != nil && o.ShippingAddress.Country != "" {
		return o.ShippingAddress.Country
	}
	if o.BillingAddress != nil {
		return o.BillingAddress.Country
	}
	return ""
}

// OrderLineItem is a product line of an order. Title, SKU and EAN are a
// snapshot taken when the line was first added.
type OrderLineItem struct {
	Product      Reference[Product] `json:"product"`
	Title        string             `json:"title"`
	SKU          string             `json:"sku"`
	EAN          string             `json:"ean,omitempty"`
	Quantity     int                `json:"quantity" validate:"gte=1"`
	UnitPrice    decimal.Decimal    `json:"unitPrice" validate:"gte=0"`
	Discount     decimal.Decimal    `json:"discount" validate:"gte=0"`
	LineSubtotal decimal.Decimal    `json:"lineSubtotal"`
}

// CreateOrderRequest represents the request payload for creating an order.
// Totals sent by the client are not part of the payload; unknown fields are ignored.
type CreateOrderRequest struct {
	CustomerID      string             `json:"customerId"`
	Items           []OrderItemRequest `json:"items"`
	ShippingTotal   *decimal.Decimal   `json:"shippingTotal,omitempty"`
	ShippingCost    *decimal.Decimal   `json:"shippingCost,omitempty"`
	Status          OrderStatus        `json:"status,omitempty"`
	PaymentStatus   PaymentStatus      `json:"paymentStatus,omitempty"`
	BillingAddress  *Address           `json:"billingAddress,omitempty"`
	ShippingAddress *Address           `json:"shippingAddress,omitempty"`
	Notes           string             `json:"notes,omitempty"`
}

// Shipping returns the shipping amount, accepting either field name. Missing is zero.
func (r CreateOrderRequest) Shipping() decimal.Decimal {
	return firstAmount(r.ShippingTotal, r.ShippingCost)
}

// OrderItemRequest represents a single item in an order request. Product may
// be sent as an id or as a populated product object.
type OrderItemRequest struct {
	Product   Reference[Product] `json:"product"`
	Quantity  int                `json:"quantity"`
	UnitPrice *decimal.Decimal   `json:"unitPrice,omitempty"`
	Price     *decimal.Decimal   `json:"price,omitempty"`
	Discount  decimal.Decimal    `json:"discount"`
}

// RequestedPrice returns the requested unit price, accepting either field name.
// ok is false when the client sent neither.
func (r OrderItemRequest) RequestedPrice() (decimal.Decimal, bool) {
	if r.UnitPrice == nil && r.Price == nil {
		return decimal.Zero, false
	}
	return firstAmount(r.UnitPrice, r.Price), true
}

// UpdateOrderItemsRequest replaces the line items of an order.
type UpdateOrderItemsRequest struct {
	Items         []OrderItemRequest `json:"items"`
	ShippingTotal *decimal.Decimal   `json:"shippingTotal,omitempty"`
	ShippingCost  *decimal.Decimal   `json:"shippingCost,omitempty"`
}

// Shipping returns the new shipping amount and whether one was sent.
func (r UpdateOrderItemsRequest) Shipping() (decimal.Decimal, bool) {
	if r.ShippingTotal == nil && r.ShippingCost == nil {
		return decimal.Zero, false
	}
	return firstAmount(r.ShippingTotal, r.ShippingCost), true
}

// UpdateOrderStatusRequest changes the status and/or payment status of an order.
type UpdateOrderStatusRequest struct {
	Status        OrderStatus   `json:"status,omitempty"`
	PaymentStatus PaymentStatus `json:"paymentStatus,omitempty"`
	Description   string        `json:"description,omitempty"`
	Location      string        `json:"location,omitempty"`
}

// ListOrdersFilter narrows order listings.
type ListOrdersFilter struct {
	CustomerID string
	Limit      int
	Offset     int
}

func firstAmount(values ...*decimal.Decimal) decimal.Decimal {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return decimal.Zero
}
