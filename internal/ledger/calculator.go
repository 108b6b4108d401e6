// Package ledger derives order and return totals, lifecycle timestamps and
// identifiers. Every function here is pure: callers apply the result to the
// record inside whatever transaction they hold.
package ledger

import (
	"github.com/shopspring/decimal"

	"storefront/internal/model"
)

// MoneyPrecision is the number of decimal places amounts are rounded to.
const MoneyPrecision int32 = 2

// Policy carries the inputs of a recomputation that are not part of the record.
type Policy struct {
	TaxRate   decimal.Decimal
	Precision int32
}

// DefaultPolicy returns a 21% tax rate with cent precision.
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:   decimal.RequireFromString("0.21"),
		Precision: MoneyPrecision,
	}
}

// WithTaxRate returns a copy of p using rate.
func (p Policy) WithTaxRate(rate decimal.Decimal) Policy {
	p.TaxRate = rate
	return p
}

// Totals is the derived money summary of an order.
type Totals struct {
	LineSubtotals []decimal.Decimal
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	ShippingTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	Total         decimal.Decimal
}

// OrderTotals computes the totals of items with the given shipping amount.
// Each line is rounded before summing and tax is rounded once, so
// Total equals Subtotal - DiscountTotal + ShippingTotal + TaxTotal exactly.
func OrderTotals(items []model.OrderLineItem, shipping decimal.Decimal, policy Policy) Totals {
	t := Totals{
		LineSubtotals: make([]decimal.Decimal, len(items)),
		Subtotal:      decimal.Zero,
		DiscountTotal: decimal.Zero,
	}

	for i, item := range items {
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(policy.Precision)
		t.LineSubtotals[i] = line
		t.Subtotal = t.Subtotal.Add(line)
		t.DiscountTotal = t.DiscountTotal.Add(item.Discount)
	}

	t.DiscountTotal = t.DiscountTotal.Round(policy.Precision)
	t.ShippingTotal = shipping.Round(policy.Precision)

	taxable := t.Subtotal.Sub(t.DiscountTotal).Add(t.ShippingTotal)
	t.TaxTotal = taxable.Mul(policy.TaxRate).Round(policy.Precision)
	t.Total = taxable.Add(t.TaxTotal)

	return t
}

// RecomputeOrder returns a copy of order with every derived amount
// overwritten from its items. Client supplied totals are discarded.
func RecomputeOrder(order model.Order, policy Policy) model.Order {
	t := OrderTotals(order.Items, order.ShippingTotal, policy)

	items := make([]model.OrderLineItem, len(order.Items))
	copy(items, order.Items)
	for i := range items {
		items[i].LineSubtotal = t.LineSubtotals[i]
	}

	order.Items = items
	order.Subtotal = t.Subtotal
	order.DiscountTotal = t.DiscountTotal
	order.ShippingTotal = t.ShippingTotal
	order.TaxTotal = t.TaxTotal
	order.Total = t.Total
	order.TaxRate = policy.TaxRate

	return order
}

// ReturnValue sums unit price times quantity returning over items.
func ReturnValue(items []model.ReturnItem, precision int32) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.QuantityReturning))))
	}
	return sum.Round(precision)
}

// RecomputeReturn returns a copy of ret with ReturnValue derived from its
// items. RefundAmount is left as is.
func RecomputeReturn(ret model.Return) model.Return {
	ret.ReturnValue = ReturnValue(ret.Items, MoneyPrecision)
	return ret
}
