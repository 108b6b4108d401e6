package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalogue product that order lines snapshot from.
type Product struct {
	ID           string          `json:"id" db:"id"`
	Title        string          `json:"title" db:"title"`
	SKU          string          `json:"sku" db:"sku"`
	EAN          string          `json:"ean,omitempty" db:"ean"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Category     string          `json:"category" db:"category"`
	IsReturnable bool            `json:"isReturnable" db:"is_returnable"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
}

// RefID implements Identifiable.
func (p Product) RefID() string {
	return p.ID
}
