// Package taxrate resolves the tax rate that applies to an order from
// gzipped jurisdiction tables stored locally or in S3.
package taxrate

import (
	"context"

	"github.com/shopspring/decimal"
)

// Resolver returns the tax rate for a jurisdiction.
type Resolver interface {
	// Rate returns the table rate for jurisdiction, or the default rate when
	// no table lists it.
	Rate(jurisdiction string) decimal.Decimal

	// Close releases the loaded tables.
	Close() error
}

// Table is a set of jurisdiction rates loaded from one file.
type Table interface {
	// Lookup returns the rate for jurisdiction and whether the table lists it.
	Lookup(jurisdiction string) (decimal.Decimal, bool)

	// Size returns the number of jurisdictions in the table.
	Size() int

	// Range calls fn for every entry of the table.
	Range(fn func(jurisdiction string, rate decimal.Decimal))
}

// Loader defines the interface for loading tax rate tables.
type Loader interface {
	// Load reads a gzipped rate table and returns its entries.
	Load(ctx context.Context, path string) (Table, error)
}
