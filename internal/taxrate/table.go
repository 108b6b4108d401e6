package taxrate

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// mapTable implements Table using a map keyed by upper-case jurisdiction code.
type mapTable struct {
	rates map[string]decimal.Decimal
}

// newMapTable creates an empty table.
func newMapTable(capacity int) *mapTable {
	return &mapTable{
		rates: make(map[string]decimal.Decimal, capacity),
	}
}

// Lookup returns the rate for jurisdiction. Codes are case-insensitive.
func (t *mapTable) Lookup(jurisdiction string) (decimal.Decimal, bool) {
	rate, ok := t.rates[normalise(jurisdiction)]
	return rate, ok
}

// Size returns the number of jurisdictions in the table.
func (t *mapTable) Size() int {
	return len(t.rates)
}

// Range calls fn for every entry of the table.
func (t *mapTable) Range(fn func(jurisdiction string, rate decimal.Decimal)) {
	for code, rate := range t.rates {
		fn(code, rate)
	}
}

// Set stores the rate for jurisdiction, replacing any previous value.
func (t *mapTable) Set(jurisdiction string, rate decimal.Decimal) {
	t.rates[normalise(jurisdiction)] = rate
}

func normalise(jurisdiction string) string {
	return strings.ToUpper(strings.TrimSpace(jurisdiction))
}

// readTable decompresses r and parses one JURISDICTION,RATE pair per line.
// Blank lines and lines starting with # are skipped. Rates must lie in [0,1).
func readTable(ctx context.Context, r io.Reader, source string) (*mapTable, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	table := newMapTable(256)

	scanner := bufio.NewScanner(gzipReader)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%10_000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		code, value, found := strings.Cut(line, ",")
		if !found || strings.TrimSpace(code) == "" {
			return nil, fmt.Errorf("%s:%d: expected JURISDICTION,RATE", source, lineNo)
		}

		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid rate %q: %w", source, lineNo, value, err)
		}
		if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("%s:%d: rate %s out of range [0,1)", source, lineNo, rate)
		}

		table.Set(code, rate)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading tax rate table %s: %w", source, err)
	}

	return table, nil
}
