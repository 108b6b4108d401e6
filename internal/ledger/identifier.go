package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"storefront/internal/model"
)

// DefaultMaxAttempts bounds identifier generation when no limit is configured.
const DefaultMaxAttempts = 5

// IdentifierGenerator produces human readable order and RMA numbers.
// Uniqueness is not guaranteed; the store's unique constraint is the
// authority and GenerateUnique retries on collision.
type IdentifierGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	rand *rand.Rand
}

// NewIdentifierGenerator creates a generator seeded from the runtime source.
func NewIdentifierGenerator() *IdentifierGenerator {
	return NewIdentifierGeneratorWith(time.Now, rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewIdentifierGeneratorWith creates a generator with an explicit clock and
// random source.
func NewIdentifierGeneratorWith(now func() time.Time, src rand.Source) *IdentifierGenerator {
	return &IdentifierGenerator{
		now:  now,
		rand: rand.New(src),
	}
}

// OrderNumber returns an identifier of the form ORD-YYYYMMDD-NNNNN.
func (g *IdentifierGenerator) OrderNumber() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("ORD-%s-%05d", g.now().UTC().Format("20060102"), g.rand.IntN(100000))
}

// RMANumber returns an identifier of the form RMA-YYYY-NNN.
func (g *IdentifierGenerator) RMANumber() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("RMA-%04d-%03d", g.now().UTC().Year(), g.rand.IntN(1000))
}

// CollisionFunc is notified of every identifier that was already taken.
type CollisionFunc func(attempt int, identifier string)

// GenerateUnique calls next for a fresh identifier and hands it to insert,
// retrying with a new identifier while insert reports a duplicate. It gives
// up after maxAttempts collisions. Any other error from insert is returned
// immediately.
func GenerateUnique(
	ctx context.Context,
	maxAttempts int,
	next func() string,
	insert func(ctx context.Context, identifier string) error,
	onCollision CollisionFunc,
) (string, error) {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		id := next()
		err := insert(ctx, id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, model.ErrDuplicateIdentifier) {
			return "", err
		}

		lastErr = err
		if onCollision != nil {
			onCollision(attempt, id)
		}
	}

	return "", fmt.Errorf("identifier still colliding after %d attempts: %w", maxAttempts, lastErr)
}
