package taxrate

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ResolverConfig holds configuration for the tax rate resolver.
type ResolverConfig struct {
	// FilePaths lists the tables to load. Later tables override earlier ones.
	FilePaths []string

	// DefaultRate applies to jurisdictions no table lists.
	DefaultRate decimal.Decimal
}

// resolver implements Resolver over a merged, read-only rate table.
type resolver struct {
	mu          sync.RWMutex
	rates       *mapTable
	defaultRate decimal.Decimal
	logger      zerolog.Logger
}

// NewStaticResolver returns a resolver that applies rate everywhere.
func NewStaticResolver(rate decimal.Decimal) Resolver {
	return &resolver{
		rates:       newMapTable(0),
		defaultRate: rate,
		logger:      zerolog.Nop(),
	}
}

// NewResolver loads every configured table concurrently and merges them in
// configuration order. Any table failing to load fails the resolver.
func NewResolver(ctx context.Context, cfg ResolverConfig, loader Loader, logger zerolog.Logger) (Resolver, error) {
	logger = logger.With().Str("component", "taxrate-resolver").Logger()

	logger.Info().
		Int("file_count", len(cfg.FilePaths)).
		Str("default_rate", cfg.DefaultRate.String()).
		Msg("initialising tax rate resolver")

	type loadResult struct {
		index int
		table Table
		err   error
	}

	resultChan := make(chan loadResult, len(cfg.FilePaths))
	var wg sync.WaitGroup

	for i, filePath := range cfg.FilePaths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()

			table, err := loader.Load(ctx, path)
			resultChan <- loadResult{index: index, table: table, err: err}
		}(i, filePath)
	}

	wg.Wait()
	close(resultChan)

	results := make([]loadResult, len(cfg.FilePaths))
	for result := range resultChan {
		results[result.index] = result
	}

	merged := newMapTable(256)
	for i, result := range results {
		if result.err != nil {
			logger.Error().
				Err(result.err).
				Str("file", cfg.FilePaths[i]).
				Msg("failed to load tax rate table")
			return nil, fmt.Errorf("failed to load tax rate table %s: %w", cfg.FilePaths[i], result.err)
		}

		result.table.Range(merged.Set)
	}

	logger.Info().
		Int("jurisdictions", merged.Size()).
		Msg("tax rate resolver initialised successfully")

	return &resolver{
		rates:       merged,
		defaultRate: cfg.DefaultRate,
		logger:      logger,
	}, nil
}

// Rate returns the table rate for jurisdiction, or the default rate.
func (r *resolver) Rate(jurisdiction string) decimal.Decimal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.rates != nil {
		if rate, ok := r.rates.Lookup(jurisdiction); ok {
			return rate
		}
	}

	r.logger.Debug().
		Str("jurisdiction", jurisdiction).
		Msg("no table rate, using default")

	return r.defaultRate
}

// Close releases the loaded tables. Later lookups return the default rate.
func (r *resolver) Close() error {
	r.mu.Lock()
	r.rates = nil
	r.mu.Unlock()

	r.logger.Info().Msg("tax rate resolver closed")

	return nil
}
