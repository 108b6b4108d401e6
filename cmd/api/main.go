package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/taxrate"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.ConnectionString(), logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	m := metrics.New()

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	returnRepo := repository.NewReturnRepository(pool, logger)
	outboxRepo := repository.NewOutboxRepository(pool, logger)

	rates, err := newTaxRates(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rates.Close()

	var (
		recorder = events.NopRecorder()
		workers  sync.WaitGroup
	)
	if cfg.Kafka.Enabled {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize event publisher: %w", err)
		}
		defer publisher.Close()

		recorder = events.NewOutboxRecorder(outboxRepo, cfg.Kafka.TopicPrefix)
		processor := events.NewOutboxProcessor(outboxRepo, publisher, m, cfg.Kafka.OutboxBatchSize, cfg.Kafka.OutboxInterval, logger)

		workers.Add(1)
		go func() {
			defer workers.Done()
			processor.Start(ctx)
		}()
	} else {
		logger.Info().Msg("event publishing disabled, lifecycle events are not recorded")
	}
	// Stop the outbox processor before the publisher and pool close.
	defer workers.Wait()
	defer cancel()

	// Initialize services
	deps := service.Dependencies{
		Orders:                   orderRepo,
		Returns:                  returnRepo,
		Products:                 productRepo,
		TaxRates:                 rates,
		Events:                   recorder,
		Metrics:                  m,
		Currency:                 cfg.Ledger.Currency,
		IdentifierMaxAttempts:    cfg.Ledger.IdentifierMaxAttempts,
		EnforceReturnTransitions: cfg.Ledger.EnforceReturnTransitions,
	}

	productService := service.NewProductService(productRepo, logger)
	orderService := service.NewOrderService(deps, logger)
	returnService := service.NewReturnService(deps, logger)

	if cfg.Redis.Enabled {
		c, err := cache.NewRedisCache(ctx, cfg.Redis, "storefront", logger)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, serving orders without cache")
		} else {
			defer c.Close()
			orderService = service.NewCachedOrderService(orderService, c, cfg.Redis.TTL, logger)
		}
	}

	// Initialize HTTP handlers and router
	mux := router.New(router.Handlers{
		Products: handler.NewProductHandler(productService, logger),
		Orders:   handler.NewOrderHandler(orderService, logger),
		Returns:  handler.NewReturnHandler(returnService, logger),
	}, m, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  4 * cfg.Server.ReadTimeout,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newTaxRates loads the configured jurisdiction tables, from S3 when enabled
// with the local file system as fallback. Without tables the configured
// default rate applies everywhere.
func newTaxRates(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (taxrate.Resolver, error) {
	defaultRate := cfg.Ledger.DefaultTaxRate()
	if len(cfg.TaxRates.Files) == 0 {
		logger.Info().Str("rate", defaultRate.String()).Msg("no tax rate tables configured, using default rate")
		return taxrate.NewStaticResolver(defaultRate), nil
	}

	fileLoader := taxrate.NewFileLoader(logger)
	var remote taxrate.Loader
	if cfg.S3.Enabled {
		s3Loader, err := taxrate.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			remote = s3Loader
		}
	}

	loader := taxrate.NewFallbackLoader(remote, fileLoader, cfg.S3.Prefix, remote != nil, logger)
	rates, err := taxrate.NewResolver(ctx, taxrate.ResolverConfig{
		FilePaths:   cfg.TaxRates.Files,
		DefaultRate: defaultRate,
	}, loader, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load tax rate tables: %w", err)
	}
	return rates, nil
}
