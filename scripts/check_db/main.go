package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
)

// Connects with the service configuration and reports the schema version
// and row counts of the ledger tables.
func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	var dbName string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully connected to database: %s\n", dbName)

	version, dirty, ok, err := database.SchemaVersion(cfg.Database.ConnectionString(), logger)
	switch {
	case err != nil:
		fmt.Fprintf(os.Stderr, "Unable to read schema version: %v\n", err)
		os.Exit(1)
	case !ok:
		fmt.Println("Schema: not migrated")
		return
	default:
		fmt.Printf("Schema: version %d (dirty=%t)\n", version, dirty)
	}

	fmt.Println("\nRows:")
	for _, table := range []string{"products", "orders", "returns", "outbox"} {
		var n int64
		if err := pool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
			fmt.Fprintf(os.Stderr, "Count %s failed: %v\n", table, err)
			os.Exit(1)
		}
		fmt.Printf("  - %-14s %d\n", table, n)
	}
}
