package taxrate

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for reading gzipped tables from the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based tax rate loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "taxrate-loader").Logger(),
	}
}

// Load reads a gzipped rate table from filePath.
func (l *fileLoader) Load(ctx context.Context, filePath string) (Table, error) {
	l.logger.Info().Str("file", filePath).Msg("loading tax rate table")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open tax rate table")
		return nil, fmt.Errorf("failed to open tax rate table %s: %w", filePath, err)
	}
	defer file.Close()

	table, err := readTable(ctx, file, filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to read tax rate table")
		return nil, err
	}

	l.logger.Info().
		Str("file", filePath).
		Int("jurisdictions_loaded", table.Size()).
		Msg("tax rate table loaded successfully")

	return table, nil
}
