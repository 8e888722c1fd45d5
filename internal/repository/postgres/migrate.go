package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/maxviazov/module-progress-console/internal/repository"
	"github.com/maxviazov/module-progress-console/migrations"
)

// Migrate brings the schema up to the latest embedded goose migration.
// Already applied versions are skipped, so it is safe on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	if err := ensurePool(pool); err != nil {
		return err
	}
	// closing db leaves the pool open
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS())
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return repository.Unavailable(fmt.Errorf("goose up: %w", err))
	}
	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return repository.Unavailable(fmt.Errorf("goose version: %w", err))
	}
	logger.Info().Int("applied", len(results)).Int64("version", version).Msg("postgres schema migrated")
	return nil
}
