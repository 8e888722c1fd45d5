package server

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/maxviazov/module-progress-console/internal/config"
	"github.com/maxviazov/module-progress-console/internal/model"
	"github.com/maxviazov/module-progress-console/internal/repository"
	"github.com/maxviazov/module-progress-console/internal/repository/filestore"
	"github.com/maxviazov/module-progress-console/internal/repository/postgres"
	"github.com/maxviazov/module-progress-console/internal/repository/redisstore"
)

// Backend is the storage selected by data.driver.
type Backend struct {
	Courses repository.CourseRepository
	Tx      repository.TxManager
	close   func()
}

// Close releases connections held by the backend.
func (b *Backend) Close() {
	if b != nil && b.close != nil {
		b.close()
	}
}

// OpenBackend connects the configured storage driver.
func OpenBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Backend, error) {
	switch cfg.Data.Driver {
	case config.DriverFile:
		store, err := filestore.Open(filestore.Options{
			Path:     cfg.Data.File.Path,
			Resource: model.ResourceCourses,
			Watch:    cfg.Data.File.Watch,
			Persist:  cfg.Data.File.Persist,
		}, logger)
		if err != nil {
			return nil, err
		}
		return &Backend{Courses: store, Tx: repository.NopTxManager{}}, nil

	case config.DriverPostgres:
		pg, err := repository.New(ctx, cfg, &logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.AutoMigrate {
			if err := postgres.Migrate(ctx, pg.Pool(), logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &Backend{
			Courses: postgres.NewCourseRepository(pg.Pool()),
			Tx:      postgres.NewTxManager(pg.Pool()),
			close:   pg.Close,
		}, nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := redisstore.New(client, cfg.Redis.Prefix, logger)
		if err := store.Ping(ctx); err != nil {
			// start anyway; readiness reports it until redis is back
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis not reachable at startup")
		}
		return &Backend{
			Courses: store,
			Tx:      repository.NopTxManager{},
			close:   func() { _ = client.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown data driver %q", cfg.Data.Driver)
}
