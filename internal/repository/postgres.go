package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/maxviazov/module-progress-console/internal/config"
	"github.com/rs/zerolog"
)

// Repository owns the pgx connection pool shared by the postgres backend.
type Repository struct {
	pool *pgxpool.Pool
}

// startupPingTimeout bounds the connectivity check in New.
const startupPingTimeout = 5 * time.Second

// New connects a pgx pool for the postgres course backend and checks it answers.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Repository, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("postgres: config and logger are required")
	}
	poolCfg, err := PoolConfig(cfg.Postgres, *logger)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, Unavailable(fmt.Errorf("postgres pool: %w", err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, Unavailable(fmt.Errorf("postgres ping: %w", err))
	}

	logger.Info().
		Str("addr", poolCfg.ConnConfig.Host).
		Uint16("port", poolCfg.ConnConfig.Port).
		Str("db", poolCfg.ConnConfig.Database).
		Int32("max_conns", poolCfg.MaxConns).
		Msg("postgres pool ready")
	return &Repository{pool: pool}, nil
}

// PoolConfig turns the postgres section into a pgxpool config with
// tracing routed to logger. Durations in pg are seconds; zero keeps pgx defaults.
func PoolConfig(pg config.PostgresConfig, logger zerolog.Logger) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(DSN(pg))
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	poolCfg.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   newPgxLogger(logger),
		LogLevel: traceLevel(logger.GetLevel()),
	}

	if pg.MaxConns > 0 {
		poolCfg.MaxConns = pg.MaxConns
	}
	poolCfg.MinConns = pg.MinConns
	seconds := func(n int, dst *time.Duration) {
		if n > 0 {
			*dst = time.Duration(n) * time.Second
		}
	}
	seconds(pg.MaxConnLifetime, &poolCfg.MaxConnLifetime)
	seconds(pg.MaxConnIdleTime, &poolCfg.MaxConnIdleTime)
	seconds(pg.HealthCheckPeriod, &poolCfg.HealthCheckPeriod)
	return poolCfg, nil
}

// traceLevel picks the pgx trace level matching the logger's verbosity.
func traceLevel(l zerolog.Level) tracelog.LogLevel {
	switch {
	case l <= zerolog.TraceLevel:
		return tracelog.LogLevelTrace
	case l == zerolog.DebugLevel:
		return tracelog.LogLevelDebug
	case l == zerolog.InfoLevel:
		return tracelog.LogLevelInfo
	case l == zerolog.WarnLevel:
		return tracelog.LogLevelWarn
	default:
		return tracelog.LogLevelError
	}
}

// DSN renders a postgres connection URL from config.
func DSN(pg config.PostgresConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", pg.Host, pg.Port),
		Path:   pg.DBName,
	}
	if pg.User != "" || pg.Password != "" {
		u.User = url.UserPassword(pg.User, pg.Password)
	}
	q := u.Query()
	if pg.SSLMode != "" {
		q.Set("sslmode", pg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Pool exposes the underlying pool to concrete repositories.
func (r *Repository) Pool() *pgxpool.Pool { return r.pool }

// Close releases every pooled connection.
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}
