// Package db is the loader: PostgreSQL access for questions, deputes and
// ministeres.
//
// This package contains:
//   - DB: pgx connection pool shared with database/sql through pgx/stdlib
//   - Idempotent batch upserts built with squirrel
//   - The response point update and the maintenance pass
//   - Migration support via goose
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/lueurxax/assembly-questions-etl/internal/platform/config"
	"github.com/lueurxax/assembly-questions-etl/migrations"
)

// DB wraps a PostgreSQL connection pool. SQL is a database/sql view over the
// same pool; statements acquire a connection and release it immediately.
type DB struct {
	Pool   *pgxpool.Pool
	SQL    *sql.DB
	Logger *zerolog.Logger
}

// PoolOptions configures the database connection pool.
type PoolOptions struct {
	MaxConns          int32
	MinConns          int32
	MaxConnIdleTime   time.Duration
	MaxConnLifetime   time.Duration
	HealthCheckPeriod time.Duration
}

// DefaultPoolOptions returns the pool bounds used when nothing is configured.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:          defaultMaxConns,
		MinConns:          defaultMinConns,
		MaxConnIdleTime:   defaultMaxConnIdleTime,
		MaxConnLifetime:   defaultMaxConnLifetime,
		HealthCheckPeriod: defaultHealthCheckPeriod,
	}
}

// PoolOptionsFromConfig maps the database section of the configuration.
func PoolOptionsFromConfig(cfg config.DatabaseConfig) PoolOptions {
	return PoolOptions{
		MaxConns:          cfg.MaxConnections,
		MinConns:          cfg.MinConnections,
		MaxConnIdleTime:   cfg.MaxConnIdleTime,
		MaxConnLifetime:   cfg.MaxConnLifetime,
		HealthCheckPeriod: cfg.HealthCheckPeriod,
	}
}

// New creates a new database connection with default pool options.
func New(ctx context.Context, dsn string, logger *zerolog.Logger) (*DB, error) {
	return NewWithOptions(ctx, dsn, DefaultPoolOptions(), logger)
}

// NewWithOptions creates a new database connection with custom pool options.
func NewWithOptions(ctx context.Context, dsn string, opts PoolOptions, logger *zerolog.Logger) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	applyPoolOptions(cfg, opts)

	return connectWithRetries(ctx, cfg, logger)
}

// applyPoolOptions applies non-zero pool options to the config.
func applyPoolOptions(cfg *pgxpool.Config, opts PoolOptions) {
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}

	if cfg.MinConns > cfg.MaxConns {
		cfg.MinConns = cfg.MaxConns
	}

	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}

	if opts.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = opts.HealthCheckPeriod
	}
}

// connectWithRetries attempts to connect to the database with retries.
func connectWithRetries(ctx context.Context, cfg *pgxpool.Config, logger *zerolog.Logger) (*DB, error) {
	var pool *pgxpool.Pool

	var err error

	for i := 0; i < maxConnectionRetries; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return &DB{Pool: pool, SQL: stdlib.OpenDBFromPool(pool), Logger: logger}, nil
			}
		}

		if pool != nil {
			pool.Close()
		}

		logger.Warn().Err(err).Int("attempt", i+1).Msg("database not reachable yet")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to database: %w", ctx.Err())
		case <-time.After(ConnectionRetrySleep):
		}
	}

	return nil, fmt.Errorf("failed to connect to database after retries: %w", err)
}

// Ping checks that a connection can be acquired.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.SQL.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	return nil
}

// Close releases the database/sql handle and then the pool.
func (db *DB) Close() {
	if db.SQL != nil {
		_ = db.SQL.Close()
	}

	if db.Pool != nil {
		db.Pool.Close()
	}
}

const migrationLockID = 1000

type gooseLogger struct {
	logger *zerolog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal().Msgf(format, v...)
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info().Msgf(format, v...)
}

// Migrate runs database migrations using goose.
// It acquires an advisory lock to ensure only one migration runs at a time
// across multiple instances.
func (db *DB) Migrate(ctx context.Context) error {
	conn, err := db.SQL.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}

	defer func() {
		_ = conn.Close()
	}()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	defer func() {
		//nolint:errcheck // advisory unlock in defer is best-effort, lock released on connection close anyway
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", migrationLockID)
	}()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&gooseLogger{logger: db.Logger})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db.SQL, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Helpers

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// SanitizeUTF8 removes invalid UTF-8 sequences and NUL bytes, which
// PostgreSQL rejects in text columns.
func SanitizeUTF8(s string) string {
	if s == "" {
		return s
	}

	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	return strings.ReplaceAll(s, "\x00", "")
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}

	v := SanitizeUTF8(*s)

	return &v
}

func sanitizeAll(in []string) []string {
	if in == nil {
		return nil
	}

	out := make([]string, len(in))
	for i, s := range in {
		out[i] = SanitizeUTF8(s)
	}

	return out
}

// dateOnly truncates to the calendar date the DATE columns store.
func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	return &d
}
