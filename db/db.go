// Package db provides database connectivity and migration functionality for tvitter.
// It establishes the pgx connection pool, enables the PostgreSQL extensions the
// schema relies on and applies the embedded schema migrations.
package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	// Registers the "postgres" database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	// database/sql driver used by migrate's postgres driver.
	_ "github.com/lib/pq"

	"github.com/user/tvitter-go/apperror"
	"github.com/user/tvitter-go/config"
	"github.com/user/tvitter-go/logging"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DBTX is the subset of *pgxpool.Pool the repositories use.
// Both the pool and pgxmock's pool satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Extensions lists the PostgreSQL extensions the schema needs.
// pg_trgm backs the substring search indexes on users and messages.
var Extensions = []string{"pg_trgm"}

// NewDBPool establishes the application's connection pool.
func NewDBPool(cfg *config.PoolConfig) (*pgxpool.Pool, error) {
	pool, err := createPgxPool(cfg)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to create application pool", err)
	}
	return pool, nil
}

func createPgxPool(cfg *config.PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(getDSN(cfg))
	if err != nil {
		return nil, apperror.NewDatabaseError(fmt.Sprintf("error parsing DSN for database %s", cfg.DBName), err)
	}

	poolConfig.MaxConns = int32(cfg.MaxSize)
	poolConfig.MaxConnIdleTime = 10 * time.Minute
	poolConfig.MaxConnLifetime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, apperror.NewDatabaseError(fmt.Sprintf("error creating pgxpool for database %s", cfg.DBName), err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, apperror.NewDatabaseError(fmt.Sprintf("error connecting to the database %s with pgxpool", cfg.DBName), err)
	}

	return pool, nil
}

// getDSN builds a URL-style DSN understood by both pgx and golang-migrate.
func getDSN(cfg *config.PoolConfig) string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.DBName,
		RawQuery: "sslmode=disable",
	}
	return dsn.String()
}

// EnableExtensions creates every extension in Extensions if it is missing.
func EnableExtensions(ctx context.Context, conn DBTX) error {
	for _, ext := range Extensions {
		query := fmt.Sprintf("CREATE EXTENSION IF NOT EXISTS %s", ext)

		execCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := conn.Exec(execCtx, query)
		cancel()
		if err != nil {
			return apperror.NewDatabaseError(fmt.Sprintf("failed to create extension %s", ext), err)
		}
	}
	return nil
}

// RunMigrations applies pending migrations embedded under migrations/.
// Files follow golang-migrate's {version}_{title}.{up|down}.sql naming.
func RunMigrations(cfg *config.PoolConfig, log logging.Logger) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return apperror.NewMigrationError("failed to open embedded migrations", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, getDSN(cfg))
	if err != nil {
		return apperror.NewMigrationError("failed to create migrator", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn(context.Background(), "error closing migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return apperror.NewMigrationError("failed to run migrations", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return apperror.NewMigrationError("failed to read schema version", err)
	}
	log.Info(context.Background(), "database schema is up to date", "version", version, "dirty", dirty)

	return nil
}
