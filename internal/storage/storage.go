// Package storage persists hands, per-player stat rows and the HUD cache
// in SQLite (the default) or PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrDuplicateHand is returned when a hand with the same site, hand
	// number and game type is already stored.
	ErrDuplicateHand = errors.New("hand already stored")
	ErrNotFound      = errors.New("not found")
)

// DB wraps a sql.DB for the hand store.
type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// Open opens the store named by target: a postgres:// URL selects
// PostgreSQL, anything else is a SQLite path (":memory:" included).
func Open(target string) (*DB, error) {
	if isPostgresURL(target) {
		return openPostgres(target)
	}
	return openSQLite(target)
}

func isPostgresURL(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

func openSQLite(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps :memory: databases shared and makes SQLite
	// writers queue in Go instead of failing with SQLITE_BUSY.
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{conn: conn, dialect: sqliteDialect{}}, nil
}

func openPostgres(url string) (*DB, error) {
	cfg, err := pgx.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	conn := stdlib.OpenDB(*cfg)
	if err := migrateUp(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn, dialect: postgresDialect{}}, nil
}

// migrateUp applies the embedded PostgreSQL migrations.
func migrateUp(conn *sql.DB) error {
	driver, err := postgres.WithInstance(conn, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migrate source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Dialect returns the backend's SQL dialect.
func (db *DB) Dialect() Dialect { return db.dialect }

func (db *DB) q() *query { return newQuery(db.dialect) }

// inTx runs fn in a transaction, committing when it returns nil.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return wrapConflict(err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return wrapConflict(err)
	}
	return wrapConflict(tx.Commit())
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
