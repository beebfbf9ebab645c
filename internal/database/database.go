// Package database provides GORM-backed persistence helpers.
package database

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Database wraps a GORM connection with dialect awareness.
type Database struct {
	gdb      *gorm.DB
	postgres bool
}

// NewDatabase opens a database connection from a URL.
// Supported schemes: sqlite://path (or sqlite://:memory:),
// postgresql://... and postgres://...
func NewDatabase(ctx context.Context, url string) (Database, error) {
	cfg := &gorm.Config{Logger: slogGormLogger{}}

	switch {
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		gdb, err := gorm.Open(sqlite.Open(path), cfg)
		if err != nil {
			return Database{}, fmt.Errorf("open sqlite database: %w", err)
		}
		// SQLite allows one writer; a single pooled connection serializes
		// access instead of surfacing SQLITE_BUSY to concurrent workers
		// (and keeps :memory: from opening a fresh database per connection).
		sqlDB, err := gdb.DB()
		if err != nil {
			return Database{}, fmt.Errorf("open sqlite database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		return Database{gdb: gdb}, nil

	case strings.HasPrefix(url, "postgresql://"), strings.HasPrefix(url, "postgres://"):
		gdb, err := gorm.Open(postgres.Open(url), cfg)
		if err != nil {
			return Database{}, fmt.Errorf("open postgres database: %w", err)
		}
		return Database{gdb: gdb, postgres: true}, nil

	default:
		return Database{}, fmt.Errorf("unsupported database URL: %s", url)
	}
}

// GORM returns the underlying GORM handle.
func (d Database) GORM() *gorm.DB {
	return d.gdb
}

// Session returns a context-scoped GORM session.
func (d Database) Session(ctx context.Context) *gorm.DB {
	return d.gdb.WithContext(ctx)
}

// IsPostgres reports whether the connection targets PostgreSQL.
func (d Database) IsPostgres() bool {
	return d.postgres
}

// Close closes the underlying connection pool.
func (d Database) Close() error {
	sqlDB, err := d.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
