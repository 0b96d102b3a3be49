package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Database wraps a configured GORM handle. It is a thin value type so it
// can be passed around and embedded without pointer-nil checks.
type Database struct {
	db *gorm.DB
}

// NewDatabase opens a connection using the default GORM configuration,
// which includes GORM's own default logger.
func NewDatabase(ctx context.Context, url string) (Database, error) {
	return NewDatabaseWithConfig(ctx, url, &gorm.Config{})
}

// NewDatabaseWithConfig opens a connection, picking the dialector from the
// URL scheme: "sqlite://" (including ":memory:") or "postgres://" /
// "postgresql://".
func NewDatabaseWithConfig(ctx context.Context, url string, config *gorm.Config) (Database, error) {
	dialector, err := parseDialector(url)
	if err != nil {
		return Database{}, fmt.Errorf("parse database url: %w", err)
	}
	gdb, err := gorm.Open(dialector, config)
	if err != nil {
		return Database{}, fmt.Errorf("open database: %w", err)
	}
	return Database{db: gdb}, nil
}

// GORM exposes the underlying *gorm.DB for callers that need raw query
// building beyond the Repository abstraction.
func (d Database) GORM() *gorm.DB {
	return d.db
}

// Session returns a *gorm.DB bound to ctx, for use in a single request or
// transaction scope.
func (d Database) Session(ctx context.Context) *gorm.DB {
	return d.db.WithContext(ctx)
}

func (d Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d Database) ConfigurePool(maxOpen, maxIdle int, maxLifetime time.Duration) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(maxLifetime)
	return nil
}

func (d Database) IsPostgres() bool {
	return d.db.Dialector.Name() == "postgres"
}

func (d Database) IsSQLite() bool {
	return d.db.Dialector.Name() == "sqlite"
}

func parseDialector(url string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(url, "sqlite://")), nil
	case url == ":memory:" || strings.HasPrefix(url, "file:"):
		return sqlite.Open(url), nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.Open(url), nil
	default:
		return nil, errors.New("unsupported database driver")
	}
}
