package ch

import (
	"database/sql"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pressly/goose/v3"
)

// OpenDB opens a database/sql handle, which goose needs to run migrations
func OpenDB(options *clickhouse.Options) *sql.DB {
	return clickhouse.OpenDB(options)
}

// NewMigrationProvider returns a goose provider for the book_events schema
func NewMigrationProvider(db *sql.DB) (*goose.Provider, error) {
	provider, err := goose.NewProvider(goose.DialectClickHouse, db, Migrations())
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}
