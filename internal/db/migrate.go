package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Migrate applies every pending schema migration for the database dialect.
func (d *SQLDB) Migrate(ctx context.Context) error {
	var (
		dialect database.Dialect
		dir     string
	)
	switch d.dialect {
	case DialectSQLite:
		dialect, dir = database.DialectSQLite3, "migrations/sqlite"
	case DialectPostgres:
		dialect, dir = database.DialectPostgres, "migrations/postgres"
	default:
		return fmt.Errorf("no migrations for dialect %q", d.dialect)
	}

	sub, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	provider, err := goose.NewProvider(dialect, d.conn, sub)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	for _, r := range results {
		d.logger.Info("applied migration", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// Open connects to the configured driver and brings the schema up to date.
func Open(ctx context.Context, driver, dsn string) (*SQLDB, error) {
	var (
		d   *SQLDB
		err error
	)
	switch Dialect(driver) {
	case DialectSQLite:
		d, err = NewSQLiteDB(ctx, dsn)
	case DialectPostgres:
		d, err = NewPostgresDB(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := d.Migrate(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}
