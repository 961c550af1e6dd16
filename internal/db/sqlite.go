package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "modernc.org/sqlite"
)

// sqlitePragmas are applied to every connection opened by the pool.
var sqlitePragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
}

// NewSQLiteDB opens the SQLite database at path. The path may be a plain file
// name, ":memory:" or an existing "file:" URI.
func NewSQLiteDB(ctx context.Context, path string) (*SQLDB, error) {
	conn, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// A single writer keeps SQLite from returning SQLITE_BUSY under load and
	// lets in-memory databases survive across queries.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to sqlite database: %w", err)
	}

	return newSQLDB(conn, DialectSQLite), nil
}

func sqliteDSN(path string) string {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	params := make([]string, 0, len(sqlitePragmas))
	for _, p := range sqlitePragmas {
		params = append(params, "_pragma="+url.QueryEscape(p))
	}
	return dsn + sep + strings.Join(params, "&")
}
