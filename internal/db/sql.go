package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/plipowczan/google-file-search-agent/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect selects placeholder syntax and migrations for a driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// timeLayout is fixed width so that text ordering equals time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLDB implements DB on top of database/sql for both supported dialects.
type SQLDB struct {
	*repo
	conn    *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

var _ DB = (*SQLDB)(nil)

func newSQLDB(conn *sql.DB, dialect Dialect) *SQLDB {
	logger := slog.Default().With("component", "db", "dialect", string(dialect))
	return &SQLDB{
		repo:    &repo{q: conn, dialect: dialect, logger: logger},
		conn:    conn,
		dialect: dialect,
		logger:  logger,
	}
}

// Dialect reports which SQL dialect the database speaks.
func (d *SQLDB) Dialect() Dialect {
	return d.dialect
}

// WithTx runs fn inside a transaction bound to a transactional Queries.
func (d *SQLDB) WithTx(ctx context.Context, fn func(ctx context.Context, tx Queries) error) error {
	return withTx(ctx, d.conn, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &repo{q: tx, dialect: d.dialect, logger: d.logger})
	})
}

// Ping checks the database connection.
func (d *SQLDB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (d *SQLDB) Close() error {
	d.logger.Info("closing database")
	return d.conn.Close()
}

// repo runs the store and file queries against a DBTX.
type repo struct {
	q       DBTX
	dialect Dialect
	logger  *slog.Logger
}

// rebind rewrites ? placeholders into $n for Postgres.
func (r *repo) rebind(query string) string {
	return rebind(r.dialect, query)
}

func rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *repo) InsertStore(ctx context.Context, store *models.Store) error {
	query := r.rebind(`
		INSERT INTO stores (display_name, remote_name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)

	err := r.q.QueryRowContext(ctx, query,
		store.DisplayName,
		store.RemoteName,
		formatTime(store.CreatedAt),
		formatTime(store.UpdatedAt),
	).Scan(&store.ID)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("inserting store %q: %w", store.DisplayName, ErrConstraint)
		}
		return fmt.Errorf("inserting store: %w", err)
	}

	r.logger.Debug("inserted store", "id", store.ID, "remote_name", store.RemoteName)
	return nil
}

func (r *repo) GetStore(ctx context.Context, id int64) (*models.Store, error) {
	query := r.rebind(`
		SELECT id, display_name, remote_name, created_at, updated_at
		FROM stores
		WHERE id = ?
	`)
	return scanStore(r.q.QueryRowContext(ctx, query, id))
}

func (r *repo) GetStoreByDisplayName(ctx context.Context, displayName string) (*models.Store, error) {
	query := r.rebind(`
		SELECT id, display_name, remote_name, created_at, updated_at
		FROM stores
		WHERE display_name = ?
	`)
	return scanStore(r.q.QueryRowContext(ctx, query, displayName))
}

// ListStores returns every store, most recently created first.
func (r *repo) ListStores(ctx context.Context) ([]models.Store, error) {
	query := `
		SELECT id, display_name, remote_name, created_at, updated_at
		FROM stores
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying stores: %w", err)
	}
	defer rows.Close()

	stores := []models.Store{}
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, *store)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating store rows: %w", err)
	}

	return stores, nil
}

// TouchStore writes store.UpdatedAt.
func (r *repo) TouchStore(ctx context.Context, store *models.Store) error {
	query := r.rebind(`UPDATE stores SET updated_at = ? WHERE id = ?`)

	result, err := r.q.ExecContext(ctx, query, formatTime(store.UpdatedAt), store.ID)
	if err != nil {
		return fmt.Errorf("updating store: %w", err)
	}
	return expectOneRow(result)
}

// DeleteStore removes a store; its files go with it through the foreign key cascade.
func (r *repo) DeleteStore(ctx context.Context, id int64) error {
	query := r.rebind(`DELETE FROM stores WHERE id = ?`)

	result, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting store: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}

	r.logger.Debug("deleted store", "id", id)
	return nil
}

func (r *repo) InsertFile(ctx context.Context, file *models.File) error {
	query := r.rebind(`
		INSERT INTO files (store_id, remote_document_id, display_name, mime_type, size_bytes, upload_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.q.QueryRowContext(ctx, query,
		file.StoreID,
		file.RemoteDocumentID,
		file.DisplayName,
		file.MimeType,
		file.SizeBytes,
		formatTime(file.UploadDate),
		string(file.Status),
	).Scan(&file.ID)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("inserting file %q: %w", file.DisplayName, ErrConstraint)
		}
		return fmt.Errorf("inserting file: %w", err)
	}

	r.logger.Debug("inserted file", "id", file.ID, "store_id", file.StoreID, "document", file.RemoteDocumentID)
	return nil
}

// GetFile returns the file only when it belongs to storeID.
func (r *repo) GetFile(ctx context.Context, storeID, fileID int64) (*models.File, error) {
	query := r.rebind(`
		SELECT id, store_id, remote_document_id, display_name, mime_type, size_bytes, upload_date, status
		FROM files
		WHERE id = ? AND store_id = ?
	`)
	return scanFile(r.q.QueryRowContext(ctx, query, fileID, storeID))
}

// ListFiles returns the files of a store, most recently uploaded first.
func (r *repo) ListFiles(ctx context.Context, storeID int64) ([]models.File, error) {
	query := r.rebind(`
		SELECT id, store_id, remote_document_id, display_name, mime_type, size_bytes, upload_date, status
		FROM files
		WHERE store_id = ?
		ORDER BY upload_date DESC, id DESC
	`)

	rows, err := r.q.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating file rows: %w", err)
	}

	return files, nil
}

func (r *repo) CountFiles(ctx context.Context, storeID int64) (int, error) {
	query := r.rebind(`SELECT COUNT(*) FROM files WHERE store_id = ?`)

	var n int
	if err := r.q.QueryRowContext(ctx, query, storeID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting files: %w", err)
	}
	return n, nil
}

func (r *repo) DeleteFile(ctx context.Context, storeID, fileID int64) error {
	query := r.rebind(`DELETE FROM files WHERE id = ? AND store_id = ?`)

	result, err := r.q.ExecContext(ctx, query, fileID, storeID)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}

	r.logger.Debug("deleted file", "id", fileID, "store_id", storeID)
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanStore(row scanner) (*models.Store, error) {
	var store models.Store
	var createdAt, updatedAt string

	err := row.Scan(&store.ID, &store.DisplayName, &store.RemoteName, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning store: %w", err)
	}

	if store.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if store.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &store, nil
}

func scanFile(row scanner) (*models.File, error) {
	var file models.File
	var uploadDate, status string

	err := row.Scan(
		&file.ID,
		&file.StoreID,
		&file.RemoteDocumentID,
		&file.DisplayName,
		&file.MimeType,
		&file.SizeBytes,
		&uploadDate,
		&status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning file: %w", err)
	}

	if file.UploadDate, err = parseTime(uploadDate); err != nil {
		return nil, fmt.Errorf("parsing upload_date: %w", err)
	}
	file.Status = models.FileStatus(status)

	return &file, nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// isConstraintViolation recognises unique and foreign key violations from
// both drivers.
func isConstraintViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}

	return strings.Contains(err.Error(), "constraint failed")
}
