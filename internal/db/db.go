package db

import (
	"context"
	"errors"

	"github.com/plipowczan/google-file-search-agent/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConstraint is returned when a write violates a unique or foreign key constraint.
	ErrConstraint = errors.New("constraint violation")
)

// Queries is the set of store and file operations available both on the
// database handle and inside a transaction.
type Queries interface {
	InsertStore(ctx context.Context, store *models.Store) error
	GetStore(ctx context.Context, id int64) (*models.Store, error)
	GetStoreByDisplayName(ctx context.Context, displayName string) (*models.Store, error)
	ListStores(ctx context.Context) ([]models.Store, error)
	TouchStore(ctx context.Context, store *models.Store) error
	DeleteStore(ctx context.Context, id int64) error

	InsertFile(ctx context.Context, file *models.File) error
	GetFile(ctx context.Context, storeID, fileID int64) (*models.File, error)
	ListFiles(ctx context.Context, storeID int64) ([]models.File, error)
	CountFiles(ctx context.Context, storeID int64) (int, error)
	DeleteFile(ctx context.Context, storeID, fileID int64) error
}

// DB is the local persistence layer for stores and their files.
type DB interface {
	Queries

	// WithTx runs fn inside a single transaction. The transaction commits when
	// fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Queries) error) error

	Ping(ctx context.Context) error
	Close() error
}
