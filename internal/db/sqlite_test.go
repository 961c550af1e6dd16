package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/plipowczan/google-file-search-agent/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *SQLDB {
	t.Helper()

	d, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func insertStore(t *testing.T, d *SQLDB, name string, createdAt time.Time) *models.Store {
	t.Helper()

	store := &models.Store{
		DisplayName: name,
		RemoteName:  "fileSearchStores/" + name,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, d.InsertStore(context.Background(), store))
	return store
}

func insertFile(t *testing.T, d *SQLDB, storeID int64, name string, uploaded time.Time) *models.File {
	t.Helper()

	file := &models.File{
		StoreID:          storeID,
		RemoteDocumentID: "fileSearchStores/x/documents/" + name,
		DisplayName:      name,
		MimeType:         "text/plain",
		SizeBytes:        12,
		UploadDate:       uploaded,
		Status:           models.FileStatusCompleted,
	}
	require.NoError(t, d.InsertFile(context.Background(), file))
	return file
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestMigrate_Idempotent(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.Migrate(context.Background()))
}

func TestStore_InsertAndGet(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 123456789, time.UTC)

	store := insertStore(t, d, "alpha", now)
	assert.NotZero(t, store.ID)

	got, err := d.GetStore(ctx, store.ID)
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.DisplayName)
	assert.Equal(t, "fileSearchStores/alpha", got.RemoteName)
	assert.True(t, now.Equal(got.CreatedAt))
	assert.True(t, now.Equal(got.UpdatedAt))

	byName, err := d.GetStoreByDisplayName(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, store.ID, byName.ID)
}

func TestStore_NotFound(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	_, err := d.GetStore(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = d.GetStoreByDisplayName(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, d.DeleteStore(ctx, 999), ErrNotFound)
	assert.ErrorIs(t, d.TouchStore(ctx, &models.Store{ID: 999, UpdatedAt: time.Now()}), ErrNotFound)
}

func TestStore_UniqueDisplayName(t *testing.T) {
	d := newTestDB(t)
	now := time.Now()

	insertStore(t, d, "alpha", now)

	dup := &models.Store{DisplayName: "alpha", RemoteName: "other", CreatedAt: now, UpdatedAt: now}
	err := d.InsertStore(context.Background(), dup)
	assert.ErrorIs(t, err, ErrConstraint)
}

func TestStore_UniqueRemoteName(t *testing.T) {
	d := newTestDB(t)
	now := time.Now()

	insertStore(t, d, "alpha", now)

	dup := &models.Store{DisplayName: "beta", RemoteName: "fileSearchStores/alpha", CreatedAt: now, UpdatedAt: now}
	err := d.InsertStore(context.Background(), dup)
	assert.ErrorIs(t, err, ErrConstraint)
}

func TestListStores_NewestFirst(t *testing.T) {
	d := newTestDB(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	insertStore(t, d, "old", base)
	insertStore(t, d, "new", base.Add(time.Hour))
	insertStore(t, d, "mid", base.Add(time.Minute))

	stores, err := d.ListStores(context.Background())
	require.NoError(t, err)
	require.Len(t, stores, 3)
	assert.Equal(t, "new", stores[0].DisplayName)
	assert.Equal(t, "mid", stores[1].DisplayName)
	assert.Equal(t, "old", stores[2].DisplayName)
}

func TestListStores_Empty(t *testing.T) {
	d := newTestDB(t)

	stores, err := d.ListStores(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, stores)
	assert.Empty(t, stores)
}

func TestTouchStore(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	store := insertStore(t, d, "alpha", base)
	store.UpdatedAt = base.Add(2 * time.Hour)
	require.NoError(t, d.TouchStore(ctx, store))

	got, err := d.GetStore(ctx, store.ID)
	require.NoError(t, err)
	assert.True(t, base.Equal(got.CreatedAt))
	assert.True(t, base.Add(2*time.Hour).Equal(got.UpdatedAt))
}

func TestFiles_ScopedToStore(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	a := insertStore(t, d, "a", now)
	b := insertStore(t, d, "b", now)
	file := insertFile(t, d, a.ID, "doc.txt", now)

	got, err := d.GetFile(ctx, a.ID, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "doc.txt", got.DisplayName)
	assert.Equal(t, "text/plain", got.MimeType)
	assert.Equal(t, int64(12), got.SizeBytes)
	assert.Equal(t, models.FileStatusCompleted, got.Status)

	_, err = d.GetFile(ctx, b.ID, file.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, d.DeleteFile(ctx, b.ID, file.ID), ErrNotFound)
	require.NoError(t, d.DeleteFile(ctx, a.ID, file.ID))
	assert.ErrorIs(t, d.DeleteFile(ctx, a.ID, file.ID), ErrNotFound)
}

func TestListFiles_NewestFirst(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	store := insertStore(t, d, "alpha", base)
	insertFile(t, d, store.ID, "first", base)
	insertFile(t, d, store.ID, "third", base.Add(2*time.Second))
	insertFile(t, d, store.ID, "second", base.Add(time.Second))

	files, err := d.ListFiles(ctx, store.ID)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{files[0].DisplayName, files[1].DisplayName, files[2].DisplayName})

	n, err := d.CountFiles(ctx, store.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestInsertFile_UnknownStore(t *testing.T) {
	d := newTestDB(t)

	file := &models.File{
		StoreID:          42,
		RemoteDocumentID: "doc",
		DisplayName:      "x",
		UploadDate:       time.Now(),
		Status:           models.FileStatusCompleted,
	}
	assert.ErrorIs(t, d.InsertFile(context.Background(), file), ErrConstraint)
}

func TestDeleteStore_CascadesFiles(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	store := insertStore(t, d, "alpha", now)
	insertFile(t, d, store.ID, "one", now)
	insertFile(t, d, store.ID, "two", now)

	require.NoError(t, d.DeleteStore(ctx, store.ID))

	n, err := d.CountFiles(ctx, store.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	now := time.Now()
	boom := errors.New("boom")

	err := d.WithTx(ctx, func(ctx context.Context, tx Queries) error {
		store := &models.Store{DisplayName: "alpha", RemoteName: "r", CreatedAt: now, UpdatedAt: now}
		if err := tx.InsertStore(ctx, store); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stores, err := d.ListStores(ctx)
	require.NoError(t, err)
	assert.Empty(t, stores)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	assert.Panics(t, func() {
		_ = d.WithTx(ctx, func(ctx context.Context, tx Queries) error {
			store := &models.Store{DisplayName: "alpha", RemoteName: "r", CreatedAt: now, UpdatedAt: now}
			if err := tx.InsertStore(ctx, store); err != nil {
				return err
			}
			panic("unexpected")
		})
	})

	stores, err := d.ListStores(ctx)
	require.NoError(t, err)
	assert.Empty(t, stores)
}

func TestWithTx_Commits(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	var id int64
	err := d.WithTx(ctx, func(ctx context.Context, tx Queries) error {
		store := &models.Store{DisplayName: "alpha", RemoteName: "r", CreatedAt: now, UpdatedAt: now}
		if err := tx.InsertStore(ctx, store); err != nil {
			return err
		}
		id = store.ID
		return nil
	})
	require.NoError(t, err)

	got, err := d.GetStore(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.DisplayName)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t,
		"file:data.db?_pragma=foreign_keys%281%29&_pragma=busy_timeout%285000%29&_pragma=journal_mode%28WAL%29",
		sqliteDSN("data.db"))
	assert.Equal(t,
		"file:x.db?mode=rwc&_pragma=foreign_keys%281%29&_pragma=busy_timeout%285000%29&_pragma=journal_mode%28WAL%29",
		sqliteDSN("file:x.db?mode=rwc"))
}
