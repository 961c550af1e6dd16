// Package kb coordinates store and file lifecycles between the remote
// knowledge-base service and the local database.
//
// Every write calls the remote service first and records the result locally
// afterwards, in a transaction that never spans the remote call. Once the
// remote call has succeeded the local write ignores cancellation of the
// caller's context. A failed local write leaves the remote resource in place.
package kb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/plipowczan/google-file-search-agent/internal/db"
	"github.com/plipowczan/google-file-search-agent/internal/llm"
	"github.com/plipowczan/google-file-search-agent/internal/metrics"
	"github.com/plipowczan/google-file-search-agent/internal/models"
	"github.com/plipowczan/google-file-search-agent/internal/parsing"
	"github.com/plipowczan/google-file-search-agent/pkg/utils"
)

const (
	DefaultModel        = "gemini-2.5-flash"
	DefaultPollInterval = time.Second
)

// Config tunes the coordinator.
type Config struct {
	DefaultModel string
	PollInterval time.Duration
	// TempDir holds uploads while they are sent. Empty means os.TempDir().
	TempDir string
}

// Service is the lifecycle coordinator. It is safe for concurrent use.
type Service struct {
	db     db.DB
	remote llm.Client
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewService(database db.DB, remote llm.Client, cfg Config, logger *slog.Logger) *Service {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		db:     database,
		remote: remote,
		cfg:    cfg,
		logger: logger.With("component", "kb"),
		now:    time.Now,
	}
}

// Ping checks that the local database is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// CreateStore creates a remote search store and records it locally.
func (s *Service) CreateStore(ctx context.Context, displayName string) (*models.Store, error) {
	name, err := utils.ValidateDisplayName(displayName)
	if err != nil {
		return nil, validationErr(err)
	}

	_, err = s.db.GetStoreByDisplayName(ctx, name)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	case !errors.Is(err, db.ErrNotFound):
		return nil, fmt.Errorf("checking store name: %w", err)
	}

	now := s.now().UTC()
	remoteName := utils.RemoteStoreName(name, now)

	remote, err := s.remote.CreateStore(ctx, remoteName, name)
	metrics.ObserveRemote("create_store", err)
	if err != nil {
		return nil, remoteErr("failed to create file search store", err)
	}

	store := &models.Store{
		DisplayName: name,
		RemoteName:  remote.Name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithTx(context.WithoutCancel(ctx), func(ctx context.Context, tx db.Queries) error {
		return tx.InsertStore(ctx, store)
	})
	if err != nil {
		metrics.OrphanedRemoteResources.WithLabelValues("store").Inc()
		s.logger.Warn("remote store created but not recorded locally",
			"remote_name", remote.Name,
			"display_name", name,
			"error", err,
		)
		return nil, remoteErr("failed to record file search store", err)
	}

	s.logger.Info("store created", "id", store.ID, "remote_name", store.RemoteName)
	return store, nil
}

// ListStores returns all stores, newest first.
func (s *Service) ListStores(ctx context.Context) ([]models.Store, error) {
	return s.db.ListStores(ctx)
}

func (s *Service) GetStore(ctx context.Context, id int64) (*models.Store, error) {
	store, err := s.db.GetStore(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("store with id %d: %w", id, ErrNotFound)
	}
	return store, err
}

// DeleteStore force-deletes the remote store, then the local record and its
// files. The local record survives a remote failure so the call can be retried.
func (s *Service) DeleteStore(ctx context.Context, id int64) error {
	store, err := s.GetStore(ctx, id)
	if err != nil {
		return err
	}

	files, err := s.db.CountFiles(ctx, store.ID)
	if err != nil {
		return fmt.Errorf("counting files: %w", err)
	}

	err = s.remote.DeleteStore(ctx, store.RemoteName, true)
	metrics.ObserveRemote("delete_store", err)
	if err != nil {
		return remoteErr("failed to delete file search store", err)
	}

	err = s.db.WithTx(context.WithoutCancel(ctx), func(ctx context.Context, tx db.Queries) error {
		return tx.DeleteStore(ctx, store.ID)
	})
	if err != nil {
		s.logger.Error("remote store deleted but local record kept",
			"id", store.ID,
			"remote_name", store.RemoteName,
			"error", err,
		)
		return remoteErr("failed to remove local store record", err)
	}

	s.logger.Info("store deleted", "id", store.ID, "remote_name", store.RemoteName, "files", files)
	return nil
}

// UploadFile sends body to the store's remote search store, waits until the
// remote service finishes processing it and records the document locally.
func (s *Service) UploadFile(ctx context.Context, storeID int64, filename string, body io.Reader) (*models.File, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, validationErr(errors.New("no file name provided"))
	}

	store, err := s.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.cfg.TempDir, "upload-*"+filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}

	info, err := parsing.Inspect(tmp.Name(), filename)
	if errors.Is(err, parsing.ErrUnreadablePDF) {
		return nil, validationErr(err)
	}
	if err != nil {
		return nil, fmt.Errorf("inspecting upload: %w", err)
	}

	file := &models.File{
		StoreID:     store.ID,
		DisplayName: filename,
		MimeType:    info.MimeType,
		SizeBytes:   info.Size,
		Status:      models.FileStatusImporting,
	}

	res, err := s.remote.UploadDocument(ctx, tmp.Name(), store.RemoteName, filename, info.MimeType)
	metrics.ObserveRemote("upload_document", err)
	if err != nil {
		return nil, remoteErr("failed to upload file", err)
	}

	res, err = s.waitForUpload(ctx, res)
	if err != nil {
		return nil, err
	}

	switch res.State {
	case llm.UploadFailed:
		return nil, remoteErr("file processing failed", errors.New(res.Error))
	case llm.UploadComplete:
		if res.DocumentID == "" {
			return nil, remoteErr("failed to upload file", errors.New("no document id returned"))
		}
	default:
		return nil, remoteErr("failed to upload file", fmt.Errorf("unexpected upload state %q", res.State))
	}

	if !file.Status.CanTransition(models.FileStatusCompleted) {
		return nil, fmt.Errorf("file status %s cannot complete", file.Status)
	}
	file.Status = models.FileStatusCompleted
	file.RemoteDocumentID = res.DocumentID
	file.UploadDate = s.now().UTC()

	err = s.db.WithTx(context.WithoutCancel(ctx), func(ctx context.Context, tx db.Queries) error {
		if err := tx.InsertFile(ctx, file); err != nil {
			return err
		}
		store.UpdatedAt = file.UploadDate
		return tx.TouchStore(ctx, store)
	})
	if err != nil {
		metrics.OrphanedRemoteResources.WithLabelValues("document").Inc()
		s.logger.Warn("remote document uploaded but not recorded locally",
			"store_id", store.ID,
			"document", res.DocumentID,
			"error", err,
		)
		return nil, remoteErr("failed to record uploaded file", err)
	}

	s.logger.Info("file uploaded",
		"id", file.ID,
		"store_id", store.ID,
		"document", file.RemoteDocumentID,
		"mime_type", file.MimeType,
		"size", file.SizeBytes,
	)
	return file, nil
}

// waitForUpload polls until the operation leaves the pending state. Only ctx
// bounds the wait.
func (s *Service) waitForUpload(ctx context.Context, res *llm.UploadResult) (*llm.UploadResult, error) {
	start := time.Now()
	defer func() {
		metrics.UploadPollDuration.Observe(time.Since(start).Seconds())
	}()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for res.State == llm.UploadPending {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for upload %s: %w", res.Operation, ctx.Err())
		case <-ticker.C:
		}

		op := res.Operation
		var err error
		res, err = s.remote.UploadStatus(ctx, op)
		metrics.ObserveRemote("upload_status", err)
		if err != nil {
			return nil, remoteErr("failed to check upload status", err)
		}
		s.logger.Debug("upload status", "operation", op, "state", res.State)
	}

	return res, nil
}

// ListFiles returns the files of a store, newest first.
func (s *Service) ListFiles(ctx context.Context, storeID int64) ([]models.File, error) {
	if _, err := s.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	return s.db.ListFiles(ctx, storeID)
}

// DeleteFile removes a document remotely, then locally. The file must belong
// to the store.
func (s *Service) DeleteFile(ctx context.Context, storeID, fileID int64) error {
	store, err := s.GetStore(ctx, storeID)
	if err != nil {
		return err
	}

	file, err := s.db.GetFile(ctx, store.ID, fileID)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("file with id %d in store %d: %w", fileID, storeID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	err = s.remote.DeleteDocument(ctx, file.RemoteDocumentID)
	metrics.ObserveRemote("delete_document", err)
	if err != nil {
		return remoteErr("failed to delete file", err)
	}

	err = s.db.WithTx(context.WithoutCancel(ctx), func(ctx context.Context, tx db.Queries) error {
		if err := tx.DeleteFile(ctx, store.ID, file.ID); err != nil {
			return err
		}
		store.UpdatedAt = s.now().UTC()
		return tx.TouchStore(ctx, store)
	})
	if err != nil {
		s.logger.Error("remote document deleted but local record kept",
			"id", file.ID,
			"document", file.RemoteDocumentID,
			"error", err,
		)
		return remoteErr("failed to remove local file record", err)
	}

	s.logger.Info("file deleted", "id", file.ID, "store_id", store.ID)
	return nil
}

// Chat asks the model a question answered from the store's documents.
func (s *Service) Chat(ctx context.Context, storeID int64, message, model string) (*models.ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, validationErr(errors.New("message cannot be empty"))
	}

	store, err := s.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = s.cfg.DefaultModel
	}

	text, err := s.remote.Complete(ctx, store.RemoteName, message, model)
	metrics.ObserveRemote("complete", err)
	if err != nil {
		return nil, remoteErr("failed to generate response", err)
	}

	return &models.ChatResult{Text: text, Citations: []string{}}, nil
}

// ListModels returns the remote models that can answer chat requests.
func (s *Service) ListModels(ctx context.Context) ([]models.Model, error) {
	all, err := s.remote.ListModels(ctx)
	metrics.ObserveRemote("list_models", err)
	if err != nil {
		return nil, remoteErr("failed to list models", err)
	}

	out := make([]models.Model, 0, len(all))
	for _, m := range all {
		if m.Supports("generateContent") {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
