package llm

import (
	"context"
	"errors"
	"sync"

	"github.com/plipowczan/google-file-search-agent/internal/models"
)

// ErrNoAPIKey is returned by every remote call when no API key is configured.
var ErrNoAPIKey = errors.New("GOOGLE_API_KEY is not set")

// UploadState is the processing state of an uploaded document.
type UploadState string

const (
	UploadPending  UploadState = "PENDING"
	UploadComplete UploadState = "COMPLETE"
	UploadFailed   UploadState = "FAILED"
)

// RemoteStore is a search store as known by the remote service.
type RemoteStore struct {
	Name        string
	DisplayName string
}

// UploadResult describes an upload operation. DocumentID is set once State is
// UploadComplete and Error once State is UploadFailed.
type UploadResult struct {
	Operation  string
	DocumentID string
	State      UploadState
	Error      string
}

// Client is the remote knowledge-base service.
type Client interface {
	CreateStore(ctx context.Context, remoteName, displayName string) (*RemoteStore, error)
	DeleteStore(ctx context.Context, remoteName string, force bool) error

	UploadDocument(ctx context.Context, localPath, remoteStoreName, displayName, mimeType string) (*UploadResult, error)
	UploadStatus(ctx context.Context, operation string) (*UploadResult, error)
	DeleteDocument(ctx context.Context, remoteDocumentID string) error

	Complete(ctx context.Context, remoteStoreName, message, modelName string) (string, error)
	ListModels(ctx context.Context) ([]models.Model, error)
}

// Lazy is a Client built on first use and shared afterwards. A failed build
// is remembered and returned by every call.
type Lazy struct {
	build  func() (Client, error)
	once   sync.Once
	client Client
	err    error
}

var _ Client = (*Lazy)(nil)

// NewLazy returns a Lazy client that calls build once.
func NewLazy(build func() (Client, error)) *Lazy {
	return &Lazy{build: build}
}

func (l *Lazy) get() (Client, error) {
	l.once.Do(func() {
		l.client, l.err = l.build()
	})
	return l.client, l.err
}

func (l *Lazy) CreateStore(ctx context.Context, remoteName, displayName string) (*RemoteStore, error) {
	c, err := l.get()
	if err != nil {
		return nil, err
	}
	return c.CreateStore(ctx, remoteName, displayName)
}

func (l *Lazy) DeleteStore(ctx context.Context, remoteName string, force bool) error {
	c, err := l.get()
	if err != nil {
		return err
	}
	return c.DeleteStore(ctx, remoteName, force)
}

func (l *Lazy) UploadDocument(ctx context.Context, localPath, remoteStoreName, displayName, mimeType string) (*UploadResult, error) {
	c, err := l.get()
	if err != nil {
		return nil, err
	}
	return c.UploadDocument(ctx, localPath, remoteStoreName, displayName, mimeType)
}

func (l *Lazy) UploadStatus(ctx context.Context, operation string) (*UploadResult, error) {
	c, err := l.get()
	if err != nil {
		return nil, err
	}
	return c.UploadStatus(ctx, operation)
}

func (l *Lazy) DeleteDocument(ctx context.Context, remoteDocumentID string) error {
	c, err := l.get()
	if err != nil {
		return err
	}
	return c.DeleteDocument(ctx, remoteDocumentID)
}

func (l *Lazy) Complete(ctx context.Context, remoteStoreName, message, modelName string) (string, error) {
	c, err := l.get()
	if err != nil {
		return "", err
	}
	return c.Complete(ctx, remoteStoreName, message, modelName)
}

func (l *Lazy) ListModels(ctx context.Context) ([]models.Model, error) {
	c, err := l.get()
	if err != nil {
		return nil, err
	}
	return c.ListModels(ctx)
}
