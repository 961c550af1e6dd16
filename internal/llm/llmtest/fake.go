// Package llmtest provides an in-memory llm.Client for tests.
package llmtest

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/plipowczan/google-file-search-agent/internal/llm"
	"github.com/plipowczan/google-file-search-agent/internal/models"
)

// Upload is a document received by the fake.
type Upload struct {
	Path        string
	Store       string
	DisplayName string
	MimeType    string
	Content     []byte
}

// ChatCall records one Complete invocation.
type ChatCall struct {
	Store   string
	Message string
	Model   string
}

// Fake is a concurrency-safe in-memory llm.Client. Set the *Err fields to make
// the matching operation fail.
type Fake struct {
	mu sync.Mutex

	CreateErr    error
	DeleteErr    error
	UploadErr    error
	StatusErr    error
	DocDeleteErr error
	CompleteErr  error
	ModelsErr    error

	// PendingPolls is how many UploadStatus calls report PENDING before the
	// operation finishes.
	PendingPolls int

	// FailUpload makes the upload operation finish as FAILED with this message.
	FailUpload string

	// Reply is returned by Complete.
	Reply string

	// Models is returned by ListModels.
	Models []models.Model

	Stores    map[string]string
	Documents map[string]string
	Uploads   []Upload
	Chats     []ChatCall
	Polls     int
	Calls     []string

	seq   int
	polls map[string]int
	ops   map[string]string
}

var _ llm.Client = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Reply:     "ok",
		Stores:    map[string]string{},
		Documents: map[string]string{},
		polls:     map[string]int{},
		ops:       map[string]string{},
	}
}

func (f *Fake) record(call string) {
	f.Calls = append(f.Calls, call)
}

// CallCount reports how many times op was called.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.Calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *Fake) CreateStore(_ context.Context, remoteName, displayName string) (*llm.RemoteStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateStore")

	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.Stores[remoteName] = displayName
	return &llm.RemoteStore{Name: remoteName, DisplayName: displayName}, nil
}

func (f *Fake) DeleteStore(_ context.Context, remoteName string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteStore")

	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if _, ok := f.Stores[remoteName]; !ok {
		return fmt.Errorf("store %s not found", remoteName)
	}
	delete(f.Stores, remoteName)
	for doc, store := range f.Documents {
		if store == remoteName {
			delete(f.Documents, doc)
		}
	}
	return nil
}

// UploadDocument reads the file at localPath so tests can inspect it after
// the caller has removed it.
func (f *Fake) UploadDocument(_ context.Context, localPath, remoteStoreName, displayName, mimeType string) (*llm.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UploadDocument")

	if f.UploadErr != nil {
		return nil, f.UploadErr
	}

	content, err := os.ReadFile(localPath)
	if err != nil {
		return nil, err
	}
	f.Uploads = append(f.Uploads, Upload{
		Path:        localPath,
		Store:       remoteStoreName,
		DisplayName: displayName,
		MimeType:    mimeType,
		Content:     content,
	})

	f.seq++
	op := fmt.Sprintf("%s/upload/operations/op-%d", remoteStoreName, f.seq)
	f.ops[op] = fmt.Sprintf("%s/documents/doc-%d", remoteStoreName, f.seq)
	f.polls[op] = f.PendingPolls

	return f.statusLocked(op), nil
}

func (f *Fake) UploadStatus(_ context.Context, operation string) (*llm.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UploadStatus")
	f.Polls++

	if f.StatusErr != nil {
		return nil, f.StatusErr
	}
	if _, ok := f.ops[operation]; !ok {
		return nil, fmt.Errorf("operation %s not found", operation)
	}
	if f.polls[operation] > 0 {
		f.polls[operation]--
	}
	return f.statusLocked(operation), nil
}

func (f *Fake) statusLocked(op string) *llm.UploadResult {
	if f.polls[op] > 0 {
		return &llm.UploadResult{Operation: op, State: llm.UploadPending}
	}
	if f.FailUpload != "" {
		return &llm.UploadResult{Operation: op, State: llm.UploadFailed, Error: f.FailUpload}
	}

	doc := f.ops[op]
	f.Documents[doc] = op
	return &llm.UploadResult{Operation: op, State: llm.UploadComplete, DocumentID: doc}
}

func (f *Fake) DeleteDocument(_ context.Context, remoteDocumentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteDocument")

	if f.DocDeleteErr != nil {
		return f.DocDeleteErr
	}
	delete(f.Documents, remoteDocumentID)
	return nil
}

func (f *Fake) Complete(_ context.Context, remoteStoreName, message, modelName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Complete")

	f.Chats = append(f.Chats, ChatCall{Store: remoteStoreName, Message: message, Model: modelName})
	if f.CompleteErr != nil {
		return "", f.CompleteErr
	}
	return f.Reply, nil
}

func (f *Fake) ListModels(_ context.Context) ([]models.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListModels")

	if f.ModelsErr != nil {
		return nil, f.ModelsErr
	}
	out := append([]models.Model{}, f.Models...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
