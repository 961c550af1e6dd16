package models

import "time"

// Store mirrors one remote file search store.
type Store struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	RemoteName  string    `json:"remote_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// File mirrors one document ingested into a store's remote knowledge base.
type File struct {
	ID               int64      `json:"id"`
	StoreID          int64      `json:"store_id"`
	RemoteDocumentID string     `json:"remote_document_id"`
	DisplayName      string     `json:"display_name"`
	MimeType         string     `json:"mime_type"`
	SizeBytes        int64      `json:"size_bytes"`
	UploadDate       time.Time  `json:"upload_date"`
	Status           FileStatus `json:"status"`
}

// FileStatus reflects the remote processing state at the time of the last local write.
type FileStatus string

const (
	FileStatusImporting FileStatus = "IMPORTING"
	FileStatusCompleted FileStatus = "COMPLETED"
	FileStatusFailed    FileStatus = "FAILED"
)

// Valid reports whether s is one of the known statuses.
func (s FileStatus) Valid() bool {
	switch s {
	case FileStatusImporting, FileStatusCompleted, FileStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s FileStatus) Terminal() bool {
	return s == FileStatusCompleted || s == FileStatusFailed
}

// CanTransition reports whether a file may move from s to next.
// Only IMPORTING -> COMPLETED and IMPORTING -> FAILED are allowed.
func (s FileStatus) CanTransition(next FileStatus) bool {
	return s == FileStatusImporting && next.Terminal()
}

// ChatResult is the outcome of a store-scoped chat completion.
type ChatResult struct {
	Text      string   `json:"response"`
	Citations []string `json:"citations"`
}

// Model describes a remote generative model.
type Model struct {
	Name              string   `json:"name"`
	DisplayName       string   `json:"display_name,omitempty"`
	Description       string   `json:"description,omitempty"`
	GenerationMethods []string `json:"supported_generation_methods,omitempty"`
}

// Supports reports whether the model lists method among its generation methods.
func (m Model) Supports(method string) bool {
	for _, g := range m.GenerationMethods {
		if g == method {
			return true
		}
	}
	return false
}
