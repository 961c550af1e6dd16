package api

import (
	"time"

	"github.com/plipowczan/google-file-search-agent/internal/models"
)

type FileResponse struct {
	ID          int64             `json:"id"`
	StoreID     int64             `json:"store_id"`
	DisplayName string            `json:"display_name"`
	DocumentID  string            `json:"document_id"`
	MimeType    string            `json:"mime_type,omitempty"`
	SizeBytes   int64             `json:"size_bytes"`
	UploadDate  time.Time         `json:"upload_date"`
	Status      models.FileStatus `json:"status"`
}

type FileListResponse struct {
	Files []FileResponse `json:"files"`
	Total int            `json:"total"`
}

func NewFileResponse(f *models.File) FileResponse {
	return FileResponse{
		ID:          f.ID,
		StoreID:     f.StoreID,
		DisplayName: f.DisplayName,
		DocumentID:  f.RemoteDocumentID,
		MimeType:    f.MimeType,
		SizeBytes:   f.SizeBytes,
		UploadDate:  f.UploadDate,
		Status:      f.Status,
	}
}

func NewFileListResponse(files []models.File) FileListResponse {
	resp := FileListResponse{
		Files: make([]FileResponse, 0, len(files)),
		Total: len(files),
	}
	for i := range files {
		resp.Files = append(resp.Files, NewFileResponse(&files[i]))
	}
	return resp
}
