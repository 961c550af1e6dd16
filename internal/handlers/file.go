package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	api "github.com/plipowczan/google-file-search-agent/internal/api/files"
)

// DefaultMaxUploadBytes bounds upload request bodies when no limit is configured.
const DefaultMaxUploadBytes = 50 << 20

// multipartMemory is how much of a multipart form is kept in memory; the
// rest spills to temporary files.
const multipartMemory = 8 << 20

type FileHandler struct {
	Service        Service
	Logger         *slog.Logger
	MaxUploadBytes int64
}

func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, h.Logger, maxBytesErr)
			return
		}
		h.Logger.Debug("parsing multipart form", "error", err)
		badRequest(w, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "Missing file field")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		badRequest(w, "No filename provided")
		return
	}

	uploaded, err := h.Service.UploadFile(r.Context(), storeID, header.Filename, file)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, api.NewFileResponse(uploaded))
}

func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	files, err := h.Service.ListFiles(r.Context(), storeID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, api.NewFileListResponse(files))
}

func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	fileID, err := pathID(r, "file_id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.Service.DeleteFile(r.Context(), storeID, fileID); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
