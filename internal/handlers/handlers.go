package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	errapi "github.com/plipowczan/google-file-search-agent/internal/api/errors"
	"github.com/plipowczan/google-file-search-agent/internal/kb"
	"github.com/plipowczan/google-file-search-agent/internal/models"
)

// Service is the lifecycle coordinator used by the handlers.
type Service interface {
	Ping(ctx context.Context) error

	CreateStore(ctx context.Context, displayName string) (*models.Store, error)
	ListStores(ctx context.Context) ([]models.Store, error)
	GetStore(ctx context.Context, id int64) (*models.Store, error)
	DeleteStore(ctx context.Context, id int64) error

	UploadFile(ctx context.Context, storeID int64, filename string, body io.Reader) (*models.File, error)
	ListFiles(ctx context.Context, storeID int64) ([]models.File, error)
	DeleteFile(ctx context.Context, storeID, fileID int64) error

	Chat(ctx context.Context, storeID int64, message, model string) (*models.ChatResult, error)
	ListModels(ctx context.Context) ([]models.Model, error)
}

var _ Service = (*kb.Service)(nil)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, code, detail string) {
	writeJSON(w, statusCode, errapi.ErrorResponse{Detail: detail, ErrorCode: code})
}

// writeError maps a coordinator error onto a status code and error body.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var remoteErr *kb.RemoteError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &remoteErr):
		logger.Warn("remote operation failed", "error", err)
		writeErrorResponse(w, http.StatusBadGateway, errapi.CodeRemote, err.Error())
	case errors.Is(err, kb.ErrDuplicateName):
		writeErrorResponse(w, http.StatusConflict, errapi.CodeDuplicateName, err.Error())
	case errors.Is(err, kb.ErrNotFound):
		writeErrorResponse(w, http.StatusNotFound, errapi.CodeNotFound, err.Error())
	case errors.Is(err, kb.ErrValidation):
		writeErrorResponse(w, http.StatusBadRequest, errapi.CodeValidation, err.Error())
	case errors.As(err, &maxBytesErr):
		writeErrorResponse(w, http.StatusRequestEntityTooLarge, errapi.CodePayloadTooLarge,
			fmt.Sprintf("request body is larger than %d bytes", maxBytesErr.Limit))
	default:
		logger.Error("request failed", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, errapi.CodeInternal, "internal server error")
	}
}

func badRequest(w http.ResponseWriter, detail string) {
	writeErrorResponse(w, http.StatusBadRequest, errapi.CodeValidation, detail)
}

// pathID parses a positive integer path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}
