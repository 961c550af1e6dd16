package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	api "github.com/plipowczan/google-file-search-agent/internal/api/stores"
)

type StoreHandler struct {
	Service Service
	Logger  *slog.Logger
}

func (h *StoreHandler) CreateStore(w http.ResponseWriter, r *http.Request) {
	var req api.CreateStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request payload")
		return
	}

	store, err := h.Service.CreateStore(r.Context(), req.DisplayName)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, api.NewStoreResponse(store))
}

func (h *StoreHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.Service.ListStores(r.Context())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, api.NewStoreListResponse(stores))
}

func (h *StoreHandler) GetStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	store, err := h.Service.GetStore(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, api.NewStoreResponse(store))
}

func (h *StoreHandler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.Service.DeleteStore(r.Context(), id); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
