package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	api "github.com/plipowczan/google-file-search-agent/internal/api/chat"
)

type ChatHandler struct {
	Service Service
	Logger  *slog.Logger
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request payload")
		return
	}

	if req.StoreID <= 0 {
		badRequest(w, "store_id must be a positive integer")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		badRequest(w, "Message cannot be empty")
		return
	}

	result, err := h.Service.Chat(r.Context(), req.StoreID, req.Message, req.Model)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, api.ChatResponse{
		Response:  result.Text,
		Citations: result.Citations,
	})
}

func (h *ChatHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	found, err := h.Service.ListModels(r.Context())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	resp := api.ModelListResponse{
		Models: make([]api.ModelResponse, 0, len(found)),
		Total:  len(found),
	}
	for _, m := range found {
		resp.Models = append(resp.Models, api.ModelResponse{
			Name:        m.Name,
			DisplayName: m.DisplayName,
			Description: m.Description,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
