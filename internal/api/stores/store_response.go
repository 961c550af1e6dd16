package api

import (
	"time"

	"github.com/plipowczan/google-file-search-agent/internal/models"
)

type StoreResponse struct {
	ID              int64     `json:"id"`
	DisplayName     string    `json:"display_name"`
	GoogleStoreName string    `json:"google_store_name"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type StoreListResponse struct {
	Stores []StoreResponse `json:"stores"`
	Total  int             `json:"total"`
}

func NewStoreResponse(s *models.Store) StoreResponse {
	return StoreResponse{
		ID:              s.ID,
		DisplayName:     s.DisplayName,
		GoogleStoreName: s.RemoteName,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func NewStoreListResponse(stores []models.Store) StoreListResponse {
	resp := StoreListResponse{
		Stores: make([]StoreResponse, 0, len(stores)),
		Total:  len(stores),
	}
	for i := range stores {
		resp.Stores = append(resp.Stores, NewStoreResponse(&stores[i]))
	}
	return resp
}
