package api

type CreateStoreRequest struct {
	DisplayName string `json:"display_name"`
}
