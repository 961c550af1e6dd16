package api

type ChatRequest struct {
	StoreID int64  `json:"store_id"`
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}
