package api

type ChatResponse struct {
	Response  string   `json:"response"`
	Citations []string `json:"citations"`
}

type ModelResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
}

type ModelListResponse struct {
	Models []ModelResponse `json:"models"`
	Total  int             `json:"total"`
}
