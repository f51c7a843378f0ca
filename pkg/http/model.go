package http

// APIResponse represents standard API response.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the flat error envelope for total failures. Kept separate
// from APIResponse so failed requests always carry a top-level "error" field.
type ErrorResponse struct {
	Status int    `json:"status" example:"500"`
	Error  string `json:"error"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"symbol"`
	Message string                 `json:"message,omitempty" example:"Symbol is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
