package middleware

import (
	"encoding/json"
	"net/http"

	"dejure-gateway/internal/model"
)

func writeJSONError(w http.ResponseWriter, status int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{Success: false, Error: apiErr})
}
