package server

import (
	"encoding/json"
	"net/http"
)

// apiError is the error body shape shared by every endpoint.
type apiError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, apiError{Status: status, Message: message})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
