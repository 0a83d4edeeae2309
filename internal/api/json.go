package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/saifeemustafaq/receiptscanner/internal/receipt"
)

// respondJSON writes v as a JSON response with the given status
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// respondError writes a JSON error body with the given status
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto HTTP statuses
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, receipt.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, receipt.ErrAlreadyExists):
		respondError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("Internal error", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
