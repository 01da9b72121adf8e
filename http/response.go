package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	biblioteca "github.com/K3v1nD14s/Biblioteca"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MessageResponse represents a JSON acknowledgement response
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes the appropriate error response based on error type.
// Internal detail never reaches the caller; it goes to the log only.
func HandleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	switch {
	case errors.Is(err, biblioteca.ErrUnsupportedFormat):
		WriteError(w, http.StatusBadRequest, "unsupported_format", "File format not allowed")
	case errors.Is(err, biblioteca.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "Book not found")
	case errors.Is(err, biblioteca.ErrAccessDenied):
		WriteError(w, http.StatusForbidden, "access_denied", "Access denied")
	case errors.Is(err, biblioteca.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
	case errors.Is(err, biblioteca.ErrStorageWrite):
		WriteError(w, http.StatusInternalServerError, "storage_error", "Could not store file")
	case errors.Is(err, biblioteca.ErrStorageRead):
		WriteError(w, http.StatusInternalServerError, "storage_error", "Could not read file")
	case errors.Is(err, biblioteca.ErrPersistence):
		WriteError(w, http.StatusInternalServerError, "persistence_error", "Could not save book record")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
