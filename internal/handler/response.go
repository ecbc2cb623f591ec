package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/careerlift/backend/internal/contextkeys"
	"github.com/careerlift/backend/internal/domain"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// Success writes a 2xx envelope {"success": true, ...fields}.
func Success(w http.ResponseWriter, status int, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	JSON(w, status, body)
}

// Error writes an error JSON response, using AppError status codes when available.
// Anything else is logged and reported as a generic 500.
func Error(w http.ResponseWriter, err error) {
	if appErr, ok := domain.AsAppError(err); ok {
		if appErr.Code >= http.StatusInternalServerError {
			slog.Error("request failed", "error", appErr.Error())
		}
		body := map[string]any{"error": appErr.Message}
		for k, v := range appErr.Details {
			body[k] = v
		}
		JSON(w, appErr.Code, body)
		return
	}
	slog.Error("unhandled error", "error", err)
	JSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

// DecodeJSON decodes a JSON request body into the given struct.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return domain.ErrBadRequest("invalid JSON body")
	}
	return nil
}

// Caller returns the identity stored by the role guard.
func Caller(r *http.Request) *domain.Identity {
	id, _ := r.Context().Value(contextkeys.Identity).(*domain.Identity)
	return id
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrValidation(key + " must be an integer")
	}
	return n, nil
}
