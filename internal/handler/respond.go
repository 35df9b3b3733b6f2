package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/eventsphere/internal/apperr"
	"github.com/dukerupert/eventsphere/internal/media"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeError maps err to a status and a {"message"} body. Unclassified errors
// are logged and reported as a generic server error.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if errors.Is(err, media.ErrNotConfigured) {
		writeMessage(w, http.StatusServiceUnavailable, "Image uploads are not configured")
		return
	}

	kind := apperr.KindOf(err)
	if kind == apperr.KindServer {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeMessage(w, apperr.HTTPStatus(kind), apperr.Message(err))
}

// decodeJSON reads a JSON request body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperr.Validation("Invalid JSON")
}
