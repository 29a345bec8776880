package domain

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// WriteError renders a failure as the API's JSON error shape. Errors outside
// the taxonomy are logged and surfaced as a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	var de *Error
	if !errors.As(err, &de) {
		slog.Error("unclassified error reached the handler boundary", "error", err)
		http.Error(w, "Internal error - please try again later", http.StatusInternalServerError)
		return
	}

	payload := map[string]any{"error": de.Message}
	if de.Conflict != nil {
		payload["details"] = de.Conflict.String()
	}
	if de.Kind == KindStoreUnavailable {
		slog.Error("storage failure", "error", de)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(de.HTTPStatus())
	json.NewEncoder(w).Encode(payload)
}
