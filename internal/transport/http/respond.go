package httptransport

import (
	"encoding/json"
	"net/http"

	dErrors "creditwatch/pkg/domain-errors"
)

// writeJSON centralizes response encoding so every handler emits the same
// envelope shape.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates domain errors to HTTP responses. Unclassified
// errors map to an opaque 500 so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		body["message"] = err.Error()
	}
	writeJSON(w, dErrors.ToHTTPStatus(code), body)
}
