package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
)

// defaultMaxBodySize is used when RouterDeps.MaxBodyBytes is zero (1 MB).
const defaultMaxBodySize = 1 << 20

// errorEnvelope is the standard error response shape.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorEnvelope{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON decodes the request body into v, enforcing a size limit.
func readJSON(r *http.Request, limit int64, v any) error {
	lr := io.LimitReader(r.Body, limit)
	dec := json.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
