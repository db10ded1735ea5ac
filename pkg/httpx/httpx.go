// Package httpx holds the JSON request/response conventions shared by the
// bridge service handlers.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

func NewRequestID() string { return "req_" + uuid.NewString() }

// ErrorEnvelope is the wire shape of every non-2xx bridge response.
type ErrorEnvelope struct {
	RequestID string    `json:"request_id"`
	Error     ErrorBody `json:"error"`
}

// ErrorBody carries the subsystem's structured error string (UNKNOWN_CHAIN,
// ONLY_TRANSPORT, ...) in Code so callers can match on it without parsing
// the human-readable message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// WriteError writes the standard error envelope. The request id is echoed
// in the X-Request-Id header so callers that discard the body can still
// correlate failures with server logs.
func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	env := ErrorEnvelope{
		RequestID: NewRequestID(),
		Error:     ErrorBody{Code: code, Message: message, Details: details},
	}
	w.Header().Set("X-Request-Id", env.RequestID)
	WriteJSON(w, status, env)
}
