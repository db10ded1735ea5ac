package httpx

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteErrorEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, 403, "ONLY_TRANSPORT", "caller is not the transport", nil)

	if w.Code != 403 {
		t.Fatalf("status = %d", w.Code)
	}
	reqID := w.Header().Get("X-Request-Id")
	if !strings.HasPrefix(reqID, "req_") {
		t.Fatalf("X-Request-Id = %q", reqID)
	}
	var env ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.RequestID != reqID {
		t.Fatalf("body request_id %q != header %q", env.RequestID, reqID)
	}
	if env.Error.Code != "ONLY_TRANSPORT" || env.Error.Message == "" {
		t.Fatalf("unexpected error body: %+v", env.Error)
	}
}

func TestWriteErrorOmitsEmptyDetails(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, 404, "NOT_FOUND", "missing", nil)
	if strings.Contains(w.Body.String(), "details") {
		t.Fatalf("nil details must be omitted: %s", w.Body.String())
	}
}

func TestReadJSONRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"agent_id":"0x01","bogus":1}`))
	var dst struct {
		AgentID string `json:"agent_id"`
	}
	if err := ReadJSON(r, &dst); err == nil {
		t.Fatal("expected unknown-field error")
	}
}
