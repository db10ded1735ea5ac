package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMemorySinkRecordsByType(t *testing.T) {
	s := &MemorySink{}
	ctx := context.Background()
	s.Emit(ctx, NewEvent(EventQueryIssued, map[string]any{"n": 1}))
	s.Emit(ctx, NewEvent(EventResultStored, nil))
	s.Emit(ctx, NewEvent(EventQueryIssued, map[string]any{"n": 2}))

	if got := len(s.Events()); got != 3 {
		t.Fatalf("expected 3 events, got %d", got)
	}
	if got := len(s.ByType(EventQueryIssued)); got != 2 {
		t.Fatalf("expected 2 query.issued events, got %d", got)
	}
	if got := len(s.ByType(EventProofEmitted)); got != 0 {
		t.Fatalf("expected 0 proof.emitted events, got %d", got)
	}
}

func TestNewEventStampsIDAndTime(t *testing.T) {
	e := NewEvent(EventProofVerified, nil)
	if e.EventID == "" || e.EventID[:4] != "evt_" {
		t.Fatalf("bad event id: %q", e.EventID)
	}
	if e.OccurredAt.IsZero() {
		t.Fatal("occurred_at not stamped")
	}
}

func TestMultiFansOut(t *testing.T) {
	a, b := &MemorySink{}, &MemorySink{}
	Multi{a, b}.Emit(context.Background(), NewEvent(EventResultStored, nil))
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatalf("fan-out missed a sink: %d %d", len(a.Events()), len(b.Events()))
	}
}

func TestSignAndVerifyBody(t *testing.T) {
	body := []byte(`{"event_id":"evt_x"}`)
	sig := SignBody("secret", body)
	if !VerifyBody("secret", body, sig) {
		t.Fatal("valid signature rejected")
	}
	if VerifyBody("other", body, sig) {
		t.Fatal("wrong secret accepted")
	}
	if VerifyBody("secret", []byte("tampered"), sig) {
		t.Fatal("tampered body accepted")
	}
	if VerifyBody("secret", body, "not-hex") {
		t.Fatal("garbage signature accepted")
	}
}

func TestWebhookSinkDeliversSignedEvent(t *testing.T) {
	received := make(chan *http.Request, 1)
	bodies := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- r
		bodies <- body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "secret")
	e := NewEvent(EventProofEmitted, map[string]any{"artifact_id": "art_1"})
	sink.Emit(context.Background(), e)

	select {
	case r := <-received:
		body := <-bodies
		if r.Header.Get("X-Event-Id") != e.EventID {
			t.Fatalf("event id header: %q", r.Header.Get("X-Event-Id"))
		}
		if r.Header.Get("X-Event-Type") != EventProofEmitted {
			t.Fatalf("event type header: %q", r.Header.Get("X-Event-Type"))
		}
		if !VerifyBody("secret", body, r.Header.Get("X-Signature")) {
			t.Fatal("delivered body fails signature check")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("webhook never delivered")
	}
}
