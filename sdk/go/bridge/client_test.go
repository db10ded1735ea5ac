package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestQueryIdentityAndResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bridge/queries/identity":
			if r.Method != http.MethodPost {
				t.Errorf("method: %s", r.Method)
			}
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode: %v", err)
			}
			if body["caller"] != "0x0000000000000000000000000000000000000001" {
				t.Errorf("caller: %v", body["caller"])
			}
			w.WriteHeader(202)
			json.NewEncoder(w).Encode(map[string]any{"request_id": "req_1", "correlation_id": "ab"})
		case "/bridge/results/ab":
			json.NewEncoder(w).Encode(map[string]any{
				"request_id": "req_2",
				"status":     "resolved",
				"identity":   map[string]any{"exists": true, "owner": "0xaa", "uri": "u", "score": "0", "feedback_count": 0},
			})
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(404)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	q, err := c.QueryIdentity(context.Background(), "0x0000000000000000000000000000000000000001", 2, "0x07")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if q.CorrelationID != "ab" {
		t.Fatalf("correlation: %q", q.CorrelationID)
	}

	res, err := c.Result(context.Background(), q.CorrelationID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Status != "resolved" || res.Identity == nil || !res.Identity.Exists {
		t.Fatalf("result mismatch: %+v", res)
	}
}

func TestSetTrustSendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/admin/trust/5" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer admin-token" {
			t.Errorf("authorization: %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(map[string]any{"request_id": "req_1"})
	}))
	defer srv.Close()

	c := New(srv.URL, "admin-token")
	if err := c.SetTrust(context.Background(), 5, "0xbb"); err != nil {
		t.Fatalf("set trust: %v", err)
	}
}

func TestErrorEnvelopeSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": "UNKNOWN_CHAIN"}})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.QueryIdentity(context.Background(), "0x01", 999, "0x01")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/proofs/artifacts/art_1":
			json.NewEncoder(w).Encode(map[string]any{"artifact_id": "art_1", "payload": "AA=="})
		case "/proofs/verify":
			var body struct {
				ProofType string          `json:"proof_type"`
				Artifact  json.RawMessage `json:"artifact"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode: %v", err)
			}
			if body.ProofType != "IDENTITY" || len(body.Artifact) == 0 {
				t.Errorf("verify body: %+v", body)
			}
			json.NewEncoder(w).Encode(map[string]any{"request_id": "req_1", "agent_id": "0x01", "verified": true})
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	artifact, err := c.Artifact(context.Background(), "art_1")
	if err != nil {
		t.Fatalf("artifact: %v", err)
	}
	res, err := c.VerifyProof(context.Background(), "IDENTITY", artifact)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Verified {
		t.Fatalf("expected verified, got %+v", res)
	}
}
