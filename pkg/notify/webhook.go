package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	webhookSignatureHeader = "X-Signature"
	webhookEventIDHeader   = "X-Event-Id"
	webhookEventTypeHeader = "X-Event-Type"
	webhookScheme          = "generic-hmac-sha256/v1"
)

// WebhookSink POSTs each event as JSON to a single endpoint, signing the
// body with HMAC-SHA256 so the receiver can authenticate it. Delivery is
// asynchronous and best-effort; failures are logged, never retried.
type WebhookSink struct {
	URL    string
	Secret string
	Client *http.Client
	Logger *slog.Logger
}

func NewWebhookSink(url, secret string) *WebhookSink {
	return &WebhookSink{
		URL:    strings.TrimSpace(url),
		Secret: secret,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebhookSink) Emit(_ context.Context, e Event) {
	go s.deliver(e)
}

func (s *WebhookSink) deliver(e Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	body, err := json.Marshal(e)
	if err != nil {
		logger.Error("webhook marshal failed", "event_id", e.EventID, "error", err)
		return
	}
	req, err := http.NewRequest(http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		logger.Error("webhook request failed", "event_id", e.EventID, "error", err)
		return
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set(webhookEventIDHeader, e.EventID)
	req.Header.Set(webhookEventTypeHeader, e.Type)
	req.Header.Set(webhookSignatureHeader, SignBody(s.Secret, body))

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("webhook delivery failed", "event_id", e.EventID, "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		logger.Warn("webhook delivery rejected", "event_id", e.EventID, "status", resp.StatusCode)
	}
}

// SignBody computes the hex HMAC-SHA256 carried in X-Signature.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyBody checks a received X-Signature against the shared secret.
func VerifyBody(secret string, body []byte, signatureHex string) bool {
	provided, err := hex.DecodeString(strings.TrimSpace(signatureHex))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}

// Scheme names the signing scheme for receivers that record it.
func Scheme() string { return webhookScheme }
