// Package bridge is a thin typed client for the bridge service HTTP API.
// It covers the pull-query surface, the proof surface and the local ledger
// writes; admin operations take the admin bearer token.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Bearer     string
}

func New(baseURL, bearer string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Bearer:     bearer,
	}
}

type QueryResponse struct {
	RequestID     string `json:"request_id"`
	CorrelationID string `json:"correlation_id"`
}

type IdentityFacts struct {
	Exists        bool   `json:"exists"`
	Owner         string `json:"owner"`
	URI           string `json:"uri"`
	Score         string `json:"score"`
	FeedbackCount uint64 `json:"feedback_count"`
}

type ReputationFacts struct {
	Count uint64 `json:"count"`
	Value string `json:"value"`
}

type ResultResponse struct {
	RequestID  string           `json:"request_id"`
	Status     string           `json:"status"` // resolved | pending
	Identity   *IdentityFacts   `json:"identity,omitempty"`
	Reputation *ReputationFacts `json:"reputation,omitempty"`
}

type ProofResponse struct {
	RequestID  string `json:"request_id"`
	ArtifactID string `json:"artifact_id"`
}

type VerifyResponse struct {
	RequestID string `json:"request_id"`
	AgentID   string `json:"agent_id"`
	Verified  bool   `json:"verified"`
}

type RegisterRequest struct {
	AgentID string `json:"agent_id"`
	Owner   string `json:"owner"`
	URI     string `json:"uri"`
}

type FeedbackRequest struct {
	Author       string   `json:"author"`
	AgentID      string   `json:"agent_id"`
	Value        string   `json:"value"`
	Scale        uint8    `json:"scale"`
	Tag1         string   `json:"tag1,omitempty"`
	Tag2         string   `json:"tag2,omitempty"`
	Endpoint     string   `json:"endpoint,omitempty"`
	ContentRefs  []string `json:"content_refs,omitempty"`
	ResponseRefs []string `json:"response_refs,omitempty"`
}

func (c *Client) QueryIdentity(ctx context.Context, caller string, targetChain uint64, agentID string) (*QueryResponse, error) {
	return post[QueryResponse](c, ctx, "/bridge/queries/identity", map[string]any{
		"caller":       caller,
		"target_chain": targetChain,
		"agent_id":     agentID,
	})
}

func (c *Client) QueryReputation(ctx context.Context, caller string, targetChain uint64, agentID string, principals []string, tag1, tag2 string) (*QueryResponse, error) {
	return post[QueryResponse](c, ctx, "/bridge/queries/reputation", map[string]any{
		"caller":       caller,
		"target_chain": targetChain,
		"agent_id":     agentID,
		"principals":   principals,
		"tag1":         tag1,
		"tag2":         tag2,
	})
}

func (c *Client) Result(ctx context.Context, correlationID string) (*ResultResponse, error) {
	u := fmt.Sprintf("%s/bridge/results/%s", c.BaseURL, url.PathEscape(correlationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return doJSON[ResultResponse](c, req)
}

// SetTrust installs a trusted counterparty for a chain; the client's bearer
// must be the admin token.
func (c *Client) SetTrust(ctx context.Context, chainID uint64, counterparty string) error {
	body, err := json.Marshal(map[string]any{"counterparty": counterparty})
	if err != nil {
		return err
	}
	u := fmt.Sprintf("%s/admin/trust/%d", c.BaseURL, chainID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = doJSON[map[string]any](c, req)
	return err
}

func (c *Client) RegisterAgent(ctx context.Context, in RegisterRequest) error {
	_, err := post[map[string]any](c, ctx, "/ledger/agents", in)
	return err
}

func (c *Client) GiveFeedback(ctx context.Context, in FeedbackRequest) error {
	_, err := post[map[string]any](c, ctx, "/ledger/feedback", in)
	return err
}

func (c *Client) EmitIdentityProof(ctx context.Context, agentID string) (*ProofResponse, error) {
	return post[ProofResponse](c, ctx, "/proofs/identity", map[string]any{"agent_id": agentID})
}

func (c *Client) EmitReputationProof(ctx context.Context, agentID string) (*ProofResponse, error) {
	return post[ProofResponse](c, ctx, "/proofs/reputation", map[string]any{"agent_id": agentID})
}

// Artifact fetches a signed proof artifact as raw JSON, suitable for
// forwarding to another bridge's verify endpoint.
func (c *Client) Artifact(ctx context.Context, artifactID string) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/proofs/artifacts/%s", c.BaseURL, url.PathEscape(artifactID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	out, err := doJSON[json.RawMessage](c, req)
	if err != nil {
		return nil, err
	}
	return *out, nil
}

func (c *Client) VerifyProof(ctx context.Context, proofType string, artifact json.RawMessage) (*VerifyResponse, error) {
	return post[VerifyResponse](c, ctx, "/proofs/verify", map[string]any{
		"proof_type": proofType,
		"artifact":   artifact,
	})
}

func post[T any](c *Client, ctx context.Context, path string, in any) (*T, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON[T](c, req)
}

func doJSON[T any](c *Client, req *http.Request) (*T, error) {
	if c.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.Bearer)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, fmt.Errorf("http %d: %v", resp.StatusCode, errBody)
	}
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
