// Package proof implements the push side of cross-chain verification:
// packaging facts about an agent into signed, versioned artifacts and
// validating such artifacts on a receiving chain. Signing and signature
// checking are delegated to Signer and Extractor collaborators; the
// verifier trusts the Extractor's validSignature verdict and only enforces
// schema, type and origin.
package proof

import (
	"context"
	"errors"
	"time"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/notify"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/registry"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/validation"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/wire"
)

var (
	ErrAgentNotFound          = errors.New("AGENT_NOT_FOUND")
	ErrRequestNotFound        = errors.New("REQUEST_NOT_FOUND")
	ErrInvalidOrUnsignedProof = errors.New("INVALID_OR_UNSIGNED_PROOF")
	ErrUnexpectedSchema       = errors.New("UNEXPECTED_SCHEMA")
	ErrUnexpectedProofType    = errors.New("UNEXPECTED_PROOF_TYPE")
	ErrWrongSourceChain       = errors.New("WRONG_SOURCE_CHAIN")
	ErrWrongOriginSender      = errors.New("WRONG_ORIGIN_SENDER")
)

// Signer is the external signing service. It receives an encoded payload
// and returns the id of the signed artifact it produced.
type Signer interface {
	Sign(ctx context.Context, payload []byte) (artifactID string, err error)
}

// ValidationReader is the slice of the validation store the emitter needs.
type ValidationReader interface {
	Get(requestHash [32]byte) (validation.Request, error)
}

// Emitter builds proof payloads from the ledger's current state and hands
// them to the signing service.
type Emitter struct {
	chain    types.ChainID
	registry registry.Identity
	feedback FeedbackSummarizer
	requests ValidationReader
	signer   Signer
	events   notify.Sink
	now      func() time.Time
}

// FeedbackSummarizer matches the reputation ledger's aggregation entry
// point.
type FeedbackSummarizer interface {
	Summarize(agent types.AgentID, authors []types.Address, tag1, tag2 string) types.Summary
}

type EmitterConfig struct {
	Chain    types.ChainID
	Registry registry.Identity
	Feedback FeedbackSummarizer
	Requests ValidationReader
	Signer   Signer
	Events   notify.Sink
}

func NewEmitter(cfg EmitterConfig) *Emitter {
	events := cfg.Events
	if events == nil {
		events = notify.Discard
	}
	return &Emitter{
		chain:    cfg.Chain,
		registry: cfg.Registry,
		feedback: cfg.Feedback,
		requests: cfg.Requests,
		signer:   cfg.Signer,
		events:   events,
		now:      time.Now,
	}
}

// EmitIdentityProof packages the agent's current owner and endpoint.
func (e *Emitter) EmitIdentityProof(ctx context.Context, agent types.AgentID) (string, error) {
	if !e.registry.AgentExists(agent) {
		return "", ErrAgentNotFound
	}
	owner, err := e.registry.OwnerOf(agent)
	if err != nil {
		return "", err
	}
	endpoint, err := e.registry.EndpointOf(agent)
	if err != nil {
		return "", err
	}
	return e.emit(ctx, wire.ProofPayload{
		SchemaVersion: wire.SchemaVersion,
		Type:          wire.ProofIdentity,
		Agent:         agent,
		Owner:         owner,
		Endpoint:      endpoint,
		Timestamp:     uint64(e.now().UTC().Unix()),
	})
}

// EmitReputationProof packages the aggregation-engine result for an empty
// author set. Per the empty-set rule that summary is always {0,0,0}; the
// behavior is kept as-is rather than substituting a full-ledger
// enumeration.
func (e *Emitter) EmitReputationProof(ctx context.Context, agent types.AgentID) (string, error) {
	summary := e.feedback.Summarize(agent, nil, "", "")
	return e.emit(ctx, wire.ProofPayload{
		SchemaVersion: wire.SchemaVersion,
		Type:          wire.ProofReputation,
		Agent:         agent,
		Count:         summary.Count,
		Value:         summary.Value,
		Scale:         summary.Scale,
		Timestamp:     uint64(e.now().UTC().Unix()),
	})
}

// EmitValidationProof packages one validation request's outcome.
func (e *Emitter) EmitValidationProof(ctx context.Context, agent types.AgentID, requestHash [32]byte) (string, error) {
	req, err := e.requests.Get(requestHash)
	if err != nil {
		return "", ErrRequestNotFound
	}
	return e.emit(ctx, wire.ProofPayload{
		SchemaVersion: wire.SchemaVersion,
		Type:          wire.ProofValidation,
		Agent:         agent,
		Validator:     req.Validator,
		Response:      uint8(req.Response),
		Tag:           req.Tag,
		RequestHash:   requestHash,
		Timestamp:     uint64(e.now().UTC().Unix()),
	})
}

func (e *Emitter) emit(ctx context.Context, p wire.ProofPayload) (string, error) {
	encoded, err := p.Encode()
	if err != nil {
		return "", err
	}
	artifactID, err := e.signer.Sign(ctx, encoded)
	if err != nil {
		return "", err
	}
	e.events.Emit(ctx, notify.NewEvent(notify.EventProofEmitted, map[string]any{
		"artifact_id": artifactID,
		"proof_type":  p.Type.String(),
		"agent_id":    p.Agent.String(),
	}))
	return artifactID, nil
}
