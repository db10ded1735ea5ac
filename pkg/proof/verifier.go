package proof

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/notify"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/wire"
)

// Extracted is what the execution environment's proof primitive yields for
// an artifact: its claimed origin and whether the signature held.
type Extracted struct {
	SourceChain    types.ChainID
	OriginSender   types.Address
	Payload        []byte
	ValidSignature bool
}

// Extractor unwraps a raw artifact. The signature check happens here, not
// in the verifier.
type Extractor interface {
	Extract(artifact []byte) (Extracted, error)
}

// IdentityClaim is a cached, verified identity fact.
type IdentityClaim struct {
	Agent    types.AgentID
	Owner    types.Address
	Endpoint string
	ProvenAt time.Time
	Verified bool
}

// ReputationClaim is a cached, verified reputation fact.
type ReputationClaim struct {
	Agent    types.AgentID
	Count    uint64
	Value    *big.Int
	Scale    uint8
	ProvenAt time.Time
	Verified bool
}

// ValidationClaim is a cached, verified validation outcome.
type ValidationClaim struct {
	Agent       types.AgentID
	Validator   types.Address
	Response    uint8
	Tag         string
	RequestHash [32]byte
	ProvenAt    time.Time
	Verified    bool
}

type validationKey struct {
	agent     types.AgentID
	validator types.Address
}

// Verifier accepts proof artifacts from one configured authoritative
// chain/emitter pair and caches the decoded facts. The cache is
// last-write-wins: a later artifact replaces an earlier one even when its
// timestamp is older. Consumers needing freshness use ProofAge.
type Verifier struct {
	sourceChain  types.ChainID
	originSender types.Address
	extractor    Extractor
	events       notify.Sink

	mu          sync.Mutex
	identities  map[types.AgentID]IdentityClaim
	reputations map[types.AgentID]ReputationClaim
	validations map[validationKey]ValidationClaim
}

type VerifierConfig struct {
	SourceChain  types.ChainID
	OriginSender types.Address
	Extractor    Extractor
	Events       notify.Sink
}

func NewVerifier(cfg VerifierConfig) *Verifier {
	events := cfg.Events
	if events == nil {
		events = notify.Discard
	}
	return &Verifier{
		sourceChain:  cfg.SourceChain,
		originSender: cfg.OriginSender,
		extractor:    cfg.Extractor,
		events:       events,
		identities:   make(map[types.AgentID]IdentityClaim),
		reputations:  make(map[types.AgentID]ReputationClaim),
		validations:  make(map[validationKey]ValidationClaim),
	}
}

// VerifyIdentityProof validates and caches an identity artifact, returning
// the agent it proves.
func (v *Verifier) VerifyIdentityProof(ctx context.Context, artifact []byte) (types.AgentID, error) {
	p, err := v.accept(artifact, wire.ProofIdentity)
	if err != nil {
		return types.ZeroAgentID, err
	}
	claim := IdentityClaim{
		Agent:    p.Agent,
		Owner:    p.Owner,
		Endpoint: p.Endpoint,
		ProvenAt: time.Unix(int64(p.Timestamp), 0).UTC(),
		Verified: true,
	}
	v.mu.Lock()
	v.identities[p.Agent] = claim
	v.mu.Unlock()
	v.emitVerified(ctx, p)
	return p.Agent, nil
}

// VerifyReputationProof validates and caches a reputation artifact.
func (v *Verifier) VerifyReputationProof(ctx context.Context, artifact []byte) (types.AgentID, error) {
	p, err := v.accept(artifact, wire.ProofReputation)
	if err != nil {
		return types.ZeroAgentID, err
	}
	claim := ReputationClaim{
		Agent:    p.Agent,
		Count:    p.Count,
		Value:    new(big.Int).Set(p.Value),
		Scale:    p.Scale,
		ProvenAt: time.Unix(int64(p.Timestamp), 0).UTC(),
		Verified: true,
	}
	v.mu.Lock()
	v.reputations[p.Agent] = claim
	v.mu.Unlock()
	v.emitVerified(ctx, p)
	return p.Agent, nil
}

// VerifyValidationProof validates and caches a validation artifact, keyed
// by (agent, validator).
func (v *Verifier) VerifyValidationProof(ctx context.Context, artifact []byte) (types.AgentID, error) {
	p, err := v.accept(artifact, wire.ProofValidation)
	if err != nil {
		return types.ZeroAgentID, err
	}
	claim := ValidationClaim{
		Agent:       p.Agent,
		Validator:   p.Validator,
		Response:    p.Response,
		Tag:         p.Tag,
		RequestHash: p.RequestHash,
		ProvenAt:    time.Unix(int64(p.Timestamp), 0).UTC(),
		Verified:    true,
	}
	v.mu.Lock()
	v.validations[validationKey{agent: p.Agent, validator: p.Validator}] = claim
	v.mu.Unlock()
	v.emitVerified(ctx, p)
	return p.Agent, nil
}

// accept runs the checks shared by every proof type: signature verdict,
// schema version, type tag, and the configured origin pair.
func (v *Verifier) accept(artifact []byte, want wire.ProofType) (wire.ProofPayload, error) {
	ext, err := v.extractor.Extract(artifact)
	if err != nil {
		return wire.ProofPayload{}, ErrInvalidOrUnsignedProof
	}
	if !ext.ValidSignature {
		return wire.ProofPayload{}, ErrInvalidOrUnsignedProof
	}
	p, err := wire.DecodeProofPayload(ext.Payload)
	if err != nil {
		return wire.ProofPayload{}, ErrInvalidOrUnsignedProof
	}
	if p.SchemaVersion != wire.SchemaVersion {
		return wire.ProofPayload{}, ErrUnexpectedSchema
	}
	if p.Type != want {
		return wire.ProofPayload{}, ErrUnexpectedProofType
	}
	if ext.SourceChain != v.sourceChain {
		return wire.ProofPayload{}, ErrWrongSourceChain
	}
	if ext.OriginSender != v.originSender {
		return wire.ProofPayload{}, ErrWrongOriginSender
	}
	return p, nil
}

func (v *Verifier) emitVerified(ctx context.Context, p wire.ProofPayload) {
	v.events.Emit(ctx, notify.NewEvent(notify.EventProofVerified, map[string]any{
		"proof_type": p.Type.String(),
		"agent_id":   p.Agent.String(),
		"proven_at":  p.Timestamp,
	}))
}

// Identity returns the cached identity claim for an agent.
func (v *Verifier) Identity(agent types.AgentID) (IdentityClaim, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.identities[agent]
	return c, ok
}

// Reputation returns the cached reputation claim for an agent.
func (v *Verifier) Reputation(agent types.AgentID) (ReputationClaim, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.reputations[agent]
	return c, ok
}

// Validations returns every cached validation claim for an agent.
func (v *Verifier) Validations(agent types.AgentID) []ValidationClaim {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []ValidationClaim
	for k, c := range v.validations {
		if k.agent == agent {
			out = append(out, c)
		}
	}
	return out
}

// Validation returns the cached validation claim for (agent, validator).
func (v *Verifier) Validation(agent types.AgentID, validator types.Address) (ValidationClaim, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.validations[validationKey{agent: agent, validator: validator}]
	return c, ok
}

// IsVerified reports whether a claim of the given type is cached for the
// agent.
func (v *Verifier) IsVerified(t wire.ProofType, agent types.AgentID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch t {
	case wire.ProofIdentity:
		c, ok := v.identities[agent]
		return ok && c.Verified
	case wire.ProofReputation:
		c, ok := v.reputations[agent]
		return ok && c.Verified
	case wire.ProofValidation:
		for k, c := range v.validations {
			if k.agent == agent && c.Verified {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// ProofAge returns how old the cached claim of the given type is at now.
// For validation claims, which are keyed per validator, the age of the most
// recently proven claim is reported.
func (v *Verifier) ProofAge(t wire.ProofType, agent types.AgentID, now time.Time) (time.Duration, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var provenAt time.Time
	switch t {
	case wire.ProofIdentity:
		c, ok := v.identities[agent]
		if !ok {
			return 0, false
		}
		provenAt = c.ProvenAt
	case wire.ProofReputation:
		c, ok := v.reputations[agent]
		if !ok {
			return 0, false
		}
		provenAt = c.ProvenAt
	case wire.ProofValidation:
		found := false
		for k, c := range v.validations {
			if k.agent != agent {
				continue
			}
			if !found || c.ProvenAt.After(provenAt) {
				provenAt = c.ProvenAt
				found = true
			}
		}
		if !found {
			return 0, false
		}
	default:
		return 0, false
	}
	return now.Sub(provenAt), true
}

// MeetsReputationThreshold reports whether the cached reputation value for
// the agent is at least minScore. Absent claim means no.
func (v *Verifier) MeetsReputationThreshold(agent types.AgentID, minScore *big.Int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.reputations[agent]
	if !ok || !c.Verified {
		return false
	}
	return c.Value.Cmp(minScore) >= 0
}
