package proof

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/notify"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/registry"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/reputation"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/validation"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/wire"
)

const sourceChain = types.ChainID(43114)

func addr(b byte) (a types.Address) {
	a[19] = b
	return a
}

type fixture struct {
	registry   *registry.Ledger
	reputation *reputation.Ledger
	requests   *validation.Store
	signer     *LocalSigner
	emitter    *Emitter
	verifier   *Verifier
	events     *notify.MemorySink
	origin     types.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	f := &fixture{
		registry:   registry.NewLedger(),
		reputation: reputation.NewLedger(),
		requests:   validation.NewStore(),
		events:     &notify.MemorySink{},
		origin:     addr(0xee),
	}
	f.signer = NewLocalSigner(sourceChain, f.origin, priv)
	f.emitter = NewEmitter(EmitterConfig{
		Chain:    sourceChain,
		Registry: f.registry,
		Feedback: f.reputation,
		Requests: f.requests,
		Signer:   f.signer,
		Events:   f.events,
	})
	f.verifier = NewVerifier(VerifierConfig{
		SourceChain:  sourceChain,
		OriginSender: f.origin,
		Extractor:    &LocalExtractor{},
		Events:       f.events,
	})
	return f
}

func (f *fixture) artifact(t *testing.T, artifactID string) []byte {
	t.Helper()
	b, err := f.signer.ArtifactBytes(artifactID)
	require.NoError(t, err)
	return b
}

func TestEmitAndVerifyIdentityProof(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	agent := types.AgentIDFromUint64(1)
	owner := addr(0x01)
	require.NoError(t, f.registry.Register(agent, owner, "https://agent.example/card.json"))
	require.NoError(t, f.registry.SetEndpoint(owner, agent, "https://agent.example/a2a"))

	id, err := f.emitter.EmitIdentityProof(ctx, agent)
	require.NoError(t, err)

	got, err := f.verifier.VerifyIdentityProof(ctx, f.artifact(t, id))
	require.NoError(t, err)
	require.Equal(t, agent, got)

	claim, ok := f.verifier.Identity(agent)
	require.True(t, ok)
	require.Equal(t, owner, claim.Owner)
	require.Equal(t, "https://agent.example/a2a", claim.Endpoint)
	require.True(t, claim.Verified)
	require.True(t, f.verifier.IsVerified(wire.ProofIdentity, agent))

	require.Len(t, f.events.ByType(notify.EventProofEmitted), 1)
	require.Len(t, f.events.ByType(notify.EventProofVerified), 1)
}

func TestEmitIdentityProofUnknownAgent(t *testing.T) {
	f := newFixture(t)
	_, err := f.emitter.EmitIdentityProof(context.Background(), types.AgentIDFromUint64(404))
	require.ErrorIs(t, err, ErrAgentNotFound)
}

func TestReputationProofCarriesEmptySetSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	agent := types.AgentIDFromUint64(2)
	require.NoError(t, f.registry.Register(agent, addr(0x01), "uri"))
	_, err := f.reputation.Give(addr(0x02), agent, big.NewInt(500), 2, "quality", "", "", nil, nil)
	require.NoError(t, err)

	id, err := f.emitter.EmitReputationProof(ctx, agent)
	require.NoError(t, err)
	_, err = f.verifier.VerifyReputationProof(ctx, f.artifact(t, id))
	require.NoError(t, err)

	// The summary is taken over an empty author set, so the claim is zero
	// even though the ledger holds feedback.
	claim, ok := f.verifier.Reputation(agent)
	require.True(t, ok)
	require.Zero(t, claim.Count)
	require.Zero(t, claim.Value.Sign())
	require.Zero(t, claim.Scale)
}

func TestEmitAndVerifyValidationProof(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	agent := types.AgentIDFromUint64(3)
	validator := addr(0x05)
	var reqHash [32]byte
	reqHash[0] = 0x42
	require.NoError(t, f.requests.Create(addr(0x04), validator, agent, "ref-1", reqHash))
	require.NoError(t, f.requests.Respond(validator, reqHash, validation.Approved, "resp-1", "safety"))

	id, err := f.emitter.EmitValidationProof(ctx, agent, reqHash)
	require.NoError(t, err)
	_, err = f.verifier.VerifyValidationProof(ctx, f.artifact(t, id))
	require.NoError(t, err)

	claim, ok := f.verifier.Validation(agent, validator)
	require.True(t, ok)
	require.Equal(t, uint8(validation.Approved), claim.Response)
	require.Equal(t, "safety", claim.Tag)
	require.Equal(t, reqHash, claim.RequestHash)
	require.Len(t, f.verifier.Validations(agent), 1)
}

func TestValidationClaimsAnswerTypeAccessors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	agent := types.AgentIDFromUint64(7)
	validator := addr(0x05)
	var reqHash [32]byte
	reqHash[0] = 0x07
	require.NoError(t, f.requests.Create(addr(0x04), validator, agent, "ref-1", reqHash))
	require.NoError(t, f.requests.Respond(validator, reqHash, validation.Approved, "", ""))

	require.False(t, f.verifier.IsVerified(wire.ProofValidation, agent))
	_, ok := f.verifier.ProofAge(wire.ProofValidation, agent, time.Now())
	require.False(t, ok)

	id, err := f.emitter.EmitValidationProof(ctx, agent, reqHash)
	require.NoError(t, err)
	_, err = f.verifier.VerifyValidationProof(ctx, f.artifact(t, id))
	require.NoError(t, err)

	require.True(t, f.verifier.IsVerified(wire.ProofValidation, agent))
	age, ok := f.verifier.ProofAge(wire.ProofValidation, agent, time.Now().Add(time.Minute))
	require.True(t, ok)
	require.Greater(t, age, time.Duration(0))
	require.False(t, f.verifier.IsVerified(wire.ProofValidation, types.AgentIDFromUint64(8)))
}

func TestEmitValidationProofUnknownRequest(t *testing.T) {
	f := newFixture(t)
	var reqHash [32]byte
	_, err := f.emitter.EmitValidationProof(context.Background(), types.AgentIDFromUint64(1), reqHash)
	require.ErrorIs(t, err, ErrRequestNotFound)
}

func TestVerifyRejectsMalformedArtifact(t *testing.T) {
	f := newFixture(t)
	_, err := f.verifier.VerifyIdentityProof(context.Background(), []byte("not json"))
	require.ErrorIs(t, err, ErrInvalidOrUnsignedProof)
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	agent := types.AgentIDFromUint64(1)
	require.NoError(t, f.registry.Register(agent, addr(0x01), "uri"))
	id, err := f.emitter.EmitIdentityProof(ctx, agent)
	require.NoError(t, err)

	art, ok := f.signer.Artifact(id)
	require.True(t, ok)
	art.Signature = art.PublicKey // still base64, wrong bytes
	raw, err := json.Marshal(art)
	require.NoError(t, err)

	_, err = f.verifier.VerifyIdentityProof(ctx, raw)
	require.ErrorIs(t, err, ErrInvalidOrUnsignedProof)
	require.False(t, f.verifier.IsVerified(wire.ProofIdentity, agent))
}

func TestVerifyRejectsUntrustedKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	trustedPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	strict := NewVerifier(VerifierConfig{
		SourceChain:  sourceChain,
		OriginSender: f.origin,
		Extractor:    &LocalExtractor{TrustedKeys: []ed25519.PublicKey{trustedPub}},
	})

	agent := types.AgentIDFromUint64(1)
	require.NoError(t, f.registry.Register(agent, addr(0x01), "uri"))
	id, err := f.emitter.EmitIdentityProof(ctx, agent)
	require.NoError(t, err)

	_, err = strict.VerifyIdentityProof(ctx, f.artifact(t, id))
	require.ErrorIs(t, err, ErrInvalidOrUnsignedProof)
}

func TestVerifyRejectsWrongTypeSchemaAndOrigin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	agent := types.AgentIDFromUint64(1)
	require.NoError(t, f.registry.Register(agent, addr(0x01), "uri"))
	id, err := f.emitter.EmitIdentityProof(ctx, agent)
	require.NoError(t, err)
	raw := f.artifact(t, id)

	// Identity artifact offered as a reputation proof.
	_, err = f.verifier.VerifyReputationProof(ctx, raw)
	require.ErrorIs(t, err, ErrUnexpectedProofType)

	// Schema version the verifier does not speak.
	payload, err := wire.ProofPayload{
		SchemaVersion: wire.SchemaVersion + 1,
		Type:          wire.ProofIdentity,
		Agent:         agent,
		Timestamp:     1,
	}.Encode()
	require.NoError(t, err)
	badSchemaID, err := f.signer.Sign(ctx, payload)
	require.NoError(t, err)
	_, err = f.verifier.VerifyIdentityProof(ctx, f.artifact(t, badSchemaID))
	require.ErrorIs(t, err, ErrUnexpectedSchema)

	// Artifact from the wrong chain or sender.
	wrongChain := NewVerifier(VerifierConfig{SourceChain: sourceChain + 1, OriginSender: f.origin, Extractor: &LocalExtractor{}})
	_, err = wrongChain.VerifyIdentityProof(ctx, raw)
	require.ErrorIs(t, err, ErrWrongSourceChain)

	wrongSender := NewVerifier(VerifierConfig{SourceChain: sourceChain, OriginSender: addr(0x99), Extractor: &LocalExtractor{}})
	_, err = wrongSender.VerifyIdentityProof(ctx, raw)
	require.ErrorIs(t, err, ErrWrongOriginSender)
}

func TestProofCacheIsLastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	agent := types.AgentIDFromUint64(1)
	newer, err := wire.ProofPayload{
		SchemaVersion: wire.SchemaVersion,
		Type:          wire.ProofIdentity,
		Agent:         agent,
		Owner:         addr(0x01),
		Timestamp:     2000,
	}.Encode()
	require.NoError(t, err)
	older, err := wire.ProofPayload{
		SchemaVersion: wire.SchemaVersion,
		Type:          wire.ProofIdentity,
		Agent:         agent,
		Owner:         addr(0x02),
		Timestamp:     1000,
	}.Encode()
	require.NoError(t, err)

	newerID, err := f.signer.Sign(ctx, newer)
	require.NoError(t, err)
	olderID, err := f.signer.Sign(ctx, older)
	require.NoError(t, err)

	_, err = f.verifier.VerifyIdentityProof(ctx, f.artifact(t, newerID))
	require.NoError(t, err)
	// An artifact with an older timestamp still replaces the cached claim.
	_, err = f.verifier.VerifyIdentityProof(ctx, f.artifact(t, olderID))
	require.NoError(t, err)

	claim, ok := f.verifier.Identity(agent)
	require.True(t, ok)
	require.Equal(t, addr(0x02), claim.Owner)
	require.Equal(t, time.Unix(1000, 0).UTC(), claim.ProvenAt)

	age, ok := f.verifier.ProofAge(wire.ProofIdentity, agent, time.Unix(4600, 0))
	require.True(t, ok)
	require.Equal(t, time.Hour, age)
}

func TestMeetsReputationThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	agent := types.AgentIDFromUint64(1)
	require.False(t, f.verifier.MeetsReputationThreshold(agent, big.NewInt(0)))

	payload, err := wire.ProofPayload{
		SchemaVersion: wire.SchemaVersion,
		Type:          wire.ProofReputation,
		Agent:         agent,
		Count:         3,
		Value:         big.NewInt(150),
		Scale:         0,
		Timestamp:     1,
	}.Encode()
	require.NoError(t, err)
	id, err := f.signer.Sign(ctx, payload)
	require.NoError(t, err)
	_, err = f.verifier.VerifyReputationProof(ctx, f.artifact(t, id))
	require.NoError(t, err)

	require.True(t, f.verifier.MeetsReputationThreshold(agent, big.NewInt(150)))
	require.True(t, f.verifier.MeetsReputationThreshold(agent, big.NewInt(-10)))
	require.False(t, f.verifier.MeetsReputationThreshold(agent, big.NewInt(151)))
}
