package proof

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
)

// Artifact is the local artifact envelope produced by LocalSigner: the raw
// payload plus its origin and an ed25519 signature over the payload. On a
// real deployment the envelope and its verification come from the
// execution environment; this pair exists for development, the CLI, and
// tests.
type Artifact struct {
	ArtifactID   string `json:"artifact_id"`
	SourceChain  uint64 `json:"source_chain"`
	OriginSender string `json:"origin_sender"`
	Payload      string `json:"payload"`    // base64 std
	Signature    string `json:"signature"`  // base64 std, ed25519 over raw payload
	PublicKey    string `json:"public_key"` // base64 std
}

var ErrMalformedArtifact = errors.New("MALFORMED_ARTIFACT")

// LocalSigner signs payloads with an in-process ed25519 key and remembers
// every artifact it produced, addressable by artifact id.
type LocalSigner struct {
	chain  types.ChainID
	sender types.Address
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey

	mu        sync.Mutex
	artifacts map[string]Artifact
}

func NewLocalSigner(chain types.ChainID, sender types.Address, priv ed25519.PrivateKey) *LocalSigner {
	return &LocalSigner{
		chain:     chain,
		sender:    sender,
		priv:      priv,
		pub:       priv.Public().(ed25519.PublicKey),
		artifacts: make(map[string]Artifact),
	}
}

func (s *LocalSigner) Sign(_ context.Context, payload []byte) (string, error) {
	sig := ed25519.Sign(s.priv, payload)
	art := Artifact{
		ArtifactID:   "art_" + uuid.NewString(),
		SourceChain:  uint64(s.chain),
		OriginSender: s.sender.String(),
		Payload:      base64.StdEncoding.EncodeToString(payload),
		Signature:    base64.StdEncoding.EncodeToString(sig),
		PublicKey:    base64.StdEncoding.EncodeToString(s.pub),
	}
	s.mu.Lock()
	s.artifacts[art.ArtifactID] = art
	s.mu.Unlock()
	return art.ArtifactID, nil
}

// Artifact returns a previously signed artifact by id.
func (s *LocalSigner) Artifact(artifactID string) (Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[artifactID]
	return a, ok
}

// ArtifactBytes returns the JSON encoding of a signed artifact.
func (s *LocalSigner) ArtifactBytes(artifactID string) ([]byte, error) {
	a, ok := s.Artifact(artifactID)
	if !ok {
		return nil, ErrMalformedArtifact
	}
	return json.Marshal(a)
}

// LocalExtractor unwraps LocalSigner artifacts. A decodable envelope with
// a bad signature yields ValidSignature=false rather than an error, so the
// verifier's own rejection path is exercised.
type LocalExtractor struct {
	// TrustedKeys restricts which signing keys count as valid. Empty
	// means any well-formed key.
	TrustedKeys []ed25519.PublicKey
}

func (x *LocalExtractor) Extract(artifact []byte) (Extracted, error) {
	var a Artifact
	dec := json.NewDecoder(strings.NewReader(string(artifact)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return Extracted{}, ErrMalformedArtifact
	}
	payload, err := base64.StdEncoding.DecodeString(a.Payload)
	if err != nil {
		return Extracted{}, ErrMalformedArtifact
	}
	sig, err := base64.StdEncoding.DecodeString(a.Signature)
	if err != nil {
		return Extracted{}, ErrMalformedArtifact
	}
	pub, err := base64.StdEncoding.DecodeString(a.PublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return Extracted{}, ErrMalformedArtifact
	}
	sender, err := types.ParseAddress(a.OriginSender)
	if err != nil {
		return Extracted{}, ErrMalformedArtifact
	}

	valid := len(sig) == ed25519.SignatureSize && ed25519.Verify(ed25519.PublicKey(pub), payload, sig)
	if valid && len(x.TrustedKeys) > 0 {
		valid = false
		for _, k := range x.TrustedKeys {
			if ed25519.PublicKey(pub).Equal(k) {
				valid = true
				break
			}
		}
	}
	return Extracted{
		SourceChain:    types.ChainID(a.SourceChain),
		OriginSender:   sender,
		Payload:        payload,
		ValidSignature: valid,
	}, nil
}
