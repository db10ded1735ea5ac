package wire

import (
	"errors"
	"math/big"
	"testing"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
)

func corr(b byte) (c [32]byte) {
	c[0] = b
	return c
}

func TestQueryIdentityRoundTrip(t *testing.T) {
	in := QueryIdentity{Correlation: corr(1), Agent: types.AgentIDFromUint64(42)}
	frame, err := in.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got, err := PeekType(frame); err != nil || got != TypeQueryIdentity {
		t.Fatalf("peek: %v %v", got, err)
	}
	out, err := DecodeQueryIdentity(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestIdentityResultRoundTrip(t *testing.T) {
	owner, _ := types.ParseAddress("0x00000000000000000000000000000000000000aa")
	in := IdentityResult{
		Correlation:   corr(2),
		Exists:        true,
		Owner:         owner,
		URI:           "https://agent.example/card.json",
		Score:         big.NewInt(-1500),
		FeedbackCount: 9,
	}
	frame, err := in.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeIdentityResult(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Exists != in.Exists || out.Owner != in.Owner || out.URI != in.URI || out.FeedbackCount != in.FeedbackCount {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if out.Score.Cmp(in.Score) != 0 {
		t.Fatalf("score mismatch: %s != %s", out.Score, in.Score)
	}
}

func TestQueryReputationRoundTrip(t *testing.T) {
	var p1, p2 types.Address
	p1[19], p2[19] = 1, 2
	in := QueryReputation{
		Correlation: corr(3),
		Agent:       types.AgentIDFromUint64(7),
		Principals:  []types.Address{p1, p2},
		Tag1:        "quality",
		Tag2:        "",
	}
	frame, err := in.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeQueryReputation(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Principals) != 2 || out.Principals[0] != p1 || out.Principals[1] != p2 {
		t.Fatalf("principals mismatch: %+v", out.Principals)
	}
	if out.Tag1 != "quality" || out.Tag2 != "" {
		t.Fatalf("tags mismatch: %+v", out)
	}
}

func TestReputationResultNegativeValue(t *testing.T) {
	in := ReputationResult{Correlation: corr(4), Count: 3, Value: big.NewInt(-42)}
	frame, err := in.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeReputationResult(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 3 || out.Value.Cmp(big.NewInt(-42)) != 0 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestDecodeRejectsTruncationAndTrailingBytes(t *testing.T) {
	frame, err := QueryIdentity{Correlation: corr(5), Agent: types.AgentIDFromUint64(1)}.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeQueryIdentity(frame[:len(frame)-1]); !errors.Is(err, ErrShortMessage) {
		t.Fatalf("expected ErrShortMessage, got %v", err)
	}
	if _, err := DecodeQueryIdentity(append(frame, 0x00)); !errors.Is(err, ErrTrailingBytes) {
		t.Fatalf("expected ErrTrailingBytes, got %v", err)
	}
	if _, err := DecodeIdentityResult(frame); !errors.Is(err, ErrUnknownMessageType) {
		t.Fatalf("expected ErrUnknownMessageType, got %v", err)
	}
	if _, err := PeekType([]byte{99}); !errors.Is(err, ErrUnknownMessageType) {
		t.Fatalf("expected ErrUnknownMessageType, got %v", err)
	}
	if _, err := PeekType(nil); !errors.Is(err, ErrShortMessage) {
		t.Fatalf("expected ErrShortMessage, got %v", err)
	}
}

func TestDecodeRejectsBadBool(t *testing.T) {
	frame, err := IdentityResult{Correlation: corr(6), Score: big.NewInt(0)}.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	frame[33] = 2 // exists flag
	if _, err := DecodeIdentityResult(frame); !errors.Is(err, ErrBadBool) {
		t.Fatalf("expected ErrBadBool, got %v", err)
	}
}

func TestEncodeRejectsInt128Overflow(t *testing.T) {
	too := new(big.Int).Lsh(big.NewInt(1), 127)
	_, err := ReputationResult{Correlation: corr(7), Count: 1, Value: too}.Encode()
	if !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("expected ErrValueOutOfRange, got %v", err)
	}
	ok := new(big.Int).Sub(too, big.NewInt(1))
	if _, err := (ReputationResult{Correlation: corr(7), Count: 1, Value: ok}).Encode(); err != nil {
		t.Fatalf("max int128 should encode: %v", err)
	}
}

func TestProofPayloadRoundTrips(t *testing.T) {
	var owner, validator types.Address
	owner[19], validator[19] = 0xaa, 0xbb

	identity := ProofPayload{
		SchemaVersion: SchemaVersion,
		Type:          ProofIdentity,
		Agent:         types.AgentIDFromUint64(1),
		Owner:         owner,
		Endpoint:      "https://agent.example",
		Timestamp:     1700000000,
	}
	b, err := identity.Encode()
	if err != nil {
		t.Fatalf("encode identity: %v", err)
	}
	out, err := DecodeProofPayload(b)
	if err != nil {
		t.Fatalf("decode identity: %v", err)
	}
	if out.Type != ProofIdentity || out.Owner != owner || out.Endpoint != identity.Endpoint || out.Timestamp != identity.Timestamp {
		t.Fatalf("identity mismatch: %+v", out)
	}

	reputationP := ProofPayload{
		SchemaVersion: SchemaVersion,
		Type:          ProofReputation,
		Agent:         types.AgentIDFromUint64(2),
		Count:         4,
		Value:         big.NewInt(-77),
		Scale:         3,
		Timestamp:     1700000001,
	}
	b, err = reputationP.Encode()
	if err != nil {
		t.Fatalf("encode reputation: %v", err)
	}
	out, err = DecodeProofPayload(b)
	if err != nil {
		t.Fatalf("decode reputation: %v", err)
	}
	if out.Count != 4 || out.Value.Cmp(big.NewInt(-77)) != 0 || out.Scale != 3 {
		t.Fatalf("reputation mismatch: %+v", out)
	}

	var reqHash [32]byte
	reqHash[0] = 0xff
	validationP := ProofPayload{
		SchemaVersion: SchemaVersion,
		Type:          ProofValidation,
		Agent:         types.AgentIDFromUint64(3),
		Validator:     validator,
		Response:      2,
		Tag:           "safety",
		RequestHash:   reqHash,
		Timestamp:     1700000002,
	}
	b, err = validationP.Encode()
	if err != nil {
		t.Fatalf("encode validation: %v", err)
	}
	out, err = DecodeProofPayload(b)
	if err != nil {
		t.Fatalf("decode validation: %v", err)
	}
	if out.Validator != validator || out.Response != 2 || out.Tag != "safety" || out.RequestHash != reqHash {
		t.Fatalf("validation mismatch: %+v", out)
	}
}

func TestProofPayloadRejectsUnknownType(t *testing.T) {
	p := ProofPayload{SchemaVersion: SchemaVersion, Type: ProofType(9)}
	if _, err := p.Encode(); !errors.Is(err, ErrUnknownMessageType) {
		t.Fatalf("expected ErrUnknownMessageType, got %v", err)
	}
	b, err := ProofPayload{SchemaVersion: SchemaVersion, Type: ProofIdentity, Timestamp: 1}.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b[1] = 9 // type tag
	if _, err := DecodeProofPayload(b); !errors.Is(err, ErrUnknownMessageType) {
		t.Fatalf("expected ErrUnknownMessageType, got %v", err)
	}
}

func TestProofPayloadRejectsOversizedTimestamp(t *testing.T) {
	b, err := ProofPayload{SchemaVersion: SchemaVersion, Type: ProofIdentity, Timestamp: 1}.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// The trailing 32 bytes carry the timestamp; set a byte above the
	// low 8 so the value no longer fits in a uint64.
	b[len(b)-9] = 1
	if _, err := DecodeProofPayload(b); !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("expected ErrValueOutOfRange, got %v", err)
	}
	b[len(b)-9] = 0
	b[len(b)-32] = 0xff // most significant byte
	if _, err := DecodeProofPayload(b); !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("expected ErrValueOutOfRange, got %v", err)
	}
}
