package wire

import (
	"math/big"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
)

// SchemaVersion is carried in every push payload for forward compatibility.
const SchemaVersion uint8 = 1

// ProofType tags the fact a push payload asserts.
type ProofType uint8

const (
	ProofIdentity   ProofType = 1
	ProofReputation ProofType = 2
	ProofValidation ProofType = 3
)

func (t ProofType) String() string {
	switch t {
	case ProofIdentity:
		return "IDENTITY"
	case ProofReputation:
		return "REPUTATION"
	case ProofValidation:
		return "VALIDATION"
	default:
		return "UNKNOWN"
	}
}

// ProofPayload is the versioned, typed body of a push artifact. Timestamp
// travels as a 32-byte unsigned integer of unix seconds.
type ProofPayload struct {
	SchemaVersion uint8
	Type          ProofType
	Agent         types.AgentID

	// Identity fields.
	Owner    types.Address
	Endpoint string

	// Reputation fields.
	Count uint64
	Value *big.Int // int128
	Scale uint8

	// Validation fields.
	Validator   types.Address
	Response    uint8
	Tag         string
	RequestHash [32]byte

	Timestamp uint64
}

func (p ProofPayload) Encode() ([]byte, error) {
	w := &writer{}
	w.u8(p.SchemaVersion)
	w.u8(uint8(p.Type))
	w.bytes(p.Agent[:])
	switch p.Type {
	case ProofIdentity:
		w.bytes(p.Owner[:])
		w.str16(p.Endpoint)
	case ProofReputation:
		w.u64(p.Count)
		w.signed(p.Value, 16)
		w.u8(p.Scale)
	case ProofValidation:
		w.bytes(p.Validator[:])
		w.u8(p.Response)
		w.str16(p.Tag)
		w.bytes(p.RequestHash[:])
	default:
		return nil, ErrUnknownMessageType
	}
	w.bytes(timestamp256(p.Timestamp))
	return w.buf, w.err
}

// DecodeProofPayload decodes any push payload; the caller checks schema
// version and proof type against its own expectations.
func DecodeProofPayload(b []byte) (ProofPayload, error) {
	r := &reader{buf: b}
	p := ProofPayload{SchemaVersion: r.u8(), Type: ProofType(r.u8()), Agent: r.agentID()}
	switch p.Type {
	case ProofIdentity:
		p.Owner = r.address()
		p.Endpoint = r.str16()
	case ProofReputation:
		p.Count = r.u64()
		p.Value = r.signed(16)
		p.Scale = r.u8()
	case ProofValidation:
		p.Validator = r.address()
		p.Response = r.u8()
		p.Tag = r.str16()
		copy(p.RequestHash[:], r.take(32))
	default:
		if r.err == nil {
			return ProofPayload{}, ErrUnknownMessageType
		}
		return ProofPayload{}, r.err
	}
	ts := r.take(32)
	if r.err == nil {
		v := new(big.Int).SetBytes(ts)
		if !v.IsUint64() {
			return ProofPayload{}, ErrValueOutOfRange
		}
		p.Timestamp = v.Uint64()
	}
	return p, r.finish()
}

func timestamp256(unix uint64) []byte {
	out := make([]byte, 32)
	new(big.Int).SetUint64(unix).FillBytes(out)
	return out
}
