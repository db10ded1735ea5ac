package wire

import (
	"math"
	"math/big"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
)

// MessageType tags the first byte of every pull-protocol frame.
type MessageType uint8

const (
	TypeQueryIdentity    MessageType = 1
	TypeIdentityResult   MessageType = 2
	TypeQueryReputation  MessageType = 3
	TypeReputationResult MessageType = 4
)

func (t MessageType) String() string {
	switch t {
	case TypeQueryIdentity:
		return "QUERY_IDENTITY"
	case TypeIdentityResult:
		return "IDENTITY_RESULT"
	case TypeQueryReputation:
		return "QUERY_REPUTATION"
	case TypeReputationResult:
		return "REPUTATION_RESULT"
	default:
		return "UNKNOWN"
	}
}

// PeekType reads the frame tag without decoding the body.
func PeekType(frame []byte) (MessageType, error) {
	if len(frame) < 1 {
		return 0, ErrShortMessage
	}
	t := MessageType(frame[0])
	switch t {
	case TypeQueryIdentity, TypeIdentityResult, TypeQueryReputation, TypeReputationResult:
		return t, nil
	default:
		return 0, ErrUnknownMessageType
	}
}

// QueryIdentity asks the authoritative chain whether an agent exists and
// for its identity facts.
type QueryIdentity struct {
	Correlation [32]byte
	Agent       types.AgentID
}

func (m QueryIdentity) Encode() ([]byte, error) {
	w := &writer{}
	w.u8(uint8(TypeQueryIdentity))
	w.bytes(m.Correlation[:])
	w.bytes(m.Agent[:])
	return w.buf, w.err
}

func DecodeQueryIdentity(frame []byte) (QueryIdentity, error) {
	r := &reader{buf: frame}
	if t := r.u8(); r.err == nil && MessageType(t) != TypeQueryIdentity {
		return QueryIdentity{}, ErrUnknownMessageType
	}
	m := QueryIdentity{Correlation: r.correlation(), Agent: r.agentID()}
	return m, r.finish()
}

// IdentityResult answers a QueryIdentity. For a missing agent every field
// after Exists is zero.
type IdentityResult struct {
	Correlation   [32]byte
	Exists        bool
	Owner         types.Address
	URI           string
	Score         *big.Int // int256
	FeedbackCount uint64
}

func (m IdentityResult) Encode() ([]byte, error) {
	w := &writer{}
	w.u8(uint8(TypeIdentityResult))
	w.bytes(m.Correlation[:])
	w.boolean(m.Exists)
	w.bytes(m.Owner[:])
	w.str16(m.URI)
	w.signed(m.Score, 32)
	w.u64(m.FeedbackCount)
	return w.buf, w.err
}

func DecodeIdentityResult(frame []byte) (IdentityResult, error) {
	r := &reader{buf: frame}
	if t := r.u8(); r.err == nil && MessageType(t) != TypeIdentityResult {
		return IdentityResult{}, ErrUnknownMessageType
	}
	m := IdentityResult{
		Correlation:   r.correlation(),
		Exists:        r.boolean(),
		Owner:         r.address(),
		URI:           r.str16(),
		Score:         r.signed(32),
		FeedbackCount: r.u64(),
	}
	return m, r.finish()
}

// QueryReputation asks for a feedback summary restricted to the supplied
// principal set and tags.
type QueryReputation struct {
	Correlation [32]byte
	Agent       types.AgentID
	Principals  []types.Address
	Tag1        string
	Tag2        string
}

func (m QueryReputation) Encode() ([]byte, error) {
	if len(m.Principals) > math.MaxUint16 {
		return nil, ErrTooManyPrincipals
	}
	w := &writer{}
	w.u8(uint8(TypeQueryReputation))
	w.bytes(m.Correlation[:])
	w.bytes(m.Agent[:])
	w.u16(uint16(len(m.Principals)))
	for _, p := range m.Principals {
		w.bytes(p[:])
	}
	w.str16(m.Tag1)
	w.str16(m.Tag2)
	return w.buf, w.err
}

func DecodeQueryReputation(frame []byte) (QueryReputation, error) {
	r := &reader{buf: frame}
	if t := r.u8(); r.err == nil && MessageType(t) != TypeQueryReputation {
		return QueryReputation{}, ErrUnknownMessageType
	}
	m := QueryReputation{Correlation: r.correlation(), Agent: r.agentID()}
	n := int(r.u16())
	for i := 0; i < n && r.err == nil; i++ {
		m.Principals = append(m.Principals, r.address())
	}
	m.Tag1 = r.str16()
	m.Tag2 = r.str16()
	return m, r.finish()
}

// ReputationResult answers a QueryReputation.
type ReputationResult struct {
	Correlation [32]byte
	Count       uint64
	Value       *big.Int // int128
}

func (m ReputationResult) Encode() ([]byte, error) {
	w := &writer{}
	w.u8(uint8(TypeReputationResult))
	w.bytes(m.Correlation[:])
	w.u64(m.Count)
	w.signed(m.Value, 16)
	return w.buf, w.err
}

func DecodeReputationResult(frame []byte) (ReputationResult, error) {
	r := &reader{buf: frame}
	if t := r.u8(); r.err == nil && MessageType(t) != TypeReputationResult {
		return ReputationResult{}, ErrUnknownMessageType
	}
	m := ReputationResult{Correlation: r.correlation(), Count: r.u64(), Value: r.signed(16)}
	return m, r.finish()
}
