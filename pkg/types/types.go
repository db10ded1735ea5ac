package types

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

var (
	ErrBadAgentID = errors.New("BAD_AGENT_ID")
	ErrBadAddress = errors.New("BAD_ADDRESS")
)

// ChainID identifies one independent ledger.
type ChainID uint64

// AgentID is a 256-bit agent identifier, big-endian.
type AgentID [32]byte

// ZeroAgentID is the unassigned agent id.
var ZeroAgentID AgentID

func AgentIDFromUint64(v uint64) AgentID {
	var id AgentID
	binary.BigEndian.PutUint64(id[24:], v)
	return id
}

func ParseAgentID(s string) (AgentID, error) {
	var id AgentID
	h := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(h)%2 == 1 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil || len(b) > 32 {
		return AgentID{}, ErrBadAgentID
	}
	copy(id[32-len(b):], b)
	return id, nil
}

func (id AgentID) String() string { return "0x" + hex.EncodeToString(id[:]) }

func (id AgentID) IsZero() bool { return id == ZeroAgentID }

func (id AgentID) Big() *big.Int { return new(big.Int).SetBytes(id[:]) }

// Address is a 160-bit principal identifier. The zero value means
// "no principal" and doubles as the null owner in identity results.
type Address [20]byte

var ZeroAddress Address

func ParseAddress(s string) (Address, error) {
	var a Address
	h := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(h)
	if err != nil || len(b) != 20 {
		return Address{}, ErrBadAddress
	}
	copy(a[:], b)
	return a, nil
}

func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) IsZero() bool { return a == ZeroAddress }
