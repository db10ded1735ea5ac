package crosschain

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/wire"
)

// DeriveCorrelation computes the id that ties a query to its eventual
// response: SHA-256 over (target chain, agent, purpose, block context,
// requester). The block context is a per-endpoint monotonic sequence, so
// repeated queries for the same agent get distinct ids.
func DeriveCorrelation(target types.ChainID, agent types.AgentID, purpose wire.MessageType, blockContext uint64, requester types.Address) [32]byte {
	h := sha256.New()
	var u64 [8]byte
	binary.BigEndian.PutUint64(u64[:], uint64(target))
	h.Write(u64[:])
	h.Write(agent[:])
	h.Write([]byte{byte(purpose)})
	binary.BigEndian.PutUint64(u64[:], blockContext)
	h.Write(u64[:])
	h.Write(requester[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
