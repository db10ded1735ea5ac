package crosschain

import (
	"errors"
	"sync"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
)

var (
	ErrUnknownChain             = errors.New("UNKNOWN_CHAIN")
	ErrUnauthorizedCounterparty = errors.New("UNAUTHORIZED_COUNTERPARTY")
	ErrOnlyTransport            = errors.New("ONLY_TRANSPORT")
	ErrNotOwner                 = errors.New("NOT_OWNER")
)

// TrustTable maps a remote chain to the single counterparty address allowed
// to query us from there and the address our responses are sent to. Writes
// are owner-gated; both directions of the pull protocol read it.
type TrustTable struct {
	mu      sync.RWMutex
	owner   types.Address
	entries map[types.ChainID]types.Address
}

func NewTrustTable(owner types.Address) *TrustTable {
	return &TrustTable{owner: owner, entries: make(map[types.ChainID]types.Address)}
}

// Set installs or replaces the counterparty for a chain.
func (t *TrustTable) Set(caller types.Address, chain types.ChainID, counterparty types.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if caller != t.owner {
		return ErrNotOwner
	}
	t.entries[chain] = counterparty
	return nil
}

// Get returns the configured counterparty for a chain.
func (t *TrustTable) Get(chain types.ChainID) (types.Address, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.entries[chain]
	return a, ok
}

// Owner returns the administrator address.
func (t *TrustTable) Owner() types.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.owner
}
