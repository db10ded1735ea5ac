// Package registry holds the identity side of an agent ledger: who an agent
// is, who owns it, and where it can be reached. The cross-chain subsystem
// consumes it through the Identity interface; the in-memory Ledger is the
// authoritative implementation for a single chain.
package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
)

var (
	ErrAgentNotFound      = errors.New("AGENT_NOT_FOUND")
	ErrAgentAlreadyExists = errors.New("AGENT_ALREADY_EXISTS")
	ErrNotAgentOwner      = errors.New("NOT_AGENT_OWNER")
)

// Identity is the read surface the verification subsystem depends on.
type Identity interface {
	AgentExists(id types.AgentID) bool
	OwnerOf(id types.AgentID) (types.Address, error)
	URIOf(id types.AgentID) (string, error)
	EndpointOf(id types.AgentID) (string, error)
}

// Agent is one registered autonomous principal.
type Agent struct {
	ID           types.AgentID
	Owner        types.Address
	URI          string
	Endpoint     string
	RegisteredAt time.Time
}

// Ledger is the in-memory identity registry for one chain.
type Ledger struct {
	mu     sync.RWMutex
	agents map[types.AgentID]Agent
	now    func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{agents: make(map[types.AgentID]Agent), now: time.Now}
}

// Register records a new agent. Re-registering an existing id fails.
func (l *Ledger) Register(id types.AgentID, owner types.Address, uri string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.agents[id]; ok {
		return ErrAgentAlreadyExists
	}
	l.agents[id] = Agent{ID: id, Owner: owner, URI: uri, RegisteredAt: l.now().UTC()}
	return nil
}

// SetEndpoint updates the agent's service endpoint. Owner-only.
func (l *Ledger) SetEndpoint(caller types.Address, id types.AgentID, endpoint string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.agents[id]
	if !ok {
		return ErrAgentNotFound
	}
	if a.Owner != caller {
		return ErrNotAgentOwner
	}
	a.Endpoint = endpoint
	l.agents[id] = a
	return nil
}

func (l *Ledger) AgentExists(id types.AgentID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.agents[id]
	return ok
}

func (l *Ledger) OwnerOf(id types.AgentID) (types.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.agents[id]
	if !ok {
		return types.ZeroAddress, ErrAgentNotFound
	}
	return a.Owner, nil
}

func (l *Ledger) URIOf(id types.AgentID) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.agents[id]
	if !ok {
		return "", ErrAgentNotFound
	}
	return a.URI, nil
}

func (l *Ledger) EndpointOf(id types.AgentID) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.agents[id]
	if !ok {
		return "", ErrAgentNotFound
	}
	return a.Endpoint, nil
}

// Get returns the full agent record.
func (l *Ledger) Get(id types.AgentID) (Agent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.agents[id]
	if !ok {
		return Agent{}, ErrAgentNotFound
	}
	return a, nil
}
