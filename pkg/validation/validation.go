// Package validation tracks third-party validation requests against agents
// and aggregates their outcomes.
package validation

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
)

var (
	ErrRequestNotFound         = errors.New("REQUEST_NOT_FOUND")
	ErrRequestAlreadyExists    = errors.New("REQUEST_ALREADY_EXISTS")
	ErrRequestAlreadyResponded = errors.New("REQUEST_ALREADY_RESPONDED")
	ErrNotDesignatedValidator  = errors.New("NOT_DESIGNATED_VALIDATOR")
	ErrInvalidResponse         = errors.New("INVALID_RESPONSE")
)

// Response is the validator's verdict. Pending is the initial state; the
// transition to a terminal value happens exactly once.
type Response uint8

const (
	Pending Response = iota
	Approved
	Rejected
	Inconclusive
)

func (r Response) String() string {
	switch r {
	case Pending:
		return "PENDING"
	case Approved:
		return "APPROVED"
	case Rejected:
		return "REJECTED"
	case Inconclusive:
		return "INCONCLUSIVE"
	default:
		return "UNKNOWN"
	}
}

// Score maps a terminal response onto the validation summary scale:
// Approved +1, Rejected -1, Inconclusive 0.
func (r Response) Score() int64 {
	switch r {
	case Approved:
		return 1
	case Rejected:
		return -1
	default:
		return 0
	}
}

// Request is one validation request, keyed by a caller-supplied unique hash.
type Request struct {
	Requester   types.Address
	Validator   types.Address
	Agent       types.AgentID
	RequestRef  string
	RequestHash [32]byte
	Response    Response
	ResponseRef string
	Tag         string
	Timestamp   time.Time
}

// Store holds all validation requests for one chain.
type Store struct {
	mu      sync.RWMutex
	byHash  map[[32]byte]*Request
	byAgent map[types.AgentID][][32]byte
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		byHash:  make(map[[32]byte]*Request),
		byAgent: make(map[types.AgentID][][32]byte),
		now:     time.Now,
	}
}

// Create registers a new pending request. The hash must be unique for the
// lifetime of the store.
func (s *Store) Create(requester, validator types.Address, agent types.AgentID, requestRef string, requestHash [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[requestHash]; ok {
		return ErrRequestAlreadyExists
	}
	req := &Request{
		Requester:   requester,
		Validator:   validator,
		Agent:       agent,
		RequestRef:  requestRef,
		RequestHash: requestHash,
		Response:    Pending,
		Timestamp:   s.now().UTC(),
	}
	s.byHash[requestHash] = req
	s.byAgent[agent] = append(s.byAgent[agent], requestHash)
	return nil
}

// Respond records the validator's verdict. Only the designated validator
// may respond, only while the request is still pending, and only with a
// terminal verdict; Pending is not a response.
func (s *Store) Respond(caller types.Address, requestHash [32]byte, response Response, responseRef, tag string) error {
	if response != Approved && response != Rejected && response != Inconclusive {
		return ErrInvalidResponse
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.byHash[requestHash]
	if !ok {
		return ErrRequestNotFound
	}
	if caller != req.Validator {
		return ErrNotDesignatedValidator
	}
	if req.Response != Pending {
		return ErrRequestAlreadyResponded
	}
	req.Response = response
	req.ResponseRef = responseRef
	req.Tag = tag
	return nil
}

// Get returns the request for a hash.
func (s *Store) Get(requestHash [32]byte) (Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.byHash[requestHash]
	if !ok {
		return Request{}, ErrRequestNotFound
	}
	return *req, nil
}

// Summarize aggregates responded requests for the agent. An empty validator
// set means "any validator"; requests still pending are excluded from both
// count and value. The summary scale is always zero.
func (s *Store) Summarize(agent types.AgentID, validators []types.Address, tag string) types.Summary {
	out := types.ZeroSummary()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.byAgent[agent] {
		req := s.byHash[h]
		if req.Response == Pending {
			continue
		}
		if len(validators) > 0 && !containsAddress(validators, req.Validator) {
			continue
		}
		if tag != "" && req.Tag != tag {
			continue
		}
		out.Count++
		out.Value.Add(out.Value, big.NewInt(req.Response.Score()))
	}
	return out
}

func containsAddress(set []types.Address, a types.Address) bool {
	for _, s := range set {
		if s == a {
			return true
		}
	}
	return false
}
