// Package crosschain implements the pull side of the cross-chain
// verification protocol: issuing correlated queries, answering them on the
// authoritative chain, and resolving the eventual responses. One Endpoint
// plays all three roles for a single ledger; two ledgers talk through a
// Sender, which is assumed to deliver at-least-once and unordered.
package crosschain

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/notify"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/registry"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/wire"
)

// Sender is the outbound messaging primitive. Implementations carry the
// frame to destAddr on destChain with the given resource budget.
type Sender interface {
	Send(ctx context.Context, destChain types.ChainID, destAddr types.Address, frame []byte, budget uint64) error
}

// FeedbackSummarizer is the slice of the reputation ledger the responder
// needs.
type FeedbackSummarizer interface {
	Summarize(agent types.AgentID, authors []types.Address, tag1, tag2 string) types.Summary
}

const defaultMessageBudget = 200_000

type Config struct {
	Chain     types.ChainID
	Owner     types.Address
	Transport types.Address // only principal allowed to deliver inbound frames
	Sender    Sender
	Registry  registry.Identity
	Feedback  FeedbackSummarizer
	Events    notify.Sink
	Budget    uint64
}

// Endpoint is one ledger's connection to the pull protocol.
type Endpoint struct {
	chain     types.ChainID
	transport types.Address
	sender    Sender
	registry  registry.Identity
	feedback  FeedbackSummarizer
	events    notify.Sink
	trust     *TrustTable

	mu         sync.Mutex
	seq        uint64
	budget     uint64
	pending    map[[32]byte]types.Address
	identity   map[[32]byte]wire.IdentityResult
	reputation map[[32]byte]wire.ReputationResult
}

func New(cfg Config) *Endpoint {
	budget := cfg.Budget
	if budget == 0 {
		budget = defaultMessageBudget
	}
	events := cfg.Events
	if events == nil {
		events = notify.Discard
	}
	return &Endpoint{
		chain:      cfg.Chain,
		transport:  cfg.Transport,
		sender:     cfg.Sender,
		registry:   cfg.Registry,
		feedback:   cfg.Feedback,
		events:     events,
		trust:      NewTrustTable(cfg.Owner),
		budget:     budget,
		pending:    make(map[[32]byte]types.Address),
		identity:   make(map[[32]byte]wire.IdentityResult),
		reputation: make(map[[32]byte]wire.ReputationResult),
	}
}

// Trust exposes the endpoint's trust table.
func (e *Endpoint) Trust() *TrustTable { return e.trust }

// SetTrustedCounterparty installs the counterparty for a chain. Owner-only.
func (e *Endpoint) SetTrustedCounterparty(caller types.Address, chain types.ChainID, counterparty types.Address) error {
	return e.trust.Set(caller, chain, counterparty)
}

// SetMessageBudget sets the resource budget attached to outbound response
// messages. Owner-only.
func (e *Endpoint) SetMessageBudget(caller types.Address, budget uint64) error {
	if caller != e.trust.Owner() {
		return ErrNotOwner
	}
	e.mu.Lock()
	e.budget = budget
	e.mu.Unlock()
	return nil
}

func (e *Endpoint) MessageBudget() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.budget
}

// QueryIdentity issues an identity query for agent on targetChain and
// returns the correlation id the response will resolve.
func (e *Endpoint) QueryIdentity(ctx context.Context, caller types.Address, targetChain types.ChainID, agent types.AgentID) ([32]byte, error) {
	corr, dest, budget, err := e.beginQuery(caller, targetChain, agent, wire.TypeQueryIdentity)
	if err != nil {
		return [32]byte{}, err
	}
	frame, err := wire.QueryIdentity{Correlation: corr, Agent: agent}.Encode()
	if err != nil {
		e.abandonQuery(corr)
		return [32]byte{}, err
	}
	return e.dispatchQuery(ctx, corr, targetChain, dest, agent, frame, budget)
}

// QueryReputation issues a reputation query carrying the caller-supplied
// principal set and tag filters.
func (e *Endpoint) QueryReputation(ctx context.Context, caller types.Address, targetChain types.ChainID, agent types.AgentID, principals []types.Address, tag1, tag2 string) ([32]byte, error) {
	corr, dest, budget, err := e.beginQuery(caller, targetChain, agent, wire.TypeQueryReputation)
	if err != nil {
		return [32]byte{}, err
	}
	frame, err := wire.QueryReputation{
		Correlation: corr,
		Agent:       agent,
		Principals:  principals,
		Tag1:        tag1,
		Tag2:        tag2,
	}.Encode()
	if err != nil {
		e.abandonQuery(corr)
		return [32]byte{}, err
	}
	return e.dispatchQuery(ctx, corr, targetChain, dest, agent, frame, budget)
}

// beginQuery validates the target, derives a fresh correlation id and
// records the pending entry. The send happens outside the lock so a
// synchronous transport can re-enter another endpoint safely.
func (e *Endpoint) beginQuery(caller types.Address, targetChain types.ChainID, agent types.AgentID, purpose wire.MessageType) ([32]byte, types.Address, uint64, error) {
	dest, ok := e.trust.Get(targetChain)
	if !ok {
		return [32]byte{}, types.ZeroAddress, 0, ErrUnknownChain
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	corr := DeriveCorrelation(targetChain, agent, purpose, e.seq, caller)
	e.pending[corr] = caller
	return corr, dest, e.budget, nil
}

func (e *Endpoint) abandonQuery(corr [32]byte) {
	e.mu.Lock()
	delete(e.pending, corr)
	e.mu.Unlock()
}

func (e *Endpoint) dispatchQuery(ctx context.Context, corr [32]byte, targetChain types.ChainID, dest types.Address, agent types.AgentID, frame []byte, budget uint64) ([32]byte, error) {
	if err := e.sender.Send(ctx, targetChain, dest, frame, budget); err != nil {
		e.abandonQuery(corr)
		return [32]byte{}, err
	}
	e.events.Emit(ctx, notify.NewEvent(notify.EventQueryIssued, map[string]any{
		"correlation_id": hex.EncodeToString(corr[:]),
		"target_chain":   uint64(targetChain),
		"agent_id":       agent.String(),
	}))
	return corr, nil
}

// HandleMessage authenticates an inbound frame and dispatches it to the
// responder or the result store depending on the frame type.
func (e *Endpoint) HandleMessage(ctx context.Context, caller types.Address, fromChain types.ChainID, fromAddr types.Address, frame []byte) error {
	t, err := wire.PeekType(frame)
	if err != nil {
		return err
	}
	switch t {
	case wire.TypeQueryIdentity, wire.TypeQueryReputation:
		return e.HandleQuery(ctx, caller, fromChain, fromAddr, frame)
	default:
		return e.HandleResult(ctx, caller, fromChain, fromAddr, frame)
	}
}

// HandleQuery answers an inbound query from a trusted counterparty and
// sends the result frame back to fromChain.
func (e *Endpoint) HandleQuery(ctx context.Context, caller types.Address, fromChain types.ChainID, fromAddr types.Address, frame []byte) error {
	dest, err := e.authenticate(caller, fromChain, fromAddr)
	if err != nil {
		return err
	}
	t, err := wire.PeekType(frame)
	if err != nil {
		return err
	}

	var reply []byte
	switch t {
	case wire.TypeQueryIdentity:
		q, err := wire.DecodeQueryIdentity(frame)
		if err != nil {
			return err
		}
		reply, err = e.answerIdentity(q)
		if err != nil {
			return err
		}
	case wire.TypeQueryReputation:
		q, err := wire.DecodeQueryReputation(frame)
		if err != nil {
			return err
		}
		reply, err = e.answerReputation(q)
		if err != nil {
			return err
		}
	default:
		return wire.ErrUnknownMessageType
	}

	e.mu.Lock()
	budget := e.budget
	e.mu.Unlock()
	return e.sender.Send(ctx, fromChain, dest, reply, budget)
}

// answerIdentity builds an identity result. The summary fields come from
// the aggregation engine called with an empty author set, so they are
// always zero; identity answers carry existence and ownership, not a real
// reputation number.
func (e *Endpoint) answerIdentity(q wire.QueryIdentity) ([]byte, error) {
	res := wire.IdentityResult{Correlation: q.Correlation}
	if e.registry.AgentExists(q.Agent) {
		owner, err := e.registry.OwnerOf(q.Agent)
		if err != nil {
			return nil, err
		}
		uri, err := e.registry.URIOf(q.Agent)
		if err != nil {
			return nil, err
		}
		summary := e.feedback.Summarize(q.Agent, nil, "", "")
		res.Exists = true
		res.Owner = owner
		res.URI = uri
		res.Score = summary.Value
		res.FeedbackCount = summary.Count
	}
	return res.Encode()
}

func (e *Endpoint) answerReputation(q wire.QueryReputation) ([]byte, error) {
	summary := e.feedback.Summarize(q.Agent, q.Principals, q.Tag1, q.Tag2)
	return wire.ReputationResult{
		Correlation: q.Correlation,
		Count:       summary.Count,
		Value:       summary.Value,
	}.Encode()
}

// HandleResult stores an inbound result. The cached entry is overwritten
// unconditionally and the pending entry removed without checking it still
// existed, so a replayed result is accepted and wins.
func (e *Endpoint) HandleResult(ctx context.Context, caller types.Address, fromChain types.ChainID, fromAddr types.Address, frame []byte) error {
	if _, err := e.authenticate(caller, fromChain, fromAddr); err != nil {
		return err
	}
	t, err := wire.PeekType(frame)
	if err != nil {
		return err
	}

	var corr [32]byte
	switch t {
	case wire.TypeIdentityResult:
		res, err := wire.DecodeIdentityResult(frame)
		if err != nil {
			return err
		}
		corr = res.Correlation
		e.mu.Lock()
		e.identity[corr] = res
		delete(e.pending, corr)
		e.mu.Unlock()
	case wire.TypeReputationResult:
		res, err := wire.DecodeReputationResult(frame)
		if err != nil {
			return err
		}
		corr = res.Correlation
		e.mu.Lock()
		e.reputation[corr] = res
		delete(e.pending, corr)
		e.mu.Unlock()
	default:
		return wire.ErrUnknownMessageType
	}

	e.events.Emit(ctx, notify.NewEvent(notify.EventResultStored, map[string]any{
		"correlation_id": hex.EncodeToString(corr[:]),
		"from_chain":     uint64(fromChain),
		"message_type":   t.String(),
	}))
	return nil
}

func (e *Endpoint) authenticate(caller types.Address, fromChain types.ChainID, fromAddr types.Address) (types.Address, error) {
	if caller != e.transport {
		return types.ZeroAddress, ErrOnlyTransport
	}
	expected, ok := e.trust.Get(fromChain)
	if !ok || expected != fromAddr {
		return types.ZeroAddress, ErrUnauthorizedCounterparty
	}
	return expected, nil
}

// IsPending reports whether a query is still awaiting its response.
func (e *Endpoint) IsPending(corr [32]byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pending[corr]
	return ok
}

// RequesterOf returns the principal that issued a still-pending query.
func (e *Endpoint) RequesterOf(corr [32]byte) (types.Address, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.pending[corr]
	return a, ok
}

// IdentityResultOf returns the cached identity result, if resolved.
func (e *Endpoint) IdentityResultOf(corr [32]byte) (wire.IdentityResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	res, ok := e.identity[corr]
	return res, ok
}

// ReputationResultOf returns the cached reputation result, if resolved.
func (e *Endpoint) ReputationResultOf(corr [32]byte) (wire.ReputationResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	res, ok := e.reputation[corr]
	return res, ok
}
