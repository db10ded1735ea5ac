// Package reputation stores feedback records and computes reputation
// summaries over them. Records live in an arena of append-only per
// (agent, author) logs; individual records are addressed by log index, so
// revocation never moves or deletes anything.
package reputation

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
)

var (
	ErrFeedbackNotFound = errors.New("FEEDBACK_NOT_FOUND")
	ErrNotAuthor        = errors.New("NOT_AUTHOR")
	ErrAlreadyRevoked   = errors.New("ALREADY_REVOKED")
	ErrValueOutOfRange  = errors.New("VALUE_OUT_OF_RANGE")
)

// Record is one feedback entry. Value is a raw mantissa scaled by 10^-Scale.
// Records are never physically deleted; Revoked flips exactly once.
type Record struct {
	Author       types.Address
	Value        *big.Int
	Scale        uint8
	Tag1         string
	Tag2         string
	Endpoint     string
	ContentRefs  []string
	ResponseRefs []string
	Timestamp    time.Time
	Revoked      bool
}

type logKey struct {
	agent  types.AgentID
	author types.Address
}

// Ledger is the feedback arena for one chain.
type Ledger struct {
	mu      sync.RWMutex
	logs    map[logKey][]Record
	authors map[types.AgentID][]types.Address
	now     func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{
		logs:    make(map[logKey][]Record),
		authors: make(map[types.AgentID][]types.Address),
		now:     time.Now,
	}
}

// Give appends a feedback record for agent authored by author and returns
// its index in the author's log.
func (l *Ledger) Give(author types.Address, agent types.AgentID, value *big.Int, scale uint8, tag1, tag2, endpoint string, contentRefs, responseRefs []string) (uint64, error) {
	if value == nil {
		value = new(big.Int)
	}
	if !types.FitsInt128(value) {
		return 0, ErrValueOutOfRange
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	k := logKey{agent: agent, author: author}
	if len(l.logs[k]) == 0 {
		l.authors[agent] = append(l.authors[agent], author)
	}
	rec := Record{
		Author:       author,
		Value:        new(big.Int).Set(value),
		Scale:        scale,
		Tag1:         tag1,
		Tag2:         tag2,
		Endpoint:     endpoint,
		ContentRefs:  append([]string(nil), contentRefs...),
		ResponseRefs: append([]string(nil), responseRefs...),
		Timestamp:    l.now().UTC(),
	}
	l.logs[k] = append(l.logs[k], rec)
	return uint64(len(l.logs[k]) - 1), nil
}

// Revoke marks one record revoked. Only the original author may revoke,
// and only once.
func (l *Ledger) Revoke(caller types.Address, agent types.AgentID, author types.Address, index uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := logKey{agent: agent, author: author}
	log := l.logs[k]
	if index >= uint64(len(log)) {
		return ErrFeedbackNotFound
	}
	if caller != author {
		return ErrNotAuthor
	}
	if log[index].Revoked {
		return ErrAlreadyRevoked
	}
	log[index].Revoked = true
	return nil
}

// Read returns one record by (agent, author, index).
func (l *Ledger) Read(agent types.AgentID, author types.Address, index uint64) (Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	log := l.logs[logKey{agent: agent, author: author}]
	if index >= uint64(len(log)) {
		return Record{}, ErrFeedbackNotFound
	}
	return cloneRecord(log[index]), nil
}

// AuthorFeedbackCount is the raw length of one author's log for an agent,
// revoked records included. This deliberately diverges from Summarize,
// which skips revoked records.
func (l *Ledger) AuthorFeedbackCount(agent types.AgentID, author types.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.logs[logKey{agent: agent, author: author}]))
}

// Authors lists every principal that has ever left feedback for the agent.
func (l *Ledger) Authors(agent types.AgentID) []types.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]types.Address(nil), l.authors[agent]...)
}

// Summarize aggregates the agent's feedback from the given authors. The
// author set is explicit: an empty set yields the zero summary because the
// engine cannot enumerate "all contributors" on behalf of the caller.
// Non-empty tags must match exactly. Revoked records are skipped. Values
// are summed as raw mantissas without rescaling; Scale reports only the
// maximum scale seen.
func (l *Ledger) Summarize(agent types.AgentID, authors []types.Address, tag1, tag2 string) types.Summary {
	out := types.ZeroSummary()
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, author := range authors {
		for _, rec := range l.logs[logKey{agent: agent, author: author}] {
			if rec.Revoked {
				continue
			}
			if tag1 != "" && rec.Tag1 != tag1 {
				continue
			}
			if tag2 != "" && rec.Tag2 != tag2 {
				continue
			}
			out.Count++
			out.Value.Add(out.Value, rec.Value)
			if rec.Scale > out.Scale {
				out.Scale = rec.Scale
			}
		}
	}
	return out
}

func cloneRecord(r Record) Record {
	r.Value = new(big.Int).Set(r.Value)
	r.ContentRefs = append([]string(nil), r.ContentRefs...)
	r.ResponseRefs = append([]string(nil), r.ResponseRefs...)
	return r
}
