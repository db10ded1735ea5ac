// Package store is the bridge service's write-behind archive. The
// in-memory endpoint remains authoritative during a run; the archive keeps
// trust-table entries across restarts and gives auditors a durable record
// of resolved pull results and verified proofs.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct{ DB *pgxpool.Pool }

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

const schema = `
CREATE TABLE IF NOT EXISTS trust_entries (
	chain_id     BIGINT PRIMARY KEY,
	counterparty TEXT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS pull_results (
	correlation_id TEXT PRIMARY KEY,
	message_type   TEXT NOT NULL,
	from_chain     BIGINT NOT NULL,
	frame          BYTEA NOT NULL,
	resolved_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS verified_proofs (
	proof_type  TEXT NOT NULL,
	agent_id    TEXT NOT NULL,
	secondary   TEXT NOT NULL DEFAULT '',
	fields      JSONB NOT NULL,
	proven_at   TIMESTAMPTZ NOT NULL,
	verified_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (proof_type, agent_id, secondary)
);
`

// EnsureSchema creates the archive tables if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, schema)
	return err
}

type TrustEntry struct {
	ChainID      uint64
	Counterparty string
	UpdatedAt    time.Time
}

func (s *Store) UpsertTrustEntry(ctx context.Context, chainID uint64, counterparty string) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO trust_entries(chain_id, counterparty)
VALUES($1, $2)
ON CONFLICT (chain_id) DO UPDATE SET
  counterparty=EXCLUDED.counterparty,
  updated_at=now()
`, chainID, counterparty)
	return err
}

func (s *Store) ListTrustEntries(ctx context.Context) ([]TrustEntry, error) {
	rows, err := s.DB.Query(ctx, `SELECT chain_id, counterparty, updated_at FROM trust_entries ORDER BY chain_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrustEntry
	for rows.Next() {
		var e TrustEntry
		if err := rows.Scan(&e.ChainID, &e.Counterparty, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SavePullResult archives a resolved result frame. Replays overwrite, same
// as the in-memory cache.
func (s *Store) SavePullResult(ctx context.Context, correlationID, messageType string, fromChain uint64, frame []byte) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO pull_results(correlation_id, message_type, from_chain, frame)
VALUES($1, $2, $3, $4)
ON CONFLICT (correlation_id) DO UPDATE SET
  message_type=EXCLUDED.message_type,
  from_chain=EXCLUDED.from_chain,
  frame=EXCLUDED.frame,
  resolved_at=now()
`, correlationID, messageType, fromChain, frame)
	return err
}

// SaveVerifiedProof archives a verified claim, last write wins.
func (s *Store) SaveVerifiedProof(ctx context.Context, proofType, agentID, secondary string, fields []byte, provenAt time.Time) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO verified_proofs(proof_type, agent_id, secondary, fields, proven_at)
VALUES($1, $2, $3, $4::jsonb, $5)
ON CONFLICT (proof_type, agent_id, secondary) DO UPDATE SET
  fields=EXCLUDED.fields,
  proven_at=EXCLUDED.proven_at,
  verified_at=now()
`, proofType, agentID, secondary, string(fields), provenAt)
	return err
}
