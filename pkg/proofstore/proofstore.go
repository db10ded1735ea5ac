// Package proofstore persists verified proof claims in a local SQLite
// database so the CLI verifier keeps its cache across runs. Same
// last-write-wins semantics as the in-memory cache: a later insert for the
// same (type, agent, secondary) key replaces the row unconditionally.
package proofstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("PROOF_NOT_FOUND")

const schema = `
CREATE TABLE IF NOT EXISTS verified_proofs (
	proof_type TEXT NOT NULL,
	agent_id   TEXT NOT NULL,
	secondary  TEXT NOT NULL DEFAULT '',
	fields     TEXT NOT NULL,
	proven_at  INTEGER NOT NULL,
	stored_at  INTEGER NOT NULL,
	PRIMARY KEY (proof_type, agent_id, secondary)
);
`

// Store wraps a SQLite database holding verified proof claims.
type Store struct {
	db *sql.DB
}

// Entry is one cached claim. Fields carries the type-specific decoded
// payload as JSON.
type Entry struct {
	ProofType string
	AgentID   string
	Secondary string
	Fields    []byte
	ProvenAt  time.Time
	StoredAt  time.Time
}

// Open opens (or creates) the proof cache in dataDir. Pass ":memory:" for
// an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "proofcache.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Single connection avoids "database is locked" errors.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Put inserts or replaces the claim for (proofType, agentID, secondary).
func (s *Store) Put(e Entry) error {
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
INSERT INTO verified_proofs(proof_type, agent_id, secondary, fields, proven_at, stored_at)
VALUES(?, ?, ?, ?, ?, ?)
ON CONFLICT(proof_type, agent_id, secondary) DO UPDATE SET
	fields=excluded.fields,
	proven_at=excluded.proven_at,
	stored_at=excluded.stored_at
`, e.ProofType, e.AgentID, e.Secondary, string(e.Fields), e.ProvenAt.UTC().Unix(), e.StoredAt.UTC().Unix())
	return err
}

// Get returns the claim for (proofType, agentID, secondary).
func (s *Store) Get(proofType, agentID, secondary string) (Entry, error) {
	var e Entry
	var fields string
	var provenAt, storedAt int64
	err := s.db.QueryRow(`
SELECT proof_type, agent_id, secondary, fields, proven_at, stored_at
FROM verified_proofs
WHERE proof_type=? AND agent_id=? AND secondary=?
`, proofType, agentID, secondary).Scan(&e.ProofType, &e.AgentID, &e.Secondary, &fields, &provenAt, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	e.Fields = []byte(fields)
	e.ProvenAt = time.Unix(provenAt, 0).UTC()
	e.StoredAt = time.Unix(storedAt, 0).UTC()
	return e, nil
}

// ListByAgent returns every cached claim for an agent, oldest stored first.
func (s *Store) ListByAgent(agentID string) ([]Entry, error) {
	rows, err := s.db.Query(`
SELECT proof_type, agent_id, secondary, fields, proven_at, stored_at
FROM verified_proofs
WHERE agent_id=?
ORDER BY stored_at ASC, proof_type ASC
`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var fields string
		var provenAt, storedAt int64
		if err := rows.Scan(&e.ProofType, &e.AgentID, &e.Secondary, &fields, &provenAt, &storedAt); err != nil {
			return nil, err
		}
		e.Fields = []byte(fields)
		e.ProvenAt = time.Unix(provenAt, 0).UTC()
		e.StoredAt = time.Unix(storedAt, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
