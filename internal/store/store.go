// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: store.go — accepted-session ledger
//
// Purpose:
//   - The slab key handed to the driver in each session.Incoming record is
//     reused the instant its slot is released, so it can't identify a
//     player across a disconnect/reconnect. This package hands out a
//     separate, monotonically increasing session id and records it
//     alongside the username and handshake metadata in a small sqlite
//     table, entirely off the per-tick path: the driver calls Record once
//     per drained join-queue entry, after Poll has already returned.
// ─────────────────────────────────────────────────────────────────────────────

package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id        INTEGER PRIMARY KEY AUTOINCREMENT,
	username          TEXT NOT NULL,
	protocol_version  INTEGER NOT NULL,
	map_seed          INTEGER NOT NULL,
	dimension         INTEGER NOT NULL,
	accepted_at_unix  INTEGER NOT NULL
);
`

// Store is the accepted-session ledger backed by a sqlite database file.
// Not safe for concurrent use beyond what database/sql itself guarantees;
// the driver only ever calls it from its own single goroutine between
// Poll calls.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one accepted session and returns the ledger's own
// session id for it — assigned independently of the slab key the
// join-queue entry carried, since that key is reused as soon as the slab
// slot is released. (The two numbers can coincide; they are not related.)
func (s *Store) Record(username string, protocolVersion int32, mapSeed int64, dimension uint8, acceptedAtUnix int64) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO sessions (username, protocol_version, map_seed, dimension, accepted_at_unix)
		 VALUES (?, ?, ?, ?, ?)`,
		username, protocolVersion, mapSeed, dimension, acceptedAtUnix,
	)
	if err != nil {
		return 0, fmt.Errorf("store: record session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: last insert id: %w", err)
	}
	return id, nil
}

// Count returns the total number of sessions ever recorded.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count sessions: %w", err)
	}
	return n, nil
}
