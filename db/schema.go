// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Open connects with the driver matching dbType and verifies the
// connection.
func Open(dbType, url string) (*sql.DB, error) {
	var conn *sql.DB
	var err error

	switch dbType {
	case TypePostgres:
		conn, err = sql.Open("postgres", url)
	case TypeSQLite:
		conn, err = sql.Open("sqlite", sqliteDSN(url))
		if err == nil {
			// A single writer avoids SQLITE_BUSY on concurrent ballot upserts.
			conn.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dbType, err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dbType, err)
	}
	return conn, nil
}

func sqliteDSN(url string) string {
	if strings.Contains(url, "_pragma=") {
		return url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dbType string) error {
	schema, err := Schema(dbType)
	if err != nil {
		return err
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Schema returns the DDL for a database type.
func Schema(dbType string) (string, error) {
	var r *strings.Replacer
	switch dbType {
	case TypePostgres:
		r = strings.NewReplacer("{{NOW}}", "NOW()", "{{JSON}}", "JSONB")
	case TypeSQLite:
		r = strings.NewReplacer("{{NOW}}", "CURRENT_TIMESTAMP", "{{JSON}}", "TEXT")
	default:
		return "", fmt.Errorf("unsupported database type %q", dbType)
	}
	return r.Replace(schema), nil
}

const schema = `
-- Elections
CREATE TABLE IF NOT EXISTS election (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    creator_name TEXT NOT NULL,
    method TEXT NOT NULL DEFAULT 'quadratic',
    credits INTEGER NOT NULL CHECK (credits > 0),
    topic_id BIGINT NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'open', 'closed')),
    share_slug TEXT UNIQUE,
    closes_at TIMESTAMP,
    closed_at TIMESTAMP,
    final_snapshot_id TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT {{NOW}}
);

CREATE INDEX IF NOT EXISTS idx_election_share_slug ON election(share_slug);
CREATE INDEX IF NOT EXISTS idx_election_status ON election(status);

-- Choices, in display order
CREATE TABLE IF NOT EXISTS choice (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    label TEXT NOT NULL,
    position INTEGER NOT NULL,
    UNIQUE (election_id, position)
);

CREATE INDEX IF NOT EXISTS idx_choice_election_id ON choice(election_id);

-- Voter claims
CREATE TABLE IF NOT EXISTS voter_claim (
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    username TEXT NOT NULL,
    voter_token TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT {{NOW}},
    PRIMARY KEY (election_id, voter_token),
    UNIQUE (election_id, username)
);

CREATE INDEX IF NOT EXISTS idx_voter_claim_election_id ON voter_claim(election_id);

-- Ballots
CREATE TABLE IF NOT EXISTS ballot (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    voter_token TEXT NOT NULL,
    submitted_at TIMESTAMP NOT NULL DEFAULT {{NOW}},
    credits_spent INTEGER NOT NULL CHECK (credits_spent >= 0),
    commitment TEXT NOT NULL,
    nullifier TEXT NOT NULL,
    location_proof TEXT,
    ip_hash TEXT,
    user_agent TEXT,
    UNIQUE (election_id, voter_token),
    UNIQUE (election_id, nullifier)
);

CREATE INDEX IF NOT EXISTS idx_ballot_election_id ON ballot(election_id);
CREATE INDEX IF NOT EXISTS idx_ballot_voter_token ON ballot(election_id, voter_token);

-- Per-choice vote counts
CREATE TABLE IF NOT EXISTS allocation (
    ballot_id TEXT NOT NULL REFERENCES ballot(id) ON DELETE CASCADE,
    choice_id TEXT NOT NULL REFERENCES choice(id) ON DELETE CASCADE,
    votes INTEGER NOT NULL CHECK (votes >= 0),
    PRIMARY KEY (ballot_id, choice_id)
);

CREATE INDEX IF NOT EXISTS idx_allocation_choice_id ON allocation(choice_id);

-- Result Snapshots
CREATE TABLE IF NOT EXISTS result_snapshot (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    method TEXT NOT NULL,
    computed_at TIMESTAMP NOT NULL DEFAULT {{NOW}},
    payload {{JSON}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_result_snapshot_election_id ON result_snapshot(election_id);
`
