// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Drivers

Both drivers are registered by this package:

  - postgres: github.com/lib/pq
  - sqlite:   modernc.org/sqlite (pure Go, default)

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)

SQLite connections get foreign keys and a busy timeout, and are limited to
one open connection.

# Schema Creation

	if err := db.CreateSchema(conn, cfg.DatabaseType); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The DDL is shared between dialects except for timestamp defaults and the
snapshot payload column (JSONB on postgres, TEXT on sqlite).

# Tables

  - election: metadata, credit budget and lifecycle state
  - choice: ballot lines with a display position
  - voter_claim: maps usernames to voter tokens
  - ballot: one ballot per voter per election, with commitment and nullifier
  - allocation: vote count per choice per ballot
  - result_snapshot: immutable tally results

# Relationships

	election 1──* choice
	election 1──* voter_claim
	election 1──* ballot
	ballot   1──* allocation
	election 1──* result_snapshot

All foreign keys use ON DELETE CASCADE. A nullifier can appear only once
per election.
*/
package db
