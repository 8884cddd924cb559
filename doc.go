// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the quadvote command.

quadvote runs quadratic voting elections: every voter gets a budget of
credits and casting n votes on one choice costs n² of them. Ballots are
edited one vote at a time on the server, then sealed with a
commitment/nullifier pair and stored with the contract vote payload.

# Starting the Server

	ADMIN_KEY_SALT=... POLL_SLUG_SALT=... quadvote serve -d quadvote.db

Or against PostgreSQL:

	quadvote serve -d "postgres://..." --credits 49

# Replaying a Plan

	quadvote plan -f offsite.yaml

prints each step with the credits left after it and the final allocation.
See package plan for the file format.

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite file or PostgreSQL connection string
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin keys and voter identities
  - POLL_SLUG_SALT (--slug-salt): Secret for share slug generation

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres
  - DEFAULT_CREDITS (--credits): Budget for elections that do not set one
  - SESSION_CACHE_SIZE (--session-cache): Open ballots kept in memory
  - BASE_URL (--base-url): Prefix for share links
  - --cors-origin: Allowed browser origins (default: any)

# Architecture

  - quadratic: the credit allocator
  - commitment, ledger: ballot sealing and the on-chain payload
  - session: in-memory ballots between requests
  - handlers: HTTP request handlers (elections, voting, results)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - metrics: Prometheus collectors
  - models: Request/response types
  - auth: Token generation and validation
  - db: Schema and drivers
  - cliparse: Configuration parsing
  - plan: Offline ballot replay
*/
package main
