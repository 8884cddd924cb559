// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the quadvote API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints. The ballot
session store and metrics are shared by every handler, so the caller owns
them:

	sessions, err := session.NewStore(cfg.SessionCache)
	m := metrics.New(sessions.Len)
	mux := router.NewRouter(db, cfg, sessions, m)

# Endpoints

Operational:

	GET /health
	GET /metrics - Prometheus exposition

Election management (admin, requires X-Admin-Key):

	POST /elections               - Create election
	GET  /elections/{id}/admin    - Election details
	POST /elections/{id}/choices  - Add choice
	POST /elections/{id}/publish  - Open for voting
	POST /elections/{id}/close    - Tally and seal results

Voting (uses share slug, requires X-Voter-Token except claim-voter):

	POST /elections/{slug}/claim-voter     - Claim voter identity
	GET  /elections/{slug}/ballot          - Current ballot and credits
	POST /elections/{slug}/ballot/adjust   - One vote up or down
	POST /elections/{slug}/ballot/allocate - Set a vote count
	POST /elections/{slug}/ballots         - Submit/update ballot
	POST /commitments                      - Derive commitment and nullifier

Results (public):

	GET /elections/{slug}              - Election info and choices
	GET /elections/{slug}/results      - Final results (closed only)
	GET /elections/{slug}/ballot-count - Ballot count
	GET /elections/{slug}/preview      - Compact preview data
*/
package router
