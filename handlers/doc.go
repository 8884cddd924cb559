// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the quadvote API.

# Handler Types

Each handler is a struct with its dependencies passed in explicitly:

  - ElectionHandler: election lifecycle (create, choices, publish, close)
  - VotingHandler: voter claims, the in-progress ballot, and submission
  - ResultsHandler: election info, ballot counts, previews and results

Handlers are created via constructor functions:

	sessions, _ := session.NewStore(cfg.SessionCache)
	m := metrics.New(sessions.Len)
	elections := handlers.NewElectionHandler(db, cfg, sessions, m)

# Election Lifecycle

Elections progress through three states: draft → open → closed

	POST /elections               → CreateElection (returns admin_key)
	POST /elections/{id}/choices  → AddChoice (draft only)
	POST /elections/{id}/publish  → PublishElection (needs 2+ choices)
	POST /elections/{id}/close    → CloseElection (tallies and snapshots)

Admin operations require the X-Admin-Key header.

# Voting Flow

Voters interact via the share slug:

	POST /elections/{slug}/claim-voter     → ClaimVoter (returns voter_token)
	GET  /elections/{slug}/ballot          → GetBallot
	POST /elections/{slug}/ballot/adjust   → AdjustBallot (one vote up or down)
	POST /elections/{slug}/ballot/allocate → AllocateVotes (jump to a count)
	POST /elections/{slug}/ballots         → SubmitBallot (create or replace)

Voter operations require the X-Voter-Token header. The ballot being edited
lives in a session.Store keyed by election and voter token; every change is
checked by quadratic.Ballot, so a rejected change never reaches the store.

Rejections carry a machine-readable code:

	unknown choice        400 unknown_choice
	budget exceeded       422 insufficient_credits
	decrease below zero   422 no_votes_to_remove
	empty submission      422 no_votes_cast
	nullifier reused      409 nullifier_used

# Tally

ComputeTally sums votes per choice over all submitted ballots and ranks by
total votes, voter count, credits spent (fewer wins), then position.
*/
package handlers
