// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package metrics defines the Prometheus collectors exported on /metrics.

Everything is registered on a private registry rather than the global
default, so each test can build its own Metrics:

	m := metrics.New(store.Len)
	mux.Handle("GET /metrics", m.Handler())

# Exported series

  - quadvote_ballot_adjustments_total{direction, outcome}: every adjust or
    allocate request, including rejected ones
  - quadvote_ballots_submitted_total{kind}: kind is "new" or "updated"
  - quadvote_elections_closed_total
  - quadvote_open_ballot_sessions: ballots currently held in memory

Go runtime and process collectors are registered alongside.
*/
package metrics
