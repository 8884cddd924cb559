// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package quadratic implements the quadratic-voting credit allocator.

A voter holds a fixed budget of credits. Holding n votes on one choice costs
n² credits, so the marginal cost of the next vote is 2n+1:

	votes:  1  2  3  4
	cost:   1  4  9 16

# Usage

	b, err := quadratic.New([]string{"a", "b"}, 16)
	err = b.RequestChange("a", quadratic.Increase)  // 15 remaining
	err = b.RequestChange("a", quadratic.Decrease)  // back to 16

Every rejected change leaves the ballot exactly as it was and returns one
of the sentinel errors:

  - ErrInvalidConfiguration: empty choice list, duplicate ids, budget <= 0
  - ErrUnknownChoice: choice id is not on the ballot
  - ErrInsufficientCredits: the next vote costs more than what remains
  - ErrNoVotesToRemove: decrease on a choice already at zero

Remaining credits are always re-derived as total minus the sum of costs.

A Ballot has no locking. Callers that share one across goroutines must
serialize access; see package session.
*/
package quadratic
