// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package session keeps voters' in-progress ballots in memory between HTTP
requests.

A quadratic.Ballot is single-writer, so each Session wraps one in a mutex
and exposes it only through Do (mutations) and View (read-only copy):

	s, err := store.Load(session.Key{ElectionID: id, VoterToken: tok}, loader)
	err = s.Do(func(b *quadratic.Ballot) error {
		return b.RequestChange(choiceID, quadratic.Increase)
	})

The Store is an LRU cache; the least recently used sessions are evicted
when it is full.
*/
package session
