// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/danielhkuo/quadvote/quadratic"
)

// DefaultSize is used when a non-positive cache size is configured.
const DefaultSize = 4096

// Key identifies one voter's ballot in one election. Neither part may
// contain a slash.
type Key struct {
	ElectionID string
	VoterToken string
}

func (k Key) String() string {
	return k.ElectionID + "/" + k.VoterToken
}

// Session is an open ballot. All access goes through Do or View, which
// hold the session lock.
type Session struct {
	mu     sync.Mutex
	ballot *quadratic.Ballot
	labels map[string]string
}

// Label returns the display label for a choice, or the id when unknown.
func (s *Session) Label(choiceID string) string {
	if l, ok := s.labels[choiceID]; ok {
		return l
	}
	return choiceID
}

// Do runs fn with exclusive access to the ballot.
func (s *Session) Do(fn func(b *quadratic.Ballot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(s.ballot)
}

// View runs fn against a copy of the ballot taken under the lock.
func (s *Session) View(fn func(b *quadratic.Ballot)) {
	s.mu.Lock()
	snapshot := s.ballot.Clone()
	s.mu.Unlock()
	fn(snapshot)
}

// Loader builds a session's ballot and choice labels on a cache miss.
type Loader func() (*quadratic.Ballot, map[string]string, error)

// Store is a bounded cache of open sessions. Evicted sessions lose unsaved
// edits; a later Load rebuilds them from the loader.
type Store struct {
	cache  *lru.Cache[Key, *Session]
	flight singleflight.Group
}

func NewStore(size int) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[Key, *Session](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &Store{cache: cache}, nil
}

// Load returns the open session for key, creating it with load if absent.
// Concurrent callers for the same key share one load and get the same
// *Session; loads for different keys run in parallel.
func (st *Store) Load(key Key, load Loader) (*Session, error) {
	if s, ok := st.cache.Get(key); ok {
		return s, nil
	}

	v, err, _ := st.flight.Do(key.String(), func() (any, error) {
		// Another flight may have finished between the miss and Do.
		if s, ok := st.cache.Get(key); ok {
			return s, nil
		}
		ballot, labels, err := load()
		if err != nil {
			return nil, err
		}
		s := &Session{ballot: ballot, labels: labels}
		st.cache.Add(key, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Peek returns the open session without touching recency.
func (st *Store) Peek(key Key) (*Session, bool) {
	return st.cache.Peek(key)
}

func (st *Store) Drop(key Key) {
	st.cache.Remove(key)
}

// DropElection removes every open session of an election.
func (st *Store) DropElection(electionID string) int {
	n := 0
	for _, k := range st.cache.Keys() {
		if k.ElectionID == electionID {
			st.cache.Remove(k)
			n++
		}
	}
	return n
}

func (st *Store) Len() int {
	return st.cache.Len()
}
