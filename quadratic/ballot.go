// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package quadratic

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidConfiguration = errors.New("invalid ballot configuration")
	ErrUnknownChoice        = errors.New("unknown choice")
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrNoVotesToRemove      = errors.New("no votes to remove")
	ErrInvalidVoteCount     = errors.New("vote count must not be negative")
)

// Direction is a single-unit change to a choice's vote count.
type Direction int

const (
	Increase Direction = iota + 1
	Decrease
)

func (d Direction) String() string {
	switch d {
	case Increase:
		return "increase"
	case Decrease:
		return "decrease"
	}
	return "unknown"
}

// ParseDirection accepts "increase"/"decrease" and their +/- shorthands.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "increase", "inc", "+":
		return Increase, nil
	case "decrease", "dec", "-":
		return Decrease, nil
	}
	return 0, fmt.Errorf("invalid direction %q", s)
}

// Choice is one line of a ballot.
type Choice struct {
	ID    string `json:"id" yaml:"id"`
	Votes int    `json:"votes" yaml:"votes"`
}

// Cost returns the credits held by this choice.
func (c Choice) Cost() int {
	return Cost(c.Votes)
}

// Cost is the quadratic cost of holding n votes on one choice.
func Cost(n int) int {
	return n * n
}

// affordable reports whether n votes cost at most budget credits. It never
// squares a count that could overflow.
func affordable(n, budget int) bool {
	return n == 0 || n <= budget/n
}

// MarginalCost is the price of going from n to n+1 votes.
func MarginalCost(n int) int {
	return 2*n + 1
}

// Ballot holds one voter's credit allocation across a fixed set of choices.
// A Ballot is not safe for concurrent use.
type Ballot struct {
	choices   []Choice
	index     map[string]int
	total     int
	remaining int
}

// New creates a ballot with every choice at zero votes.
func New(choiceIDs []string, totalCredits int) (*Ballot, error) {
	choices := make([]Choice, len(choiceIDs))
	for i, id := range choiceIDs {
		choices[i] = Choice{ID: id}
	}
	return Restore(choices, totalCredits)
}

// Restore rebuilds a ballot from previously allocated vote counts. The
// allocation must fit the budget.
func Restore(choices []Choice, totalCredits int) (*Ballot, error) {
	if len(choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrInvalidConfiguration)
	}
	if totalCredits <= 0 {
		return nil, fmt.Errorf("%w: total credits must be positive, got %d", ErrInvalidConfiguration, totalCredits)
	}

	b := &Ballot{
		choices: make([]Choice, len(choices)),
		index:   make(map[string]int, len(choices)),
		total:   totalCredits,
	}
	spent := 0
	for i, c := range choices {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: empty choice id at position %d", ErrInvalidConfiguration, i)
		}
		if _, dup := b.index[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate choice id %q", ErrInvalidConfiguration, c.ID)
		}
		if c.Votes < 0 {
			return nil, fmt.Errorf("%w: choice %q", ErrInvalidVoteCount, c.ID)
		}
		if !affordable(c.Votes, totalCredits-spent) {
			return nil, fmt.Errorf("%w: %d votes on %q exceed the %d credit budget", ErrInsufficientCredits, c.Votes, c.ID, totalCredits)
		}
		spent += c.Cost()
		b.index[c.ID] = i
		b.choices[i] = c
	}
	b.rederive()
	return b, nil
}

// RequestChange moves one choice up or down by a single vote. On error the
// ballot is left untouched.
func (b *Ballot) RequestChange(choiceID string, dir Direction) error {
	i, ok := b.index[choiceID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChoice, choiceID)
	}
	votes := b.choices[i].Votes

	switch dir {
	case Increase:
		if marginal := MarginalCost(votes); marginal > b.remaining {
			return fmt.Errorf("%w: next vote on %q costs %d, %d remaining", ErrInsufficientCredits, choiceID, marginal, b.remaining)
		}
		b.choices[i].Votes++
	case Decrease:
		if votes == 0 {
			return fmt.Errorf("%w: %q", ErrNoVotesToRemove, choiceID)
		}
		b.choices[i].Votes--
	default:
		return fmt.Errorf("invalid direction %d", dir)
	}

	b.rederive()
	return nil
}

// SetVotes jumps a choice straight to the given vote count.
func (b *Ballot) SetVotes(choiceID string, votes int) error {
	i, ok := b.index[choiceID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChoice, choiceID)
	}
	if votes < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidVoteCount, votes)
	}

	available := b.remaining + b.choices[i].Cost()
	if !affordable(votes, available) {
		return fmt.Errorf("%w: %d votes on %q cost more than the %d credits available", ErrInsufficientCredits, votes, choiceID, available)
	}

	b.choices[i].Votes = votes
	b.rederive()
	return nil
}

// rederive recomputes remaining credits from the per-choice costs so the
// budget can never drift from the allocation.
func (b *Ballot) rederive() {
	b.remaining = b.total - b.spent()
}

func (b *Ballot) spent() int {
	sum := 0
	for _, c := range b.choices {
		sum += c.Cost()
	}
	return sum
}

// TotalSpent returns total - remaining.
func (b *Ballot) TotalSpent() int {
	return b.total - b.remaining
}

func (b *Ballot) TotalCredits() int {
	return b.total
}

func (b *Ballot) Remaining() int {
	return b.remaining
}

// Votes returns the vote count currently on a choice.
func (b *Ballot) Votes(choiceID string) (int, error) {
	i, ok := b.index[choiceID]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownChoice, choiceID)
	}
	return b.choices[i].Votes, nil
}

// VotingPower is sqrt(cost), which is the vote count restated.
func (b *Ballot) VotingPower(choiceID string) (float64, error) {
	i, ok := b.index[choiceID]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownChoice, choiceID)
	}
	return math.Sqrt(float64(b.choices[i].Cost())), nil
}

// NextCost is the marginal cost of one more vote on the choice.
func (b *Ballot) NextCost(choiceID string) (int, error) {
	i, ok := b.index[choiceID]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownChoice, choiceID)
	}
	return MarginalCost(b.choices[i].Votes), nil
}

// CanIncrease reports whether one more vote on the choice is affordable.
func (b *Ballot) CanIncrease(choiceID string) bool {
	next, err := b.NextCost(choiceID)
	return err == nil && next <= b.remaining
}

// Choices returns a copy of the choices in display order.
func (b *Ballot) Choices() []Choice {
	out := make([]Choice, len(b.choices))
	copy(out, b.choices)
	return out
}

func (b *Ballot) Clone() *Ballot {
	c := &Ballot{
		choices:   b.Choices(),
		index:     make(map[string]int, len(b.index)),
		total:     b.total,
		remaining: b.remaining,
	}
	for id, i := range b.index {
		c.index[id] = i
	}
	return c
}

// VotePair is one (choice position, vote count) entry of a submitted ballot.
type VotePair struct {
	Index int
	Votes int
}

// VoteData lists every choice holding votes, in display order.
func (b *Ballot) VoteData() []VotePair {
	var pairs []VotePair
	for i, c := range b.choices {
		if c.Votes > 0 {
			pairs = append(pairs, VotePair{Index: i, Votes: c.Votes})
		}
	}
	return pairs
}
