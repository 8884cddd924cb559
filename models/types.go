package models

import (
	"time"

	"github.com/danielhkuo/quadvote/commitment"
	"github.com/danielhkuo/quadvote/ledger"
)

// Election status constants
const (
	StatusDraft  = "draft"
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Voting method constants
const (
	MethodQuadratic = "quadratic"
)

// Ballot adjustment directions
const (
	DirectionIncrease = "increase"
	DirectionDecrease = "decrease"
)

// Error codes returned with ballot rejections
const (
	CodeUnknownChoice       = "unknown_choice"
	CodeInsufficientCredits = "insufficient_credits"
	CodeNoVotesToRemove     = "no_votes_to_remove"
	CodeInvalidVoteCount    = "invalid_vote_count"
	CodeNoVotesCast         = "no_votes_cast"
	CodeNullifierUsed       = "nullifier_used"
)

// Request types

type CreateElectionRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatorName string     `json:"creator_name"`
	Credits     int        `json:"credits"`
	TopicID     uint64     `json:"topic_id,omitempty"`
	ClosesAt    *time.Time `json:"closes_at,omitempty"`
}

type AddChoiceRequest struct {
	Label string `json:"label"`
}

type ClaimVoterRequest struct {
	Username string `json:"username"`
}

type AdjustBallotRequest struct {
	ChoiceID  string `json:"choice_id"`
	Direction string `json:"direction"`
}

type AllocateVotesRequest struct {
	ChoiceID string `json:"choice_id"`
	Votes    int    `json:"votes"`
}

// Email is optional; without it the pair is derived from the voter token.
type SubmitBallotRequest struct {
	Email         string `json:"email,omitempty"`
	LocationProof string `json:"location_proof,omitempty"`
}

type CommitmentRequest struct {
	Email      string `json:"email"`
	ElectionID string `json:"election_id,omitempty"`
}

// Response types

type CreateElectionResponse struct {
	ElectionID string `json:"election_id"`
	AdminKey   string `json:"admin_key"`
}

type AddChoiceResponse struct {
	ChoiceID string `json:"choice_id"`
	Position int    `json:"position"`
}

type PublishElectionResponse struct {
	ShareSlug string `json:"share_slug"`
	ShareURL  string `json:"share_url"`
}

type ClaimVoterResponse struct {
	VoterToken string `json:"voter_token"`
}

type SubmitBallotResponse struct {
	BallotID     string             `json:"ballot_id"`
	Message      string             `json:"message"`
	CreditsSpent int                `json:"credits_spent"`
	Payload      ledger.VotePayload `json:"payload"`
}

type CommitmentResponse struct {
	Email string `json:"email"`
	commitment.Pair
}

type CloseElectionResponse struct {
	ClosedAt time.Time      `json:"closed_at"`
	Snapshot ResultSnapshot `json:"snapshot"`
}

type BallotCountResponse struct {
	BallotCount int `json:"ballot_count"`
}

type ElectionPreviewResponse struct {
	Title       string  `json:"title"`
	Status      string  `json:"status"`
	Credits     int     `json:"credits"`
	ChoiceCount int     `json:"choice_count"`
	BallotCount int     `json:"ballot_count"`
	ClosesIn    *string `json:"closes_in,omitempty"`
}

type ResultsResponse struct {
	Election    Election      `json:"election"`
	Rankings    []ChoiceTally `json:"rankings"`
	BallotCount int           `json:"ballot_count"`
	InputsHash  string        `json:"inputs_hash"`
}

// Domain types

type Election struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	CreatorName     string     `json:"creator_name"`
	Method          string     `json:"method"`
	Credits         int        `json:"credits"`
	TopicID         uint64     `json:"topic_id"`
	Status          string     `json:"status"`
	ShareSlug       *string    `json:"share_slug,omitempty"`
	ClosesAt        *time.Time `json:"closes_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	FinalSnapshotID *string    `json:"final_snapshot_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type Choice struct {
	ID         string `json:"id"`
	ElectionID string `json:"election_id"`
	Label      string `json:"label"`
	Position   int    `json:"position"`
}

type ElectionWithChoices struct {
	Election Election `json:"election"`
	Choices  []Choice `json:"choices"`
}

type Ballot struct {
	ID           string    `json:"id"`
	ElectionID   string    `json:"election_id"`
	VoterToken   string    `json:"-"` // Never expose in JSON
	SubmittedAt  time.Time `json:"submitted_at"`
	CreditsSpent int       `json:"credits_spent"`
	Commitment   string    `json:"commitment"`
	Nullifier    string    `json:"nullifier"`
	IPHash       *string   `json:"-"` // Never expose in JSON
	UserAgent    *string   `json:"-"` // Never expose in JSON
}

// ChoiceAllocation is one line of a ballot as shown to the voter.
type ChoiceAllocation struct {
	ChoiceID    string  `json:"choice_id"`
	Label       string  `json:"label"`
	Votes       int     `json:"votes"`
	Cost        int     `json:"cost"`
	Power       float64 `json:"power"`
	NextCost    int     `json:"next_cost"`
	CanIncrease bool    `json:"can_increase"`
	CanDecrease bool    `json:"can_decrease"`
}

// BallotState is the voter's in-progress ballot.
type BallotState struct {
	ElectionID       string             `json:"election_id"`
	TotalCredits     int                `json:"total_credits"`
	RemainingCredits int                `json:"remaining_credits"`
	CreditsSpent     int                `json:"credits_spent"`
	Choices          []ChoiceAllocation `json:"choices"`
}

// Tally Result Types

type ChoiceTally struct {
	ChoiceID     string `json:"choice_id"`
	Label        string `json:"label"`
	Position     int    `json:"position"`
	TotalVotes   int    `json:"total_votes"`
	CreditsSpent int    `json:"credits_spent"`
	VoterCount   int    `json:"voter_count"`
	Rank         int    `json:"rank"` // 1-indexed ranking
}

type ResultSnapshot struct {
	ID         string        `json:"id"`
	ElectionID string        `json:"election_id"`
	Method     string        `json:"method"`
	ComputedAt time.Time     `json:"computed_at"`
	Rankings   []ChoiceTally `json:"rankings"`
	InputsHash string        `json:"inputs_hash"` // Hash of all ballot IDs for verification
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}
