// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreateElectionRequest: title, description, creator_name, credits, topic_id, closes_at
  - AddChoiceRequest: label
  - ClaimVoterRequest: username
  - AdjustBallotRequest: choice_id, direction ("increase" or "decrease")
  - AllocateVotesRequest: choice_id, votes
  - SubmitBallotRequest: optional email
  - CommitmentRequest: email, optional election_id

# Response Types

Types for JSON responses:

  - CreateElectionResponse: election_id, admin_key
  - AddChoiceResponse: choice_id, position
  - PublishElectionResponse: share_slug, share_url
  - ClaimVoterResponse: voter_token
  - BallotState: credits and per-choice allocation of an open ballot
  - SubmitBallotResponse: ballot_id, message, credits_spent, payload
  - CloseElectionResponse: closed_at, snapshot
  - ErrorResponse: error, message, code

# Domain Types

  - Election: metadata, credit budget and lifecycle state
  - Choice: ballot line with label and display position
  - Ballot: voter submission metadata with commitment and nullifier
  - ChoiceTally: aggregated votes and credits for a choice
  - ResultSnapshot: immutable result record

# Constants

Status values:

	StatusDraft  = "draft"
	StatusOpen   = "open"
	StatusClosed = "closed"

Voting method:

	MethodQuadratic = "quadratic"

Rejection codes (ErrorResponse.Code):

	CodeUnknownChoice, CodeInsufficientCredits, CodeNoVotesToRemove,
	CodeInvalidVoteCount, CodeNoVotesCast, CodeNullifierUsed
*/
package models
