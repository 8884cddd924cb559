// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/quadvote/auth"
	"github.com/danielhkuo/quadvote/cliparse"
	"github.com/danielhkuo/quadvote/commitment"
	"github.com/danielhkuo/quadvote/ledger"
	"github.com/danielhkuo/quadvote/metrics"
	"github.com/danielhkuo/quadvote/middleware"
	"github.com/danielhkuo/quadvote/models"
	"github.com/danielhkuo/quadvote/quadratic"
	"github.com/danielhkuo/quadvote/session"
)

type VotingHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	sessions *session.Store
	metrics  *metrics.Metrics
}

func NewVotingHandler(db *sql.DB, cfg cliparse.Config, sessions *session.Store, m *metrics.Metrics) *VotingHandler {
	return &VotingHandler{db: db, cfg: cfg, sessions: sessions, metrics: m}
}

// ClaimVoter handles POST /elections/{slug}/claim-voter
func (h *VotingHandler) ClaimVoter(w http.ResponseWriter, r *http.Request) {
	shareSlug := r.PathValue("slug")
	if shareSlug == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "slug is required")
		return
	}

	var req models.ClaimVoterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "username is required")
		return
	}
	if len(req.Username) < 2 || len(req.Username) > 50 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "username must be 2-50 characters")
		return
	}

	e, err := electionBySlug(h.db, shareSlug)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !acceptingVotes(e, time.Now()) {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not open for voting")
		return
	}

	voterToken, err := auth.NewVoterToken()
	if err != nil {
		slog.Error("failed to generate voter token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to claim voter")
		return
	}

	_, err = h.db.Exec(`
		INSERT INTO voter_claim (election_id, username, voter_token, created_at)
		VALUES ($1, $2, $3, $4)
	`, e.ID, req.Username, voterToken, time.Now())
	if err != nil {
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "Username already taken")
			return
		}
		slog.Error("failed to insert voter claim", "error", err, "election_id", e.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to claim voter")
		return
	}

	slog.Info("voter claimed", "election_id", e.ID, "username", req.Username)

	middleware.JSONResponse(w, http.StatusCreated, models.ClaimVoterResponse{
		VoterToken: voterToken,
	})
}

// voter resolves the share slug and X-Voter-Token header of a ballot request.
// With mutate set the election must still be accepting votes.
func (h *VotingHandler) voter(w http.ResponseWriter, r *http.Request, mutate bool) (models.Election, string, bool) {
	shareSlug := r.PathValue("slug")
	if shareSlug == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "slug is required")
		return models.Election{}, "", false
	}

	voterToken := r.Header.Get("X-Voter-Token")
	if voterToken == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Voter-Token header is required")
		return models.Election{}, "", false
	}
	if err := auth.ValidateVoterToken(voterToken); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid voter token")
		return models.Election{}, "", false
	}

	e, err := electionBySlug(h.db, shareSlug)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return models.Election{}, "", false
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.Election{}, "", false
	}

	claimed, err := voterClaimed(h.db, e.ID, voterToken)
	if err != nil {
		slog.Error("failed to query voter claim", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.Election{}, "", false
	}
	if !claimed {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid voter token")
		return models.Election{}, "", false
	}

	if mutate && !acceptingVotes(e, time.Now()) {
		// Past closes_at the edits can never be submitted.
		h.sessions.Drop(session.Key{ElectionID: e.ID, VoterToken: voterToken})
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not open for voting")
		return models.Election{}, "", false
	}
	return e, voterToken, true
}

// openSession returns the voter's in-memory ballot, rebuilding it from the
// submitted allocation (or an empty ballot) on a cache miss.
func (h *VotingHandler) openSession(e models.Election, voterToken string) (*session.Session, error) {
	key := session.Key{ElectionID: e.ID, VoterToken: voterToken}
	return h.sessions.Load(key, func() (*quadratic.Ballot, map[string]string, error) {
		choices, err := choicesFor(h.db, e.ID)
		if err != nil {
			return nil, nil, err
		}
		votes, err := submittedVotes(h.db, e.ID, voterToken)
		if err != nil {
			return nil, nil, err
		}

		lines := make([]quadratic.Choice, len(choices))
		labels := make(map[string]string, len(choices))
		for i, c := range choices {
			lines[i] = quadratic.Choice{ID: c.ID, Votes: votes[c.ID]}
			labels[c.ID] = c.Label
		}
		b, err := quadratic.Restore(lines, e.Credits)
		if err != nil {
			return nil, nil, err
		}
		return b, labels, nil
	})
}

func ballotState(electionID string, s *session.Session) models.BallotState {
	var state models.BallotState
	s.View(func(b *quadratic.Ballot) {
		state = models.BallotState{
			ElectionID:       electionID,
			TotalCredits:     b.TotalCredits(),
			RemainingCredits: b.Remaining(),
			CreditsSpent:     b.TotalSpent(),
			Choices:          []models.ChoiceAllocation{},
		}
		for _, c := range b.Choices() {
			power, _ := b.VotingPower(c.ID)
			state.Choices = append(state.Choices, models.ChoiceAllocation{
				ChoiceID:    c.ID,
				Label:       s.Label(c.ID),
				Votes:       c.Votes,
				Cost:        c.Cost(),
				Power:       power,
				NextCost:    quadratic.MarginalCost(c.Votes),
				CanIncrease: b.CanIncrease(c.ID),
				CanDecrease: c.Votes > 0,
			})
		}
	})
	return state
}

// GetBallot handles GET /elections/{slug}/ballot
func (h *VotingHandler) GetBallot(w http.ResponseWriter, r *http.Request) {
	e, voterToken, ok := h.voter(w, r, false)
	if !ok {
		return
	}

	s, err := h.openSession(e, voterToken)
	if err != nil {
		slog.Error("failed to load ballot", "election_id", e.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load ballot")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, ballotState(e.ID, s))
}

// AdjustBallot handles POST /elections/{slug}/ballot/adjust
func (h *VotingHandler) AdjustBallot(w http.ResponseWriter, r *http.Request) {
	e, voterToken, ok := h.voter(w, r, true)
	if !ok {
		return
	}

	var req models.AdjustBallotRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	dir, err := quadratic.ParseDirection(req.Direction)
	if err != nil {
		h.metrics.BallotAdjustments.WithLabelValues(req.Direction, metrics.OutcomeInvalid).Inc()
		middleware.ErrorResponse(w, http.StatusBadRequest, "direction must be increase or decrease")
		return
	}

	s, err := h.openSession(e, voterToken)
	if err != nil {
		slog.Error("failed to load ballot", "election_id", e.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load ballot")
		return
	}

	err = s.Do(func(b *quadratic.Ballot) error {
		return b.RequestChange(req.ChoiceID, dir)
	})
	if err != nil {
		h.reject(w, dir.String(), err)
		return
	}
	h.metrics.BallotAdjustments.WithLabelValues(dir.String(), metrics.OutcomeAccepted).Inc()

	middleware.JSONResponse(w, http.StatusOK, ballotState(e.ID, s))
}

// AllocateVotes handles POST /elections/{slug}/ballot/allocate
func (h *VotingHandler) AllocateVotes(w http.ResponseWriter, r *http.Request) {
	e, voterToken, ok := h.voter(w, r, true)
	if !ok {
		return
	}

	var req models.AllocateVotesRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	s, err := h.openSession(e, voterToken)
	if err != nil {
		slog.Error("failed to load ballot", "election_id", e.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load ballot")
		return
	}

	err = s.Do(func(b *quadratic.Ballot) error {
		return b.SetVotes(req.ChoiceID, req.Votes)
	})
	if err != nil {
		h.reject(w, "set", err)
		return
	}
	h.metrics.BallotAdjustments.WithLabelValues("set", metrics.OutcomeAccepted).Inc()

	middleware.JSONResponse(w, http.StatusOK, ballotState(e.ID, s))
}

// reject maps a ballot rule violation to its response and counts it.
func (h *VotingHandler) reject(w http.ResponseWriter, direction string, err error) {
	var status int
	var code, outcome string
	switch {
	case errors.Is(err, quadratic.ErrUnknownChoice):
		status, code, outcome = http.StatusBadRequest, models.CodeUnknownChoice, metrics.OutcomeUnknown
	case errors.Is(err, quadratic.ErrInsufficientCredits):
		status, code, outcome = http.StatusUnprocessableEntity, models.CodeInsufficientCredits, metrics.OutcomeInsufficient
	case errors.Is(err, quadratic.ErrNoVotesToRemove):
		status, code, outcome = http.StatusUnprocessableEntity, models.CodeNoVotesToRemove, metrics.OutcomeNoVotes
	case errors.Is(err, quadratic.ErrInvalidVoteCount):
		status, code, outcome = http.StatusBadRequest, models.CodeInvalidVoteCount, metrics.OutcomeInvalid
	default:
		slog.Error("unexpected ballot error", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update ballot")
		return
	}

	h.metrics.BallotAdjustments.WithLabelValues(direction, outcome).Inc()
	middleware.ErrorCodeResponse(w, status, code, err.Error())
}

var errNullifierUsed = errors.New("nullifier already used by another voter")

// SubmitBallot handles POST /elections/{slug}/ballots
//
// The voter's current session ballot is persisted. Submitting again replaces
// the earlier ballot; the nullifier stays bound to the first voter token
// that used it.
func (h *VotingHandler) SubmitBallot(w http.ResponseWriter, r *http.Request) {
	e, voterToken, ok := h.voter(w, r, true)
	if !ok {
		return
	}

	var req models.SubmitBallotRequest
	if err := middleware.ParseOptionalJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	identity := auth.VoterIdentity(voterToken, h.cfg.AdminKeySalt)
	if req.Email != "" {
		if !commitment.ValidEmail(req.Email) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid email")
			return
		}
		identity = req.Email
	}

	s, err := h.openSession(e, voterToken)
	if err != nil {
		slog.Error("failed to load ballot", "election_id", e.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load ballot")
		return
	}
	var ballot *quadratic.Ballot
	s.View(func(b *quadratic.Ballot) { ballot = b })

	pair, err := commitment.Derive(e.ID, identity)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	payload, err := ledger.NewVotePayload(e.TopicID, pair, req.LocationProof, ballot)
	if errors.Is(err, ledger.ErrNoVotesCast) {
		middleware.ErrorCodeResponse(w, http.StatusUnprocessableEntity, models.CodeNoVotesCast, "Ballot has no votes")
		return
	}
	if errors.Is(err, ledger.ErrLocationProofTooLong) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "location_proof is too long")
		return
	}
	if err != nil {
		slog.Error("failed to build vote payload", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit ballot")
		return
	}

	ipHash := auth.HashIP(middleware.GetClientIP(r), h.cfg.AdminKeySalt)
	userAgent := r.UserAgent()

	ballotID, updated, err := h.persist(e.ID, voterToken, ballot, payload, ipHash, userAgent)
	switch {
	case errors.Is(err, errNotOpen):
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not open for voting")
		return
	case errors.Is(err, errNullifierUsed):
		middleware.ErrorCodeResponse(w, http.StatusConflict, models.CodeNullifierUsed, err.Error())
		return
	case err != nil:
		slog.Error("failed to store ballot", "election_id", e.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit ballot")
		return
	}

	kind, message := "new", "Ballot submitted successfully"
	if updated {
		kind, message = "updated", "Ballot updated successfully"
	}
	h.metrics.BallotsSubmitted.WithLabelValues(kind).Inc()

	slog.Info("ballot submitted", "election_id", e.ID, "ballot_id", ballotID,
		"credits_spent", ballot.TotalSpent(), "updated", updated)

	middleware.JSONResponse(w, http.StatusCreated, models.SubmitBallotResponse{
		BallotID:     ballotID,
		Message:      message,
		CreditsSpent: ballot.TotalSpent(),
		Payload:      payload,
	})
}

func (h *VotingHandler) persist(electionID, voterToken string, ballot *quadratic.Ballot, payload ledger.VotePayload, ipHash, userAgent string) (string, bool, error) {
	tx, err := h.db.Begin()
	if err != nil {
		return "", false, err
	}
	defer tx.Rollback()

	// Re-check inside the transaction so a concurrent close wins.
	e, err := electionByID(tx, electionID)
	if err != nil {
		return "", false, err
	}
	if !acceptingVotes(e, time.Now()) {
		return "", false, errNotOpen
	}

	var owner string
	err = tx.QueryRow(`
		SELECT voter_token FROM ballot WHERE election_id = $1 AND nullifier = $2
	`, electionID, payload.Nullifier.Hex()).Scan(&owner)
	if err != nil && err != sql.ErrNoRows {
		return "", false, err
	}
	if err == nil && owner != voterToken {
		return "", false, errNullifierUsed
	}

	var ballotID string
	err = tx.QueryRow(`
		SELECT id FROM ballot WHERE election_id = $1 AND voter_token = $2
	`, electionID, voterToken).Scan(&ballotID)
	updated := err == nil
	if err != nil && err != sql.ErrNoRows {
		return "", false, err
	}

	now := time.Now()
	if updated {
		_, err = tx.Exec(`
			UPDATE ballot
			SET submitted_at = $1, credits_spent = $2, commitment = $3, nullifier = $4, location_proof = $5, ip_hash = $6, user_agent = $7
			WHERE id = $8
		`, now, ballot.TotalSpent(), payload.Commitment.Hex(), payload.Nullifier.Hex(), payload.LocationProof, ipHash, userAgent, ballotID)
		if err != nil {
			return "", false, err
		}
		if _, err := tx.Exec(`DELETE FROM allocation WHERE ballot_id = $1`, ballotID); err != nil {
			return "", false, err
		}
	} else {
		ballotID = auth.NewID()
		_, err = tx.Exec(`
			INSERT INTO ballot (id, election_id, voter_token, submitted_at, credits_spent, commitment, nullifier, location_proof, ip_hash, user_agent)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, ballotID, electionID, voterToken, now, ballot.TotalSpent(), payload.Commitment.Hex(), payload.Nullifier.Hex(), payload.LocationProof, ipHash, userAgent)
		if err != nil {
			if isUniqueViolation(err) {
				return "", false, errNullifierUsed
			}
			return "", false, err
		}
	}

	for _, c := range ballot.Choices() {
		if c.Votes == 0 {
			continue
		}
		_, err := tx.Exec(`
			INSERT INTO allocation (ballot_id, choice_id, votes)
			VALUES ($1, $2, $3)
		`, ballotID, c.ID, c.Votes)
		if err != nil {
			return "", false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", false, err
	}
	return ballotID, updated, nil
}
