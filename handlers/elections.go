// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/quadvote/auth"
	"github.com/danielhkuo/quadvote/cliparse"
	"github.com/danielhkuo/quadvote/metrics"
	"github.com/danielhkuo/quadvote/middleware"
	"github.com/danielhkuo/quadvote/models"
	"github.com/danielhkuo/quadvote/session"
)

// minChoices is the smallest ballot that can be published.
const minChoices = 2

type ElectionHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	sessions *session.Store
	metrics  *metrics.Metrics
}

func NewElectionHandler(db *sql.DB, cfg cliparse.Config, sessions *session.Store, m *metrics.Metrics) *ElectionHandler {
	return &ElectionHandler{db: db, cfg: cfg, sessions: sessions, metrics: m}
}

// requireAdmin checks the X-Admin-Key header against the path election id.
func (h *ElectionHandler) requireAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return "", false
	}
	if err := auth.ValidateAdminKey(electionID, r.Header.Get("X-Admin-Key"), h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return "", false
	}
	return electionID, true
}

// CreateElection handles POST /elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.CreatorName = strings.TrimSpace(req.CreatorName)
	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.CreatorName == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "creator_name is required")
		return
	}

	credits := req.Credits
	if credits == 0 {
		credits = h.cfg.Credits
	}
	if credits <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "credits must be positive")
		return
	}

	if req.TopicID > math.MaxInt64 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "topic_id is out of range")
		return
	}

	now := time.Now()
	if req.ClosesAt != nil && !req.ClosesAt.After(now) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "closes_at must be in the future")
		return
	}

	electionID := auth.NewID()
	adminKey := auth.AdminKey(electionID, h.cfg.AdminKeySalt)

	_, err := h.db.Exec(`
		INSERT INTO election (id, title, description, creator_name, method, credits, topic_id, status, closes_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, electionID, req.Title, req.Description, req.CreatorName, models.MethodQuadratic,
		credits, int64(req.TopicID), models.StatusDraft, req.ClosesAt, now)
	if err != nil {
		slog.Error("failed to insert election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	slog.Info("election created", "election_id", electionID, "creator", req.CreatorName, "credits", credits)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateElectionResponse{
		ElectionID: electionID,
		AdminKey:   adminKey,
	})
}

// AddChoice handles POST /elections/{id}/choices
func (h *ElectionHandler) AddChoice(w http.ResponseWriter, r *http.Request) {
	electionID, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var req models.AddChoiceRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "label is required")
		return
	}

	var status string
	var position int
	err := h.db.QueryRow(`
		SELECT e.status, COUNT(c.id)
		FROM election e
		LEFT JOIN choice c ON c.election_id = e.id
		WHERE e.id = $1
		GROUP BY e.status
	`, electionID).Scan(&status, &position)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if status != models.StatusDraft {
		middleware.ErrorResponse(w, http.StatusConflict, "Cannot add choices to a published election")
		return
	}

	choiceID := auth.NewID()
	_, err = h.db.Exec(`
		INSERT INTO choice (id, election_id, label, position)
		VALUES ($1, $2, $3, $4)
	`, choiceID, electionID, req.Label, position)
	if err != nil {
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "Choice was added concurrently, retry")
			return
		}
		slog.Error("failed to insert choice", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create choice")
		return
	}

	slog.Info("choice added", "election_id", electionID, "choice_id", choiceID, "position", position)

	middleware.JSONResponse(w, http.StatusCreated, models.AddChoiceResponse{
		ChoiceID: choiceID,
		Position: position,
	})
}

// PublishElection handles POST /elections/{id}/publish
func (h *ElectionHandler) PublishElection(w http.ResponseWriter, r *http.Request) {
	electionID, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	e, err := electionByID(h.db, electionID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if e.Status != models.StatusDraft {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not in draft status")
		return
	}

	choices, err := choicesFor(h.db, electionID)
	if err != nil {
		slog.Error("failed to query choices", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if len(choices) < minChoices {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Election must have at least 2 choices")
		return
	}
	if e.ClosesAt != nil && !e.ClosesAt.After(time.Now()) {
		middleware.ErrorResponse(w, http.StatusConflict, "closes_at has already passed")
		return
	}

	shareSlug := auth.ShareSlug(electionID, h.cfg.PollSlugSalt)

	res, err := h.db.Exec(`
		UPDATE election
		SET status = $1, share_slug = $2
		WHERE id = $3 AND status = $4
	`, models.StatusOpen, shareSlug, electionID, models.StatusDraft)
	if err != nil {
		slog.Error("failed to publish election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to publish election")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not in draft status")
		return
	}

	slog.Info("election published", "election_id", electionID, "share_slug", shareSlug, "choices", len(choices))

	middleware.JSONResponse(w, http.StatusOK, models.PublishElectionResponse{
		ShareSlug: shareSlug,
		ShareURL:  h.cfg.BaseURL + "/e/" + shareSlug,
	})
}

// GetElectionAdmin handles GET /elections/{id}/admin
func (h *ElectionHandler) GetElectionAdmin(w http.ResponseWriter, r *http.Request) {
	electionID, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	e, err := electionByID(h.db, electionID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	choices, err := choicesFor(h.db, electionID)
	if err != nil {
		slog.Error("failed to query choices", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ElectionWithChoices{
		Election: e,
		Choices:  choices,
	})
}

var errNotOpen = errors.New("election is not open")

// CloseElection handles POST /elections/{id}/close
//
// The tally, the snapshot and the status change are written in a single
// transaction, and the election's in-memory ballot sessions are dropped.
func (h *ElectionHandler) CloseElection(w http.ResponseWriter, r *http.Request) {
	electionID, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	snapshot, err := h.close(electionID)
	switch {
	case err == sql.ErrNoRows:
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	case errors.Is(err, errNotOpen):
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not open")
		return
	case err != nil:
		slog.Error("failed to close election", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close election")
		return
	}

	dropped := h.sessions.DropElection(electionID)
	h.metrics.ElectionsClosed.Inc()

	slog.Info("election closed", "election_id", electionID, "snapshot_id", snapshot.ID,
		"inputs_hash", snapshot.InputsHash, "sessions_dropped", dropped)

	middleware.JSONResponse(w, http.StatusOK, models.CloseElectionResponse{
		ClosedAt: snapshot.ComputedAt,
		Snapshot: snapshot,
	})
}

func (h *ElectionHandler) close(electionID string) (models.ResultSnapshot, error) {
	tx, err := h.db.Begin()
	if err != nil {
		return models.ResultSnapshot{}, err
	}
	defer tx.Rollback()

	e, err := electionByID(tx, electionID)
	if err != nil {
		return models.ResultSnapshot{}, err
	}
	if e.Status != models.StatusOpen {
		return models.ResultSnapshot{}, errNotOpen
	}

	rankings, err := ComputeTally(tx, electionID)
	if err != nil {
		return models.ResultSnapshot{}, err
	}
	inputsHash, err := computeInputsHash(tx, electionID)
	if err != nil {
		return models.ResultSnapshot{}, err
	}

	snapshot := models.ResultSnapshot{
		ID:         auth.NewID(),
		ElectionID: electionID,
		Method:     models.MethodQuadratic,
		ComputedAt: time.Now().UTC(),
		Rankings:   rankings,
		InputsHash: inputsHash,
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return models.ResultSnapshot{}, err
	}

	res, err := tx.Exec(`
		UPDATE election
		SET status = $1, closed_at = $2, final_snapshot_id = $3
		WHERE id = $4 AND status = $5
	`, models.StatusClosed, snapshot.ComputedAt, snapshot.ID, electionID, models.StatusOpen)
	if err != nil {
		return models.ResultSnapshot{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ResultSnapshot{}, errNotOpen
	}

	_, err = tx.Exec(`
		INSERT INTO result_snapshot (id, election_id, method, computed_at, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, snapshot.ID, electionID, snapshot.Method, snapshot.ComputedAt, string(payload))
	if err != nil {
		return models.ResultSnapshot{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.ResultSnapshot{}, err
	}
	return snapshot, nil
}
