// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/quadvote/cliparse"
	"github.com/danielhkuo/quadvote/middleware"
	"github.com/danielhkuo/quadvote/models"
	"github.com/dustin/go-humanize"
)

type ResultsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewResultsHandler(db *sql.DB, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{db: db, cfg: cfg}
}

// lookup resolves the {slug} path value, writing the error response itself.
func (h *ResultsHandler) lookup(w http.ResponseWriter, r *http.Request) (models.Election, bool) {
	shareSlug := r.PathValue("slug")
	if shareSlug == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "slug is required")
		return models.Election{}, false
	}

	e, err := electionBySlug(h.db, shareSlug)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return models.Election{}, false
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.Election{}, false
	}
	return e, true
}

// GetElection handles GET /elections/{slug}
// Returns the election and its choices. Tallies stay sealed until close.
func (h *ResultsHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	choices, err := choicesFor(h.db, e.ID)
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

// GetResults handles GET /elections/{slug}/results
// Returns 403 until the election is closed, then the final snapshot.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if e.Status != models.StatusClosed {
		middleware.ErrorResponse(w, http.StatusForbidden, "Results are sealed until the election is closed")
		return
	}
	if e.FinalSnapshotID == nil {
		slog.Error("closed election has no snapshot", "election_id", e.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Results not available")
		return
	}

	var payload []byte
	err := h.db.QueryRow(`SELECT payload FROM result_snapshot WHERE id = $1`, *e.FinalSnapshotID).Scan(&payload)
	if err != nil {
		slog.Error("failed to query snapshot", "snapshot_id", *e.FinalSnapshotID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var snapshot models.ResultSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		slog.Error("failed to parse snapshot", "snapshot_id", *e.FinalSnapshotID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to parse results")
		return
	}

	count, err := ballotCount(h.db, e.ID)
	if err != nil {
		slog.Error("failed to count ballots", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResultsResponse{
		Election:    e,
		Rankings:    snapshot.Rankings,
		BallotCount: count,
		InputsHash:  snapshot.InputsHash,
	})
}

// GetBallotCount handles GET /elections/{slug}/ballot-count
// The count is visible while the election is open.
func (h *ResultsHandler) GetBallotCount(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	count, err := ballotCount(h.db, e.ID)
	if err != nil {
		slog.Error("failed to count ballots", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.BallotCountResponse{BallotCount: count})
}

// GetPreview handles GET /elections/{slug}/preview
// Compact election summary for link unfurls.
func (h *ResultsHandler) GetPreview(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var choiceCount int
	err := h.db.QueryRow(`SELECT COUNT(*) FROM choice WHERE election_id = $1`, e.ID).Scan(&choiceCount)
	if err != nil {
		slog.Error("failed to count choices", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	count, err := ballotCount(h.db, e.ID)
	if err != nil {
		slog.Error("failed to count ballots", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	resp := models.ElectionPreviewResponse{
		Title:       e.Title,
		Status:      e.Status,
		Credits:     e.Credits,
		ChoiceCount: choiceCount,
		BallotCount: count,
	}
	if e.Status == models.StatusOpen && e.ClosesAt != nil {
		closesIn := humanize.Time(*e.ClosesAt)
		resp.ClosesIn = &closesIn
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}
