// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strings"

	"github.com/danielhkuo/quadvote/commitment"
	"github.com/danielhkuo/quadvote/middleware"
	"github.com/danielhkuo/quadvote/models"
)

// DeriveCommitment handles POST /commitments
//
// It lets a client compute the commitment/nullifier pair for an email ahead
// of submitting. Nothing is stored.
func DeriveCommitment(w http.ResponseWriter, r *http.Request) {
	var req models.CommitmentRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	email := strings.TrimSpace(req.Email)
	if !commitment.ValidEmail(email) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid email")
		return
	}

	pair, err := commitment.Derive(req.ElectionID, email)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.CommitmentResponse{
		Email: email,
		Pair:  pair,
	})
}
