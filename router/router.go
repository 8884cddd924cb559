// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/quadvote/cliparse"
	"github.com/danielhkuo/quadvote/handlers"
	"github.com/danielhkuo/quadvote/metrics"
	"github.com/danielhkuo/quadvote/middleware"
	"github.com/danielhkuo/quadvote/session"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, sessions *session.Store, m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	electionHandler := handlers.NewElectionHandler(db, cfg, sessions, m)
	votingHandler := handlers.NewVotingHandler(db, cfg, sessions, m)
	resultsHandler := handlers.NewResultsHandler(db, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", m.Handler())

	// Election management (admin operations)
	mux.HandleFunc("POST /elections", middleware.WithLogging(electionHandler.CreateElection))
	mux.HandleFunc("GET /elections/{id}/admin", middleware.WithLogging(electionHandler.GetElectionAdmin))
	mux.HandleFunc("POST /elections/{id}/choices", middleware.WithLogging(electionHandler.AddChoice))
	mux.HandleFunc("POST /elections/{id}/publish", middleware.WithLogging(electionHandler.PublishElection))
	mux.HandleFunc("POST /elections/{id}/close", middleware.WithLogging(electionHandler.CloseElection))

	// Voting operations (public, by share slug)
	mux.HandleFunc("POST /elections/{slug}/claim-voter", middleware.WithLogging(votingHandler.ClaimVoter))
	mux.HandleFunc("GET /elections/{slug}/ballot", middleware.WithLogging(votingHandler.GetBallot))
	mux.HandleFunc("POST /elections/{slug}/ballot/adjust", middleware.WithLogging(votingHandler.AdjustBallot))
	mux.HandleFunc("POST /elections/{slug}/ballot/allocate", middleware.WithLogging(votingHandler.AllocateVotes))
	mux.HandleFunc("POST /elections/{slug}/ballots", middleware.WithLogging(votingHandler.SubmitBallot))
	mux.HandleFunc("POST /commitments", middleware.WithLogging(handlers.DeriveCommitment))

	// Results retrieval (public, with sealed results)
	mux.HandleFunc("GET /elections/{slug}", middleware.WithLogging(resultsHandler.GetElection))
	mux.HandleFunc("GET /elections/{slug}/results", middleware.WithLogging(resultsHandler.GetResults))
	mux.HandleFunc("GET /elections/{slug}/ballot-count", middleware.WithLogging(resultsHandler.GetBallotCount))
	mux.HandleFunc("GET /elections/{slug}/preview", middleware.WithLogging(resultsHandler.GetPreview))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("quadvote API v1"))
	})

	return mux
}
