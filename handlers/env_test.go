// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/quadvote/cliparse"
	"github.com/danielhkuo/quadvote/metrics"
	"github.com/danielhkuo/quadvote/models"
	"github.com/danielhkuo/quadvote/session"
	"github.com/danielhkuo/quadvote/testutil"
)

// testEnv wires every handler to one in-memory database.
type testEnv struct {
	db        *sql.DB
	cfg       cliparse.Config
	sessions  *session.Store
	metrics   *metrics.Metrics
	elections *ElectionHandler
	voting    *VotingHandler
	results   *ResultsHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	sessions, err := session.NewStore(cfg.SessionCache)
	if err != nil {
		t.Fatalf("Failed to create session store: %v", err)
	}
	m := metrics.New(sessions.Len)

	return &testEnv{
		db:        db,
		cfg:       cfg,
		sessions:  sessions,
		metrics:   m,
		elections: NewElectionHandler(db, cfg, sessions, m),
		voting:    NewVotingHandler(db, cfg, sessions, m),
		results:   NewResultsHandler(db, cfg),
	}
}

// openElection creates an open election with the given choice labels and
// returns its id, admin key, share slug and choice ids.
func (env *testEnv) openElection(t *testing.T, labels ...string) (string, string, string, []string) {
	t.Helper()

	electionID, adminKey, slug := testutil.CreateTestElection(t, env.db, env.cfg, models.StatusOpen)
	ids := make([]string, len(labels))
	for i, l := range labels {
		ids[i] = testutil.AddTestChoice(t, env.db, electionID, l)
	}
	return electionID, adminKey, slug, ids
}

func (env *testEnv) setCredits(t *testing.T, electionID string, credits int) {
	t.Helper()
	if _, err := env.db.Exec(`UPDATE election SET credits = $1 WHERE id = $2`, credits, electionID); err != nil {
		t.Fatalf("Failed to set credits: %v", err)
	}
}

func (env *testEnv) adjust(slug, token, choiceID, direction string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/elections/"+slug+"/ballot/adjust",
		models.AdjustBallotRequest{ChoiceID: choiceID, Direction: direction},
		map[string]string{"X-Voter-Token": token})
	req.SetPathValue("slug", slug)
	w := httptest.NewRecorder()
	env.voting.AdjustBallot(w, req)
	return w
}

func (env *testEnv) allocate(slug, token, choiceID string, votes int) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/elections/"+slug+"/ballot/allocate",
		models.AllocateVotesRequest{ChoiceID: choiceID, Votes: votes},
		map[string]string{"X-Voter-Token": token})
	req.SetPathValue("slug", slug)
	w := httptest.NewRecorder()
	env.voting.AllocateVotes(w, req)
	return w
}

func (env *testEnv) submit(slug, token string, body any) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/elections/"+slug+"/ballots", body,
		map[string]string{"X-Voter-Token": token})
	req.SetPathValue("slug", slug)
	w := httptest.NewRecorder()
	env.voting.SubmitBallot(w, req)
	return w
}

func (env *testEnv) close(electionID, adminKey string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/elections/"+electionID+"/close", nil,
		map[string]string{"X-Admin-Key": adminKey})
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()
	env.elections.CloseElection(w, req)
	return w
}

func (env *testEnv) get(handler http.HandlerFunc, path, slug string, headers map[string]string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("GET", path, nil, headers)
	req.SetPathValue("slug", slug)
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}
