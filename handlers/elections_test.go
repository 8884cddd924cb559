// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/quadvote/auth"
	"github.com/danielhkuo/quadvote/models"
	"github.com/danielhkuo/quadvote/session"
	"github.com/danielhkuo/quadvote/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCreateElection(t *testing.T) {
	env := newTestEnv(t)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		wantCredits    int
	}{
		{
			name: "valid election with default credits",
			requestBody: models.CreateElectionRequest{
				Title:       "Budget 2026",
				Description: "Where should the money go?",
				CreatorName: "Treasurer",
			},
			expectedStatus: http.StatusCreated,
			wantCredits:    testutil.TestCredits,
		},
		{
			name: "explicit credits",
			requestBody: models.CreateElectionRequest{
				Title:       "Small ballot",
				CreatorName: "Treasurer",
				Credits:     16,
			},
			expectedStatus: http.StatusCreated,
			wantCredits:    16,
		},
		{
			name:           "missing title",
			requestBody:    models.CreateElectionRequest{CreatorName: "Treasurer"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "blank creator name",
			requestBody:    models.CreateElectionRequest{Title: "T", CreatorName: "   "},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative credits",
			requestBody:    models.CreateElectionRequest{Title: "T", CreatorName: "C", Credits: -3},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "closes_at in the past",
			requestBody:    models.CreateElectionRequest{Title: "T", CreatorName: "C", ClosesAt: &past},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "largest storable topic id",
			requestBody:    models.CreateElectionRequest{Title: "T", CreatorName: "C", TopicID: math.MaxInt64},
			expectedStatus: http.StatusCreated,
			wantCredits:    testutil.TestCredits,
		},
		{
			name:           "topic id above int64",
			requestBody:    models.CreateElectionRequest{Title: "T", CreatorName: "C", TopicID: math.MaxInt64 + 1},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not an object",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/elections", tt.requestBody, nil)
			w := httptest.NewRecorder()
			env.elections.CreateElection(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedStatus != http.StatusCreated {
				return
			}

			var resp models.CreateElectionResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.ElectionID == "" || resp.AdminKey == "" {
				t.Fatalf("missing election_id or admin_key: %+v", resp)
			}
			if err := auth.ValidateAdminKey(resp.ElectionID, resp.AdminKey, env.cfg.AdminKeySalt); err != nil {
				t.Errorf("returned admin key does not validate: %v", err)
			}

			var status, method string
			var credits int
			err := env.db.QueryRow(`SELECT status, method, credits FROM election WHERE id = $1`, resp.ElectionID).
				Scan(&status, &method, &credits)
			if err != nil {
				t.Fatalf("Failed to query election: %v", err)
			}
			if status != models.StatusDraft {
				t.Errorf("status = %s, want draft", status)
			}
			if method != models.MethodQuadratic {
				t.Errorf("method = %s, want quadratic", method)
			}
			if credits != tt.wantCredits {
				t.Errorf("credits = %d, want %d", credits, tt.wantCredits)
			}

			e, err := electionByID(env.db, resp.ElectionID)
			if err != nil {
				t.Fatalf("election does not read back: %v", err)
			}
			if want := tt.requestBody.(models.CreateElectionRequest).TopicID; e.TopicID != want {
				t.Errorf("topic_id = %d, want %d", e.TopicID, want)
			}
		})
	}
}

func TestAddChoice(t *testing.T) {
	env := newTestEnv(t)
	electionID, adminKey, _ := testutil.CreateTestElection(t, env.db, env.cfg, models.StatusDraft)

	tests := []struct {
		name           string
		adminKey       string
		label          string
		expectedStatus int
		wantPosition   int
	}{
		{"first choice", adminKey, "Parks", http.StatusCreated, 0},
		{"second choice", adminKey, "Libraries", http.StatusCreated, 1},
		{"missing label", adminKey, "  ", http.StatusBadRequest, 0},
		{"wrong admin key", "nope", "Roads", http.StatusUnauthorized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/elections/"+electionID+"/choices",
				models.AddChoiceRequest{Label: tt.label},
				map[string]string{"X-Admin-Key": tt.adminKey})
			req.SetPathValue("id", electionID)
			w := httptest.NewRecorder()
			env.elections.AddChoice(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedStatus == http.StatusCreated {
				var resp models.AddChoiceResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.Position != tt.wantPosition {
					t.Errorf("position = %d, want %d", resp.Position, tt.wantPosition)
				}
			}
		})
	}
}

func TestAddChoiceToPublishedElection(t *testing.T) {
	env := newTestEnv(t)
	electionID, adminKey, _ := testutil.CreateTestElection(t, env.db, env.cfg, models.StatusOpen)

	req := testutil.MakeRequest("POST", "/elections/"+electionID+"/choices",
		models.AddChoiceRequest{Label: "Late"}, map[string]string{"X-Admin-Key": adminKey})
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()
	env.elections.AddChoice(w, req)

	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestPublishElection(t *testing.T) {
	env := newTestEnv(t)

	publish := func(electionID, adminKey string) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/elections/"+electionID+"/publish", nil,
			map[string]string{"X-Admin-Key": adminKey})
		req.SetPathValue("id", electionID)
		w := httptest.NewRecorder()
		env.elections.PublishElection(w, req)
		return w
	}

	t.Run("needs two choices", func(t *testing.T) {
		electionID, adminKey, _ := testutil.CreateTestElection(t, env.db, env.cfg, models.StatusDraft)
		testutil.AddTestChoice(t, env.db, electionID, "Only")
		testutil.AssertStatus(t, publish(electionID, adminKey), http.StatusBadRequest)
	})

	t.Run("publishes and returns share url", func(t *testing.T) {
		electionID, adminKey, _ := testutil.CreateTestElection(t, env.db, env.cfg, models.StatusDraft)
		testutil.AddTestChoice(t, env.db, electionID, "A")
		testutil.AddTestChoice(t, env.db, electionID, "B")

		w := publish(electionID, adminKey)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.PublishElectionResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.ShareSlug != auth.ShareSlug(electionID, env.cfg.PollSlugSalt) {
			t.Errorf("share_slug = %s, not derived from election id", resp.ShareSlug)
		}
		if !strings.HasPrefix(resp.ShareURL, env.cfg.BaseURL+"/e/") {
			t.Errorf("share_url = %s, want prefix %s/e/", resp.ShareURL, env.cfg.BaseURL)
		}

		// Publishing twice conflicts
		testutil.AssertStatus(t, publish(electionID, adminKey), http.StatusConflict)
	})

	t.Run("unknown election", func(t *testing.T) {
		id := auth.NewID()
		testutil.AssertStatus(t, publish(id, auth.AdminKey(id, env.cfg.AdminKeySalt)), http.StatusNotFound)
	})
}

func TestGetElectionAdmin(t *testing.T) {
	env := newTestEnv(t)
	electionID, adminKey, _, choiceIDs := env.openElection(t, "A", "B", "C")

	req := testutil.MakeRequest("GET", "/elections/"+electionID+"/admin", nil,
		map[string]string{"X-Admin-Key": adminKey})
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()
	env.elections.GetElectionAdmin(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.ElectionWithChoices
	testutil.AssertJSON(t, w, &resp)
	if resp.Election.ID != electionID {
		t.Errorf("election id = %s, want %s", resp.Election.ID, electionID)
	}
	if len(resp.Choices) != 3 {
		t.Fatalf("got %d choices, want 3", len(resp.Choices))
	}
	for i, c := range resp.Choices {
		if c.ID != choiceIDs[i] || c.Position != i {
			t.Errorf("choice %d = %+v, want id %s at position %d", i, c, choiceIDs[i], i)
		}
	}
}

func TestCloseElection(t *testing.T) {
	env := newTestEnv(t)
	electionID, adminKey, slug, ids := env.openElection(t, "A", "B", "C")

	alice := testutil.CreateTestVoter(t, env.db, electionID, "alice")
	bob := testutil.CreateTestVoter(t, env.db, electionID, "bob")
	testutil.SubmitTestBallot(t, env.db, electionID, alice, map[string]int{ids[0]: 3, ids[1]: 1})
	testutil.SubmitTestBallot(t, env.db, electionID, bob, map[string]int{ids[1]: 2, ids[2]: 1})

	// An open session for a third voter must be discarded on close.
	carol := testutil.CreateTestVoter(t, env.db, electionID, "carol")
	testutil.AssertStatus(t, env.adjust(slug, carol, ids[2], "increase"), http.StatusOK)
	if env.sessions.Len() != 1 {
		t.Fatalf("sessions = %d before close, want 1", env.sessions.Len())
	}

	w := env.close(electionID, adminKey)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.CloseElectionResponse
	testutil.AssertJSON(t, w, &resp)

	// A and B tie on votes; B has more voters so it ranks first.
	want := []struct {
		id     string
		votes  int
		voters int
		rank   int
	}{
		{ids[1], 3, 2, 1},
		{ids[0], 3, 1, 2},
		{ids[2], 1, 1, 3},
	}

	if len(resp.Snapshot.Rankings) != len(want) {
		t.Fatalf("got %d rankings, want %d", len(resp.Snapshot.Rankings), len(want))
	}
	for i, exp := range want {
		got := resp.Snapshot.Rankings[i]
		if got.ChoiceID != exp.id || got.TotalVotes != exp.votes || got.VoterCount != exp.voters || got.Rank != exp.rank {
			t.Errorf("ranking %d = %+v, want id=%s votes=%d voters=%d rank=%d", i, got, exp.id, exp.votes, exp.voters, exp.rank)
		}
	}
	if resp.Snapshot.InputsHash == "" {
		t.Error("snapshot has no inputs_hash")
	}

	if env.sessions.Len() != 0 {
		t.Errorf("sessions = %d after close, want 0", env.sessions.Len())
	}
	if _, ok := env.sessions.Peek(session.Key{ElectionID: electionID, VoterToken: carol}); ok {
		t.Error("carol's session survived close")
	}
	if got := promtest.ToFloat64(env.metrics.ElectionsClosed); got != 1 {
		t.Errorf("elections_closed_total = %v, want 1", got)
	}

	var status, snapshotID string
	err := env.db.QueryRow(`SELECT status, final_snapshot_id FROM election WHERE id = $1`, electionID).Scan(&status, &snapshotID)
	if err != nil {
		t.Fatalf("Failed to query election: %v", err)
	}
	if status != models.StatusClosed || snapshotID != resp.Snapshot.ID {
		t.Errorf("election status=%s snapshot=%s, want closed/%s", status, snapshotID, resp.Snapshot.ID)
	}

	// Closing again conflicts
	testutil.AssertStatus(t, env.close(electionID, adminKey), http.StatusConflict)
}

func TestCloseDraftElection(t *testing.T) {
	env := newTestEnv(t)
	electionID, adminKey, _ := testutil.CreateTestElection(t, env.db, env.cfg, models.StatusDraft)

	testutil.AssertStatus(t, env.close(electionID, adminKey), http.StatusConflict)
	testutil.AssertStatus(t, env.close(electionID, "wrong"), http.StatusUnauthorized)
}
