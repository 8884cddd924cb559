// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/quadvote/auth"
	"github.com/danielhkuo/quadvote/cliparse"
	"github.com/danielhkuo/quadvote/commitment"
	"github.com/danielhkuo/quadvote/db"
	"github.com/danielhkuo/quadvote/models"
)

// TestCredits is the budget of elections made by CreateTestElection.
const TestCredits = 100

// SetupTestDB opens a private in-memory SQLite database with the full schema.
// It is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, "file:"+auth.NewID()+"?mode=memory")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.CreateSchema(conn, db.TypeSQLite); err != nil {
		conn.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         cliparse.DefaultPort,
		DatabaseURL:  "file::memory:",
		DatabaseType: cliparse.DatabaseSQLite,
		AdminKeySalt: "test-admin-salt",
		PollSlugSalt: "test-slug-salt",
		Credits:      TestCredits,
		SessionCache: 64,
		BaseURL:      cliparse.DefaultBaseURL,
	}
}

// CreateTestElection inserts an election and returns its ID, admin key and
// share slug. status should be "draft", "open", or "closed"; the slug is
// empty for drafts.
func CreateTestElection(t *testing.T, conn *sql.DB, cfg cliparse.Config, status string) (electionID, adminKey, shareSlug string) {
	t.Helper()

	electionID = auth.NewID()
	adminKey = auth.AdminKey(electionID, cfg.AdminKeySalt)

	var slug *string
	if status == models.StatusOpen || status == models.StatusClosed {
		s := auth.ShareSlug(electionID, cfg.PollSlugSalt)
		slug = &s
		shareSlug = s
	}

	var closedAt *time.Time
	if status == models.StatusClosed {
		now := time.Now()
		closedAt = &now
	}

	_, err := conn.Exec(`
		INSERT INTO election (id, title, description, creator_name, method, credits, status, share_slug, closed_at, created_at)
		VALUES ($1, 'Test Election', 'A test election', 'TestUser', $2, $3, $4, $5, $6, $7)
	`, electionID, models.MethodQuadratic, TestCredits, status, slug, closedAt, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}

	return electionID, adminKey, shareSlug
}

// AddTestChoice appends a choice to an election and returns the choice ID
func AddTestChoice(t *testing.T, conn *sql.DB, electionID, label string) string {
	t.Helper()

	choiceID := auth.NewID()
	_, err := conn.Exec(`
		INSERT INTO choice (id, election_id, label, position)
		VALUES ($1, $2, $3, (SELECT COUNT(*) FROM choice WHERE election_id = $2))
	`, choiceID, electionID, label)
	if err != nil {
		t.Fatalf("Failed to create test choice: %v", err)
	}

	return choiceID
}

// CreateTestVoter claims a username for an election and returns the voter token
func CreateTestVoter(t *testing.T, conn *sql.DB, electionID, username string) string {
	t.Helper()

	voterToken, err := auth.NewVoterToken()
	if err != nil {
		t.Fatalf("Failed to generate voter token: %v", err)
	}
	_, err = conn.Exec(`
		INSERT INTO voter_claim (election_id, username, voter_token, created_at)
		VALUES ($1, $2, $3, $4)
	`, electionID, username, voterToken, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}

	return voterToken
}

// SubmitTestBallot stores a ballot directly, bypassing the budget check.
// votes maps choice IDs to vote counts.
func SubmitTestBallot(t *testing.T, conn *sql.DB, electionID, voterToken string, votes map[string]int) string {
	t.Helper()

	spent := 0
	for _, n := range votes {
		spent += n * n
	}

	pair, err := commitment.Derive(electionID, voterToken)
	if err != nil {
		t.Fatalf("Failed to derive commitment: %v", err)
	}

	ballotID := auth.NewID()
	_, err = conn.Exec(`
		INSERT INTO ballot (id, election_id, voter_token, submitted_at, credits_spent, commitment, nullifier)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ballotID, electionID, voterToken, time.Now(), spent, pair.Commitment.Hex(), pair.Nullifier.Hex())
	if err != nil {
		t.Fatalf("Failed to create test ballot: %v", err)
	}

	for choiceID, n := range votes {
		_, err := conn.Exec(`
			INSERT INTO allocation (ballot_id, choice_id, votes)
			VALUES ($1, $2, $3)
		`, ballotID, choiceID, n)
		if err != nil {
			t.Fatalf("Failed to create test allocation: %v", err)
		}
	}

	return ballotID
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body any, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
