// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/quadvote/metrics"
	"github.com/danielhkuo/quadvote/models"
	"github.com/danielhkuo/quadvote/session"
	"github.com/danielhkuo/quadvote/testutil"
)

func setup(t *testing.T) (*http.ServeMux, func() (string, string)) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	sessions, err := session.NewStore(cfg.SessionCache)
	if err != nil {
		t.Fatalf("Failed to create session store: %v", err)
	}
	mux := NewRouter(db, cfg, sessions, metrics.New(sessions.Len))

	draft := func() (string, string) {
		id, key, _ := testutil.CreateTestElection(t, db, cfg, models.StatusDraft)
		return id, key
	}
	return mux, draft
}

func TestHealthEndpoint(t *testing.T) {
	mux, _ := setup(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	mux, _ := setup(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	expected := "quadvote API v1"
	if w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux, _ := setup(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "quadvote_open_ballot_sessions 0") {
		t.Errorf("metrics output missing session gauge:\n%s", w.Body.String())
	}
}

func TestRouteExistence(t *testing.T) {
	mux, _ := setup(t)

	// 400, 401, 403, 404 are all valid responses depending on handler logic
	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"GET", "/"},

		{"POST", "/elections"},
		{"GET", "/elections/test-id/admin"},
		{"POST", "/elections/test-id/choices"},
		{"POST", "/elections/test-id/publish"},
		{"POST", "/elections/test-id/close"},

		{"POST", "/elections/test-slug/claim-voter"},
		{"GET", "/elections/test-slug/ballot"},
		{"POST", "/elections/test-slug/ballot/adjust"},
		{"POST", "/elections/test-slug/ballot/allocate"},
		{"POST", "/elections/test-slug/ballots"},
		{"POST", "/commitments"},

		{"GET", "/elections/test-slug"},
		{"GET", "/elections/test-slug/results"},
		{"GET", "/elections/test-slug/ballot-count"},
		{"GET", "/elections/test-slug/preview"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			if w.Code == http.StatusMethodNotAllowed {
				t.Errorf("Route %s %s returned 405, expected route handler to exist", tc.method, tc.path)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _ := setup(t)

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/health"},
		{"DELETE", "/elections/test-id/admin"},
		{"PUT", "/elections/test-id/choices"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected 405 for %s %s, got %d", tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestPathParameterExtraction(t *testing.T) {
	mux, draft := setup(t)
	electionID, adminKey := draft()

	req := httptest.NewRequest("GET", "/elections/"+electionID+"/admin", nil)
	req.Header.Set("X-Admin-Key", adminKey)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with valid admin key, got %d. Body: %s", w.Code, w.Body.String())
	}
}
