// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/openfloor/handlers"
	"github.com/danielhkuo/openfloor/models"
	"github.com/danielhkuo/openfloor/testutil"
)

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestCreateDebate(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := handlers.NewDebateHandler(conn, cfg)

	_, token := testutil.CreateTestAccount(t, conn, "alice")

	req := testutil.MakeRequest("POST", "/debates", models.CreateDebateRequest{
		Title:       "Remote work",
		Description: "Should offices die",
	}, bearer(token))
	w := httptest.NewRecorder()
	h.CreateDebate(w, req)

	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.CreateDebateResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.DebateID == "" {
		t.Fatal("expected a debate id")
	}

	var status string
	if err := conn.QueryRow(`SELECT status FROM debate WHERE id = $1`, resp.DebateID).Scan(&status); err != nil {
		t.Fatal(err)
	}
	if status != models.StatusOpen {
		t.Errorf("new debate status = %q, want open", status)
	}
}

func TestCreateDebateRequiresAuth(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := handlers.NewDebateHandler(conn, cfg)

	testCases := []struct {
		name    string
		headers map[string]string
	}{
		{"no token", nil},
		{"garbage token", bearer("garbage")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/debates", models.CreateDebateRequest{Title: "x"}, tc.headers)
			w := httptest.NewRecorder()
			h.CreateDebate(w, req)
			testutil.AssertStatus(t, w, http.StatusUnauthorized)
		})
	}
}

func TestCreateDebateRequiresTitle(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := handlers.NewDebateHandler(conn, cfg)

	_, token := testutil.CreateTestAccount(t, conn, "alice")

	req := testutil.MakeRequest("POST", "/debates", models.CreateDebateRequest{}, bearer(token))
	w := httptest.NewRecorder()
	h.CreateDebate(w, req)

	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestGetDebateWithArguments(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := handlers.NewDebateHandler(conn, cfg)

	alice, _ := testutil.CreateTestAccount(t, conn, "alice")
	debateID := testutil.CreateTestDebate(t, conn, alice.ID, "Remote work")
	testutil.CreateTestArgument(t, conn, debateID, alice.ID, "first point")
	testutil.CreateTestArgument(t, conn, debateID, alice.ID, "second point")

	req := testutil.MakeRequest("GET", "/debates/"+debateID, nil, nil)
	req.SetPathValue("id", debateID)
	w := httptest.NewRecorder()
	h.GetDebate(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp struct {
		Debate    models.Debate     `json:"debate"`
		Arguments []models.Argument `json:"arguments"`
	}
	testutil.AssertJSON(t, w, &resp)
	if resp.Debate.Title != "Remote work" {
		t.Errorf("debate title = %q", resp.Debate.Title)
	}
	if len(resp.Arguments) != 2 {
		t.Errorf("expected 2 arguments, got %d", len(resp.Arguments))
	}
	if len(resp.Arguments) > 0 && resp.Arguments[0].Author != "alice" {
		t.Errorf("argument author = %q, want alice", resp.Arguments[0].Author)
	}
}

func TestGetDebateNotFound(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := handlers.NewDebateHandler(conn, cfg)

	req := testutil.MakeRequest("GET", "/debates/missing", nil, nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()
	h.GetDebate(w, req)

	testutil.AssertStatus(t, w, http.StatusNotFound)
}
