// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/openfloor/handlers"
	"github.com/danielhkuo/openfloor/models"
	"github.com/danielhkuo/openfloor/realtime"
	"github.com/danielhkuo/openfloor/testutil"
)

func TestCreateArgumentREST(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := handlers.NewArgumentHandler(conn, cfg)

	alice, token := testutil.CreateTestAccount(t, conn, "alice")
	debateID := testutil.CreateTestDebate(t, conn, alice.ID, "Debate")

	req := testutil.MakeRequest("POST", "/debates/"+debateID+"/arguments", models.CreateArgumentRequest{
		Content: "a solid point",
		Side:    models.SideSupporting,
	}, bearer(token))
	req.SetPathValue("id", debateID)
	w := httptest.NewRecorder()
	h.CreateArgument(w, req)

	testutil.AssertStatus(t, w, http.StatusCreated)

	var arg models.Argument
	testutil.AssertJSON(t, w, &arg)
	if arg.Author != "alice" || arg.Content != "a solid point" || arg.Votes != 0 {
		t.Errorf("unexpected argument: %+v", arg)
	}
}

func TestCreateArgumentValidation(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := handlers.NewArgumentHandler(conn, cfg)

	alice, token := testutil.CreateTestAccount(t, conn, "alice")
	debateID := testutil.CreateTestDebate(t, conn, alice.ID, "Debate")

	testCases := []struct {
		name string
		req  models.CreateArgumentRequest
		want int
	}{
		{"missing content", models.CreateArgumentRequest{Side: models.SideSupporting}, http.StatusBadRequest},
		{"bad side", models.CreateArgumentRequest{Content: "x", Side: "neutral"}, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/debates/"+debateID+"/arguments", tc.req, bearer(token))
			req.SetPathValue("id", debateID)
			w := httptest.NewRecorder()
			h.CreateArgument(w, req)
			testutil.AssertStatus(t, w, tc.want)
		})
	}
}

func TestCreateArgumentUnknownDebate(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := handlers.NewArgumentHandler(conn, cfg)

	_, token := testutil.CreateTestAccount(t, conn, "alice")

	req := testutil.MakeRequest("POST", "/debates/missing/arguments", models.CreateArgumentRequest{
		Content: "x",
		Side:    models.SideOpposing,
	}, bearer(token))
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()
	h.CreateArgument(w, req)

	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestServiceCreateRejectsCrossDebateParent(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := handlers.NewArgumentHandler(conn, cfg)

	alice, _ := testutil.CreateTestAccount(t, conn, "alice")
	d1 := testutil.CreateTestDebate(t, conn, alice.ID, "One")
	d2 := testutil.CreateTestDebate(t, conn, alice.ID, "Two")
	parentInOther := testutil.CreateTestArgument(t, conn, d2, alice.ID, "elsewhere")

	_, err := h.Create(context.Background(), alice, models.NewArgumentPayload{
		DebateID: d1,
		Content:  "reply",
		Side:     models.SideSupporting,
		ParentID: &parentInOther,
	})
	if err != realtime.ErrNotFound {
		t.Errorf("parent from another debate should be rejected, got %v", err)
	}
}

func TestUpdateArgumentAuthorOnly(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := handlers.NewArgumentHandler(conn, cfg)

	alice, aliceToken := testutil.CreateTestAccount(t, conn, "alice")
	_, bobToken := testutil.CreateTestAccount(t, conn, "bob")
	debateID := testutil.CreateTestDebate(t, conn, alice.ID, "Debate")
	argumentID := testutil.CreateTestArgument(t, conn, debateID, alice.ID, "original")

	// Someone else may not edit.
	req := testutil.MakeRequest("PUT", "/arguments/"+argumentID, models.UpdateArgumentRequest{Content: "hijack"}, bearer(bobToken))
	req.SetPathValue("id", argumentID)
	w := httptest.NewRecorder()
	h.UpdateArgument(w, req)
	testutil.AssertStatus(t, w, http.StatusForbidden)

	// The author may.
	req = testutil.MakeRequest("PUT", "/arguments/"+argumentID, models.UpdateArgumentRequest{Content: "revised"}, bearer(aliceToken))
	req.SetPathValue("id", argumentID)
	w = httptest.NewRecorder()
	h.UpdateArgument(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var arg models.Argument
	testutil.AssertJSON(t, w, &arg)
	if arg.Content != "revised" || arg.UpdatedAt == nil {
		t.Errorf("unexpected updated argument: %+v", arg)
	}
}

func TestDeleteArgument(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := handlers.NewArgumentHandler(conn, cfg)

	alice, token := testutil.CreateTestAccount(t, conn, "alice")
	debateID := testutil.CreateTestDebate(t, conn, alice.ID, "Debate")
	argumentID := testutil.CreateTestArgument(t, conn, debateID, alice.ID, "doomed")

	req := testutil.MakeRequest("DELETE", "/arguments/"+argumentID, nil, bearer(token))
	req.SetPathValue("id", argumentID)
	w := httptest.NewRecorder()
	h.DeleteArgument(w, req)

	testutil.AssertStatus(t, w, http.StatusNoContent)

	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM argument WHERE id = $1`, argumentID).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Error("argument should be gone")
	}

	// Deleting again is a 404.
	req = testutil.MakeRequest("DELETE", "/arguments/"+argumentID, nil, bearer(token))
	req.SetPathValue("id", argumentID)
	w = httptest.NewRecorder()
	h.DeleteArgument(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}
