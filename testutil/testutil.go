// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/openfloor/auth"
	"github.com/danielhkuo/openfloor/cliparse"
	"github.com/danielhkuo/openfloor/db"
	"github.com/danielhkuo/openfloor/models"
	_ "modernc.org/sqlite"
)

// TestTokenSecret signs session tokens in tests.
const TestTokenSecret = "test-token-secret"

var dbSerial int

// SetupTestDB opens a fresh in-memory sqlite database with the full
// schema. Each call gets its own named memory database so parallel
// tests never share state; cache=shared keeps the pool's connections
// on the same database.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbSerial++
	dsn := fmt.Sprintf("file:test%d_%d?mode=memory&cache=shared", dbSerial, time.Now().UnixNano())

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Shared-cache sqlite serializes writers anyway; one connection
	// avoids SQLITE_BUSY noise in concurrent tests.
	conn.SetMaxOpenConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// GetTestConfig returns a standard test configuration with short
// realtime timings so expiry paths are testable.
func GetTestConfig() cliparse.Config {
	cfg := cliparse.Config{
		Port:         3419,
		DatabaseURL:  "file::memory:",
		DatabaseType: "sqlite",
		TokenSecret:  TestTokenSecret,
		TypingExpiry: 50 * time.Millisecond,
	}
	cfg.ApplyDefaults()
	return cfg
}

// CreateTestAccount inserts an account and returns its identity plus a
// valid session token.
func CreateTestAccount(t *testing.T, conn *sql.DB, username string) (models.Identity, string) {
	t.Helper()

	id, _ := auth.GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO account (id, username, role, created_at)
		VALUES ($1, $2, 'user', $3)
	`, id, username, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}

	token := auth.GenerateToken(id, TestTokenSecret, time.Hour)
	return models.Identity{ID: id, Username: username, Role: "user"}, token
}

// CreateTestDebate inserts an open debate and returns its ID.
func CreateTestDebate(t *testing.T, conn *sql.DB, creatorID, title string) string {
	t.Helper()

	id, _ := auth.GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO debate (id, title, description, creator_id, status, created_at)
		VALUES ($1, $2, '', $3, 'open', $4)
	`, id, title, creatorID, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test debate: %v", err)
	}
	return id
}

// CreateTestArgument inserts an argument and returns its ID.
func CreateTestArgument(t *testing.T, conn *sql.DB, debateID, authorID, content string) string {
	t.Helper()

	id, _ := auth.GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO argument (id, debate_id, author_id, content, side, votes, created_at)
		VALUES ($1, $2, $3, $4, 'supporting', 0, $5)
	`, id, debateID, authorID, content, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test argument: %v", err)
	}
	return id
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
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
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
