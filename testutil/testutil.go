// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/stashkeep/aggregate"
	"github.com/danielhkuo/stashkeep/auth"
	"github.com/danielhkuo/stashkeep/cliparse"
	"github.com/danielhkuo/stashkeep/db"
	"github.com/danielhkuo/stashkeep/middleware"
)

// TestSessionSecret signs session tokens in tests
const TestSessionSecret = "test-session-secret"

// SetupTestDB opens a fresh SQLite database with the full schema in a
// per-test temp directory
func SetupTestDB(t *testing.T) *db.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stashkeep.db")
	conn, err := db.Open(context.Background(), db.TypeSQLite, path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseURL:   "stashkeep-test.db",
		DatabaseType:  db.TypeSQLite,
		SessionSecret: TestSessionSecret,
		SessionTTL:    time.Hour,
	}
}

// CreateTestUser inserts a user and returns its ID and a valid session token
func CreateTestUser(t *testing.T, conn *db.DB, email string) (userID, token string) {
	t.Helper()

	userID = auth.NewID()
	now := time.Now()
	_, err := conn.ExecContext(context.Background(), `
		INSERT INTO app_user (id, uid, email, name, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, userID, "google-"+userID, email, "Test User", "", db.ToMillis(now), db.ToMillis(now))
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	token, _, err = auth.IssueSessionToken(userID, email, TestSessionSecret, time.Hour, now)
	if err != nil {
		t.Fatalf("Failed to issue test token: %v", err)
	}

	return userID, token
}

// CreateTestGame inserts a game owned by userID and returns its ID
func CreateTestGame(t *testing.T, conn *db.DB, userID, name string) string {
	t.Helper()

	gameID := auth.NewID()
	now := time.Now()
	_, err := conn.ExecContext(context.Background(), `
		INSERT INTO game (id, user_id, name, name_key, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, '', ?, ?)
	`, gameID, userID, name, aggregate.Key(name), db.ToMillis(now), db.ToMillis(now))
	if err != nil {
		t.Fatalf("Failed to create test game: %v", err)
	}

	return gameID
}

// AuthHeader returns request headers carrying a bearer token
func AuthHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// WithUser attaches userID the way RequireUser does, for calling handlers
// directly
func WithUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
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
