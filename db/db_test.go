// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	d, err := Open(context.Background(), TypeSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name     string
		dbType   string
		query    string
		expected string
	}{
		{"sqlite untouched", TypeSQLite, "SELECT * FROM game WHERE id = ?", "SELECT * FROM game WHERE id = ?"},
		{"postgres single", TypePostgres, "SELECT * FROM game WHERE id = ?", "SELECT * FROM game WHERE id = $1"},
		{"postgres many", TypePostgres, "UPDATE game SET name = ?, name_key = ? WHERE id = ?", "UPDATE game SET name = $1, name_key = $2 WHERE id = $3"},
		{"postgres no params", TypePostgres, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rebind(tt.dbType, tt.query); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestOpen_UnsupportedType(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever")
	if err == nil {
		t.Fatal("Expected error for unsupported database type")
	}
}

func TestCreateSchema_Idempotent(t *testing.T) {
	d := openTestDB(t)

	if err := CreateSchema(context.Background(), d); err != nil {
		t.Fatalf("Second CreateSchema failed: %v", err)
	}
}

func TestSchema_OneAggregatePerGameAndKind(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	now := ToMillis(time.Now())

	mustExec := func(query string, args ...any) {
		t.Helper()
		if _, err := d.ExecContext(ctx, query, args...); err != nil {
			t.Fatalf("exec failed: %v", err)
		}
	}

	mustExec(`INSERT INTO app_user (id, uid, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		"u1", "google-1", "a@example.com", now, now)
	mustExec(`INSERT INTO game (id, user_id, name, name_key, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		"g1", "u1", "Skyrim", "skyrim", now, now)
	mustExec(`INSERT INTO item_list (id, game_id, kind, title, title_key, aggregate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, "l1", "g1", "shopping", "All Items", "all items", true, now, now)

	// A second aggregate shopping list under a different title must still be rejected
	_, err := d.ExecContext(ctx, `INSERT INTO item_list (id, game_id, kind, title, title_key, aggregate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, "l2", "g1", "shopping", "Other", "other", true, now, now)
	if err == nil {
		t.Error("Expected unique violation for second aggregate list")
	}

	// An aggregate inventory list is a different kind and is allowed
	mustExec(`INSERT INTO item_list (id, game_id, kind, title, title_key, aggregate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, "l3", "g1", "inventory", "All Items", "all items", true, now, now)

	// Deleting the game cascades to its lists
	mustExec(`DELETE FROM game WHERE id = ?`, "g1")
	var count int
	if err := d.QueryRowContext(ctx, `SELECT COUNT(*) FROM item_list`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected lists to cascade on game delete, %d remain", count)
	}
}

func TestMillisRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 9, 26, 535000000, time.UTC)
	if got := FromMillis(ToMillis(now)); !got.Equal(now) {
		t.Errorf("Expected %v, got %v", now, got)
	}
}

func TestType(t *testing.T) {
	d := openTestDB(t)
	if d.Type() != TypeSQLite {
		t.Errorf("Expected %s, got %s", TypeSQLite, d.Type())
	}

	tx, err := d.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	var q Querier = tx
	if q.Type() != TypeSQLite {
		t.Errorf("Expected transaction to report %s, got %s", TypeSQLite, q.Type())
	}
}
