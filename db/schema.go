// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, d *DB) error {
	_, err := d.DB.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// The *_key columns hold the trimmed, lower-cased value used for
// case-insensitive uniqueness and matching. Timestamps are UTC unix millis.
const schema = `
-- Users (signed in with Google)
CREATE TABLE IF NOT EXISTS app_user (
    id TEXT PRIMARY KEY,
    uid TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

-- Games
CREATE TABLE IF NOT EXISTS game (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES app_user(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    name_key TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    UNIQUE (user_id, name_key)
);

CREATE INDEX IF NOT EXISTS idx_game_user_id ON game(user_id);

-- Shopping and inventory lists
CREATE TABLE IF NOT EXISTS item_list (
    id TEXT PRIMARY KEY,
    game_id TEXT NOT NULL REFERENCES game(id) ON DELETE CASCADE,
    kind TEXT NOT NULL CHECK (kind IN ('shopping', 'inventory')),
    title TEXT NOT NULL,
    title_key TEXT NOT NULL,
    aggregate BOOLEAN NOT NULL DEFAULT FALSE,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    UNIQUE (game_id, kind, title_key)
);

CREATE INDEX IF NOT EXISTS idx_item_list_game_kind ON item_list(game_id, kind);
CREATE UNIQUE INDEX IF NOT EXISTS idx_item_list_one_aggregate ON item_list(game_id, kind) WHERE aggregate;

-- List items
CREATE TABLE IF NOT EXISTS list_item (
    id TEXT PRIMARY KEY,
    list_id TEXT NOT NULL REFERENCES item_list(id) ON DELETE CASCADE,
    description TEXT NOT NULL,
    description_key TEXT NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity > 0),
    notes TEXT NOT NULL DEFAULT '',
    unit_weight DOUBLE PRECISION,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    UNIQUE (list_id, description_key)
);

CREATE INDEX IF NOT EXISTS idx_list_item_list_id ON list_item(list_id);
CREATE INDEX IF NOT EXISTS idx_list_item_description_key ON list_item(description_key);
`
