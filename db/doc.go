// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Drivers

SQLite (modernc.org/sqlite, pure Go) is the default; PostgreSQL goes
through lib/pq:

	conn, err := db.Open(ctx, db.TypeSQLite, "stashkeep.db")
	conn, err := db.Open(ctx, db.TypePostgres, "postgres://...")

Queries are written once with ? placeholders. DB and Tx rewrite them to
$1, $2... for PostgreSQL.

SQLite runs on a single connection. Callers must close rows before the
next query and must not touch DB while a Tx is open.

# Schema Creation

CreateSchema runs from Open and is safe to call repeatedly:

  - app_user: Google subject (uid) to local user
  - game: name_key keeps names unique per user
  - item_list: kind, title_key, aggregate flag; at most one aggregate
    list per game and kind
  - list_item: description_key keeps descriptions unique per list

The *_key columns hold lower-cased trimmed text computed in Go, since
SQLite's LOWER only folds ASCII.

Timestamps are stored as unix milliseconds; see ToMillis and FromMillis.
*/
package db
