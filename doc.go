// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the stashkeep API server.

stashkeep tracks what a player owns and what they still need to buy in
their games. Each game has shopping lists and inventory lists, and for
each kind an "All Items" list that sums every regular list.

# Starting the Server

Configuration comes from the environment (optionally a .env file) or CLI
flags:

	SESSION_SECRET=dev DATABASE_URL=stashkeep.db go run .

Or against PostgreSQL:

	go run . -t postgres -d "postgres://..." -session-secret dev

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file path or PostgreSQL connection string
  - SESSION_SECRET (-session-secret): Session token signing secret

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - SESSION_TTL (-session-ttl): Token lifetime (default: 24h)
  - GOOGLE_CLIENT_ID (-google-client-id): Expected token audience
  - ALLOWED_ORIGINS (-origins): CORS allowlist

# Architecture

  - handlers: HTTP request handlers (users, games, lists, items)
  - aggregate: "All Items" arithmetic, no I/O
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, bearer auth, JSON helpers
  - models: Request/response types
  - auth: Session tokens and Google ID token verification
  - db: Connection, placeholder rebinding, schema
  - cliparse: Configuration parsing

Shutdown on SIGINT/SIGTERM drains in-flight requests.
*/
package main
