// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags reads the environment, then applies CLI flags on top:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags and Environment Variables

	-p                     PORT                 (default 3318)
	-d                     DATABASE_URL
	-t                     DATABASE_TYPE        (default sqlite)
	-session-secret        SESSION_SECRET
	-session-ttl           SESSION_TTL          (default 24h)
	-google-client-id      GOOGLE_CLIENT_ID
	-google-tokeninfo-url  GOOGLE_TOKENINFO_URL
	-origins               ALLOWED_ORIGINS      (comma-separated)

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error when:

  - DATABASE_URL is missing
  - DATABASE_TYPE is not sqlite or postgres
  - PORT is outside 1-65535
  - SESSION_SECRET is missing
  - SESSION_TTL is not positive
*/
package cliparse
