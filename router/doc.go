// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the stashkeep API.

# Route Registration

	mux := router.NewRouter(conn, cfg, nil)

A nil verifier means Google's tokeninfo endpoint. Tests pass a fake.

# Endpoints

Public:

	GET  /health
	POST /auth/google - Exchange a Google ID token for a session token

Everything else requires "Authorization: Bearer <token>":

	GET    /users/current
	GET    /games
	POST   /games
	GET    /games/{id}
	PATCH  /games/{id}
	DELETE /games/{id}
	GET    /games/{id}/summary

Per list kind (shopping, inventory):

	GET    /games/{id}/{kind}_lists
	POST   /games/{id}/{kind}_lists
	POST   /games/{id}/{kind}_lists/aggregate/rebuild
	PATCH  /{kind}_lists/{id}
	DELETE /{kind}_lists/{id}
	POST   /{kind}_lists/{id}/{kind}_list_items
	PATCH  /{kind}_list_items/{id}
	PATCH  /{kind}_list_items/{id}/increment
	PATCH  /{kind}_list_items/{id}/decrement
	DELETE /{kind}_list_items/{id}

The same ListHandler and ItemHandler types serve both kinds.
*/
package router
