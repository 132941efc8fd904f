// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status,
duration_ms).

# Authentication

RequireUser checks the bearer session token and stores the user ID on the
request context:

	mux.HandleFunc("GET /games", middleware.WithLogging(
		middleware.RequireUser(cfg.SessionSecret, gameHandler.ListGames)))

	userID := middleware.UserID(r.Context())

Missing, malformed, and expired tokens all get 401.

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(cfg.AllowedOrigins)(mux),
	}

An empty allowlist reflects any origin.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusNotFound, "Game not found")
	middleware.ValidationResponse(w, []string{"name must be unique"})

ValidationResponse answers 422 with the messages in errors.
*/
package middleware
