// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/stashkeep/auth"
	"github.com/danielhkuo/stashkeep/cliparse"
	"github.com/danielhkuo/stashkeep/db"
	"github.com/danielhkuo/stashkeep/middleware"
	"github.com/danielhkuo/stashkeep/models"
)

// TokenVerifier checks an identity provider token
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (auth.GoogleProfile, error)
}

type UserHandler struct {
	db       *db.DB
	cfg      cliparse.Config
	verifier TokenVerifier
}

func NewUserHandler(conn *db.DB, cfg cliparse.Config, verifier TokenVerifier) *UserHandler {
	return &UserHandler{db: conn, cfg: cfg, verifier: verifier}
}

// GoogleLogin handles POST /auth/google
// Verifies the Google ID token, upserts the user, and issues a session token
func (h *UserHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.GoogleLoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.IDToken == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id_token is required")
		return
	}

	profile, err := h.verifier.Verify(r.Context(), req.IDToken)
	if err != nil {
		if errors.Is(err, auth.ErrGoogleRejected) || errors.Is(err, auth.ErrMissingToken) {
			slog.Info("google sign-in rejected", "error", err)
			middleware.ErrorResponse(w, http.StatusUnauthorized, "Google sign-in failed")
			return
		}
		slog.Error("failed to verify google token", "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "Could not reach Google")
		return
	}

	now := time.Now()
	user, created, err := h.upsertUser(r.Context(), profile, now)
	if err != nil {
		slog.Error("failed to upsert user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	token, expiresAt, err := auth.IssueSessionToken(user.ID, user.Email, h.cfg.SessionSecret, h.cfg.SessionTTL, now)
	if err != nil {
		slog.Error("failed to issue session token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	slog.Info("user signed in", "user_id", user.ID, "new", created)

	middleware.JSONResponse(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}

func (h *UserHandler) upsertUser(ctx context.Context, p auth.GoogleProfile, now time.Time) (models.User, bool, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return models.User{}, false, err
	}
	defer tx.Rollback()

	var id string
	created := false
	err = tx.QueryRowContext(ctx, `SELECT id FROM app_user WHERE uid = ?`, p.Subject).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		id = auth.NewID()
		created = true
		_, err = tx.ExecContext(ctx, `
			INSERT INTO app_user (id, uid, email, name, image_url, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, p.Subject, p.Email, p.Name, p.Picture, db.ToMillis(now), db.ToMillis(now))
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE app_user SET email = ?, name = ?, image_url = ?, updated_at = ?
			WHERE id = ?
		`, p.Email, p.Name, p.Picture, db.ToMillis(now), id)
	}
	if err != nil {
		return models.User{}, false, err
	}

	user, err := getUser(ctx, tx, id)
	if err != nil {
		return models.User{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return models.User{}, false, err
	}
	return user, created, nil
}

// Current handles GET /users/current
func (h *UserHandler) Current(w http.ResponseWriter, r *http.Request) {
	user, err := getUser(r.Context(), h.db, middleware.UserID(r.Context()))
	if err == errNotFound {
		// Token outlived the account
		middleware.ErrorResponse(w, http.StatusUnauthorized, "User no longer exists")
		return
	}
	if err != nil {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, user)
}

func getUser(ctx context.Context, q db.Querier, userID string) (models.User, error) {
	var u models.User
	var created int64
	err := q.QueryRowContext(ctx, `
		SELECT id, uid, email, name, image_url, created_at
		FROM app_user
		WHERE id = ?
	`, userID).Scan(&u.ID, &u.UID, &u.Email, &u.Name, &u.ImageURL, &created)
	if err == sql.ErrNoRows {
		return models.User{}, errNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	u.CreatedAt = db.FromMillis(created)
	return u, nil
}
