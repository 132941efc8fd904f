// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/stashkeep/aggregate"
	"github.com/danielhkuo/stashkeep/auth"
	"github.com/danielhkuo/stashkeep/cliparse"
	"github.com/danielhkuo/stashkeep/db"
	"github.com/danielhkuo/stashkeep/middleware"
	"github.com/danielhkuo/stashkeep/models"
)

const defaultGamePrefix = "My Game"

type GameHandler struct {
	db  *db.DB
	cfg cliparse.Config
}

func NewGameHandler(conn *db.DB, cfg cliparse.Config) *GameHandler {
	return &GameHandler{db: conn, cfg: cfg}
}

// ListGames handles GET /games
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT `+gameColumns+`
		FROM game g
		WHERE g.user_id = ?
		ORDER BY g.updated_at DESC, g.id
	`, userID)
	if err != nil {
		slog.Error("failed to query games", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	games := []models.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			slog.Error("failed to scan game", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate games", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, games)
}

// CreateGame handles POST /games
// A blank name becomes "My Game N"
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req models.GameRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	ctx := r.Context()
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	names, err := h.gameNames(ctx, tx, userID, "")
	if err != nil {
		slog.Error("failed to query game names", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	name := ""
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if name == "" {
		name = nextDefaultName(defaultGamePrefix, names)
	}
	description := ""
	if req.Description != nil {
		description = strings.TrimSpace(*req.Description)
	}

	if errs := validateGame(name, names); len(errs) > 0 {
		middleware.ValidationResponse(w, errs)
		return
	}

	now := time.Now()
	game := models.Game{
		ID:          auth.NewID(),
		UserID:      userID,
		Name:        name,
		Description: description,
		CreatedAt:   now.UTC().Truncate(time.Millisecond),
		UpdatedAt:   now.UTC().Truncate(time.Millisecond),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO game (id, user_id, name, name_key, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, game.ID, userID, name, aggregate.Key(name), description, db.ToMillis(now), db.ToMillis(now))
	if err != nil {
		slog.Error("failed to insert game", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create game")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create game")
		return
	}

	slog.Info("game created", "game_id", game.ID, "user_id", userID)

	middleware.JSONResponse(w, http.StatusCreated, game)
}

// GetGame handles GET /games/{id}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := getOwnedGame(r.Context(), h.db, middleware.UserID(r.Context()), r.PathValue("id"))
	if err == errNotFound {
		middleware.ErrorResponse(w, http.StatusNotFound, "Game not found")
		return
	}
	if err != nil {
		slog.Error("failed to query game", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, game)
}

// UpdateGame handles PATCH /games/{id}
func (h *GameHandler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	gameID := r.PathValue("id")

	var req models.GameRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	ctx := r.Context()
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	game, err := getOwnedGame(ctx, tx, userID, gameID)
	if err == errNotFound {
		middleware.ErrorResponse(w, http.StatusNotFound, "Game not found")
		return
	}
	if err != nil {
		slog.Error("failed to query game", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			middleware.ValidationResponse(w, []string{"name can't be blank"})
			return
		}
		others, err := h.gameNames(ctx, tx, userID, gameID)
		if err != nil {
			slog.Error("failed to query game names", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if errs := validateGame(name, others); len(errs) > 0 {
			middleware.ValidationResponse(w, errs)
			return
		}
		game.Name = name
	}
	if req.Description != nil {
		game.Description = strings.TrimSpace(*req.Description)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE game SET name = ?, name_key = ?, description = ?, updated_at = ?
		WHERE id = ?
	`, game.Name, aggregate.Key(game.Name), game.Description, db.ToMillis(now), gameID)
	if err != nil {
		slog.Error("failed to update game", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update game")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update game")
		return
	}
	game.UpdatedAt = now.UTC().Truncate(time.Millisecond)

	slog.Info("game updated", "game_id", gameID)

	middleware.JSONResponse(w, http.StatusOK, game)
}

// DeleteGame handles DELETE /games/{id}
// Lists and items go with it
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	gameID := r.PathValue("id")

	res, err := h.db.ExecContext(r.Context(), `DELETE FROM game WHERE id = ? AND user_id = ?`, gameID, userID)
	if err != nil {
		slog.Error("failed to delete game", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete game")
		return
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Game not found")
		return
	}

	slog.Info("game deleted", "game_id", gameID, "user_id", userID)

	w.WriteHeader(http.StatusNoContent)
}

// GetSummary handles GET /games/{id}/summary
// Dashboard counts per list kind, taken from the aggregate lists
func (h *GameHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	game, err := getOwnedGame(ctx, h.db, middleware.UserID(ctx), r.PathValue("id"))
	if err == errNotFound {
		middleware.ErrorResponse(w, http.StatusNotFound, "Game not found")
		return
	}
	if err != nil {
		slog.Error("failed to query game", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	summary := models.GameSummary{
		GameID:       game.ID,
		Name:         game.Name,
		Kinds:        map[models.ListKind]models.KindStat{},
		LastActivity: game.UpdatedAt,
	}

	for _, kind := range []models.ListKind{models.KindShopping, models.KindInventory} {
		stat, last, err := kindStat(ctx, h.db, game.ID, kind)
		if err != nil {
			slog.Error("failed to compute summary", "game_id", game.ID, "kind", kind, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		summary.Kinds[kind] = stat
		if last.After(summary.LastActivity) {
			summary.LastActivity = last
		}
	}
	summary.LastActive = humanize.Time(summary.LastActivity)

	middleware.JSONResponse(w, http.StatusOK, summary)
}

func kindStat(ctx context.Context, q db.Querier, gameID string, kind models.ListKind) (models.KindStat, time.Time, error) {
	var stat models.KindStat
	var last time.Time

	lists, err := gameLists(ctx, q, gameID, kind)
	if err != nil {
		return stat, last, err
	}
	for _, l := range lists {
		if l.UpdatedAt.After(last) {
			last = l.UpdatedAt
		}
		if !l.Aggregate {
			stat.Lists++
			continue
		}
		items, err := listItems(ctx, q, l.ID)
		if err != nil {
			return stat, last, err
		}
		stat.DistinctItems = len(items)
		for _, it := range items {
			stat.TotalQuantity += it.Quantity
		}
	}
	return stat, last, nil
}

// gameNames returns the user's game names, skipping excludeID
func (h *GameHandler) gameNames(ctx context.Context, q db.Querier, userID, excludeID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name FROM game WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query game names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		if id != excludeID {
			names = append(names, name)
		}
	}
	return names, rows.Err()
}

func validateGame(name string, others []string) []string {
	errs := validateTitle("name", name)
	for _, other := range others {
		if aggregate.Key(other) == aggregate.Key(name) {
			errs = append(errs, "name must be unique")
			break
		}
	}
	return errs
}
