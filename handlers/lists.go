// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/stashkeep/aggregate"
	"github.com/danielhkuo/stashkeep/auth"
	"github.com/danielhkuo/stashkeep/cliparse"
	"github.com/danielhkuo/stashkeep/db"
	"github.com/danielhkuo/stashkeep/middleware"
	"github.com/danielhkuo/stashkeep/models"
)

const defaultListPrefix = "My List"

// ListHandler serves one list kind; the router mounts one per kind
type ListHandler struct {
	db   *db.DB
	cfg  cliparse.Config
	kind models.ListKind
}

func NewListHandler(conn *db.DB, cfg cliparse.Config, kind models.ListKind) *ListHandler {
	return &ListHandler{db: conn, cfg: cfg, kind: kind}
}

// Index handles GET /games/{id}/{kind}_lists
// Aggregate list first, then regular lists, each with items
func (h *ListHandler) Index(w http.ResponseWriter, r *http.Request) {
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

	lists, err := gameLists(ctx, h.db, game.ID, h.kind)
	if err == nil {
		err = withItems(ctx, h.db, lists)
	}
	if err != nil {
		slog.Error("failed to query lists", "game_id", game.ID, "kind", h.kind, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, lists)
}

// Create handles POST /games/{id}/{kind}_lists
// The aggregate list is created alongside the first regular list
func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.ListRequest
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

	game, err := getOwnedGame(ctx, tx, middleware.UserID(ctx), r.PathValue("id"))
	if err == errNotFound {
		middleware.ErrorResponse(w, http.StatusNotFound, "Game not found")
		return
	}
	if err != nil {
		slog.Error("failed to query game", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	existing, err := gameLists(ctx, tx, game.ID, h.kind)
	if err != nil {
		slog.Error("failed to query lists", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = nextDefaultName(defaultListPrefix, listTitles(existing, ""))
	}
	if errs := validateListTitle(title, existing, ""); len(errs) > 0 {
		middleware.ValidationResponse(w, errs)
		return
	}

	now := time.Now()
	var createdAggregate *models.List
	if !hasAggregate(existing) {
		agg, err := createAggregateList(ctx, tx, game.ID, h.kind, now)
		if err != nil {
			slog.Error("failed to create aggregate list", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create list")
			return
		}
		createdAggregate = &agg
	}

	list := models.List{
		ID:        auth.NewID(),
		GameID:    game.ID,
		Kind:      h.kind,
		Title:     title,
		Items:     []models.ListItem{},
		CreatedAt: now.UTC().Truncate(time.Millisecond),
		UpdatedAt: now.UTC().Truncate(time.Millisecond),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO item_list (id, game_id, kind, title, title_key, aggregate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, list.ID, game.ID, string(h.kind), title, aggregate.Key(title), false, db.ToMillis(now), db.ToMillis(now))
	if err != nil {
		slog.Error("failed to insert list", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create list")
		return
	}

	if err := touch(ctx, tx, game.ID, "", now); err != nil {
		slog.Error("failed to touch game", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create list")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create list")
		return
	}

	slog.Info("list created", "list_id", list.ID, "game_id", game.ID, "kind", h.kind)

	middleware.JSONResponse(w, http.StatusCreated, models.ListMutationResponse{
		List:          &list,
		AggregateList: createdAggregate,
	})
}

// Update handles PATCH /{kind}_lists/{id}
func (h *ListHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.ListRequest
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

	list, ok := h.loadRegularList(ctx, w, tx, r.PathValue("id"), "Aggregate lists cannot be edited")
	if !ok {
		return
	}

	existing, err := gameLists(ctx, tx, list.GameID, h.kind)
	if err != nil {
		slog.Error("failed to query lists", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = nextDefaultName(defaultListPrefix, listTitles(existing, list.ID))
	}
	if errs := validateListTitle(title, existing, list.ID); len(errs) > 0 {
		middleware.ValidationResponse(w, errs)
		return
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE item_list SET title = ?, title_key = ?, updated_at = ?
		WHERE id = ?
	`, title, aggregate.Key(title), db.ToMillis(now), list.ID)
	if err == nil {
		err = touch(ctx, tx, list.GameID, "", now)
	}
	if err != nil {
		slog.Error("failed to update list", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update list")
		return
	}

	updated, err := reloadList(ctx, tx, list.ID)
	if err != nil {
		slog.Error("failed to reload list", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update list")
		return
	}

	slog.Info("list updated", "list_id", list.ID, "kind", h.kind)

	middleware.JSONResponse(w, http.StatusOK, models.ListMutationResponse{List: updated})
}

// Delete handles DELETE /{kind}_lists/{id}
// Every item's contribution is taken out of the aggregate list; the
// aggregate list itself goes when the last regular list does
func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	list, ok := h.loadRegularList(ctx, w, tx, r.PathValue("id"), "Aggregate lists cannot be deleted directly")
	if !ok {
		return
	}

	resp, err := h.deleteRegularList(ctx, tx, list, time.Now())
	if err != nil {
		slog.Error("failed to delete list", "list_id", list.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete list")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete list")
		return
	}

	slog.Info("list deleted", "list_id", list.ID, "kind", h.kind, "deleted", resp.Deleted)

	middleware.JSONResponse(w, http.StatusOK, resp)
}

func (h *ListHandler) deleteRegularList(ctx context.Context, tx *db.Tx, list models.List, now time.Time) (models.DeleteListResponse, error) {
	resp := models.DeleteListResponse{Deleted: []string{list.ID}}

	agg, err := aggregateList(ctx, tx, list.GameID, h.kind)
	if err != nil {
		return resp, err
	}
	items, err := listItems(ctx, tx, list.ID)
	if err != nil {
		return resp, err
	}

	if agg != nil {
		for _, it := range items {
			if _, err := removeFromAggregate(ctx, tx, agg.ID, it, now); err != nil {
				return resp, err
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_list WHERE id = ?`, list.ID); err != nil {
		return resp, err
	}

	remaining, err := countRegularLists(ctx, tx, list.GameID, h.kind)
	if err != nil {
		return resp, err
	}

	if agg != nil {
		if remaining == 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM item_list WHERE id = ?`, agg.ID); err != nil {
				return resp, err
			}
			resp.Deleted = append(resp.Deleted, agg.ID)
			slog.Info("aggregate list deleted", "list_id", agg.ID, "game_id", list.GameID, "kind", h.kind)
		} else {
			if err := touch(ctx, tx, list.GameID, agg.ID, now); err != nil {
				return resp, err
			}
			resp.AggregateList, err = reloadList(ctx, tx, agg.ID)
			if err != nil {
				return resp, err
			}
		}
	}

	if agg == nil || remaining == 0 {
		if err := touch(ctx, tx, list.GameID, "", now); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

// Rebuild handles POST /games/{id}/{kind}_lists/aggregate/rebuild
// Recomputes the aggregate list from the regular lists
func (h *ListHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	game, err := getOwnedGame(ctx, tx, middleware.UserID(ctx), r.PathValue("id"))
	if err == errNotFound {
		middleware.ErrorResponse(w, http.StatusNotFound, "Game not found")
		return
	}
	if err != nil {
		slog.Error("failed to query game", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	agg, err := rebuildAggregate(ctx, tx, game.ID, h.kind, time.Now())
	if quantityTooLarge(w, err) {
		return
	}
	if err != nil {
		slog.Error("failed to rebuild aggregate list", "game_id", game.ID, "kind", h.kind, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to rebuild aggregate list")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to rebuild aggregate list")
		return
	}

	if agg == nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "Game has no lists of this kind")
		return
	}

	slog.Info("aggregate list rebuilt", "game_id", game.ID, "kind", h.kind, "items", len(agg.Items))

	middleware.JSONResponse(w, http.StatusOK, agg)
}

// loadRegularList writes the error response itself and reports ok=false
// when the list is missing, foreign, or an aggregate list
func (h *ListHandler) loadRegularList(ctx context.Context, w http.ResponseWriter, q db.Querier, listID, aggregateMsg string) (models.List, bool) {
	list, err := getOwnedList(ctx, q, middleware.UserID(ctx), listID, h.kind)
	if err == errNotFound {
		middleware.ErrorResponse(w, http.StatusNotFound, "List not found")
		return models.List{}, false
	}
	if err != nil {
		slog.Error("failed to query list", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.List{}, false
	}
	if list.Aggregate {
		middleware.ErrorResponse(w, http.StatusMethodNotAllowed, aggregateMsg)
		return models.List{}, false
	}
	return list, true
}

func hasAggregate(lists []models.List) bool {
	for _, l := range lists {
		if l.Aggregate {
			return true
		}
	}
	return false
}

func listTitles(lists []models.List, excludeID string) []string {
	titles := make([]string, 0, len(lists))
	for _, l := range lists {
		if l.ID != excludeID {
			titles = append(titles, l.Title)
		}
	}
	return titles
}

func validateListTitle(title string, existing []models.List, excludeID string) []string {
	errs := validateTitle("title", title)
	if aggregate.Key(title) == aggregate.Key(models.AggregateListTitle) {
		return append(errs, `title cannot be "`+models.AggregateListTitle+`"`)
	}
	for _, other := range listTitles(existing, excludeID) {
		if aggregate.Key(other) == aggregate.Key(title) {
			errs = append(errs, "title must be unique per game")
			break
		}
	}
	return errs
}
