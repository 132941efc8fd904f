// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/stashkeep/aggregate"
	"github.com/danielhkuo/stashkeep/cliparse"
	"github.com/danielhkuo/stashkeep/db"
	"github.com/danielhkuo/stashkeep/middleware"
	"github.com/danielhkuo/stashkeep/models"
)

// ItemHandler serves the items of one list kind
type ItemHandler struct {
	db   *db.DB
	cfg  cliparse.Config
	kind models.ListKind
}

func NewItemHandler(conn *db.DB, cfg cliparse.Config, kind models.ListKind) *ItemHandler {
	return &ItemHandler{db: conn, cfg: cfg, kind: kind}
}

// Create handles POST /{kind}_lists/{id}/{kind}_list_items
// An item whose description already exists on the list is combined with it
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateItemRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	in := aggregate.Entry{
		Description: strings.TrimSpace(req.Description),
		Quantity:    1,
		Notes:       strings.TrimSpace(req.Notes),
		UnitWeight:  req.UnitWeight,
	}
	if req.Quantity != nil {
		in.Quantity = *req.Quantity
	}

	var errs []string
	if in.Description == "" {
		errs = append(errs, "description can't be blank")
	}
	errs = append(errs, h.validate(&in.Quantity, in.UnitWeight)...)
	if len(errs) > 0 {
		middleware.ValidationResponse(w, errs)
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

	list, err := getOwnedList(ctx, tx, middleware.UserID(ctx), r.PathValue("id"), h.kind)
	if err == errNotFound {
		middleware.ErrorResponse(w, http.StatusNotFound, "List not found")
		return
	}
	if err != nil {
		slog.Error("failed to query list", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if list.Aggregate {
		middleware.ErrorResponse(w, http.StatusMethodNotAllowed, "Items cannot be added to an aggregate list directly")
		return
	}

	now := time.Now()
	status, resp, err := h.createItem(ctx, tx, list, in, now)
	if quantityTooLarge(w, err) {
		return
	}
	if err != nil {
		slog.Error("failed to create item", "list_id", list.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create item")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create item")
		return
	}

	slog.Info("item saved", "item_id", resp.Item.ID, "list_id", list.ID, "kind", h.kind, "combined", status == http.StatusOK)

	middleware.JSONResponse(w, status, resp)
}

func (h *ItemHandler) createItem(ctx context.Context, tx *db.Tx, list models.List, in aggregate.Entry, now time.Time) (int, models.ItemMutationResponse, error) {
	var resp models.ItemMutationResponse

	aggList, err := aggregateList(ctx, tx, list.GameID, h.kind)
	if err != nil {
		return 0, resp, err
	}
	if aggList == nil {
		slog.Warn("aggregate list missing, recreating", "game_id", list.GameID, "kind", h.kind)
		created, err := createAggregateList(ctx, tx, list.GameID, h.kind, now)
		if err != nil {
			return 0, resp, err
		}
		aggList = &created
	}

	// New items inherit the unit weight already known for the description
	if in.UnitWeight == nil && h.kind == models.KindInventory {
		known, err := findItemByDescription(ctx, tx, aggList.ID, in.Description)
		if err != nil {
			return 0, resp, err
		}
		if known != nil {
			in.UnitWeight = known.UnitWeight
		}
	}

	status := http.StatusCreated
	existing, err := findItemByDescription(ctx, tx, list.ID, in.Description)
	if err != nil {
		return 0, resp, err
	}

	var itemID string
	if existing != nil {
		status = http.StatusOK
		cur := toEntry(*existing)
		merged, err := aggregate.Add(&cur, in)
		if err != nil {
			return 0, resp, err
		}
		if err := saveEntry(ctx, tx, existing.ID, merged, now); err != nil {
			return 0, resp, err
		}
		itemID = existing.ID
	} else {
		created, err := insertItem(ctx, tx, list.ID, in, now)
		if err != nil {
			return 0, resp, err
		}
		itemID = created.ID
	}

	aggItem, err := addToAggregate(ctx, tx, aggList.ID, in, now)
	if err != nil {
		return 0, resp, err
	}

	if in.UnitWeight != nil {
		if err := propagateUnitWeight(ctx, tx, list.GameID, h.kind, in.Description, in.UnitWeight, now); err != nil {
			return 0, resp, err
		}
	}

	if err := touch(ctx, tx, list.GameID, list.ID, now); err != nil {
		return 0, resp, err
	}
	if err := touch(ctx, tx, list.GameID, aggList.ID, now); err != nil {
		return 0, resp, err
	}

	if resp.Item, err = reloadItem(ctx, tx, itemID); err != nil {
		return 0, resp, err
	}
	if resp.AggregateItem, err = reloadItem(ctx, tx, aggItem.ID); err != nil {
		return 0, resp, err
	}
	return status, resp, nil
}

// Update handles PATCH /{kind}_list_items/{id}
// Description is immutable; quantity, notes and unit weight may change
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateItemRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.applyUpdate(w, r, func(before models.ListItem) (models.ListItem, []string) {
		after := before
		if req.Quantity != nil {
			after.Quantity = *req.Quantity
		}
		if req.Notes != nil {
			after.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.UnitWeight != nil {
			after.UnitWeight = req.UnitWeight
		}
		return after, h.validate(&after.Quantity, req.UnitWeight)
	})
}

// Increment handles PATCH /{kind}_list_items/{id}/increment
func (h *ItemHandler) Increment(w http.ResponseWriter, r *http.Request) {
	h.applyUpdate(w, r, func(before models.ListItem) (models.ListItem, []string) {
		after := before
		after.Quantity++
		return after, h.validate(&after.Quantity, nil)
	})
}

// Decrement handles PATCH /{kind}_list_items/{id}/decrement
// Refuses to go below one; deleting the item is a separate call
func (h *ItemHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.applyUpdate(w, r, func(before models.ListItem) (models.ListItem, []string) {
		after := before
		after.Quantity--
		return after, h.validate(&after.Quantity, nil)
	})
}

// applyUpdate runs one edit of a regular-list item and its aggregate
// entry in a single transaction
func (h *ItemHandler) applyUpdate(w http.ResponseWriter, r *http.Request, edit func(models.ListItem) (models.ListItem, []string)) {
	ctx := r.Context()
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	before, list, ok := h.loadRegularItem(ctx, w, tx, r.PathValue("id"), "Aggregate list items cannot be edited directly")
	if !ok {
		return
	}
	if before, ok = h.lockItem(ctx, w, tx, before, list); !ok {
		return
	}

	after, errs := edit(before)
	if len(errs) > 0 {
		middleware.ValidationResponse(w, errs)
		return
	}

	now := time.Now()
	resp, err := h.updateItem(ctx, tx, list, before, after, now)
	if quantityTooLarge(w, err) {
		return
	}
	if err != nil {
		slog.Error("failed to update item", "item_id", before.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update item")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update item")
		return
	}

	slog.Info("item updated", "item_id", before.ID, "kind", h.kind,
		"quantity_delta", after.Quantity-before.Quantity)

	middleware.JSONResponse(w, http.StatusOK, resp)
}

func (h *ItemHandler) updateItem(ctx context.Context, tx *db.Tx, list models.List, before, after models.ListItem, now time.Time) (models.ItemMutationResponse, error) {
	var resp models.ItemMutationResponse

	if err := saveEntry(ctx, tx, before.ID, toEntry(after), now); err != nil {
		return resp, err
	}

	aggList, err := aggregateList(ctx, tx, list.GameID, h.kind)
	if err != nil {
		return resp, err
	}
	var aggItemID string
	if aggList != nil {
		aggItem, err := updateAggregate(ctx, tx, aggList.ID, before, after, now)
		if err != nil {
			return resp, err
		}
		if aggItem != nil {
			aggItemID = aggItem.ID
		}
		if err := touch(ctx, tx, list.GameID, aggList.ID, now); err != nil {
			return resp, err
		}
	}

	if !sameWeight(before.UnitWeight, after.UnitWeight) {
		if err := propagateUnitWeight(ctx, tx, list.GameID, h.kind, before.Description, after.UnitWeight, now); err != nil {
			return resp, err
		}
	}

	if err := touch(ctx, tx, list.GameID, list.ID, now); err != nil {
		return resp, err
	}

	if resp.Item, err = reloadItem(ctx, tx, before.ID); err != nil {
		return resp, err
	}
	if aggItemID != "" {
		if resp.AggregateItem, err = reloadItem(ctx, tx, aggItemID); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

// Delete handles DELETE /{kind}_list_items/{id}
// Responds with the aggregate entry, null once it reaches zero
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	item, list, ok := h.loadRegularItem(ctx, w, tx, r.PathValue("id"), "Aggregate list items cannot be deleted directly")
	if !ok {
		return
	}
	if item, ok = h.lockItem(ctx, w, tx, item, list); !ok {
		return
	}

	now := time.Now()
	var resp models.ItemMutationResponse
	err = deleteItem(ctx, tx, item.ID)
	if err == nil {
		resp.AggregateItem, err = h.removeContribution(ctx, tx, list, item, now)
	}
	if err == nil {
		err = touch(ctx, tx, list.GameID, list.ID, now)
	}
	if err != nil {
		slog.Error("failed to delete item", "item_id", item.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete item")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete item")
		return
	}

	slog.Info("item deleted", "item_id", item.ID, "list_id", list.ID, "kind", h.kind)

	middleware.JSONResponse(w, http.StatusOK, resp)
}

func (h *ItemHandler) removeContribution(ctx context.Context, tx *db.Tx, list models.List, item models.ListItem, now time.Time) (*models.ListItem, error) {
	aggList, err := aggregateList(ctx, tx, list.GameID, h.kind)
	if err != nil || aggList == nil {
		return nil, err
	}
	aggItem, err := removeFromAggregate(ctx, tx, aggList.ID, item, now)
	if err != nil {
		return nil, err
	}
	if err := touch(ctx, tx, list.GameID, aggList.ID, now); err != nil {
		return nil, err
	}
	return aggItem, nil
}

// loadRegularItem writes the error response itself and reports ok=false
// when the item is missing, foreign, or on an aggregate list
func (h *ItemHandler) loadRegularItem(ctx context.Context, w http.ResponseWriter, q db.Querier, itemID, aggregateMsg string) (models.ListItem, models.List, bool) {
	item, list, err := getOwnedItem(ctx, q, middleware.UserID(ctx), itemID, h.kind)
	if err == errNotFound {
		middleware.ErrorResponse(w, http.StatusNotFound, "Item not found")
		return models.ListItem{}, models.List{}, false
	}
	if err != nil {
		slog.Error("failed to query item", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.ListItem{}, models.List{}, false
	}
	if list.Aggregate {
		middleware.ErrorResponse(w, http.StatusMethodNotAllowed, aggregateMsg)
		return models.ListItem{}, models.List{}, false
	}
	return item, list, true
}

// lockItem takes the aggregate list lock for the item's game and kind, then
// re-reads the item so the edit starts from the latest committed quantity
func (h *ItemHandler) lockItem(ctx context.Context, w http.ResponseWriter, tx *db.Tx, item models.ListItem, list models.List) (models.ListItem, bool) {
	if _, err := aggregateList(ctx, tx, list.GameID, h.kind); err != nil {
		slog.Error("failed to lock aggregate list", "game_id", list.GameID, "kind", h.kind, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.ListItem{}, false
	}
	fresh, err := getItem(ctx, tx, item.ID)
	if err == errNotFound {
		middleware.ErrorResponse(w, http.StatusNotFound, "Item not found")
		return models.ListItem{}, false
	}
	if err != nil {
		slog.Error("failed to query item", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.ListItem{}, false
	}
	return fresh, true
}

// quantityTooLarge writes a 422 and reports true when err is a quantity
// overflow on the item or its aggregate entry
func quantityTooLarge(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, aggregate.ErrQuantityTooLarge) {
		return false
	}
	middleware.ValidationResponse(w, []string{aggregate.ErrQuantityTooLarge.Error()})
	return true
}

func (h *ItemHandler) validate(quantity *int, unitWeight *float64) []string {
	var errs []string
	if quantity != nil && *quantity <= 0 {
		errs = append(errs, "quantity must be greater than 0")
	} else if quantity != nil && *quantity > aggregate.MaxQuantity {
		errs = append(errs, aggregate.ErrQuantityTooLarge.Error())
	}
	if unitWeight != nil {
		if h.kind != models.KindInventory {
			errs = append(errs, "unit_weight is only tracked on inventory items")
		} else if *unitWeight < 0 {
			errs = append(errs, "unit_weight must be greater than or equal to 0")
		}
	}
	return errs
}
