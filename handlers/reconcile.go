// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/danielhkuo/stashkeep/aggregate"
	"github.com/danielhkuo/stashkeep/auth"
	"github.com/danielhkuo/stashkeep/db"
	"github.com/danielhkuo/stashkeep/models"
)

func toEntry(it models.ListItem) aggregate.Entry {
	return aggregate.Entry{
		Description: it.Description,
		Quantity:    it.Quantity,
		Notes:       it.Notes,
		UnitWeight:  it.UnitWeight,
	}
}

// insertItem writes a new item row and returns it
func insertItem(ctx context.Context, q db.Querier, listID string, e aggregate.Entry, now time.Time) (models.ListItem, error) {
	it := models.ListItem{
		ID:          auth.NewID(),
		ListID:      listID,
		Description: e.Description,
		Quantity:    e.Quantity,
		Notes:       e.Notes,
		UnitWeight:  e.UnitWeight,
		CreatedAt:   now.UTC().Truncate(time.Millisecond),
		UpdatedAt:   now.UTC().Truncate(time.Millisecond),
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO list_item (id, list_id, description, description_key, quantity, notes, unit_weight, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, it.ID, listID, it.Description, aggregate.Key(it.Description), it.Quantity, it.Notes,
		nullWeight(it.UnitWeight), db.ToMillis(now), db.ToMillis(now))
	if err != nil {
		return models.ListItem{}, fmt.Errorf("insert item: %w", err)
	}
	return it, nil
}

// saveEntry overwrites quantity, notes and unit weight of an existing item
func saveEntry(ctx context.Context, q db.Querier, itemID string, e aggregate.Entry, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE list_item
		SET quantity = ?, notes = ?, unit_weight = ?, updated_at = ?
		WHERE id = ?
	`, e.Quantity, e.Notes, nullWeight(e.UnitWeight), db.ToMillis(now), itemID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func deleteItem(ctx context.Context, q db.Querier, itemID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM list_item WHERE id = ?`, itemID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// addToAggregate folds an addition on a regular list into the aggregate list
func addToAggregate(ctx context.Context, q db.Querier, aggListID string, in aggregate.Entry, now time.Time) (*models.ListItem, error) {
	existing, err := findItemByDescription(ctx, q, aggListID, in.Description)
	if err != nil {
		return nil, err
	}

	var cur *aggregate.Entry
	if existing != nil {
		e := toEntry(*existing)
		cur = &e
	}
	merged, err := aggregate.Add(cur, in)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		created, err := insertItem(ctx, q, aggListID, merged, now)
		if err != nil {
			return nil, err
		}
		return &created, nil
	}
	if err := saveEntry(ctx, q, existing.ID, merged, now); err != nil {
		return nil, err
	}
	return reloadItem(ctx, q, existing.ID)
}

// updateAggregate applies an edit of a regular-list item. An aggregate entry
// that went missing is recreated from the edited item.
func updateAggregate(ctx context.Context, q db.Querier, aggListID string, before, after models.ListItem, now time.Time) (*models.ListItem, error) {
	existing, err := findItemByDescription(ctx, q, aggListID, before.Description)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		slog.Warn("aggregate entry missing, recreating", "list_id", aggListID, "description", before.Description)
		return addToAggregate(ctx, q, aggListID, toEntry(after), now)
	}

	var weight *float64
	if !sameWeight(before.UnitWeight, after.UnitWeight) {
		weight = after.UnitWeight
	}
	updated, removed, err := aggregate.Update(toEntry(*existing), after.Quantity-before.Quantity, before.Notes, after.Notes, weight)
	if err != nil {
		return nil, err
	}
	if removed {
		// Only reachable when the aggregate had drifted below the regular lists
		if err := deleteItem(ctx, q, existing.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err := saveEntry(ctx, q, existing.ID, updated, now); err != nil {
		return nil, err
	}
	return reloadItem(ctx, q, existing.ID)
}

// removeFromAggregate takes a deleted regular-list item out of the aggregate
// list. Returns nil when the aggregate entry is gone.
func removeFromAggregate(ctx context.Context, q db.Querier, aggListID string, item models.ListItem, now time.Time) (*models.ListItem, error) {
	existing, err := findItemByDescription(ctx, q, aggListID, item.Description)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	updated, removed := aggregate.Remove(toEntry(*existing), item.Quantity, item.Notes)
	if removed {
		if err := deleteItem(ctx, q, existing.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err := saveEntry(ctx, q, existing.ID, updated, now); err != nil {
		return nil, err
	}
	return reloadItem(ctx, q, existing.ID)
}

// propagateUnitWeight sets the unit weight on every item with the same
// description in the game's lists of this kind
func propagateUnitWeight(ctx context.Context, q db.Querier, gameID string, kind models.ListKind, description string, weight *float64, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE list_item
		SET unit_weight = ?, updated_at = ?
		WHERE description_key = ?
		  AND list_id IN (SELECT id FROM item_list WHERE game_id = ? AND kind = ?)
	`, nullWeight(weight), db.ToMillis(now), aggregate.Key(description), gameID, string(kind))
	if err != nil {
		return fmt.Errorf("propagate unit weight: %w", err)
	}
	return nil
}

// rebuildAggregate replaces the aggregate list's items with the sum of the
// regular lists. The aggregate list is created when missing and deleted when
// no regular list remains; the returned list is nil in that case.
func rebuildAggregate(ctx context.Context, q db.Querier, gameID string, kind models.ListKind, now time.Time) (*models.List, error) {
	// Lock before reading the regular lists
	if _, err := aggregateList(ctx, q, gameID, kind); err != nil {
		return nil, err
	}
	lists, err := gameLists(ctx, q, gameID, kind)
	if err != nil {
		return nil, err
	}

	var agg *models.List
	var all []models.ListItem
	regular := 0
	for i := range lists {
		if lists[i].Aggregate {
			agg = &lists[i]
			continue
		}
		regular++
		items, err := listItems(ctx, q, lists[i].ID)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}

	// Oldest first so spelling follows the first item added
	slices.SortStableFunc(all, func(a, b models.ListItem) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	entries := make([]aggregate.Entry, 0, len(all))
	for _, it := range all {
		entries = append(entries, toEntry(it))
	}

	if regular == 0 {
		if agg != nil {
			if _, err := q.ExecContext(ctx, `DELETE FROM item_list WHERE id = ?`, agg.ID); err != nil {
				return nil, fmt.Errorf("delete aggregate list: %w", err)
			}
		}
		return nil, nil
	}

	if agg == nil {
		created, err := createAggregateList(ctx, q, gameID, kind, now)
		if err != nil {
			return nil, err
		}
		agg = &created
	}

	current, err := listItems(ctx, q, agg.ID)
	if err != nil {
		return nil, err
	}
	have := make([]aggregate.Entry, 0, len(current))
	for _, it := range current {
		have = append(have, toEntry(it))
	}
	if drift := aggregate.Diff(have, entries); len(drift) > 0 {
		slog.Warn("aggregate list drifted", "list_id", agg.ID, "descriptions", drift)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM list_item WHERE list_id = ?`, agg.ID); err != nil {
		return nil, fmt.Errorf("clear aggregate list: %w", err)
	}
	rebuilt := aggregate.Rebuild(entries)
	for _, e := range rebuilt {
		if e.Quantity > aggregate.MaxQuantity {
			return nil, fmt.Errorf("rebuild %q: %w", e.Description, aggregate.ErrQuantityTooLarge)
		}
	}
	for _, e := range rebuilt {
		if _, err := insertItem(ctx, q, agg.ID, e, now); err != nil {
			return nil, err
		}
	}
	if err := touch(ctx, q, gameID, agg.ID, now); err != nil {
		return nil, err
	}

	return reloadList(ctx, q, agg.ID)
}

func createAggregateList(ctx context.Context, q db.Querier, gameID string, kind models.ListKind, now time.Time) (models.List, error) {
	l := models.List{
		ID:        auth.NewID(),
		GameID:    gameID,
		Kind:      kind,
		Title:     models.AggregateListTitle,
		Aggregate: true,
		Items:     []models.ListItem{},
		CreatedAt: now.UTC().Truncate(time.Millisecond),
		UpdatedAt: now.UTC().Truncate(time.Millisecond),
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO item_list (id, game_id, kind, title, title_key, aggregate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, gameID, string(kind), l.Title, aggregate.Key(l.Title), true, db.ToMillis(now), db.ToMillis(now))
	if err != nil {
		return models.List{}, fmt.Errorf("insert aggregate list: %w", err)
	}
	slog.Info("aggregate list created", "game_id", gameID, "kind", kind, "list_id", l.ID)
	return l, nil
}

func reloadItem(ctx context.Context, q db.Querier, itemID string) (*models.ListItem, error) {
	it, err := getItem(ctx, q, itemID)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func reloadList(ctx context.Context, q db.Querier, listID string) (*models.List, error) {
	l, err := scanList(q.QueryRowContext(ctx, `
		SELECT `+listColumns+`
		FROM item_list l
		WHERE l.id = ?
	`, listID))
	if err != nil {
		return nil, fmt.Errorf("reload list: %w", err)
	}
	items, err := listItems(ctx, q, listID)
	if err != nil {
		return nil, err
	}
	l.Items = items
	return &l, nil
}

func sameWeight(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
