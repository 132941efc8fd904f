// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/stashkeep/aggregate"
	"github.com/danielhkuo/stashkeep/db"
	"github.com/danielhkuo/stashkeep/models"
)

var errNotFound = errors.New("not found")

const (
	gameColumns = `g.id, g.user_id, g.name, g.description, g.created_at, g.updated_at`
	listColumns = `l.id, l.game_id, l.kind, l.title, l.aggregate, l.created_at, l.updated_at`
	itemColumns = `i.id, i.list_id, i.description, i.quantity, i.notes, i.unit_weight, i.created_at, i.updated_at`
)

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (models.Game, error) {
	var g models.Game
	var created, updated int64
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &created, &updated)
	if err != nil {
		return models.Game{}, err
	}
	g.CreatedAt = db.FromMillis(created)
	g.UpdatedAt = db.FromMillis(updated)
	return g, nil
}

func scanList(row scanner) (models.List, error) {
	var l models.List
	var kind string
	var created, updated int64
	err := row.Scan(&l.ID, &l.GameID, &kind, &l.Title, &l.Aggregate, &created, &updated)
	if err != nil {
		return models.List{}, err
	}
	l.Kind = models.ListKind(kind)
	if !l.Kind.Valid() {
		return models.List{}, fmt.Errorf("list %s has unknown kind %q", l.ID, kind)
	}
	l.Items = []models.ListItem{}
	l.CreatedAt = db.FromMillis(created)
	l.UpdatedAt = db.FromMillis(updated)
	return l, nil
}

func scanItem(row scanner) (models.ListItem, error) {
	var it models.ListItem
	var weight sql.NullFloat64
	var created, updated int64
	err := row.Scan(&it.ID, &it.ListID, &it.Description, &it.Quantity, &it.Notes, &weight, &created, &updated)
	if err != nil {
		return models.ListItem{}, err
	}
	if weight.Valid {
		w := weight.Float64
		it.UnitWeight = &w
	}
	it.CreatedAt = db.FromMillis(created)
	it.UpdatedAt = db.FromMillis(updated)
	return it, nil
}

func nullWeight(w *float64) sql.NullFloat64 {
	if w == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *w, Valid: true}
}

// getOwnedGame loads a game only if it belongs to userID
func getOwnedGame(ctx context.Context, q db.Querier, userID, gameID string) (models.Game, error) {
	g, err := scanGame(q.QueryRowContext(ctx, `
		SELECT `+gameColumns+`
		FROM game g
		WHERE g.id = ? AND g.user_id = ?
	`, gameID, userID))
	if err == sql.ErrNoRows {
		return models.Game{}, errNotFound
	}
	if err != nil {
		return models.Game{}, fmt.Errorf("query game: %w", err)
	}
	return g, nil
}

// getOwnedList loads a list of the given kind only if its game belongs to userID
func getOwnedList(ctx context.Context, q db.Querier, userID, listID string, kind models.ListKind) (models.List, error) {
	l, err := scanList(q.QueryRowContext(ctx, `
		SELECT `+listColumns+`
		FROM item_list l
		JOIN game g ON g.id = l.game_id
		WHERE l.id = ? AND l.kind = ? AND g.user_id = ?
	`, listID, string(kind), userID))
	if err == sql.ErrNoRows {
		return models.List{}, errNotFound
	}
	if err != nil {
		return models.List{}, fmt.Errorf("query list: %w", err)
	}
	return l, nil
}

// getOwnedItem loads an item together with its list
func getOwnedItem(ctx context.Context, q db.Querier, userID, itemID string, kind models.ListKind) (models.ListItem, models.List, error) {
	var listID string
	err := q.QueryRowContext(ctx, `
		SELECT i.list_id
		FROM list_item i
		JOIN item_list l ON l.id = i.list_id
		JOIN game g ON g.id = l.game_id
		WHERE i.id = ? AND l.kind = ? AND g.user_id = ?
	`, itemID, string(kind), userID).Scan(&listID)
	if err == sql.ErrNoRows {
		return models.ListItem{}, models.List{}, errNotFound
	}
	if err != nil {
		return models.ListItem{}, models.List{}, fmt.Errorf("query item: %w", err)
	}

	item, err := getItem(ctx, q, itemID)
	if err != nil {
		return models.ListItem{}, models.List{}, err
	}
	list, err := getOwnedList(ctx, q, userID, listID, kind)
	if err != nil {
		return models.ListItem{}, models.List{}, err
	}
	return item, list, nil
}

func getItem(ctx context.Context, q db.Querier, itemID string) (models.ListItem, error) {
	it, err := scanItem(q.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM list_item i
		WHERE i.id = ?
	`, itemID))
	if err == sql.ErrNoRows {
		return models.ListItem{}, errNotFound
	}
	if err != nil {
		return models.ListItem{}, fmt.Errorf("query item: %w", err)
	}
	return it, nil
}

// findItemByDescription returns nil when the list has no matching item
func findItemByDescription(ctx context.Context, q db.Querier, listID, description string) (*models.ListItem, error) {
	it, err := scanItem(q.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM list_item i
		WHERE i.list_id = ? AND i.description_key = ?
	`, listID, aggregate.Key(description)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item by description: %w", err)
	}
	return &it, nil
}

// listItems returns the items of one list, most recently updated first
func listItems(ctx context.Context, q db.Querier, listID string) ([]models.ListItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM list_item i
		WHERE i.list_id = ?
		ORDER BY i.updated_at DESC, i.id
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []models.ListItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// gameLists returns a game's lists of one kind: the aggregate list first,
// then regular lists most recently updated first. Items are not loaded.
func gameLists(ctx context.Context, q db.Querier, gameID string, kind models.ListKind) ([]models.List, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+listColumns+`
		FROM item_list l
		WHERE l.game_id = ? AND l.kind = ?
		ORDER BY l.aggregate DESC, l.updated_at DESC, l.id
	`, gameID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	defer rows.Close()

	lists := []models.List{}
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// withItems fills in Items for every list. Rows for one list are fully read
// before the next query so this is safe on a single connection.
func withItems(ctx context.Context, q db.Querier, lists []models.List) error {
	for i := range lists {
		items, err := listItems(ctx, q, lists[i].ID)
		if err != nil {
			return err
		}
		lists[i].Items = items
	}
	return nil
}

// forUpdate is appended to a SELECT to hold its rows until the transaction
// ends. SQLite has no row locks; its writers are already serialized.
func forUpdate(q db.Querier) string {
	if q.Type() == db.TypePostgres {
		return " FOR UPDATE"
	}
	return ""
}

// aggregateList returns nil when the game has no aggregate list of this kind.
// On PostgreSQL the row stays locked for the rest of the transaction, so
// every edit of the game's items of this kind runs one at a time.
func aggregateList(ctx context.Context, q db.Querier, gameID string, kind models.ListKind) (*models.List, error) {
	l, err := scanList(q.QueryRowContext(ctx, `
		SELECT `+listColumns+`
		FROM item_list l
		WHERE l.game_id = ? AND l.kind = ? AND l.aggregate = ?`+forUpdate(q),
		gameID, string(kind), true))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query aggregate list: %w", err)
	}
	return &l, nil
}

func countRegularLists(ctx context.Context, q db.Querier, gameID string, kind models.ListKind) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM item_list
		WHERE game_id = ? AND kind = ? AND aggregate = ?
	`, gameID, string(kind), false).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count lists: %w", err)
	}
	return n, nil
}

// touch bumps updated_at on a list and its game
func touch(ctx context.Context, q db.Querier, gameID, listID string, now time.Time) error {
	ms := db.ToMillis(now)
	if listID != "" {
		if _, err := q.ExecContext(ctx, `UPDATE item_list SET updated_at = ? WHERE id = ?`, ms, listID); err != nil {
			return fmt.Errorf("touch list: %w", err)
		}
	}
	if _, err := q.ExecContext(ctx, `UPDATE game SET updated_at = ? WHERE id = ?`, ms, gameID); err != nil {
		return fmt.Errorf("touch game: %w", err)
	}
	return nil
}

var (
	defaultNumberPattern = regexp.MustCompile(`^(\d+)$`)
	titlePattern         = regexp.MustCompile(`^[\p{L}\p{N} ,'\-]+$`)
)

// nextDefaultName returns prefix + (1 + highest N among names "prefix N")
func nextDefaultName(prefix string, existing []string) string {
	highest := 0
	lowerPrefix := strings.ToLower(prefix) + " "
	for _, name := range existing {
		name = strings.ToLower(strings.TrimSpace(name))
		if !strings.HasPrefix(name, lowerPrefix) {
			continue
		}
		m := defaultNumberPattern.FindStringSubmatch(strings.TrimPrefix(name, lowerPrefix))
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	return prefix + " " + strconv.Itoa(highest+1)
}

// validateTitle checks a game name or list title
func validateTitle(field, value string) []string {
	var errs []string
	if len(value) > 100 {
		errs = append(errs, field+" is too long (maximum is 100 characters)")
	}
	if !titlePattern.MatchString(value) {
		errs = append(errs, field+" can only contain letters, numbers, spaces, commas, hyphens, and apostrophes")
	}
	return errs
}
