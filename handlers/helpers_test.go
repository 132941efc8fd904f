// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/stashkeep/db"
	"github.com/danielhkuo/stashkeep/models"
	"github.com/danielhkuo/stashkeep/testutil"
)

// fixture is one signed-in user with one game
type fixture struct {
	db     *db.DB
	userID string
	gameID string
	lists  map[models.ListKind]*ListHandler
	items  map[models.ListKind]*ItemHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	userID, _ := testutil.CreateTestUser(t, conn, "player@example.com")
	gameID := testutil.CreateTestGame(t, conn, userID, "Skyrim")

	f := &fixture{
		db:     conn,
		userID: userID,
		gameID: gameID,
		lists:  map[models.ListKind]*ListHandler{},
		items:  map[models.ListKind]*ItemHandler{},
	}
	for _, kind := range []models.ListKind{models.KindShopping, models.KindInventory} {
		f.lists[kind] = NewListHandler(conn, cfg, kind)
		f.items[kind] = NewItemHandler(conn, cfg, kind)
	}
	return f
}

// serve calls h as userID with the {id} path value set
func serve(h http.HandlerFunc, method, path, id string, body interface{}, userID string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest(method, path, body, nil)
	if id != "" {
		req.SetPathValue("id", id)
	}
	req = testutil.WithUser(req, userID)
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func (f *fixture) createList(t *testing.T, kind models.ListKind, title string) models.ListMutationResponse {
	t.Helper()

	w := serve(f.lists[kind].Create, "POST", "/games/"+f.gameID+"/"+string(kind)+"_lists", f.gameID,
		models.ListRequest{Title: title}, f.userID)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.ListMutationResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}

func (f *fixture) addItem(t *testing.T, kind models.ListKind, listID string, req models.CreateItemRequest) models.ItemMutationResponse {
	t.Helper()

	w := serve(f.items[kind].Create, "POST", "/"+string(kind)+"_lists/"+listID+"/"+string(kind)+"_list_items", listID, req, f.userID)
	if w.Code != http.StatusCreated && w.Code != http.StatusOK {
		t.Fatalf("Failed to add item: %d - %s", w.Code, w.Body.String())
	}

	var resp models.ItemMutationResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}

// listsOf returns the game's lists of one kind, aggregate list first
func (f *fixture) listsOf(t *testing.T, kind models.ListKind) []models.List {
	t.Helper()

	w := serve(f.lists[kind].Index, "GET", "/games/"+f.gameID+"/"+string(kind)+"_lists", f.gameID, nil, f.userID)
	testutil.AssertStatus(t, w, http.StatusOK)

	var lists []models.List
	testutil.AssertJSON(t, w, &lists)
	return lists
}

// aggregateItems returns the "All Items" entries keyed by description
func (f *fixture) aggregateItems(t *testing.T, kind models.ListKind) map[string]models.ListItem {
	t.Helper()

	out := map[string]models.ListItem{}
	for _, l := range f.listsOf(t, kind) {
		if !l.Aggregate {
			continue
		}
		for _, it := range l.Items {
			out[it.Description] = it
		}
	}
	return out
}

func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }
