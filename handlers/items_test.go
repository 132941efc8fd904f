// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"math"
	"net/http"
	"strings"
	"testing"

	"github.com/danielhkuo/stashkeep/aggregate"
	"github.com/danielhkuo/stashkeep/models"
	"github.com/danielhkuo/stashkeep/testutil"
)

func TestCreateItem_SumsIntoAggregate(t *testing.T) {
	f := newFixture(t)
	kind := models.KindShopping
	market := f.createList(t, kind, "Market")
	forge := f.createList(t, kind, "Forge")

	first := f.addItem(t, kind, market.List.ID, models.CreateItemRequest{Description: "Iron Ore", Quantity: intPtr(2), Notes: "for daggers"})
	if first.Item == nil || first.Item.ListID != market.List.ID {
		t.Fatalf("Expected item on the market list, got %+v", first.Item)
	}
	if first.AggregateItem == nil || first.AggregateItem.ListID != market.AggregateList.ID {
		t.Fatalf("Expected aggregate item on the aggregate list, got %+v", first.AggregateItem)
	}

	second := f.addItem(t, kind, forge.List.ID, models.CreateItemRequest{Description: "iron ore", Quantity: intPtr(5), Notes: "smelt"})
	agg := second.AggregateItem
	if agg.ID != first.AggregateItem.ID {
		t.Error("Expected the same aggregate entry to be reused")
	}
	if agg.Description != "Iron Ore" {
		t.Errorf("Expected first spelling kept, got '%s'", agg.Description)
	}
	if agg.Quantity != 7 {
		t.Errorf("Expected aggregate quantity 7, got %d", agg.Quantity)
	}
	if agg.Notes != "for daggers -- smelt" {
		t.Errorf("Expected joined notes, got '%s'", agg.Notes)
	}
}

func TestCreateItem_CombinesOnSameList(t *testing.T) {
	f := newFixture(t)
	kind := models.KindShopping
	market := f.createList(t, kind, "Market")
	h := f.items[kind]

	f.addItem(t, kind, market.List.ID, models.CreateItemRequest{Description: "Apple", Notes: "red"})

	w := serve(h.Create, "POST", "/shopping_lists/"+market.List.ID+"/shopping_list_items", market.List.ID,
		models.CreateItemRequest{Description: "APPLE", Quantity: intPtr(3), Notes: "green"}, f.userID)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.ItemMutationResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Item.Quantity != 4 || resp.Item.Notes != "red -- green" {
		t.Errorf("Unexpected combined item: quantity %d notes '%s'", resp.Item.Quantity, resp.Item.Notes)
	}
	if resp.AggregateItem.Quantity != 4 {
		t.Errorf("Expected aggregate quantity 4, got %d", resp.AggregateItem.Quantity)
	}

	lists := f.listsOf(t, kind)
	for _, l := range lists {
		if len(l.Items) != 1 {
			t.Errorf("Expected one item on %s, got %d", l.Title, len(l.Items))
		}
	}
}

func TestCreateItem_Validation(t *testing.T) {
	f := newFixture(t)
	shop := f.createList(t, models.KindShopping, "Market")
	inv := f.createList(t, models.KindInventory, "Chest")

	tests := []struct {
		name           string
		kind           models.ListKind
		listID         string
		requestBody    interface{}
		expectedStatus int
	}{
		{"blank description", models.KindShopping, shop.List.ID, models.CreateItemRequest{Description: "  "}, http.StatusUnprocessableEntity},
		{"zero quantity", models.KindShopping, shop.List.ID, models.CreateItemRequest{Description: "Salt", Quantity: intPtr(0)}, http.StatusUnprocessableEntity},
		{"negative quantity", models.KindInventory, inv.List.ID, models.CreateItemRequest{Description: "Salt", Quantity: intPtr(-2)}, http.StatusUnprocessableEntity},
		{"unit weight on shopping item", models.KindShopping, shop.List.ID, models.CreateItemRequest{Description: "Salt", UnitWeight: floatPtr(0.1)}, http.StatusUnprocessableEntity},
		{"negative unit weight", models.KindInventory, inv.List.ID, models.CreateItemRequest{Description: "Salt", UnitWeight: floatPtr(-1)}, http.StatusUnprocessableEntity},
		{"aggregate list", models.KindShopping, shop.AggregateList.ID, models.CreateItemRequest{Description: "Salt"}, http.StatusMethodNotAllowed},
		{"wrong kind", models.KindInventory, shop.List.ID, models.CreateItemRequest{Description: "Salt"}, http.StatusNotFound},
		{"missing list", models.KindShopping, "no-such-list", models.CreateItemRequest{Description: "Salt"}, http.StatusNotFound},
		{"invalid JSON", models.KindShopping, shop.List.ID, "invalid json", http.StatusBadRequest},
		{"default quantity", models.KindShopping, shop.List.ID, models.CreateItemRequest{Description: "Salt"}, http.StatusCreated},
		{"zero unit weight", models.KindInventory, inv.List.ID, models.CreateItemRequest{Description: "Feather", UnitWeight: floatPtr(0)}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(f.items[tt.kind].Create, "POST", "/lists/"+tt.listID+"/items", tt.listID, tt.requestBody, f.userID)
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}
}

// Quantities past the 32-bit column range are rejected with 422 before
// anything is written, whether they come in directly or from a sum
func TestQuantityLimit(t *testing.T) {
	f := newFixture(t)
	kind := models.KindInventory
	alpha := f.createList(t, kind, "Alpha")
	beta := f.createList(t, kind, "Beta")
	h := f.items[kind]

	countItems := func(listID string) int {
		t.Helper()
		var n int
		err := f.db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM list_item WHERE list_id = ?`, listID).Scan(&n)
		if err != nil {
			t.Fatalf("Failed to count items: %v", err)
		}
		return n
	}
	expectTooLarge := func(t *testing.T, code int, body string) {
		t.Helper()
		if code != http.StatusUnprocessableEntity {
			t.Fatalf("Expected 422, got %d - %s", code, body)
		}
		if !strings.Contains(body, "2147483647") {
			t.Errorf("Expected the limit in the error, got %s", body)
		}
	}

	w := serve(h.Create, "POST", "/inventory_lists/"+alpha.List.ID+"/inventory_list_items", alpha.List.ID,
		models.CreateItemRequest{Description: "Arrow", Quantity: intPtr(math.MaxInt64)}, f.userID)
	expectTooLarge(t, w.Code, w.Body.String())

	arrows := f.addItem(t, kind, alpha.List.ID, models.CreateItemRequest{Description: "Arrow", Quantity: intPtr(aggregate.MaxQuantity)})

	t.Run("aggregate sum", func(t *testing.T) {
		w := serve(h.Create, "POST", "/inventory_lists/"+beta.List.ID+"/inventory_list_items", beta.List.ID,
			models.CreateItemRequest{Description: "arrow", Quantity: intPtr(1)}, f.userID)
		expectTooLarge(t, w.Code, w.Body.String())
		if n := countItems(beta.List.ID); n != 0 {
			t.Errorf("Expected rejected item to be rolled back, found %d items", n)
		}
	})

	t.Run("combine on same list", func(t *testing.T) {
		w := serve(h.Create, "POST", "/inventory_lists/"+alpha.List.ID+"/inventory_list_items", alpha.List.ID,
			models.CreateItemRequest{Description: "ARROW", Quantity: intPtr(1)}, f.userID)
		expectTooLarge(t, w.Code, w.Body.String())
	})

	t.Run("increment", func(t *testing.T) {
		w := serve(h.Increment, "PATCH", "/inventory_list_items/"+arrows.Item.ID+"/increment", arrows.Item.ID, nil, f.userID)
		expectTooLarge(t, w.Code, w.Body.String())
	})

	t.Run("update pushes aggregate over", func(t *testing.T) {
		bolts := f.addItem(t, kind, alpha.List.ID, models.CreateItemRequest{Description: "Bolt", Quantity: intPtr(10)})
		f.addItem(t, kind, beta.List.ID, models.CreateItemRequest{Description: "Bolt", Quantity: intPtr(10)})

		w := serve(h.Update, "PATCH", "/inventory_list_items/"+bolts.Item.ID, bolts.Item.ID,
			models.UpdateItemRequest{Quantity: intPtr(aggregate.MaxQuantity)}, f.userID)
		expectTooLarge(t, w.Code, w.Body.String())

		if got := f.aggregateItems(t, kind)["Bolt"].Quantity; got != 20 {
			t.Errorf("Expected aggregate Bolt to stay at 20, got %d", got)
		}
	})

	agg := f.aggregateItems(t, kind)
	if agg["Arrow"].Quantity != aggregate.MaxQuantity {
		t.Errorf("Expected aggregate Arrow to stay at %d, got %d", aggregate.MaxQuantity, agg["Arrow"].Quantity)
	}
	var quantity int
	err := f.db.QueryRowContext(context.Background(), `SELECT quantity FROM list_item WHERE id = ?`, arrows.Item.ID).Scan(&quantity)
	if err != nil {
		t.Fatalf("Failed to query item: %v", err)
	}
	if quantity != aggregate.MaxQuantity {
		t.Errorf("Expected item quantity %d, got %d", aggregate.MaxQuantity, quantity)
	}
}

func TestUpdateItem_ReconcilesAggregate(t *testing.T) {
	f := newFixture(t)
	kind := models.KindShopping
	market := f.createList(t, kind, "Market")
	forge := f.createList(t, kind, "Forge")

	item := f.addItem(t, kind, market.List.ID, models.CreateItemRequest{Description: "Coal", Quantity: intPtr(2), Notes: "lumps"})
	f.addItem(t, kind, forge.List.ID, models.CreateItemRequest{Description: "Coal", Quantity: intPtr(1), Notes: "dust"})
	h := f.items[kind]

	w := serve(h.Update, "PATCH", "/shopping_list_items/"+item.Item.ID, item.Item.ID,
		models.UpdateItemRequest{Quantity: intPtr(5), Notes: strPtr("big lumps")}, f.userID)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.ItemMutationResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Item.Quantity != 5 || resp.Item.Notes != "big lumps" {
		t.Errorf("Unexpected item after update: %+v", resp.Item)
	}
	if resp.AggregateItem.Quantity != 6 {
		t.Errorf("Expected aggregate quantity 6, got %d", resp.AggregateItem.Quantity)
	}
	if resp.AggregateItem.Notes != "dust -- big lumps" {
		t.Errorf("Expected old notes swapped for new, got '%s'", resp.AggregateItem.Notes)
	}

	w = serve(h.Update, "PATCH", "/shopping_list_items/"+item.Item.ID, item.Item.ID,
		models.UpdateItemRequest{Quantity: intPtr(0)}, f.userID)
	testutil.AssertStatus(t, w, http.StatusUnprocessableEntity)

	w = serve(h.Update, "PATCH", "/shopping_list_items/"+resp.AggregateItem.ID, resp.AggregateItem.ID,
		models.UpdateItemRequest{Quantity: intPtr(1)}, f.userID)
	testutil.AssertStatus(t, w, http.StatusMethodNotAllowed)

	otherID, _ := testutil.CreateTestUser(t, f.db, "other@example.com")
	w = serve(h.Update, "PATCH", "/shopping_list_items/"+item.Item.ID, item.Item.ID,
		models.UpdateItemRequest{Quantity: intPtr(1)}, otherID)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestIncrementDecrement(t *testing.T) {
	f := newFixture(t)
	kind := models.KindInventory
	chest := f.createList(t, kind, "Chest")
	h := f.items[kind]

	item := f.addItem(t, kind, chest.List.ID, models.CreateItemRequest{Description: "Arrow"})
	path := "/inventory_list_items/" + item.Item.ID

	w := serve(h.Increment, "PATCH", path+"/increment", item.Item.ID, nil, f.userID)
	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.ItemMutationResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Item.Quantity != 2 || resp.AggregateItem.Quantity != 2 {
		t.Errorf("Expected 2 and 2 after increment, got %d and %d", resp.Item.Quantity, resp.AggregateItem.Quantity)
	}

	w = serve(h.Decrement, "PATCH", path+"/decrement", item.Item.ID, nil, f.userID)
	testutil.AssertStatus(t, w, http.StatusOK)
	resp = models.ItemMutationResponse{}
	testutil.AssertJSON(t, w, &resp)
	if resp.Item.Quantity != 1 || resp.AggregateItem.Quantity != 1 {
		t.Errorf("Expected 1 and 1 after decrement, got %d and %d", resp.Item.Quantity, resp.AggregateItem.Quantity)
	}

	// Never below one
	w = serve(h.Decrement, "PATCH", path+"/decrement", item.Item.ID, nil, f.userID)
	testutil.AssertStatus(t, w, http.StatusUnprocessableEntity)

	agg := f.aggregateItems(t, kind)
	if agg["Arrow"].Quantity != 1 {
		t.Errorf("Expected aggregate untouched by rejected decrement, got %d", agg["Arrow"].Quantity)
	}
}

func TestDeleteItem_ReconcilesAggregate(t *testing.T) {
	f := newFixture(t)
	kind := models.KindShopping
	market := f.createList(t, kind, "Market")
	forge := f.createList(t, kind, "Forge")
	h := f.items[kind]

	a := f.addItem(t, kind, market.List.ID, models.CreateItemRequest{Description: "Salt", Quantity: intPtr(2), Notes: "sea"})
	b := f.addItem(t, kind, forge.List.ID, models.CreateItemRequest{Description: "Salt", Quantity: intPtr(1), Notes: "rock"})

	w := serve(h.Delete, "DELETE", "/shopping_list_items/"+a.Item.ID, a.Item.ID, nil, f.userID)
	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.ItemMutationResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.AggregateItem == nil {
		t.Fatal("Expected remaining aggregate item")
	}
	if resp.AggregateItem.Quantity != 1 || resp.AggregateItem.Notes != "rock" {
		t.Errorf("Unexpected aggregate after delete: quantity %d notes '%s'", resp.AggregateItem.Quantity, resp.AggregateItem.Notes)
	}

	// Aggregate items cannot be deleted directly
	w = serve(h.Delete, "DELETE", "/shopping_list_items/"+resp.AggregateItem.ID, resp.AggregateItem.ID, nil, f.userID)
	testutil.AssertStatus(t, w, http.StatusMethodNotAllowed)

	w = serve(h.Delete, "DELETE", "/shopping_list_items/"+b.Item.ID, b.Item.ID, nil, f.userID)
	testutil.AssertStatus(t, w, http.StatusOK)
	resp = models.ItemMutationResponse{}
	testutil.AssertJSON(t, w, &resp)
	if resp.AggregateItem != nil {
		t.Errorf("Expected aggregate item gone, got %+v", resp.AggregateItem)
	}
	if agg := f.aggregateItems(t, kind); len(agg) != 0 {
		t.Errorf("Expected empty aggregate list, got %v", agg)
	}

	w = serve(h.Delete, "DELETE", "/shopping_list_items/"+b.Item.ID, b.Item.ID, nil, f.userID)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestUnitWeight_Propagates(t *testing.T) {
	f := newFixture(t)
	kind := models.KindInventory
	chest := f.createList(t, kind, "Chest")
	bag := f.createList(t, kind, "Bag")
	h := f.items[kind]

	inChest := f.addItem(t, kind, chest.List.ID, models.CreateItemRequest{Description: "Iron Ingot", Quantity: intPtr(3)})
	inBag := f.addItem(t, kind, bag.List.ID, models.CreateItemRequest{Description: "iron ingot"})
	if inBag.Item.UnitWeight != nil {
		t.Fatalf("Expected no weight yet, got %v", *inBag.Item.UnitWeight)
	}

	w := serve(h.Update, "PATCH", "/inventory_list_items/"+inChest.Item.ID, inChest.Item.ID,
		models.UpdateItemRequest{UnitWeight: floatPtr(1.5)}, f.userID)
	testutil.AssertStatus(t, w, http.StatusOK)

	for _, l := range f.listsOf(t, kind) {
		for _, it := range l.Items {
			if it.UnitWeight == nil || *it.UnitWeight != 1.5 {
				t.Errorf("Expected weight 1.5 on %s in %s, got %v", it.Description, l.Title, it.UnitWeight)
			}
		}
	}

	// New lists inherit the known weight
	crate := f.createList(t, kind, "Crate")
	added := f.addItem(t, kind, crate.List.ID, models.CreateItemRequest{Description: "IRON INGOT"})
	if added.Item.UnitWeight == nil || *added.Item.UnitWeight != 1.5 {
		t.Errorf("Expected inherited weight 1.5, got %v", added.Item.UnitWeight)
	}
	if added.AggregateItem.Quantity != 5 {
		t.Errorf("Expected aggregate quantity 5, got %d", added.AggregateItem.Quantity)
	}
}
