// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the stashkeep API.

# Handler Types

  - UserHandler: Google sign-in and the current user
  - GameHandler: Game CRUD and the dashboard summary
  - ListHandler: Lists of one kind
  - ItemHandler: Items of one kind

Every handler except GoogleLogin expects RequireUser to have run and reads
the user from the request context. Resources owned by another user are
reported as 404.

# Aggregate Lists

Each game has at most one aggregate ("All Items") list per kind. It is
created with the first regular list and deleted with the last one, and
clients cannot edit it. Every item write on a regular list updates the
aggregate entry with the same case-insensitive description in the same
transaction:

	create    → quantity added, notes joined with " -- "
	update    → quantity delta applied, old notes swapped for new
	delete    → quantity subtracted, notes cut out; gone at zero

The arithmetic lives in package aggregate. If the aggregate list drifts,
POST .../aggregate/rebuild recomputes it from the regular lists.

# Unit Weight

Inventory items may carry a unit weight. Setting it on one item copies it
to every inventory item with the same description in the game.
*/
package handlers
