// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

  - GoogleLoginRequest: id_token
  - GameRequest: name, description (both optional on update)
  - ListRequest: title
  - CreateItemRequest: description, quantity, notes, unit_weight
  - UpdateItemRequest: quantity, notes, unit_weight

# Response Types

  - LoginResponse: token, expires_at, user
  - ListMutationResponse: list, aggregate_list
  - DeleteListResponse: deleted, aggregate_list
  - ItemMutationResponse: item, aggregate_item
  - GameSummary: per-kind counts and last activity
  - ErrorResponse: error, message, errors

# Domain Types

  - User: Google account mapped to a local ID
  - Game: Owned by one user; names unique per user, case-insensitive
  - List: Shopping or inventory list; Aggregate marks "All Items"
  - ListItem: Description, quantity, notes, optional unit weight

ListKind selects shopping or inventory. Both kinds share one set of types
and one table.
*/
package models
