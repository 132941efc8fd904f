package models

import "time"

// List kinds
type ListKind string

const (
	KindShopping  ListKind = "shopping"
	KindInventory ListKind = "inventory"
)

// Valid reports whether k is a known list kind
func (k ListKind) Valid() bool {
	return k == KindShopping || k == KindInventory
}

// AggregateListTitle is reserved for the per-game aggregate list
const AggregateListTitle = "All Items"

// Request types

type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}

type GameRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type ListRequest struct {
	Title string `json:"title"`
}

type CreateItemRequest struct {
	Description string   `json:"description"`
	Quantity    *int     `json:"quantity"`
	Notes       string   `json:"notes"`
	UnitWeight  *float64 `json:"unit_weight"`
}

// Description is immutable once an item exists
type UpdateItemRequest struct {
	Quantity   *int     `json:"quantity"`
	Notes      *string  `json:"notes"`
	UnitWeight *float64 `json:"unit_weight"`
}

// Response types

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

type ListMutationResponse struct {
	List          *List `json:"list"`
	AggregateList *List `json:"aggregate_list,omitempty"`
}

type DeleteListResponse struct {
	Deleted       []string `json:"deleted"`
	AggregateList *List    `json:"aggregate_list"`
}

type ItemMutationResponse struct {
	Item          *ListItem `json:"item,omitempty"`
	AggregateItem *ListItem `json:"aggregate_item"`
}

type GameSummary struct {
	GameID       string                `json:"game_id"`
	Name         string                `json:"name"`
	Kinds        map[ListKind]KindStat `json:"kinds"`
	LastActivity time.Time             `json:"last_activity"`
	LastActive   string                `json:"last_active"` // e.g. "3 minutes ago"
}

type KindStat struct {
	Lists         int `json:"lists"`
	DistinctItems int `json:"distinct_items"`
	TotalQuantity int `json:"total_quantity"`
}

// Domain types

type User struct {
	ID        string    `json:"id"`
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Game struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type List struct {
	ID        string     `json:"id"`
	GameID    string     `json:"game_id"`
	Kind      ListKind   `json:"kind"`
	Title     string     `json:"title"`
	Aggregate bool       `json:"aggregate"`
	Items     []ListItem `json:"list_items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type ListItem struct {
	ID          string    `json:"id"`
	ListID      string    `json:"list_id"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	Notes       string    `json:"notes"`
	UnitWeight  *float64  `json:"unit_weight,omitempty"` // inventory only
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Error response

type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}
