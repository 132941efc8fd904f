// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/stashkeep/auth"
	"github.com/danielhkuo/stashkeep/cliparse"
	"github.com/danielhkuo/stashkeep/db"
	"github.com/danielhkuo/stashkeep/handlers"
	"github.com/danielhkuo/stashkeep/middleware"
	"github.com/danielhkuo/stashkeep/models"
)

// NewRouter wires every route. verifier may be nil, in which case Google's
// tokeninfo endpoint from cfg is used.
func NewRouter(conn *db.DB, cfg cliparse.Config, verifier handlers.TokenVerifier) *http.ServeMux {
	mux := http.NewServeMux()

	if verifier == nil {
		verifier = auth.NewGoogleVerifier(cfg.GoogleClientID, cfg.GoogleTokenInfoURL)
	}

	// Initialize handlers
	userHandler := handlers.NewUserHandler(conn, cfg, verifier)
	gameHandler := handlers.NewGameHandler(conn, cfg)

	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireUser(cfg.SessionSecret, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Sign-in (public)
	mux.HandleFunc("POST /auth/google", middleware.WithLogging(userHandler.GoogleLogin))
	mux.HandleFunc("GET /users/current", protected(userHandler.Current))

	// Games
	mux.HandleFunc("GET /games", protected(gameHandler.ListGames))
	mux.HandleFunc("POST /games", protected(gameHandler.CreateGame))
	mux.HandleFunc("GET /games/{id}", protected(gameHandler.GetGame))
	mux.HandleFunc("PATCH /games/{id}", protected(gameHandler.UpdateGame))
	mux.HandleFunc("DELETE /games/{id}", protected(gameHandler.DeleteGame))
	mux.HandleFunc("GET /games/{id}/summary", protected(gameHandler.GetSummary))

	// Lists and items, same shape for both kinds
	for _, kind := range []models.ListKind{models.KindShopping, models.KindInventory} {
		lists := handlers.NewListHandler(conn, cfg, kind)
		items := handlers.NewItemHandler(conn, cfg, kind)

		listsPath := "/" + string(kind) + "_lists"
		itemsPath := "/" + string(kind) + "_list_items"

		mux.HandleFunc("GET /games/{id}"+listsPath, protected(lists.Index))
		mux.HandleFunc("POST /games/{id}"+listsPath, protected(lists.Create))
		mux.HandleFunc("POST /games/{id}"+listsPath+"/aggregate/rebuild", protected(lists.Rebuild))
		mux.HandleFunc("PATCH "+listsPath+"/{id}", protected(lists.Update))
		mux.HandleFunc("DELETE "+listsPath+"/{id}", protected(lists.Delete))

		mux.HandleFunc("POST "+listsPath+"/{id}"+itemsPath, protected(items.Create))
		mux.HandleFunc("PATCH "+itemsPath+"/{id}", protected(items.Update))
		mux.HandleFunc("PATCH "+itemsPath+"/{id}/increment", protected(items.Increment))
		mux.HandleFunc("PATCH "+itemsPath+"/{id}/decrement", protected(items.Decrement))
		mux.HandleFunc("DELETE "+itemsPath+"/{id}", protected(items.Delete))
	}

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("stashkeep API v1"))
	})

	return mux
}
