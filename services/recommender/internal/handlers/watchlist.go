package handlers

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/httpserver"
	"github.com/example/movie-platform/services/recommender/internal/content"
	"github.com/example/movie-platform/services/recommender/internal/watchlist"
)

// Watchlist change actions carried on watchlist.changed.
const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

// ChangeNotifier is told about every watchlist mutation.
type ChangeNotifier func(ctx context.Context, userID string, id content.ID, action string)

// detailsConcurrency bounds catalog lookups when expanding a watchlist.
const detailsConcurrency = 4

type addWatchlistReq struct {
	ContentID int64 `json:"content_id"`
}

// ListWatchlist returns the caller's saved ids, most recent first, plus the
// catalog details that could be loaded.
func ListWatchlist(store watchlist.Store, catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := requireUserID(w, r, rid)
		if !ok {
			return
		}

		ids, err := store.List(r.Context(), uid)
		if err != nil {
			writeStatusError(w, rid, err)
			return
		}

		details := make([]*content.Summary, len(ids))
		g, ctx := errgroup.WithContext(r.Context())
		g.SetLimit(detailsConcurrency)
		for i, id := range ids {
			g.Go(func() error {
				d, err := catalog.Details(ctx, id)
				if err == nil {
					details[i] = &d
				}
				return nil
			})
		}
		_ = g.Wait()

		movies := make([]content.Summary, 0, len(ids))
		for _, d := range details {
			if d != nil {
				movies = append(movies, *d)
			}
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{
			"content_ids": ids,
			"movies":      movies,
			"count":       len(ids),
		})
	}
}

// AddToWatchlist saves a movie. Re-adding is a no-op that returns 200.
func AddToWatchlist(store watchlist.Store, notify ChangeNotifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := requireUserID(w, r, rid)
		if !ok {
			return
		}

		var req addWatchlistReq
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if req.ContentID <= 0 {
			api.BadRequest(w, "INVALID_ID", "content_id must be a positive integer", rid, map[string]any{"content_id": req.ContentID})
			return
		}
		id := content.ID(req.ContentID)

		added, err := store.Add(r.Context(), uid, id)
		if err != nil {
			writeStatusError(w, rid, err)
			return
		}
		status := http.StatusOK
		if added {
			status = http.StatusCreated
			if notify != nil {
				notify(r.Context(), uid, id, ActionAdded)
			}
		}
		api.WriteJSON(w, status, map[string]any{"content_id": id, "added": added})
	}
}

// RemoveFromWatchlist deletes a movie; 404 when it was not saved.
func RemoveFromWatchlist(store watchlist.Store, notify ChangeNotifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := requireUserID(w, r, rid)
		if !ok {
			return
		}
		id, ok := contentIDParam(w, r, rid)
		if !ok {
			return
		}

		if err := store.Remove(r.Context(), uid, id); err != nil {
			writeStatusError(w, rid, err)
			return
		}
		if notify != nil {
			notify(r.Context(), uid, id, ActionRemoved)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
