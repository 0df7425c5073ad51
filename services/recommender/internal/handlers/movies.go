package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/httpserver"
	"github.com/example/movie-platform/services/recommender/internal/content"
	"github.com/example/movie-platform/services/recommender/internal/ratings"
	"github.com/example/movie-platform/services/recommender/internal/tmdb"
	"github.com/example/movie-platform/services/recommender/internal/watchlist"
)

// Catalog is the read side of the movie catalog used by the HTTP API.
type Catalog interface {
	Details(ctx context.Context, id content.ID) (content.Summary, error)
	Search(ctx context.Context, query string, page int) (tmdb.Page, error)
	Popular(ctx context.Context, page int) (tmdb.Page, error)
}

// SearchMovies handles GET /v1/movies/search?q=&page=.
func SearchMovies(catalog Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			api.BadRequest(w, "MISSING_QUERY", "q is required", rid, nil)
			return
		}
		page, ok := pageParam(w, r, rid)
		if !ok {
			return
		}

		res, err := catalog.Search(r.Context(), q, page)
		if err != nil {
			catalogError(w, rid, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, res)
	}
}

// PopularMovies handles GET /v1/movies/popular?page=.
func PopularMovies(catalog Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		page, ok := pageParam(w, r, rid)
		if !ok {
			return
		}
		res, err := catalog.Popular(r.Context(), page)
		if err != nil {
			catalogError(w, rid, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, res)
	}
}

// GetMovie returns catalog details with the rating summary and, when
// authenticated, the caller's own score and watchlist membership.
func GetMovie(catalog Catalog, store ratings.Store, wl watchlist.Store, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		id, ok := contentIDParam(w, r, rid)
		if !ok {
			return
		}

		movie, err := catalog.Details(r.Context(), id)
		if err != nil {
			catalogError(w, rid, log, err)
			return
		}
		out := map[string]any{"movie": movie}

		if summary, err := store.GetSummary(r.Context(), id); err == nil {
			out["rating"] = summary
		} else {
			log.Warn("rating summary unavailable", zap.Int64("content_id", int64(id)), zap.Error(err))
		}
		if uid, ok := auth.UserIDFromContext(r.Context()); ok {
			if own, found, err := store.GetUserRating(r.Context(), uid, id); err == nil && found {
				out["user_score"] = own.Score
				if own.Review != "" {
					out["user_review"] = own.Review
				}
			}
			if wl != nil {
				if in, err := wl.Contains(r.Context(), uid, id); err == nil {
					out["in_watchlist"] = in
				} else {
					log.Warn("watchlist lookup failed", zap.Int64("content_id", int64(id)), zap.Error(err))
				}
			}
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

func catalogError(w http.ResponseWriter, rid string, log *zap.Logger, err error) {
	if tmdb.IsNotFound(err) {
		api.NotFound(w, "MOVIE_NOT_FOUND", "movie not found", rid)
		return
	}
	if log != nil {
		log.Warn("catalog request failed", zap.String("request_id", rid), zap.Error(err))
	}
	api.Unavailable(w, "CONTENT_UNAVAILABLE", "movie catalog unavailable", rid)
}
