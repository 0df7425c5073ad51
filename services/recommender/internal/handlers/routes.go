package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/services/recommender/internal/ratings"
	"github.com/example/movie-platform/services/recommender/internal/watchlist"
)

// Deps are the collaborators behind the /v1 API.
type Deps struct {
	Verifier  auth.JWTVerifier
	Sessions  Sessions
	Watchlist watchlist.Store
	Ratings   ratings.Store
	Catalog   Catalog
	Notify    ChangeNotifier
	// RateLimit wraps every /v1 route when set.
	RateLimit func(http.Handler) http.Handler
	Logger    *zap.Logger
}

// Mount registers the /v1 routes on r. Every route requires a bearer token.
func Mount(r chi.Router, d Deps) {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r.Route("/v1", func(v1 chi.Router) {
		if d.RateLimit != nil {
			v1.Use(d.RateLimit)
		}
		v1.Use(auth.RequireUser(d.Verifier))

		v1.Get("/recommendations", Recommendations(d.Sessions, "request", log))
		v1.Post("/recommendations/refresh", Recommendations(d.Sessions, "refresh", log))

		v1.Get("/watchlist", ListWatchlist(d.Watchlist, d.Catalog))
		v1.Post("/watchlist", AddToWatchlist(d.Watchlist, d.Notify))
		v1.Delete("/watchlist/{content_id}", RemoveFromWatchlist(d.Watchlist, d.Notify))

		v1.Get("/movies/search", SearchMovies(d.Catalog, log))
		v1.Get("/movies/popular", PopularMovies(d.Catalog, log))
		v1.Get("/movies/{content_id}", GetMovie(d.Catalog, d.Ratings, d.Watchlist, log))
		v1.Get("/movies/{content_id}/rating", GetRating(d.Ratings))
		v1.Put("/movies/{content_id}/rating", RateMovie(d.Ratings))

		v1.Get("/me/ratings", ListMyRatings(d.Ratings))
	})
}
