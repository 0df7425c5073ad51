// Package watchlist stores the movies each user has saved to watch later.
//
// Primary backend: Redis sorted sets scored by added-at (REDIS_URL).
// Fallback: Postgres (DATABASE_URL).
// If neither is available, an in-memory store is used (development only).
package watchlist

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/movie-platform/internal/platform/grpcerr"
	"github.com/example/movie-platform/services/recommender/internal/content"
)

const errDomain = "watchlist"

// Store is a user's watchlist. List returns the most recently added first.
type Store interface {
	content.WatchlistProvider
	// Add saves id; re-adding an existing id keeps its position and reports false.
	Add(ctx context.Context, userID string, id content.ID) (added bool, err error)
	// Remove deletes id and returns a NotFound status when it was not saved.
	Remove(ctx context.Context, userID string, id content.ID) error
	Contains(ctx context.Context, userID string, id content.ID) (bool, error)
}

// NewStore creates the best available store: Redis > Postgres > in-memory.
// When isProd is true the in-memory fallback is refused.
func NewStore(redisURL string, pool *pgxpool.Pool, isProd bool) (Store, error) {
	if redisURL != "" {
		return NewRedisStoreFromURL(redisURL), nil
	}
	if pool != nil {
		return NewPostgresStore(pool), nil
	}
	if isProd {
		return nil, errors.New("production requires REDIS_URL or DATABASE_URL for the watchlist; in-memory store is not allowed")
	}
	return NewMemoryStore(), nil
}

func errNotInWatchlist(id content.ID) error {
	return grpcerr.NotFound(errDomain, "NOT_IN_WATCHLIST", "movie "+id.String()+" is not in the watchlist")
}

func errBackend(msg string) error {
	return grpcerr.Unavailable(errDomain, "WATCHLIST_UNAVAILABLE", msg)
}
