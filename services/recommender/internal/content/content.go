// Package content holds the movie catalog types shared by the recommender and
// the ports it uses to reach the catalog and a user's watchlist.
package content

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a movie in the content catalog.
type ID int64

// ParseID parses a positive decimal content id.
func ParseID(raw string) (ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("content: invalid id %q", raw)
	}
	return ID(n), nil
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Summary is a read-only view of a movie as returned by the catalog.
type Summary struct {
	ID          ID      `json:"id"`
	Title       string  `json:"title"`
	ReleaseYear int     `json:"release_year,omitempty"`
	Popularity  float64 `json:"popularity"`
	VoteAverage float64 `json:"vote_average,omitempty"`
	PosterPath  string  `json:"poster_path,omitempty"`
	Overview    string  `json:"overview,omitempty"`
	GenreIDs    []int   `json:"genre_ids,omitempty"`
}

// Service is the port for the external content catalog. All operations are
// idempotent reads and may fail independently.
type Service interface {
	Details(ctx context.Context, id ID) (Summary, error)
	RecommendationsFor(ctx context.Context, id ID) ([]Summary, error)
	SimilarTo(ctx context.Context, id ID) ([]Summary, error)
	Discover(ctx context.Context, genreIDs []int) ([]Summary, error)
}

// WatchlistProvider returns the ids a user has saved, most recently added first.
type WatchlistProvider interface {
	List(ctx context.Context, userID string) ([]ID, error)
}
