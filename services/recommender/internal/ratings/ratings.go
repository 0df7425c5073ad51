// Package ratings stores per-user movie scores.
package ratings

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/movie-platform/internal/platform/grpcerr"
	"github.com/example/movie-platform/services/recommender/internal/content"
)

const (
	MinScore = 1
	MaxScore = 10

	// MaxReviewLen caps a review in characters.
	MaxReviewLen = 2000
)

type Rating struct {
	UserID    string     `json:"user_id"`
	ContentID content.ID `json:"content_id"`
	Score     int        `json:"score"` // 1-10
	Review    string     `json:"review,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Summary struct {
	ContentID    content.ID `json:"content_id"`
	AverageScore float64    `json:"average_score"`
	TotalRatings int        `json:"total_ratings"`
}

type Store interface {
	// Upsert stores the score and review, replacing any earlier rating.
	Upsert(ctx context.Context, userID string, id content.ID, score int, review string) (Rating, error)
	GetUserRating(ctx context.Context, userID string, id content.ID) (Rating, bool, error)
	GetSummary(ctx context.Context, id content.ID) (Summary, error)
	// ListByUser returns the user's ratings, most recently updated first.
	ListByUser(ctx context.Context, userID string) ([]Rating, error)
}

// NewStore returns a Postgres store when pool is set, otherwise an in-memory
// store. Production refuses the in-memory fallback.
func NewStore(pool *pgxpool.Pool, isProd bool) (Store, error) {
	if pool != nil {
		return NewPostgresStore(pool), nil
	}
	if isProd {
		return nil, errors.New("production requires DATABASE_URL for ratings; in-memory store is not allowed")
	}
	return NewMemoryStore(), nil
}

// ValidateScore returns an InvalidArgument status for scores outside 1-10.
func ValidateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return grpcerr.InvalidArgument("ratings", "INVALID_SCORE", "score must be between 1 and 10",
			map[string]string{"score": "must be between 1 and 10"})
	}
	return nil
}

// NormalizeReview trims review and rejects text longer than MaxReviewLen.
func NormalizeReview(review string) (string, error) {
	review = strings.TrimSpace(review)
	if utf8.RuneCountInString(review) > MaxReviewLen {
		limit := strconv.Itoa(MaxReviewLen)
		return "", grpcerr.InvalidArgument("ratings", "REVIEW_TOO_LONG", "review must be at most "+limit+" characters",
			map[string]string{"review": "at most " + limit + " characters"})
	}
	return review, nil
}
