package ratings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/movie-platform/internal/platform/grpcerr"
	"github.com/example/movie-platform/services/recommender/internal/content"
)

// Schema creates the table backing PostgresStore.
const Schema = `CREATE TABLE IF NOT EXISTS ratings (
	user_id    text        NOT NULL,
	movie_id   bigint      NOT NULL CHECK (movie_id > 0),
	score      smallint    NOT NULL CHECK (score BETWEEN 1 AND 10),
	review     text        NOT NULL DEFAULT '',
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, movie_id)
);
ALTER TABLE ratings ADD COLUMN IF NOT EXISTS review text NOT NULL DEFAULT '';
CREATE INDEX IF NOT EXISTS ratings_movie_idx ON ratings (movie_id)`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Upsert(ctx context.Context, userID string, id content.ID, score int, review string) (Rating, error) {
	if err := ValidateScore(score); err != nil {
		return Rating{}, err
	}
	review, err := NormalizeReview(review)
	if err != nil {
		return Rating{}, err
	}
	const q = `INSERT INTO ratings (user_id, movie_id, score, review, updated_at)
	           VALUES ($1, $2, $3, $4, now())
	           ON CONFLICT (user_id, movie_id) DO UPDATE SET
	             score = EXCLUDED.score,
	             review = EXCLUDED.review,
	             updated_at = now()
	           RETURNING updated_at`
	r := Rating{UserID: userID, ContentID: id, Score: score, Review: review}
	if err := s.pool.QueryRow(ctx, q, userID, int64(id), score, review).Scan(&r.UpdatedAt); err != nil {
		return Rating{}, dbError(err)
	}
	return r, nil
}

func (s *PostgresStore) GetUserRating(ctx context.Context, userID string, id content.ID) (Rating, bool, error) {
	const q = `SELECT score, review, updated_at FROM ratings WHERE movie_id = $1 AND user_id = $2`
	r := Rating{UserID: userID, ContentID: id}
	err := s.pool.QueryRow(ctx, q, int64(id), userID).Scan(&r.Score, &r.Review, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rating{}, false, nil
	}
	if err != nil {
		return Rating{}, false, dbError(err)
	}
	return r, true, nil
}

func (s *PostgresStore) GetSummary(ctx context.Context, id content.ID) (Summary, error) {
	const q = `SELECT COALESCE(AVG(score), 0)::float8, COUNT(*)
	           FROM ratings WHERE movie_id = $1`
	var avg float64
	var total int
	if err := s.pool.QueryRow(ctx, q, int64(id)).Scan(&avg, &total); err != nil {
		return Summary{ContentID: id}, dbError(err)
	}
	return Summary{ContentID: id, AverageScore: avg, TotalRatings: total}, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Rating, error) {
	const q = `SELECT movie_id, score, review, updated_at FROM ratings
	           WHERE user_id = $1
	           ORDER BY updated_at DESC, movie_id DESC`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	out := []Rating{}
	for rows.Next() {
		var id int64
		r := Rating{UserID: userID}
		if err := rows.Scan(&id, &r.Score, &r.Review, &r.UpdatedAt); err != nil {
			return nil, dbError(err)
		}
		r.ContentID = content.ID(id)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return out, nil
}

func dbError(err error) error {
	return grpcerr.Internal("ratings", "RATINGS_DB_ERROR", err.Error())
}
