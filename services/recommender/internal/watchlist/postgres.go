package watchlist

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/movie-platform/services/recommender/internal/content"
)

// Schema creates the table backing PostgresStore.
const Schema = `CREATE TABLE IF NOT EXISTS watchlist (
	user_id  text        NOT NULL,
	movie_id bigint      NOT NULL CHECK (movie_id > 0),
	added_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, movie_id)
);
CREATE INDEX IF NOT EXISTS watchlist_user_added_idx ON watchlist (user_id, added_at DESC)`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) List(ctx context.Context, userID string) ([]content.ID, error) {
	const q = `SELECT movie_id FROM watchlist
	           WHERE user_id = $1
	           ORDER BY added_at DESC, movie_id DESC`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, errBackend(err.Error())
	}
	defer rows.Close()

	out := []content.ID{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errBackend(err.Error())
		}
		out = append(out, content.ID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, errBackend(err.Error())
	}
	return out, nil
}

func (s *PostgresStore) Add(ctx context.Context, userID string, id content.ID) (bool, error) {
	const q = `INSERT INTO watchlist (user_id, movie_id, added_at)
	           VALUES ($1, $2, now())
	           ON CONFLICT (user_id, movie_id) DO NOTHING`
	tag, err := s.pool.Exec(ctx, q, userID, int64(id))
	if err != nil {
		return false, errBackend(err.Error())
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Remove(ctx context.Context, userID string, id content.ID) error {
	const q = `DELETE FROM watchlist WHERE user_id = $1 AND movie_id = $2`
	tag, err := s.pool.Exec(ctx, q, userID, int64(id))
	if err != nil {
		return errBackend(err.Error())
	}
	if tag.RowsAffected() == 0 {
		return errNotInWatchlist(id)
	}
	return nil
}

func (s *PostgresStore) Contains(ctx context.Context, userID string, id content.ID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM watchlist WHERE user_id = $1 AND movie_id = $2)`
	var ok bool
	if err := s.pool.QueryRow(ctx, q, userID, int64(id)).Scan(&ok); err != nil {
		return false, errBackend(err.Error())
	}
	return ok, nil
}
