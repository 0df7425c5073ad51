package watchlist

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/movie-platform/services/recommender/internal/content"
)

// RedisStore keeps one sorted set per user, scored by added-at in
// milliseconds.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// NewRedisStoreFromURL accepts a redis:// URL or a bare host:port.
func NewRedisStoreFromURL(dsn string) *RedisStore {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		opts = &redis.Options{Addr: dsn}
	}
	return NewRedisStore(redis.NewClient(opts))
}

func key(userID string) string {
	return "watchlist:" + userID
}

func (s *RedisStore) List(ctx context.Context, userID string) ([]content.ID, error) {
	members, err := s.client.ZRevRange(ctx, key(userID), 0, -1).Result()
	if err != nil {
		return nil, errBackend(err.Error())
	}
	out := make([]content.ID, 0, len(members))
	for _, m := range members {
		id, err := content.ParseID(m)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *RedisStore) Add(ctx context.Context, userID string, id content.ID) (bool, error) {
	n, err := s.client.ZAddNX(ctx, key(userID), redis.Z{
		Score:  float64(s.now().UnixMilli()),
		Member: id.String(),
	}).Result()
	if err != nil {
		return false, errBackend(err.Error())
	}
	return n == 1, nil
}

func (s *RedisStore) Remove(ctx context.Context, userID string, id content.ID) error {
	n, err := s.client.ZRem(ctx, key(userID), id.String()).Result()
	if err != nil {
		return errBackend(err.Error())
	}
	if n == 0 {
		return errNotInWatchlist(id)
	}
	return nil
}

func (s *RedisStore) Contains(ctx context.Context, userID string, id content.ID) (bool, error) {
	_, err := s.client.ZScore(ctx, key(userID), id.String()).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errBackend(err.Error())
	}
	return true, nil
}

// Ping checks connectivity; used by readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
