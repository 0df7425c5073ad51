package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/movie-platform/services/recommender/internal/engine"
	"github.com/example/movie-platform/services/recommender/internal/tmdb"
)

type TMDBConfig struct {
	APIKey   string
	BaseURL  string
	Language string
	RPS      float64
	Timeout  time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	Leeway   time.Duration
}

type RecommenderConfig struct {
	JWT         JWTConfig
	TMDB        TMDBConfig
	Policy      engine.Policy
	SessionTTL  time.Duration
	GRPCAddr    string
	RedisURL    string
	DatabaseURL string
	NATSURL     string
	RateLimit   RateLimitConfig
}

func LoadRecommender() (RecommenderConfig, error) {
	secret := getenv("JWT_SECRET")
	if secret == "" {
		return RecommenderConfig{}, errors.New("JWT_SECRET is required")
	}
	apiKey := getenv("TMDB_API_KEY")
	if apiKey == "" {
		return RecommenderConfig{}, errors.New("TMDB_API_KEY is required")
	}

	cfg := RecommenderConfig{
		JWT: JWTConfig{
			Secret:   []byte(secret),
			Issuer:   getenv("JWT_ISSUER"),
			Audience: getenv("JWT_AUDIENCE"),
		},
		TMDB: TMDBConfig{
			APIKey:   apiKey,
			BaseURL:  getenv("TMDB_BASE_URL"),
			Language: getenv("TMDB_LANGUAGE"),
		},
		GRPCAddr:    getenv("GRPC_ADDR"),
		RedisURL:    getenv("REDIS_URL"),
		DatabaseURL: getenv("DATABASE_URL"),
		NATSURL:     getenv("NATS_URL"),
	}
	if cfg.TMDB.BaseURL == "" {
		cfg.TMDB.BaseURL = tmdb.DefaultBaseURL
	}
	if cfg.TMDB.Language == "" {
		cfg.TMDB.Language = tmdb.DefaultLanguage
	}
	if cfg.GRPCAddr == "" {
		cfg.GRPCAddr = ":9090"
	}

	var err error
	if cfg.TMDB.RPS, err = envFloat("TMDB_RPS", 40); err != nil {
		return RecommenderConfig{}, err
	}
	if cfg.TMDB.Timeout, err = envDuration("TMDB_TIMEOUT", 10*time.Second); err != nil {
		return RecommenderConfig{}, err
	}
	if cfg.JWT.Leeway, err = envDuration("JWT_LEEWAY", 30*time.Second); err != nil {
		return RecommenderConfig{}, err
	}
	if cfg.SessionTTL, err = envDuration("SESSION_IDLE_TTL", 30*time.Minute); err != nil {
		return RecommenderConfig{}, err
	}

	d := engine.DefaultPolicy()
	if cfg.Policy.SeedLimit, err = envInt("RECS_SEED_LIMIT", d.SeedLimit); err != nil {
		return RecommenderConfig{}, err
	}
	if cfg.Policy.GenreSeedLimit, err = envInt("RECS_GENRE_SEED_LIMIT", d.GenreSeedLimit); err != nil {
		return RecommenderConfig{}, err
	}
	if cfg.Policy.MaxGenres, err = envInt("RECS_MAX_GENRES", d.MaxGenres); err != nil {
		return RecommenderConfig{}, err
	}
	if cfg.Policy.BucketSize, err = envInt("RECS_BUCKET_SIZE", d.BucketSize); err != nil {
		return RecommenderConfig{}, err
	}

	if cfg.RateLimit.RPS, err = envFloat("RATE_LIMIT_RPS", 10); err != nil {
		return RecommenderConfig{}, err
	}
	if cfg.RateLimit.Burst, err = envInt("RATE_LIMIT_BURST", 20); err != nil {
		return RecommenderConfig{}, err
	}
	return cfg, nil
}

func getenv(k string) string {
	return strings.TrimSpace(os.Getenv(k))
}

func envInt(key string, fallback int) (int, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", key, v)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}
