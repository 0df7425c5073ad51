package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TMDB_API_KEY", "key")
}

func TestLoadRecommender_Defaults(t *testing.T) {
	setRequired(t)
	cfg, err := LoadRecommender()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(cfg.JWT.Secret) != "secret" || cfg.TMDB.APIKey != "key" {
		t.Fatalf("unexpected secrets %+v", cfg)
	}
	if cfg.JWT.Issuer != "" || cfg.JWT.Audience != "" || cfg.JWT.Leeway != 30*time.Second {
		t.Fatalf("unexpected jwt defaults %+v", cfg.JWT)
	}
	if cfg.TMDB.BaseURL != "https://api.themoviedb.org/3" || cfg.TMDB.Language != "es-ES" {
		t.Fatalf("unexpected tmdb defaults %+v", cfg.TMDB)
	}
	if cfg.TMDB.RPS != 40 || cfg.TMDB.Timeout != 10*time.Second {
		t.Fatalf("unexpected tmdb limits %+v", cfg.TMDB)
	}
	p := cfg.Policy
	if p.SeedLimit != 5 || p.GenreSeedLimit != 3 || p.MaxGenres != 3 || p.BucketSize != 20 {
		t.Fatalf("unexpected policy %+v", p)
	}
	if cfg.SessionTTL != 30*time.Minute || cfg.GRPCAddr != ":9090" {
		t.Fatalf("unexpected session/grpc defaults %+v", cfg)
	}
	if cfg.RateLimit.RPS != 10 || cfg.RateLimit.Burst != 20 {
		t.Fatalf("unexpected rate limit %+v", cfg.RateLimit)
	}
}

func TestLoadRecommender_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("RECS_SEED_LIMIT", "8")
	t.Setenv("RECS_BUCKET_SIZE", "10")
	t.Setenv("SESSION_IDLE_TTL", "5m")
	t.Setenv("TMDB_LANGUAGE", "en-US")
	t.Setenv("REDIS_URL", " redis://cache:6379/1 ")
	t.Setenv("JWT_ISSUER", "identity.movies")
	t.Setenv("JWT_LEEWAY", "5s")

	cfg, err := LoadRecommender()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Policy.SeedLimit != 8 || cfg.Policy.BucketSize != 10 {
		t.Fatalf("unexpected policy %+v", cfg.Policy)
	}
	if cfg.SessionTTL != 5*time.Minute || cfg.TMDB.Language != "en-US" {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.RedisURL != "redis://cache:6379/1" {
		t.Fatalf("expected trimmed redis url, got %q", cfg.RedisURL)
	}
	if cfg.JWT.Issuer != "identity.movies" || cfg.JWT.Leeway != 5*time.Second {
		t.Fatalf("unexpected jwt overrides %+v", cfg.JWT)
	}
}

func TestLoadRecommender_RequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("TMDB_API_KEY", "key")
	if _, err := LoadRecommender(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TMDB_API_KEY", "")
	if _, err := LoadRecommender(); err == nil {
		t.Fatal("expected error without TMDB_API_KEY")
	}
}

func TestLoadRecommender_RejectsInvalidNumbers(t *testing.T) {
	setRequired(t)
	t.Setenv("RECS_SEED_LIMIT", "-1")
	if _, err := LoadRecommender(); err == nil {
		t.Fatal("expected error for negative seed limit")
	}
	t.Setenv("RECS_SEED_LIMIT", "")
	t.Setenv("SESSION_IDLE_TTL", "forever")
	if _, err := LoadRecommender(); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}
