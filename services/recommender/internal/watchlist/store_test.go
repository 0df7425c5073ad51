package watchlist

import (
	"context"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/example/movie-platform/internal/platform/grpcerr"
	"github.com/example/movie-platform/services/recommender/internal/content"
)

func TestMemoryStore_ListMostRecentFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []content.ID{1, 2, 3} {
		if _, err := s.Add(ctx, "user-a", id); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	got, err := s.List(ctx, "user-a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !slices.Equal(got, []content.ID{3, 2, 1}) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestMemoryStore_AddIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, _ = s.Add(ctx, "user-a", 1)
	_, _ = s.Add(ctx, "user-a", 2)

	added, err := s.Add(ctx, "user-a", 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added {
		t.Fatal("re-adding should report false")
	}
	got, _ := s.List(ctx, "user-a")
	if !slices.Equal(got, []content.ID{2, 1}) {
		t.Fatalf("re-add must keep original position, got %v", got)
	}
}

func TestMemoryStore_RemoveMissingIsNotFound(t *testing.T) {
	s := NewMemoryStore()
	err := s.Remove(context.Background(), "user-a", 9)
	if !grpcerr.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if grpcerr.Reason(err) != "NOT_IN_WATCHLIST" {
		t.Fatalf("unexpected reason %q", grpcerr.Reason(err))
	}
}

func TestMemoryStore_RemoveAndContains(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, _ = s.Add(ctx, "user-a", 1)
	_, _ = s.Add(ctx, "user-a", 2)

	if ok, _ := s.Contains(ctx, "user-a", 1); !ok {
		t.Fatal("expected id 1 present")
	}
	if err := s.Remove(ctx, "user-a", 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ok, _ := s.Contains(ctx, "user-a", 1); ok {
		t.Fatal("expected id 1 removed")
	}
	got, _ := s.List(ctx, "user-a")
	if !slices.Equal(got, []content.ID{2}) {
		t.Fatalf("unexpected list %v", got)
	}
}

func TestMemoryStore_UsersAreIndependent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, _ = s.Add(ctx, "user-a", 1)

	got, err := s.List(ctx, "user-b")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
}

func TestMemoryStore_ListIsACopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, _ = s.Add(ctx, "user-a", 1)
	got, _ := s.List(ctx, "user-a")
	got[0] = 99
	again, _ := s.List(ctx, "user-a")
	if again[0] != 1 {
		t.Fatalf("store mutated through returned slice: %v", again)
	}
}

func TestNewStore_FallsBackToMemory(t *testing.T) {
	s, err := NewStore("", nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected MemoryStore, got %T", s)
	}
}

func TestNewStore_RejectsMemoryInProd(t *testing.T) {
	s, err := NewStore("", nil, true)
	if err == nil {
		t.Fatalf("expected error in production, got store %T", s)
	}
	if s != nil {
		t.Fatalf("expected nil store, got %T", s)
	}
}

func TestNewStore_PrefersRedis(t *testing.T) {
	s, err := NewStore("redis://localhost:6379/0", nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rs, ok := s.(*RedisStore)
	if !ok {
		t.Fatalf("expected RedisStore, got %T", s)
	}
	_ = rs.Close()
}

// TestRedisStore runs against a live server when REDIS_TEST_URL is set.
func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	s := NewRedisStoreFromURL(url)
	defer s.Close()
	ctx := context.Background()
	user := "test-" + time.Now().Format("150405.000000000")
	defer s.client.Del(ctx, key(user))

	clock := time.Unix(1700000000, 0)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for _, id := range []content.ID{5, 6, 7} {
		if _, err := s.Add(ctx, user, id); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if added, _ := s.Add(ctx, user, 5); added {
		t.Fatal("re-adding should report false")
	}
	got, err := s.List(ctx, user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !slices.Equal(got, []content.ID{7, 6, 5}) {
		t.Fatalf("unexpected order %v", got)
	}
	if err := s.Remove(ctx, user, 42); !grpcerr.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if ok, _ := s.Contains(ctx, user, 6); !ok {
		t.Fatal("expected 6 present")
	}
}

// TestStoreInterface ensures every implementation satisfies Store.
func TestStoreInterface(t *testing.T) {
	var _ Store = (*MemoryStore)(nil)
	var _ Store = (*PostgresStore)(nil)
	var _ Store = (*RedisStore)(nil)
}
