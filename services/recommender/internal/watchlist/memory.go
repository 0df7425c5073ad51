package watchlist

import (
	"context"
	"slices"
	"sync"

	"github.com/example/movie-platform/services/recommender/internal/content"
)

// MemoryStore keeps watchlists in process memory.
// WARNING: state is lost on restart and is not shared between instances.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]content.ID // user_id -> ids in insertion order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]content.ID)}
}

func (s *MemoryStore) List(_ context.Context, userID string) ([]content.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.items[userID]
	out := make([]content.ID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out, nil
}

func (s *MemoryStore) Add(_ context.Context, userID string, id content.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.items[userID], id) {
		return false, nil
	}
	s.items[userID] = append(s.items[userID], id)
	return true, nil
}

func (s *MemoryStore) Remove(_ context.Context, userID string, id content.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.items[userID]
	i := slices.Index(ids, id)
	if i < 0 {
		return errNotInWatchlist(id)
	}
	ids = slices.Delete(ids, i, i+1)
	if len(ids) == 0 {
		delete(s.items, userID)
		return nil
	}
	s.items[userID] = ids
	return nil
}

func (s *MemoryStore) Contains(_ context.Context, userID string, id content.ID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.items[userID], id), nil
}
