package ratings

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/movie-platform/services/recommender/internal/content"
)

type MemoryStore struct {
	mu      sync.RWMutex
	ratings map[content.ID]map[string]Rating // content_id -> user_id -> rating
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ratings: make(map[content.ID]map[string]Rating), now: time.Now}
}

func (s *MemoryStore) Upsert(_ context.Context, userID string, id content.ID, score int, review string) (Rating, error) {
	if err := ValidateScore(score); err != nil {
		return Rating{}, err
	}
	review, err := NormalizeReview(review)
	if err != nil {
		return Rating{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ratings[id] == nil {
		s.ratings[id] = make(map[string]Rating)
	}
	r := Rating{UserID: userID, ContentID: id, Score: score, Review: review, UpdatedAt: s.now().UTC()}
	s.ratings[id][userID] = r
	return r, nil
}

func (s *MemoryStore) GetUserRating(_ context.Context, userID string, id content.ID) (Rating, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.ratings[id][userID]
	return r, ok, nil
}

func (s *MemoryStore) GetSummary(_ context.Context, id content.ID) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := s.ratings[id]
	if len(users) == 0 {
		return Summary{ContentID: id}, nil
	}
	total := 0
	for _, r := range users {
		total += r.Score
	}
	return Summary{
		ContentID:    id,
		AverageScore: float64(total) / float64(len(users)),
		TotalRatings: len(users),
	}, nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Rating{}
	for _, users := range s.ratings {
		if r, ok := users[userID]; ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ContentID > out[j].ContentID
	})
	return out, nil
}
