// Package sessions keeps one recommendation engine per active user and tears
// idle ones down.
package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/movie-platform/services/recommender/internal/engine"
)

var ErrClosed = errors.New("sessions: registry closed")

// Factory builds the engine for a new session.
type Factory func(userID string) (*engine.Engine, error)

type Options struct {
	// IdleTTL is how long a session survives without Get calls. Defaults to 30m.
	IdleTTL time.Duration
	Factory Factory
	Logger  *zap.Logger
}

type session struct {
	engine   *engine.Engine
	lastSeen time.Time
}

// Registry is an in-memory map of user sessions with idle expiry.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	closed   bool

	ttl     time.Duration
	factory Factory
	log     *zap.Logger
	now     func() time.Time
}

func New(opts Options) (*Registry, error) {
	if opts.Factory == nil {
		return nil, errors.New("sessions: factory is required")
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*session),
		ttl:      opts.IdleTTL,
		factory:  opts.Factory,
		log:      log,
		now:      time.Now,
	}, nil
}

// Get returns the user's engine, creating it on first use, and refreshes the
// session's idle deadline. An expired session is torn down and replaced.
func (r *Registry) Get(userID string) (*engine.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	now := r.now()
	if s, ok := r.sessions[userID]; ok {
		if now.Sub(s.lastSeen) <= r.ttl {
			s.lastSeen = now
			return s.engine, nil
		}
		r.evictLocked(userID, s, "expired")
	}

	e, err := r.factory(userID)
	if err != nil {
		return nil, err
	}
	r.sessions[userID] = &session{engine: e, lastSeen: now}
	activeSessions.Inc()
	r.log.Debug("session started", zap.String("user_id", userID))
	return e, nil
}

// Lookup returns the user's engine without creating a session or refreshing
// its deadline. Expired sessions are not returned.
func (r *Registry) Lookup(userID string) (*engine.Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if !ok || r.now().Sub(s.lastSeen) > r.ttl {
		return nil, false
	}
	return s.engine, true
}

// Evict closes and removes the user's session.
func (r *Registry) Evict(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if !ok {
		return false
	}
	r.evictLocked(userID, s, "evicted")
	return true
}

// Sweep tears down every session idle for longer than the TTL and returns
// how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	n := 0
	for uid, s := range r.sessions {
		if now.Sub(s.lastSeen) > r.ttl {
			r.evictLocked(uid, s, "expired")
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				r.log.Info("idle sessions swept", zap.Int("count", n))
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close tears down every session; later Get calls fail with ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for uid, s := range r.sessions {
		r.evictLocked(uid, s, "shutdown")
	}
	r.closed = true
}

func (r *Registry) evictLocked(userID string, s *session, reason string) {
	s.engine.Close()
	delete(r.sessions, userID)
	activeSessions.Dec()
	evictionsTotal.WithLabelValues(reason).Inc()
	r.log.Debug("session closed", zap.String("user_id", userID), zap.String("reason", reason))
}
