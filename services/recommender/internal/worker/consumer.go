// Package worker re-runs recommendation engines when a user's watchlist
// changes, whether the change arrives over NATS or from this process.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/platform/events"
	"github.com/example/movie-platform/services/recommender/internal/engine"
)

// Engines looks up live sessions without creating new ones.
type Engines interface {
	Lookup(userID string) (*engine.Engine, bool)
}

type Options struct {
	// MaxConcurrent bounds background runs. Defaults to 16.
	MaxConcurrent int
	// RunTimeout bounds a single background run. Defaults to 30s.
	RunTimeout time.Duration
	Logger     *zap.Logger
}

type Consumer struct {
	engines Engines
	log     *zap.Logger
	timeout time.Duration
	sem     chan struct{}
	wg      sync.WaitGroup
}

func NewConsumer(engines Engines, opts Options) *Consumer {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 16
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 30 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{
		engines: engines,
		log:     log.With(zap.String("component", "watchlist_consumer")),
		timeout: opts.RunTimeout,
		sem:     make(chan struct{}, opts.MaxConcurrent),
	}
}

// Subscribe attaches the consumer to watchlist.changed on nc. Background runs
// derive from ctx.
func (c *Consumer) Subscribe(ctx context.Context, nc *nats.Conn) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(events.SubjectWatchlistChanged, func(m *nats.Msg) {
		if err := c.Handle(ctx, m.Data); err != nil {
			c.log.Warn("dropping watchlist event", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("worker: subscribe %s: %w", events.SubjectWatchlistChanged, err)
	}
	c.log.Info("subscribed", zap.String("subject", events.SubjectWatchlistChanged))
	return sub, nil
}

// Handle decodes one watchlist.changed event and triggers a run for the user
// when a session is live.
func (c *Consumer) Handle(ctx context.Context, data []byte) error {
	ev, err := events.Decode(data)
	if err != nil {
		return fmt.Errorf("worker: invalid event: %w", err)
	}
	if ev.UserID == "" {
		return errors.New("worker: event without user_id")
	}
	action, _ := ev.Properties["action"].(string)
	if action == "" {
		action = "changed"
	}
	c.Trigger(ctx, ev.UserID, "watchlist_"+action)
	return nil
}

// Trigger starts a background run for userID and reports whether a session
// existed. Results are published through the engine; errors are logged.
func (c *Consumer) Trigger(ctx context.Context, userID, reason string) bool {
	e, ok := c.engines.Lookup(userID)
	if !ok {
		return false
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case c.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-c.sem }()

		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		res, err := e.Run(runCtx, engine.Trigger{Reason: reason})
		if err != nil {
			c.log.Warn("background run failed", zap.String("user_id", userID), zap.Error(err))
			return
		}
		c.log.Debug("background run finished",
			zap.String("user_id", userID),
			zap.Uint64("generation", res.Generation),
			zap.Bool("published", res.Published),
		)
	}()
	return true
}

// Wait blocks until every background run has returned.
func (c *Consumer) Wait() {
	c.wg.Wait()
}
