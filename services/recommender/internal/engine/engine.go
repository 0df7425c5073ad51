// Package engine aggregates recommendations for one user session.
//
// A run fans out to the content catalog for the first few watchlist items,
// merges the results into three ranked buckets and publishes them. Every call
// to Run takes a new generation; a run only publishes while its generation is
// still the newest, so the last invoked run always wins regardless of which
// finishes first. Older runs are not aborted, their results are dropped.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/movie-platform/services/recommender/internal/content"
)

// ErrWatchlistUnavailable is returned when the watchlist snapshot could not be
// read. It is the only error Run reports.
var ErrWatchlistUnavailable = errors.New("watchlist unavailable")

// Bucket names as exposed to clients.
const (
	BucketBasedOnWatchlist = "basedOnWatchlist"
	BucketSimilarMovies    = "similarMovies"
	BucketPopularInGenres  = "popularInGenres"
)

const (
	sourceRecommendations = "recommendations"
	sourceSimilar         = "similar"
	sourceDetails         = "details"
	sourceDiscover        = "discover"
)

// Policy bounds how much of the watchlist seeds a run.
type Policy struct {
	SeedLimit      int // watchlist items used for recommendations and similar titles
	GenreSeedLimit int // watchlist items whose genres feed discovery
	MaxGenres      int // distinct genres passed to discovery
	BucketSize     int // cap per bucket
}

func DefaultPolicy() Policy {
	return Policy{SeedLimit: 5, GenreSeedLimit: 3, MaxGenres: 3, BucketSize: 20}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.SeedLimit <= 0 {
		p.SeedLimit = d.SeedLimit
	}
	if p.GenreSeedLimit <= 0 {
		p.GenreSeedLimit = d.GenreSeedLimit
	}
	if p.MaxGenres <= 0 {
		p.MaxGenres = d.MaxGenres
	}
	if p.BucketSize <= 0 {
		p.BucketSize = d.BucketSize
	}
	return p
}

// Output is one published generation of recommendations.
type Output struct {
	Generation       uint64            `json:"generation"`
	UserID           string            `json:"user_id"`
	WatchlistSize    int               `json:"watchlist_size"`
	BasedOnWatchlist []content.Summary `json:"basedOnWatchlist"`
	SimilarMovies    []content.Summary `json:"similarMovies"`
	PopularInGenres  []content.Summary `json:"popularInGenres"`
	PublishedAt      time.Time         `json:"published_at"`
}

// Buckets returns the three buckets keyed by name.
func (o Output) Buckets() map[string][]content.Summary {
	return map[string][]content.Summary{
		BucketBasedOnWatchlist: o.BasedOnWatchlist,
		BucketSimilarMovies:    o.SimilarMovies,
		BucketPopularInGenres:  o.PopularInGenres,
	}
}

// Trigger describes why a run was started and optionally carries the
// watchlist snapshot to use instead of reading it from the provider.
type Trigger struct {
	Reason   string
	snapshot []content.ID
	supplied bool
}

// WithSnapshot returns a trigger that runs against ids instead of the provider.
func WithSnapshot(reason string, ids []content.ID) Trigger {
	snap := make([]content.ID, len(ids))
	copy(snap, ids)
	return Trigger{Reason: reason, snapshot: snap, supplied: true}
}

// Outcome reports what happened to one run. Published is false when a newer
// run was invoked first, the engine was closed or ctx was cancelled; Output
// is then empty.
type Outcome struct {
	Generation uint64
	Published  bool
	Output     Output
}

// Options wires an Engine.
type Options struct {
	UserID    string
	Content   content.Service
	Watchlist content.WatchlistProvider
	Policy    Policy
	Logger    *zap.Logger
	// OnPublish is called with every published output, in generation order.
	// It runs while the engine holds its publish lock and must not call back
	// into the engine.
	OnPublish func(Output)
}

// Engine is owned by a single user session and is safe for concurrent use.
type Engine struct {
	userID    string
	content   content.Service
	watchlist content.WatchlistProvider
	policy    Policy
	log       *zap.Logger
	onPublish func(Output)
	now       func() time.Time

	generation atomic.Uint64

	mu      sync.Mutex
	current *Output
	closed  bool
}

func New(opts Options) (*Engine, error) {
	if opts.Content == nil {
		return nil, errors.New("engine: content service is required")
	}
	if opts.Watchlist == nil {
		return nil, errors.New("engine: watchlist provider is required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		userID:    opts.UserID,
		content:   opts.Content,
		watchlist: opts.Watchlist,
		policy:    opts.Policy.normalized(),
		log:       log.With(zap.String("user_id", opts.UserID)),
		onPublish: opts.OnPublish,
		now:       time.Now,
	}, nil
}

// Run aggregates recommendations and publishes them unless superseded.
// Per-item catalog failures only shrink the affected bucket.
func (e *Engine) Run(ctx context.Context, trig Trigger) (Outcome, error) {
	gen := e.generation.Add(1)
	start := time.Now()
	log := e.log.With(zap.Uint64("generation", gen), zap.String("reason", trig.Reason))

	snapshot, err := e.snapshot(ctx, trig)
	if err != nil {
		if e.abandoned(ctx, gen) {
			return e.discard(ctx, gen, start, log), nil
		}
		runsTotal.WithLabelValues(outcomeWatchlistUnavailable).Inc()
		log.Warn("watchlist read failed", zap.Error(err))
		return Outcome{Generation: gen}, fmt.Errorf("%w: %w", ErrWatchlistUnavailable, err)
	}
	if e.abandoned(ctx, gen) {
		return e.discard(ctx, gen, start, log), nil
	}

	out := Output{
		Generation:       gen,
		UserID:           e.userID,
		WatchlistSize:    len(snapshot),
		BasedOnWatchlist: []content.Summary{},
		SimilarMovies:    []content.Summary{},
		PopularInGenres:  []content.Summary{},
	}
	if len(snapshot) > 0 {
		recs, similar, genres := e.gather(ctx, snapshot, log)
		if e.abandoned(ctx, gen) {
			return e.discard(ctx, gen, start, log), nil
		}
		discovered := e.discover(ctx, genres, log)

		exclude := make(map[content.ID]struct{}, len(snapshot))
		for _, id := range snapshot {
			exclude[id] = struct{}{}
		}
		out.BasedOnWatchlist = rank(recs, exclude, e.policy.BucketSize)
		out.SimilarMovies = rank(similar, exclude, e.policy.BucketSize)
		out.PopularInGenres = rank([][]content.Summary{discovered}, exclude, e.policy.BucketSize)
	}

	out, ok := e.publish(ctx, gen, out)
	if !ok {
		return e.discard(ctx, gen, start, log), nil
	}
	runsTotal.WithLabelValues(outcomePublished).Inc()
	runDuration.Observe(time.Since(start).Seconds())
	bucketSize.WithLabelValues(BucketBasedOnWatchlist).Observe(float64(len(out.BasedOnWatchlist)))
	bucketSize.WithLabelValues(BucketSimilarMovies).Observe(float64(len(out.SimilarMovies)))
	bucketSize.WithLabelValues(BucketPopularInGenres).Observe(float64(len(out.PopularInGenres)))
	log.Info("recommendations published",
		zap.Int("watchlist_size", out.WatchlistSize),
		zap.Int(BucketBasedOnWatchlist, len(out.BasedOnWatchlist)),
		zap.Int(BucketSimilarMovies, len(out.SimilarMovies)),
		zap.Int(BucketPopularInGenres, len(out.PopularInGenres)),
		zap.Duration("took", time.Since(start)),
	)
	return Outcome{Generation: gen, Published: true, Output: out}, nil
}

// Current returns the most recently published output.
func (e *Engine) Current() (Output, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return Output{}, false
	}
	return *e.current, true
}

// Generation returns the generation of the most recently invoked run.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

// Close tears the engine down. Runs still in flight finish their catalog calls
// but never publish.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

// Closed reports whether Close has been called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) snapshot(ctx context.Context, trig Trigger) ([]content.ID, error) {
	if trig.supplied {
		return trig.snapshot, nil
	}
	ids, err := e.watchlist.List(ctx, e.userID)
	if err != nil {
		return nil, err
	}
	snap := make([]content.ID, len(ids))
	copy(snap, ids)
	return snap, nil
}

// gather fans out to the catalog: recommendations and similar titles for the
// first SeedLimit items, details for the first GenreSeedLimit items. It
// returns per-seed result lists in snapshot order and the genre union.
func (e *Engine) gather(ctx context.Context, snapshot []content.ID, log *zap.Logger) (recs, similar [][]content.Summary, genres []int) {
	seeds := head(snapshot, e.policy.SeedLimit)
	genreSeeds := head(snapshot, e.policy.GenreSeedLimit)

	recs = make([][]content.Summary, len(seeds))
	similar = make([][]content.Summary, len(seeds))
	details := make([]*content.Summary, len(genreSeeds))

	var g errgroup.Group
	for i, id := range seeds {
		g.Go(func() error {
			recs[i] = e.fetchList(ctx, log, sourceRecommendations, id, e.content.RecommendationsFor)
			return nil
		})
		g.Go(func() error {
			similar[i] = e.fetchList(ctx, log, sourceSimilar, id, e.content.SimilarTo)
			return nil
		})
	}
	for i, id := range genreSeeds {
		g.Go(func() error {
			d, err := e.content.Details(ctx, id)
			if err != nil {
				e.sourceFailed(log, sourceDetails, id, err)
				return nil
			}
			details[i] = &d
			return nil
		})
	}
	_ = g.Wait()

	return recs, similar, unionGenres(details, e.policy.MaxGenres)
}

func (e *Engine) discover(ctx context.Context, genres []int, log *zap.Logger) []content.Summary {
	if len(genres) == 0 {
		return nil
	}
	items, err := e.content.Discover(ctx, genres)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			sourceFailures.WithLabelValues(sourceDiscover).Inc()
			log.Warn("content source failed", zap.String("source", sourceDiscover), zap.Ints("genre_ids", genres), zap.Error(err))
		}
		return nil
	}
	return items
}

func (e *Engine) fetchList(ctx context.Context, log *zap.Logger, source string, id content.ID, fn func(context.Context, content.ID) ([]content.Summary, error)) []content.Summary {
	items, err := fn(ctx, id)
	if err != nil {
		e.sourceFailed(log, source, id, err)
		return nil
	}
	return items
}

// sourceFailed records a per-item failure. Cancellation means the caller went
// away, not that the catalog misbehaved, so it is not reported.
func (e *Engine) sourceFailed(log *zap.Logger, source string, id content.ID, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	sourceFailures.WithLabelValues(source).Inc()
	log.Warn("content source failed", zap.String("source", source), zap.Int64("content_id", int64(id)), zap.Error(err))
}

func (e *Engine) stale(gen uint64) bool {
	return e.generation.Load() != gen || e.Closed()
}

// abandoned reports whether the run must stop without publishing: a newer
// run started, the engine was closed, or the caller cancelled ctx. Results
// gathered under a cancelled ctx are empty and must not replace published output.
func (e *Engine) abandoned(ctx context.Context, gen uint64) bool {
	return ctx.Err() != nil || e.stale(gen)
}

// publish stores out as current if gen is still the newest generation, the
// engine is open and ctx is live.
func (e *Engine) publish(ctx context.Context, gen uint64, out Output) (Output, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.generation.Load() != gen || ctx.Err() != nil {
		return Output{}, false
	}
	out.PublishedAt = e.now().UTC()
	e.current = &out
	if e.onPublish != nil {
		e.onPublish(out)
	}
	return out, true
}

func (e *Engine) discard(ctx context.Context, gen uint64, start time.Time, log *zap.Logger) Outcome {
	if ctx.Err() != nil && !e.stale(gen) {
		runsTotal.WithLabelValues(outcomeCancelled).Inc()
		log.Debug("run cancelled", zap.Error(ctx.Err()), zap.Duration("took", time.Since(start)))
		return Outcome{Generation: gen}
	}
	runsTotal.WithLabelValues(outcomeSuperseded).Inc()
	log.Debug("run superseded", zap.Uint64("latest_generation", e.generation.Load()), zap.Duration("took", time.Since(start)))
	return Outcome{Generation: gen}
}

func head(ids []content.ID, n int) []content.ID {
	if len(ids) > n {
		return ids[:n]
	}
	return ids
}
