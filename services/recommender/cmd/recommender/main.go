package main

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/config"
	"github.com/example/movie-platform/internal/platform/db"
	"github.com/example/movie-platform/internal/platform/events"
	"github.com/example/movie-platform/internal/platform/grpchealth"
	"github.com/example/movie-platform/internal/platform/httpserver"
	"github.com/example/movie-platform/internal/platform/logging"
	"github.com/example/movie-platform/internal/platform/natsconn"
	"github.com/example/movie-platform/internal/platform/run"
	recconfig "github.com/example/movie-platform/services/recommender/internal/config"
	"github.com/example/movie-platform/services/recommender/internal/content"
	"github.com/example/movie-platform/services/recommender/internal/engine"
	"github.com/example/movie-platform/services/recommender/internal/handlers"
	rechttp "github.com/example/movie-platform/services/recommender/internal/http"
	"github.com/example/movie-platform/services/recommender/internal/ratings"
	"github.com/example/movie-platform/services/recommender/internal/sessions"
	"github.com/example/movie-platform/services/recommender/internal/tmdb"
	"github.com/example/movie-platform/services/recommender/internal/watchlist"
	"github.com/example/movie-platform/services/recommender/internal/worker"
)

const housekeepingInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	recCfg, err := recconfig.LoadRecommender()
	if err != nil {
		log.Error("load recommender config", zap.Error(err))
		run.Exit(1)
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	pool := openPostgres(rootCtx, recCfg.DatabaseURL, cfg.IsProd(), log)

	wl, err := watchlist.NewStore(recCfg.RedisURL, pool, cfg.IsProd())
	if err != nil {
		log.Error("init watchlist store", zap.Error(err))
		run.Exit(1)
	}
	log.Info("watchlist store ready", zap.String("backend", backendName(wl)))

	rs, err := ratings.NewStore(pool, cfg.IsProd())
	if err != nil {
		log.Error("init ratings store", zap.Error(err))
		run.Exit(1)
	}

	// NATS is optional: without it watchlist changes only refresh sessions
	// held by this instance.
	var nc *nats.Conn
	var conn events.Conn
	if recCfg.NATSURL != "" {
		nc, err = natsconn.Connect(natsconn.Options{URL: recCfg.NATSURL, Name: cfg.ServiceName, Logger: log})
		if err != nil {
			log.Error("nats connect", zap.Error(err))
		} else {
			conn = nc
		}
	}
	publisher := events.New(conn, log)

	catalog := tmdb.New(tmdb.Options{
		BaseURL:  recCfg.TMDB.BaseURL,
		APIKey:   recCfg.TMDB.APIKey,
		Language: recCfg.TMDB.Language,
		RPS:      recCfg.TMDB.RPS,
		Timeout:  recCfg.TMDB.Timeout,
		Logger:   log,
	})

	registry, err := sessions.New(sessions.Options{
		IdleTTL: recCfg.SessionTTL,
		Logger:  log,
		Factory: func(userID string) (*engine.Engine, error) {
			return engine.New(engine.Options{
				UserID:    userID,
				Content:   catalog,
				Watchlist: wl,
				Policy:    recCfg.Policy,
				Logger:    log,
				OnPublish: func(out engine.Output) {
					publisher.Publish(events.SubjectRecommendationsPublished, "recommendations_published", out.UserID, map[string]any{
						"generation":                 out.Generation,
						"watchlist_size":             out.WatchlistSize,
						engine.BucketBasedOnWatchlist: len(out.BasedOnWatchlist),
						engine.BucketSimilarMovies:    len(out.SimilarMovies),
						engine.BucketPopularInGenres:  len(out.PopularInGenres),
					})
				},
			})
		},
	})
	if err != nil {
		log.Error("init sessions", zap.Error(err))
		run.Exit(1)
	}

	consumer := worker.NewConsumer(registry, worker.Options{Logger: log})
	notify := func(_ context.Context, userID string, id content.ID, action string) {
		if publisher.Enabled() {
			publisher.Publish(events.SubjectWatchlistChanged, "watchlist_"+action, userID, map[string]any{
				"content_id": int64(id),
				"action":     action,
			})
			return
		}
		consumer.Trigger(rootCtx, userID, "watchlist_"+action)
	}

	limiter := rechttp.NewRateLimiter(recCfg.RateLimit.RPS, recCfg.RateLimit.Burst)

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{ReadyFunc: readiness(pool, wl), Logger: log})
	handlers.Mount(r, handlers.Deps{
		Verifier: auth.JWTVerifier{
			Secret:   recCfg.JWT.Secret,
			Issuer:   recCfg.JWT.Issuer,
			Audience: recCfg.JWT.Audience,
			Leeway:   recCfg.JWT.Leeway,
		},
		Sessions:  registry,
		Watchlist: wl,
		Ratings:   rs,
		Catalog:   catalog,
		Notify:    notify,
		RateLimit: limiter.Middleware,
		Logger:    log,
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})
	health := grpchealth.New(recCfg.GRPCAddr, cfg.ServiceName, log)

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		if nc != nil {
			sub, err := consumer.Subscribe(rootCtx, nc)
			if err != nil {
				log.Error("watchlist consumer", zap.Error(err))
			} else {
				defer func() { _ = sub.Unsubscribe() }()
			}
		}

		go registry.Run(ctx, housekeepingInterval)
		go pruneLimiter(ctx, limiter)
		go func() {
			if err := health.Start(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.Error("grpc health server", zap.Error(err))
			}
		}()
		return srv.Start()
	})

	health.SetServing(false)
	runner.Graceful("http", srv.Shutdown)
	runner.Graceful("grpc", health.Shutdown)
	cancelRoot()
	registry.Close()
	consumer.Wait()
	if err := natsconn.Drain(nc, 5*time.Second); err != nil {
		log.Warn("nats drain", zap.Error(err))
	}
	if c, ok := wl.(io.Closer); ok {
		_ = c.Close()
	}
	if pool != nil {
		pool.Close()
	}

	log.Info("exit", zap.Int("code", code))
	_ = log.Sync()
	run.Exit(code)
}

// openPostgres returns nil when no database is configured. In production an
// unreachable database is fatal; elsewhere the in-memory stores take over.
func openPostgres(ctx context.Context, dsn string, isProd bool, log *zap.Logger) *pgxpool.Pool {
	if dsn == "" {
		if !isProd {
			log.Warn("DATABASE_URL not set, using in-memory stores (development only)")
		}
		return nil
	}
	pool, err := db.Open(ctx, dsn)
	if err != nil {
		if isProd {
			log.Error("postgres is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			run.Exit(1)
		}
		log.Warn("postgres unavailable, falling back to in-memory stores", zap.Error(err))
		return nil
	}
	if err := db.Migrate(ctx, pool, watchlist.Schema, ratings.Schema); err != nil {
		log.Error("apply schema", zap.Error(err))
		pool.Close()
		_ = log.Sync()
		run.Exit(1)
	}
	log.Info("postgres connected")
	return pool
}

func readiness(pool *pgxpool.Pool, wl watchlist.Store) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
		}
		if rs, ok := wl.(*watchlist.RedisStore); ok {
			return rs.Ping(ctx)
		}
		return nil
	}
}

func pruneLimiter(ctx context.Context, rl *rechttp.RateLimiter) {
	t := time.NewTicker(housekeepingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rl.Prune()
		}
	}
}

func backendName(s watchlist.Store) string {
	switch s.(type) {
	case *watchlist.RedisStore:
		return "redis"
	case *watchlist.PostgresStore:
		return "postgres"
	default:
		return "memory"
	}
}
