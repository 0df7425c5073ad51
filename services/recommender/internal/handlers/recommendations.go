package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/httpserver"
	"github.com/example/movie-platform/services/recommender/internal/content"
	"github.com/example/movie-platform/services/recommender/internal/engine"
	"github.com/example/movie-platform/services/recommender/internal/sessions"
)

// Sessions hands out the per-user engine.
type Sessions interface {
	Get(userID string) (*engine.Engine, error)
}

type recommendationsResponse struct {
	Generation     uint64                       `json:"generation"`
	Stale          bool                         `json:"stale,omitempty"`
	WatchlistCount int                          `json:"watchlist_count"`
	Buckets        map[string][]content.Summary `json:"buckets"`
	PublishedAt    time.Time                    `json:"published_at"`
}

func toResponse(out engine.Output, stale bool) recommendationsResponse {
	return recommendationsResponse{
		Generation:     out.Generation,
		Stale:          stale,
		WatchlistCount: out.WatchlistSize,
		Buckets:        out.Buckets(),
		PublishedAt:    out.PublishedAt,
	}
}

// Recommendations runs the caller's engine and returns the three buckets.
// When a newer run overtook this one the last published output is returned
// with stale=true, or 202 if nothing was published yet.
func Recommendations(s Sessions, reason string, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := requireUserID(w, r, rid)
		if !ok {
			return
		}

		e, err := s.Get(uid)
		if err != nil {
			if errors.Is(err, sessions.ErrClosed) {
				api.Unavailable(w, "SHUTTING_DOWN", "service is shutting down", rid)
				return
			}
			log.Error("session lookup failed", zap.String("user_id", uid), zap.Error(err))
			api.Internal(w, rid)
			return
		}

		res, err := e.Run(r.Context(), engine.Trigger{Reason: reason})
		if err != nil {
			if errors.Is(err, engine.ErrWatchlistUnavailable) {
				api.Unavailable(w, "WATCHLIST_UNAVAILABLE", "watchlist could not be loaded", rid)
				return
			}
			log.Error("recommendation run failed", zap.String("user_id", uid), zap.Error(err))
			api.Internal(w, rid)
			return
		}
		if res.Published {
			api.WriteJSON(w, http.StatusOK, toResponse(res.Output, false))
			return
		}

		if cur, ok := e.Current(); ok {
			api.WriteJSON(w, http.StatusOK, toResponse(cur, true))
			return
		}
		api.WriteJSON(w, http.StatusAccepted, map[string]any{
			"generation": res.Generation,
			"status":     "pending",
		})
	}
}
