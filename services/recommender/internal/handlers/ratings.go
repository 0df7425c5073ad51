package handlers

import (
	"net/http"

	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/httpserver"
	"github.com/example/movie-platform/services/recommender/internal/ratings"
)

type rateReq struct {
	Score  int    `json:"score"`
	Review string `json:"review"`
}

// GetRating returns the aggregate rating for a movie, including the caller's
// own score when they rated it.
func GetRating(store ratings.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := requireUserID(w, r, rid)
		if !ok {
			return
		}
		id, ok := contentIDParam(w, r, rid)
		if !ok {
			return
		}

		summary, err := store.GetSummary(r.Context(), id)
		if err != nil {
			writeStatusError(w, rid, err)
			return
		}
		out := map[string]any{
			"content_id": id,
			"average":    summary.AverageScore,
			"count":      summary.TotalRatings,
		}
		own, found, err := store.GetUserRating(r.Context(), uid, id)
		if err != nil {
			writeStatusError(w, rid, err)
			return
		}
		if found {
			out["user_score"] = own.Score
			if own.Review != "" {
				out["user_review"] = own.Review
			}
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// RateMovie submits or updates the caller's 1-10 score and optional review
// for a movie.
func RateMovie(store ratings.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := requireUserID(w, r, rid)
		if !ok {
			return
		}
		id, ok := contentIDParam(w, r, rid)
		if !ok {
			return
		}

		var req rateReq
		if !decodeJSON(w, r, rid, &req) {
			return
		}

		saved, err := store.Upsert(r.Context(), uid, id, req.Score, req.Review)
		if err != nil {
			writeStatusError(w, rid, err)
			return
		}
		summary, err := store.GetSummary(r.Context(), id)
		if err != nil {
			writeStatusError(w, rid, err)
			return
		}
		out := map[string]any{
			"content_id": id,
			"user_score": saved.Score,
			"average":    summary.AverageScore,
			"count":      summary.TotalRatings,
		}
		if saved.Review != "" {
			out["user_review"] = saved.Review
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// ListMyRatings handles GET /v1/me/ratings.
func ListMyRatings(store ratings.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := requireUserID(w, r, rid)
		if !ok {
			return
		}
		items, err := store.ListByUser(r.Context(), uid)
		if err != nil {
			writeStatusError(w, rid, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
	}
}
