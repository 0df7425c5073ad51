package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/grpcerr"
	"github.com/example/movie-platform/services/recommender/internal/content"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

// maxPage is the last page TMDB serves.
const maxPage = 500

// decodeJSON reads up to maxRequestBodyBytes from r.Body and decodes JSON into dst.
// On failure it writes a 400 response and returns false.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, rid string, dst *T) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(dst); err != nil {
		api.BadRequest(w, "INVALID_JSON", "Invalid JSON", rid, nil)
		return false
	}
	return true
}

func writeStatusError(w http.ResponseWriter, requestID string, err error) {
	grpcerr.WriteHTTP(w, requestID, err)
}

// requireUserID reads the authenticated user or writes a 401.
func requireUserID(w http.ResponseWriter, r *http.Request, rid string) (string, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok || uid == "" {
		api.Unauthorized(w, "AUTH_MISSING", "authentication required", rid)
		return "", false
	}
	return uid, true
}

// contentIDParam parses the content_id route parameter or writes a 400.
func contentIDParam(w http.ResponseWriter, r *http.Request, rid string) (content.ID, bool) {
	raw := chi.URLParam(r, "content_id")
	if raw == "" {
		api.BadRequest(w, "MISSING_ID", "content_id is required", rid, nil)
		return 0, false
	}
	id, err := content.ParseID(raw)
	if err != nil {
		api.BadRequest(w, "INVALID_ID", "content_id must be a positive integer", rid, map[string]any{"content_id": raw})
		return 0, false
	}
	return id, true
}

// pageParam parses ?page=, defaulting to 1.
func pageParam(w http.ResponseWriter, r *http.Request, rid string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("page"))
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 || page > maxPage {
		api.BadRequest(w, "INVALID_PAGE", "page must be between 1 and 500", rid, map[string]any{"page": raw})
		return 0, false
	}
	return page, true
}
