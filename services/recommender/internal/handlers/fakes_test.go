package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/services/recommender/internal/content"
	"github.com/example/movie-platform/services/recommender/internal/engine"
	"github.com/example/movie-platform/services/recommender/internal/tmdb"
)

// stubCatalog serves both the HTTP catalog and the engine's content port.
type stubCatalog struct {
	mu      sync.Mutex
	movies  map[content.ID]content.Summary
	recs    map[content.ID][]content.Summary
	pages   map[string]tmdb.Page
	err     error
	gate    chan struct{}
	entered chan struct{}
	queries []string
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		movies: map[content.ID]content.Summary{},
		recs:   map[content.ID][]content.Summary{},
		pages:  map[string]tmdb.Page{},
	}
}

func (c *stubCatalog) Details(_ context.Context, id content.ID) (content.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return content.Summary{}, c.err
	}
	m, ok := c.movies[id]
	if !ok {
		return content.Summary{}, &tmdb.StatusError{Status: http.StatusNotFound}
	}
	return m, nil
}

func (c *stubCatalog) RecommendationsFor(_ context.Context, id content.ID) ([]content.Summary, error) {
	c.mu.Lock()
	gate, entered := c.gate, c.entered
	c.mu.Unlock()
	if gate != nil {
		entered <- struct{}{}
		<-gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recs[id], nil
}

func (c *stubCatalog) SimilarTo(context.Context, content.ID) ([]content.Summary, error) {
	return nil, nil
}

func (c *stubCatalog) Discover(context.Context, []int) ([]content.Summary, error) {
	return nil, nil
}

func (c *stubCatalog) Search(_ context.Context, q string, page int) (tmdb.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, q)
	if c.err != nil {
		return tmdb.Page{}, c.err
	}
	p := c.pages[q]
	p.Page = page
	return p, nil
}

func (c *stubCatalog) Popular(_ context.Context, page int) (tmdb.Page, error) {
	return c.Search(context.Background(), "", page)
}

type stubSessions struct {
	engine *engine.Engine
	err    error
}

func (s *stubSessions) Get(string) (*engine.Engine, error) {
	return s.engine, s.err
}

type providerFunc func(ctx context.Context, userID string) ([]content.ID, error)

func (f providerFunc) List(ctx context.Context, userID string) ([]content.ID, error) {
	return f(ctx, userID)
}

func newEngine(t *testing.T, cat content.Service, wl content.WatchlistProvider) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.Options{UserID: "user-1", Content: cat, Watchlist: wl})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return e
}

// chiReq builds a request carrying the content_id route param.
func chiReq(method, url, contentID string, body any) *http.Request {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, url, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	if contentID != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("content_id", contentID)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	return req
}

// asAuthUser injects user-1 into the request context.
func asAuthUser(req *http.Request) *http.Request {
	return req.WithContext(auth.WithUserID(req.Context(), "user-1"))
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v (body=%s)", err, rr.Body.String())
	}
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[api.ErrorResponse](t, rr).Error.Code
}
