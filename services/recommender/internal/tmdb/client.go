// Package tmdb is a client for The Movie Database v3 API and the catalog
// adapter used by the recommendation engine.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/example/movie-platform/services/recommender/internal/content"
)

const (
	DefaultBaseURL  = "https://api.themoviedb.org/3"
	DefaultLanguage = "es-ES"

	maxBodyBytes = 4 << 20
	breakerName  = "tmdb"
)

// StatusError is returned for any non-200 response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb: status %d body=%q", e.Status, e.Body)
}

// IsNotFound reports whether err is a 404 from TMDB.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

type Options struct {
	BaseURL  string
	APIKey   string
	Language string
	// RPS caps outbound requests per second; 0 disables limiting.
	RPS     float64
	Timeout time.Duration
	Logger  *zap.Logger
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Defaults to 5.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open. Defaults to 30s.
	OpenTimeout time.Duration
}

type Client struct {
	BaseURL    string
	APIKey     string
	Language   string
	HTTPClient *http.Client

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	log     *zap.Logger
}

var _ content.Service = (*Client)(nil)

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		BaseURL:    strings.TrimRight(opts.BaseURL, "/"),
		APIKey:     opts.APIKey,
		Language:   opts.Language,
		HTTPClient: &http.Client{Timeout: opts.Timeout},
		log:        log,
	}
	if opts.RPS > 0 {
		burst := int(opts.RPS)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	threshold := opts.FailureThreshold
	breakerState.WithLabelValues(breakerName).Set(0)
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Client errors say nothing about TMDB health.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.Status < 500 && se.Status != http.StatusTooManyRequests
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			breakerState.WithLabelValues(name).Set(stateValue(to))
			log.Warn("tmdb circuit breaker state change", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return c
}

func (c *Client) Details(ctx context.Context, id content.ID) (content.Summary, error) {
	if id <= 0 {
		return content.Summary{}, fmt.Errorf("tmdb: invalid movie id %d", id)
	}
	var out MovieData
	if err := c.getJSON(ctx, "details", "/movie/"+id.String(), nil, &out); err != nil {
		return content.Summary{}, err
	}
	return ToSummary(out), nil
}

func (c *Client) RecommendationsFor(ctx context.Context, id content.ID) ([]content.Summary, error) {
	return c.movieList(ctx, "recommendations", id)
}

func (c *Client) SimilarTo(ctx context.Context, id content.ID) ([]content.Summary, error) {
	return c.movieList(ctx, "similar", id)
}

// Discover returns the most popular movies having any of genreIDs.
func (c *Client) Discover(ctx context.Context, genreIDs []int) ([]content.Summary, error) {
	q := url.Values{}
	q.Set("sort_by", "popularity.desc")
	q.Set("page", "1")
	if len(genreIDs) > 0 {
		parts := make([]string, 0, len(genreIDs))
		for _, g := range genreIDs {
			parts = append(parts, strconv.Itoa(g))
		}
		q.Set("with_genres", strings.Join(parts, ","))
	}
	var out PageResponse
	if err := c.getJSON(ctx, "discover", "/discover/movie", q, &out); err != nil {
		return nil, err
	}
	return ToSummaries(out.Results), nil
}

// Search queries movies by title.
func (c *Client) Search(ctx context.Context, query string, page int) (Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Page{Page: 1, Results: []content.Summary{}}, nil
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(max(page, 1)))
	q.Set("include_adult", "false")
	var out PageResponse
	if err := c.getJSON(ctx, "search", "/search/movie", q, &out); err != nil {
		return Page{}, err
	}
	return toPage(out), nil
}

// Popular returns a page of this week's trending movies.
func (c *Client) Popular(ctx context.Context, page int) (Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(page, 1)))
	var out PageResponse
	if err := c.getJSON(ctx, "trending", "/trending/movie/week", q, &out); err != nil {
		return Page{}, err
	}
	return toPage(out), nil
}

func (c *Client) movieList(ctx context.Context, endpoint string, id content.ID) ([]content.Summary, error) {
	if id <= 0 {
		return nil, fmt.Errorf("tmdb: invalid movie id %d", id)
	}
	q := url.Values{}
	q.Set("page", "1")
	var out PageResponse
	if err := c.getJSON(ctx, endpoint, "/movie/"+id.String()+"/"+endpoint, q, &out); err != nil {
		return nil, err
	}
	return ToSummaries(out.Results), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, q url.Values, v any) error {
	start := time.Now()
	b, err := c.get(ctx, path, q)
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, outcomeOf(err)).Inc()
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		requestsTotal.WithLabelValues(endpoint, "decode_error").Inc()
		return fmt.Errorf("tmdb: decode error: %w body=%q", err, string(b[:min(len(b), 200)]))
	}
	requestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", c.APIKey)
	q.Set("language", c.Language)
	rawURL := c.BaseURL + path + "?" + q.Encode()

	return c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "movie-platform-recommender/1.0")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{Status: resp.StatusCode, Body: string(b[:min(len(b), 200)])}
		}
		return b, nil
	})
}

func outcomeOf(err error) string {
	var se *StatusError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	case errors.As(err, &se):
		return "status_" + strconv.Itoa(se.Status)
	default:
		return "error"
	}
}
