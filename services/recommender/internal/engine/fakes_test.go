package engine

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/example/movie-platform/services/recommender/internal/content"
)

var errCatalogDown = errors.New("catalog: status 503")

type fakeCatalog struct {
	mu sync.Mutex

	recs     map[content.ID][]content.Summary
	similar  map[content.ID][]content.Summary
	details  map[content.ID]content.Summary
	discover []content.Summary

	failRecs     map[content.ID]bool
	failSimilar  map[content.ID]bool
	failDetails  map[content.ID]bool
	failDiscover bool

	// gates block calls for a seed id until closed; discovery uses id 0.
	gates map[content.ID]chan struct{}

	calls          int
	discoverGenres [][]int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		recs:        map[content.ID][]content.Summary{},
		similar:     map[content.ID][]content.Summary{},
		details:     map[content.ID]content.Summary{},
		failRecs:    map[content.ID]bool{},
		failSimilar: map[content.ID]bool{},
		failDetails: map[content.ID]bool{},
		gates:       map[content.ID]chan struct{}{},
	}
}

func (f *fakeCatalog) block(id content.ID) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[id] = ch
	return ch
}

// enter records a call, waits on the id's gate and reports ctx.Err().
func (f *fakeCatalog) enter(ctx context.Context, id content.ID) error {
	f.mu.Lock()
	f.calls++
	gate := f.gates[id]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return ctx.Err()
}

func (f *fakeCatalog) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeCatalog) Details(ctx context.Context, id content.ID) (content.Summary, error) {
	if err := f.enter(ctx, id); err != nil {
		return content.Summary{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDetails[id] {
		return content.Summary{}, errCatalogDown
	}
	d, ok := f.details[id]
	if !ok {
		return content.Summary{}, errors.New("catalog: status 404")
	}
	return d, nil
}

func (f *fakeCatalog) RecommendationsFor(ctx context.Context, id content.ID) ([]content.Summary, error) {
	if err := f.enter(ctx, id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRecs[id] {
		return nil, errCatalogDown
	}
	return slices.Clone(f.recs[id]), nil
}

func (f *fakeCatalog) SimilarTo(ctx context.Context, id content.ID) ([]content.Summary, error) {
	if err := f.enter(ctx, id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSimilar[id] {
		return nil, errCatalogDown
	}
	return slices.Clone(f.similar[id]), nil
}

func (f *fakeCatalog) Discover(ctx context.Context, genreIDs []int) ([]content.Summary, error) {
	if err := f.enter(ctx, 0); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discoverGenres = append(f.discoverGenres, slices.Clone(genreIDs))
	if f.failDiscover {
		return nil, errCatalogDown
	}
	return slices.Clone(f.discover), nil
}

type fakeWatchlist struct {
	mu  sync.Mutex
	ids []content.ID
	err error
}

func (w *fakeWatchlist) List(_ context.Context, _ string) ([]content.ID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return nil, w.err
	}
	return slices.Clone(w.ids), nil
}

func (w *fakeWatchlist) set(ids ...content.ID) {
	w.mu.Lock()
	w.ids = ids
	w.mu.Unlock()
}

func movie(id content.ID, pop float64, genres ...int) content.Summary {
	return content.Summary{ID: id, Title: "movie-" + id.String(), Popularity: pop, GenreIDs: genres}
}

func ids(items []content.Summary) []content.ID {
	out := make([]content.ID, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
