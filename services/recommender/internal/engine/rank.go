package engine

import (
	"sort"

	"github.com/example/movie-platform/services/recommender/internal/content"
)

// rank flattens streams in order, keeps the first occurrence of every id,
// drops excluded ids, orders by descending popularity (stable, so equal
// scores keep their merged order) and truncates to size. The result is never nil.
func rank(streams [][]content.Summary, exclude map[content.ID]struct{}, size int) []content.Summary {
	seen := make(map[content.ID]struct{})
	out := make([]content.Summary, 0)
	for _, stream := range streams {
		for _, item := range stream {
			if _, ok := exclude[item.ID]; ok {
				continue
			}
			if _, ok := seen[item.ID]; ok {
				continue
			}
			seen[item.ID] = struct{}{}
			out = append(out, item)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Popularity > out[j].Popularity
	})

	if size >= 0 && len(out) > size {
		out = out[:size]
	}
	return out
}

// unionGenres collects genre ids in first-appearance order across details,
// skipping missing entries, and keeps at most limit of them.
func unionGenres(details []*content.Summary, limit int) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, d := range details {
		if d == nil {
			continue
		}
		for _, g := range d.GenreIDs {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			out = append(out, g)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}
