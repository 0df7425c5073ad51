package tmdb

import (
	"strconv"
	"strings"

	"github.com/example/movie-platform/services/recommender/internal/content"
)

// MovieData is the movie block shared by the detail and list endpoints.
// Detail responses carry genres, list responses carry genre_ids.
type MovieData struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	Popularity  float64 `json:"popularity"`
	VoteAverage float64 `json:"vote_average"`
	PosterPath  string  `json:"poster_path"`
	Overview    string  `json:"overview"`
	GenreIDs    []int   `json:"genre_ids"`
	Genres      []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

type PageResponse struct {
	Page         int         `json:"page"`
	Results      []MovieData `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

// Page is one page of mapped search or listing results.
type Page struct {
	Page         int               `json:"page"`
	TotalPages   int               `json:"total_pages"`
	TotalResults int               `json:"total_results"`
	Results      []content.Summary `json:"results"`
}

func ToSummary(m MovieData) content.Summary {
	genres := m.GenreIDs
	if len(m.Genres) > 0 {
		genres = make([]int, 0, len(m.Genres))
		for _, g := range m.Genres {
			genres = append(genres, g.ID)
		}
	}
	pop := m.Popularity
	if pop < 0 {
		pop = 0
	}
	return content.Summary{
		ID:          content.ID(m.ID),
		Title:       strings.TrimSpace(m.Title),
		ReleaseYear: releaseYear(m.ReleaseDate),
		Popularity:  pop,
		VoteAverage: m.VoteAverage,
		PosterPath:  strings.TrimSpace(m.PosterPath),
		Overview:    strings.TrimSpace(m.Overview),
		GenreIDs:    genres,
	}
}

// ToSummaries maps list results, dropping entries without a usable id.
func ToSummaries(items []MovieData) []content.Summary {
	out := make([]content.Summary, 0, len(items))
	for _, m := range items {
		if m.ID <= 0 {
			continue
		}
		out = append(out, ToSummary(m))
	}
	return out
}

func toPage(resp PageResponse) Page {
	return Page{
		Page:         resp.Page,
		TotalPages:   resp.TotalPages,
		TotalResults: resp.TotalResults,
		Results:      ToSummaries(resp.Results),
	}
}

// releaseYear reads the year from a YYYY-MM-DD date; 0 when absent.
func releaseYear(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}
