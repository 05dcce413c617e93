// Package tmdb is a minimal TMDb client for mood-based movie discovery.
package tmdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL  = "https://api.themoviedb.org/3"
	posterURLPrefix = "https://image.tmdb.org/t/p/w500"
	overviewLimit   = 150
)

// Movie is a discovered movie reduced to what the entertainment specialist renders.
type Movie struct {
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	Rating      float64 `json:"rating"`
	ReleaseDate string  `json:"release_date"`
	PosterURL   string  `json:"poster_url,omitempty"`
	Source      string  `json:"source"`
}

// DiscoverQuery selects movies by genre.
type DiscoverQuery struct {
	GenreID string
	SortBy  string
	Page    int
}

// Client is the TMDb API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new TMDb client.
func NewClient(apiKey string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithBaseURL points the client at a different endpoint.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Discover lists well-rated movies of a genre.
func (c *Client) Discover(ctx context.Context, q DiscoverQuery, limit int) ([]Movie, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.SortBy == "" {
		q.SortBy = "popularity.desc"
	}
	params := url.Values{
		"api_key":          {c.apiKey},
		"with_genres":      {q.GenreID},
		"sort_by":          {q.SortBy},
		"vote_average.gte": {"6.0"},
		"vote_count.gte":   {"100"},
		"page":             {fmt.Sprint(q.Page)},
		"language":         {"en-US"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/discover/movie?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TMDb API error [%d]: %s", resp.StatusCode, gjson.GetBytes(body, "status_message").String())
	}

	var movies []Movie
	gjson.GetBytes(body, "results").ForEach(func(_, m gjson.Result) bool {
		if len(movies) >= limit {
			return false
		}
		movie := Movie{
			Title:       m.Get("title").String(),
			Overview:    truncate(m.Get("overview").String(), overviewLimit),
			Rating:      m.Get("vote_average").Float(),
			ReleaseDate: m.Get("release_date").String(),
			Source:      "tmdb",
		}
		if poster := m.Get("poster_path").String(); poster != "" {
			movie.PosterURL = posterURLPrefix + poster
		}
		movies = append(movies, movie)
		return true
	})
	return movies, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
