// Package giphy is a minimal Giphy search client.
package giphy

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

const DefaultBaseURL = "https://api.giphy.com/v1/gifs"

// GIF is a search result reduced to what the entertainment specialist renders.
type GIF struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url"`
	Rating     string `json:"rating"`
	Source     string `json:"source"`
}

// Client is the Giphy API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Giphy client.
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

// Search returns family-friendly GIFs for term.
func (c *Client) Search(ctx context.Context, term string, limit, offset int) ([]GIF, error) {
	params := url.Values{
		"api_key": {c.apiKey},
		"q":       {term},
		"limit":   {fmt.Sprint(limit)},
		"offset":  {fmt.Sprint(offset)},
		"rating":  {"g"},
		"lang":    {"en"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
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
		return nil, fmt.Errorf("giphy API error [%d]: %s", resp.StatusCode, gjson.GetBytes(body, "meta.msg").String())
	}

	var gifs []GIF
	gjson.GetBytes(body, "data").ForEach(func(_, g gjson.Result) bool {
		title := g.Get("title").String()
		if title == "" {
			title = "Fun GIF"
		}
		gifs = append(gifs, GIF{
			Title:      title,
			URL:        g.Get("images.original.url").String(),
			PreviewURL: g.Get("images.fixed_height_small.url").String(),
			Rating:     g.Get("rating").String(),
			Source:     "giphy",
		})
		return true
	})
	return gifs, nil
}
