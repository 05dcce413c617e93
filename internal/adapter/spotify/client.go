// Package spotify is a minimal Spotify Web API client for track search.
package spotify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultAccountsURL = "https://accounts.spotify.com"
	DefaultAPIURL      = "https://api.spotify.com"
)

// Track is a search result reduced to what the music specialist renders.
type Track struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	URL         string `json:"url"`
	PreviewURL  string `json:"preview_url,omitempty"`
	CoverURL    string `json:"cover_url,omitempty"`
	ReleaseDate string `json:"release_date"`
	Popularity  int    `json:"popularity"`
	DurationMs  int    `json:"duration_ms"`
	Explicit    bool   `json:"explicit"`
}

// Client authenticates with the client-credentials flow and caches the token.
type Client struct {
	clientID     string
	clientSecret string
	accountsURL  string
	apiURL       string
	httpClient   *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewClient creates a new Spotify client.
func NewClient(clientID, clientSecret string, timeout time.Duration) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		accountsURL:  DefaultAccountsURL,
		apiURL:       DefaultAPIURL,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// WithBaseURLs points the client at different endpoints.
func (c *Client) WithBaseURLs(accountsURL, apiURL string) *Client {
	c.accountsURL = strings.TrimSuffix(accountsURL, "/")
	c.apiURL = strings.TrimSuffix(apiURL, "/")
	return c
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c != nil && c.clientID != "" && c.clientSecret != ""
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.expires) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.accountsURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}

	token := gjson.GetBytes(body, "access_token").String()
	if token == "" {
		return "", fmt.Errorf("token response has no access_token")
	}
	ttl := time.Duration(gjson.GetBytes(body, "expires_in").Int()) * time.Second
	// Refresh a minute early.
	c.token = token
	c.expires = time.Now().Add(ttl - time.Minute)
	return c.token, nil
}

// SearchTracks runs a track search for query.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"q":     {query},
		"type":  {"track"},
		"limit": {fmt.Sprint(limit)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/v1/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	var tracks []Track
	gjson.GetBytes(body, "tracks.items").ForEach(func(_, item gjson.Result) bool {
		var artists []string
		item.Get("artists.#.name").ForEach(func(_, name gjson.Result) bool {
			artists = append(artists, name.String())
			return true
		})
		tracks = append(tracks, Track{
			ID:          item.Get("id").String(),
			Title:       item.Get("name").String(),
			Artist:      strings.Join(artists, ", "),
			Album:       item.Get("album.name").String(),
			URL:         item.Get("external_urls.spotify").String(),
			PreviewURL:  item.Get("preview_url").String(),
			CoverURL:    coverURL(item.Get("album.images")),
			ReleaseDate: item.Get("album.release_date").String(),
			Popularity:  int(item.Get("popularity").Int()),
			DurationMs:  int(item.Get("duration_ms").Int()),
			Explicit:    item.Get("explicit").Bool(),
		})
		return true
	})
	return tracks, nil
}

// coverURL prefers a medium image (200-400px high), else the first one.
func coverURL(images gjson.Result) string {
	var first, medium string
	images.ForEach(func(_, img gjson.Result) bool {
		u := img.Get("url").String()
		if first == "" {
			first = u
		}
		if h := img.Get("height").Int(); h >= 200 && h <= 400 {
			medium = u
			return false
		}
		return true
	})
	if medium != "" {
		return medium
	}
	return first
}

func (c *Client) do(req *http.Request) ([]byte, error) {
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
		return nil, fmt.Errorf("spotify API error [%d]: %s", resp.StatusCode, gjson.GetBytes(body, "error.message").String())
	}
	return body, nil
}
