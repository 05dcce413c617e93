// Package osm is a minimal OpenStreetMap Nominatim search client.
package osm

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
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "HatiApp/1.0 (relaxation-assistant)"
)

// Place is a Nominatim result.
type Place struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"address"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	OSMID       int64   `json:"osm_id"`
	OSMType     string  `json:"osm_type"`
	Class       string  `json:"class"`
	Type        string  `json:"type_detail"`
}

// Client is the Nominatim client. Nominatim's usage policy requires an
// identifying User-Agent.
type Client struct {
	baseURL     string
	userAgent   string
	countryCode string
	httpClient  *http.Client
}

// NewClient creates a Nominatim client restricted to Indonesia.
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		userAgent:   userAgent,
		countryCode: "id",
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Search runs a free-text place search.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	params := url.Values{
		"q":              {query},
		"format":         {"json"},
		"limit":          {fmt.Sprint(limit)},
		"countrycodes":   {c.countryCode},
		"addressdetails": {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

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
		return nil, fmt.Errorf("nominatim error [%d]: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var places []Place
	gjson.ParseBytes(body).ForEach(func(_, p gjson.Result) bool {
		display := p.Get("display_name").String()
		name := strings.TrimSpace(strings.SplitN(display, ",", 2)[0])
		if len(name) < 3 {
			return true
		}
		places = append(places, Place{
			Name:        name,
			DisplayName: display,
			Lat:         p.Get("lat").Float(),
			Lng:         p.Get("lon").Float(),
			OSMID:       p.Get("osm_id").Int(),
			OSMType:     p.Get("osm_type").String(),
			Class:       p.Get("class").String(),
			Type:        p.Get("type").String(),
		})
		return true
	})
	return places, nil
}
