// Package geocode wraps the external place-search service used for
// search-and-fly-to. Failures degrade to an empty candidate list; the
// map keeps working without search.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DebounceWindow is how long keystroke input settles before a suggestion
// request fires, to avoid request storms while typing.
const DebounceWindow = 350 * time.Millisecond

// Candidate is a single geocoding result.
type Candidate struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat,string"`
	Lon         float64 `json:"lon,string"`
}

// Client queries a nominatim-style search endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	countryCode string
	limit       int
	http        *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey adds a key parameter to every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithCountry restricts results to a country code.
func WithCountry(code string) Option {
	return func(c *Client) { c.countryCode = code }
}

// WithLimit caps the number of candidates.
func WithLimit(n int) Option {
	return func(c *Client) { c.limit = n }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a geocoding client for the given search endpoint.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		limit:   8,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Search looks up place candidates for a free-text query. An empty query
// returns no candidates without a network call.
func (c *Client) Search(ctx context.Context, query string) ([]Candidate, error) {
	if query == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(c.limit))
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	if c.countryCode != "" {
		q.Set("countrycodes", c.countryCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode request: status %d", resp.StatusCode)
	}

	var candidates []Candidate
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return nil, fmt.Errorf("geocode response: %w", err)
	}
	return candidates, nil
}
