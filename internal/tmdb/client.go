// Package tmdb is a small client for the v3 API of The Movie Database,
// covering the lookups used to enrich scraped shows.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Catalog is the set of lookups the reconciler performs.  Both Client and
// Cached satisfy it.
type Catalog interface {
	Configuration(ctx context.Context) (*Configuration, error)
	SearchMovie(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error)
	Movie(ctx context.Context, id int64) (*Movie, error)
	Credits(ctx context.Context, id int64) (*Credits, error)
	Videos(ctx context.Context, id int64) (*Videos, error)
}

// SearchOptions narrows a movie search.
type SearchOptions struct {
	Year int
}

// Client talks to the TMDB v3 REST API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ Catalog = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRateLimit paces outgoing requests to rps with the given burst.  A
// non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a TMDB client.  language is sent with every request (e.g.
// "es-ES"), so titles and overviews come back localized.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Configuration fetches the image configuration.
func (c *Client) Configuration(ctx context.Context) (*Configuration, error) {
	var out Configuration
	if err := c.get(ctx, "/configuration", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchMovie searches movies by title.
func (c *Client) SearchMovie(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	if opts.Year > 0 {
		params.Set("year", strconv.Itoa(opts.Year))
	}
	var out SearchResponse
	if err := c.get(ctx, "/search/movie", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Movie fetches movie details.
func (c *Client) Movie(ctx context.Context, id int64) (*Movie, error) {
	var out Movie
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Credits fetches a movie's cast and crew.
func (c *Client) Credits(ctx context.Context, id int64) (*Credits, error) {
	var out Credits
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/credits", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Videos fetches a movie's trailers and clips.
func (c *Client) Videos(ctx context.Context, id int64) (*Videos, error) {
	var out Videos
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/videos", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dst any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("tmdb rate limit: %w", err)
		}
	}
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse tmdb url: %w", err)
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb %s returned %d (latency=%v)", path, resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode tmdb response: %w", err)
	}
	return nil
}
