// Package metadata resolves titles against the external catalogue and
// fetches show episode structures.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrAPIKeyMissing = errors.New("catalogue API key is not configured")
	ErrNotFound      = errors.New("catalogue record not found")
	ErrAPIError      = errors.New("catalogue API error")
	ErrRateLimited   = errors.New("catalogue API rate limited")
)

// Result is one catalogue match.
type Result struct {
	TMDBID int
	Title  string
	Year   int
}

// SeasonEpisode addresses one episode inside a show.
type SeasonEpisode struct {
	Season  int
	Episode int
}

// Client is a TMDB-compatible catalogue client. Search results are
// cached per scan cycle, show structures for the process lifetime.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	mu         sync.Mutex
	filmCache  map[string]*Result
	showCache  map[string]*Result
	structures map[int]*ShowStructure
}

// New creates a catalogue client.
func New(baseURL, apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:     logger.With().Str("component", "metadata").Logger(),
		filmCache:  make(map[string]*Result),
		showCache:  make(map[string]*Result),
		structures: make(map[int]*ShowStructure),
	}
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// ResetCycle drops the per-cycle search caches. Show structures stay;
// the catalogue does not reshuffle episodes on a scan timescale.
func (c *Client) ResetCycle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filmCache = make(map[string]*Result)
	c.showCache = make(map[string]*Result)
}

// MovieByID fetches a film's title and year by catalogue id.
func (c *Client) MovieByID(ctx context.Context, tmdbID int) (*Result, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	var detail struct {
		ID          int    `json:"id"`
		Title       string `json:"title"`
		ReleaseDate string `json:"release_date"`
	}
	endpoint := fmt.Sprintf("%s/movie/%d", c.baseURL, tmdbID)
	if err := c.doRequest(ctx, endpoint, url.Values{}, &detail); err != nil {
		return nil, err
	}
	return &Result{TMDBID: detail.ID, Title: detail.Title, Year: yearOf(detail.ReleaseDate)}, nil
}

// ShowByID fetches a show's title and first-air year by catalogue id.
func (c *Client) ShowByID(ctx context.Context, tmdbID int) (*Result, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	var detail struct {
		ID           int    `json:"id"`
		Name         string `json:"name"`
		FirstAirDate string `json:"first_air_date"`
	}
	endpoint := fmt.Sprintf("%s/tv/%d", c.baseURL, tmdbID)
	if err := c.doRequest(ctx, endpoint, url.Values{}, &detail); err != nil {
		return nil, err
	}
	return &Result{TMDBID: detail.ID, Title: detail.Name, Year: yearOf(detail.FirstAirDate)}, nil
}

// yearOf extracts the year from a catalogue date string ("2016-11-11").
func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, _ := strconv.Atoi(date[:4])
	return year
}

// doRequest performs an HTTP GET request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	params.Set("api_key", c.apiKey)
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key", ErrAPIError)
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
