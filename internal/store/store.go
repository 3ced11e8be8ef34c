// Package store is the adapter for the external record store holding
// torrent, film and episode rows. The store is the only persistent
// state in the system; everything else is rebuilt from it each cycle.
//
// All public methods absorb backend failures: they log a warning and
// return an absent value (nil, empty slice, false). Callers treat
// "not there" and "store unreachable" the same way, so a flaky store
// degrades a cycle instead of aborting it.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	collectionTorrents = "torrents"
	collectionFilms    = "films"
	collectionShows    = "shows"

	listPerPage = 200
)

var (
	// ErrNotFound indicates the record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAPIError indicates a store API error.
	ErrAPIError = errors.New("store API error")
)

// Client talks to a PocketBase-compatible record store.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a record store client.
func New(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// Healthy reports whether the store answers its health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// WaitReady polls the health endpoint every two seconds for up to two
// minutes. It returns false when the store never came up or the
// context was cancelled; the caller decides whether to carry on.
func (c *Client) WaitReady(ctx context.Context) bool {
	c.logger.Info().Str("url", c.baseURL).Msg("Waiting for record store")
	for attempt := 0; attempt < 60; attempt++ {
		if c.Healthy(ctx) {
			c.logger.Info().Msg("Record store is ready")
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(2 * time.Second):
		}
	}
	c.logger.Warn().Msg("Record store not available after 2 minutes")
	return false
}

// escapeFilter escapes a string literal for use inside a filter
// expression: backslashes first, then double quotes.
func escapeFilter(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// recordsPath returns the REST path for a collection, optionally with
// a record id appended.
func recordsPath(collection, id string) string {
	p := "/api/collections/" + collection + "/records"
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

// doJSON performs one request against the store. Non-2xx statuses map
// to typed errors; 404 is ErrNotFound so absence is distinguishable
// from failure at this layer even though public methods collapse the
// two.
func (c *Client) doJSON(ctx context.Context, method, path string, params url.Values, body, result any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid store URL: %w", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d on %s %s", ErrAPIError, resp.StatusCode, method, path)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return nil
}

// page is one page of a paginated list response.
type page[T any] struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
	Items      []T `json:"items"`
}

// listAll fetches every page of a filtered listing. A failure mid-way
// returns the rows collected so far along with the error.
func listAll[T any](ctx context.Context, c *Client, collection, filter, expand string) ([]T, error) {
	var items []T
	for pageNum := 1; ; pageNum++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(pageNum))
		params.Set("perPage", strconv.Itoa(listPerPage))
		if filter != "" {
			params.Set("filter", filter)
		}
		if expand != "" {
			params.Set("expand", expand)
		}

		var p page[T]
		if err := c.doJSON(ctx, http.MethodGet, recordsPath(collection, ""), params, nil, &p); err != nil {
			return items, err
		}
		items = append(items, p.Items...)
		if pageNum >= p.TotalPages {
			return items, nil
		}
	}
}

// getFirst fetches the first record matching a filter, or nil when
// none matches.
func getFirst[T any](ctx context.Context, c *Client, collection, filter, expand string) (*T, error) {
	params := url.Values{}
	params.Set("page", "1")
	params.Set("perPage", "1")
	params.Set("filter", filter)
	if expand != "" {
		params.Set("expand", expand)
	}

	var p page[T]
	if err := c.doJSON(ctx, http.MethodGet, recordsPath(collection, ""), params, nil, &p); err != nil {
		return nil, err
	}
	if len(p.Items) == 0 {
		return nil, nil
	}
	return &p.Items[0], nil
}

// create posts a new record and decodes the stored row.
func create[T any](ctx context.Context, c *Client, collection string, body map[string]any) (*T, error) {
	var rec T
	if err := c.doJSON(ctx, http.MethodPost, recordsPath(collection, ""), nil, body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// getByID fetches a single record by id.
func getByID[T any](ctx context.Context, c *Client, collection, id, expand string) (*T, error) {
	var params url.Values
	if expand != "" {
		params = url.Values{}
		params.Set("expand", expand)
	}
	var rec T
	if err := c.doJSON(ctx, http.MethodGet, recordsPath(collection, id), params, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// update patches selected fields of a record. Partial bodies let zero
// values (false, 0, "") be written distinctly from "leave unchanged".
func (c *Client) update(ctx context.Context, collection, id string, fields map[string]any) error {
	return c.doJSON(ctx, http.MethodPatch, recordsPath(collection, id), nil, fields, nil)
}

// delete removes a record.
func (c *Client) delete(ctx context.Context, collection, id string) error {
	return c.doJSON(ctx, http.MethodDelete, recordsPath(collection, id), nil, nil, nil)
}
