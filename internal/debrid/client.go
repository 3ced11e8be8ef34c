// Package debrid is the client for the remote debrid service, used to
// hydrate torrent metadata and to re-add torrents that dropped off the
// mount.
package debrid

import (
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

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/driftwood/driftwood/internal/mount"
)

const listPageSize = 100

var (
	// ErrRetryable marks rate limiting and server overload (429/503).
	ErrRetryable = errors.New("debrid service busy")
	// ErrAPIError is any other non-success API response.
	ErrAPIError = errors.New("debrid API error")
	// ErrAlreadyActive means the magnet is already present remotely.
	ErrAlreadyActive = errors.New("torrent already active")
)

// Torrent is one remote torrent as listed by the service.
type Torrent struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	Hash     string   `json:"hash"`
	Bytes    int64    `json:"bytes"`
	Links    []string `json:"links"`
}

// File is one file inside a remote torrent.
type File struct {
	ID    int    `json:"id"`
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

// Info is the detailed view of one remote torrent.
type Info struct {
	ID               string `json:"id"`
	Filename         string `json:"filename"`
	OriginalFilename string `json:"original_filename"`
	Hash             string `json:"hash"`
	Files            []File `json:"files"`
}

// Client talks to a Real-Debrid-compatible REST API. Every call
// retries transport errors and 429/503 with exponential backoff
// (2, 4, 8 seconds) before surfacing a typed error.
type Client struct {
	baseURL     string
	apiKey      string
	minFileSize int64
	httpClient  *http.Client
	logger      zerolog.Logger
}

// New creates a debrid client. minFileSizeMB is the threshold below
// which files are not selected after a magnet add.
func New(baseURL, apiKey string, minFileSizeMB int, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		minFileSize: int64(minFileSizeMB) * 1024 * 1024,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger.With().Str("component", "debrid").Logger(),
	}
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// ListAll pages through every remote torrent, stopping on a short or
// empty page.
func (c *Client) ListAll(ctx context.Context) ([]Torrent, error) {
	var all []Torrent
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("limit", strconv.Itoa(listPageSize))

		var batch []Torrent
		if err := c.do(ctx, http.MethodGet, "/torrents?"+params.Encode(), nil, &batch); err != nil {
			return all, err
		}
		all = append(all, batch...)
		if len(batch) < listPageSize {
			return all, nil
		}
	}
}

// Info fetches a torrent's detail including its file list.
func (c *Client) Info(ctx context.Context, id string) (*Info, error) {
	var info Info
	if err := c.do(ctx, http.MethodGet, "/torrents/info/"+url.PathEscape(id), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// AddMagnet adds a magnet built from an info-hash and returns the new
// remote id. A hash the service already tracks returns ("", nil).
func (c *Client) AddMagnet(ctx context.Context, hash string) (string, error) {
	form := url.Values{}
	form.Set("magnet", "magnet:?xt=urn:btih:"+hash)

	var resp struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/torrents/addMagnet", form, &resp)
	if err != nil {
		if errors.Is(err, ErrAlreadyActive) {
			c.logger.Info().Str("hash", shortHash(hash)).Msg("magnet already active")
			return "", nil
		}
		return "", err
	}
	c.logger.Info().Str("hash", shortHash(hash)).Str("id", resp.ID).Msg("magnet added")
	return resp.ID, nil
}

// SelectVideoFiles selects every file on a torrent that has a video
// extension and meets the size threshold. Returns false when nothing
// qualified.
func (c *Client) SelectVideoFiles(ctx context.Context, id string) (bool, error) {
	info, err := c.Info(ctx, id)
	if err != nil {
		return false, err
	}

	var ids []string
	for _, f := range info.Files {
		if mount.IsVideoFile(f.Path) && f.Bytes >= c.minFileSize {
			ids = append(ids, strconv.Itoa(f.ID))
		}
	}
	if len(ids) == 0 {
		c.logger.Warn().Str("id", id).Msg("no qualifying video files to select")
		return false, nil
	}

	form := url.Values{}
	form.Set("files", strings.Join(ids, ","))
	if err := c.do(ctx, http.MethodPost, "/torrents/selectFiles/"+url.PathEscape(id), form, nil); err != nil {
		return false, err
	}
	c.logger.Info().Str("id", id).Int("files", len(ids)).Msg("video files selected")
	return true, nil
}

// Delete removes a torrent from the remote account.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/torrents/delete/"+url.PathEscape(id), nil, nil)
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// do performs one API call with backoff. form non-nil means a
// form-encoded POST body.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, result any) error {
	return retry.Do(
		func() error {
			return c.doOnce(ctx, method, path, form, result)
		},
		retry.Context(ctx),
		retry.Attempts(4),
		retry.Delay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if errors.Is(err, ErrAPIError) || errors.Is(err, ErrAlreadyActive) {
				return false
			}
			return true
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn().Err(err).Uint("attempt", n+1).
				Str("method", method).Str("path", path).
				Msg("debrid request failed, retrying")
		}),
	)
}

func (c *Client) doOnce(ctx context.Context, method, path string, form url.Values, result any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrAPIError, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status %d on %s %s", ErrRetryable, resp.StatusCode, method, path)
	case resp.StatusCode >= 400:
		return c.apiError(resp, method, path)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrAPIError, err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return nil
}

// apiError decodes the service's {error, error_code} body. Error code
// 33 means the magnet is already active, which callers treat as
// success.
func (c *Client) apiError(resp *http.Response, method, path string) error {
	var body struct {
		Error     string `json:"error"`
		ErrorCode int    `json:"error_code"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(data, &body)

	if body.ErrorCode == 33 || strings.Contains(strings.ToLower(body.Error), "already_active") {
		return ErrAlreadyActive
	}
	return fmt.Errorf("%w: status %d on %s %s: %s", ErrAPIError, resp.StatusCode, method, path, body.Error)
}
