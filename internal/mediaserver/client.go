// Package mediaserver notifies a Jellyfin-compatible server that the
// symlink library changed. Refreshes are advisory; a missed one only
// delays visibility until the server's own periodic scan.
package mediaserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client speaks the Jellyfin REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a media server client. An empty API key produces a
// client whose Refresh is a silent no-op.
func New(baseURL, apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "mediaserver").Logger(),
	}
}

type virtualFolder struct {
	Name           string `json:"Name"`
	ItemID         string `json:"ItemId"`
	CollectionType string `json:"CollectionType"`
}

// Refresh triggers a per-library scan for each library whose
// collection type matches a changed root. Failures are logged and
// swallowed.
func (c *Client) Refresh(ctx context.Context, filmsChanged, showsChanged bool) {
	if c.apiKey == "" {
		c.logger.Debug().Msg("refresh skipped, no api key configured")
		return
	}
	if !filmsChanged && !showsChanged {
		return
	}

	libraries, err := c.virtualFolders(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("library listing failed")
		return
	}

	changed := make(map[string]bool)
	if filmsChanged {
		changed["movies"] = true
	}
	if showsChanged {
		changed["tvshows"] = true
	}

	var refreshed []string
	for _, lib := range libraries {
		if lib.ItemID == "" || !changed[strings.ToLower(lib.CollectionType)] {
			continue
		}
		if err := c.refreshItem(ctx, lib.ItemID); err != nil {
			c.logger.Warn().Err(err).Str("library", lib.Name).Msg("library refresh failed")
			continue
		}
		refreshed = append(refreshed, lib.Name)
	}
	if len(refreshed) > 0 {
		c.logger.Info().Strs("libraries", refreshed).Msg("media server refresh triggered")
	}
}

func (c *Client) virtualFolders(ctx context.Context) ([]virtualFolder, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/Library/VirtualFolders", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET /Library/VirtualFolders: status %d", resp.StatusCode)
	}

	var libraries []virtualFolder
	if err := json.NewDecoder(resp.Body).Decode(&libraries); err != nil {
		return nil, fmt.Errorf("decode library listing: %w", err)
	}
	return libraries, nil
}

func (c *Client) refreshItem(ctx context.Context, itemID string) error {
	params := url.Values{
		"Recursive":           {"true"},
		"MetadataRefreshMode": {"Default"},
		"ImageRefreshMode":    {"Default"},
		"ReplaceAllMetadata":  {"false"},
		"ReplaceAllImages":    {"false"},
	}
	endpoint := fmt.Sprintf("%s/Items/%s/Refresh?%s", c.baseURL, itemID, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("POST /Items/%s/Refresh: status %d", itemID, resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("MediaBrowser Token=%q", c.apiKey))
}
