package store

import (
	"context"
	"fmt"
)

// Torrent is one content pack visible on the mount. Path is the
// absolute host path of the pack's top-level entry and is unique per
// row. DebridID and DebridFilename tie the row back to the debrid
// service for repair.
type Torrent struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Path           string `json:"path"`
	Score          int    `json:"score"`
	Archived       bool   `json:"archived"`
	Manual         bool   `json:"manual"`
	Hash           string `json:"hash"`
	DebridID       string `json:"rd_id"`
	DebridFilename string `json:"rd_filename"`
	RepairAttempts int    `json:"repair_attempts"`
}

// TorrentByPath returns the torrent row with the given mount path, or
// nil when absent.
func (c *Client) TorrentByPath(ctx context.Context, path string) *Torrent {
	filter := fmt.Sprintf(`path = "%s"`, escapeFilter(path))
	t, err := getFirst[Torrent](ctx, c, collectionTorrents, filter, "")
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("torrent lookup by path failed")
		return nil
	}
	return t
}

// TorrentByID returns the torrent row with the given id, or nil.
func (c *Client) TorrentByID(ctx context.Context, id string) *Torrent {
	if id == "" {
		return nil
	}
	t, err := getByID[Torrent](ctx, c, collectionTorrents, id, "")
	if err != nil {
		if err != ErrNotFound {
			c.logger.Warn().Err(err).Str("id", id).Msg("torrent lookup failed")
		}
		return nil
	}
	return t
}

// CreateTorrent inserts a new torrent row. Archived and manual start
// false and repair attempts at zero regardless of the passed value.
func (c *Client) CreateTorrent(ctx context.Context, t Torrent) *Torrent {
	body := map[string]any{
		"name":            t.Name,
		"path":            t.Path,
		"score":           t.Score,
		"archived":        false,
		"manual":          false,
		"hash":            t.Hash,
		"rd_id":           t.DebridID,
		"rd_filename":     t.DebridFilename,
		"repair_attempts": 0,
	}
	rec, err := create[Torrent](ctx, c, collectionTorrents, body)
	if err != nil {
		c.logger.Warn().Err(err).Str("name", t.Name).Msg("torrent create failed")
		return nil
	}
	return rec
}

// UpdateTorrent patches fields of a torrent row.
func (c *Client) UpdateTorrent(ctx context.Context, id string, fields map[string]any) bool {
	if err := c.update(ctx, collectionTorrents, id, fields); err != nil {
		c.logger.Warn().Err(err).Str("id", id).Msg("torrent update failed")
		return false
	}
	return true
}

// DeleteTorrent removes a torrent row.
func (c *Client) DeleteTorrent(ctx context.Context, id string) bool {
	if err := c.delete(ctx, collectionTorrents, id); err != nil {
		c.logger.Warn().Err(err).Str("id", id).Msg("torrent delete failed")
		return false
	}
	return true
}

// Torrents returns every torrent row.
func (c *Client) Torrents(ctx context.Context) []Torrent {
	items, err := listAll[Torrent](ctx, c, collectionTorrents, "", "")
	if err != nil {
		c.logger.Warn().Err(err).Msg("torrent listing failed")
	}
	return items
}

// ArchivedTorrents returns every torrent row flagged archived.
func (c *Client) ArchivedTorrents(ctx context.Context) []Torrent {
	items, err := listAll[Torrent](ctx, c, collectionTorrents, "archived = true", "")
	if err != nil {
		c.logger.Warn().Err(err).Msg("archived torrent listing failed")
	}
	return items
}

// ArchiveTorrent marks a torrent row archived.
func (c *Client) ArchiveTorrent(ctx context.Context, id string) bool {
	return c.UpdateTorrent(ctx, id, map[string]any{"archived": true})
}
