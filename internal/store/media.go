package store

import (
	"context"
	"fmt"
)

// Expand carries relation records requested via the expand parameter.
type Expand struct {
	Torrent *Torrent `json:"torrent,omitempty"`
}

// Film is an identified film pointing at its backing torrent row.
// Torrent is empty while the film is orphaned (backing pack lost).
type Film struct {
	ID      string  `json:"id"`
	Torrent string  `json:"torrent"`
	TMDBID  int     `json:"tmdb_id"`
	Title   string  `json:"title"`
	Year    int     `json:"year"`
	Expand  *Expand `json:"expand,omitempty"`
}

// ExpandedTorrent returns the expanded torrent relation, or nil when
// the read did not expand it or the film is orphaned.
func (f *Film) ExpandedTorrent() *Torrent {
	if f == nil || f.Expand == nil {
		return nil
	}
	return f.Expand.Torrent
}

// Episode is one identified show episode. The collection is named
// "shows"; each row is a single (tmdb_id, season, episode) claim.
type Episode struct {
	ID      string  `json:"id"`
	Torrent string  `json:"torrent"`
	TMDBID  int     `json:"tmdb_id"`
	Title   string  `json:"title"`
	Year    int     `json:"year"`
	Season  int     `json:"season"`
	Episode int     `json:"episode"`
	Expand  *Expand `json:"expand,omitempty"`
}

// ExpandedTorrent returns the expanded torrent relation, or nil.
func (e *Episode) ExpandedTorrent() *Torrent {
	if e == nil || e.Expand == nil {
		return nil
	}
	return e.Expand.Torrent
}

// FilmByTMDB returns the film row for a TMDB id with its torrent
// relation expanded, or nil when absent.
func (c *Client) FilmByTMDB(ctx context.Context, tmdbID int) *Film {
	filter := fmt.Sprintf("tmdb_id = %d", tmdbID)
	f, err := getFirst[Film](ctx, c, collectionFilms, filter, "torrent")
	if err != nil {
		c.logger.Warn().Err(err).Int("tmdb_id", tmdbID).Msg("film lookup failed")
		return nil
	}
	return f
}

// CreateFilm inserts a film row claiming a TMDB id for a torrent.
func (c *Client) CreateFilm(ctx context.Context, torrentID string, tmdbID int, title string, year int) *Film {
	body := map[string]any{
		"torrent": torrentID,
		"tmdb_id": tmdbID,
		"title":   title,
		"year":    year,
	}
	rec, err := create[Film](ctx, c, collectionFilms, body)
	if err != nil {
		c.logger.Warn().Err(err).Str("title", title).Msg("film create failed")
		return nil
	}
	return rec
}

// UpdateFilm patches fields of a film row.
func (c *Client) UpdateFilm(ctx context.Context, id string, fields map[string]any) bool {
	if err := c.update(ctx, collectionFilms, id, fields); err != nil {
		c.logger.Warn().Err(err).Str("id", id).Msg("film update failed")
		return false
	}
	return true
}

// DeleteFilm removes a film row.
func (c *Client) DeleteFilm(ctx context.Context, id string) bool {
	if err := c.delete(ctx, collectionFilms, id); err != nil {
		c.logger.Warn().Err(err).Str("id", id).Msg("film delete failed")
		return false
	}
	return true
}

// Films returns every film row with torrent relations expanded.
func (c *Client) Films(ctx context.Context) []Film {
	items, err := listAll[Film](ctx, c, collectionFilms, "", "torrent")
	if err != nil {
		c.logger.Warn().Err(err).Msg("film listing failed")
	}
	return items
}

// FilmsByTorrent returns the film rows referencing a torrent.
func (c *Client) FilmsByTorrent(ctx context.Context, torrentID string) []Film {
	filter := fmt.Sprintf(`torrent = "%s"`, escapeFilter(torrentID))
	items, err := listAll[Film](ctx, c, collectionFilms, filter, "")
	if err != nil {
		c.logger.Warn().Err(err).Str("torrent", torrentID).Msg("film listing by torrent failed")
	}
	return items
}

// EpisodeByKey returns the episode row for (tmdb id, season, episode)
// with its torrent relation expanded, or nil when absent.
func (c *Client) EpisodeByKey(ctx context.Context, tmdbID, season, episode int) *Episode {
	filter := fmt.Sprintf("tmdb_id = %d && season = %d && episode = %d", tmdbID, season, episode)
	e, err := getFirst[Episode](ctx, c, collectionShows, filter, "torrent")
	if err != nil {
		c.logger.Warn().Err(err).
			Int("tmdb_id", tmdbID).Int("season", season).Int("episode", episode).
			Msg("episode lookup failed")
		return nil
	}
	return e
}

// CreateEpisode inserts an episode row claiming one (season, episode)
// slot of a show for a torrent.
func (c *Client) CreateEpisode(ctx context.Context, torrentID string, tmdbID int, title string, year, season, episode int) *Episode {
	body := map[string]any{
		"torrent": torrentID,
		"tmdb_id": tmdbID,
		"title":   title,
		"year":    year,
		"season":  season,
		"episode": episode,
	}
	rec, err := create[Episode](ctx, c, collectionShows, body)
	if err != nil {
		c.logger.Warn().Err(err).Str("title", title).Int("season", season).Int("episode", episode).
			Msg("episode create failed")
		return nil
	}
	return rec
}

// UpdateEpisode patches fields of an episode row.
func (c *Client) UpdateEpisode(ctx context.Context, id string, fields map[string]any) bool {
	if err := c.update(ctx, collectionShows, id, fields); err != nil {
		c.logger.Warn().Err(err).Str("id", id).Msg("episode update failed")
		return false
	}
	return true
}

// DeleteEpisode removes an episode row.
func (c *Client) DeleteEpisode(ctx context.Context, id string) bool {
	if err := c.delete(ctx, collectionShows, id); err != nil {
		c.logger.Warn().Err(err).Str("id", id).Msg("episode delete failed")
		return false
	}
	return true
}

// Episodes returns every episode row with torrent relations expanded.
func (c *Client) Episodes(ctx context.Context) []Episode {
	items, err := listAll[Episode](ctx, c, collectionShows, "", "torrent")
	if err != nil {
		c.logger.Warn().Err(err).Msg("episode listing failed")
	}
	return items
}

// EpisodesByTorrent returns the episode rows referencing a torrent.
func (c *Client) EpisodesByTorrent(ctx context.Context, torrentID string) []Episode {
	filter := fmt.Sprintf(`torrent = "%s"`, escapeFilter(torrentID))
	items, err := listAll[Episode](ctx, c, collectionShows, filter, "")
	if err != nil {
		c.logger.Warn().Err(err).Str("torrent", torrentID).Msg("episode listing by torrent failed")
	}
	return items
}
