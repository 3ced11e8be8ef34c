package metadata

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// EpisodeRef is one episode of a show structure.
type EpisodeRef struct {
	Season  int
	Episode int
	Title   string
}

// ShowStructure is the complete non-specials episode listing of a
// show, ordered seasons ascending then episodes ascending. The
// absolute ordering maps a 1-based cross-season index onto a
// (season, episode) pair, which season packs with flat numbering
// (E18 of a 12+13 show meaning S02E06) rely on.
type ShowStructure struct {
	TMDBID   int
	Episodes []EpisodeRef

	slots    map[SeasonEpisode]bool
	absolute []SeasonEpisode
	seasons  []int
}

// NewShowStructure builds a structure from an episode list, indexing
// it for slot and absolute-order lookups. Specials (season 0) should
// already be filtered out by the caller.
func NewShowStructure(tmdbID int, eps []EpisodeRef) *ShowStructure {
	sort.Slice(eps, func(i, j int) bool {
		if eps[i].Season != eps[j].Season {
			return eps[i].Season < eps[j].Season
		}
		return eps[i].Episode < eps[j].Episode
	})

	st := &ShowStructure{
		TMDBID:   tmdbID,
		Episodes: eps,
		slots:    make(map[SeasonEpisode]bool, len(eps)),
		absolute: make([]SeasonEpisode, 0, len(eps)),
	}

	seen := make(map[int]bool)
	for _, e := range eps {
		pair := SeasonEpisode{Season: e.Season, Episode: e.Episode}
		st.slots[pair] = true
		st.absolute = append(st.absolute, pair)
		if !seen[e.Season] {
			seen[e.Season] = true
			st.seasons = append(st.seasons, e.Season)
		}
	}
	return st
}

// TotalEpisodes returns the number of non-special episodes.
func (st *ShowStructure) TotalEpisodes() int {
	return len(st.Episodes)
}

// SeasonCount returns the number of non-special seasons.
func (st *ShowStructure) SeasonCount() int {
	return len(st.seasons)
}

// HasEpisode reports whether the pair exists in the structure.
func (st *ShowStructure) HasEpisode(season, episode int) bool {
	return st.slots[SeasonEpisode{Season: season, Episode: episode}]
}

// AbsoluteLookup maps a 1-based cross-season episode index onto its
// (season, episode) pair.
func (st *ShowStructure) AbsoluteLookup(n int) (SeasonEpisode, bool) {
	if n < 1 || n > len(st.absolute) {
		return SeasonEpisode{}, false
	}
	return st.absolute[n-1], true
}

// EpisodesForNumber returns every (season, episode) pair whose episode
// number matches, across all seasons.
func (st *ShowStructure) EpisodesForNumber(episode int) []SeasonEpisode {
	var pairs []SeasonEpisode
	for _, p := range st.absolute {
		if p.Episode == episode {
			pairs = append(pairs, p)
		}
	}
	return pairs
}

// seasonSummary renders the per-season episode counts for logging,
// e.g. "S01×12, S02×13".
func (st *ShowStructure) seasonSummary() string {
	counts := make(map[int]int)
	for _, e := range st.Episodes {
		counts[e.Season]++
	}
	parts := make([]string, 0, len(st.seasons))
	for _, s := range st.seasons {
		parts = append(parts, fmt.Sprintf("S%02d×%d", s, counts[s]))
	}
	return strings.Join(parts, ", ")
}

// GetShowStructure fetches the episode structure of a show, memoised
// for the process lifetime. Misses are memoised too: a show that
// failed to fetch or has no episodes stays nil until restart.
func (c *Client) GetShowStructure(ctx context.Context, tmdbID int) *ShowStructure {
	c.mu.Lock()
	if st, ok := c.structures[tmdbID]; ok {
		c.mu.Unlock()
		return st
	}
	c.mu.Unlock()

	st := c.fetchStructure(ctx, tmdbID)

	c.mu.Lock()
	c.structures[tmdbID] = st
	c.mu.Unlock()
	return st
}

func (c *Client) fetchStructure(ctx context.Context, tmdbID int) *ShowStructure {
	if !c.IsConfigured() {
		return nil
	}

	var details struct {
		Seasons []struct {
			SeasonNumber int `json:"season_number"`
		} `json:"seasons"`
	}
	endpoint := fmt.Sprintf("%s/tv/%d", c.baseURL, tmdbID)
	if err := c.doRequest(ctx, endpoint, url.Values{}, &details); err != nil {
		c.logger.Warn().Err(err).Int("tmdb_id", tmdbID).Msg("show structure fetch failed")
		return nil
	}

	var eps []EpisodeRef
	for _, season := range details.Seasons {
		if season.SeasonNumber <= 0 {
			continue // specials
		}

		var sd struct {
			Episodes []struct {
				EpisodeNumber int    `json:"episode_number"`
				Name          string `json:"name"`
			} `json:"episodes"`
		}
		seasonEndpoint := fmt.Sprintf("%s/tv/%d/season/%d", c.baseURL, tmdbID, season.SeasonNumber)
		if err := c.doRequest(ctx, seasonEndpoint, url.Values{}, &sd); err != nil {
			c.logger.Warn().Err(err).
				Int("tmdb_id", tmdbID).
				Int("season", season.SeasonNumber).
				Msg("season fetch failed, skipping")
			continue
		}
		for _, e := range sd.Episodes {
			eps = append(eps, EpisodeRef{
				Season:  season.SeasonNumber,
				Episode: e.EpisodeNumber,
				Title:   e.Name,
			})
		}
	}

	if len(eps) == 0 {
		c.logger.Warn().Int("tmdb_id", tmdbID).Msg("show structure empty")
		return nil
	}

	st := NewShowStructure(tmdbID, eps)
	c.logger.Debug().
		Int("tmdb_id", tmdbID).
		Int("episodes", st.TotalEpisodes()).
		Str("seasons", st.seasonSummary()).
		Msg("show structure fetched")
	return st
}
