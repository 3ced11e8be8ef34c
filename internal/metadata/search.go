package metadata

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

// WordSet splits a title into its lowercase alphanumeric words.
func WordSet(s string) map[string]bool {
	words := wordRe.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// Jaccard computes word-set similarity of two titles in [0, 1].
func Jaccard(a, b string) float64 {
	sa, sb := WordSet(a), WordSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0.0
	}
	intersection := 0
	for w := range sa {
		if sb[w] {
			intersection++
		}
	}
	union := len(sa) + len(sb) - intersection
	return float64(intersection) / float64(union)
}

// SearchFilm resolves a film title against the catalogue. Results,
// including misses, are cached until ResetCycle.
func (c *Client) SearchFilm(ctx context.Context, title string, year int) *Result {
	key := cacheKey(title, year)
	c.mu.Lock()
	if r, ok := c.filmCache[key]; ok {
		c.mu.Unlock()
		return r
	}
	c.mu.Unlock()

	result := c.searchUncached(ctx, "/search/movie", "year", title, year)

	c.mu.Lock()
	c.filmCache[key] = result
	c.mu.Unlock()
	return result
}

// SearchShow resolves a show title against the catalogue. Results,
// including misses, are cached until ResetCycle.
func (c *Client) SearchShow(ctx context.Context, title string, year int) *Result {
	key := cacheKey(title, year)
	c.mu.Lock()
	if r, ok := c.showCache[key]; ok {
		c.mu.Unlock()
		return r
	}
	c.mu.Unlock()

	result := c.searchUncached(ctx, "/search/tv", "first_air_date_year", title, year)

	c.mu.Lock()
	c.showCache[key] = result
	c.mu.Unlock()
	return result
}

func cacheKey(title string, year int) string {
	return fmt.Sprintf("%s|%d", strings.ToLower(title), year)
}

// searchUncached queries the catalogue, retrying once without the
// year when a year-constrained search comes back empty. Failures are
// absorbed: an unreachable catalogue reads as "no match".
func (c *Client) searchUncached(ctx context.Context, path, yearParam, title string, year int) *Result {
	if !c.IsConfigured() {
		c.logger.Debug().Msg("catalogue search skipped, no API key")
		return nil
	}

	cands, err := c.fetchCandidates(ctx, path, yearParam, title, year)
	if err != nil {
		c.logger.Warn().Err(err).Str("title", title).Int("year", year).Msg("catalogue search failed")
		return nil
	}
	if len(cands) == 0 && year > 0 {
		cands, err = c.fetchCandidates(ctx, path, yearParam, title, 0)
		if err != nil {
			c.logger.Warn().Err(err).Str("title", title).Msg("catalogue retry without year failed")
			return nil
		}
	}

	result := bestMatch(title, year, cands)
	if result == nil {
		c.logger.Debug().Str("title", title).Int("year", year).Msg("no catalogue match")
		return nil
	}
	c.logger.Debug().
		Str("title", title).
		Int("year", year).
		Int("tmdb_id", result.TMDBID).
		Str("matched", result.Title).
		Msg("catalogue match")
	return result
}

type searchCandidate struct {
	id         int
	title      string
	year       int
	popularity float64
}

func (c *Client) fetchCandidates(ctx context.Context, path, yearParam, title string, year int) ([]searchCandidate, error) {
	params := url.Values{}
	params.Set("query", title)
	params.Set("include_adult", "false")
	if year > 0 {
		params.Set(yearParam, strconv.Itoa(year))
	}

	var resp struct {
		Results []struct {
			ID           int     `json:"id"`
			Title        string  `json:"title"`
			Name         string  `json:"name"`
			ReleaseDate  string  `json:"release_date"`
			FirstAirDate string  `json:"first_air_date"`
			Popularity   float64 `json:"popularity"`
		} `json:"results"`
	}
	if err := c.doRequest(ctx, c.baseURL+path, params, &resp); err != nil {
		return nil, err
	}

	cands := make([]searchCandidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		titleField := r.Title
		if titleField == "" {
			titleField = r.Name
		}
		dateField := r.ReleaseDate
		if dateField == "" {
			dateField = r.FirstAirDate
		}
		cands = append(cands, searchCandidate{
			id:         r.ID,
			title:      titleField,
			year:       yearOf(dateField),
			popularity: r.Popularity,
		})
	}
	return cands, nil
}

// bestMatch scores every candidate against the query and returns the
// highest. Exact year agreement dominates, then title word overlap;
// recency, popularity and the catalogue's own ranking break ties.
func bestMatch(queryTitle string, queryYear int, cands []searchCandidate) *Result {
	if len(cands) == 0 {
		return nil
	}
	currentYear := time.Now().Year()

	bestIdx := -1
	bestScore := -1.0
	for i, cand := range cands {
		score := 0.0
		if queryYear > 0 && cand.year == queryYear {
			score += 0.3
		}
		score += Jaccard(queryTitle, cand.title)
		if cand.year > 0 {
			age := float64(currentYear - cand.year)
			if age < 0 {
				age = 0
			}
			score += 0.1 * math.Exp(-0.2*age)
		}
		pop := cand.popularity / 100
		if pop > 1 {
			pop = 1
		}
		score += 0.1 * pop
		score += 0.05 * (1 - float64(i)/float64(len(cands)))

		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	best := cands[bestIdx]
	return &Result{TMDBID: best.id, Title: best.title, Year: best.year}
}
