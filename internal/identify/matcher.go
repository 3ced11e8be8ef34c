package identify

import (
	"regexp"
	"strings"

	"github.com/driftwood/driftwood/internal/metadata"
)

// Minimum Jaccard overlap for a title-based episode match.
const titleMatchThreshold = 0.45

var (
	// Leading show-name + SxxEyy marker: "Show.Name.S01E01.Title..."
	leadingMarkerRe = regexp.MustCompile(`^.*?[Ss]\d{1,2}[Ee]\d{1,3}\s*[-._]*\s*`)
	// Bare episode marker at the front: "E01 - Title", "01 - Title".
	leadingNumberRe = regexp.MustCompile(`^[Ee]?\d{1,4}\s*[-._]+\s*`)
	// Inner "- 07 -" or "- Episode 07 -" runs.
	innerNumberRe = regexp.MustCompile(`(?i)[-._]\s*(?:Episode\s*)?\d{1,4}\s*[-._]`)
	// Quality/codec tail; everything from the first marker onwards goes.
	qualityTailRe = regexp.MustCompile(`(?i)[\[(]?\b(?:720p|1080p|2160p|4K|BluRay|BDRip|WEB[-.]?DL|WEB[-.]?Rip|HDTV|x264|x265|H\.?264|H\.?265|HEVC|AAC|DTS|FLAC|10bit|REMUX|HDR|DV|Atmos)\b.*$`)
	separatorRe   = regexp.MustCompile(`[._-]+`)
	extensionRe   = regexp.MustCompile(`\.[A-Za-z0-9]{2,4}$`)
)

// MatchEpisodes maps a video file onto (season, episode) pairs of a
// show structure. season == 0 means the parser found no season. The
// strategies run in order; the first confident one wins:
//
//  1. verify the parsed pair(s) against the structure;
//  2. absolute numbering across seasons (multi-season shows only);
//  3. fuzzy match of the filename's title portion against episode
//     titles;
//  4. an episode number that exists in exactly one season.
//
// Returns nil when nothing was confident enough.
func MatchEpisodes(filename string, season int, episodes []int, st *metadata.ShowStructure) []metadata.SeasonEpisode {
	if st == nil {
		return nil
	}

	if season > 0 && len(episodes) > 0 {
		pairs := make([]metadata.SeasonEpisode, 0, len(episodes))
		allValid := true
		for _, ep := range episodes {
			if !st.HasEpisode(season, ep) {
				allValid = false
				break
			}
			pairs = append(pairs, metadata.SeasonEpisode{Season: season, Episode: ep})
		}
		if allValid {
			return pairs
		}
	}

	if len(episodes) > 0 && st.SeasonCount() > 1 {
		pairs := make([]metadata.SeasonEpisode, 0, len(episodes))
		allFound := true
		for _, ep := range episodes {
			pair, ok := st.AbsoluteLookup(ep)
			if !ok {
				allFound = false
				break
			}
			pairs = append(pairs, pair)
		}
		if allFound && len(pairs) > 0 {
			return pairs
		}
	}

	if pair, ok := matchByTitle(filename, st); ok {
		return []metadata.SeasonEpisode{pair}
	}

	if season == 0 && len(episodes) > 0 {
		for _, ep := range episodes {
			if pairs := st.EpisodesForNumber(ep); len(pairs) == 1 {
				return pairs
			}
		}
	}

	return nil
}

// matchByTitle fuzzy-matches the filename's probable episode-title
// portion against the structure's episode titles. Requires at least
// two query words so a stray token cannot match alone.
func matchByTitle(filename string, st *metadata.ShowStructure) (metadata.SeasonEpisode, bool) {
	text := extractTitleText(filename)
	if len(metadata.WordSet(text)) < 2 {
		return metadata.SeasonEpisode{}, false
	}

	bestScore := 0.0
	var best *metadata.EpisodeRef
	for i := range st.Episodes {
		ep := &st.Episodes[i]
		if ep.Title == "" {
			continue
		}
		score := metadata.Jaccard(text, ep.Title)
		if score > bestScore {
			bestScore = score
			best = ep
		}
	}

	if best == nil || bestScore < titleMatchThreshold {
		return metadata.SeasonEpisode{}, false
	}
	return metadata.SeasonEpisode{Season: best.Season, Episode: best.Episode}, true
}

// extractTitleText strips episode markers and quality tags from a
// filename, leaving what is hopefully the episode title.
func extractTitleText(filename string) string {
	name := extensionRe.ReplaceAllString(filename, "")
	name = leadingMarkerRe.ReplaceAllString(name, "")
	name = leadingNumberRe.ReplaceAllString(name, "")
	name = innerNumberRe.ReplaceAllString(name, " ")
	name = qualityTailRe.ReplaceAllString(name, "")
	name = separatorRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
