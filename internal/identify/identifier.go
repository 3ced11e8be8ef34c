package identify

import (
	"context"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/driftwood/driftwood/internal/metadata"
	"github.com/driftwood/driftwood/internal/release"
	"github.com/driftwood/driftwood/internal/store"
)

// Catalogue is the metadata surface the identifier needs.
// *metadata.Client satisfies it.
type Catalogue interface {
	SearchFilm(ctx context.Context, title string, year int) *metadata.Result
	SearchShow(ctx context.Context, title string, year int) *metadata.Result
	GetShowStructure(ctx context.Context, tmdbID int) *metadata.ShowStructure
}

// seasonDirRe reads a season number out of a directory name such as
// "Season 1" or "S02".
var seasonDirRe = regexp.MustCompile(`(?i)(?:Season|S)\s*(\d+)`)

// Identifier runs the identification pipeline for one torrent:
// classify, search the catalogue, match episodes, and hand claims to
// the resolver.
type Identifier struct {
	store     Store
	catalogue Catalogue
	resolver  *Resolver
	logger    zerolog.Logger
}

// NewIdentifier creates an identifier.
func NewIdentifier(st Store, catalogue Catalogue, resolver *Resolver, logger zerolog.Logger) *Identifier {
	return &Identifier{
		store:     st,
		catalogue: catalogue,
		resolver:  resolver,
		logger:    logger.With().Str("component", "identify").Logger(),
	}
}

// Process identifies one torrent. It tries the classified type first
// and the other type on failure; when both fail the torrent is flagged
// for manual resolution.
func (i *Identifier) Process(ctx context.Context, t *store.Torrent, videos []string) {
	mediaType := Classify(t.Name, videos)
	i.logger.Debug().Str("name", t.Name).Stringer("type", mediaType).Msg("classified")

	var ok bool
	if mediaType == MediaShow {
		ok = i.identifyShow(ctx, t, videos) || i.identifyFilm(ctx, t)
	} else {
		ok = i.identifyFilm(ctx, t) || i.identifyShow(ctx, t, videos)
	}

	if !ok {
		i.store.UpdateTorrent(ctx, t.ID, map[string]any{"manual": true})
		i.logger.Warn().Str("name", t.Name).Msg("identification failed, flagged for manual resolution")
	}
}

// parseEntry parses the torrent's entry name, falling back to the
// canonical debrid filename when the mount name carries no usable
// title. Returns the parsed info and the name it came from.
func (i *Identifier) parseEntry(t *store.Torrent, hint release.Hint) (release.Info, string) {
	info := release.Parse(t.Name, hint)
	if release.IsMeaninglessTitle(info.Title) && t.DebridFilename != "" {
		i.logger.Debug().
			Str("name", t.Name).Str("rd_filename", t.DebridFilename).
			Msg("meaningless title, re-parsing debrid filename")
		return release.Parse(t.DebridFilename, hint), t.DebridFilename
	}
	return info, t.Name
}

func (i *Identifier) identifyFilm(ctx context.Context, t *store.Torrent) bool {
	info, parsedFrom := i.parseEntry(t, release.Movie)
	if release.IsMeaninglessTitle(info.Title) {
		return false
	}

	year := 0
	if release.ValidYear(info.Year, parsedFrom) {
		year = info.Year
	}

	result := i.catalogue.SearchFilm(ctx, info.Title, year)
	if result == nil {
		return false
	}

	i.resolver.ResolveFilm(ctx, t.ID, t.Score, result.TMDBID, result.Title, result.Year)
	return true
}

func (i *Identifier) identifyShow(ctx context.Context, t *store.Torrent, videos []string) bool {
	info, parsedFrom := i.parseEntry(t, release.Episode)
	if release.IsMeaninglessTitle(info.Title) {
		return false
	}

	year := 0
	if release.ValidYear(info.Year, parsedFrom) {
		year = info.Year
	}

	result := i.catalogue.SearchShow(ctx, info.Title, year)
	if result == nil {
		return false
	}
	structure := i.catalogue.GetShowStructure(ctx, result.TMDBID)

	resolved, lost := 0, 0
	for _, video := range videos {
		pairs := MatchVideo(video, t.Path, structure)
		if pairs == nil {
			i.logger.Debug().Str("file", filepath.Base(video)).Msg("no episode detected, skipping file")
			continue
		}
		for _, pair := range pairs {
			resolved++
			outcome := i.resolver.ResolveEpisode(ctx, t.ID, t.Score,
				result.TMDBID, result.Title, result.Year, pair.Season, pair.Episode)
			if outcome == OutcomeLost {
				lost++
			}
		}
	}

	if resolved == 0 {
		return false
	}
	if lost == resolved {
		// Every episode this pack offered is better served elsewhere.
		i.store.UpdateTorrent(ctx, t.ID, map[string]any{"archived": true})
		i.logger.Info().Str("name", t.Name).Int("episodes", resolved).
			Msg("all episode contests lost, archiving torrent")
	}
	return true
}

// MatchVideo maps one video file to its (season, episode) pairs. The
// structure matcher decides when one is available; a parser-only
// fallback with season defaulting to 1 covers shows without a usable
// structure. The symlink builder re-derives file assignments with the
// same function, so the two stay in lockstep.
func MatchVideo(videoPath, torrentPath string, structure *metadata.ShowStructure) []metadata.SeasonEpisode {
	base := filepath.Base(videoPath)
	info := release.Parse(base, release.Episode)

	season := info.Season
	if season == 0 {
		season = seasonFromPath(videoPath, torrentPath)
	}

	if pairs := MatchEpisodes(base, season, info.Episodes, structure); pairs != nil {
		return pairs
	}

	if len(info.Episodes) == 0 {
		return nil
	}
	if season == 0 {
		season = 1
	}
	pairs := make([]metadata.SeasonEpisode, 0, len(info.Episodes))
	for _, ep := range info.Episodes {
		pairs = append(pairs, metadata.SeasonEpisode{Season: season, Episode: ep})
	}
	return pairs
}

// seasonFromPath reads a season number from the directory names
// between the torrent root and the file.
func seasonFromPath(videoPath, torrentPath string) int {
	rel, err := filepath.Rel(torrentPath, videoPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return 0
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, part := range parts[:len(parts)-1] {
		if m := seasonDirRe.FindStringSubmatch(part); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 0
}
