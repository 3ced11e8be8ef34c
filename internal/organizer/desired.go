// Package organizer derives the desired symlink tree from the record
// store and reconciles the on-disk library against it. The store is
// the source of truth; every cycle rebuilds the full desired map and
// applies only the difference, so a crash mid-apply heals on the next
// pass.
package organizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/driftwood/driftwood/internal/config"
	"github.com/driftwood/driftwood/internal/identify"
	"github.com/driftwood/driftwood/internal/metadata"
	"github.com/driftwood/driftwood/internal/store"
)

// Store is the record-store slice the organizer reads.
type Store interface {
	Films(ctx context.Context) []store.Film
	Episodes(ctx context.Context) []store.Episode
}

// Catalogue resolves show structures for episode-to-file assignment.
type Catalogue interface {
	GetShowStructure(ctx context.Context, tmdbID int) *metadata.ShowStructure
}

// Lister enumerates the video files under one torrent path.
// *mount.Scanner satisfies it.
type Lister interface {
	VideoFiles(path string) []string
}

// Organizer owns the films and shows library roots.
type Organizer struct {
	store     Store
	catalogue Catalogue
	mount     Lister

	filmsDir     string
	showsDir     string
	hostRoot     string
	consumerRoot string

	logger zerolog.Logger
}

// New creates an organizer for the configured library roots.
func New(st Store, cat Catalogue, m Lister, lib config.LibraryConfig, mnt config.MountConfig, logger zerolog.Logger) *Organizer {
	return &Organizer{
		store:        st,
		catalogue:    cat,
		mount:        m,
		filmsDir:     lib.FilmsDir,
		showsDir:     lib.ShowsDir,
		hostRoot:     mnt.Root,
		consumerRoot: mnt.ConsumerRoot,
		logger:       logger.With().Str("component", "organizer").Logger(),
	}
}

// BuildDesired maps every wanted symlink path to its target. Orphaned
// rows and rows whose torrent path holds no videos contribute nothing;
// the latter are the missing-path cases another phase repairs.
func (o *Organizer) BuildDesired(ctx context.Context) map[string]string {
	desired := make(map[string]string)
	videoCache := make(map[string][]string)

	for _, f := range o.store.Films(ctx) {
		t := f.ExpandedTorrent()
		if f.Torrent == "" || t == nil {
			continue
		}
		videos := o.videosFor(videoCache, t)
		if len(videos) == 0 {
			continue
		}
		source := largestFile(videos)
		name := FormatMediaName(f.Title, f.Year, f.TMDBID)
		link := filepath.Join(o.filmsDir, name, name+filepath.Ext(source))
		desired[link] = o.consumerTarget(source)
	}

	for _, e := range o.store.Episodes(ctx) {
		t := e.ExpandedTorrent()
		if e.Torrent == "" || t == nil {
			continue
		}
		videos := o.videosFor(videoCache, t)
		if len(videos) == 0 {
			continue
		}
		structure := o.catalogue.GetShowStructure(ctx, e.TMDBID)
		source, episodes := selectEpisodeFile(videos, t.Path, structure, e.Season, e.Episode)
		if source == "" {
			o.logger.Debug().
				Str("title", e.Title).Int("season", e.Season).Int("episode", e.Episode).
				Str("torrent", t.Name).
				Msg("no file in pack covers episode")
			continue
		}
		showName := FormatMediaName(e.Title, e.Year, e.TMDBID)
		stem := FormatEpisodeName(e.Title, e.Year, e.Season, episodes)
		link := filepath.Join(o.showsDir, showName,
			fmt.Sprintf("Season %02d", e.Season), stem+filepath.Ext(source))
		desired[link] = o.consumerTarget(source)
	}

	return desired
}

func (o *Organizer) videosFor(cache map[string][]string, t *store.Torrent) []string {
	if videos, ok := cache[t.ID]; ok {
		return videos
	}
	videos := o.mount.VideoFiles(t.Path)
	cache[t.ID] = videos
	return videos
}

// consumerTarget rewrites a host-side mount path to the path the
// media server sees. A plain prefix substitution; paths outside the
// mount pass through untouched.
func (o *Organizer) consumerTarget(path string) string {
	if o.hostRoot == "" || o.hostRoot == o.consumerRoot {
		return path
	}
	if rest, ok := strings.CutPrefix(path, o.hostRoot); ok {
		return o.consumerRoot + rest
	}
	return path
}

// largestFile picks the biggest file by stat size. Sampler files and
// extras lose to the feature this way.
func largestFile(videos []string) string {
	best := videos[0]
	var bestSize int64 = -1
	for _, v := range videos {
		info, err := os.Stat(v)
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best = v
			bestSize = info.Size()
		}
	}
	return best
}

// selectEpisodeFile finds the file whose derived (season, episode)
// assignment covers the wanted pair, re-deriving assignments exactly
// as identification did. Returns the file and every episode of the
// wanted season it covers, so multi-episode files get their combined
// name.
func selectEpisodeFile(videos []string, torrentPath string, structure *metadata.ShowStructure, season, episode int) (string, []int) {
	for _, v := range videos {
		pairs := identify.MatchVideo(v, torrentPath, structure)
		covered := false
		var episodes []int
		for _, p := range pairs {
			if p.Season != season {
				continue
			}
			episodes = append(episodes, p.Episode)
			if p.Episode == episode {
				covered = true
			}
		}
		if covered {
			return v, episodes
		}
	}
	return "", nil
}
