package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/driftwood/driftwood/internal/identify"
	"github.com/driftwood/driftwood/internal/metadata"
	"github.com/driftwood/driftwood/internal/mount"
	"github.com/driftwood/driftwood/internal/release"
	"github.com/driftwood/driftwood/internal/store"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <torrent-id> <tmdb-id> [film|show]",
		Short: "Manually assign a catalogue id to an unidentified torrent",
		Long: `Assigns a TMDB id to a torrent the automatic pipeline could not
identify. The id is looked up as a movie first, then as a TV show,
unless the type is forced. Existing media rows for the torrent are
replaced and the manual flag is cleared; the next scan cycle builds
the symlinks.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmdbID, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("tmdb-id must be a number, got %q", args[1])
			}
			forced := ""
			if len(args) == 3 {
				forced = args[2]
				if forced != "film" && forced != "show" {
					return fmt.Errorf("type must be film or show, got %q", forced)
				}
			}
			return runResolve(cmd.Context(), args[0], tmdbID, forced)
		},
	}
}

func runResolve(ctx context.Context, torrentID string, tmdbID int, forced string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Close()

	st := store.New(cfg.Store.URL, log.Logger)
	torrent := st.TorrentByID(ctx, torrentID)
	if torrent == nil {
		return fmt.Errorf("torrent %q not found", torrentID)
	}
	fmt.Printf("Torrent: %s (score %d)\nPath:    %s\n", torrent.Name, torrent.Score, torrent.Path)

	catalogue := metadata.New(cfg.Metadata.BaseURL, cfg.Metadata.APIKey, log.Logger)
	if !catalogue.IsConfigured() {
		return fmt.Errorf("metadata.api_key is not set")
	}

	mediaType, result, err := lookup(ctx, catalogue, tmdbID, forced)
	if err != nil {
		return err
	}
	fmt.Printf("Found:   %s (%d) [%s]\n\n", result.Title, result.Year, mediaType)

	// Replace whatever a previous attempt produced.
	films := st.FilmsByTorrent(ctx, torrentID)
	episodes := st.EpisodesByTorrent(ctx, torrentID)
	if len(films) > 0 || len(episodes) > 0 {
		fmt.Printf("Removing %d existing film(s) and %d episode row(s)\n", len(films), len(episodes))
		for _, f := range films {
			st.DeleteFilm(ctx, f.ID)
		}
		for _, e := range episodes {
			st.DeleteEpisode(ctx, e.ID)
		}
	}

	resolver := identify.NewResolver(st, log.Logger)
	if mediaType == "film" {
		outcome := resolver.ResolveFilm(ctx, torrent.ID, torrent.Score, result.TMDBID, result.Title, result.Year)
		fmt.Printf("Film %s (%d): %s\n", result.Title, result.Year, outcome)
	} else {
		if err := resolveShow(ctx, cfg.Mount.Root, resolver, torrent, result, log.Logger); err != nil {
			return err
		}
	}

	st.UpdateTorrent(ctx, torrent.ID, map[string]any{"manual": false})
	fmt.Println("\nDone. The next scan cycle will build symlinks.")
	return nil
}

func lookup(ctx context.Context, catalogue *metadata.Client, tmdbID int, forced string) (string, *metadata.Result, error) {
	if forced != "show" {
		if r, err := catalogue.MovieByID(ctx, tmdbID); err == nil {
			return "film", r, nil
		}
	}
	if forced != "film" {
		if r, err := catalogue.ShowByID(ctx, tmdbID); err == nil {
			return "show", r, nil
		}
	}
	return "", nil, fmt.Errorf("tmdb id %d not found", tmdbID)
}

// resolveShow claims one episode row per parsed episode of each video
// file. Parser only, season defaulting to 1; an operator forcing an id
// presumably knows the pack is sanely named.
func resolveShow(ctx context.Context, mountRoot string,
	resolver *identify.Resolver, torrent *store.Torrent, result *metadata.Result,
	log zerolog.Logger) error {
	scanner := mount.NewScanner(mountRoot, log)
	videos := scanner.VideoFiles(torrent.Path)
	if len(videos) == 0 {
		return fmt.Errorf("no video files found at %s", torrent.Path)
	}

	claimed := 0
	for _, video := range videos {
		base := filepath.Base(video)
		info := release.Parse(base, release.Episode)
		if len(info.Episodes) == 0 {
			fmt.Printf("Skipping (no episode detected): %s\n", base)
			continue
		}
		season := info.Season
		if season == 0 {
			season = 1
		}
		for _, ep := range info.Episodes {
			claimed++
			outcome := resolver.ResolveEpisode(ctx, torrent.ID, torrent.Score,
				result.TMDBID, result.Title, result.Year, season, ep)
			fmt.Printf("%s S%02dE%02d: %s\n", result.Title, season, ep, outcome)
		}
	}
	if claimed == 0 {
		fmt.Println("WARNING: no episodes could be parsed from the video files")
	}
	return nil
}
