package identify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/driftwood/driftwood/internal/scoring"
	"github.com/driftwood/driftwood/internal/store"
)

// Store is the slice of the record store the identification pipeline
// needs. *store.Client satisfies it; tests use an in-memory fake.
type Store interface {
	TorrentByID(ctx context.Context, id string) *store.Torrent
	UpdateTorrent(ctx context.Context, id string, fields map[string]any) bool
	FilmByTMDB(ctx context.Context, tmdbID int) *store.Film
	CreateFilm(ctx context.Context, torrentID string, tmdbID int, title string, year int) *store.Film
	UpdateFilm(ctx context.Context, id string, fields map[string]any) bool
	EpisodeByKey(ctx context.Context, tmdbID, season, episode int) *store.Episode
	CreateEpisode(ctx context.Context, torrentID string, tmdbID int, title string, year, season, episode int) *store.Episode
	UpdateEpisode(ctx context.Context, id string, fields map[string]any) bool
	FilmsByTorrent(ctx context.Context, torrentID string) []store.Film
	EpisodesByTorrent(ctx context.Context, torrentID string) []store.Episode
}

// Outcome is the result of one duplicate contest.
type Outcome string

const (
	// OutcomeCreated: no prior claim existed, a new row was created.
	OutcomeCreated Outcome = "created"
	// OutcomeRelinked: the row existed but was orphaned; taken over.
	OutcomeRelinked Outcome = "relinked"
	// OutcomeWon: the new torrent out-scored the incumbent.
	OutcomeWon Outcome = "won"
	// OutcomeLost: the incumbent kept the row. Ties go to the incumbent.
	OutcomeLost Outcome = "lost"
)

// Resolver arbitrates which torrent backs each film and episode row.
// The same primitives serve the scan loop and the manual resolve CLI.
type Resolver struct {
	store  Store
	logger zerolog.Logger
}

// NewResolver creates a duplicate resolver.
func NewResolver(st Store, logger zerolog.Logger) *Resolver {
	return &Resolver{
		store:  st,
		logger: logger.With().Str("component", "resolver").Logger(),
	}
}

// ResolveFilm settles a film claim. A losing new torrent is archived
// immediately; a displaced incumbent is archived too, since a film is
// its torrent's only possible claim. Re-applying the holder's own
// claim is a no-op.
func (r *Resolver) ResolveFilm(ctx context.Context, torrentID string, torrentScore, tmdbID int, title string, year int) Outcome {
	existing := r.store.FilmByTMDB(ctx, tmdbID)

	if existing == nil {
		r.store.CreateFilm(ctx, torrentID, tmdbID, title, year)
		r.logger.Info().
			Str("title", title).Int("year", year).Int("tmdb_id", tmdbID).
			Str("score", scoring.FormatScore(torrentScore)).
			Msg("film created")
		return OutcomeCreated
	}

	if existing.Torrent == torrentID {
		r.logger.Debug().Str("title", title).Int("year", year).Msg("film claim already held")
		return OutcomeWon
	}

	if existing.Torrent == "" {
		r.store.UpdateFilm(ctx, existing.ID, map[string]any{"torrent": torrentID})
		r.logger.Info().Str("title", title).Int("year", year).Msg("film re-linked")
		return OutcomeRelinked
	}

	existingScore := r.incumbentScore(ctx, existing.ExpandedTorrent(), existing.Torrent)
	if torrentScore > existingScore {
		r.store.UpdateFilm(ctx, existing.ID, map[string]any{"torrent": torrentID})
		r.store.UpdateTorrent(ctx, existing.Torrent, map[string]any{"archived": true})
		r.logger.Info().
			Str("title", title).Int("year", year).
			Str("new", scoring.FormatScore(torrentScore)).
			Str("old", scoring.FormatScore(existingScore)).
			Msg("film contest: new torrent wins")
		return OutcomeWon
	}

	r.store.UpdateTorrent(ctx, torrentID, map[string]any{"archived": true})
	r.logger.Info().
		Str("title", title).Int("year", year).
		Str("new", scoring.FormatScore(torrentScore)).
		Str("old", scoring.FormatScore(existingScore)).
		Msg("film contest: existing torrent wins, archiving new")
	return OutcomeLost
}

// ResolveEpisode settles one (season, episode) claim. On a win the
// displaced torrent is archived only when it backs nothing else; on a
// loss the new torrent is left alone, since its other episodes may
// still win.
func (r *Resolver) ResolveEpisode(ctx context.Context, torrentID string, torrentScore, tmdbID int, title string, year, season, episode int) Outcome {
	existing := r.store.EpisodeByKey(ctx, tmdbID, season, episode)

	if existing == nil {
		r.store.CreateEpisode(ctx, torrentID, tmdbID, title, year, season, episode)
		r.logger.Info().
			Str("title", title).Int("season", season).Int("episode", episode).Int("tmdb_id", tmdbID).
			Str("score", scoring.FormatScore(torrentScore)).
			Msg("episode created")
		return OutcomeCreated
	}

	if existing.Torrent == torrentID {
		r.logger.Debug().
			Str("title", title).Int("season", season).Int("episode", episode).
			Msg("episode claim already held")
		return OutcomeWon
	}

	if existing.Torrent == "" {
		r.store.UpdateEpisode(ctx, existing.ID, map[string]any{"torrent": torrentID})
		r.logger.Info().
			Str("title", title).Int("season", season).Int("episode", episode).
			Msg("episode re-linked")
		return OutcomeRelinked
	}

	existingScore := r.incumbentScore(ctx, existing.ExpandedTorrent(), existing.Torrent)
	if torrentScore > existingScore {
		r.store.UpdateEpisode(ctx, existing.ID, map[string]any{"torrent": torrentID})
		r.logger.Info().
			Str("title", title).Int("season", season).Int("episode", episode).
			Str("new", scoring.FormatScore(torrentScore)).
			Str("old", scoring.FormatScore(existingScore)).
			Msg("episode contest: new torrent wins")
		r.maybeArchiveOrphan(ctx, existing.Torrent)
		return OutcomeWon
	}

	r.logger.Info().
		Str("title", title).Int("season", season).Int("episode", episode).
		Str("new", scoring.FormatScore(torrentScore)).
		Str("old", scoring.FormatScore(existingScore)).
		Msg("episode contest: existing torrent wins")
	return OutcomeLost
}

// incumbentScore reads the current claim holder's score, preferring
// the expanded relation over a second fetch.
func (r *Resolver) incumbentScore(ctx context.Context, expanded *store.Torrent, torrentID string) int {
	if expanded != nil {
		return expanded.Score
	}
	if t := r.store.TorrentByID(ctx, torrentID); t != nil {
		return t.Score
	}
	return 0
}

// maybeArchiveOrphan archives a torrent that no longer backs any film
// or episode row.
func (r *Resolver) maybeArchiveOrphan(ctx context.Context, torrentID string) {
	if len(r.store.FilmsByTorrent(ctx, torrentID)) > 0 {
		return
	}
	if len(r.store.EpisodesByTorrent(ctx, torrentID)) > 0 {
		return
	}
	r.store.UpdateTorrent(ctx, torrentID, map[string]any{"archived": true})
	r.logger.Info().Str("torrent", torrentID).Msg("torrent archived, no media remaining")
}
