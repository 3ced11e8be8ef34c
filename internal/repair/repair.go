// Package repair re-adds torrents whose mount path has disappeared.
// A dead path usually means the debrid provider dropped the torrent;
// as long as the info-hash is known the content can be requested
// again. Rows that cannot be repaired are dissolved: their media rows
// are orphaned so a future pack can re-claim them.
package repair

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/driftwood/driftwood/internal/config"
	"github.com/driftwood/driftwood/internal/store"
)

// Action is what HandleMissing did with a missing torrent.
type Action string

const (
	// ActionRepaired: a replacement debrid torrent was added and the
	// row now points at it.
	ActionRepaired Action = "repaired"
	// ActionRetrying: this attempt did not produce a new path, but
	// attempts remain. The row is kept for the next cycle.
	ActionRetrying Action = "retrying"
	// ActionOrphaned: repair is impossible or exhausted. Media rows
	// were detached and the torrent row deleted.
	ActionOrphaned Action = "orphaned"
)

// Store is the record-store slice the repairer needs.
type Store interface {
	UpdateTorrent(ctx context.Context, id string, fields map[string]any) bool
	DeleteTorrent(ctx context.Context, id string) bool
	FilmsByTorrent(ctx context.Context, torrentID string) []store.Film
	EpisodesByTorrent(ctx context.Context, torrentID string) []store.Episode
	UpdateFilm(ctx context.Context, id string, fields map[string]any) bool
	UpdateEpisode(ctx context.Context, id string, fields map[string]any) bool
}

// Debrid is the provider slice the repairer needs. *debrid.Client
// satisfies it.
type Debrid interface {
	IsConfigured() bool
	AddMagnet(ctx context.Context, hash string) (string, error)
	SelectVideoFiles(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// Repairer drives the missing-path state machine.
type Repairer struct {
	store  Store
	debrid Debrid
	cfg    config.RepairConfig
	logger zerolog.Logger
}

// New creates a repairer.
func New(st Store, d Debrid, cfg config.RepairConfig, logger zerolog.Logger) *Repairer {
	return &Repairer{
		store:  st,
		debrid: d,
		cfg:    cfg,
		logger: logger.With().Str("component", "repair").Logger(),
	}
}

// HandleMissing processes one torrent whose mount path is gone. The
// caller has already established the path no longer exists.
func (r *Repairer) HandleMissing(ctx context.Context, t *store.Torrent) Action {
	if !r.eligible(t) {
		r.logger.Warn().
			Str("name", t.Name).Str("hash", t.Hash).
			Int("attempts", t.RepairAttempts).Int("max", r.cfg.MaxAttempts).
			Msg("torrent not repairable, orphaning media")
		return r.orphan(ctx, t)
	}

	attempt := t.RepairAttempts + 1
	newID, err := r.debrid.AddMagnet(ctx, t.Hash)
	if err != nil {
		r.store.UpdateTorrent(ctx, t.ID, map[string]any{"repair_attempts": attempt})
		r.logger.Warn().Err(err).
			Str("name", t.Name).Int("attempt", attempt).
			Msg("repair attempt failed, will retry")
		return ActionRetrying
	}

	if newID == "" {
		// Already active on the provider side; the mount should
		// repopulate on its own.
		r.store.UpdateTorrent(ctx, t.ID, map[string]any{"repair_attempts": attempt})
		r.logger.Info().Str("name", t.Name).Msg("torrent already active, waiting for mount")
		return ActionRetrying
	}

	if _, err := r.debrid.SelectVideoFiles(ctx, newID); err != nil {
		r.logger.Warn().Err(err).Str("rd_id", newID).Msg("file selection on repaired torrent failed")
	}
	if t.DebridID != "" && t.DebridID != newID {
		if err := r.debrid.Delete(ctx, t.DebridID); err != nil {
			r.logger.Warn().Err(err).Str("rd_id", t.DebridID).Msg("stale debrid torrent not deleted")
		}
	}

	r.store.UpdateTorrent(ctx, t.ID, map[string]any{
		"repair_attempts": attempt,
		"rd_id":           newID,
	})
	r.logger.Info().
		Str("name", t.Name).Str("rd_id", newID).Int("attempt", attempt).
		Msg("torrent re-added")
	return ActionRepaired
}

func (r *Repairer) eligible(t *store.Torrent) bool {
	return r.cfg.Enabled &&
		r.debrid.IsConfigured() &&
		t.Hash != "" &&
		t.RepairAttempts < r.cfg.MaxAttempts
}

// orphan detaches every film and episode the torrent backs and
// deletes the row. Orphaned media keeps its identification, so a
// later pack re-links rather than re-resolving from scratch.
func (r *Repairer) orphan(ctx context.Context, t *store.Torrent) Action {
	for _, f := range r.store.FilmsByTorrent(ctx, t.ID) {
		r.store.UpdateFilm(ctx, f.ID, map[string]any{"torrent": ""})
	}
	for _, e := range r.store.EpisodesByTorrent(ctx, t.ID) {
		r.store.UpdateEpisode(ctx, e.ID, map[string]any{"torrent": ""})
	}
	r.store.DeleteTorrent(ctx, t.ID)
	return ActionOrphaned
}
