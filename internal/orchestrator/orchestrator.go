// Package orchestrator runs the reconciliation loop: scan the mount,
// sync torrent rows, identify new packs, repair dead ones, rebuild the
// symlink library and clean up archived rows. Phases run strictly in
// order; each absorbs its own failures so one bad cycle never takes
// the daemon down.
package orchestrator

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/driftwood/driftwood/internal/config"
	"github.com/driftwood/driftwood/internal/debrid"
	"github.com/driftwood/driftwood/internal/mount"
	"github.com/driftwood/driftwood/internal/repair"
	"github.com/driftwood/driftwood/internal/scoring"
	"github.com/driftwood/driftwood/internal/store"
)

// Store is the record-store slice the orchestrator drives directly.
type Store interface {
	TorrentByPath(ctx context.Context, path string) *store.Torrent
	CreateTorrent(ctx context.Context, t store.Torrent) *store.Torrent
	UpdateTorrent(ctx context.Context, id string, fields map[string]any) bool
	DeleteTorrent(ctx context.Context, id string) bool
	Torrents(ctx context.Context) []store.Torrent
	ArchivedTorrents(ctx context.Context) []store.Torrent
	FilmsByTorrent(ctx context.Context, torrentID string) []store.Film
	EpisodesByTorrent(ctx context.Context, torrentID string) []store.Episode
	UpdateFilm(ctx context.Context, id string, fields map[string]any) bool
	UpdateEpisode(ctx context.Context, id string, fields map[string]any) bool
}

// Scanner enumerates the mount. *mount.Scanner satisfies it.
type Scanner interface {
	Scan() []mount.Entry
}

// Catalogue is the per-cycle cache reset hook of the metadata client.
type Catalogue interface {
	ResetCycle()
}

// Identifier runs the identification pipeline for one torrent.
type Identifier interface {
	Process(ctx context.Context, t *store.Torrent, videos []string)
}

// Repairer handles torrents whose mount path disappeared.
type Repairer interface {
	HandleMissing(ctx context.Context, t *store.Torrent) repair.Action
}

// Organizer rebuilds the symlink library.
type Organizer interface {
	BuildDesired(ctx context.Context) map[string]string
	Apply(desired map[string]string) (filmsChanged, showsChanged bool)
}

// MediaServer receives per-library refresh signals.
type MediaServer interface {
	Refresh(ctx context.Context, filmsChanged, showsChanged bool)
}

// Debrid is the provider slice used for hydration and cleanup.
type Debrid interface {
	IsConfigured() bool
	ListAll(ctx context.Context) ([]debrid.Torrent, error)
	Delete(ctx context.Context, id string) error
}

// Orchestrator owns the scan loop and its trigger signal.
type Orchestrator struct {
	cfg         *config.Config
	store       Store
	scanner     Scanner
	catalogue   Catalogue
	identifier  Identifier
	repairer    Repairer
	organizer   Organizer
	mediaserver MediaServer
	debrid      Debrid
	logger      zerolog.Logger

	trigger chan struct{}
}

// New wires the orchestrator from its phase services.
func New(cfg *config.Config, st Store, scanner Scanner, catalogue Catalogue,
	identifier Identifier, repairer Repairer, org Organizer,
	media MediaServer, deb Debrid, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		store:       st,
		scanner:     scanner,
		catalogue:   catalogue,
		identifier:  identifier,
		repairer:    repairer,
		organizer:   org,
		mediaserver: media,
		debrid:      deb,
		logger:      logger.With().Str("component", "orchestrator").Logger(),
		trigger:     make(chan struct{}, 1),
	}
}

// Trigger requests an out-of-band cycle. Non-blocking; triggers
// arriving while one is already pending coalesce into a single cycle.
func (o *Orchestrator) Trigger() {
	select {
	case o.trigger <- struct{}{}:
	default:
	}
}

// Run executes cycles until the context is cancelled. The first cycle
// starts immediately; afterwards the loop waits for the earlier of the
// scan interval and a trigger.
func (o *Orchestrator) Run(ctx context.Context) {
	o.RunCycle(ctx)

	interval := time.Duration(o.cfg.Scan.IntervalSeconds) * time.Second
	for {
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		case <-o.trigger:
			timer.Stop()
		}
		// Clear a coalesced trigger before starting; signals arriving
		// during the cycle are intentionally dropped.
		select {
		case <-o.trigger:
		default:
		}
		o.RunCycle(ctx)
	}
}

type identifyItem struct {
	torrent *store.Torrent
	videos  []string
}

// RunCycle executes one full reconciliation pass. It never returns an
// error; every phase logs and absorbs its own failures.
func (o *Orchestrator) RunCycle(ctx context.Context) {
	cycle := uuid.New().String()[:8]
	logger := o.logger.With().Str("cycle", cycle).Logger()
	start := time.Now()
	logger.Info().Msg("scan cycle starting")

	o.catalogue.ResetCycle()

	entries := o.scanner.Scan()
	queue := o.syncEntries(ctx, logger, entries)

	for _, item := range queue {
		o.identifier.Process(ctx, item.torrent, item.videos)
	}

	o.repairMissing(ctx, logger)

	desired := o.organizer.BuildDesired(ctx)
	filmsChanged, showsChanged := o.organizer.Apply(desired)
	logger.Info().
		Int("links", len(desired)).
		Bool("films_changed", filmsChanged).Bool("shows_changed", showsChanged).
		Msg("library reconciled")
	o.mediaserver.Refresh(ctx, filmsChanged, showsChanged)

	if o.cfg.Scan.CleanupArchived {
		o.cleanupArchived(ctx, logger)
	}

	logger.Info().Dur("elapsed", time.Since(start)).Msg("scan cycle complete")
}

// syncEntries upserts a torrent row per mount entry and returns the
// identification queue: rows that are neither archived nor manual and
// have no media referencing them yet.
func (o *Orchestrator) syncEntries(ctx context.Context, logger zerolog.Logger, entries []mount.Entry) []identifyItem {
	remote := o.remoteByFilename(ctx, logger)

	var queue []identifyItem
	for _, entry := range entries {
		t := o.store.TorrentByPath(ctx, entry.Path)
		if t == nil {
			t = o.createTorrent(ctx, logger, entry, remote[entry.Name])
			if t == nil {
				continue
			}
		} else {
			t = o.hydrateTorrent(ctx, logger, t, remote[entry.Name])
		}

		if t.Archived || t.Manual {
			continue
		}
		if len(o.store.FilmsByTorrent(ctx, t.ID)) > 0 || len(o.store.EpisodesByTorrent(ctx, t.ID)) > 0 {
			continue
		}
		queue = append(queue, identifyItem{torrent: t, videos: entry.Videos})
	}

	logger.Info().Int("entries", len(entries)).Int("queued", len(queue)).Msg("mount synced")
	return queue
}

// remoteByFilename fetches the debrid torrent listing once per cycle,
// keyed by filename. The mount names entries after that filename, so
// the key joins the two worlds. Best effort; an empty map just means
// no hydration this cycle.
func (o *Orchestrator) remoteByFilename(ctx context.Context, logger zerolog.Logger) map[string]debrid.Torrent {
	if !o.debrid.IsConfigured() {
		return nil
	}
	listing, err := o.debrid.ListAll(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("debrid listing failed, skipping hydration")
		return nil
	}
	remote := make(map[string]debrid.Torrent, len(listing))
	for _, rt := range listing {
		remote[rt.Filename] = rt
	}
	return remote
}

func (o *Orchestrator) createTorrent(ctx context.Context, logger zerolog.Logger, entry mount.Entry, rt debrid.Torrent) *store.Torrent {
	row := store.Torrent{
		Name:  entry.Name,
		Path:  entry.Path,
		Score: scoring.Score(entry.Name),
	}
	if rt.ID != "" {
		row.DebridID = rt.ID
		row.DebridFilename = rt.Filename
		row.Hash = rt.Hash
		if s := scoring.Score(rt.Filename); s > row.Score {
			row.Score = s
		}
	}
	created := o.store.CreateTorrent(ctx, row)
	if created == nil {
		logger.Warn().Str("name", entry.Name).Msg("torrent row not created")
		return nil
	}
	logger.Info().Str("name", entry.Name).Str("score", scoring.FormatScore(created.Score)).Msg("new torrent")
	return created
}

// hydrateTorrent refreshes debrid-side fields on an existing row. A
// newly learned canonical filename resets the repair counter and may
// only raise the score.
func (o *Orchestrator) hydrateTorrent(ctx context.Context, logger zerolog.Logger, t *store.Torrent, rt debrid.Torrent) *store.Torrent {
	if rt.ID == "" {
		return t
	}
	fields := make(map[string]any)
	if t.DebridID != rt.ID {
		fields["rd_id"] = rt.ID
	}
	if t.Hash != rt.Hash {
		fields["hash"] = rt.Hash
	}
	if t.DebridFilename != rt.Filename {
		fields["rd_filename"] = rt.Filename
		fields["repair_attempts"] = 0
		if s := scoring.Score(rt.Filename); s > t.Score {
			fields["score"] = s
		}
	}
	if len(fields) == 0 {
		return t
	}
	if !o.store.UpdateTorrent(ctx, t.ID, fields) {
		return t
	}
	logger.Debug().Str("name", t.Name).Str("rd_filename", rt.Filename).Msg("torrent hydrated")

	updated := *t
	updated.DebridID = rt.ID
	updated.Hash = rt.Hash
	updated.DebridFilename = rt.Filename
	if v, ok := fields["score"]; ok {
		updated.Score = v.(int)
	}
	if _, ok := fields["repair_attempts"]; ok {
		updated.RepairAttempts = 0
	}
	return &updated
}

// repairMissing routes every torrent whose mount path is gone through
// the repair state machine.
func (o *Orchestrator) repairMissing(ctx context.Context, logger zerolog.Logger) {
	for _, t := range o.store.Torrents(ctx) {
		if _, err := os.Stat(t.Path); err == nil || !os.IsNotExist(err) {
			continue
		}
		t := t
		action := o.repairer.HandleMissing(ctx, &t)
		logger.Info().Str("name", t.Name).Str("action", string(action)).Msg("missing path handled")
	}
}

// cleanupArchived deletes archived torrents from the provider and the
// store, detaching their media rows first.
func (o *Orchestrator) cleanupArchived(ctx context.Context, logger zerolog.Logger) {
	for _, t := range o.store.ArchivedTorrents(ctx) {
		if t.DebridID != "" && o.debrid.IsConfigured() {
			if err := o.debrid.Delete(ctx, t.DebridID); err != nil {
				logger.Warn().Err(err).Str("rd_id", t.DebridID).Msg("debrid delete failed")
			}
		}
		for _, f := range o.store.FilmsByTorrent(ctx, t.ID) {
			o.store.UpdateFilm(ctx, f.ID, map[string]any{"torrent": ""})
		}
		for _, e := range o.store.EpisodesByTorrent(ctx, t.ID) {
			o.store.UpdateEpisode(ctx, e.ID, map[string]any{"torrent": ""})
		}
		o.store.DeleteTorrent(ctx, t.ID)
		logger.Info().Str("name", t.Name).Msg("archived torrent cleaned up")
	}
}
