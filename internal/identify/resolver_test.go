package identify

import (
	"context"
	"testing"

	"github.com/driftwood/driftwood/internal/store"
	"github.com/driftwood/driftwood/internal/testutil"
)

func TestResolveFilmCreated(t *testing.T) {
	fs := newFakeStore(&store.Torrent{ID: "t1", Score: 80})
	r := NewResolver(fs, testutil.NopLogger())

	got := r.ResolveFilm(context.Background(), "t1", 80, 550, "Fight Club", 1999)
	if got != OutcomeCreated {
		t.Fatalf("outcome = %q, want created", got)
	}
	if len(fs.films) != 1 || fs.films[0].Torrent != "t1" || fs.films[0].TMDBID != 550 {
		t.Errorf("film row = %+v, want one row linked to t1", fs.films)
	}
}

func TestResolveFilmRelinked(t *testing.T) {
	fs := newFakeStore(&store.Torrent{ID: "t1", Score: 80})
	fs.films = []*store.Film{{ID: "f1", Torrent: "", TMDBID: 550, Title: "Fight Club", Year: 1999}}
	r := NewResolver(fs, testutil.NopLogger())

	got := r.ResolveFilm(context.Background(), "t1", 80, 550, "Fight Club", 1999)
	if got != OutcomeRelinked {
		t.Fatalf("outcome = %q, want relinked", got)
	}
	if fs.films[0].Torrent != "t1" {
		t.Errorf("film torrent = %q, want t1", fs.films[0].Torrent)
	}
}

func TestResolveFilmWon(t *testing.T) {
	fs := newFakeStore(
		&store.Torrent{ID: "old", Score: 60},
		&store.Torrent{ID: "new", Score: 110},
	)
	fs.films = []*store.Film{{ID: "f1", Torrent: "old", TMDBID: 550, Title: "Fight Club", Year: 1999}}
	r := NewResolver(fs, testutil.NopLogger())

	got := r.ResolveFilm(context.Background(), "new", 110, 550, "Fight Club", 1999)
	if got != OutcomeWon {
		t.Fatalf("outcome = %q, want won", got)
	}
	if fs.films[0].Torrent != "new" {
		t.Errorf("film torrent = %q, want new", fs.films[0].Torrent)
	}
	if !fs.torrents["old"].Archived {
		t.Error("displaced film torrent must be archived")
	}
}

func TestResolveFilmReappliedClaimIsNoop(t *testing.T) {
	fs := newFakeStore(&store.Torrent{ID: "t1", Score: 80})
	r := NewResolver(fs, testutil.NopLogger())

	if got := r.ResolveFilm(context.Background(), "t1", 80, 550, "Fight Club", 1999); got != OutcomeCreated {
		t.Fatalf("first outcome = %q, want created", got)
	}
	got := r.ResolveFilm(context.Background(), "t1", 80, 550, "Fight Club", 1999)
	if got != OutcomeWon {
		t.Fatalf("second outcome = %q, want won for the holder", got)
	}
	if fs.torrents["t1"].Archived {
		t.Error("re-applying the holder's own claim must never archive it")
	}
	if len(fs.films) != 1 || fs.films[0].Torrent != "t1" {
		t.Errorf("film rows = %+v, want the single row still on t1", fs.films)
	}
}

func TestResolveFilmTieGoesToIncumbent(t *testing.T) {
	fs := newFakeStore(
		&store.Torrent{ID: "old", Score: 100},
		&store.Torrent{ID: "new", Score: 100},
	)
	fs.films = []*store.Film{{ID: "f1", Torrent: "old", TMDBID: 550, Title: "Fight Club", Year: 1999}}
	r := NewResolver(fs, testutil.NopLogger())

	got := r.ResolveFilm(context.Background(), "new", 100, 550, "Fight Club", 1999)
	if got != OutcomeLost {
		t.Fatalf("outcome = %q, want lost on a tie", got)
	}
	if fs.films[0].Torrent != "old" {
		t.Errorf("film torrent = %q, want old", fs.films[0].Torrent)
	}
	if !fs.torrents["new"].Archived {
		t.Error("losing film torrent must be archived")
	}
	if fs.torrents["old"].Archived {
		t.Error("incumbent must not be archived")
	}
}

func TestResolveFilmPrefersExpandedScore(t *testing.T) {
	// The expanded relation carries the incumbent score; the row's
	// torrent id points at nothing fetchable.
	fs := newFakeStore(&store.Torrent{ID: "new", Score: 90})
	fs.films = []*store.Film{{
		ID: "f1", Torrent: "gone", TMDBID: 550, Title: "Fight Club", Year: 1999,
		Expand: &store.Expand{Torrent: &store.Torrent{ID: "gone", Score: 120}},
	}}
	r := NewResolver(fs, testutil.NopLogger())

	if got := r.ResolveFilm(context.Background(), "new", 90, 550, "Fight Club", 1999); got != OutcomeLost {
		t.Errorf("outcome = %q, want lost against expanded score 120", got)
	}
}

func TestResolveEpisodeWonArchivesOrphanedIncumbent(t *testing.T) {
	fs := newFakeStore(
		&store.Torrent{ID: "old", Score: 40},
		&store.Torrent{ID: "new", Score: 95},
	)
	fs.episodes = []*store.Episode{{
		ID: "e1", Torrent: "old", TMDBID: 7, Title: "Show", Year: 2020, Season: 1, Episode: 1,
	}}
	r := NewResolver(fs, testutil.NopLogger())

	got := r.ResolveEpisode(context.Background(), "new", 95, 7, "Show", 2020, 1, 1)
	if got != OutcomeWon {
		t.Fatalf("outcome = %q, want won", got)
	}
	if fs.episodes[0].Torrent != "new" {
		t.Errorf("episode torrent = %q, want new", fs.episodes[0].Torrent)
	}
	if !fs.torrents["old"].Archived {
		t.Error("incumbent backing nothing else must be archived")
	}
}

func TestResolveEpisodeWonKeepsIncumbentWithOtherClaims(t *testing.T) {
	fs := newFakeStore(
		&store.Torrent{ID: "old", Score: 40},
		&store.Torrent{ID: "new", Score: 95},
	)
	fs.episodes = []*store.Episode{
		{ID: "e1", Torrent: "old", TMDBID: 7, Title: "Show", Year: 2020, Season: 1, Episode: 1},
		{ID: "e2", Torrent: "old", TMDBID: 7, Title: "Show", Year: 2020, Season: 1, Episode: 2},
	}
	r := NewResolver(fs, testutil.NopLogger())

	if got := r.ResolveEpisode(context.Background(), "new", 95, 7, "Show", 2020, 1, 1); got != OutcomeWon {
		t.Fatalf("outcome = %q, want won", got)
	}
	if fs.torrents["old"].Archived {
		t.Error("incumbent still backing episode 2 must not be archived")
	}
}

func TestResolveEpisodeLostDoesNotArchiveNewTorrent(t *testing.T) {
	fs := newFakeStore(
		&store.Torrent{ID: "old", Score: 120},
		&store.Torrent{ID: "new", Score: 70},
	)
	fs.episodes = []*store.Episode{{
		ID: "e1", Torrent: "old", TMDBID: 7, Title: "Show", Year: 2020, Season: 1, Episode: 1,
	}}
	r := NewResolver(fs, testutil.NopLogger())

	if got := r.ResolveEpisode(context.Background(), "new", 70, 7, "Show", 2020, 1, 1); got != OutcomeLost {
		t.Fatalf("outcome = %q, want lost", got)
	}
	// Other episodes from the same pack may still win; archiving is
	// the identifier's call once every contest is settled.
	if fs.torrents["new"].Archived {
		t.Error("losing episode torrent must not be archived per contest")
	}
}

func TestResolveEpisodeRelinked(t *testing.T) {
	fs := newFakeStore(&store.Torrent{ID: "t1", Score: 50})
	fs.episodes = []*store.Episode{{
		ID: "e1", Torrent: "", TMDBID: 7, Title: "Show", Year: 2020, Season: 2, Episode: 3,
	}}
	r := NewResolver(fs, testutil.NopLogger())

	if got := r.ResolveEpisode(context.Background(), "t1", 50, 7, "Show", 2020, 2, 3); got != OutcomeRelinked {
		t.Fatalf("outcome = %q, want relinked", got)
	}
	if fs.episodes[0].Torrent != "t1" {
		t.Errorf("episode torrent = %q, want t1", fs.episodes[0].Torrent)
	}
}

func TestResolveEpisodeReappliedClaimIsNoop(t *testing.T) {
	fs := newFakeStore(&store.Torrent{ID: "t1", Score: 50})
	fs.episodes = []*store.Episode{{
		ID: "e1", Torrent: "t1", TMDBID: 7, Title: "Show", Year: 2020, Season: 1, Episode: 1,
	}}
	r := NewResolver(fs, testutil.NopLogger())

	// The holder must never lose to itself; a lost outcome here would
	// let the identifier archive a pack that still owns every episode.
	got := r.ResolveEpisode(context.Background(), "t1", 50, 7, "Show", 2020, 1, 1)
	if got != OutcomeWon {
		t.Fatalf("outcome = %q, want won for the holder", got)
	}
	if fs.torrents["t1"].Archived {
		t.Error("re-applying the holder's own claim must never archive it")
	}
	if fs.episodes[0].Torrent != "t1" {
		t.Errorf("episode torrent = %q, want t1 unchanged", fs.episodes[0].Torrent)
	}
}
