package identify

import (
	"context"
	"fmt"
	"strings"

	"github.com/driftwood/driftwood/internal/metadata"
	"github.com/driftwood/driftwood/internal/store"
)

// fakeStore is an in-memory Store for resolver and identifier tests.
type fakeStore struct {
	torrents map[string]*store.Torrent
	films    []*store.Film
	episodes []*store.Episode
	nextID   int
}

func newFakeStore(torrents ...*store.Torrent) *fakeStore {
	fs := &fakeStore{torrents: make(map[string]*store.Torrent)}
	for _, t := range torrents {
		fs.torrents[t.ID] = t
	}
	return fs
}

func (f *fakeStore) id() string {
	f.nextID++
	return fmt.Sprintf("rec%03d", f.nextID)
}

func (f *fakeStore) TorrentByID(_ context.Context, id string) *store.Torrent {
	t, ok := f.torrents[id]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

func (f *fakeStore) UpdateTorrent(_ context.Context, id string, fields map[string]any) bool {
	t, ok := f.torrents[id]
	if !ok {
		return false
	}
	if v, ok := fields["archived"]; ok {
		t.Archived = v.(bool)
	}
	if v, ok := fields["manual"]; ok {
		t.Manual = v.(bool)
	}
	if v, ok := fields["score"]; ok {
		t.Score = v.(int)
	}
	return true
}

func (f *fakeStore) FilmByTMDB(_ context.Context, tmdbID int) *store.Film {
	for _, fl := range f.films {
		if fl.TMDBID == tmdbID {
			cp := *fl
			return &cp
		}
	}
	return nil
}

func (f *fakeStore) CreateFilm(_ context.Context, torrentID string, tmdbID int, title string, year int) *store.Film {
	fl := &store.Film{ID: f.id(), Torrent: torrentID, TMDBID: tmdbID, Title: title, Year: year}
	f.films = append(f.films, fl)
	cp := *fl
	return &cp
}

func (f *fakeStore) UpdateFilm(_ context.Context, id string, fields map[string]any) bool {
	for _, fl := range f.films {
		if fl.ID == id {
			if v, ok := fields["torrent"]; ok {
				fl.Torrent = v.(string)
			}
			return true
		}
	}
	return false
}

func (f *fakeStore) EpisodeByKey(_ context.Context, tmdbID, season, episode int) *store.Episode {
	for _, e := range f.episodes {
		if e.TMDBID == tmdbID && e.Season == season && e.Episode == episode {
			cp := *e
			return &cp
		}
	}
	return nil
}

func (f *fakeStore) CreateEpisode(_ context.Context, torrentID string, tmdbID int, title string, year, season, episode int) *store.Episode {
	e := &store.Episode{
		ID: f.id(), Torrent: torrentID, TMDBID: tmdbID,
		Title: title, Year: year, Season: season, Episode: episode,
	}
	f.episodes = append(f.episodes, e)
	cp := *e
	return &cp
}

func (f *fakeStore) UpdateEpisode(_ context.Context, id string, fields map[string]any) bool {
	for _, e := range f.episodes {
		if e.ID == id {
			if v, ok := fields["torrent"]; ok {
				e.Torrent = v.(string)
			}
			return true
		}
	}
	return false
}

func (f *fakeStore) FilmsByTorrent(_ context.Context, torrentID string) []store.Film {
	var out []store.Film
	for _, fl := range f.films {
		if fl.Torrent == torrentID {
			out = append(out, *fl)
		}
	}
	return out
}

func (f *fakeStore) EpisodesByTorrent(_ context.Context, torrentID string) []store.Episode {
	var out []store.Episode
	for _, e := range f.episodes {
		if e.Torrent == torrentID {
			out = append(out, *e)
		}
	}
	return out
}

// fakeCatalogue answers title searches from fixed maps.
type fakeCatalogue struct {
	films      map[string]*metadata.Result
	shows      map[string]*metadata.Result
	structures map[int]*metadata.ShowStructure
}

func (f *fakeCatalogue) SearchFilm(_ context.Context, title string, _ int) *metadata.Result {
	return f.films[strings.ToLower(title)]
}

func (f *fakeCatalogue) SearchShow(_ context.Context, title string, _ int) *metadata.Result {
	return f.shows[strings.ToLower(title)]
}

func (f *fakeCatalogue) GetShowStructure(_ context.Context, tmdbID int) *metadata.ShowStructure {
	return f.structures[tmdbID]
}
