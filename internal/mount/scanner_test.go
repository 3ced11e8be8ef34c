package mount

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/driftwood/driftwood/internal/testutil"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanEmptyMount(t *testing.T) {
	s := NewScanner(t.TempDir(), testutil.NopLogger())
	if entries := s.Scan(); len(entries) != 0 {
		t.Errorf("entries = %v, want none", entries)
	}
}

func TestScanFoldersAndLooseFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Some.Show.S01", "Season 1", "e01.mkv"))
	writeFile(t, filepath.Join(root, "Some.Show.S01", "Season 1", "e02.mp4"))
	writeFile(t, filepath.Join(root, "Some.Show.S01", "info.nfo"))
	writeFile(t, filepath.Join(root, "Loose.Film.2020.1080p.mkv"))
	writeFile(t, filepath.Join(root, "readme.txt"))

	s := NewScanner(root, testutil.NopLogger())
	entries := s.Scan()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (non-video loose file skipped)", len(entries))
	}

	byName := map[string]Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}

	show, ok := byName["Some.Show.S01"]
	if !ok {
		t.Fatal("missing folder entry")
	}
	if len(show.Videos) != 2 {
		t.Errorf("folder videos = %v, want 2 (nfo excluded)", show.Videos)
	}

	loose, ok := byName["Loose.Film.2020.1080p.mkv"]
	if !ok {
		t.Fatal("missing loose file entry")
	}
	if len(loose.Videos) != 1 || loose.Videos[0] != loose.Path {
		t.Errorf("loose entry videos = %v, want its own path", loose.Videos)
	}
}

func TestScanEmptyFolderStillListed(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "Empty.Pack"), 0755); err != nil {
		t.Fatal(err)
	}

	s := NewScanner(root, testutil.NopLogger())
	entries := s.Scan()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if len(entries[0].Videos) != 0 {
		t.Errorf("videos = %v, want none", entries[0].Videos)
	}
}

func TestVideoFiles(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "pack")
	writeFile(t, filepath.Join(dir, "a.mkv"))
	writeFile(t, filepath.Join(dir, "sub", "b.avi"))
	writeFile(t, filepath.Join(dir, "c.srt"))
	loose := filepath.Join(root, "film.mp4")
	writeFile(t, loose)

	s := NewScanner(root, testutil.NopLogger())

	if got := s.VideoFiles(dir); len(got) != 2 {
		t.Errorf("VideoFiles(dir) = %v, want 2", got)
	}
	if got := s.VideoFiles(loose); len(got) != 1 {
		t.Errorf("VideoFiles(loose) = %v, want 1", got)
	}
	if got := s.VideoFiles(filepath.Join(root, "gone")); got != nil {
		t.Errorf("VideoFiles(missing) = %v, want nil", got)
	}
	writeFile(t, filepath.Join(root, "notes.txt"))
	if got := s.VideoFiles(filepath.Join(root, "notes.txt")); got != nil {
		t.Errorf("VideoFiles(non-video) = %v, want nil", got)
	}
}

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"film.mkv", true},
		{"film.MKV", true},
		{"disc.iso", true},
		{"stream.m2ts", true},
		{"subs.srt", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := IsVideoFile(tt.name); got != tt.want {
			t.Errorf("IsVideoFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
