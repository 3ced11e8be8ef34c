// Package mount enumerates the remote-debrid mount: top-level entries
// and the video files inside them.
package mount

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// VideoExtensions contains the file extensions treated as video.
var VideoExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpg":  true,
	".mpeg": true,
	".ts":   true,
	".vob":  true,
	".m2ts": true,
	".iso":  true,
}

// IsVideoFile checks if a filename has a video extension.
func IsVideoFile(filename string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Entry is one top-level mount entry: a torrent folder or a loose
// video file. Videos holds absolute paths.
type Entry struct {
	Name   string
	Path   string
	Videos []string
}

// Scanner walks the mount root.
type Scanner struct {
	root   string
	logger zerolog.Logger
}

// NewScanner creates a scanner over a mount root.
func NewScanner(root string, logger zerolog.Logger) *Scanner {
	return &Scanner{
		root:   root,
		logger: logger.With().Str("component", "mount").Logger(),
	}
}

// Root returns the mount root path.
func (s *Scanner) Root() string {
	return s.root
}

// Scan enumerates the top level of the mount. Directories are walked
// recursively for video files; loose video files become single-video
// entries. Walk errors are logged per entry and do not abort the scan.
func (s *Scanner) Scan() []Entry {
	dirents, err := os.ReadDir(s.root)
	if err != nil {
		s.logger.Warn().Err(err).Str("root", s.root).Msg("mount root not readable")
		return nil
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		path := filepath.Join(s.root, d.Name())
		if d.IsDir() {
			videos := s.walkVideos(path)
			entries = append(entries, Entry{Name: d.Name(), Path: path, Videos: videos})
			continue
		}
		if IsVideoFile(d.Name()) {
			entries = append(entries, Entry{Name: d.Name(), Path: path, Videos: []string{path}})
		}
	}
	return entries
}

// VideoFiles re-enumerates the video files under one torrent path,
// which may be a directory or a single file.
func (s *Scanner) VideoFiles(path string) []string {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if !info.IsDir() {
		if IsVideoFile(path) {
			return []string{path}
		}
		return nil
	}
	return s.walkVideos(path)
}

func (s *Scanner) walkVideos(dir string) []string {
	var videos []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			s.logger.Warn().Err(walkErr).Str("path", path).Msg("walk error, skipping")
			return nil //nolint:nilerr // Record error but continue scanning
		}
		if d.IsDir() || !IsVideoFile(d.Name()) {
			return nil
		}
		videos = append(videos, path)
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("dir", dir).Msg("directory walk failed")
	}
	return videos
}

// WaitForMount polls until the mount root exists and has at least one
// entry, up to five minutes. It returns false on timeout or cancel;
// the caller is expected to warn and carry on.
func (s *Scanner) WaitForMount(ctx context.Context) bool {
	s.logger.Info().Str("root", s.root).Msg("Waiting for mount")
	for attempt := 0; attempt < 60; attempt++ {
		if dirents, err := os.ReadDir(s.root); err == nil && len(dirents) > 0 {
			s.logger.Info().Msg("Mount detected")
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(5 * time.Second):
		}
	}
	s.logger.Warn().Msg("Mount not detected after 5 minutes")
	return false
}
