package organizer

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Apply reconciles the on-disk library against the desired map and
// reports which roots changed. Links already pointing at the right
// target are never touched; recreating them would invalidate open
// file handles on active playback.
func (o *Organizer) Apply(desired map[string]string) (filmsChanged, showsChanged bool) {
	onDisk := make(map[string]string)
	o.collectLinks(o.filmsDir, onDisk)
	o.collectLinks(o.showsDir, onDisk)

	for link, target := range onDisk {
		want, wanted := desired[link]
		if wanted && want == target {
			continue
		}
		if err := os.Remove(link); err != nil {
			o.logger.Warn().Err(err).Str("link", link).Msg("stale symlink not removed")
			continue
		}
		o.markChanged(link, &filmsChanged, &showsChanged)
		if wanted {
			o.logger.Debug().Str("link", link).Str("old", target).Str("new", want).Msg("retargeting symlink")
		} else {
			o.logger.Debug().Str("link", link).Msg("removed stale symlink")
		}
	}

	for link, target := range desired {
		if have, ok := onDisk[link]; ok && have == target {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
			o.logger.Warn().Err(err).Str("link", link).Msg("parent directory not created")
			continue
		}
		if err := os.Symlink(target, link); err != nil {
			o.logger.Warn().Err(err).Str("link", link).Msg("symlink not created")
			continue
		}
		o.markChanged(link, &filmsChanged, &showsChanged)
		o.logger.Debug().Str("link", link).Str("target", target).Msg("created symlink")
	}

	o.pruneEmptyDirs(o.filmsDir)
	o.pruneEmptyDirs(o.showsDir)
	return filmsChanged, showsChanged
}

// collectLinks walks a root and records every symlink with its raw
// readlink value.
func (o *Organizer) collectLinks(root string, into map[string]string) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			o.logger.Debug().Err(err).Str("path", path).Msg("library walk error, skipping")
			return nil //nolint:nilerr
		}
		if d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		target, err := os.Readlink(path)
		if err != nil {
			return nil //nolint:nilerr
		}
		into[path] = target
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		o.logger.Warn().Err(err).Str("root", root).Msg("library walk failed")
	}
}

// pruneEmptyDirs removes empty directories bottom-up, leaving the
// root itself in place.
func (o *Organizer) pruneEmptyDirs(root string) {
	var dirs []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})

	// Deepest first.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err == nil {
			o.logger.Debug().Str("dir", dir).Msg("removed empty directory")
		}
	}
}

func (o *Organizer) markChanged(link string, films, shows *bool) {
	if strings.HasPrefix(link, o.filmsDir+string(os.PathSeparator)) {
		*films = true
	}
	if strings.HasPrefix(link, o.showsDir+string(os.PathSeparator)) {
		*shows = true
	}
}
