// Package identify turns unclaimed mount entries into film and
// episode records: classification, show-structure matching, and the
// duplicate contests that decide which torrent keeps each record.
package identify

import (
	"path/filepath"
	"regexp"
)

// MediaType is the classifier's verdict for a mount entry.
type MediaType int

const (
	MediaMovie MediaType = iota
	MediaShow
)

func (m MediaType) String() string {
	if m == MediaShow {
		return "show"
	}
	return "movie"
}

// showPatterns mark names as episodic content. Order matters only for
// readability; any hit decides.
var showPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[Ss]\d{1,2}[Ee]\d{1,3}`),
	regexp.MustCompile(`[Ss]\d{1,2}`),
	regexp.MustCompile(`(?i)[Ss]eason[\s._-]?\d`),
	regexp.MustCompile(`[Ee]\d{2,3}`),
	regexp.MustCompile(`(?i)Episode[\s._-]?\d`),
	regexp.MustCompile(`(?i)\bComplete[\s._-]?Series\b`),
	regexp.MustCompile(`(?i)\bBatch\b`),
	regexp.MustCompile(`\b\d{1,2}x\d{2}\b`),
}

func matchesShowPattern(name string) bool {
	for _, re := range showPatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Classify decides whether a mount entry is a film or a show. The
// entry name is checked first; failing that, a sample of the file
// names votes; failing that, anything with more than three videos is
// assumed to be a pack of episodes.
func Classify(entryName string, videos []string) MediaType {
	if matchesShowPattern(entryName) {
		return MediaShow
	}

	sample := videos
	if len(sample) > 20 {
		sample = sample[:20]
	}
	matches := 0
	for _, v := range sample {
		if matchesShowPattern(filepath.Base(v)) {
			matches++
		}
	}
	if matches*2 > len(sample) {
		return MediaShow
	}

	if len(videos) > 3 {
		return MediaShow
	}
	return MediaMovie
}
