// Package release extracts structured fields from torrent and video
// file names.
package release

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/moistari/rls"
)

// Hint tells Parse what kind of name it is looking at. The parser
// itself is untyped; the hint decides which fields survive.
type Hint int

const (
	// Any keeps every parsed field.
	Any Hint = iota
	// Movie drops season/episode fields the parser may have invented.
	Movie
	// Episode keeps season/episode fields even when the parser
	// classified the name as a movie.
	Episode
)

// Info is the parsed shape of one release name.
type Info struct {
	Title      string
	Year       int
	Season     int
	Episodes   []int
	Resolution string
	Source     string
	Codecs     []string
	Audio      []string
	Other      []string
	HDR        []string
}

var (
	// Runs of episode markers: S01E01E02, E05E06E07.
	episodeRunRe = regexp.MustCompile(`(?i)(?:S\d{1,2})?((?:[._ ]?E\d{1,3}){2,})`)
	// Ranged markers: S01E01-E03, E01-03.
	episodeRangeRe = regexp.MustCompile(`(?i)(?:S\d{1,2})?E(\d{1,3})\s*-\s*E?(\d{1,3})`)
	episodeNumRe   = regexp.MustCompile(`(?i)E(\d{1,3})`)
	// Bare markers at the start of a file stem: "E18", "07 - Title".
	bareEpisodeRe = regexp.MustCompile(`^[Ee]?(\d{1,4})([\s._-]|$)`)

	meaninglessTitleRe = regexp.MustCompile(`^(?:\d+|[\W_]+|.{0,2})$`)
)

// Parse extracts fields from a release name.
func Parse(name string, hint Hint) Info {
	r := rls.ParseString(name)

	info := Info{
		Title:      r.Title,
		Year:       r.Year,
		Season:     r.Series,
		Episodes:   episodeList(name, r.Episode),
		Resolution: r.Resolution,
		Source:     r.Source,
		Codecs:     r.Codec,
		Audio:      r.Audio,
		Other:      r.Other,
		HDR:        r.HDR,
	}

	switch hint {
	case Movie:
		info.Season = 0
		info.Episodes = nil
	case Episode:
		// Season-pack members are often named by episode number
		// alone ("E18.mkv", "07 - Title.mkv"); the parser sees no
		// episode in those. A number the parser already read as the
		// year is not an episode marker.
		if len(info.Episodes) == 0 {
			if e := bareEpisodeNumber(name); e > 0 && e != info.Year {
				info.Episodes = []int{e}
			}
		}
	}
	return info
}

// bareEpisodeNumber reads a leading episode marker from a file stem.
// A stem that is digits glued to letters ("1080p") never matches.
func bareEpisodeNumber(name string) int {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	m := bareEpisodeRe.FindStringSubmatch(stem)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// episodeList expands multi-episode markers the parser reports only
// the head of. A packed run (E01E02) or a range (E01-E03) yields the
// full list; otherwise the single parsed episode stands.
func episodeList(name string, first int) []int {
	if m := episodeRunRe.FindStringSubmatch(name); m != nil {
		nums := episodeNumRe.FindAllStringSubmatch(m[1], -1)
		eps := make([]int, 0, len(nums))
		for _, n := range nums {
			v, err := strconv.Atoi(n[1])
			if err == nil {
				eps = append(eps, v)
			}
		}
		if len(eps) >= 2 {
			return eps
		}
	}
	if m := episodeRangeRe.FindStringSubmatch(name); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if hi > lo && hi-lo < 50 {
			eps := make([]int, 0, hi-lo+1)
			for e := lo; e <= hi; e++ {
				eps = append(eps, e)
			}
			return eps
		}
	}
	if first > 0 {
		return []int{first}
	}
	return nil
}

// IsMeaninglessTitle reports whether a parsed title carries no usable
// signal: empty, purely numeric, purely punctuation, or at most two
// characters.
func IsMeaninglessTitle(title string) bool {
	return meaninglessTitleRe.MatchString(strings.TrimSpace(title))
}

// ValidYear reports whether a parsed year is plausible and, when a
// reference text is given, actually present in it as a literal
// substring. The substring check guards against parser inventions;
// it knowingly accepts coincidences like "1080" matching inside a
// resolution token.
func ValidYear(year int, reference string) bool {
	if year < 1920 || year > time.Now().Year()+1 {
		return false
	}
	if reference != "" && !strings.Contains(reference, strconv.Itoa(year)) {
		return false
	}
	return true
}
