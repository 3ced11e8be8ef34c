package organizer

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	unsafeCharsRe = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// Sanitize removes characters media servers reject in file names,
// collapses whitespace and trims trailing spaces and dots.
func Sanitize(name string) string {
	name = unsafeCharsRe.ReplaceAllString(name, "")
	name = whitespaceRe.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	return strings.TrimRight(name, ". ")
}

// FormatMediaName builds a folder name: "Title (Year) [tmdbid=N]".
// The format is identical for films and shows; zero year or tmdb id
// drops the part.
func FormatMediaName(title string, year, tmdbID int) string {
	parts := []string{Sanitize(title)}
	if year != 0 {
		parts = append(parts, fmt.Sprintf("(%d)", year))
	}
	if tmdbID != 0 {
		parts = append(parts, fmt.Sprintf("[tmdbid=%d]", tmdbID))
	}
	return strings.Join(parts, " ")
}

// FormatEpisodeName builds an episode file stem:
// "Title (Year) S01E01" or "Title (Year) S01E01E02" for a file
// covering several episodes. No tmdb id here; only the show folder
// carries it.
func FormatEpisodeName(title string, year, season int, episodes []int) string {
	var sb strings.Builder
	sb.WriteString(Sanitize(title))
	if year != 0 {
		fmt.Fprintf(&sb, " (%d)", year)
	}
	fmt.Fprintf(&sb, " S%02d", season)
	for _, e := range episodes {
		fmt.Fprintf(&sb, "E%02d", e)
	}
	return sb.String()
}
