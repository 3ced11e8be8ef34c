// Package scoring ranks release names by quality. When two torrents
// claim the same media, the higher score keeps it.
package scoring

import (
	"fmt"
	"strings"

	"github.com/driftwood/driftwood/internal/release"
)

var resolutionScores = map[string]int{
	"4320p": 100,
	"8k":    100,
	"2160p": 90,
	"4k":    90,
	"1080p": 70,
	"1080i": 65,
	"720p":  50,
	"576p":  30,
	"480p":  20,
	"360p":  10,
}

// sourceScores maps normalised parser tokens onto the source ladder.
// Aliases share their bucket's value.
var sourceScores = map[string]int{
	"uhdbluray":     65,
	"ultrahdbluray": 65,
	"bluray":        60,
	"bdrip":         60,
	"brrip":         60,
	"hddvd":         55,
	"web":           40,
	"webdl":         40,
	"webrip":        40,
	"hdtv":          35,
	"dvd":           30,
	"dvdrip":        30,
	"pdtv":          25,
	"sdtv":          20,
	"telecine":      10,
	"tc":            10,
	"telesync":      8,
	"ts":            8,
	"vhs":           5,
	"workprint":     3,
	"wp":            3,
	"cam":           1,
	"camrip":        1,
	"hdcam":         1,
	"camera":        1,
}

var codecScores = map[string]int{
	"av1":   35,
	"h265":  30,
	"x265":  30,
	"hevc":  30,
	"h264":  20,
	"x264":  20,
	"avc":   20,
	"vp9":   18,
	"mpeg2": 5,
	"xvid":  3,
	"divx":  3,
}

const (
	remuxBonus         = 25
	hdrBonus           = 15
	atmosBonus         = 10
	losslessAudioBonus = 8
)

var losslessMarkers = []string{"DTS-HD", "TRUEHD", "TRUE HD", "FLAC", "PCM", "LPCM"}

// Score computes the quality score of a release name. Higher is
// better. The same name always produces the same score.
func Score(name string) int {
	info := release.Parse(name, release.Any)
	upper := strings.ToUpper(name)
	score := 0

	score += resolutionScores[normalizeToken(info.Resolution)]

	src := normalizeToken(info.Source)
	srcScore := sourceScores[src]
	// A plain Blu-ray token next to a UHD marker is the 2160p disc.
	if srcScore == sourceScores["bluray"] && srcScore > 0 && strings.Contains(upper, "UHD") {
		srcScore = sourceScores["uhdbluray"]
	}
	score += srcScore

	best := 0
	for _, c := range info.Codecs {
		if s := codecScores[normalizeToken(c)]; s > best {
			best = s
		}
	}
	score += best

	if strings.Contains(upper, "REMUX") {
		score += remuxBonus
	}

	if len(info.HDR) > 0 ||
		strings.Contains(upper, "HDR") ||
		strings.Contains(upper, "DV") ||
		strings.Contains(upper, "DOLBY.VISION") {
		score += hdrBonus
	}

	audioStr := strings.ToUpper(strings.Join(info.Audio, " ")) + " " + upper
	for _, m := range losslessMarkers {
		if strings.Contains(audioStr, m) {
			score += losslessAudioBonus
			break
		}
	}

	if strings.Contains(upper, "ATMOS") ||
		strings.Contains(upper, "DTS:X") ||
		strings.Contains(upper, "DTS-X") {
		score += atmosBonus
	}

	return score
}

// FormatScore renders a score as a star label for log lines.
func FormatScore(score int) string {
	switch {
	case score >= 200:
		return fmt.Sprintf("★★★★★ (%d)", score)
	case score >= 150:
		return fmt.Sprintf("★★★★ (%d)", score)
	case score >= 100:
		return fmt.Sprintf("★★★ (%d)", score)
	case score >= 50:
		return fmt.Sprintf("★★ (%d)", score)
	default:
		return fmt.Sprintf("★ (%d)", score)
	}
}

// normalizeToken lowercases a parser token and strips everything but
// letters and digits, so "Blu-ray", "BluRay" and "BLURAY" collapse.
func normalizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
