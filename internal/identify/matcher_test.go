package identify

import (
	"testing"

	"github.com/driftwood/driftwood/internal/metadata"
)

// twoSeasonStructure builds S01×12 + S02×13 with named episodes in
// season two.
func twoSeasonStructure() *metadata.ShowStructure {
	var eps []metadata.EpisodeRef
	for e := 1; e <= 12; e++ {
		eps = append(eps, metadata.EpisodeRef{Season: 1, Episode: e})
	}
	titles := []string{
		"The Return", "Old Wounds", "A Long Way Down", "Night Visitors",
		"The Empty Chair", "Crossing the River", "Last Orders", "Blackout",
		"The Silent House", "No Way Back", "Winter Light", "Endgame", "Aftermath",
	}
	for e := 1; e <= 13; e++ {
		eps = append(eps, metadata.EpisodeRef{Season: 2, Episode: e, Title: titles[e-1]})
	}
	return metadata.NewShowStructure(100, eps)
}

func TestMatchVerifyParsedPair(t *testing.T) {
	st := twoSeasonStructure()

	got := MatchEpisodes("Show.S02E06.mkv", 2, []int{6}, st)
	if len(got) != 1 || got[0] != (metadata.SeasonEpisode{Season: 2, Episode: 6}) {
		t.Errorf("got %v, want [S02E06]", got)
	}
}

func TestMatchVerifyMultiEpisode(t *testing.T) {
	st := twoSeasonStructure()

	got := MatchEpisodes("Show.S01E01E02.mkv", 1, []int{1, 2}, st)
	if len(got) != 2 || got[0].Episode != 1 || got[1].Episode != 2 {
		t.Errorf("got %v, want [S01E01 S01E02]", got)
	}
}

func TestMatchAbsoluteNumbering(t *testing.T) {
	st := twoSeasonStructure()

	// E18 of a 12+13 show is S02E06.
	got := MatchEpisodes("E18.mkv", 0, []int{18}, st)
	if len(got) != 1 || got[0].Season != 2 || got[0].Episode != 6 {
		t.Errorf("got %v, want [S02E06]", got)
	}
}

func TestAbsoluteRequiresMultipleSeasons(t *testing.T) {
	var eps []metadata.EpisodeRef
	for e := 1; e <= 10; e++ {
		eps = append(eps, metadata.EpisodeRef{Season: 1, Episode: e})
	}
	single := metadata.NewShowStructure(7, eps)

	// A single-season show must not treat E08 as an absolute offset;
	// with no season parsed it falls through to the unique-number
	// strategy instead.
	got := MatchEpisodes("E08.mkv", 0, []int{8}, single)
	if len(got) != 1 || got[0].Season != 1 || got[0].Episode != 8 {
		t.Errorf("got %v, want [S01E08] via unique episode number", got)
	}
}

func TestMatchByTitle(t *testing.T) {
	st := twoSeasonStructure()

	got := MatchEpisodes("Show.Name.The.Silent.House.1080p.WEB-DL.mkv", 0, nil, st)
	if len(got) != 1 || got[0].Season != 2 || got[0].Episode != 9 {
		t.Errorf("got %v, want [S02E09] via title match", got)
	}
}

func TestTitleMatchNeedsTwoWords(t *testing.T) {
	st := twoSeasonStructure()

	if got := MatchEpisodes("Blackout.mkv", 0, nil, st); got != nil {
		t.Errorf("got %v, single-word title must not match", got)
	}
}

func TestUniqueEpisodeNumber(t *testing.T) {
	// Oddly numbered structure: the absolute map covers 1..3 only, so
	// episode number 5 falls through to the unique-number strategy.
	st := metadata.NewShowStructure(8, []metadata.EpisodeRef{
		{Season: 1, Episode: 1}, {Season: 1, Episode: 2},
		{Season: 2, Episode: 5},
	})

	got := MatchEpisodes("part5.mkv", 0, []int{5}, st)
	if len(got) != 1 || got[0].Season != 2 || got[0].Episode != 5 {
		t.Errorf("got %v, want [S02E05] via unique episode number", got)
	}

	// With the same number present in two seasons the strategy is
	// ambiguous and must refuse.
	ambiguous := metadata.NewShowStructure(9, []metadata.EpisodeRef{
		{Season: 1, Episode: 5}, {Season: 1, Episode: 6},
		{Season: 2, Episode: 5},
	})
	if got := MatchEpisodes("part5.mkv", 0, []int{5}, ambiguous); got != nil {
		t.Errorf("got %v, ambiguous episode number must not match", got)
	}
}

func TestAbsoluteBeatsUniqueNumber(t *testing.T) {
	st := twoSeasonStructure()

	// Episode 13 only exists in season two, but 13 also resolves via
	// the absolute map (S02E01); the absolute strategy wins by order.
	got := MatchEpisodes("part13.mkv", 0, []int{13}, st)
	if len(got) != 1 || got[0].Season != 2 || got[0].Episode != 1 {
		t.Errorf("got %v, want [S02E01] via absolute ordering", got)
	}
}

func TestNoMatchReturnsNil(t *testing.T) {
	st := twoSeasonStructure()

	if got := MatchEpisodes("bonus.material.mkv", 0, nil, st); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	if got := MatchEpisodes("whatever.mkv", 0, nil, nil); got != nil {
		t.Errorf("got %v, want nil for missing structure", got)
	}
}

func TestExtractTitleText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Show.Name.S01E01.The.Silent.House.720p.x264.mkv", "The Silent House"},
		{"E01 - Old Wounds.mkv", "Old Wounds"},
		{"07 - Night Visitors.mkv", "Night Visitors"},
		{"Crossing.the.River.1080p.mkv", "Crossing the River"},
	}
	for _, tt := range tests {
		if got := extractTitleText(tt.in); got != tt.want {
			t.Errorf("extractTitleText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
