package identify

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		entry  string
		videos []string
		want   MediaType
	}{
		{"sxxexx in entry", "The.Show.S01E01.1080p", nil, MediaShow},
		{"season word", "The Show Season 2", nil, MediaShow},
		{"complete series", "The Show Complete Series", nil, MediaShow},
		{"nxnn format", "The Show 1x01", nil, MediaShow},
		{"batch marker", "[Group] Show Batch", nil, MediaShow},
		{"plain film", "Arrival.2016.1080p.BluRay.x264", []string{"Arrival.2016.1080p.BluRay.x264.mkv"}, MediaMovie},
		{
			"file vote wins",
			"Mystery Pack",
			[]string{"a S01E01.mkv", "a S01E02.mkv", "extras.mkv"},
			MediaShow,
		},
		{
			"file vote fails, few files",
			"Mystery Pack",
			[]string{"feature.mkv", "bonus.mkv"},
			MediaMovie,
		},
		{
			"many files default to show",
			"Nameless Collection",
			[]string{"one.mkv", "two.mkv", "three.mkv", "four.mkv"},
			MediaShow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.entry, tt.videos); got != tt.want {
				t.Errorf("Classify(%q, %v) = %v, want %v", tt.entry, tt.videos, got, tt.want)
			}
		})
	}
}
