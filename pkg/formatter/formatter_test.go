package formatter

import "testing"

func TestComposeCaption(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		caption  string
		hashtags []string
		want     string
	}{
		{
			name:     "caption with tags",
			caption:  "sunset over the bay",
			hashtags: []string{"travel", "photography"},
			want:     "sunset over the bay\n\n#travel #photography",
		},
		{
			name:     "tags already prefixed",
			caption:  "hello",
			hashtags: []string{"#golang", "##double"},
			want:     "hello\n\n#golang #double",
		},
		{
			name:    "no tags",
			caption: "just words",
			want:    "just words",
		},
		{
			name:     "tags only",
			hashtags: []string{"daily"},
			want:     "#daily",
		},
		{
			name:     "blank tags dropped",
			caption:  "clip",
			hashtags: []string{"", "  ", "#", "ok"},
			want:     "clip\n\n#ok",
		},
		{
			name:    "caption whitespace trimmed",
			caption: "  spaced  ",
			want:    "spaced",
		},
		{
			name: "everything empty",
			want: "",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ComposeCaption(tc.caption, tc.hashtags); got != tc.want {
				t.Errorf("ComposeCaption(%q, %v) = %q, want %q", tc.caption, tc.hashtags, got, tc.want)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-45000, "-45,000"},
	}

	for _, tc := range tests {
		if got := FormatNumber(tc.in); got != tc.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
