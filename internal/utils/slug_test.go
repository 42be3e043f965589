package utils

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Sample Prep", "sample-prep"},
		{"PCR Amplification (v2)", "pcr-amplification-v2"},
		{"  Gel   Electrophoresis  ", "gel-electrophoresis"},
		{"UPPER", "upper"},
		{"already-slugged", "already-slugged"},
		{"!!!", ""},
		{"96-Well Plate Setup", "96-well-plate-setup"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Fatalf("Slugify(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
