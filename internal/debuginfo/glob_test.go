package debuginfo

import "testing"

func TestMatchGlobDoubleStar(t *testing.T) {
	cases := []struct {
		path, pattern string
		want          bool
	}{
		{"symbols/v1/MyApp.pdb", "**/MyApp.pdb", true},
		{"symbols/v1/Other.pdb", "**/MyApp.pdb", false},
		{"MyApp.pdb", "MyApp.pdb", true},
		{"a/b/c.pdb", "a/**/c.pdb", true},
	}
	for _, c := range cases {
		if got := matchGlob(c.path, c.pattern); got != c.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", c.path, c.pattern, got, c.want)
		}
	}
}
