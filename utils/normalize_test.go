package utils

import "testing"

func TestNormalizeDishName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases and trims", "  Grilled   CHICKEN ", "grilled chicken"},
		{"strips punctuation", "Shakshuka!", "shakshuka"},
		{"strips hebrew niqqud", "שַׁקְשׁוּקָה", "שקשוקה"},
		{"strips geresh", "צ'יפס", "ציפס"},
		{"collapses inner whitespace", "מרק  עדשים", "מרק עדשים"},
		{"empty input", "   ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeDishName(tc.in)
			if got != tc.want {
				t.Fatalf("NormalizeDishName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeDishNameIsStable(t *testing.T) {
	// Normalizing an already-normalized name must be a no-op, otherwise the
	// catalog's uniqueness key would drift between writes.
	inputs := []string{"שקשוקה", "grilled chicken", "מרק עדשים"}
	for _, in := range inputs {
		once := NormalizeDishName(in)
		twice := NormalizeDishName(once)
		if once != twice {
			t.Fatalf("normalization not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
