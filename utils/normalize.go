package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Dish names arrive from parsed menus in mixed scripts (mostly Hebrew, some
// English) with inconsistent niqqud, punctuation and spacing. Normalization
// must be script-preserving: it canonicalizes a name without transliterating.
//
// Steps: NFKD decompose, drop nonspacing marks (niqqud, diacritics), drop
// punctuation and symbols, case-fold, collapse whitespace.
var dishNameTransformer = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.In(unicode.P)),
	runes.Remove(runes.In(unicode.S)),
	norm.NFC,
)

var dishNameFolder = cases.Fold()

// NormalizeDishName canonicalizes a raw dish name for catalog identity.
// Equal normalized names mean the same catalog entry; the original spelling is
// kept separately for display.
func NormalizeDishName(raw string) string {
	s, _, err := transform.String(dishNameTransformer, strings.TrimSpace(raw))
	if err != nil {
		// Transform only fails on malformed UTF-8; fall back to the trimmed raw
		// input rather than dropping the dish.
		s = strings.TrimSpace(raw)
	}
	s = dishNameFolder.String(s)
	return strings.Join(strings.Fields(s), " ")
}
