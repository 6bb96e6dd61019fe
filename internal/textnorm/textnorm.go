// Package textnorm produces the matching keys shared by merchant resolution,
// item classification and product matching. Every caller must go through the
// same functions so that stored patterns and free text fold identically.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopWords are dropped from product match keys. They are stored folded.
// Unit words cover sizes written apart from their number, as in "200 ml".
var stopWords = map[string]struct{}{
	"ve":    {},
	"ile":   {},
	"adet":  {},
	"ad":    {},
	"paket": {},
	"pk":    {},
	"x":     {},
	"tl":    {},
	"try":   {},
	"kdv":   {},
	"li":    {},
	"lu":    {},
	"lik":   {},
	"luk":   {},
	"g":     {},
	"gr":    {},
	"kg":    {},
	"mg":    {},
	"ml":    {},
	"cl":    {},
	"l":     {},
	"lt":    {},
}

// sizeToken matches quantity and pack-size fragments such as "1l", "500gr" or "6x".
var sizeToken = regexp.MustCompile(`^\d+(g|gr|kg|mg|ml|cl|l|lt|ad|adet|x|li|lu|lik)?$`)

// Fold lower-cases s with Turkish casing rules, maps the dotless ı onto i,
// strips combining marks and collapses runs of whitespace.
//
// "MİGROS", "MIGROS", "mıgros" and "Migros" all fold to "migros".
func Fold(s string) string {
	// Casers and transformers carry state, so they are built per call.
	lowered := cases.Lower(language.Turkish).String(s)
	lowered = strings.ReplaceAll(lowered, "ı", "i")

	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), lowered)
	if err != nil {
		stripped = lowered
	}

	return strings.Join(strings.Fields(stripped), " ")
}

// Tokens folds s and splits it on every rune that is neither a letter nor a digit.
func Tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// KeyTokens returns the tokens of s without stop words and size fragments.
func KeyTokens(s string) []string {
	tokens := Tokens(s)
	out := tokens[:0]

	for _, t := range tokens {
		if _, ok := stopWords[t]; ok {
			continue
		}

		if sizeToken.MatchString(t) {
			continue
		}

		out = append(out, t)
	}

	return out
}

// MatchKey is the normalized name used as the product matching key.
func MatchKey(s string) string {
	return strings.Join(KeyTokens(s), " ")
}

// Similarity returns an edit-distance derived score in [0,1]. Identical
// strings score 1; two empty strings are identical.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}

	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}

	dist := levenshtein.ComputeDistance(a, b)

	return 1 - float64(dist)/float64(longest)
}

// Jaccard returns |a ∩ b| / |a ∪ b| over the token sets. Two empty sets score 1.
func Jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}

	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}

	inter := 0

	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}

	union := len(setA) + len(setB) - inter

	return float64(inter) / float64(union)
}
