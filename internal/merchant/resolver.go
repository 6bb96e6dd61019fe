package merchant

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fisly/internal/textnorm"
)

// DefaultMinSimilarity is the lowest fuzzy score accepted as a match.
const DefaultMinSimilarity = 0.75

type compiledPattern struct {
	text string
	re   *regexp.Regexp
}

type entry struct {
	id       uuid.UUID
	key      string
	names    []string
	patterns []compiledPattern
}

// Resolver maps free merchant text to a known merchant. It is an immutable
// snapshot of the registry and is safe for concurrent use.
type Resolver struct {
	entries       []entry
	minSimilarity float64
}

// NewResolver folds and compiles the patterns of every merchant. Invalid
// regular expressions are skipped.
func NewResolver(merchants []*Merchant, minSimilarity float64) *Resolver {
	r := &Resolver{minSimilarity: minSimilarity}

	for _, m := range merchants {
		e := entry{id: m.ID, key: m.ID.String()}

		for _, name := range []string{m.CanonicalName, m.DisplayName} {
			if folded := textnorm.Fold(name); folded != "" {
				e.names = append(e.names, folded)
			}
		}

		for _, p := range m.Patterns {
			if !p.Regex {
				if folded := textnorm.Fold(p.Text); folded != "" {
					e.patterns = append(e.patterns, compiledPattern{text: folded})
				}

				continue
			}

			re, err := regexp.Compile(p.Text)
			if err != nil {
				slog.Warn("skipping invalid merchant pattern", "merchant_id", m.ID, "pattern", p.Text, "error", err)
				continue
			}

			e.patterns = append(e.patterns, compiledPattern{re: re})
		}

		r.entries = append(r.entries, e)
	}

	return r
}

// Resolve tries the pattern table first and falls back to name similarity.
// Among pattern hits the longest matched text wins, then the lowest merchant
// id. It never fails: unmatched text yields MatchedByNone.
func (r *Resolver) Resolve(text string) Match {
	folded := textnorm.Fold(text)
	if folded == "" {
		return Match{MatchedBy: MatchedByNone}
	}

	if m, ok := r.byPattern(folded); ok {
		return m
	}

	if m, ok := r.byName(folded); ok {
		return m
	}

	return Match{MatchedBy: MatchedByNone}
}

func (r *Resolver) byPattern(folded string) (Match, bool) {
	best := -1
	bestLen := 0

	for i, e := range r.entries {
		n := longestHit(e.patterns, folded)
		if n == 0 {
			continue
		}

		if best < 0 || n > bestLen || (n == bestLen && e.key < r.entries[best].key) {
			best, bestLen = i, n
		}
	}

	if best < 0 {
		return Match{}, false
	}

	coverage := float64(bestLen) / float64(utf8.RuneCountInString(folded))

	return Match{
		MerchantID: new(r.entries[best].id),
		Confidence: 0.9 + 0.1*min(coverage, 1),
		MatchedBy:  MatchedByPattern,
	}, true
}

// longestHit returns the rune length of the longest pattern hit in folded.
func longestHit(patterns []compiledPattern, folded string) int {
	longest := 0

	for _, p := range patterns {
		var hit string

		if p.re != nil {
			hit = p.re.FindString(folded)
		} else if strings.Contains(folded, p.text) {
			hit = p.text
		}

		longest = max(longest, utf8.RuneCountInString(hit))
	}

	return longest
}

func (r *Resolver) byName(folded string) (Match, bool) {
	best := -1
	bestScore := 0.0

	for i, e := range r.entries {
		score := 0.0
		for _, name := range e.names {
			score = max(score, textnorm.Similarity(folded, name))
		}

		if score < r.minSimilarity {
			continue
		}

		if best < 0 || score > bestScore || (score == bestScore && e.key < r.entries[best].key) {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		return Match{}, false
	}

	return Match{
		MerchantID: new(r.entries[best].id),
		Confidence: bestScore,
		MatchedBy:  MatchedByFuzzy,
	}, true
}

// Len is the number of merchants in the snapshot.
func (r *Resolver) Len() int {
	return len(r.entries)
}
