package product

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/MrJamesThe3rd/fisly/internal/textnorm"
)

const (
	// DefaultThreshold is the fuzzy match threshold used when none is configured.
	DefaultThreshold = 0.8

	// MatchThreshold is the bar a candidate must reach for Match to return it.
	MatchThreshold = 0.85
)

type Scored struct {
	Product Product
	Score   float64
}

type entry struct {
	product Product
	key     string
	tokens  []string
}

// Matcher scores free text against an immutable catalog snapshot.
type Matcher struct {
	entries []entry
}

func NewMatcher(products []*Product) *Matcher {
	m := &Matcher{entries: make([]entry, 0, len(products))}

	for _, p := range products {
		key := p.NormalizedName
		if key == "" {
			key = normalize(p.Name)
		}

		m.entries = append(m.entries, entry{
			product: *p,
			key:     key,
			tokens:  strings.Fields(key),
		})
	}

	return m
}

func (m *Matcher) Len() int {
	return len(m.entries)
}

// Match returns the best catalog entry scoring at least MatchThreshold, or
// nil when nothing qualifies.
func (m *Matcher) Match(name string) (*Product, error) {
	hits, err := m.FuzzyMatchScored(name, MatchThreshold)
	if err != nil {
		return nil, err
	}

	if len(hits) == 0 {
		return nil, nil
	}

	return &hits[0].Product, nil
}

func (m *Matcher) FuzzyMatch(name string, threshold float64) ([]Product, error) {
	hits, err := m.FuzzyMatchScored(name, threshold)
	if err != nil {
		return nil, err
	}

	out := make([]Product, len(hits))
	for i, h := range hits {
		out[i] = h.Product
	}

	return out, nil
}

// FuzzyMatchScored returns every entry scoring at least threshold, best first.
// Ties are ordered by name, then id.
func (m *Matcher) FuzzyMatchScored(name string, threshold float64) ([]Scored, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("name is blank: %w", ErrInvalidInput)
	}

	key := normalize(name)
	tokens := strings.Fields(key)

	var hits []Scored

	for _, e := range m.entries {
		s := score(key, tokens, e.key, e.tokens)
		if s < threshold {
			continue
		}

		hits = append(hits, Scored{Product: e.product, Score: s})
	}

	slices.SortFunc(hits, func(a, b Scored) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}

		if c := cmp.Compare(a.Product.Name, b.Product.Name); c != 0 {
			return c
		}

		return cmp.Compare(a.Product.ID.String(), b.Product.ID.String())
	})

	return hits, nil
}

// Score is the similarity of two product names in [0,1]. Names with the same
// match key score exactly 1.
func Score(a, b string) float64 {
	ka, kb := normalize(a), normalize(b)

	return score(ka, strings.Fields(ka), kb, strings.Fields(kb))
}

func score(a string, aTokens []string, b string, bTokens []string) float64 {
	if a == b {
		return 1
	}

	return 0.5*textnorm.Jaccard(aTokens, bTokens) + 0.5*textnorm.Similarity(a, b)
}

// normalize returns the match key of s. Names made only of stop words and
// sizes fall back to the folded text so they still have a key.
func normalize(s string) string {
	if key := textnorm.MatchKey(s); key != "" {
		return key
	}

	return textnorm.Fold(s)
}

// NormalizeName is the NormalizedName stored for a product called name.
func NormalizeName(name string) string {
	return normalize(name)
}
