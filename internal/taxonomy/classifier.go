package taxonomy

import (
	"strings"

	"github.com/MrJamesThe3rd/fisly/internal/textnorm"
)

const (
	exactWeight  = 1.0
	prefixWeight = 0.5

	// minPrefixRunes guards prefix matching against short triggers such as "su".
	minPrefixRunes = 3
)

// Assignment is the classification of one line item. Levels below the
// matched node are left empty.
type Assignment struct {
	DepartmentID  string
	CategoryID    string
	SubcategoryID string
	ItemGroupID   string
	LeafID        string
	Score         float64
	Fallback      bool
}

// Classifier assigns item names to taxonomy nodes. It borrows the taxonomy
// and is safe for concurrent use.
type Classifier struct {
	tax *Taxonomy
}

func NewClassifier(tax *Taxonomy) *Classifier {
	return &Classifier{tax: tax}
}

// Classify returns the best matching node for name, or the catch-all leaf.
// It never fails.
func (c *Classifier) Classify(name string) Assignment {
	tokens := textnorm.Tokens(name)

	best, score := c.bestNode(tokens)
	if best < 0 {
		return c.assign(c.tax.fallback, 0, true)
	}

	return c.assign(best, score, false)
}

// ClassifyWithHint retries with the OCR category hint when the name alone
// does not match anything.
func (c *Classifier) ClassifyWithHint(name, hint string) Assignment {
	a := c.Classify(name)
	if !a.Fallback || strings.TrimSpace(hint) == "" {
		return a
	}

	if byID, ok := c.tax.byID[strings.TrimSpace(hint)]; ok {
		return c.assign(byID, 0, false)
	}

	return c.Classify(hint)
}

func (c *Classifier) bestNode(tokens []string) (int, float64) {
	best, bestScore := -1, 0.0

	for _, idx := range c.candidates(tokens) {
		score := c.score(idx, tokens)
		if score == 0 {
			continue
		}

		if best < 0 || c.better(idx, score, best, bestScore) {
			best, bestScore = idx, score
		}
	}

	return best, bestScore
}

// better orders by score, then depth, then declaration order.
func (c *Classifier) better(idx int, score float64, best int, bestScore float64) bool {
	if score != bestScore {
		return score > bestScore
	}

	if c.tax.nodes[idx].Level != c.tax.nodes[best].Level {
		return c.tax.nodes[idx].Level > c.tax.nodes[best].Level
	}

	return idx < best
}

// candidates returns the nodes owning a trigger whose first token equals an
// item token or one of its prefixes.
func (c *Classifier) candidates(tokens []string) []int {
	seen := make(map[int]struct{})

	var out []int

	for _, tok := range tokens {
		runes := []rune(tok)
		for n := len(runes); n >= 1; n-- {
			if n < len(runes) && n < minPrefixRunes {
				break
			}

			for _, idx := range c.tax.byToken[string(runes[:n])] {
				if _, ok := seen[idx]; ok {
					continue
				}

				seen[idx] = struct{}{}
				out = append(out, idx)
			}
		}
	}

	return out
}

// score is the weighted number of item tokens covered by the node's triggers.
func (c *Classifier) score(idx int, tokens []string) float64 {
	covered := make([]float64, len(tokens))

	for _, trig := range c.tax.triggers[idx] {
		for start := 0; start+len(trig) <= len(tokens); start++ {
			weights, ok := matchAt(trig, tokens[start:start+len(trig)])
			if !ok {
				continue
			}

			for i, w := range weights {
				covered[start+i] = max(covered[start+i], w)
			}
		}
	}

	total := 0.0
	for _, w := range covered {
		total += w
	}

	return total
}

func matchAt(trig trigger, window []string) ([]float64, bool) {
	weights := make([]float64, len(trig))

	for i, want := range trig {
		got := window[i]

		switch {
		case got == want:
			weights[i] = exactWeight
		case len([]rune(want)) >= minPrefixRunes && strings.HasPrefix(got, want):
			weights[i] = prefixWeight
		default:
			return nil, false
		}
	}

	return weights, true
}

func (c *Classifier) assign(idx int, score float64, fallback bool) Assignment {
	a := Assignment{
		LeafID:   c.tax.nodes[idx].ID,
		Score:    score,
		Fallback: fallback,
	}

	for i := idx; i >= 0; i = c.tax.nodes[i].Parent {
		n := c.tax.nodes[i]

		switch n.Level {
		case LevelDepartment:
			a.DepartmentID = n.ID
		case LevelCategory:
			a.CategoryID = n.ID
		case LevelSubcategory:
			a.SubcategoryID = n.ID
		case LevelItemGroup:
			a.ItemGroupID = n.ID
		}
	}

	return a
}
