package merchant

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("merchant not found")
	ErrInvalidInput = errors.New("invalid merchant input")
)

// Category is the kind of shop a merchant runs.
type Category string

const (
	CategoryGrocery     Category = "grocery"
	CategorySupermarket Category = "supermarket"
	CategoryConvenience Category = "convenience"
	CategoryOther       Category = "other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryGrocery, CategorySupermarket, CategoryConvenience, CategoryOther:
		return true
	}

	return false
}

// Pattern is one way a merchant's name appears on receipts. Plain patterns
// match as substrings of the folded text. Regex patterns are matched against
// the folded text and must be written in folded form.
type Pattern struct {
	Text  string `json:"text"`
	Regex bool   `json:"regex,omitempty"`
}

func (p Pattern) Validate() error {
	if strings.TrimSpace(p.Text) == "" {
		return fmt.Errorf("empty pattern: %w", ErrInvalidInput)
	}

	if p.Regex {
		if _, err := regexp.Compile(p.Text); err != nil {
			return fmt.Errorf("pattern %q: %w", p.Text, errors.Join(ErrInvalidInput, err))
		}
	}

	return nil
}

// Merchant is a known shop. Only its patterns change after creation.
type Merchant struct {
	ID            uuid.UUID
	CanonicalName string
	DisplayName   string
	Category      Category
	Patterns      []Pattern
	CreatedAt     time.Time
}

func (m *Merchant) Validate() error {
	if strings.TrimSpace(m.CanonicalName) == "" {
		return fmt.Errorf("canonical name is required: %w", ErrInvalidInput)
	}

	if !m.Category.Valid() {
		return fmt.Errorf("unknown category %q: %w", m.Category, ErrInvalidInput)
	}

	for _, p := range m.Patterns {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// MatchedBy tells which resolution step produced a match.
type MatchedBy string

const (
	MatchedByPattern MatchedBy = "pattern"
	MatchedByFuzzy   MatchedBy = "fuzzy"
	MatchedByNone    MatchedBy = "none"
)

// Match is the outcome of resolving a merchant text. MerchantID is nil when
// MatchedBy is MatchedByNone.
type Match struct {
	MerchantID *uuid.UUID
	Confidence float64
	MatchedBy  MatchedBy
}
