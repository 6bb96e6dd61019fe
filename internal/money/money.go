package money

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var ErrEmpty = errors.New("empty amount")

var currencyMarks = []string{"₺", "YTL", "TRY", "TL"}

// Parse reads an amount written in either the Turkish convention
// ("1.234,56", "125,50") or the dot-decimal one ("1234.56", "12.50").
// Currency marks, spaces and the leading asterisk printed by cash
// registers are ignored.
//
// When both separators occur, the last one is the decimal separator. A lone
// dot followed by exactly three digits is read as a thousands separator.
func Parse(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	for _, mark := range currencyMarks {
		clean = strings.ReplaceAll(clean, mark, "")
		clean = strings.ReplaceAll(clean, strings.ToLower(mark), "")
	}

	clean = strings.TrimLeft(clean, "*")
	clean = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' {
			return -1
		}

		return r
	}, clean)

	if clean == "" {
		return decimal.Zero, ErrEmpty
	}

	lastDot := strings.LastIndex(clean, ".")
	lastComma := strings.LastIndex(clean, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(clean, ",") > 1 {
			clean = strings.ReplaceAll(clean, ",", "")
		} else {
			clean = strings.Replace(clean, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(clean, ".") > 1 || len(clean)-lastDot-1 == 3 {
			clean = strings.ReplaceAll(clean, ".", "")
		}
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}

	return d, nil
}

// ParsePositive is Parse restricted to amounts greater than zero.
func ParsePositive(s string) (decimal.Decimal, error) {
	d, err := Parse(s)
	if err != nil {
		return decimal.Zero, err
	}

	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount %q is not positive", s)
	}

	return d, nil
}
