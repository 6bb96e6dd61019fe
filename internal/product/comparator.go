package product

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Comparison is the outcome of comparing what a user paid against every known
// observation of the same product.
type Comparison struct {
	Found bool

	CheapestMerchantID uuid.UUID
	CheapestPrice      decimal.Decimal
	ObservedAt         time.Time
	Source             Source

	UserPaid          decimal.Decimal
	UserMerchantID    uuid.UUID
	Savings           decimal.Decimal
	SavingsPercentage decimal.Decimal
}

// AlreadyCheapest reports whether the user paid the best known price.
func (c Comparison) AlreadyCheapest() bool {
	return c.Found && c.Savings.IsZero()
}

// Compare finds the cheapest observation in prices and the savings relative to
// userPaid. Equal prices prefer the most recent observation. When sources are
// given only observations from those sources are considered. Without any
// observation the result has Found set to false.
func Compare(userPaid decimal.Decimal, userMerchantID uuid.UUID, prices []Price, sources ...Source) Comparison {
	out := Comparison{
		UserPaid:          userPaid,
		UserMerchantID:    userMerchantID,
		Savings:           decimal.Zero,
		SavingsPercentage: decimal.Zero,
	}

	var best *Price

	for i := range prices {
		p := &prices[i]
		if len(sources) > 0 && !slices.Contains(sources, p.Source) {
			continue
		}

		if best == nil || p.Price.LessThan(best.Price) ||
			(p.Price.Equal(best.Price) && p.ObservedAt.After(best.ObservedAt)) {
			best = p
		}
	}

	if best == nil {
		return out
	}

	out.Found = true
	out.CheapestMerchantID = best.MerchantID
	out.CheapestPrice = best.Price
	out.ObservedAt = best.ObservedAt
	out.Source = best.Source

	savings := userPaid.Sub(best.Price)
	if savings.IsNegative() {
		savings = decimal.Zero
	}

	out.Savings = savings

	if userPaid.IsPositive() {
		out.SavingsPercentage = savings.Div(userPaid).Mul(hundred).Round(2)
	}

	return out
}
