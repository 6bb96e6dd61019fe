package product_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/fisly/internal/product"
)

var (
	merchantA = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	merchantB = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	merchantC = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func price(merchantID uuid.UUID, amount string, observed time.Time, src product.Source) product.Price {
	return product.Price{
		ID:         uuid.New(),
		MerchantID: merchantID,
		Price:      dec(amount),
		ObservedAt: observed,
		Source:     src,
	}
}

func TestCompare(t *testing.T) {
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	type testCase struct {
		name         string
		paid         string
		prices       []product.Price
		sources      []product.Source
		wantFound    bool
		wantMerchant uuid.UUID
		wantSavings  string
		wantPercent  string
	}

	tests := []testCase{
		{
			name: "Cheaper elsewhere",
			paid: "10.00",
			prices: []product.Price{
				price(merchantA, "10.00", jan, product.SourceManual),
				price(merchantB, "8.50", jan, product.SourceScraped),
			},
			wantFound:    true,
			wantMerchant: merchantB,
			wantSavings:  "1.50",
			wantPercent:  "15",
		},
		{
			name: "Equal prices prefer the latest observation",
			paid: "12",
			prices: []product.Price{
				price(merchantB, "9.90", jan, product.SourceScraped),
				price(merchantC, "9.90", feb, product.SourceUserReported),
				price(merchantA, "11.00", feb, product.SourceManual),
			},
			wantFound:    true,
			wantMerchant: merchantC,
			wantSavings:  "2.10",
			wantPercent:  "17.5",
		},
		{
			name: "Already the cheapest",
			paid: "7.00",
			prices: []product.Price{
				price(merchantB, "8.50", jan, product.SourceScraped),
			},
			wantFound:    true,
			wantMerchant: merchantB,
			wantSavings:  "0",
			wantPercent:  "0",
		},
		{
			name: "Zero paid",
			paid: "0",
			prices: []product.Price{
				price(merchantB, "0", jan, product.SourceManual),
			},
			wantFound:    true,
			wantMerchant: merchantB,
			wantSavings:  "0",
			wantPercent:  "0",
		},
		{
			name: "Source filter",
			paid: "10.00",
			prices: []product.Price{
				price(merchantB, "8.50", jan, product.SourceScraped),
				price(merchantC, "9.00", jan, product.SourceManual),
			},
			sources:      []product.Source{product.SourceManual},
			wantFound:    true,
			wantMerchant: merchantC,
			wantSavings:  "1",
			wantPercent:  "10",
		},
		{
			name:        "No observations",
			paid:        "10.00",
			wantSavings: "0",
			wantPercent: "0",
		},
		{
			name: "Filter excludes everything",
			paid: "10.00",
			prices: []product.Price{
				price(merchantB, "8.50", jan, product.SourceScraped),
			},
			sources:     []product.Source{product.SourceUserReported},
			wantSavings: "0",
			wantPercent: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := product.Compare(dec(tt.paid), merchantA, tt.prices, tt.sources...)

			assert.Equal(t, tt.wantFound, got.Found)
			assert.Equal(t, tt.wantMerchant, got.CheapestMerchantID)
			assert.True(t, dec(tt.wantSavings).Equal(got.Savings), "savings %s", got.Savings)
			assert.True(t, dec(tt.wantPercent).Equal(got.SavingsPercentage), "percentage %s", got.SavingsPercentage)
			assert.Equal(t, merchantA, got.UserMerchantID)
		})
	}
}

func TestComparison_AlreadyCheapest(t *testing.T) {
	got := product.Compare(dec("8.50"), merchantB, []product.Price{
		price(merchantB, "8.50", time.Now(), product.SourceManual),
	})

	assert.True(t, got.AlreadyCheapest())
	assert.False(t, product.Comparison{}.AlreadyCheapest())
}
