package analytics_test

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fisly/internal/analytics"
	"github.com/MrJamesThe3rd/fisly/internal/receipt"
	"github.com/MrJamesThe3rd/fisly/internal/taxonomy"
)

var (
	migrosID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	sokID    = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	bimID    = uuid.MustParse("00000000-0000-0000-0000-000000000003")
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func item(category, amount string) *receipt.LineItem {
	c := receipt.Classification{}
	if category != "" {
		c.DepartmentID = category
		c.CategoryID = category
	}

	return &receipt.LineItem{
		ID:             uuid.New(),
		RawName:        category,
		Quantity:       decimal.NewFromInt(1),
		UnitPrice:      dec(amount),
		Total:          dec(amount),
		Confidence:     1,
		Classification: c,
	}
}

func rcpt(merchantID *uuid.UUID, name string, date time.Time, total string, items ...*receipt.LineItem) *receipt.Receipt {
	return &receipt.Receipt{
		ID:           uuid.New(),
		MerchantID:   merchantID,
		MerchantName: name,
		Date:         date,
		Total:        dec(total),
		Status:       receipt.StatusCompleted,
		Items:        items,
	}
}

func aggregator(t *testing.T) *analytics.Aggregator {
	t.Helper()

	tax, err := taxonomy.LoadDefault()
	require.NoError(t, err)

	return analytics.NewAggregator(tax, nil)
}

func TestAggregate_Summary(t *testing.T) {
	agg := aggregator(t)

	report := agg.Aggregate(analytics.Filter{}, []*receipt.Receipt{
		rcpt(&migrosID, "Migros", day(2024, 2, 1), "100", item("food.dairy", "100")),
		rcpt(&sokID, "Şok", day(2024, 2, 2), "50.50"),
		rcpt(nil, receipt.UnknownMerchant, day(2024, 2, 3), "0"),
	})

	assert.True(t, dec("150.50").Equal(report.Summary.Total))
	assert.Equal(t, 3, report.Summary.Count)
	assert.Equal(t, 1, report.Summary.Items)
	assert.Equal(t, "50.17", report.Summary.Average.StringFixed(2))

	empty := agg.Aggregate(analytics.Filter{}, nil)
	assert.True(t, empty.Summary.Total.IsZero())
	assert.True(t, empty.Summary.Average.IsZero())
	assert.Zero(t, empty.Summary.Count)
	assert.Empty(t, empty.Trend)
	assert.Empty(t, empty.Ranking)
	assert.Empty(t, empty.Breakdown.Categories)
}

func TestAggregate_SkipsFailedReceipts(t *testing.T) {
	failed := rcpt(&migrosID, "Migros", day(2024, 2, 1), "999")
	failed.Status = receipt.StatusFailed

	report := aggregator(t).Aggregate(analytics.Filter{}, []*receipt.Receipt{
		failed,
		rcpt(&migrosID, "Migros", day(2024, 2, 1), "10"),
	})

	assert.True(t, dec("10").Equal(report.Summary.Total))
	assert.Equal(t, 1, report.Summary.Count)
}

func TestAggregate_Breakdown(t *testing.T) {
	agg := aggregator(t)

	report := agg.Aggregate(analytics.Filter{}, []*receipt.Receipt{
		rcpt(&migrosID, "Migros", day(2024, 2, 1), "3",
			item("food.dairy", "1"),
			item("food.bakery", "1"),
			item("household", "1"),
		),
	})

	cats := report.Breakdown.Categories
	require.Len(t, cats, 3)

	assert.Equal(t, "food.bakery", cats[0].CategoryID)
	assert.Equal(t, "33.34", cats[0].Percentage.StringFixed(2))
	assert.Equal(t, "food.dairy", cats[1].CategoryID)
	assert.Equal(t, "Süt Ürünleri", cats[1].Name)
	assert.Equal(t, "33.33", cats[1].Percentage.StringFixed(2))
	assert.Equal(t, "33.33", cats[2].Percentage.StringFixed(2))

	sum := decimal.Zero
	for _, c := range cats {
		sum = sum.Add(c.Percentage)
	}

	assert.True(t, hundred().Equal(sum), "got %s", sum)
}

func TestAggregate_BreakdownUsesNetAmounts(t *testing.T) {
	discounted := item("food.dairy", "30")
	discounted.Discount = new(dec("10"))

	report := aggregator(t).Aggregate(analytics.Filter{}, []*receipt.Receipt{
		rcpt(&migrosID, "Migros", day(2024, 2, 1), "40", discounted, item("", "20")),
	})

	cats := report.Breakdown.Categories
	require.Len(t, cats, 2)
	assert.True(t, dec("40").Equal(report.Breakdown.Total))

	for _, c := range cats {
		assert.True(t, dec("20").Equal(c.Total), c.CategoryID)
		assert.Equal(t, "50.00", c.Percentage.StringFixed(2))
	}

	assert.Equal(t, "food.dairy", cats[0].CategoryID)
	assert.Equal(t, "other", cats[1].CategoryID)
}

func TestAggregate_BreakdownZeroTotal(t *testing.T) {
	report := aggregator(t).Aggregate(analytics.Filter{}, []*receipt.Receipt{
		rcpt(&migrosID, "Migros", day(2024, 2, 1), "0", item("food.dairy", "0"), item("household", "0")),
	})

	require.Len(t, report.Breakdown.Categories, 2)

	for _, c := range report.Breakdown.Categories {
		assert.True(t, c.Percentage.IsZero())
	}
}

func TestAggregate_BreakdownPercentagesAlwaysSumTo100(t *testing.T) {
	agg := aggregator(t)
	rng := rand.New(rand.NewPCG(1, 2))

	for run := range 50 {
		var items []*receipt.LineItem

		for i := range 1 + rng.IntN(12) {
			cents := rng.IntN(100000)
			items = append(items, item(fmt.Sprintf("cat-%d", i), decimal.New(int64(cents), -2).String()))
		}

		report := agg.Aggregate(analytics.Filter{}, []*receipt.Receipt{
			rcpt(&migrosID, "Migros", day(2024, 2, 1), "1", items...),
		})

		if report.Breakdown.Total.IsZero() {
			continue
		}

		sum := decimal.Zero
		for _, c := range report.Breakdown.Categories {
			sum = sum.Add(c.Percentage)
		}

		assert.True(t, hundred().Equal(sum), "run %d: got %s", run, sum)
	}
}

func TestAggregate_Ranking(t *testing.T) {
	a101 := uuid.MustParse("00000000-0000-0000-0000-000000000004")

	report := aggregator(t).Aggregate(analytics.Filter{}, []*receipt.Receipt{
		rcpt(&migrosID, "Migros", day(2024, 2, 1), "60"),
		rcpt(&migrosID, "MIGROS JET", day(2024, 2, 5), "40"),
		rcpt(&sokID, "Şok", day(2024, 2, 2), "100"),
		rcpt(&bimID, "BİM", day(2024, 2, 2), "200"),
		rcpt(&a101, "A101", day(2024, 2, 2), "100"),
		rcpt(nil, receipt.UnknownMerchant, day(2024, 2, 3), "30"),
		rcpt(nil, receipt.UnknownMerchant, day(2024, 2, 4), "0"),
	})

	keys := make([]string, len(report.Ranking))
	for i, r := range report.Ranking {
		keys[i] = r.Key
	}

	assert.Equal(t, []string{
		bimID.String(),
		migrosID.String(),
		sokID.String(),
		a101.String(),
		analytics.UnknownMerchantKey,
	}, keys)

	assert.Equal(t, 2, report.Ranking[1].Visits)
	assert.Equal(t, "MIGROS JET", report.Ranking[1].Name)

	unknown := report.Ranking[4]
	assert.Nil(t, unknown.MerchantID)
	assert.Equal(t, receipt.UnknownMerchant, unknown.Name)
	assert.Equal(t, 2, unknown.Visits)
}

func TestAggregate_TrendZeroFillsMonths(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)

	report := aggregator(t).Aggregate(analytics.Filter{Period: analytics.PeriodMonth, Start: &start, End: &end},
		[]*receipt.Receipt{
			rcpt(&migrosID, "Migros", day(2024, 2, 3), "10"),
			rcpt(&migrosID, "Migros", day(2024, 2, 28), "15.50"),
		})

	require.Len(t, report.Trend, 3)

	assert.Equal(t, "2024-01", report.Trend[0].Label)
	assert.True(t, report.Trend[0].Total.IsZero())
	assert.Equal(t, "2024-02", report.Trend[1].Label)
	assert.True(t, dec("25.50").Equal(report.Trend[1].Total))
	assert.Equal(t, 2, report.Trend[1].Count)
	assert.Equal(t, "2024-03", report.Trend[2].Label)
	assert.Zero(t, report.Trend[2].Count)
}

func TestAggregate_TrendPeriods(t *testing.T) {
	receipts := []*receipt.Receipt{
		rcpt(&migrosID, "Migros", day(2024, 2, 14), "10"),
		rcpt(&migrosID, "Migros", day(2024, 2, 27), "20"),
	}

	tests := []struct {
		period    analytics.Period
		wantLen   int
		wantFirst string
		wantStart time.Time
		wantLast  string
	}{
		{
			period:    analytics.PeriodDay,
			wantLen:   14,
			wantFirst: "2024-02-14",
			wantStart: time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC),
			wantLast:  "2024-02-27",
		},
		{
			period:    analytics.PeriodWeek,
			wantLen:   3,
			wantFirst: "2024-W07",
			wantStart: time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC),
			wantLast:  "2024-W09",
		},
		{
			period:    analytics.PeriodYear,
			wantLen:   1,
			wantFirst: "2024",
			wantStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			wantLast:  "2024",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			trend := aggregator(t).Aggregate(analytics.Filter{Period: tt.period}, receipts).Trend

			require.Len(t, trend, tt.wantLen)
			assert.Equal(t, tt.wantFirst, trend[0].Label)
			assert.True(t, tt.wantStart.Equal(trend[0].Start))
			assert.Equal(t, tt.wantLast, trend[len(trend)-1].Label)
		})
	}
}

func TestAggregate_TrendKeepsExplicitZeroStart(t *testing.T) {
	start := time.Time{}
	end := time.Date(2003, 6, 1, 0, 0, 0, 0, time.UTC)

	trend := aggregator(t).Aggregate(analytics.Filter{Period: analytics.PeriodYear, Start: &start, End: &end},
		[]*receipt.Receipt{rcpt(&migrosID, "Migros", day(2003, 2, 1), "10")}).Trend

	require.Len(t, trend, 2003)
	assert.Equal(t, "0001", trend[0].Label)
	assert.True(t, start.Equal(trend[0].Start))
	assert.Equal(t, 1, trend[len(trend)-1].Count)
}

func TestFilter_ValidateSpan(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		period  analytics.Period
		end     time.Time
		wantErr bool
	}{
		{name: "Ten years of days", period: analytics.PeriodDay, end: start.AddDate(0, 0, analytics.MaxTrendPoints-2)},
		{name: "Too many days", period: analytics.PeriodDay, end: start.AddDate(0, 0, analytics.MaxTrendPoints), wantErr: true},
		{name: "Long range by year", period: analytics.PeriodYear, end: time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), wantErr: true},
		{name: "Default period is month", end: start.AddDate(100, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := analytics.Filter{Period: tt.period, Start: &start, End: &tt.end}.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, analytics.ErrInvalidInput)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestAggregate_TrendIgnoresUndatedReceipts(t *testing.T) {
	report := aggregator(t).Aggregate(analytics.Filter{Period: analytics.PeriodDay}, []*receipt.Receipt{
		rcpt(nil, receipt.UnknownMerchant, time.Time{}, "5"),
		rcpt(&migrosID, "Migros", day(2024, 2, 14), "10"),
	})

	require.Len(t, report.Trend, 1)
	assert.Equal(t, 1, report.Trend[0].Count)
	assert.Equal(t, 2, report.Summary.Count)
}

func TestAggregate_Filters(t *testing.T) {
	receipts := []*receipt.Receipt{
		rcpt(&migrosID, "Migros", day(2024, 2, 1), "30", item("food.dairy", "10"), item("household", "20")),
		rcpt(&sokID, "Şok", day(2024, 2, 2), "5", item("household", "5")),
		rcpt(&migrosID, "Migros", day(2024, 3, 1), "7", item("food.dairy", "7")),
	}

	t.Run("Category", func(t *testing.T) {
		category := "food.dairy"
		report := aggregator(t).Aggregate(analytics.Filter{CategoryID: &category}, receipts)

		assert.Equal(t, 2, report.Summary.Count)
		assert.True(t, dec("37").Equal(report.Summary.Total))
		require.Len(t, report.Breakdown.Categories, 1)
		assert.True(t, dec("17").Equal(report.Breakdown.Total))
		assert.Equal(t, "100.00", report.Breakdown.Categories[0].Percentage.StringFixed(2))
	})

	t.Run("Merchant and range", func(t *testing.T) {
		start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)

		report := aggregator(t).Aggregate(analytics.Filter{MerchantID: &migrosID, Start: &start, End: &end}, receipts)

		assert.Equal(t, 1, report.Summary.Count)
		assert.True(t, dec("30").Equal(report.Summary.Total))
		require.Len(t, report.Ranking, 1)
		assert.Equal(t, migrosID.String(), report.Ranking[0].Key)
	})
}

func hundred() decimal.Decimal {
	return decimal.NewFromInt(100)
}
