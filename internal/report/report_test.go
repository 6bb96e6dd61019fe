package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fisly/internal/analytics"
	"github.com/MrJamesThe3rd/fisly/internal/report"
)

func sampleReport() analytics.Report {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)

	return analytics.Report{
		Filter: analytics.Filter{Period: analytics.PeriodMonth, Start: &start, End: &end},
		Summary: analytics.Summary{
			Total:   decimal.RequireFromString("1234.56"),
			Count:   2,
			Average: decimal.RequireFromString("617.28"),
			Items:   5,
		},
		Breakdown: analytics.Breakdown{
			Total: decimal.RequireFromString("1234.56"),
			Categories: []analytics.CategoryShare{
				{CategoryID: "food.dairy", Name: "Süt Ürünleri", Total: decimal.RequireFromString("1234.56"), Percentage: decimal.NewFromInt(100), Items: 5},
			},
		},
		Ranking: []analytics.MerchantRank{
			{Key: "m1", Name: "Migros", Total: decimal.RequireFromString("1000"), Visits: 1},
			{Key: analytics.UnknownMerchantKey, Name: "Unknown", Total: decimal.RequireFromString("234.56"), Visits: 1},
		},
		Trend: []analytics.TrendPoint{
			{Label: "2024-02", Start: start, Total: decimal.RequireFromString("1234.56"), Count: 2},
		},
	}
}

func TestNewFormatter_Errors(t *testing.T) {
	_, err := report.NewFormatter("not a locale!", "TRY")
	assert.Error(t, err)

	_, err = report.NewFormatter("tr-TR", "XX")
	assert.Error(t, err)
}

func TestFormatter_Money(t *testing.T) {
	tr, err := report.NewFormatter("tr-TR", "TRY")
	require.NoError(t, err)

	en, err := report.NewFormatter("en-US", "TRY")
	require.NoError(t, err)

	amount := decimal.RequireFromString("1234.555")

	assert.Contains(t, tr.Money(amount), "1.234,56")
	assert.Contains(t, en.Money(amount), "1,234.56")
	assert.Contains(t, tr.Money(decimal.Zero), "0,00")
}

func TestFormatter_Date(t *testing.T) {
	tr, err := report.NewFormatter("tr-TR", "TRY")
	require.NoError(t, err)

	en, err := report.NewFormatter("en-GB", "GBP")
	require.NoError(t, err)

	d := time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "14.02.2024", tr.Date(d))
	assert.Equal(t, "2024-02-14", en.Date(d))
	assert.Equal(t, "-", tr.Date(time.Time{}))
}

func TestFormatter_Tables(t *testing.T) {
	f, err := report.NewFormatter("tr-TR", "TRY")
	require.NoError(t, err)

	tables := f.Tables(sampleReport())
	require.Len(t, tables, 4)

	assert.Equal(t, "Summary", tables[0].Title)
	assert.Equal(t, []string{"Period", "01.02.2024 - 29.02.2024"}, tables[0].Rows[0])
	assert.Equal(t, []string{"Receipts", "2"}, tables[0].Rows[1])

	require.Len(t, tables[1].Rows, 1)
	assert.Equal(t, "Süt Ürünleri", tables[1].Rows[0][0])

	require.Len(t, tables[2].Rows, 2)
	assert.Equal(t, []string{"1", "Migros", "1"}, tables[2].Rows[0][:3])
	assert.Equal(t, "2", tables[2].Rows[1][0])

	require.Len(t, tables[3].Rows, 1)
	assert.Equal(t, "2024-02", tables[3].Rows[0][0])
}

func TestFormatter_WriteText(t *testing.T) {
	f, err := report.NewFormatter("tr-TR", "TRY")
	require.NoError(t, err)

	rep := sampleReport()
	rep.Trend = nil

	var buf bytes.Buffer
	require.NoError(t, f.WriteText(&buf, rep))

	out := buf.String()
	assert.Contains(t, out, "SUMMARY")
	assert.Contains(t, out, "MERCHANTS")
	assert.Contains(t, out, "Migros")
	assert.Contains(t, out, "TREND\nPeriod")
	assert.Contains(t, out, "(none)")
}
