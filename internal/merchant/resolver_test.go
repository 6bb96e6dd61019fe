package merchant_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fisly/internal/merchant"
)

var (
	migrosID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	sokID    = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	bimID    = uuid.MustParse("00000000-0000-0000-0000-000000000003")
	a101ID   = uuid.MustParse("00000000-0000-0000-0000-000000000004")
)

func registry() []*merchant.Merchant {
	return []*merchant.Merchant{
		{
			ID:            migrosID,
			CanonicalName: "Migros",
			DisplayName:   "Migros Ticaret A.Ş.",
			Category:      merchant.CategorySupermarket,
			Patterns:      []merchant.Pattern{{Text: "migros"}, {Text: "MİGROS JET"}},
		},
		{
			ID:            sokID,
			CanonicalName: "Şok",
			DisplayName:   "Şok Marketler",
			Category:      merchant.CategoryConvenience,
			Patterns:      []merchant.Pattern{{Text: `sok\s*market`, Regex: true}},
		},
		{
			ID:            bimID,
			CanonicalName: "BİM",
			DisplayName:   "BİM Birleşik Mağazalar",
			Category:      merchant.CategoryGrocery,
			Patterns:      []merchant.Pattern{{Text: "bim birlesik"}},
		},
		{
			ID:            a101ID,
			CanonicalName: "A101",
			DisplayName:   "A101 Yeni Mağazacılık",
			Category:      merchant.CategoryGrocery,
			Patterns:      []merchant.Pattern{{Text: "a101"}, {Text: "([", Regex: true}},
		},
	}
}

func TestResolver_PatternIsCaseAndDiacriticInsensitive(t *testing.T) {
	r := merchant.NewResolver(registry(), merchant.DefaultMinSimilarity)

	for _, text := range []string{"MIGROS", "migros", "mıgros", "MİGROS", "Mıgros Tıcaret A.Ş. Kadıköy"} {
		got := r.Resolve(text)
		require.NotNil(t, got.MerchantID, text)
		assert.Equal(t, migrosID, *got.MerchantID, text)
		assert.Equal(t, merchant.MatchedByPattern, got.MatchedBy, text)
		assert.GreaterOrEqual(t, got.Confidence, 0.9, text)
		assert.LessOrEqual(t, got.Confidence, 1.0, text)
	}

	assert.InDelta(t, 1.0, r.Resolve("Migros").Confidence, 1e-9)
}

func TestResolver_Regex(t *testing.T) {
	r := merchant.NewResolver(registry(), merchant.DefaultMinSimilarity)

	got := r.Resolve("ŞOK MARKETLER TİC. A.Ş.")
	require.NotNil(t, got.MerchantID)
	assert.Equal(t, sokID, *got.MerchantID)
	assert.Equal(t, merchant.MatchedByPattern, got.MatchedBy)

	// The invalid expression is skipped, the plain pattern still works.
	got = r.Resolve("A101 YENI MAGAZACILIK")
	require.NotNil(t, got.MerchantID)
	assert.Equal(t, a101ID, *got.MerchantID)
}

func TestResolver_LongestPatternWins(t *testing.T) {
	jetID := uuid.MustParse("00000000-0000-0000-0000-000000000009")
	merchants := append(registry(), &merchant.Merchant{
		ID:            jetID,
		CanonicalName: "Migros Jet",
		Category:      merchant.CategoryConvenience,
		Patterns:      []merchant.Pattern{{Text: "migros jet"}},
	})

	r := merchant.NewResolver(merchants, merchant.DefaultMinSimilarity)

	// Both merchants own "migros jet"; equal length falls back to the lower id.
	got := r.Resolve("MİGROS JET KADIKÖY")
	assert.Equal(t, migrosID, *got.MerchantID)

	merchants[0].Patterns = []merchant.Pattern{{Text: "migros"}}
	r = merchant.NewResolver(merchants, merchant.DefaultMinSimilarity)

	got = r.Resolve("MİGROS JET KADIKÖY")
	assert.Equal(t, jetID, *got.MerchantID)
}

func TestResolver_Fuzzy(t *testing.T) {
	r := merchant.NewResolver(registry(), merchant.DefaultMinSimilarity)

	got := r.Resolve("MIGRCS")
	require.NotNil(t, got.MerchantID)
	assert.Equal(t, migrosID, *got.MerchantID)
	assert.Equal(t, merchant.MatchedByFuzzy, got.MatchedBy)
	assert.InDelta(t, 5.0/6.0, got.Confidence, 1e-9)

	got = r.Resolve("Sok")
	require.NotNil(t, got.MerchantID)
	assert.Equal(t, sokID, *got.MerchantID)
	assert.Equal(t, merchant.MatchedByFuzzy, got.MatchedBy)
}

func TestResolver_NoMatch(t *testing.T) {
	r := merchant.NewResolver(registry(), merchant.DefaultMinSimilarity)

	for _, text := range []string{"", "   ", "Carrefour", "Kırtasiye Dünyası"} {
		got := r.Resolve(text)
		assert.Nil(t, got.MerchantID, text)
		assert.Equal(t, merchant.MatchedByNone, got.MatchedBy, text)
		assert.Zero(t, got.Confidence, text)
	}

	empty := merchant.NewResolver(nil, merchant.DefaultMinSimilarity)
	assert.Equal(t, merchant.MatchedByNone, empty.Resolve("Migros").MatchedBy)
}

func TestResolver_ConcurrentReads(t *testing.T) {
	r := merchant.NewResolver(registry(), merchant.DefaultMinSimilarity)

	var wg sync.WaitGroup

	for range 8 {
		wg.Go(func() {
			for range 100 {
				got := r.Resolve("MİGROS")
				assert.Equal(t, migrosID, *got.MerchantID)
			}
		})
	}

	wg.Wait()
}
