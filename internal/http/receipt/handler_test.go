package receipt_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	receipthttp "github.com/MrJamesThe3rd/fisly/internal/http/receipt"
	"github.com/MrJamesThe3rd/fisly/internal/merchant"
	"github.com/MrJamesThe3rd/fisly/internal/ocr"
	"github.com/MrJamesThe3rd/fisly/internal/pagination"
	"github.com/MrJamesThe3rd/fisly/internal/pipeline"
	"github.com/MrJamesThe3rd/fisly/internal/receipt"
	"github.com/MrJamesThe3rd/fisly/internal/taxonomy"
)

var (
	receiptID = uuid.MustParse("7d9f0a52-5b0c-4a7e-9d1e-2f3a4b5c6d7e")
	migrosID  = uuid.MustParse("00000000-0000-0000-0000-000000000001")
)

func newRouter(t *testing.T) (http.Handler, *receipt.MockRepository) {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := receipt.NewMockRepository(ctrl)

	tax, err := taxonomy.LoadDefault()
	require.NoError(t, err)

	resolver := merchant.NewResolver([]*merchant.Merchant{
		{ID: migrosID, CanonicalName: "Migros", Patterns: []merchant.Pattern{{Text: "migros"}}},
	}, merchant.DefaultMinSimilarity)

	tolerance := decimal.RequireFromString("0.05")
	pipe := pipeline.NewService(repo, resolver, taxonomy.NewClassifier(tax), pipeline.Options{
		Thresholds: ocr.DefaultThresholds(),
		Tolerance:  tolerance,
	})

	h := receipthttp.NewHandler(receipt.NewService(repo, tolerance), pipe, time.UTC)

	router := chi.NewRouter()
	router.Route("/receipts", h.Routes)

	return router, repo
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}

	return rec, out
}

func TestHandler_Get(t *testing.T) {
	type testCase struct {
		name       string
		target     string
		setupMock  func(m *receipt.MockRepository)
		wantStatus int
	}

	tests := []testCase{
		{
			name:   "Found",
			target: "/receipts/" + receiptID.String(),
			setupMock: func(m *receipt.MockRepository) {
				m.EXPECT().GetReceipt(gomock.Any(), receiptID).Return(&receipt.Receipt{
					ID:           receiptID,
					MerchantName: "Migros",
					Total:        decimal.RequireFromString("125.50"),
					Status:       receipt.StatusCompleted,
				}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "Not found",
			target: "/receipts/" + receiptID.String(),
			setupMock: func(m *receipt.MockRepository) {
				m.EXPECT().GetReceipt(gomock.Any(), receiptID).Return(nil, receipt.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "Invalid id",
			target:     "/receipts/abc",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, repo := newRouter(t)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			rec, body := do(t, router, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "Migros", body["merchant_name"])
				assert.Equal(t, "125.5", body["total"])
				assert.Equal(t, "completed", body["status"])
			}
		})
	}
}

func TestHandler_Create(t *testing.T) {
	t.Run("Manual receipt", func(t *testing.T) {
		router, repo := newRouter(t)
		repo.EXPECT().SaveReceipt(gomock.Any(), gomock.Any()).Return(nil)

		rec, body := do(t, router, http.MethodPost, "/receipts", `{
			"merchant_name": "BİM",
			"date": "2024-03-02T00:00:00Z",
			"total": "12.50",
			"items": [{"raw_name": "Ekmek", "quantity": 1, "unit_price": "12.50", "total": "12.50"}]
		}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "completed", body["status"])
		assert.Equal(t, "manual", body["source"])
		assert.Equal(t, "TRY", body["currency"])
		assert.Len(t, body["items"], 1)
	})

	t.Run("Missing date", func(t *testing.T) {
		router, _ := newRouter(t)

		rec, _ := do(t, router, http.MethodPost, "/receipts", `{"merchant_name": "BİM", "total": "12.50"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Date failed required")
	})

	t.Run("Invalid item", func(t *testing.T) {
		router, _ := newRouter(t)

		rec, _ := do(t, router, http.MethodPost, "/receipts", `{
			"date": "2024-03-02T00:00:00Z",
			"items": [{"raw_name": "Ekmek", "quantity": 0, "unit_price": "1", "total": "1"}]
		}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_List(t *testing.T) {
	t.Run("Filters and pages", func(t *testing.T) {
		router, repo := newRouter(t)

		start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		minTotal := decimal.RequireFromString("10")

		repo.EXPECT().
			ListReceipts(gomock.Any(), gomock.Any(), pagination.Params{Page: 2, PageSize: 5}).
			DoAndReturn(func(_ context.Context, f receipt.ListFilter, p pagination.Params) (*pagination.Result[*receipt.Receipt], error) {
				require.NotNil(t, f.MerchantID)
				assert.Equal(t, migrosID, *f.MerchantID)
				require.NotNil(t, f.StartDate)
				assert.True(t, start.Equal(*f.StartDate))
				require.NotNil(t, f.EndDate)
				assert.True(t, f.EndDate.After(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)))
				assert.True(t, f.EndDate.Before(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
				require.NotNil(t, f.MinTotal)
				assert.True(t, minTotal.Equal(*f.MinTotal))
				require.NotNil(t, f.Search)
				assert.Equal(t, "süt", *f.Search)

				return pagination.NewResult([]*receipt.Receipt{{ID: receiptID}}, 6, p), nil
			})

		rec, body := do(t, router, http.MethodGet,
			"/receipts?merchant_id="+migrosID.String()+"&start_date=2024-02-01&end_date=2024-02-29&min_total=10&q=s%C3%BCt&page=2&page_size=5", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 6, body["total"])
		assert.EqualValues(t, 2, body["pages"])
		assert.Len(t, body["data"], 1)
	})

	t.Run("Bad date", func(t *testing.T) {
		router, _ := newRouter(t)

		rec, _ := do(t, router, http.MethodGet, "/receipts?start_date=01.02.2024", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_Confirm(t *testing.T) {
	router, repo := newRouter(t)
	repo.EXPECT().GetReceipt(gomock.Any(), receiptID).Return(&receipt.Receipt{
		ID:           receiptID,
		MerchantName: receipt.UnknownMerchant,
	}, nil)

	rec, _ := do(t, router, http.MethodPost, "/receipts/"+receiptID.String()+"/confirm", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_IngestOCR(t *testing.T) {
	router, repo := newRouter(t)

	repo.EXPECT().GetReceipt(gomock.Any(), receiptID).Return(nil, receipt.ErrNotFound)
	repo.EXPECT().SaveReceipt(gomock.Any(), gomock.Any()).Return(nil)

	rec, body := do(t, router, http.MethodPut, "/receipts/"+receiptID.String()+"/ocr", `{
		"merchant": {"text": "Migros", "confidence": 0.9},
		"total": {"text": "25,50", "confidence": 0.95},
		"items": [{"name": "Süt 1L", "quantity": 1, "price": "25.50", "confidence": 0.9}]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "processing", body["status"])
	assert.Equal(t, migrosID.String(), body["merchant_id"])

	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "food.dairy", items[0].(map[string]any)["category_id"])
}

func TestHandler_IngestQR(t *testing.T) {
	t.Run("New receipt", func(t *testing.T) {
		router, repo := newRouter(t)

		repo.EXPECT().GetReceipt(gomock.Any(), receiptID).Return(nil, receipt.ErrNotFound)
		repo.EXPECT().SaveReceipt(gomock.Any(), gomock.Any()).Return(nil)

		rec, body := do(t, router, http.MethodPut, "/receipts/"+receiptID.String()+"/qr",
			"vkntckn=1234567890;unvan=MİGROS TİCARET A.Ş.;tarih=14.02.2024;odenecek=125,50\n")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "qr", body["source"])
		assert.Equal(t, "completed", body["status"])
		assert.Equal(t, "1234567890", body["merchant_tax_id"])
	})

	t.Run("Surrounding whitespace", func(t *testing.T) {
		router, repo := newRouter(t)

		repo.EXPECT().GetReceipt(gomock.Any(), receiptID).Return(nil, receipt.ErrNotFound)
		repo.EXPECT().SaveReceipt(gomock.Any(), gomock.Any()).Return(nil)

		rec, body := do(t, router, http.MethodPut, "/receipts/"+receiptID.String()+"/qr",
			"\n  vkntckn=1234567890;unvan=MİGROS TİCARET A.Ş.;tarih=14.02.2024;odenecek=125,50  \r\n")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "completed", body["status"])
		assert.Equal(t, "125.5", body["total"])
	})

	t.Run("Empty payload", func(t *testing.T) {
		router, _ := newRouter(t)

		rec, _ := do(t, router, http.MethodPut, "/receipts/"+receiptID.String()+"/qr", "  \n")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
