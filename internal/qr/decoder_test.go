package qr_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fisly/internal/qr"
)

const gibPayload = `{"vkntckn":"1234567890","avkntckn":"11111111111","senaryo":"EARSIVFATURA","tip":"SATIS",` +
	`"tarih":"2024-02-14","no":"GIB2024000000001","ettn":"3f2b7e4a-1c2d-4e5f-8a9b-0c1d2e3f4a5b",` +
	`"parabirimi":"try","malhizmettoplam":"100.00","kdvmatrah(20)":"100.00","hesaplanankdv(20)":"18.00",` +
	`"hesaplanankdv(10)":"2.00","vergidahil":"120.00","odenecek":"118.00","iskonto":"2.00"}`

func TestDecode_GIBJSON(t *testing.T) {
	res := qr.Decode(gibPayload)
	require.True(t, res.Success)

	d := res.Data
	assert.Equal(t, qr.FormatGIBEArchive, d.Format)
	assert.Equal(t, gibPayload, d.RawQRString)
	assert.Equal(t, "1234567890", *d.MerchantTaxID)
	assert.Equal(t, "11111111111", *d.BuyerTaxID)
	assert.Equal(t, "GIB2024000000001", *d.DocumentNumber)
	assert.Equal(t, "3f2b7e4a-1c2d-4e5f-8a9b-0c1d2e3f4a5b", *d.ETTN)
	assert.Equal(t, "TRY", *d.Currency)
	assert.Equal(t, "EARSIVFATURA", *d.Scenario)
	assert.Equal(t, "SATIS", *d.InvoiceType)
	assert.Equal(t, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), *d.DocumentDate)
	assert.Equal(t, "118", d.TotalAmount.String())
	assert.Equal(t, "20", d.TaxAmount.String())
	assert.Equal(t, "2", d.DiscountAmount.String())
	assert.Nil(t, d.MerchantName)
}

func TestDecode_KeepsRawStringVerbatim(t *testing.T) {
	raw := "  \n" + gibPayload + "\r\n"

	res := qr.Decode(raw)
	require.True(t, res.Success)

	assert.Equal(t, raw, res.Data.RawQRString)
	require.NotNil(t, res.Data.MerchantTaxID)
	assert.Equal(t, "1234567890", *res.Data.MerchantTaxID)
}

func TestDecode_DelimitedForms(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantTotal string
		wantName  string
		wantTime  string
	}{
		{
			name:      "Semicolon and equals",
			raw:       "vkntckn=1234567890;unvan=MİGROS TİCARET A.Ş.;tarih=14.02.2024;saat=10:21;odenecek=1.234,56",
			wantTotal: "1234.56",
			wantName:  "MİGROS TİCARET A.Ş.",
			wantTime:  "10:21:00",
		},
		{
			name:      "Pipe and colon with timestamp",
			raw:       "satici:A101|tarih:2024-02-14T18:05:09|odenecek:59,90",
			wantTotal: "59.9",
			wantName:  "A101",
			wantTime:  "18:05:09",
		},
		{
			name:      "Upper case tags",
			raw:       "AD=BİM;ODENECEK=12.50",
			wantTotal: "12.5",
			wantName:  "BİM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := qr.Decode(tt.raw)
			require.True(t, res.Success)
			assert.Equal(t, tt.wantTotal, res.Data.TotalAmount.String())
			assert.Equal(t, tt.wantName, res.Data.Merchant())

			if tt.wantTime != "" {
				require.NotNil(t, res.Data.DocumentTime)
				assert.Equal(t, tt.wantTime, *res.Data.DocumentTime)
			}
		})
	}
}

func TestDecode_UnknownFormat(t *testing.T) {
	for _, raw := range []string{"", "https://example.com/receipt/42", "hello world", `{"total":"10.00"}`} {
		res := qr.Decode(raw)
		assert.False(t, res.Success, raw)
		assert.Equal(t, qr.FormatUnknown, res.Data.Format)
		assert.Equal(t, raw, res.Data.RawQRString)
		assert.Nil(t, res.Data.TotalAmount)
		assert.Nil(t, res.Data.MerchantTaxID)
	}
}

func TestDecode_TotalFallback(t *testing.T) {
	res := qr.Decode(`{"vkntckn":"1","vergidahil":"120.00","malhizmettoplam":"100.00"}`)
	require.True(t, res.Success)
	assert.Equal(t, "120", res.Data.TotalAmount.String())

	res = qr.Decode(`{"vkntckn":"1","malhizmettoplam":"100.00"}`)
	require.True(t, res.Success)
	assert.Equal(t, "100", res.Data.TotalAmount.String())

	// A non-positive payable amount falls through to the next candidate.
	res = qr.Decode(`{"vkntckn":"1","odenecek":"0.00","vergidahil":"5.00"}`)
	require.True(t, res.Success)
	assert.Equal(t, "5", res.Data.TotalAmount.String())
}

func TestDecode_Degrades(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantSuccess bool
		check       func(t *testing.T, d qr.Data)
	}{
		{
			name:        "Bad date keeps the rest",
			raw:         `{"vkntckn":"123","tarih":"31.31.2024","odenecek":"10.00"}`,
			wantSuccess: true,
			check: func(t *testing.T, d qr.Data) {
				assert.Nil(t, d.DocumentDate)
				assert.Equal(t, "10", d.TotalAmount.String())
			},
		},
		{
			name:        "Missing total",
			raw:         `{"vkntckn":"123","ettn":"abc"}`,
			wantSuccess: false,
			check: func(t *testing.T, d qr.Data) {
				assert.Equal(t, "123", *d.MerchantTaxID)
				assert.Equal(t, "abc", *d.ETTN)
			},
		},
		{
			name:        "Missing merchant identity",
			raw:         `{"odenecek":"10.00","no":"A1"}`,
			wantSuccess: false,
			check: func(t *testing.T, d qr.Data) {
				assert.Equal(t, "A1", *d.DocumentNumber)
			},
		},
		{
			name:        "Truncated payload",
			raw:         `{"vkntckn":"123","odenecek":"118.00","ettn":"3f2b7e4a-1c2d`,
			wantSuccess: true,
			check: func(t *testing.T, d qr.Data) {
				assert.Nil(t, d.ETTN)
			},
		},
		{
			name:        "Missing quotes and unknown tags",
			raw:         `{vkntckn: 123, yenialan: "x", odenecek: 7.5}`,
			wantSuccess: true,
			check: func(t *testing.T, d qr.Data) {
				assert.Equal(t, "123", *d.MerchantTaxID)
				assert.Equal(t, "7.5", d.TotalAmount.String())
			},
		},
		{
			name:        "Negative amount is dropped",
			raw:         `vkntckn=1;odenecek=-3,00`,
			wantSuccess: false,
			check: func(t *testing.T, d qr.Data) {
				assert.Nil(t, d.TotalAmount)
			},
		},
		{
			name:        "Key without value",
			raw:         `vkntckn;odenecek=3`,
			wantSuccess: false,
			check: func(t *testing.T, d qr.Data) {
				assert.Nil(t, d.MerchantTaxID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := qr.Decode(tt.raw)
			assert.Equal(t, tt.wantSuccess, res.Success)
			assert.Equal(t, qr.FormatGIBEArchive, res.Data.Format)
			tt.check(t, res.Data)
		})
	}
}

func TestData_IssuedAt(t *testing.T) {
	res := qr.Decode("vkntckn=1;tarih=14.02.2024;saat=10:21:30;odenecek=1")

	got, ok := res.Data.IssuedAt()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 14, 10, 21, 30, 0, time.UTC), got)

	_, ok = qr.Data{}.IssuedAt()
	assert.False(t, ok)
}
