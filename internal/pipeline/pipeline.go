// Package pipeline turns captured receipts into stored, classified records.
// OCR results and QR payloads for the same receipt id are merged, with the
// QR values trusted over recognized text.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fisly/internal/merchant"
	"github.com/MrJamesThe3rd/fisly/internal/ocr"
	"github.com/MrJamesThe3rd/fisly/internal/product"
	"github.com/MrJamesThe3rd/fisly/internal/qr"
	"github.com/MrJamesThe3rd/fisly/internal/receipt"
)

type MerchantResolver interface {
	Resolve(text string) merchant.Match
}

type Enricher interface {
	Enrich(ctx context.Context, name string, barcode *string) *product.Product
}

type Recorder interface {
	ObserveReceipt(source, status string, duration time.Duration, err error)
}

var trustedReview = receipt.FieldReview{Confidence: 1, State: receipt.StateAutoAccepted}

// trusted holds the values of a tax document that override recognized text.
type trusted struct {
	merchants      []string
	merchantID     *uuid.UUID
	merchantTaxID  *string
	ettn           *string
	documentNumber *string
	currency       string
	total          *decimal.Decimal
	date           *time.Time
}

func fromQR(d qr.Data) trusted {
	t := trusted{
		merchantTaxID:  d.MerchantTaxID,
		ettn:           d.ETTN,
		documentNumber: d.DocumentNumber,
		total:          d.TotalAmount,
		currency:       currencyCode(d.Currency),
	}

	for _, s := range []*string{d.MerchantName, d.MerchantTitle, d.MerchantTaxID} {
		if s != nil && strings.TrimSpace(*s) != "" {
			t.merchants = append(t.merchants, strings.TrimSpace(*s))
		}
	}

	if at, ok := d.IssuedAt(); ok {
		t.date = &at
	}

	return t
}

// fromReceipt recovers the trusted values of a receipt stored from a QR code.
func fromReceipt(r *receipt.Receipt) trusted {
	t := trusted{
		merchantID:     r.MerchantID,
		merchantTaxID:  r.MerchantTaxID,
		ettn:           r.ETTN,
		documentNumber: r.DocumentNumber,
		currency:       r.Currency,
	}

	if accepted(r, ocr.FieldMerchant) && r.MerchantName != receipt.UnknownMerchant {
		t.merchants = []string{r.MerchantName}
	}

	if accepted(r, ocr.FieldTotal) {
		total := r.Total
		t.total = &total
	}

	if accepted(r, ocr.FieldDate) && !r.Date.IsZero() {
		date := r.Date
		t.date = &date
	}

	return t
}

func accepted(r *receipt.Receipt, f ocr.Field) bool {
	return r.Review.Fields[string(f)].State == receipt.StateAutoAccepted
}

// currencyCode maps the printed currency to its ISO code. "TL" is the
// customary spelling of TRY on Turkish receipts.
func currencyCode(s *string) string {
	if s == nil {
		return ""
	}

	code := strings.ToUpper(strings.TrimSpace(*s))
	if code == "TL" {
		return receipt.DefaultCurrency
	}

	return code
}

// confidence averages the reviewed receipt-level fields.
func confidence(rv receipt.Review) *float64 {
	sum, n := 0.0, 0

	for _, f := range []ocr.Field{ocr.FieldMerchant, ocr.FieldDate, ocr.FieldTotal, ocr.FieldItems} {
		if fr, ok := rv.Fields[string(f)]; ok {
			sum += fr.Confidence
			n++
		}
	}

	if n == 0 {
		return nil
	}

	c := sum / float64(n)

	return &c
}
