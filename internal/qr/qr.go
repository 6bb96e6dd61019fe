package qr

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Format is the detected payload convention.
type Format string

const (
	FormatGIBEArchive Format = "gib_earchive"
	FormatUnknown     Format = "unknown"
)

// Data holds the fields of a GİB e-arşiv QR payload. Every field is optional;
// a partially decodable code is still usable.
type Data struct {
	DocumentNumber *string
	DocumentDate   *time.Time
	DocumentTime   *string
	MerchantTaxID  *string
	BuyerTaxID     *string
	MerchantTitle  *string
	MerchantName   *string
	TotalAmount    *decimal.Decimal
	TaxAmount      *decimal.Decimal
	DiscountAmount *decimal.Decimal
	ETTN           *string
	Currency       *string
	Scenario       *string
	InvoiceType    *string

	RawQRString string
	Format      Format
}

// Merchant returns the best available merchant label: the name, then the
// registered title, then the tax id.
func (d Data) Merchant() string {
	for _, s := range []*string{d.MerchantName, d.MerchantTitle, d.MerchantTaxID} {
		if s != nil && *s != "" {
			return *s
		}
	}

	return ""
}

// IssuedAt combines the document date and time.
func (d Data) IssuedAt() (time.Time, bool) {
	if d.DocumentDate == nil {
		return time.Time{}, false
	}

	date := *d.DocumentDate
	if d.DocumentTime == nil {
		return date, true
	}

	clock, err := time.Parse(time.TimeOnly, *d.DocumentTime)
	if err != nil {
		return date, true
	}

	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, date.Location()), true
}

// Result is the outcome of a decode. Success requires a GİB payload with a
// merchant identity and a total.
type Result struct {
	Data    Data
	Success bool
}

// Scanner reads the raw string of a QR code from a camera frame. ok is false
// when the frame holds no code.
type Scanner interface {
	Scan(ctx context.Context, frame []byte) (raw string, ok bool, err error)
}
