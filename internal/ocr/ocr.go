package ocr

import (
	"context"

	"github.com/shopspring/decimal"
)

// Field names one reviewed part of a receipt.
type Field string

const (
	FieldMerchant Field = "merchant"
	FieldDate     Field = "date"
	FieldTotal    Field = "total"
	FieldItems    Field = "items"
)

// Value is a recognized text with its confidence.
type Value struct {
	Text       string
	Confidence float64
}

// Item is one line item candidate. Price is the printed line total.
type Item struct {
	Name         string
	CleanedName  *string
	CategoryHint *string
	Barcode      *string
	Quantity     decimal.Decimal
	Price        decimal.Decimal
	Confidence   float64
}

// Result is the raw output of an OCR engine for one receipt image.
type Result struct {
	Merchant Value
	Date     Value
	Total    Value
	Items    []Item
	RawText  string
}

// Engine recognizes text on an already cropped receipt image.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (Result, error)
}
